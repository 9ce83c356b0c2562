package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/tinyrange/nexec"
	"github.com/tinyrange/nexec/internal/payload"
)

// Scenario is a YAML description of one payload run.
type Scenario struct {
	// Payload is the machine code, hex encoded.
	Payload string `yaml:"payload"`
	// Args are the integer arguments passed to the payload.
	Args []uint64 `yaml:"args"`
	// ArgBits and RetBits are operand widths (8, 16, 32, 64). 0 means 64.
	ArgBits int `yaml:"arg_bits"`
	RetBits int `yaml:"ret_bits"`
	// Convention is "go" (default, fault-contained) or "c" (platform C ABI,
	// faults are fatal).
	Convention string `yaml:"convention"`
}

func loadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	return &s, nil
}

func width(bits int) (nexec.Width, error) {
	switch bits {
	case 8:
		return nexec.W8, nil
	case 16:
		return nexec.W16, nil
	case 32:
		return nexec.W32, nil
	case 0, 64:
		return nexec.W64, nil
	default:
		return 0, fmt.Errorf("unsupported operand width %d", bits)
	}
}

func convention(name string) (nexec.Convention, error) {
	switch name {
	case "", "go":
		return nexec.ConvDirect, nil
	case "c":
		return nexec.ConvC, nil
	default:
		return 0, fmt.Errorf("unsupported calling convention %q", name)
	}
}

func hexDump(code []byte) {
	const perLine = 16
	for off := 0; off < len(code); off += perLine {
		end := off + perLine
		if end > len(code) {
			end = len(code)
		}
		fmt.Printf("  %04x  % x\n", off, code[off:end])
	}
}

func run() error {
	scenario := flag.String("scenario", "", "YAML scenario file (payload hex, args, widths)")
	add := flag.Int("add", -1, "use the built-in \"return arg + N\" payload")
	walk := flag.Bool("walk", false, "walk this thread's fault-handler chain and exit")
	probe := flag.Bool("probe", false, "run the debugger-presence timing probe and exit")
	threshold := flag.Duration("threshold", 5*time.Second, "timing-probe threshold")
	verbose := flag.Bool("v", false, "enable debug logging")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `nxrun - run a machine-code payload and inspect the handler chain

USAGE:
  nxrun [flags] [arg...]

FLAGS:
  -scenario FILE  Load payload, arguments, widths, and calling convention
                  from a YAML scenario
  -add N          Use the built-in "return first arg + N" payload
  -walk           Walk the calling thread's fault-handler chain, then exit
  -probe          Run the timing-based debugger-presence probe, then exit
  -threshold D    Probe threshold (default: 5s)
  -v              Debug logging

Positional args are decimal integers passed to the payload (they override
scenario args).

EXAMPLES:
  nxrun -add 4 58                 Run "return arg+4" with arg 58 (prints 62)
  nxrun -scenario add4.yaml       Run a payload described in YAML
  nxrun -walk                     Show registered fault handlers
  nxrun -probe -threshold 100ms   Flag runs slower than 100ms
`)
	}
	flag.Parse()

	if *verbose {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	if *probe {
		p := nexec.DebugProbe{Threshold: *threshold}
		suspected, elapsed := p.Suspected()
		slog.Info("timing probe finished", "elapsed", elapsed, "threshold", *threshold, "suspected", suspected)
		if suspected {
			return fmt.Errorf("routine overran threshold: possible debugger")
		}
		return nil
	}

	if *walk {
		views, cycle := nexec.WalkChain().Collect()
		for _, v := range views {
			fmt.Printf("  hop %d: handler %#x\n", v.Hop, v.Handler)
		}
		slog.Info("chain walk finished", "handlers", len(views), "suspectedCycle", cycle)
		if cycle {
			return fmt.Errorf("chain did not terminate within %d hops", nexec.ChainHopCeiling)
		}
		return nil
	}

	var (
		code     []byte
		args     []uint64
		argWidth = nexec.W64
		retWidth = nexec.W64
		conv     = nexec.ConvDirect
	)

	switch {
	case *scenario != "":
		s, err := loadScenario(*scenario)
		if err != nil {
			return err
		}
		code, err = hex.DecodeString(s.Payload)
		if err != nil {
			return fmt.Errorf("decode payload hex: %w", err)
		}
		args = s.Args
		if argWidth, err = width(s.ArgBits); err != nil {
			return err
		}
		if retWidth, err = width(s.RetBits); err != nil {
			return err
		}
		if conv, err = convention(s.Convention); err != nil {
			return err
		}
	case *add >= 0:
		if !payload.Supported() {
			return fmt.Errorf("no built-in payload for this architecture")
		}
		if *add > 255 {
			return fmt.Errorf("-add takes a byte immediate (0-255)")
		}
		code = payload.ReturnArgPlus(uint8(*add))
	default:
		flag.Usage()
		return fmt.Errorf("one of -scenario, -add, -walk, -probe is required")
	}

	if flag.NArg() > 0 {
		args = args[:0]
		for _, raw := range flag.Args() {
			v, err := strconv.ParseUint(raw, 10, 64)
			if err != nil {
				return fmt.Errorf("argument %q: %w", raw, err)
			}
			args = append(args, v)
		}
	}

	region, err := nexec.NewRegion(len(code))
	if err != nil {
		return err
	}
	defer func() {
		if err := region.Close(); err != nil {
			slog.Error("region close failed", "err", err)
		}
	}()

	if err := region.Write(code); err != nil {
		return err
	}
	if term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Printf("payload (%d bytes):\n", len(code))
		hexDump(code)
	}

	if err := region.MakeExecutable(); err != nil {
		return err
	}

	inv, err := region.Bind(nexec.Signature{Args: len(args), ArgWidth: argWidth, RetWidth: retWidth, Conv: conv})
	if err != nil {
		return err
	}

	ret, err := inv.Call(args...)
	if err != nil {
		return fmt.Errorf("invoke payload: %w", err)
	}

	slog.Info("payload returned", "value", ret)
	fmt.Println(ret)
	return nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "nxrun: %v\n", err)
		os.Exit(1)
	}
}
