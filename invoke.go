package nexec

import (
	"github.com/ebitengine/purego"

	"github.com/tinyrange/nexec/internal/fault"
	"github.com/tinyrange/nexec/internal/osmem"
)

// maxArgs is the integer register budget the direct trampoline provides on
// the supported architectures. The C trampoline could spill further
// arguments to the stack, but six is the contract for both. Payloads needing
// more must take memory operands.
const maxArgs = 6

// Convention selects the trampoline a Signature binds to.
type Convention uint8

const (
	// ConvDirect calls the payload as if it were a Go function, passing
	// integer arguments in the runtime's internal register convention
	// (first argument and result in RAX on amd64, X0 on arm64). A hardware
	// fault inside the payload is contained and reported as a *FaultError.
	ConvDirect Convention = iota
	// ConvC calls the payload through the platform C calling convention
	// (System V AMD64, Win64, or AAPCS64). The call crosses the runtime's
	// foreign-call boundary, so a fault inside the payload terminates the
	// process instead of being contained. Use it only for trusted code.
	ConvC
)

// Width is the width of an integer operand in a Signature.
type Width uint8

const (
	W8 Width = iota
	W16
	W32
	W64
)

func (w Width) mask() (uint64, bool) {
	switch w {
	case W8:
		return 0xff, true
	case W16:
		return 0xffff, true
	case W32:
		return 0xffffffff, true
	case W64:
		return ^uint64(0), true
	default:
		return 0, false
	}
}

// Signature describes the integer-in/integer-out contract of a payload:
// argument count and widths, the return width, and the calling convention.
// It selects the calling trampoline only; it is never checked against the
// payload bytes. Supplying a payload that does not match its declared
// Signature is undefined behavior and the caller's responsibility.
type Signature struct {
	Args     int
	ArgWidth Width
	RetWidth Width
	Conv     Convention
}

func (s Signature) validate() error {
	if s.Args < 0 || s.Args > maxArgs {
		return ErrTooManyArgs
	}
	if _, ok := s.ArgWidth.mask(); !ok {
		return ErrBadWidth
	}
	if _, ok := s.RetWidth.mask(); !ok {
		return ErrBadWidth
	}
	if s.Conv > ConvC {
		return ErrBadConvention
	}
	return nil
}

// Invoker calls a Region's code through a typed signature. It snapshots the
// Region's generation at Bind time: any protection transition after that
// makes the Invoker stale, even if the region is executable again.
type Invoker struct {
	region *Region
	gen    uint64
	sig    Signature
}

// Bind constructs an Invoker for the region's current generation.
func (r *Region) Bind(sig Signature) (*Invoker, error) {
	if r.mapping == nil {
		return nil, ErrRegionClosed
	}
	if err := sig.validate(); err != nil {
		return nil, err
	}
	return &Invoker{region: r, gen: r.gen, sig: sig}, nil
}

// Call executes the region's code with the given integer arguments under the
// fault barrier. Arguments and the return value are masked to the signature
// widths. With ConvDirect, a hardware fault inside the payload is reported
// as a *FaultError and the process keeps running. With ConvC, the call goes
// through purego and a payload fault is not containable; see Convention.
func (inv *Invoker) Call(args ...uint64) (uint64, error) {
	r := inv.region
	if r.mapping == nil {
		return 0, ErrRegionClosed
	}
	if inv.gen != r.gen {
		return 0, ErrStaleBinding
	}
	if r.mapping.Protection() != osmem.ProtReadExec {
		return 0, ErrNotExecutable
	}
	if len(args) != inv.sig.Args {
		return 0, ErrArityMismatch
	}

	argMask, _ := inv.sig.ArgWidth.mask()
	callArgs := make([]uintptr, len(args))
	for i, a := range args {
		callArgs[i] = uintptr(a & argMask)
	}

	entry := r.mapping.Addr()
	var ret uintptr
	call := func() { ret = callDirect(entry, callArgs) }
	if inv.sig.Conv == ConvC {
		call = func() { ret, _, _ = purego.SyscallN(entry, callArgs...) }
	}
	if f := fault.Protect(call); f != nil {
		return 0, faultError(f)
	}

	retMask, _ := inv.sig.RetWidth.mask()
	return uint64(ret) & retMask, nil
}
