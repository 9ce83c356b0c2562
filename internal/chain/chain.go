// Package chain walks the calling thread's registered fault-handler chain: a
// singly linked list of {next, handler} records reachable from a per-thread
// anchor. On Windows the anchor is the TEB ExceptionList and the records are
// the OS's own EXCEPTION_REGISTRATION_RECORDs. On unix the records are the
// facility's active fault-barrier scopes, kept in the same layout.
//
// The chain is foreign data: the walker only ever reads it, every dereference
// is guarded, and traversal stops at a hop ceiling so a malformed or circular
// chain cannot loop forever.
package chain

import (
	"runtime/debug"
	"unsafe"
)

// DefaultHopCeiling bounds a walk over a chain whose well-formedness is not
// guaranteed.
const DefaultHopCeiling = 10000

const wordSize = unsafe.Sizeof(uintptr(0))

// RecordView is a read-only view of one handler record.
type RecordView struct {
	// Handler is the record's handler reference. It is opaque: valid only for
	// identity and display, never for arithmetic or calling.
	Handler uintptr
	// Hop is the record's position in the walk, starting at 0.
	Hop int
}

// Walk is one traversal of a handler chain. It is lazy and finite; create a
// new Walk to restart from a freshly read anchor.
type Walk struct {
	cur     uintptr
	hop     int
	ceiling int
	cycle   bool
	done    bool
}

// Start begins a walk of the calling thread's own chain. The anchor is read
// once, at this call.
func Start() *Walk {
	return StartAt(threadAnchor(), DefaultHopCeiling)
}

// StartAt begins a walk from an explicit anchor value with the given hop
// ceiling. ceiling <= 0 selects DefaultHopCeiling.
func StartAt(anchor uintptr, ceiling int) *Walk {
	if ceiling <= 0 {
		ceiling = DefaultHopCeiling
	}
	return &Walk{cur: anchor, ceiling: ceiling}
}

// Next yields the next record view. ok is false once the walk has reached the
// end-of-chain sentinel or given up on a suspected cycle.
func (w *Walk) Next() (view RecordView, ok bool) {
	// A nil next pointer terminates the walk on every platform, even where
	// the conventional sentinel is ^uintptr(0).
	if w.done || w.cur == EndOfChain || w.cur == 0 {
		w.done = true
		return RecordView{}, false
	}
	if w.hop >= w.ceiling {
		w.cycle = true
		w.done = true
		return RecordView{}, false
	}

	handler, ok := readWord(w.cur + wordSize)
	if !ok {
		// Record memory is gone or unreadable; treat as corrupt and stop.
		w.cycle = true
		w.done = true
		return RecordView{}, false
	}
	next, ok := readWord(w.cur)
	if !ok {
		w.cycle = true
		w.done = true
		return RecordView{}, false
	}

	view = RecordView{Handler: handler, Hop: w.hop}
	w.cur = next
	w.hop++
	return view, true
}

// SuspectedCycle reports whether the walk gave up before reaching the
// sentinel. Only meaningful once Next has returned false.
func (w *Walk) SuspectedCycle() bool { return w.cycle }

// Hops returns the number of records yielded so far.
func (w *Walk) Hops() int { return w.hop }

// Collect drains the walk and returns every remaining view plus the cycle
// flag.
func (w *Walk) Collect() (views []RecordView, suspectedCycle bool) {
	for {
		v, ok := w.Next()
		if !ok {
			return views, w.cycle
		}
		views = append(views, v)
	}
}

// readWord reads one pointer-sized word from foreign memory. A fault while
// reading is converted into ok=false instead of crashing the process.
func readWord(addr uintptr) (v uintptr, ok bool) {
	old := debug.SetPanicOnFault(true)
	defer debug.SetPanicOnFault(old)
	defer func() {
		if recover() != nil {
			v, ok = 0, false
		}
	}()
	return *(*uintptr)(unsafe.Pointer(addr)), true
}
