// Package fault provides a scoped barrier that converts hardware faults
// raised during a protected call into structured values instead of process
// termination. The barrier is acquired and released on every exit path,
// including the fault path.
package fault

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"unsafe"

	"github.com/tinyrange/nexec/internal/chain"
)

// Kind classifies a contained fault.
type Kind uint8

const (
	// KindUnknown is a runtime fault the barrier could not classify further.
	KindUnknown Kind = iota
	// KindMemory is an access violation: a read, write, or execute of an
	// address the thread may not touch.
	KindMemory
	// KindArithmetic is a hardware arithmetic trap such as integer division
	// by zero.
	KindArithmetic
)

func (k Kind) String() string {
	switch k {
	case KindMemory:
		return "memory"
	case KindArithmetic:
		return "arithmetic"
	default:
		return "unknown"
	}
}

// Fault describes one contained hardware fault.
type Fault struct {
	Kind Kind
	// Addr is the faulting address when the platform reported one, else 0.
	Addr uintptr
	// Err is the underlying runtime error.
	Err error
}

func (f *Fault) Error() string {
	if f.Addr != 0 {
		return fmt.Sprintf("fault: %s at %#x: %v", f.Kind, f.Addr, f.Err)
	}
	return fmt.Sprintf("fault: %s: %v", f.Kind, f.Err)
}

func (f *Fault) Unwrap() error { return f.Err }

// barrierMark is the handler reference recorded for active barrier scopes.
var barrierMark byte

// Mark returns the opaque handler reference barrier scopes register on the
// thread's handler chain.
func Mark() uintptr { return uintptr(unsafe.Pointer(&barrierMark)) }

// Protect runs fn under the fault barrier and reports a hardware fault raised
// by it as a *Fault instead of terminating the process. Non-fault panics
// propagate unchanged. The calling goroutine is pinned to its OS thread for
// the duration of the scope, and a handler record for the scope is registered
// on (and removed from) the thread's handler chain on every exit path.
//
// The conversion relies on the Go runtime delivering the fault as a panic.
// That holds for faults raised by Go code and by code entered through a
// plain call instruction. A fault raised while the thread is across the
// runtime's foreign-call boundary (cgo) is fatal and cannot be contained;
// fn must not fault on that path.
func Protect(fn func()) (f *Fault) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	pop := chain.PushHandler(Mark())
	defer pop()

	old := debug.SetPanicOnFault(true)
	defer debug.SetPanicOnFault(old)

	defer func() {
		r := recover()
		if r == nil {
			return
		}
		re, ok := r.(runtime.Error)
		if !ok {
			panic(r)
		}
		f = classify(re)
	}()

	fn()
	return nil
}

func classify(re runtime.Error) *Fault {
	f := &Fault{Kind: KindUnknown, Err: re}

	// Faults delivered through debug.SetPanicOnFault carry the faulting
	// address.
	if a, ok := re.(interface{ Addr() uintptr }); ok {
		f.Kind = KindMemory
		f.Addr = a.Addr()
		return f
	}

	msg := re.Error()
	switch {
	case strings.Contains(msg, "invalid memory address"), strings.Contains(msg, "fault"):
		f.Kind = KindMemory
	case strings.Contains(msg, "divide by zero"):
		f.Kind = KindArithmetic
	}
	return f
}
