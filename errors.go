package nexec

import (
	"errors"
	"fmt"

	"github.com/tinyrange/nexec/internal/fault"
)

var (
	ErrRegionClosed  = errors.New("region is closed")
	ErrNotWritable   = errors.New("region is not writable")
	ErrNotExecutable = errors.New("region is not executable")
	ErrStaleBinding  = errors.New("invoker bound to a previous protection generation")
	ErrOutOfRange    = errors.New("write exceeds region bounds")
	ErrTooManyArgs   = errors.New("signature exceeds the integer register budget")
	ErrArityMismatch = errors.New("argument count does not match signature")
	ErrBadWidth      = errors.New("invalid operand width")
	ErrBadConvention = errors.New("invalid calling convention")
)

// WriteError reports a refused region write. No partial write occurs.
type WriteError struct {
	Off int
	N   int
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %d bytes at offset %d: %v", e.N, e.Off, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// FaultKind classifies a fault contained during invocation.
type FaultKind uint8

const (
	FaultUnknown    = FaultKind(fault.KindUnknown)
	FaultMemory     = FaultKind(fault.KindMemory)
	FaultArithmetic = FaultKind(fault.KindArithmetic)
)

func (k FaultKind) String() string { return fault.Kind(k).String() }

// FaultError reports a hardware fault raised while executing a payload under
// the fault barrier. The process keeps running; the call site decides what to
// do with the region.
type FaultError struct {
	Kind FaultKind
	// Addr is the faulting address when the platform reported one, else 0.
	Addr uintptr

	err error
}

func (e *FaultError) Error() string {
	if e.Addr != 0 {
		return fmt.Sprintf("fault during execution: %s at %#x", e.Kind, e.Addr)
	}
	return fmt.Sprintf("fault during execution: %s", e.Kind)
}

func (e *FaultError) Unwrap() error { return e.err }

func faultError(f *fault.Fault) *FaultError {
	return &FaultError{Kind: FaultKind(f.Kind), Addr: f.Addr, err: f.Err}
}
