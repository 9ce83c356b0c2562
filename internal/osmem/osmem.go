// Package osmem reserves anonymous memory mappings whose protection can be
// switched between read-write and read-execute. It is the only package that
// talks to the operating system's memory primitives; everything above it works
// with opaque *Mapping handles instead of raw addresses.
//
// Read-write-execute is never requested: a mapping is writable or executable,
// not both.
package osmem

import (
	"errors"
	"fmt"
)

// Protection is the protection mode of a mapping.
type Protection uint8

const (
	// ProtReadWrite maps to PROT_READ|PROT_WRITE / PAGE_READWRITE.
	ProtReadWrite Protection = iota
	// ProtReadExec maps to PROT_READ|PROT_EXEC / PAGE_EXECUTE_READ.
	ProtReadExec
)

func (p Protection) String() string {
	switch p {
	case ProtReadWrite:
		return "rw-"
	case ProtReadExec:
		return "r-x"
	default:
		return fmt.Sprintf("Protection(%d)", uint8(p))
	}
}

// ErrReleased is returned when an operation is attempted on a mapping that
// has already been released. The second release performs no OS call.
var ErrReleased = errors.New("osmem: mapping already released")

// AllocError reports a refused reservation.
type AllocError struct {
	Size int
	Err  error
}

func (e *AllocError) Error() string {
	return fmt.Sprintf("osmem: reserve %d bytes: %v", e.Size, e.Err)
}

func (e *AllocError) Unwrap() error { return e.Err }

// ProtectError reports a refused protection transition. The mapping keeps its
// previous protection; no partial transition is observable.
type ProtectError struct {
	Want Protection
	Err  error
}

func (e *ProtectError) Error() string {
	return fmt.Sprintf("osmem: set protection %s: %v", e.Want, e.Err)
}

func (e *ProtectError) Unwrap() error { return e.Err }

// ReleaseError reports a refused release. The mapping is considered leaked.
type ReleaseError struct {
	Err error
}

func (e *ReleaseError) Error() string {
	return fmt.Sprintf("osmem: release mapping: %v", e.Err)
}

func (e *ReleaseError) Unwrap() error { return e.Err }

// alignUp rounds n up to the next multiple of page.
func alignUp(n, page int) int {
	return (n + page - 1) / page * page
}
