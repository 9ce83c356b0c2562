// Package nexec executes caller-supplied machine code from process memory and
// inspects the calling thread's fault-handler chain. A Region owns one
// anonymous mapping that is writable or executable, never both; an Invoker
// binds a Region to an integer call signature; WalkChain enumerates the
// thread's registered fault handlers.
//
// A Region is not safe for concurrent mutation. Callers that share one across
// goroutines must provide their own exclusion; distinct Regions need none.
package nexec

import (
	"log/slog"

	"github.com/tinyrange/nexec/internal/osmem"
)

// Region is one executable memory region. It starts writable; WriteAt fills
// it with code, MakeExecutable flips it for invocation, and Close returns the
// memory to the OS exactly once.
type Region struct {
	mapping *osmem.Mapping
	written int
	gen     uint64
}

// NewRegion reserves a writable region of at least size bytes, rounded up to
// the page size.
func NewRegion(size int) (*Region, error) {
	m, err := osmem.Reserve(size)
	if err != nil {
		return nil, err
	}
	slog.Debug("nexec: region reserved", "size", m.Size(), "prot", m.Protection())
	return &Region{mapping: m}, nil
}

// Size returns the usable size of the region in bytes, or 0 once closed.
func (r *Region) Size() int {
	if r.mapping == nil {
		return 0
	}
	return r.mapping.Size()
}

// Len returns the high-water mark of bytes written into the region.
func (r *Region) Len() int { return r.written }

// Generation returns the protection generation. It increases on every
// successful protection transition; Invokers bound to an older generation
// refuse to run.
func (r *Region) Generation() uint64 { return r.gen }

// Executable reports whether the region is currently executable.
func (r *Region) Executable() bool {
	return r.mapping != nil && r.mapping.Protection() == osmem.ProtReadExec
}

// WriteAt copies b into the region at off. The region must be writable and
// the write must fit; gaps below the high-water mark are not zeroed.
func (r *Region) WriteAt(off int, b []byte) error {
	if r.mapping == nil {
		return &WriteError{Off: off, N: len(b), Err: ErrRegionClosed}
	}
	if r.mapping.Protection() != osmem.ProtReadWrite {
		return &WriteError{Off: off, N: len(b), Err: ErrNotWritable}
	}
	if off < 0 || off+len(b) > r.mapping.Size() {
		return &WriteError{Off: off, N: len(b), Err: ErrOutOfRange}
	}
	copy(r.mapping.Slice()[off:], b)
	if off+len(b) > r.written {
		r.written = off + len(b)
	}
	return nil
}

// Write copies b to the start of the region.
func (r *Region) Write(b []byte) error { return r.WriteAt(0, b) }

// Bytes returns a copy of the bytes written so far.
func (r *Region) Bytes() ([]byte, error) {
	if r.mapping == nil {
		return nil, ErrRegionClosed
	}
	out := make([]byte, r.written)
	copy(out, r.mapping.Slice()[:r.written])
	return out, nil
}

// MakeExecutable transitions the region from writable to executable and bumps
// the generation. If the OS refuses, the region stays writable and the
// generation is unchanged. Calling it on an already executable region is a
// no-op.
func (r *Region) MakeExecutable() error {
	return r.transition(osmem.ProtReadExec)
}

// MakeWritable transitions the region back to writable, invalidating every
// Invoker bound to the previous generation.
func (r *Region) MakeWritable() error {
	return r.transition(osmem.ProtReadWrite)
}

func (r *Region) transition(p osmem.Protection) error {
	if r.mapping == nil {
		return ErrRegionClosed
	}
	if r.mapping.Protection() == p {
		return nil
	}
	if err := r.mapping.SetProtection(p); err != nil {
		return err
	}
	r.gen++
	slog.Debug("nexec: region protection changed", "prot", p, "generation", r.gen)
	return nil
}

// Close releases the region's memory and consumes it. A second Close returns
// ErrRegionClosed with no OS-level effect.
func (r *Region) Close() error {
	if r.mapping == nil {
		return ErrRegionClosed
	}
	m := r.mapping
	r.mapping = nil
	r.written = 0
	if err := m.Release(); err != nil {
		return err
	}
	slog.Debug("nexec: region released")
	return nil
}
