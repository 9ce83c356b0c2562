//go:build darwin || linux

package osmem

import (
	"fmt"
	"runtime"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Mapping is one anonymous memory mapping. The address is kept as a uintptr so
// the GC never scans the non-Go memory; Slice converts on demand.
type Mapping struct {
	buf  []byte
	addr uintptr
	size int
	prot Protection

	// cleanup unmaps the memory if the handle is collected unreleased.
	// Stopped on manual Release to prevent a double unmap.
	cleanup runtime.Cleanup
}

type munmapArg struct {
	addr uintptr
	size int
}

// releaseMapping is the standalone cleanup function. It must not capture the
// *Mapping itself to avoid object resurrection.
func releaseMapping(a munmapArg) {
	buf := unsafe.Slice((*byte)(unsafe.Pointer(a.addr)), a.size)
	_ = unix.Munmap(buf)
}

// Reserve maps size bytes of anonymous read-write memory. size is rounded up
// to the page size and must be at least 1.
func Reserve(size int) (*Mapping, error) {
	if size < 1 {
		return nil, &AllocError{Size: size, Err: fmt.Errorf("size must be >= 1")}
	}
	sz := alignUp(size, unix.Getpagesize())

	buf, err := unix.Mmap(-1, 0, sz, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, &AllocError{Size: sz, Err: err}
	}

	m := &Mapping{
		buf:  buf,
		addr: uintptr(unsafe.Pointer(&buf[0])),
		size: sz,
		prot: ProtReadWrite,
	}
	m.cleanup = runtime.AddCleanup(m, releaseMapping, munmapArg{addr: m.addr, size: sz})
	return m, nil
}

// Addr returns the base address of the mapping, or 0 after release.
func (m *Mapping) Addr() uintptr { return m.addr }

// Size returns the page-rounded size of the mapping in bytes.
func (m *Mapping) Size() int { return m.size }

// Protection returns the last protection the OS acknowledged.
func (m *Mapping) Protection() Protection { return m.prot }

// Released reports whether the mapping has been handed back to the OS.
func (m *Mapping) Released() bool { return m.addr == 0 }

// Slice returns the byte slice backing the mapping. Reads and writes through
// it are only legal while the mapping is read-write.
func (m *Mapping) Slice() []byte { return m.buf }

// SetProtection switches the mapping between read-write and read-execute.
// On failure the recorded protection is unchanged.
func (m *Mapping) SetProtection(p Protection) error {
	if m.addr == 0 {
		return ErrReleased
	}
	prot := unix.PROT_READ | unix.PROT_WRITE
	if p == ProtReadExec {
		prot = unix.PROT_READ | unix.PROT_EXEC
	}
	if err := unix.Mprotect(m.buf, prot); err != nil {
		return &ProtectError{Want: p, Err: err}
	}
	m.prot = p
	return nil
}

// Release hands the mapping back to the OS and consumes the handle. A second
// call returns ErrReleased without touching the OS. If the OS refuses the
// unmap the mapping is considered leaked and the handle is still consumed.
func (m *Mapping) Release() error {
	if m.addr == 0 {
		return ErrReleased
	}
	m.cleanup.Stop()
	err := unix.Munmap(m.buf)
	m.buf = nil
	m.addr = 0
	m.size = 0
	if err != nil {
		return &ReleaseError{Err: err}
	}
	return nil
}
