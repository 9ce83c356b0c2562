//go:build windows

package osmem

import (
	"fmt"
	"runtime"
	"unsafe"

	"golang.org/x/sys/windows"
)

// Mapping is one VirtualAlloc region. The address is kept as a uintptr so the
// GC never scans the non-Go memory; Slice converts on demand.
type Mapping struct {
	addr uintptr
	size int
	prot Protection

	// cleanup frees the region if the handle is collected unreleased.
	// Stopped on manual Release to prevent a double free.
	cleanup runtime.Cleanup
}

// releaseMapping is the standalone cleanup function. It must not capture the
// *Mapping itself to avoid object resurrection. For MEM_RELEASE the size
// argument must be 0.
func releaseMapping(addr uintptr) {
	_ = windows.VirtualFree(addr, 0, windows.MEM_RELEASE)
}

// Reserve commits size bytes of read-write memory. size is rounded up to the
// page size and must be at least 1.
func Reserve(size int) (*Mapping, error) {
	if size < 1 {
		return nil, &AllocError{Size: size, Err: fmt.Errorf("size must be >= 1")}
	}
	sz := alignUp(size, windows.Getpagesize())

	addr, err := windows.VirtualAlloc(0, uintptr(sz), windows.MEM_COMMIT|windows.MEM_RESERVE, windows.PAGE_READWRITE)
	if err != nil {
		return nil, &AllocError{Size: sz, Err: err}
	}

	m := &Mapping{
		addr: addr,
		size: sz,
		prot: ProtReadWrite,
	}
	m.cleanup = runtime.AddCleanup(m, releaseMapping, addr)
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
func (m *Mapping) Slice() []byte {
	if m.addr == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(m.addr)), m.size)
}

// SetProtection switches the mapping between read-write and read-execute.
// On failure the recorded protection is unchanged.
func (m *Mapping) SetProtection(p Protection) error {
	if m.addr == 0 {
		return ErrReleased
	}
	newProt := uint32(windows.PAGE_READWRITE)
	if p == ProtReadExec {
		newProt = windows.PAGE_EXECUTE_READ
	}
	var old uint32
	if err := windows.VirtualProtect(m.addr, uintptr(m.size), newProt, &old); err != nil {
		return &ProtectError{Want: p, Err: err}
	}
	m.prot = p
	return nil
}

// Release hands the mapping back to the OS and consumes the handle. A second
// call returns ErrReleased without touching the OS. If the OS refuses the
// free the mapping is considered leaked and the handle is still consumed.
func (m *Mapping) Release() error {
	if m.addr == 0 {
		return ErrReleased
	}
	m.cleanup.Stop()
	err := windows.VirtualFree(m.addr, 0, windows.MEM_RELEASE)
	m.addr = 0
	m.size = 0
	if err != nil {
		return &ReleaseError{Err: err}
	}
	return nil
}
