//go:build windows

package chain

import (
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

// EndOfChain is the SEH end-of-chain sentinel (EXCEPTION_CHAIN_END).
const EndOfChain = ^uintptr(0)

var (
	ntdll                        = syscall.NewLazyDLL("ntdll.dll")
	procNtQueryInformationThread = ntdll.NewProc("NtQueryInformationThread")
)

const threadBasicInformation = 0

// threadBasicInfo mirrors THREAD_BASIC_INFORMATION.
type threadBasicInfo struct {
	ExitStatus     uint32
	_              uint32
	TebBaseAddress uintptr
	ClientID       [2]uintptr
	AffinityMask   uintptr
	Priority       int32
	BasePriority   int32
}

// threadAnchor reads the calling thread's TEB ExceptionList slot: the first
// field of the NT_TIB at the start of the TEB. The TEB is located through
// NtQueryInformationThread on the current thread's pseudo handle; the slot
// itself is ordinary in-process memory.
func threadAnchor() uintptr {
	thread, err := windows.GetCurrentThread()
	if err != nil {
		return EndOfChain
	}

	var tbi threadBasicInfo
	var retLen uint32
	status, _, _ := procNtQueryInformationThread.Call(
		uintptr(thread),
		threadBasicInformation,
		uintptr(unsafe.Pointer(&tbi)),
		unsafe.Sizeof(tbi),
		uintptr(unsafe.Pointer(&retLen)),
	)
	if status != 0 || tbi.TebBaseAddress == 0 {
		return EndOfChain
	}

	anchor, ok := readWord(tbi.TebBaseAddress)
	if !ok {
		return EndOfChain
	}
	return anchor
}

// PushHandler is a no-op on Windows: the OS owns the SEH chain and the
// facility never writes to it. The walker still sees the real chain through
// the TEB anchor.
func PushHandler(handler uintptr) (pop func()) {
	return func() {}
}
