package nexec

import "unsafe"

// callDirect enters the code at entry as if it were a Go function. A Go func
// value is a pointer to a word holding the code address, so reinterpreting
// the address of a local that holds entry as a func value makes the call
// instruction jump straight into the region. No foreign-call transition is
// involved, which keeps a fault inside the payload attributable by the
// runtime and convertible by the barrier.
//
// The payload is entered with the runtime's internal register convention:
// integer arguments arrive in RAX, RBX, RCX, RDI, RSI, R8 on amd64 and in
// X0..X5 on arm64, and the result is returned in RAX / X0.
func callDirect(entry uintptr, args []uintptr) uintptr {
	fp := unsafe.Pointer(&entry)
	switch len(args) {
	case 0:
		return (*(*func() uintptr)(unsafe.Pointer(&fp)))()
	case 1:
		return (*(*func(uintptr) uintptr)(unsafe.Pointer(&fp)))(args[0])
	case 2:
		return (*(*func(uintptr, uintptr) uintptr)(unsafe.Pointer(&fp)))(args[0], args[1])
	case 3:
		return (*(*func(uintptr, uintptr, uintptr) uintptr)(unsafe.Pointer(&fp)))(args[0], args[1], args[2])
	case 4:
		return (*(*func(uintptr, uintptr, uintptr, uintptr) uintptr)(unsafe.Pointer(&fp)))(args[0], args[1], args[2], args[3])
	case 5:
		return (*(*func(uintptr, uintptr, uintptr, uintptr, uintptr) uintptr)(unsafe.Pointer(&fp)))(args[0], args[1], args[2], args[3], args[4])
	case 6:
		return (*(*func(uintptr, uintptr, uintptr, uintptr, uintptr, uintptr) uintptr)(unsafe.Pointer(&fp)))(args[0], args[1], args[2], args[3], args[4], args[5])
	default:
		panic("nexec: argument count exceeds the register budget")
	}
}
