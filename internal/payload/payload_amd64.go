//go:build amd64

package payload

import "runtime"

// Supported reports whether payloads exist for this GOARCH.
func Supported() bool { return true }

// ReturnArgPlus returns code for "return first integer argument + n" under
// the direct trampoline, where the argument arrives in RAX and the result is
// returned in RAX.
//
//	add rax, n     ; 48 83 c0 nn
//	ret            ; c3
func ReturnArgPlus(n uint8) []byte {
	return []byte{0x48, 0x83, 0xc0, n, 0xc3}
}

// ReturnArgPlusC is the C-convention form of ReturnArgPlus.
//
//	mov rax, rdi   ; 48 89 f8   (System V: first arg in RDI)
//	mov rax, rcx   ; 48 89 c8   (Win64: first arg in RCX)
//	add rax, n     ; 48 83 c0 nn
//	ret            ; c3
func ReturnArgPlusC(n uint8) []byte {
	movArg := []byte{0x48, 0x89, 0xf8}
	if runtime.GOOS == "windows" {
		movArg = []byte{0x48, 0x89, 0xc8}
	}
	code := append([]byte{}, movArg...)
	code = append(code, 0x48, 0x83, 0xc0, n)
	code = append(code, 0xc3)
	return code
}

// DerefNull returns code that loads from address zero and faults. It takes
// no arguments, so the encoding serves either trampoline.
//
//	mov rax, [0]   ; 48 8b 04 25 00 00 00 00
//	ret            ; c3
func DerefNull() []byte {
	return []byte{0x48, 0x8b, 0x04, 0x25, 0x00, 0x00, 0x00, 0x00, 0xc3}
}
