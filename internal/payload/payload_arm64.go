//go:build arm64

package payload

import "encoding/binary"

// Supported reports whether payloads exist for this GOARCH.
func Supported() bool { return true }

func emit(words ...uint32) []byte {
	code := make([]byte, 0, len(words)*4)
	for _, w := range words {
		code = binary.LittleEndian.AppendUint32(code, w)
	}
	return code
}

// ReturnArgPlus returns code for "return first integer argument + n". The
// direct trampoline passes the first argument and the result in X0.
//
//	add x0, x0, #n
//	ret
func ReturnArgPlus(n uint8) []byte {
	return emit(
		0x91000000|uint32(n)<<10,
		0xd65f03c0,
	)
}

// ReturnArgPlusC is the C-convention form of ReturnArgPlus. AAPCS64 also
// uses X0 for the first argument and the result, so the encoding is the
// same.
func ReturnArgPlusC(n uint8) []byte { return ReturnArgPlus(n) }

// DerefNull returns code that loads from address zero and faults.
//
//	mov x1, #0
//	ldr x0, [x1]
//	ret
func DerefNull() []byte {
	return emit(
		0xd2800001,
		0xf9400020,
		0xd65f03c0,
	)
}
