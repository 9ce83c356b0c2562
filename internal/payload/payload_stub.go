//go:build !amd64 && !arm64

package payload

// Supported reports whether payloads exist for this GOARCH.
func Supported() bool { return false }

// ReturnArgPlus has no encoding for this GOARCH.
func ReturnArgPlus(n uint8) []byte { return nil }

// ReturnArgPlusC has no encoding for this GOARCH.
func ReturnArgPlusC(n uint8) []byte { return nil }

// DerefNull has no encoding for this GOARCH.
func DerefNull() []byte { return nil }
