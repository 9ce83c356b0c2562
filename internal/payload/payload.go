// Package payload hand-assembles the tiny machine-code sequences the tests
// and the nxrun tool need. It is deliberately not an assembler: each sequence
// is a fixed byte table. ReturnArgPlus targets the direct trampoline, which
// enters code with the Go runtime's internal register convention (first
// argument and result in RAX on amd64, X0 on arm64). ReturnArgPlusC targets
// the platform C convention (System V AMD64, Win64, or AAPCS64).
package payload
