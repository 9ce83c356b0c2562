//go:build windows

package osmem

import (
	"errors"
	"testing"

	"golang.org/x/sys/windows"
)

func TestReserveRoundsToPageSize(t *testing.T) {
	m, err := Reserve(1)
	if err != nil {
		t.Fatalf("Reserve(1) failed: %v", err)
	}
	defer func() {
		_ = m.Release()
	}()

	ps := windows.Getpagesize()
	if m.Size() != ps {
		t.Fatalf("Size=%d, want one page (%d)", m.Size(), ps)
	}
	if m.Addr() == 0 {
		t.Fatal("Addr=0 for live mapping")
	}
}

func TestSetProtectionTransitions(t *testing.T) {
	m, err := Reserve(32)
	if err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}
	defer func() {
		_ = m.Release()
	}()

	m.Slice()[0] = 0xc3
	if err := m.SetProtection(ProtReadExec); err != nil {
		t.Fatalf("SetProtection(r-x) failed: %v", err)
	}
	if err := m.SetProtection(ProtReadWrite); err != nil {
		t.Fatalf("SetProtection(rw-) failed: %v", err)
	}
}

func TestReleaseConsumesMapping(t *testing.T) {
	m, err := Reserve(16)
	if err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}
	if err := m.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if err := m.Release(); !errors.Is(err, ErrReleased) {
		t.Fatalf("second Release: err=%v, want ErrReleased", err)
	}
}
