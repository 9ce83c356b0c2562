package nexec

import (
	"bytes"
	"errors"
	"os"
	"testing"
)

func newTestRegion(t *testing.T, size int) *Region {
	t.Helper()
	r, err := NewRegion(size)
	if err != nil {
		t.Fatalf("NewRegion(%d) failed: %v", size, err)
	}
	t.Cleanup(func() {
		_ = r.Close()
	})
	return r
}

func TestRegionRoundTrip(t *testing.T) {
	r := newTestRegion(t, 64)

	want := []byte{0xde, 0xad, 0xbe, 0xef, 0x90}
	if err := r.Write(want); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	got, err := r.Bytes()
	if err != nil {
		t.Fatalf("Bytes failed: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("Bytes=%x, want %x", got, want)
	}
}

func TestRegionWriteAtOffset(t *testing.T) {
	r := newTestRegion(t, 64)

	if err := r.WriteAt(4, []byte{0xaa, 0xbb}); err != nil {
		t.Fatalf("WriteAt failed: %v", err)
	}
	if got, want := r.Len(), 6; got != want {
		t.Fatalf("Len=%d, want %d", got, want)
	}
}

func TestRegionWriteOutOfRange(t *testing.T) {
	r := newTestRegion(t, 1)

	big := make([]byte, r.Size()+1)
	err := r.Write(big)
	if !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("Write past end: err=%v, want ErrOutOfRange", err)
	}

	if err := r.WriteAt(-1, []byte{0x90}); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("WriteAt(-1): err=%v, want ErrOutOfRange", err)
	}

	var werr *WriteError
	if !errors.As(err, &werr) {
		t.Fatalf("err=%T, want *WriteError", err)
	}
}

func TestWriteXorExecute(t *testing.T) {
	r := newTestRegion(t, 64)

	if err := r.Write([]byte{0xc3}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := r.MakeExecutable(); err != nil {
		t.Fatalf("MakeExecutable failed: %v", err)
	}
	if !r.Executable() {
		t.Fatal("region not executable after MakeExecutable")
	}

	if err := r.Write([]byte{0x90}); !errors.Is(err, ErrNotWritable) {
		t.Fatalf("Write while executable: err=%v, want ErrNotWritable", err)
	}

	if err := r.MakeWritable(); err != nil {
		t.Fatalf("MakeWritable failed: %v", err)
	}
	if err := r.Write([]byte{0x90}); err != nil {
		t.Fatalf("Write after MakeWritable failed: %v", err)
	}
}

func TestCallWhileWritable(t *testing.T) {
	r := newTestRegion(t, 64)

	inv, err := r.Bind(Signature{Args: 0, ArgWidth: W64, RetWidth: W64})
	if err != nil {
		t.Fatalf("Bind failed: %v", err)
	}
	if _, err := inv.Call(); !errors.Is(err, ErrNotExecutable) {
		t.Fatalf("Call while writable: err=%v, want ErrNotExecutable", err)
	}
}

func TestTransitionBumpsGeneration(t *testing.T) {
	r := newTestRegion(t, 64)

	g0 := r.Generation()
	if err := r.MakeExecutable(); err != nil {
		t.Fatalf("MakeExecutable failed: %v", err)
	}
	if got := r.Generation(); got != g0+1 {
		t.Fatalf("Generation=%d, want %d", got, g0+1)
	}

	// Same-state transition is a no-op and must not invalidate bindings.
	if err := r.MakeExecutable(); err != nil {
		t.Fatalf("repeated MakeExecutable failed: %v", err)
	}
	if got := r.Generation(); got != g0+1 {
		t.Fatalf("Generation after no-op=%d, want %d", got, g0+1)
	}
}

func TestRegionDoubleClose(t *testing.T) {
	r, err := NewRegion(16)
	if err != nil {
		t.Fatalf("NewRegion failed: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("first Close failed: %v", err)
	}
	if err := r.Close(); !errors.Is(err, ErrRegionClosed) {
		t.Fatalf("second Close: err=%v, want ErrRegionClosed", err)
	}

	if err := r.Write([]byte{0x90}); !errors.Is(err, ErrRegionClosed) {
		t.Fatalf("Write after Close: err=%v, want ErrRegionClosed", err)
	}
	if _, err := r.Bytes(); !errors.Is(err, ErrRegionClosed) {
		t.Fatalf("Bytes after Close: err=%v, want ErrRegionClosed", err)
	}
	if err := r.MakeExecutable(); !errors.Is(err, ErrRegionClosed) {
		t.Fatalf("MakeExecutable after Close: err=%v, want ErrRegionClosed", err)
	}
}

func TestRegionSizeRounding(t *testing.T) {
	r := newTestRegion(t, 1)

	if r.Size() < 1 {
		t.Fatalf("Size=%d, want at least one page", r.Size())
	}
	if r.Size()%os.Getpagesize() != 0 {
		t.Fatalf("Size=%d is not page aligned", r.Size())
	}
}

func TestBindValidation(t *testing.T) {
	r := newTestRegion(t, 16)

	if _, err := r.Bind(Signature{Args: maxArgs + 1, ArgWidth: W64, RetWidth: W64}); !errors.Is(err, ErrTooManyArgs) {
		t.Fatalf("Bind with %d args: err=%v, want ErrTooManyArgs", maxArgs+1, err)
	}
	if _, err := r.Bind(Signature{Args: 1, ArgWidth: Width(9), RetWidth: W64}); !errors.Is(err, ErrBadWidth) {
		t.Fatalf("Bind with bad width: err=%v, want ErrBadWidth", err)
	}
}
