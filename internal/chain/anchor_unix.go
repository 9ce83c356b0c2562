//go:build darwin || linux

package chain

import (
	"unsafe"

	tls "github.com/huandu/go-tls"
)

// EndOfChain is the unix end-of-chain sentinel: a nil next pointer.
const EndOfChain uintptr = 0

// POSIX has no walkable per-thread handler chain, so on unix the chain is the
// facility's own stack of active fault-barrier scopes. Each scope is a real
// in-memory record with the Windows layout {next, handler}, and the anchor
// lives in goroutine-local storage. Barrier scopes lock their goroutine to an
// OS thread, so wherever the anchor is live, goroutine-local and thread-local
// coincide.

type record struct {
	next    uintptr
	handler uintptr
}

// chainHead also pins the pushed records so the GC keeps them alive while the
// raw anchor points at them.
type chainHead struct {
	anchor uintptr
	live   []*record
}

type anchorKey struct{}

func head() *chainHead {
	if d, ok := tls.Get(anchorKey{}); ok {
		if h, ok := d.Value().(*chainHead); ok {
			return h
		}
	}
	h := &chainHead{anchor: EndOfChain}
	tls.Set(anchorKey{}, tls.MakeData(h))
	return h
}

func threadAnchor() uintptr {
	return head().anchor
}

// PushHandler links a new record with the given handler reference at the head
// of the calling thread's chain. The returned pop must run on the same
// goroutine, in LIFO order with any nested pushes.
func PushHandler(handler uintptr) (pop func()) {
	h := head()
	rec := &record{next: h.anchor, handler: handler}
	h.live = append(h.live, rec)
	h.anchor = uintptr(unsafe.Pointer(rec))
	return func() {
		h.anchor = rec.next
		h.live = h.live[:len(h.live)-1]
	}
}
