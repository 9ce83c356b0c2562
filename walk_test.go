//go:build darwin || linux

package nexec

import (
	"testing"

	"github.com/tinyrange/nexec/internal/fault"
)

func TestWalkChainEmptyOutsideBarrier(t *testing.T) {
	views, cycle := WalkChain().Collect()
	if len(views) != 0 {
		t.Fatalf("walk outside barrier yielded %d records, want 0", len(views))
	}
	if cycle {
		t.Fatal("empty walk flagged a cycle")
	}
}

func TestWalkChainSeesBarrierScope(t *testing.T) {
	f := fault.Protect(func() {
		views, cycle := WalkChain().Collect()
		if cycle {
			t.Error("barrier walk flagged a cycle")
		}
		if len(views) != 1 {
			t.Fatalf("walk inside barrier yielded %d records, want 1", len(views))
		}
		if views[0].Handler != fault.Mark() {
			t.Errorf("Handler=%#x, want barrier mark %#x", views[0].Handler, fault.Mark())
		}
		if views[0].Hop != 0 {
			t.Errorf("Hop=%d, want 0", views[0].Hop)
		}

		// Nested scopes stack.
		inner := fault.Protect(func() {
			nested, _ := WalkChain().Collect()
			if len(nested) != 2 {
				t.Errorf("nested walk yielded %d records, want 2", len(nested))
			}
		})
		if inner != nil {
			t.Errorf("nested Protect reported fault: %v", inner)
		}
	})
	if f != nil {
		t.Fatalf("Protect reported fault: %v", f)
	}

	// Scope popped: the chain is empty again.
	views, _ := WalkChain().Collect()
	if len(views) != 0 {
		t.Fatalf("walk after barrier yielded %d records, want 0", len(views))
	}
}
