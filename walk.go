package nexec

import (
	"github.com/tinyrange/nexec/internal/chain"
)

// -----------------------------------------------------------------------------
// Type Aliases - These re-export types from internal/chain
// -----------------------------------------------------------------------------

// ChainWalk is one lazy, finite traversal of the calling thread's
// fault-handler chain.
type ChainWalk = chain.Walk

// ChainRecord is a read-only view of one registered handler record.
type ChainRecord = chain.RecordView

// ChainHopCeiling is the hop bound applied to every walk. A chain that does
// not reach its sentinel within this many hops is reported as a suspected
// cycle instead of walked further.
const ChainHopCeiling = chain.DefaultHopCeiling

// WalkChain starts a walk of the calling thread's fault-handler chain. The
// thread anchor is re-read on every call, so each walk starts fresh. The walk
// never writes through chain pointers.
//
// On Windows this is the thread's SEH registration chain, read from the TEB.
// On unix it is the stack of active fault-barrier scopes on this thread;
// outside any barrier it is empty.
func WalkChain() *ChainWalk {
	return chain.Start()
}
