package nexec

import (
	"time"
)

// DebugProbe is a timing-skew heuristic for debugger presence: it times a
// short fixed routine and flags runs that take far longer than they should,
// which happens under single-stepping or breakpoints. It is a hint, not
// proof; a loaded machine can trip it.
type DebugProbe struct {
	// Routine is the timed body. Nil selects a 10ms sleep.
	Routine func()
	// Threshold is the elapsed time above which the run is suspicious.
	// Zero selects 5s.
	Threshold time.Duration
}

// Suspected runs the routine once and reports whether it overran the
// threshold, along with the measured elapsed time.
func (p DebugProbe) Suspected() (bool, time.Duration) {
	routine := p.Routine
	if routine == nil {
		routine = func() { time.Sleep(10 * time.Millisecond) }
	}
	threshold := p.Threshold
	if threshold == 0 {
		threshold = 5 * time.Second
	}

	start := time.Now()
	routine()
	elapsed := time.Since(start)
	return elapsed > threshold, elapsed
}
