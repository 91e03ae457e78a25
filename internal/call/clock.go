package call

import "sync/atomic"

// Clock is the monotonic logical clock for invocation ordering.
//
// All invocations are stamped with a strictly increasing seq number from this
// clock. This ensures:
// - Deterministic cross-mock ordering (no wall-clock race conditions)
// - Merged ordered views are stable under repeated queries
// - Causal relationships between calls are explicit
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
// Parallel test contexts share one clock so their invocations interleave
// into a single total order.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a new clock starting at a specific sequence number.
// Used when resuming an archive session from its last known position.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and increments the clock.
// Calls are linearizable - each call returns a unique, increasing value.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
