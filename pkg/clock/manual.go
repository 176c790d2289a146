package clock

import (
	"sync"
	"time"
)

// ManualClock is a deterministic Clock for tests and replay.
// Time only moves when Advance, Set or Step is called. A sequence of
// recorded deltas can be loaded and stepped through one at a time, which
// is how irregular sampler spacing is reproduced in tests.
type ManualClock struct {
	mu sync.RWMutex

	current MonoTime        // Current monotonic time
	wall    time.Time       // Wall time at current == 0
	deltas  []time.Duration // Pre-loaded deltas
	index   int             // Current position in deltas
}

// NewManualClock creates a ManualClock at MonoTime 0 whose wall time
// starts at the given instant.
func NewManualClock(wall time.Time) *ManualClock {
	return &ManualClock{wall: wall}
}

// Now returns the current monotonic time.
func (c *ManualClock) Now() MonoTime {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Since returns the duration elapsed since the given time.
func (c *ManualClock) Since(t MonoTime) time.Duration {
	return Delta(t, c.Now())
}

// Wall returns the wall time corresponding to the current monotonic time.
func (c *ManualClock) Wall() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.wall.Add(ToDuration(c.current))
}

// Advance moves the clock forward by d. Negative durations are ignored.
func (c *ManualClock) Advance(d time.Duration) {
	if d <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current += FromDuration(d)
}

// Set moves the clock to t. Moving backwards is ignored so Now stays
// non-decreasing.
func (c *ManualClock) Set(t MonoTime) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t > c.current {
		c.current = t
	}
}

// Load replaces the scripted deltas consumed by Step.
func (c *ManualClock) Load(deltas []time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.deltas = make([]time.Duration, len(deltas))
	copy(c.deltas, deltas)
	c.index = 0
}

// Step advances by the next loaded delta and returns it.
// Returns false when no deltas remain.
func (c *ManualClock) Step() (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.index >= len(c.deltas) {
		return 0, false
	}

	delta := c.deltas[c.index]
	c.index++
	if delta > 0 {
		c.current += FromDuration(delta)
	}
	return delta, true
}

// HasNext returns true if there are more deltas to step through.
func (c *ManualClock) HasNext() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.index < len(c.deltas)
}

// RemainingDeltas returns the number of deltas left to process.
func (c *ManualClock) RemainingDeltas() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.deltas) - c.index
}
