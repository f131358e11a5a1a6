package testutil

import (
	"sync"
	"time"
)

// FakeClock is a deterministic clock for playback tests.
//
// Sleep returns immediately after advancing the virtual time by exactly the
// requested duration, so Time-domain playback runs instantly with zero
// lateness. An optional per-sleep overshoot simulates scheduler delay.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type FakeClock struct {
	mu        sync.Mutex
	now       time.Time
	overshoot time.Duration
	sleeps    []time.Duration
}

// NewFakeClock creates a fake clock starting at start.
func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

// Now returns the virtual time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Sleep advances the virtual time by d plus the configured overshoot.
// Non-positive durations are recorded but do not move the clock.
func (c *FakeClock) Sleep(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	if d <= 0 {
		return
	}
	c.now = c.now.Add(d + c.overshoot)
}

// Advance moves the virtual time forward without recording a sleep.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// SetOvershoot makes every subsequent positive Sleep last d longer.
func (c *FakeClock) SetOvershoot(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.overshoot = d
}

// Sleeps returns the requested sleep durations in call order.
func (c *FakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]time.Duration, len(c.sleeps))
	copy(out, c.sleeps)
	return out
}
