package timeline

import (
	"runtime"
	"time"
)

// DefaultSpinWindow is how long before a deadline the real clock stops
// sleeping and starts spinning.
const DefaultSpinWindow = time.Millisecond

// Clock is the time source used by playback.
//
// Sleep must never return before d has elapsed on the clock's own Now.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

// RealClock reads the wall clock (monotonic reading) and sleeps with an
// optional spin window.
type RealClock struct {
	// SpinWindow is the busy-wait tail of each Sleep. Zero disables spinning.
	SpinWindow time.Duration
}

// Now returns time.Now().
func (RealClock) Now() time.Time { return time.Now() }

// Sleep blocks for at least d.
func (c RealClock) Sleep(d time.Duration) {
	sleepPrecise(d, c.SpinWindow)
}

// Sleep blocks the calling goroutine for at least d using the default spin
// window. It may return later under scheduler pressure, never earlier.
func Sleep(d time.Duration) {
	sleepPrecise(d, DefaultSpinWindow)
}

func sleepPrecise(d, spin time.Duration) {
	if d <= 0 {
		return
	}
	deadline := time.Now().Add(d)

	if coarse := d - spin; coarse > 0 {
		time.Sleep(coarse)
	}
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return
		}
		if remaining > spin {
			time.Sleep(remaining - spin)
			continue
		}
		runtime.Gosched()
	}
}
