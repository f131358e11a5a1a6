package sim

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/roach88/tgsync/internal/hw"
	"github.com/roach88/tgsync/internal/observer"
)

// Moveable is a simulated motor that reports its position to listeners
// on every change.
type Moveable struct {
	name      string
	listeners observer.List[hw.PositionListener]

	mu       sync.Mutex
	position float64
}

var _ hw.Moveable = (*Moveable)(nil)

// NewMoveable creates a moveable resting at position.
func NewMoveable(name string, position float64) *Moveable {
	return &Moveable{name: name, position: position}
}

func (m *Moveable) Name() string { return m.name }

func (m *Moveable) AddPositionListener(l hw.PositionListener) {
	m.listeners.Add(l)
}

func (m *Moveable) RemovePositionListener(l hw.PositionListener) {
	m.listeners.Remove(l)
}

// Listeners returns the number of subscribed listeners.
func (m *Moveable) Listeners() int {
	return m.listeners.Len()
}

// Position returns the current position.
func (m *Moveable) Position() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position
}

// SetPosition moves instantly to p and notifies listeners.
func (m *Moveable) SetPosition(p float64) {
	m.mu.Lock()
	m.position = p
	m.mu.Unlock()

	m.listeners.Each(func(l hw.PositionListener) {
		l.PositionChanged(m.name, p)
	})
}

// Move steps from the current position to target by |step|, reporting
// every intermediate position and pausing interval between samples.
// Samples are computed from the start position to avoid accumulating
// floating point drift.
func (m *Moveable) Move(ctx context.Context, target, step float64, interval time.Duration) error {
	step = math.Abs(step)
	if step == 0 {
		m.SetPosition(target)
		return nil
	}

	from := m.Position()
	dir := 1.0
	if target < from {
		dir = -1
	}
	n := int(math.Round(math.Abs(target-from) / step))

	for k := 1; k <= n; k++ {
		if err := pause(ctx, interval); err != nil {
			return err
		}
		p := from + dir*float64(k)*step
		if k == n {
			p = target
		}
		m.SetPosition(p)
	}
	if n == 0 && from != target {
		m.SetPosition(target)
	}
	return nil
}

func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
