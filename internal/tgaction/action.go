package tgaction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/tgsync/internal/hw"
	"github.com/roach88/tgsync/internal/synch"
)

// DefaultPollInterval is how often ActionLoop reads the channel state.
const DefaultPollInterval = 10 * time.Millisecond

// ErrInvalidTransition is returned when an Action method is called in the
// wrong phase.
var ErrInvalidTransition = errors.New("invalid action transition")

// Phase is the lifecycle position of an Action.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSynchronized
	PhaseGenerating
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "Idle"
	case PhaseSynchronized:
		return "Synchronized"
	case PhaseGenerating:
		return "Generating"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// ActionOption configures an Action.
type ActionOption func(*Action)

// WithPollInterval sets the ActionLoop polling period.
func WithPollInterval(d time.Duration) ActionOption {
	return func(a *Action) {
		if d > 0 {
			a.poll = d
		}
	}
}

// Action runs a single hardware trigger/gate channel:
// Idle -> Synchronized -> Generating -> Idle. Failures are not retried.
type Action struct {
	ch   Channel
	poll time.Duration

	mu    sync.Mutex
	phase Phase
}

// NewAction creates an idle action for ch.
func NewAction(ch Channel, opts ...ActionOption) *Action {
	a := &Action{ch: ch, poll: DefaultPollInterval}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Channel returns the channel driven by a.
func (a *Action) Channel() Channel {
	return a.ch
}

// Phase returns the current phase.
func (a *Action) Phase() Phase {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.phase
}

func (a *Action) transition(from, to Phase) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.phase != from {
		return fmt.Errorf("%w: %s -> %s (channel %s is %s)", ErrInvalidTransition, from, to, a.ch, a.phase)
	}
	a.phase = to
	return nil
}

func (a *Action) setPhase(p Phase) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.phase = p
}

// StartAction programs the channel with desc.
func (a *Action) StartAction(ctx context.Context, desc synch.Description) error {
	if err := a.expect(PhaseIdle); err != nil {
		return err
	}
	if err := SynchronizeController(ctx, a.ch.Controller, []int{a.ch.Axis()}, desc); err != nil {
		return err
	}
	return a.transition(PhaseIdle, PhaseSynchronized)
}

// Start arms and starts the programmed channel.
func (a *Action) Start(ctx context.Context) error {
	if err := a.expect(PhaseSynchronized); err != nil {
		return err
	}
	if err := StartController(ctx, a.ch.Controller, []Channel{a.ch}); err != nil {
		return err
	}

	slog.Info("trigger/gate channel generating", "channel", a.ch.String())
	return a.transition(PhaseSynchronized, PhaseGenerating)
}

// ActionLoop polls the channel until it stops generating, then finalizes
// the element and returns its final state. A per-axis read failure is
// just the reported state; a controller failure aborts the loop.
func (a *Action) ActionLoop(ctx context.Context) (hw.StateInfo, error) {
	if err := a.expect(PhaseGenerating); err != nil {
		return hw.StateInfo{}, err
	}
	defer a.setPhase(PhaseIdle)

	ticker := time.NewTicker(a.poll)
	defer ticker.Stop()

	chs := []Channel{a.ch}
	for {
		states, err := ReadStates(ctx, chs)
		if err != nil {
			a.ch.Element.ClearOperation()
			return hw.StateInfo{}, err
		}
		if !AnyMoving(states) {
			Finalize(a.ch, states[0])
			slog.Info("trigger/gate channel finished", "channel", a.ch.String(), "state", states[0].State)
			return states[0], nil
		}

		select {
		case <-ctx.Done():
			a.ch.Element.ClearOperation()
			return hw.StateInfo{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Run programs, starts and waits for the channel.
func (a *Action) Run(ctx context.Context, desc synch.Description) (hw.StateInfo, error) {
	if err := a.StartAction(ctx, desc); err != nil {
		return hw.StateInfo{}, err
	}
	if err := a.Start(ctx); err != nil {
		a.setPhase(PhaseIdle)
		return hw.StateInfo{}, err
	}
	return a.ActionLoop(ctx)
}

func (a *Action) expect(p Phase) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.phase != p {
		return fmt.Errorf("%w: channel %s is %s, want %s", ErrInvalidTransition, a.ch, a.phase, p)
	}
	return nil
}
