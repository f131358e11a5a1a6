package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/tgsync/internal/hw"
	"github.com/roach88/tgsync/internal/hw/sim"
	"github.com/roach88/tgsync/internal/orchestrator"
	"github.com/roach88/tgsync/internal/store"
	"github.com/roach88/tgsync/internal/synch"
	"github.com/roach88/tgsync/internal/testutil"
	"github.com/roach88/tgsync/internal/timeline"
	"github.com/roach88/tgsync/internal/workerpool"
)

// Epoch is the fake clock's starting time.
var Epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// GeneratorName names the scenario's software generator.
const GeneratorName = "software-tg"

// listener is a named software listener that counts its events.
type listener struct {
	name  string
	count int
}

func (l *listener) EventReceived(timeline.Source, timeline.Event) {
	l.count++
}

// rig is the simulated hardware of one scenario.
type rig struct {
	order       []string
	controllers map[string]*sim.Controller
	elements    []*hw.BaseElement
	config      orchestrator.Config
}

func buildRig(s *Scenario) (*rig, error) {
	r := &rig{controllers: make(map[string]*sim.Controller)}
	for _, cs := range s.Controllers {
		opts := []sim.ControllerOption{sim.WithMovingReads(cs.MovingReads)}
		for _, axis := range cs.RejectSynch {
			opts = append(opts, sim.RejectSynch(axis))
		}
		for _, axis := range cs.RejectStart {
			opts = append(opts, sim.RejectStart(axis))
		}
		for call, msg := range cs.Fail {
			opts = append(opts, sim.FailCall(call, errors.New(msg)))
		}
		ctrl := sim.NewController(cs.Name, opts...)
		r.order = append(r.order, cs.Name)
		r.controllers[cs.Name] = ctrl

		cc := orchestrator.ControllerConfig{Controller: ctrl}
		if cs.StartOnly {
			cc.Controller = ctrl.StartOnly()
		}
		for _, ch := range cs.Channels {
			typ, err := hw.ParseSynchType(ch.Type)
			if err != nil {
				return nil, err
			}
			el := hw.NewElement(ch.Element, ch.Axis)
			r.elements = append(r.elements, el)
			cc.Channels = append(cc.Channels, orchestrator.ChannelConfig{Element: el, Type: typ})
		}
		r.config.Controllers = append(r.config.Controllers, cc)
	}
	return r, nil
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
//  1. Build simulated controllers, elements, listeners and moveable
//  2. Record a run in the store; attach a Recorder when software
//     playback is involved
//  3. StartAction, sweep the moveable, ActionLoop
//  4. Collect calls, stored events and final states
//  5. Check the expected error and evaluate assertions
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	r, err := buildRig(scenario)
	if err != nil {
		return nil, err
	}

	active, _ := synch.ParseDomain(scenario.ActiveDomain)
	passive, _ := synch.ParseDomain(scenario.PassiveDomain)

	clock := testutil.NewFakeClock(Epoch)
	ids := testutil.NewSequenceIDs("run")
	gen := timeline.NewGenerator(GeneratorName, timeline.WithClock(clock))

	pool := workerpool.New(ctx, workerpool.WithLimit(1))
	defer pool.Shutdown()

	orch := orchestrator.New(pool,
		orchestrator.WithGenerator(gen),
		orchestrator.WithPollInterval(time.Millisecond),
		orchestrator.WithSoftPollInterval(time.Millisecond),
		orchestrator.WithIDGenerator(testutil.NewSequenceIDs("action")),
	)

	listeners := make([]*listener, 0, len(scenario.Listeners))
	for _, name := range scenario.Listeners {
		l := &listener{name: name}
		listeners = append(listeners, l)
		orch.AddListener(l)
	}

	var mov *sim.Moveable
	opts := orchestrator.StartOptions{
		ActiveDomain:  active,
		PassiveDomain: passive,
		Direction:     scenario.Direction,
	}
	if m := scenario.Moveable; m != nil {
		mov = sim.NewMoveable(m.Name, m.Start)
		opts.Moveable = mov
	}

	runID := ids.Generate()
	if err := st.CreateRun(ctx, store.Run{
		ID:            runID,
		Generator:     GeneratorName,
		ActiveDomain:  active,
		PassiveDomain: passive,
		Direction:     scenario.Direction,
		Cycles:        scenario.Synchronization.TotalRepeats(),
		Description:   scenario.Synchronization,
		StartedAt:     clock.Now(),
	}); err != nil {
		return nil, err
	}
	if len(listeners) > 0 || mov != nil {
		opts.Monitor = st.NewRecorder(runID)
	}

	runErr := execute(ctx, orch, r.config, scenario, mov, opts)

	outcome := store.OutcomeOf(runErr)
	if err := st.FinishRun(ctx, runID, outcome, runErr, clock.Now()); err != nil {
		return nil, err
	}

	slog.Debug("scenario executed", "scenario", scenario.Name, "run", runID, "outcome", outcome)

	result := NewResult()
	result.RunID = runID
	result.Outcome = outcome
	result.Err = runErr
	for _, name := range r.order {
		for _, call := range r.controllers[name].Calls() {
			result.Calls = append(result.Calls, CallTrace{Controller: name, Call: call.String()})
		}
	}
	for _, el := range r.elements {
		result.States[el.Name()] = el.StateInfo().State.String()
	}
	for _, l := range listeners {
		result.Listeners[l.name] = l.count
	}

	events, err := st.ReadEvents(ctx, runID)
	if err != nil {
		return nil, err
	}
	for _, ev := range events {
		result.Events = append(result.Events, EventTrace{
			Seq:        ev.Seq,
			Type:       ev.Type.String(),
			Index:      ev.Index,
			Domain:     ev.Domain.String(),
			Coordinate: formatCoordinate(ev.Coordinate),
		})
	}

	if msg := checkExpectedError(scenario.ExpectError, runErr); msg != "" {
		result.AddError(msg)
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// execute runs StartAction, sweeps the moveable concurrently with playback
// and waits in ActionLoop.
func execute(ctx context.Context, orch *orchestrator.Orchestrator, cfg orchestrator.Config, s *Scenario, mov *sim.Moveable, opts orchestrator.StartOptions) error {
	if err := orch.StartAction(ctx, cfg, s.Synchronization, opts); err != nil {
		return err
	}

	moved := make(chan error, 1)
	if mov != nil {
		go func() { moved <- mov.Move(ctx, s.Moveable.Target, s.Moveable.Step, 0) }()
	} else {
		moved <- nil
	}

	loopErr := orch.ActionLoop(ctx)
	if err := <-moved; err != nil && loopErr == nil {
		return fmt.Errorf("moveable: %w", err)
	}
	return loopErr
}

func checkExpectedError(want string, err error) string {
	if want == "" {
		if err != nil {
			return fmt.Sprintf("unexpected error: %v", err)
		}
		return ""
	}
	if err == nil {
		return fmt.Sprintf("expected %s error, run succeeded", want)
	}

	var ok bool
	switch want {
	case ErrorConfiguration:
		ok = synch.IsConfigurationError(err)
	case ErrorProgramming:
		ok = synch.IsProgrammingError(err)
	case ErrorHardwareFault:
		ok = synch.IsHardwareFault(err)
	}
	if !ok {
		return fmt.Sprintf("expected %s error, got: %v", want, err)
	}
	return ""
}
