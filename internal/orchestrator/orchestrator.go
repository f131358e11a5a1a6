package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/roach88/tgsync/internal/hw"
	"github.com/roach88/tgsync/internal/observer"
	"github.com/roach88/tgsync/internal/synch"
	"github.com/roach88/tgsync/internal/tgaction"
	"github.com/roach88/tgsync/internal/timeline"
	"github.com/roach88/tgsync/internal/workerpool"
)

const (
	// DefaultPollInterval is the hardware state polling period.
	DefaultPollInterval = 200 * time.Millisecond

	// DefaultSoftPollInterval is the polling period while waiting for the
	// generator once the hardware is done.
	DefaultSoftPollInterval = 10 * time.Millisecond

	// DefaultGeneratorName names the orchestrator's generator.
	DefaultGeneratorName = "software-tg"
)

var (
	// ErrActionInProgress is returned by StartAction while a run is open.
	ErrActionInProgress = errors.New("synchronization action already in progress")

	// ErrNoAction is returned by ActionLoop without a successful StartAction.
	ErrNoAction = errors.New("no synchronization action started")
)

// Executor runs the generator's playback. *workerpool.Pool implements it.
type Executor interface {
	Submit(name string, task workerpool.Task) (*workerpool.Future, error)
}

// IDGenerator names runs in logs.
type IDGenerator interface {
	Generate() string
}

type uuidGenerator struct{}

func (uuidGenerator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithPollInterval sets the hardware polling period.
func WithPollInterval(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.poll = d
		}
	}
}

// WithSoftPollInterval sets the generator polling period.
func WithSoftPollInterval(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.softPoll = d
		}
	}
}

// WithGenerator replaces the default generator.
func WithGenerator(g *timeline.Generator) Option {
	return func(o *Orchestrator) {
		o.gen = g
	}
}

// WithIDGenerator sets how runs are named. Default: UUIDv7.
func WithIDGenerator(ids IDGenerator) Option {
	return func(o *Orchestrator) {
		o.ids = ids
	}
}

// Orchestrator is the top-level synchronization coordinator.
//
// It owns one long-lived generator, configured afresh for every run, and
// submits its playback to the injected executor.
//
// Thread-safety model:
//   - AddListener/RemoveListener, Progress, Stop: safe from any goroutine
//   - StartAction then ActionLoop: one run at a time; a second StartAction
//     fails with ErrActionInProgress until the first run's ActionLoop
//     returns
type Orchestrator struct {
	exec      Executor
	gen       *timeline.Generator
	ids       IDGenerator
	poll      time.Duration
	softPoll  time.Duration
	listeners observer.List[timeline.Listener]
	progress  *progressListener

	mu     sync.Mutex
	action *actionContext
}

// New creates an orchestrator whose playback runs on exec.
func New(exec Executor, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		exec:     exec,
		ids:      uuidGenerator{},
		poll:     DefaultPollInterval,
		softPoll: DefaultSoftPollInterval,
		progress: &progressListener{},
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.gen == nil {
		o.gen = timeline.NewGenerator(DefaultGeneratorName)
	}
	return o
}

// Generator returns the orchestrator's software generator.
func (o *Orchestrator) Generator() *timeline.Generator {
	return o.gen
}

// AddListener registers l for the generator events of every later run.
// A run only starts the generator when at least one listener (or a
// monitor) is present.
func (o *Orchestrator) AddListener(l timeline.Listener) {
	o.listeners.Add(l)
}

// RemoveListener unregisters l for later runs.
func (o *Orchestrator) RemoveListener(l timeline.Listener) {
	o.listeners.Remove(l)
}

// Progress returns the event counts of the current or last run.
func (o *Orchestrator) Progress() Progress {
	return o.progress.get()
}

// InProgress reports whether a run is open.
func (o *Orchestrator) InProgress() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.action != nil
}

// Stop aborts the current playback. ActionLoop returns
// timeline.ErrStopped once the hardware is done.
func (o *Orchestrator) Stop() {
	o.gen.Stop()
}

func (o *Orchestrator) begin() (*actionContext, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.action != nil {
		return nil, fmt.Errorf("%w: %s", ErrActionInProgress, o.action.id)
	}
	ac := newActionContext(o.ids.Generate(), nil)
	ac.release = func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		if o.action == ac {
			o.action = nil
		}
	}
	o.action = ac
	return ac, nil
}

func (o *Orchestrator) current() *actionContext {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.action
}

// StartAction programs and starts a run:
//
//  1. build the TG channels from cfg
//  2. synchronize every controller (PreSynchAll, PreSynchOne/SynchOne per
//     axis, SynchAll)
//  3. if listeners or a monitor are present, configure the generator,
//     attach them, start it and submit its playback
//  4. subscribe the generator to opts.Moveable
//  5. PreStartAll per controller, PreStartOne/StartOne per channel, mark
//     channels moving, StartAll per controller
//
// The description is expanded for the resolved domains before any hardware
// call, so configuration errors leave the controllers untouched. On error,
// or if a controller panics, every finish hook registered so far has run
// and the run is closed before StartAction returns. On success the run
// stays open until ActionLoop returns.
func (o *Orchestrator) StartAction(ctx context.Context, cfg Config, desc synch.Description, opts StartOptions) (err error) {
	if err := desc.Validate(); err != nil {
		return err
	}
	chs, err := cfg.channels()
	if err != nil {
		return err
	}

	software := o.listeners.Len() > 0 || opts.Monitor != nil
	var active, passive synch.Domain
	var direction int
	if software {
		active, passive, direction, err = opts.resolve(desc)
		if err != nil {
			return err
		}
		if _, err := timeline.Expand(desc, active, passive, direction); err != nil {
			return err
		}
	}

	ac, err := o.begin()
	if err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			if cerr := ac.close(ctx); cerr != nil {
				slog.Error("finish hooks failed after panic", "action", ac.id, "error", cerr)
			}
			panic(r)
		}
		if err != nil {
			err = multierr.Append(err, ac.close(ctx))
			slog.Error("synchronization start failed", "action", ac.id, "error", err)
		}
	}()
	ac.channels = chs

	slog.Info("synchronization starting",
		"action", ac.id,
		"channels", len(chs),
		"software", software,
		"cycles", desc.TotalRepeats(),
	)

	ctrls, axes := byController(chs)
	for _, ctrl := range ctrls {
		if err := tgaction.SynchronizeController(ctx, ctrl, axes[ctrl], desc); err != nil {
			return err
		}
	}

	if software {
		if err := o.startSoftware(ac, desc, active, passive, direction, opts.Monitor); err != nil {
			return err
		}
		if m := opts.Moveable; m != nil {
			m.AddPositionListener(o.gen)
			ac.onFinish("unsubscribe "+m.Name(), func(context.Context) error {
				m.RemovePositionListener(o.gen)
				return nil
			})
		}
	} else if opts.Moveable != nil {
		slog.Debug("moveable ignored without software listeners", "action", ac.id, "moveable", opts.Moveable.Name())
	}

	for _, ctrl := range ctrls {
		if err := tgaction.PreStart(ctx, ctrl); err != nil {
			return err
		}
	}
	for _, ch := range chs {
		if err := tgaction.StartAxis(ctx, ch.Controller, ch.Axis()); err != nil {
			return err
		}
	}
	ac.onFinish("release channels", func(context.Context) error {
		for _, ch := range chs {
			ch.Element.ClearOperation()
		}
		return nil
	})
	for _, ch := range chs {
		tgaction.MarkMoving(ch)
	}
	for _, ctrl := range ctrls {
		if err := tgaction.Launch(ctx, ctrl); err != nil {
			return err
		}
	}
	return nil
}

// startSoftware configures the generator, attaches the run's listeners and
// submits playback. Each attachment registers its own finish hook first.
func (o *Orchestrator) startSoftware(ac *actionContext, desc synch.Description, active, passive synch.Domain, direction int, monitor Monitor) error {
	if err := o.gen.SetConfiguration(desc, active, passive, direction); err != nil {
		return err
	}

	for _, l := range o.listeners.Snapshot() {
		o.attach(ac, "listener", l)
	}
	o.progress.reset()
	o.attach(ac, "progress", o.progress)
	if monitor != nil {
		o.attach(ac, "monitor", monitor)
		if f, ok := monitor.(Flusher); ok {
			ac.onFinish("flush monitor", f.Flush)
		}
	}

	if err := o.gen.Start(); err != nil {
		return err
	}
	ac.software = true
	ac.onFinish("stop playback", func(ctx context.Context) error {
		o.gen.Stop()
		if ac.playback == nil {
			return nil
		}
		err := ac.playback.Wait(ctx)
		if ac.playbackReported || errors.Is(err, timeline.ErrStopped) || errors.Is(err, timeline.ErrNotStarted) ||
			errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil
		}
		return err
	})

	fut, err := o.exec.Submit("playback "+o.gen.Name(), o.gen.Run)
	if err != nil {
		return fmt.Errorf("submit playback: %w", err)
	}
	ac.playback = fut

	slog.Debug("software synchronization started",
		"action", ac.id,
		"generator", o.gen.Name(),
		"active_domain", active,
		"passive_domain", passive,
		"direction", direction,
	)
	return nil
}

func (o *Orchestrator) attach(ac *actionContext, kind string, l timeline.Listener) {
	o.gen.AddListener(l)
	ac.onFinish("remove "+kind, func(context.Context) error {
		o.gen.RemoveListener(l)
		return nil
	})
}

// ActionLoop waits for the run started by StartAction to complete: it
// polls the hardware until no channel is moving, finalizes every channel,
// then waits for the generator to finish playback. The run's finish hooks
// run before ActionLoop returns, whatever the outcome.
func (o *Orchestrator) ActionLoop(ctx context.Context) (err error) {
	ac := o.current()
	if ac == nil {
		return ErrNoAction
	}
	defer func() {
		err = multierr.Append(err, ac.close(ctx))
		if err != nil {
			slog.Error("synchronization failed", "action", ac.id, "error", err)
			return
		}
		slog.Info("synchronization finished", "action", ac.id, "events", o.Progress().Active+o.Progress().Passive)
	}()

	if err := o.waitHardware(ctx, ac); err != nil {
		return err
	}
	if ac.software {
		return o.waitSoftware(ctx, ac)
	}
	return nil
}

func (o *Orchestrator) waitHardware(ctx context.Context, ac *actionContext) error {
	if len(ac.channels) == 0 {
		return nil
	}
	ticker := time.NewTicker(o.poll)
	defer ticker.Stop()

	for {
		states, err := tgaction.ReadStates(ctx, ac.channels)
		if err != nil {
			return err
		}
		if !tgaction.AnyMoving(states) {
			for i, ch := range ac.channels {
				tgaction.Finalize(ch, states[i])
			}
			slog.Debug("hardware synchronization finished", "action", ac.id)
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (o *Orchestrator) waitSoftware(ctx context.Context, ac *actionContext) error {
	ticker := time.NewTicker(o.softPoll)
	defer ticker.Stop()

	for o.gen.IsStarted() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}

	err := ac.playback.Wait(ctx)
	ac.playbackReported = true
	return err
}

// Run is StartAction followed by ActionLoop.
func (o *Orchestrator) Run(ctx context.Context, cfg Config, desc synch.Description, opts StartOptions) error {
	if err := o.StartAction(ctx, cfg, desc, opts); err != nil {
		return err
	}
	return o.ActionLoop(ctx)
}

// byController groups channel axes per controller in first-seen order.
func byController(chs []tgaction.Channel) ([]hw.Controller, map[hw.Controller][]int) {
	var order []hw.Controller
	axes := make(map[hw.Controller][]int)
	for _, ch := range chs {
		if _, ok := axes[ch.Controller]; !ok {
			order = append(order, ch.Controller)
		}
		axes[ch.Controller] = append(axes[ch.Controller], ch.Axis())
	}
	return order, axes
}
