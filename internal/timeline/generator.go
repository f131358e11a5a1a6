package timeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/tgsync/internal/observer"
	"github.com/roach88/tgsync/internal/synch"
)

var (
	// ErrNotConfigured is returned by Start before any SetConfiguration.
	ErrNotConfigured = errors.New("generator not configured")

	// ErrNotStarted is returned by Run when the generator is not armed.
	ErrNotStarted = errors.New("generator not started")

	// ErrAlreadyRunning is returned by a second concurrent Run.
	ErrAlreadyRunning = errors.New("generator already running")

	// ErrBusy is returned by SetConfiguration during playback.
	ErrBusy = errors.New("generator busy: playback in progress")

	// ErrStopped is returned by Run after Stop.
	ErrStopped = errors.New("generator stopped")
)

const (
	// DefaultStopCheck bounds how long a Time-domain wait goes without
	// checking for Stop or context cancellation.
	DefaultStopCheck = 50 * time.Millisecond

	// DefaultLatenessWarning is the lateness above which an event is logged
	// as a timing violation.
	DefaultLatenessWarning = 5 * time.Millisecond

	// PositionTolerance absorbs the rounding of expanded coordinates
	// (start + k*total) when comparing them with position samples.
	PositionTolerance = 1e-9
)

// Option configures a Generator.
type Option func(*Generator)

// WithClock sets the clock used for Time-domain playback.
func WithClock(c Clock) Option {
	return func(g *Generator) {
		g.clock = c
	}
}

// WithMetrics attaches Prometheus metrics.
func WithMetrics(m *Metrics) Option {
	return func(g *Generator) {
		g.metrics = m
	}
}

// WithStopCheck sets the longest uninterrupted Time-domain sleep.
func WithStopCheck(d time.Duration) Option {
	return func(g *Generator) {
		if d > 0 {
			g.stopCheck = d
		}
	}
}

// WithLatenessWarning sets the lateness above which a Warn is logged.
func WithLatenessWarning(d time.Duration) Option {
	return func(g *Generator) {
		g.lateWarn = d
	}
}

// Generator is the software trigger/gate source.
//
// Thread-safety model:
//   - SetConfiguration, Start, Stop, Reset, IsStarted: safe from any goroutine
//   - Run: one goroutine at a time (a second concurrent Run fails)
//   - AddListener/RemoveListener: safe concurrently with playback
//   - PositionChanged: safe from any goroutine (typically the moveable's)
type Generator struct {
	name      string
	clock     Clock
	metrics   *Metrics
	stopCheck time.Duration
	lateWarn  time.Duration
	listeners observer.List[Listener]

	mu       sync.Mutex
	timeline *Timeline // replaced only by SetConfiguration, never mutated
	started  bool
	running  bool
	stop     chan struct{}
	stopped  bool
	stats    Stats

	posMu     sync.Mutex
	position  float64
	hasPos    bool
	posSignal chan struct{} // buffered, size 1; coalesces samples
}

// NewGenerator creates an unconfigured generator.
func NewGenerator(name string, opts ...Option) *Generator {
	g := &Generator{
		name:      name,
		clock:     RealClock{SpinWindow: DefaultSpinWindow},
		stopCheck: DefaultStopCheck,
		lateWarn:  DefaultLatenessWarning,
		posSignal: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Name returns the generator name. Generator is the Source of its events.
func (g *Generator) Name() string {
	return g.name
}

// SetConfiguration validates and expands desc. On error the previous
// configuration is kept. A successful call disarms the generator; Start
// must be called again.
func (g *Generator) SetConfiguration(desc synch.Description, active, passive synch.Domain, direction int) error {
	tl, err := Expand(desc, active, passive, direction)
	if err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.running {
		return ErrBusy
	}
	g.timeline = tl
	g.started = false

	slog.Debug("generator configured",
		"generator", g.name,
		"cycles", tl.Len(),
		"active_domain", active,
		"passive_domain", passive,
		"direction", direction,
	)
	return nil
}

// Timeline returns the current expansion, or nil. Callers must not modify it.
func (g *Generator) Timeline() *Timeline {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.timeline
}

// ActiveEvents returns a copy of the Active coordinates.
func (g *Generator) ActiveEvents() []float64 {
	tl := g.Timeline()
	if tl == nil {
		return nil
	}
	return append([]float64(nil), tl.Active...)
}

// PassiveEvents returns a copy of the Passive coordinates.
func (g *Generator) PassiveEvents() []float64 {
	tl := g.Timeline()
	if tl == nil {
		return nil
	}
	return append([]float64(nil), tl.Passive...)
}

// Start arms the generator. It is a no-op if already armed or running.
func (g *Generator) Start() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.started {
		return nil
	}
	if g.timeline == nil {
		return ErrNotConfigured
	}
	g.started = true
	g.stop = make(chan struct{})
	g.stopped = false

	// Samples from before arming are stale.
	g.posMu.Lock()
	g.hasPos = false
	g.posMu.Unlock()
	return nil
}

// IsStarted reports whether the generator is armed or playing back.
// It becomes false once Run returns.
func (g *Generator) IsStarted() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.started
}

// Running reports whether Run is currently playing back.
func (g *Generator) Running() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.running
}

// Stop cancels an armed or running playback. Run returns ErrStopped.
func (g *Generator) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.stop == nil || g.stopped {
		return
	}
	g.stopped = true
	close(g.stop)
	if !g.running {
		g.started = false
	}
}

// Reset returns an idle generator to not-started. A running playback is
// stopped instead.
func (g *Generator) Reset() {
	g.mu.Lock()
	running := g.running
	if !running {
		g.started = false
	}
	g.mu.Unlock()

	if running {
		g.Stop()
	}
}

// Stats returns lateness statistics of the current or last playback.
func (g *Generator) Stats() Stats {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stats
}

// AddListener registers l. Listeners are notified in registration order.
func (g *Generator) AddListener(l Listener) {
	g.listeners.Add(l)
}

// RemoveListener detaches l.
func (g *Generator) RemoveListener(l Listener) {
	g.listeners.Remove(l)
}

// Listeners returns the number of registered listeners.
func (g *Generator) Listeners() int {
	return g.listeners.Len()
}

// PositionChanged delivers a position sample. It is the only way a
// Position-domain playback advances.
func (g *Generator) PositionChanged(src string, position float64) {
	g.posMu.Lock()
	g.position = position
	g.hasPos = true
	g.posMu.Unlock()

	select {
	case g.posSignal <- struct{}{}:
	default:
	}
}

func (g *Generator) currentPosition() (float64, bool) {
	g.posMu.Lock()
	defer g.posMu.Unlock()
	return g.position, g.hasPos
}

// Run plays the configured timeline back and blocks until every event has
// fired, Stop is called, or ctx is done.
//
// Must follow Start. The generator reports not started once Run returns.
func (g *Generator) Run(ctx context.Context) error {
	g.mu.Lock()
	if !g.started {
		g.mu.Unlock()
		return ErrNotStarted
	}
	if g.running {
		g.mu.Unlock()
		return ErrAlreadyRunning
	}
	g.running = true
	g.stats = Stats{}
	p := &playback{
		g:      g,
		ctx:    ctx,
		tl:     g.timeline,
		stop:   g.stop,
		origin: g.clock.Now(),
	}
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		g.running = false
		g.started = false
		g.mu.Unlock()
	}()

	slog.Info("playback starting",
		"generator", g.name,
		"cycles", p.tl.Len(),
		"active_domain", p.tl.ActiveDomain,
		"passive_domain", p.tl.PassiveDomain,
	)

	if err := p.play(); err != nil {
		outcome := "cancelled"
		if errors.Is(err, ErrStopped) {
			outcome = "stopped"
		}
		g.metrics.observeRun(g.name, outcome)
		slog.Info("playback interrupted", "generator", g.name, "outcome", outcome, "fired", g.Stats().Fired)
		return err
	}

	g.metrics.observeRun(g.name, "completed")
	stats := g.Stats()
	slog.Info("playback finished",
		"generator", g.name,
		"fired", stats.Fired,
		"mean_lateness", stats.MeanLateness,
		"max_lateness", stats.MaxLateness,
	)
	return nil
}

// playback holds the per-Run state. Only the Run goroutine touches it.
type playback struct {
	g        *Generator
	ctx      context.Context
	tl       *Timeline
	stop     <-chan struct{}
	origin   time.Time
	activeAt time.Time // when the current cycle's Active event fired
}

func (p *playback) play() error {
	for i := 0; i < p.tl.Len(); i++ {
		deadline, err := p.waitActive(i)
		if err != nil {
			return err
		}
		p.activeAt = p.fire(synch.Active, i, deadline)

		deadline, err = p.waitPassive(i)
		if err != nil {
			return err
		}
		p.fire(synch.Passive, i, deadline)
	}
	return nil
}

// waitActive blocks until Active[i] is due. The returned deadline is zero
// for Position-domain events.
func (p *playback) waitActive(i int) (time.Time, error) {
	if p.tl.ActiveDomain == synch.DomainTime {
		deadline := p.origin.Add(seconds(p.tl.Active[i]))
		return deadline, p.waitUntil(deadline)
	}
	return time.Time{}, p.waitPosition(p.tl.Active[i])
}

func (p *playback) waitPassive(i int) (time.Time, error) {
	switch {
	case p.tl.PassiveDomain == synch.DomainPosition:
		return time.Time{}, p.waitPosition(p.tl.Passive[i])
	case p.tl.ActiveDomain == synch.DomainTime:
		deadline := p.origin.Add(seconds(p.tl.Passive[i]))
		return deadline, p.waitUntil(deadline)
	default:
		// Position-driven cycle with a timed Active period: the passive
		// edge follows the actual Active edge.
		deadline := p.activeAt.Add(seconds(p.tl.PassiveOffset(i)))
		return deadline, p.waitUntil(deadline)
	}
}

func (p *playback) waitUntil(deadline time.Time) error {
	for {
		if err := p.interrupted(); err != nil {
			return err
		}
		remaining := deadline.Sub(p.g.clock.Now())
		if remaining <= 0 {
			return nil
		}
		if remaining > p.g.stopCheck {
			remaining = p.g.stopCheck
		}
		p.g.clock.Sleep(remaining)
	}
}

func (p *playback) waitPosition(target float64) error {
	for {
		if pos, ok := p.g.currentPosition(); ok {
			if reached(pos, target, p.tl.Direction) {
				return nil
			}
			slog.Debug("position sample not yet actionable",
				"generator", p.g.name,
				"position", pos,
				"next_event", target,
			)
		}

		select {
		case <-p.ctx.Done():
			return p.ctx.Err()
		case <-p.stop:
			return ErrStopped
		case <-p.g.posSignal:
		}
	}
}

func (p *playback) interrupted() error {
	select {
	case <-p.ctx.Done():
		return p.ctx.Err()
	case <-p.stop:
		return ErrStopped
	default:
		return nil
	}
}

// fire notifies every listener registered at this moment and returns the
// notification time.
func (p *playback) fire(typ synch.EventType, i int, deadline time.Time) time.Time {
	now := p.g.clock.Now()
	ev := Event{
		Type:       typ,
		Index:      i,
		Coordinate: p.tl.Coordinate(typ, i),
		FiredAt:    now,
		Elapsed:    now.Sub(p.origin),
	}
	if !deadline.IsZero() {
		ev.Lateness = now.Sub(deadline)
	}

	p.g.mu.Lock()
	p.g.stats.observe(ev)
	p.g.mu.Unlock()
	p.g.metrics.observeEvent(p.g.name, ev)

	if ev.Lateness > p.g.lateWarn {
		slog.Warn("timing violation",
			"generator", p.g.name,
			"type", typ,
			"index", i,
			"lateness", ev.Lateness,
		)
	}

	p.g.listeners.Each(func(l Listener) {
		l.EventReceived(p.g, ev)
	})
	return now
}

// reached compares a sample against the next event coordinate.
// Equality, within PositionTolerance, counts as crossing in both
// directions.
func reached(pos, target float64, direction int) bool {
	if direction < 0 {
		return pos <= target+PositionTolerance
	}
	return pos >= target-PositionTolerance
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
