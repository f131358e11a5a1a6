package sim

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/roach88/tgsync/internal/hw"
	"github.com/roach88/tgsync/internal/synch"
	"github.com/roach88/tgsync/internal/timeline"
)

// AllAxes is the Axis of a controller-wide Call.
const AllAxes = -1

// Call is one recorded controller call.
type Call struct {
	Name string
	Axis int
}

func (c Call) String() string {
	if c.Axis == AllAxes {
		return c.Name
	}
	return fmt.Sprintf("%s(%d)", c.Name, c.Axis)
}

// ControllerOption configures a simulated Controller.
type ControllerOption func(*Controller)

// WithNow sets the time source used to decide when generation ends.
func WithNow(now func() time.Time) ControllerOption {
	return func(c *Controller) {
		c.now = now
	}
}

// WithMovingReads makes every started axis report Moving for exactly n
// reads, regardless of its programmed duration.
func WithMovingReads(n int) ControllerOption {
	return func(c *Controller) {
		c.movingReads = n
	}
}

// RejectSynch makes PreSynchOne return false for axis.
func RejectSynch(axis int) ControllerOption {
	return func(c *Controller) {
		c.rejectSynch[axis] = true
	}
}

// RejectStart makes PreStartOne return false for axis.
func RejectStart(axis int) ControllerOption {
	return func(c *Controller) {
		c.rejectStart[axis] = true
	}
}

// FailCall makes the named call ("SynchAll", "ReadStateInfo", ...)
// return err.
func FailCall(name string, err error) ControllerOption {
	return func(c *Controller) {
		c.failCalls[name] = err
	}
}

// FailRead makes reads of axis report StateFault with err as status.
func FailRead(axis int, err error) ControllerOption {
	return func(c *Controller) {
		c.failReads[axis] = err
	}
}

type simAxis struct {
	desc      synch.Description
	duration  time.Duration
	started   bool
	startedAt time.Time
	reads     int
}

// Controller is a simulated trigger/gate controller.
//
// Programmed axes generate for the Time-domain length of their
// description once started; axes whose description has no Time values
// finish on the first read unless WithMovingReads is set.
type Controller struct {
	name        string
	now         func() time.Time
	movingReads int
	rejectSynch map[int]bool
	rejectStart map[int]bool
	failCalls   map[string]error
	failReads   map[int]error

	mu    sync.Mutex
	calls []Call
	axes  map[int]*simAxis
}

var _ hw.TriggerGateController = (*Controller)(nil)

// NewController creates a simulated controller.
func NewController(name string, opts ...ControllerOption) *Controller {
	c := &Controller{
		name:        name,
		now:         time.Now,
		rejectSynch: make(map[int]bool),
		rejectStart: make(map[int]bool),
		failCalls:   make(map[string]error),
		failReads:   make(map[int]error),
		axes:        make(map[int]*simAxis),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) Name() string { return c.name }

// StartOnly returns a view of c without the Synchronizer capability, as an
// acquisition controller that can be started but not programmed.
func (c *Controller) StartOnly() hw.Controller {
	return startOnly{c}
}

type startOnly struct{ hw.Controller }

// Calls returns every recorded call except state reads, in order.
func (c *Controller) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Call(nil), c.calls...)
}

// Called reports whether a call with name was recorded for any axis.
func (c *Controller) Called(name string) bool {
	for _, call := range c.Calls() {
		if call.Name == name {
			return true
		}
	}
	return false
}

// Programmed returns the description loaded on axis, if any.
func (c *Controller) Programmed(axis int) (synch.Description, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, ok := c.axes[axis]
	if !ok || a.desc == nil {
		return nil, false
	}
	return a.desc.Clone(), true
}

// record logs the call and returns the configured failure for it.
func (c *Controller) record(ctx context.Context, name string, axis int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, Call{Name: name, Axis: axis})
	return c.failCalls[name]
}

func (c *Controller) axis(n int) *simAxis {
	a, ok := c.axes[n]
	if !ok {
		a = &simAxis{}
		c.axes[n] = a
	}
	return a
}

func (c *Controller) PreSynchAll(ctx context.Context) error {
	return c.record(ctx, "PreSynchAll", AllAxes)
}

func (c *Controller) PreSynchOne(ctx context.Context, axis int, desc synch.Description) (bool, error) {
	if err := c.record(ctx, "PreSynchOne", axis); err != nil {
		return false, err
	}
	if c.rejectSynch[axis] {
		return false, nil
	}
	return desc.Validate() == nil, nil
}

func (c *Controller) SynchOne(ctx context.Context, axis int, desc synch.Description) error {
	if err := c.record(ctx, "SynchOne", axis); err != nil {
		return err
	}
	duration := generationTime(desc)

	c.mu.Lock()
	defer c.mu.Unlock()
	a := c.axis(axis)
	a.desc = desc.Clone()
	a.duration = duration
	return nil
}

func (c *Controller) SynchAll(ctx context.Context) error {
	return c.record(ctx, "SynchAll", AllAxes)
}

func (c *Controller) PreStartAll(ctx context.Context) error {
	return c.record(ctx, "PreStartAll", AllAxes)
}

func (c *Controller) PreStartOne(ctx context.Context, axis int) (bool, error) {
	if err := c.record(ctx, "PreStartOne", axis); err != nil {
		return false, err
	}
	return !c.rejectStart[axis], nil
}

func (c *Controller) StartOne(ctx context.Context, axis int) error {
	if err := c.record(ctx, "StartOne", axis); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	a := c.axis(axis)
	a.started = true
	a.startedAt = c.now()
	a.reads = 0
	return nil
}

func (c *Controller) StartAll(ctx context.Context) error {
	return c.record(ctx, "StartAll", AllAxes)
}

// ReadStateInfo reports Moving for a started axis until its generation
// ends, then On. Unknown axes report On.
func (c *Controller) ReadStateInfo(ctx context.Context, axes []int) (map[int]hw.StateInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := c.failCalls["ReadStateInfo"]; err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	out := make(map[int]hw.StateInfo, len(axes))
	for _, n := range axes {
		if err := c.failReads[n]; err != nil {
			out[n] = hw.StateInfo{State: hw.StateFault, Status: err.Error()}
			continue
		}
		a, ok := c.axes[n]
		if !ok || !a.started {
			out[n] = hw.StateInfo{State: hw.StateOn, Status: "idle"}
			continue
		}
		a.reads++
		if c.generating(a, now) {
			out[n] = hw.StateInfo{State: hw.StateMoving, Status: "generating"}
			continue
		}
		a.started = false
		out[n] = hw.StateInfo{State: hw.StateOn, Status: "generation finished"}
	}
	return out, nil
}

func (c *Controller) generating(a *simAxis, now time.Time) bool {
	if c.movingReads > 0 {
		return a.reads <= c.movingReads
	}
	return now.Sub(a.startedAt) < a.duration
}

// ProgrammedAxes returns the axes that received SynchOne, sorted.
func (c *Controller) ProgrammedAxes() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]int, 0, len(c.axes))
	for n, a := range c.axes {
		if a.desc != nil {
			out = append(out, n)
		}
	}
	sort.Ints(out)
	return out
}

// generationTime is the Time-domain end of the last passive edge.
func generationTime(desc synch.Description) time.Duration {
	tl, err := timeline.Expand(desc, synch.DomainTime, synch.DomainTime, 1)
	if err != nil {
		slog.Debug("simulated generation has no time extent", "error", err)
		return 0
	}
	if tl.Len() == 0 {
		return 0
	}
	return time.Duration(tl.Passive[tl.Len()-1] * float64(time.Second))
}
