package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"go.uber.org/multierr"

	"github.com/roach88/tgsync/internal/tgaction"
	"github.com/roach88/tgsync/internal/workerpool"
)

// finishHook undoes one step of StartAction.
type finishHook struct {
	name string
	fn   func(ctx context.Context) error
}

// actionContext is the scope of one run.
//
// INVARIANTS:
//   - hooks run in reverse registration order, exactly once
//   - release runs after the last hook, even if a hook fails
type actionContext struct {
	id       string
	channels []tgaction.Channel
	software bool
	playback *workerpool.Future

	// playbackReported is set once ActionLoop has returned the playback
	// result, so the stop hook does not report it again.
	playbackReported bool

	mu      sync.Mutex
	hooks   []finishHook
	once    sync.Once
	err     error
	release func()
}

func newActionContext(id string, release func()) *actionContext {
	return &actionContext{id: id, release: release}
}

// onFinish registers fn to run when the action context closes.
func (a *actionContext) onFinish(name string, fn func(ctx context.Context) error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.hooks = append(a.hooks, finishHook{name: name, fn: fn})
}

// close runs the finish hooks and returns their combined error. Later calls
// return the same error without running anything.
//
// ctx is detached from cancellation: cleanup must complete even when the
// run was aborted by its context.
func (a *actionContext) close(ctx context.Context) error {
	a.once.Do(func() {
		ctx = context.WithoutCancel(ctx)

		a.mu.Lock()
		hooks := a.hooks
		a.hooks = nil
		a.mu.Unlock()

		for i := len(hooks) - 1; i >= 0; i-- {
			h := hooks[i]
			if err := runHook(ctx, h); err != nil {
				slog.Warn("finish hook failed", "action", a.id, "hook", h.name, "error", err)
				a.err = multierr.Append(a.err, fmt.Errorf("%s: %w", h.name, err))
			}
		}
		if a.release != nil {
			a.release()
		}
		slog.Debug("action context closed", "action", a.id, "hooks", len(hooks))
	})
	return a.err
}

func runHook(ctx context.Context, h finishHook) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return h.fn(ctx)
}
