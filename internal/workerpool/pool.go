// Package workerpool runs long blocking tasks, such as generator playback,
// on a bounded set of goroutines owned by the caller.
package workerpool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
)

// DefaultLimit is the number of tasks a Pool runs concurrently.
const DefaultLimit = 4

// ErrClosed is returned by Submit after Close or Shutdown.
var ErrClosed = errors.New("worker pool closed")

// Task is a unit of work. ctx is cancelled by Shutdown.
type Task func(ctx context.Context) error

// Option configures a Pool.
type Option func(*Pool)

// WithLimit sets the number of concurrently running tasks. n <= 0 means
// unlimited.
func WithLimit(n int) Option {
	return func(p *Pool) {
		p.limit = n
	}
}

// Pool is an explicitly owned task executor.
//
// Submit blocks while the pool is at its limit. Every submitted task runs
// to completion before Close returns.
type Pool struct {
	limit  int
	ctx    context.Context
	cancel context.CancelFunc
	group  errgroup.Group

	mu     sync.Mutex
	closed bool
}

// New creates a pool whose tasks run under ctx.
func New(ctx context.Context, opts ...Option) *Pool {
	p := &Pool{limit: DefaultLimit}
	for _, opt := range opts {
		opt(p)
	}
	p.ctx, p.cancel = context.WithCancel(ctx)
	if p.limit > 0 {
		p.group.SetLimit(p.limit)
	} else {
		p.group.SetLimit(-1)
	}
	return p
}

// Future is the pending result of a submitted task.
type Future struct {
	name string
	done chan struct{}
	err  error
}

// Done is closed when the task has returned.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Err returns the task's error. Only valid after Done is closed.
func (f *Future) Err() error {
	return f.err
}

// Wait blocks until the task returns or ctx is done.
func (f *Future) Wait(ctx context.Context) error {
	select {
	case <-f.done:
		return f.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Submit schedules task under name, which appears in logs and errors.
func (p *Pool) Submit(name string, task Task) (*Future, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrClosed
	}
	// Holding mu through Go keeps Close from starting Wait while a task
	// is being added.
	defer p.mu.Unlock()

	f := &Future{name: name, done: make(chan struct{})}
	p.group.Go(func() (err error) {
		defer close(f.done)
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("task %s panicked: %v", name, r)
				f.err = err
				slog.Error("worker task panicked", "task", name, "panic", r)
			}
		}()

		slog.Debug("worker task started", "task", name)
		if err := task(p.ctx); err != nil {
			f.err = err
			return fmt.Errorf("task %s: %w", name, err)
		}
		slog.Debug("worker task finished", "task", name)
		return nil
	})
	return f, nil
}

// Close stops accepting tasks and waits for running ones. It returns the
// first task error, if any.
func (p *Pool) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	err := p.group.Wait()
	p.cancel()
	return err
}

// Shutdown cancels the context of running tasks, then waits like Close.
func (p *Pool) Shutdown() error {
	p.cancel()
	return p.Close()
}
