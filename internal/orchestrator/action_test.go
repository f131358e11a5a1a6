package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActionContext_HooksRunReverseOnce(t *testing.T) {
	released := 0
	ac := newActionContext("a1", func() { released++ })

	var order []string
	for _, name := range []string{"first", "second", "third"} {
		ac.onFinish(name, func(context.Context) error {
			order = append(order, name)
			return nil
		})
	}

	require.NoError(t, ac.close(context.Background()))
	require.NoError(t, ac.close(context.Background()))

	assert.Equal(t, []string{"third", "second", "first"}, order)
	assert.Equal(t, 1, released)
}

func TestActionContext_CombinesHookErrors(t *testing.T) {
	released := false
	ac := newActionContext("a1", func() { released = true })

	errA := errors.New("a failed")
	errB := errors.New("b failed")
	ac.onFinish("a", func(context.Context) error { return errA })
	ac.onFinish("b", func(context.Context) error { return errB })
	ac.onFinish("boom", func(context.Context) error { panic("kaboom") })

	err := ac.close(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
	assert.Contains(t, err.Error(), "boom: panic: kaboom")
	assert.True(t, released)

	// Same error on later calls.
	assert.Equal(t, err, ac.close(context.Background()))
}

func TestActionContext_CleanupIgnoresCancellation(t *testing.T) {
	ac := newActionContext("a1", nil)
	var hookErr error
	ac.onFinish("check", func(ctx context.Context) error {
		hookErr = ctx.Err()
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, ac.close(ctx))
	assert.NoError(t, hookErr)
}
