package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tgsync/internal/synch"
	"github.com/roach88/tgsync/internal/timeline"
)

func TestNewRunID_TimeSortable(t *testing.T) {
	a := NewRunID()
	b := NewRunID()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
	assert.Less(t, a, b)
}

func TestCreateRun_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	want := createTestRun(t, s, "run-0001", 0)

	got, err := s.ReadRun(ctx, "run-0001")
	require.NoError(t, err)
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, synch.DomainTime, got.ActiveDomain)
	assert.Equal(t, want.Description, got.Description)
	assert.Equal(t, epoch, got.StartedAt)
	assert.True(t, got.FinishedAt.IsZero())
	assert.Equal(t, OutcomeRunning, got.Outcome)
}

func TestCreateRun_Idempotent(t *testing.T) {
	s := createTestStore(t)
	createTestRun(t, s, "run-0001", 0)
	createTestRun(t, s, "run-0001", time.Hour)

	runs, err := s.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, epoch, runs[0].StartedAt)
}

func TestFinishRun(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestRun(t, s, "run-0001", 0)

	require.NoError(t, s.FinishRun(ctx, "run-0001", OutcomeFailed, errors.New("controller offline"), epoch.Add(2*time.Second)))

	got, err := s.ReadRun(ctx, "run-0001")
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, got.Outcome)
	assert.Equal(t, "controller offline", got.Error)
	assert.Equal(t, epoch.Add(2*time.Second), got.FinishedAt)
}

func TestFinishRun_Unknown(t *testing.T) {
	s := createTestStore(t)
	err := s.FinishRun(context.Background(), "nope", OutcomeCompleted, nil, epoch)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReadRun_NotFound(t *testing.T) {
	s := createTestStore(t)
	_, err := s.ReadRun(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListRuns_NewestFirst(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	runs, err := s.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.NotNil(t, runs)
	assert.Empty(t, runs)

	createTestRun(t, s, "run-0001", 0)
	createTestRun(t, s, "run-0002", time.Minute)
	createTestRun(t, s, "run-0003", 2*time.Minute)

	runs, err = s.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-0003", runs[0].ID)
	assert.Equal(t, "run-0002", runs[1].ID)
}

func TestOutcomeOf(t *testing.T) {
	assert.Equal(t, OutcomeCompleted, OutcomeOf(nil))
	assert.Equal(t, OutcomeStopped, OutcomeOf(fmt.Errorf("playback: %w", timeline.ErrStopped)))
	assert.Equal(t, OutcomeCancelled, OutcomeOf(context.Canceled))
	assert.Equal(t, OutcomeCancelled, OutcomeOf(context.DeadlineExceeded))
	assert.Equal(t, OutcomeFailed, OutcomeOf(synch.NewConfigurationError("bad")))
}
