package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/tgsync/internal/synch"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func f(v float64) *float64 { return &v }

// createTestStore creates a new file-backed store in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testDescription() synch.Description {
	return synch.Description{{
		Initial: synch.Values{Time: f(0)},
		Delay:   synch.Values{Time: f(0.1)},
		Active:  synch.Values{Time: f(0.1)},
		Total:   synch.Values{Time: f(0.2)},
		Repeats: 3,
	}}
}

// createTestRun inserts a Time-domain run started at epoch+offset.
func createTestRun(t *testing.T, s *Store, id string, offset time.Duration) Run {
	t.Helper()
	run := Run{
		ID:            id,
		Generator:     "software-tg",
		ActiveDomain:  synch.DomainTime,
		PassiveDomain: synch.DomainTime,
		Direction:     1,
		Cycles:        3,
		Description:   testDescription(),
		StartedAt:     epoch.Add(offset),
	}
	require.NoError(t, s.CreateRun(context.Background(), run))
	return run
}
