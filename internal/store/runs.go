package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/tgsync/internal/synch"
	"github.com/roach88/tgsync/internal/timeline"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("run not found")

// Run outcomes.
const (
	OutcomeRunning   = "running"
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeStopped   = "stopped"
	OutcomeCancelled = "cancelled"
)

// OutcomeOf classifies the error a run ended with.
func OutcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeCompleted
	case errors.Is(err, timeline.ErrStopped):
		return OutcomeStopped
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeCancelled
	default:
		return OutcomeFailed
	}
}

// NewRunID returns a time-sortable UUIDv7 run identifier.
//
// Panics if UUID generation fails (should never happen in practice).
func NewRunID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Run is one orchestrated synchronization run.
type Run struct {
	ID            string
	Generator     string
	ActiveDomain  synch.Domain
	PassiveDomain synch.Domain
	Direction     int
	Cycles        int
	Description   synch.Description
	StartedAt     time.Time

	// FinishedAt is zero while the run is open.
	FinishedAt time.Time
	Outcome    string
	Error      string
}

// CreateRun inserts run with outcome "running".
// Uses ON CONFLICT(id) DO NOTHING for idempotency.
func (s *Store) CreateRun(ctx context.Context, run Run) error {
	desc, err := json.Marshal(run.Description)
	if err != nil {
		return fmt.Errorf("create run: marshal description: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs
		(id, generator, active_domain, passive_domain, direction, cycles, description, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.Generator,
		run.ActiveDomain.String(),
		run.PassiveDomain.String(),
		run.Direction,
		run.Cycles,
		string(desc),
		run.StartedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	return nil
}

// FinishRun records the outcome of run id.
func (s *Store) FinishRun(ctx context.Context, id, outcome string, runErr error, at time.Time) error {
	msg := ""
	if runErr != nil {
		msg = runErr.Error()
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET finished_at = ?, outcome = ?, error = ?
		WHERE id = ?
	`, at.UnixNano(), outcome, msg, id)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finish run %s: %w", id, ErrNotFound)
	}
	return nil
}

// ReadRun returns run id.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, generator, active_domain, passive_domain, direction, cycles,
		       description, started_at, finished_at, outcome, error
		FROM runs WHERE id = ?
	`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("read run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("read run %s: %w", id, err)
	}
	return run, nil
}

// ListRuns returns up to limit runs, newest first. limit <= 0 means all.
// Returns an empty slice (not nil) when there are no runs.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, generator, active_domain, passive_domain, direction, cycles,
		       description, started_at, finished_at, outcome, error
		FROM runs
		ORDER BY started_at DESC, id COLLATE BINARY ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		run             Run
		active, passive string
		desc            string
		started         int64
		finished        sql.NullInt64
	)
	if err := row.Scan(
		&run.ID, &run.Generator, &active, &passive, &run.Direction, &run.Cycles,
		&desc, &started, &finished, &run.Outcome, &run.Error,
	); err != nil {
		return Run{}, err
	}

	var err error
	if run.ActiveDomain, err = synch.ParseDomain(active); err != nil {
		return Run{}, err
	}
	if run.PassiveDomain, err = synch.ParseDomain(passive); err != nil {
		return Run{}, err
	}
	if err := json.Unmarshal([]byte(desc), &run.Description); err != nil {
		return Run{}, fmt.Errorf("unmarshal description: %w", err)
	}
	run.StartedAt = time.Unix(0, started).UTC()
	if finished.Valid {
		run.FinishedAt = time.Unix(0, finished.Int64).UTC()
	}
	return run, nil
}
