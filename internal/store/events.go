package store

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/tgsync/internal/synch"
)

// EventRecord is one stored generator event.
type EventRecord struct {
	Seq        int
	Type       synch.EventType
	Index      int
	Domain     synch.Domain
	Coordinate float64
	Elapsed    time.Duration
	Lateness   time.Duration
}

// WriteEvents appends events to run runID in a single transaction.
// Uses ON CONFLICT(run_id, seq) DO NOTHING for idempotency.
//
// Note: The run must exist (foreign key constraint).
func (s *Store) WriteEvents(ctx context.Context, runID string, events []EventRecord) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write events: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO events
		(run_id, seq, type, idx, domain, coordinate, elapsed_ns, lateness_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, seq) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("write events: prepare: %w", err)
	}
	defer stmt.Close()

	for _, ev := range events {
		if _, err := stmt.ExecContext(ctx,
			runID,
			ev.Seq,
			eventTypeName(ev.Type),
			ev.Index,
			ev.Domain.String(),
			ev.Coordinate,
			int64(ev.Elapsed),
			int64(ev.Lateness),
		); err != nil {
			return fmt.Errorf("write events: seq %d: %w", ev.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write events: commit: %w", err)
	}
	return nil
}

// ReadEvents returns the events of run runID ordered by seq.
// Returns an empty slice (not nil) if the run has no events.
func (s *Store) ReadEvents(ctx context.Context, runID string) ([]EventRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, type, idx, domain, coordinate, elapsed_ns, lateness_ns
		FROM events
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []EventRecord{}
	for rows.Next() {
		var (
			ev                EventRecord
			typ, domain       string
			elapsed, lateness int64
		)
		if err := rows.Scan(&ev.Seq, &typ, &ev.Index, &domain, &ev.Coordinate, &elapsed, &lateness); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if ev.Type, err = parseEventType(typ); err != nil {
			return nil, err
		}
		if ev.Domain, err = synch.ParseDomain(domain); err != nil {
			return nil, err
		}
		ev.Elapsed = time.Duration(elapsed)
		ev.Lateness = time.Duration(lateness)
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// Jitter summarizes the timing quality of a run's Time-domain events.
type Jitter struct {
	// Timed counts Time-domain events.
	Timed        int
	MeanLateness time.Duration
	MaxLateness  time.Duration

	// Cycles counts consecutive Active pairs compared for jitter.
	Cycles int

	// MeanCycleJitter is the mean deviation of the interval between
	// consecutive Active events from its nominal value.
	MeanCycleJitter time.Duration
	MaxCycleJitter  time.Duration
}

// JitterStats computes lateness and cycle-to-cycle jitter for run runID.
func (s *Store) JitterStats(ctx context.Context, runID string) (Jitter, error) {
	var (
		j             Jitter
		mean, maxLate float64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(AVG(lateness_ns), 0), COALESCE(MAX(lateness_ns), 0)
		FROM events
		WHERE run_id = ? AND domain = 'time'
	`, runID).Scan(&j.Timed, &mean, &maxLate)
	if err != nil {
		return Jitter{}, fmt.Errorf("jitter stats: lateness: %w", err)
	}
	j.MeanLateness = time.Duration(mean)
	j.MaxLateness = time.Duration(maxLate)

	var meanJ, maxJ float64
	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(AVG(ABS((elapsed_ns - prev_elapsed) - (coordinate - prev_coord) * 1e9)), 0),
		       COALESCE(MAX(ABS((elapsed_ns - prev_elapsed) - (coordinate - prev_coord) * 1e9)), 0)
		FROM (
			SELECT elapsed_ns, coordinate,
			       LAG(elapsed_ns) OVER w AS prev_elapsed,
			       LAG(coordinate) OVER w AS prev_coord
			FROM events
			WHERE run_id = ? AND type = 'active' AND domain = 'time'
			WINDOW w AS (ORDER BY idx)
		)
		WHERE prev_elapsed IS NOT NULL
	`, runID).Scan(&j.Cycles, &meanJ, &maxJ)
	if err != nil {
		return Jitter{}, fmt.Errorf("jitter stats: cycles: %w", err)
	}
	j.MeanCycleJitter = time.Duration(meanJ)
	j.MaxCycleJitter = time.Duration(maxJ)
	return j, nil
}

func eventTypeName(t synch.EventType) string {
	if t == synch.Passive {
		return "passive"
	}
	return "active"
}

func parseEventType(s string) (synch.EventType, error) {
	switch s {
	case "active":
		return synch.Active, nil
	case "passive":
		return synch.Passive, nil
	default:
		return 0, fmt.Errorf("unknown event type %q", s)
	}
}
