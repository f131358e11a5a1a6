package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/tgsync/internal/timeline"
)

// Recorder buffers a run's generator events in memory and writes them to
// the store on Flush.
//
// EventReceived runs in the playback goroutine, so it only appends to a
// slice; the database is touched after playback ends. Recorder is the
// orchestrator's Monitor for persisted runs.
//
// Thread-safety: safe for concurrent use.
type Recorder struct {
	store *Store
	runID string

	mu      sync.Mutex
	pending []EventRecord
	seq     int
	written int
}

// NewRecorder records events for run runID, which must already exist.
func (s *Store) NewRecorder(runID string) *Recorder {
	return &Recorder{store: s, runID: runID}
}

// RunID returns the recorded run.
func (r *Recorder) RunID() string {
	return r.runID
}

// EventReceived implements timeline.Listener.
func (r *Recorder) EventReceived(_ timeline.Source, ev timeline.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	r.pending = append(r.pending, EventRecord{
		Seq:        r.seq,
		Type:       ev.Type,
		Index:      ev.Index,
		Domain:     ev.Coordinate.Domain(),
		Coordinate: ev.Coordinate.Value(),
		Elapsed:    ev.Elapsed,
		Lateness:   ev.Lateness,
	})
}

// Flush writes buffered events. On failure the events stay buffered.
func (r *Recorder) Flush(ctx context.Context) error {
	r.mu.Lock()
	pending := r.pending
	r.mu.Unlock()

	if err := r.store.WriteEvents(ctx, r.runID, pending); err != nil {
		return fmt.Errorf("flush run %s: %w", r.runID, err)
	}

	r.mu.Lock()
	r.pending = r.pending[len(pending):]
	r.written += len(pending)
	r.mu.Unlock()
	return nil
}

// Written returns the number of events flushed so far.
func (r *Recorder) Written() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.written
}
