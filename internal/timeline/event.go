package timeline

import (
	"time"

	"github.com/roach88/tgsync/internal/synch"
)

// Source identifies whatever fired an event.
type Source interface {
	Name() string
}

// Event is one fired Active or Passive edge.
type Event struct {
	Type  synch.EventType
	Index int

	// Coordinate is the nominal event coordinate in the domain that
	// triggered it.
	Coordinate synch.Coordinate

	// FiredAt is the clock reading just before listeners were notified.
	FiredAt time.Time

	// Elapsed is FiredAt relative to the start of playback.
	Elapsed time.Duration

	// Lateness is how far past its deadline a Time-domain event fired.
	// Always zero for Position-domain events.
	Lateness time.Duration
}

// Listener consumes generator events.
//
// EventReceived is called synchronously from the playback goroutine.
// Implementations must be comparable (use pointer receivers) so they can be
// removed again.
type Listener interface {
	EventReceived(src Source, ev Event)
}
