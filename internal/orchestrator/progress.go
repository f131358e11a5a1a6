package orchestrator

import (
	"sync"

	"github.com/roach88/tgsync/internal/synch"
	"github.com/roach88/tgsync/internal/timeline"
)

// Progress is the orchestrator's view of the current or last playback.
type Progress struct {
	// Active and Passive count the events fired so far.
	Active  int
	Passive int

	// Last is the most recent event. Valid only when Active > 0.
	Last timeline.Event
}

// progressListener is the orchestrator's own change listener on the
// generator.
type progressListener struct {
	mu sync.Mutex
	p  Progress
}

func (l *progressListener) EventReceived(_ timeline.Source, ev timeline.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if ev.Type == synch.Active {
		l.p.Active++
	} else {
		l.p.Passive++
	}
	l.p.Last = ev
}

func (l *progressListener) reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.p = Progress{}
}

func (l *progressListener) get() Progress {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.p
}
