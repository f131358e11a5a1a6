// Package timeline implements the software trigger/gate generator.
//
// A Generator expands a synch.Description into two parallel, monotonic
// event sequences (Active and Passive) and plays them back, notifying
// listeners at each event.
//
// PLAYBACK DOMAINS:
//
// Time: the playback goroutine sleeps until each event's deadline,
// measured from the start of Run. Sleeps never return early; the real
// clock sleeps coarsely and spins through the final window to keep jitter
// well under a millisecond.
//
// Position: the playback goroutine blocks until a position sample arrives
// through PositionChanged. Each sample is compared with the next pending
// event using >= (direction +1) or <= (direction -1); equality fires. One
// sample can satisfy several pending events.
//
// ORDERING:
//
// Events are fired strictly as Active[0], Passive[0], Active[1], ...
// Listener notification is synchronous in the playback goroutine, so a slow
// listener delays every following event. Lateness is measured (Stats,
// Metrics) but delivery stays ordered and exactly-once.
//
// LIFECYCLE:
//
//	SetConfiguration -> Start -> Run (blocks) -> not started
//
// Start is idempotent while armed. Stop cancels a running playback; Run
// then returns ErrStopped and the generator reports not started.
package timeline
