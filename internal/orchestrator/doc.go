// Package orchestrator starts hardware trigger/gate channels and the
// software timeline generator together and waits for both to finish.
//
// A run has two halves. StartAction programs every hardware controller,
// configures and launches the generator when software listeners need it,
// subscribes the generator to a moveable for Position-domain playback, and
// finally starts the hardware. ActionLoop then polls the hardware until no
// channel is generating and waits for the generator to exhaust its
// timeline.
//
// Everything StartAction attaches (listeners, the moveable subscription,
// the playback task) is undone by finish hooks owned by the run's action
// context. The hooks run exactly once: when StartAction fails, or when
// ActionLoop returns for any reason.
package orchestrator
