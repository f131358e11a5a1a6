// Package hw declares the capabilities the synchronization engine consumes
// from hardware controllers, their elements and moveables.
//
// The engine never depends on concrete controller types. Each controller
// adapter implements the capability interfaces it supports; a controller
// that can program trigger/gate generation implements Synchronizer in
// addition to Controller.
package hw

import (
	"context"
	"fmt"

	"github.com/roach88/tgsync/internal/synch"
)

// State is an element or axis state as reported by its controller.
type State int

const (
	StateUnknown State = iota
	StateOn
	StateMoving
	StateFault
	StateAlarm
)

func (s State) String() string {
	switch s {
	case StateUnknown:
		return "Unknown"
	case StateOn:
		return "On"
	case StateMoving:
		return "Moving"
	case StateFault:
		return "Fault"
	case StateAlarm:
		return "Alarm"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// StateInfo is a state with its human-readable status.
type StateInfo struct {
	State  State
	Status string
}

// Propagation controls how eagerly a state change reaches observers.
type Propagation int

const (
	PropagateNone Propagation = iota
	PropagateNormal
	// PropagatePriority pushes the change to observers immediately.
	PropagatePriority
)

// SynchType is how a trigger/gate channel drives acquisition.
type SynchType int

const (
	SynchTrigger SynchType = iota + 1
	SynchGate
)

func (t SynchType) String() string {
	switch t {
	case SynchTrigger:
		return "trigger"
	case SynchGate:
		return "gate"
	default:
		return fmt.Sprintf("synch(%d)", int(t))
	}
}

// ParseSynchType parses "trigger" or "gate". Empty means gate.
func ParseSynchType(s string) (SynchType, error) {
	switch s {
	case "trigger":
		return SynchTrigger, nil
	case "", "gate":
		return SynchGate, nil
	default:
		return 0, fmt.Errorf("invalid synchronization type %q: must be trigger or gate", s)
	}
}

// Synchronizer programs a controller's hardware trigger/gate generation.
// PreSynchOne reports whether the axis accepted the description.
type Synchronizer interface {
	PreSynchAll(ctx context.Context) error
	PreSynchOne(ctx context.Context, axis int, desc synch.Description) (bool, error)
	SynchOne(ctx context.Context, axis int, desc synch.Description) error
	SynchAll(ctx context.Context) error
}

// Starter arms and starts a controller's axes.
// PreStartOne reports whether the axis accepted the start.
type Starter interface {
	PreStartAll(ctx context.Context) error
	PreStartOne(ctx context.Context, axis int) (bool, error)
	StartOne(ctx context.Context, axis int) error
	StartAll(ctx context.Context) error
}

// StateReader reads per-axis state. An axis that could not be read is
// reported with its failure as state/status; an error means the controller
// itself failed.
type StateReader interface {
	ReadStateInfo(ctx context.Context, axes []int) (map[int]StateInfo, error)
}

// Controller is the minimum every controller adapter provides.
type Controller interface {
	Name() string
	Starter
	StateReader
}

// TriggerGateController is a controller that can also generate triggers.
type TriggerGateController interface {
	Controller
	Synchronizer
}

// Element is one addressable axis as seen by the engine.
type Element interface {
	Name() string
	Axis() int

	// SetState publishes an intermediate state.
	SetState(s State, p Propagation)

	// PutStateInfo commits a state read from the controller.
	PutStateInfo(info StateInfo, p Propagation)

	// SetOperation marks the element as busy with op; ClearOperation
	// releases the marker.
	SetOperation(op string)
	ClearOperation()
}

// PositionListener receives position samples from a moveable.
type PositionListener interface {
	PositionChanged(src string, position float64)
}

// Moveable is a position-reporting source.
type Moveable interface {
	Name() string
	AddPositionListener(l PositionListener)
	RemovePositionListener(l PositionListener)
}
