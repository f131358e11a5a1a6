package hw

import (
	"log/slog"
	"sync"
)

// StateChange is one state publication recorded by BaseElement.
type StateChange struct {
	Info        StateInfo
	Propagation Propagation
}

// BaseElement is a thread-safe Element that keeps its current state,
// pending operation and the history of published states.
type BaseElement struct {
	name string
	axis int

	mu        sync.Mutex
	info      StateInfo
	operation string
	history   []StateChange
}

// NewElement creates an element in StateOn.
func NewElement(name string, axis int) *BaseElement {
	return &BaseElement{
		name: name,
		axis: axis,
		info: StateInfo{State: StateOn, Status: name + " is idle"},
	}
}

func (e *BaseElement) Name() string { return e.name }
func (e *BaseElement) Axis() int    { return e.axis }

// SetState publishes s, keeping the current status text.
func (e *BaseElement) SetState(s State, p Propagation) {
	e.mu.Lock()
	e.info.State = s
	e.history = append(e.history, StateChange{Info: e.info, Propagation: p})
	e.mu.Unlock()

	slog.Debug("element state", "element", e.name, "state", s, "propagation", p)
}

// PutStateInfo publishes info.
func (e *BaseElement) PutStateInfo(info StateInfo, p Propagation) {
	e.mu.Lock()
	e.info = info
	e.history = append(e.history, StateChange{Info: info, Propagation: p})
	e.mu.Unlock()

	slog.Debug("element state info", "element", e.name, "state", info.State, "status", info.Status)
}

func (e *BaseElement) SetOperation(op string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.operation = op
}

func (e *BaseElement) ClearOperation() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.operation = ""
}

// Operation returns the pending operation, or "" when idle.
func (e *BaseElement) Operation() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.operation
}

// StateInfo returns the last published state.
func (e *BaseElement) StateInfo() StateInfo {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.info
}

// History returns every published state in order.
func (e *BaseElement) History() []StateChange {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]StateChange(nil), e.history...)
}
