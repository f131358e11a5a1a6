// Package tgaction programs and runs hardware trigger/gate channels.
//
// The helpers in this file wrap each controller call so that a rejected
// axis becomes a programming error and a failing call becomes a hardware
// fault, both naming the controller and axis. Action drives one channel
// through its whole cycle; the orchestrator composes the helpers across
// several controllers.
package tgaction

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/tgsync/internal/hw"
	"github.com/roach88/tgsync/internal/synch"
)

// Operation is the pending-operation marker set on channel elements while
// they generate.
const Operation = "synchronization"

// Channel binds a trigger/gate element to its controller for one run.
type Channel struct {
	Element    hw.Element
	Controller hw.Controller
	Type       hw.SynchType
}

// Axis returns the element's axis on its controller.
func (c Channel) Axis() int {
	return c.Element.Axis()
}

func (c Channel) String() string {
	return fmt.Sprintf("%s(%s:%d)", c.Element.Name(), c.Controller.Name(), c.Axis())
}

func synchronizer(ctrl hw.Controller) (hw.Synchronizer, error) {
	s, ok := ctrl.(hw.Synchronizer)
	if !ok {
		return nil, synch.NewConfigurationError(fmt.Sprintf("controller %s cannot generate triggers", ctrl.Name()))
	}
	return s, nil
}

// SynchronizeController loads desc on every axis: PreSynchAll, then
// PreSynchOne and SynchOne per axis, then SynchAll. It stops at the first
// rejection or failure.
func SynchronizeController(ctx context.Context, ctrl hw.Controller, axes []int, desc synch.Description) error {
	s, err := synchronizer(ctrl)
	if err != nil {
		return err
	}
	name := ctrl.Name()

	if err := s.PreSynchAll(ctx); err != nil {
		return synch.NewHardwareFault(name, -1, "PreSynchAll", err)
	}
	for _, axis := range axes {
		ok, err := s.PreSynchOne(ctx, axis, desc)
		if err != nil {
			return synch.NewHardwareFault(name, axis, "PreSynchOne", err)
		}
		if !ok {
			return synch.NewProgrammingError(name, axis, "PreSynchOne")
		}
		if err := s.SynchOne(ctx, axis, desc); err != nil {
			return synch.NewHardwareFault(name, axis, "SynchOne", err)
		}
	}
	if err := s.SynchAll(ctx); err != nil {
		return synch.NewHardwareFault(name, -1, "SynchAll", err)
	}

	slog.Debug("controller synchronized", "controller", name, "axes", axes, "cycles", desc.TotalRepeats())
	return nil
}

// PreStart calls PreStartAll.
func PreStart(ctx context.Context, ctrl hw.Controller) error {
	if err := ctrl.PreStartAll(ctx); err != nil {
		return synch.NewHardwareFault(ctrl.Name(), -1, "PreStartAll", err)
	}
	return nil
}

// StartAxis calls PreStartOne then StartOne for axis.
func StartAxis(ctx context.Context, ctrl hw.Controller, axis int) error {
	ok, err := ctrl.PreStartOne(ctx, axis)
	if err != nil {
		return synch.NewHardwareFault(ctrl.Name(), axis, "PreStartOne", err)
	}
	if !ok {
		return synch.NewProgrammingError(ctrl.Name(), axis, "PreStartOne")
	}
	if err := ctrl.StartOne(ctx, axis); err != nil {
		return synch.NewHardwareFault(ctrl.Name(), axis, "StartOne", err)
	}
	return nil
}

// Launch calls StartAll.
func Launch(ctx context.Context, ctrl hw.Controller) error {
	if err := ctrl.StartAll(ctx); err != nil {
		return synch.NewHardwareFault(ctrl.Name(), -1, "StartAll", err)
	}
	return nil
}

// StartController arms and starts the channels of one controller:
// PreStartAll, PreStartOne/StartOne per axis, then StartAll. The channels
// are marked moving before StartAll so no state read can miss the start;
// if StartAll fails they are finalized as faulted.
func StartController(ctx context.Context, ctrl hw.Controller, chs []Channel) error {
	if err := PreStart(ctx, ctrl); err != nil {
		return err
	}
	for _, ch := range chs {
		if err := StartAxis(ctx, ctrl, ch.Axis()); err != nil {
			return err
		}
	}
	for _, ch := range chs {
		MarkMoving(ch)
	}
	if err := Launch(ctx, ctrl); err != nil {
		for _, ch := range chs {
			Finalize(ch, hw.StateInfo{State: hw.StateFault, Status: err.Error()})
		}
		return err
	}
	return nil
}

// MarkMoving flags ch as generating, visible to observers immediately.
func MarkMoving(ch Channel) {
	ch.Element.SetOperation(Operation)
	ch.Element.SetState(hw.StateMoving, hw.PropagatePriority)
}

// ReadStates reads every channel's state, one ReadStateInfo per
// controller. The result is aligned with chs. An axis the controller did
// not report comes back as StateUnknown. A controller-level read error
// aborts with a hardware fault.
func ReadStates(ctx context.Context, chs []Channel) ([]hw.StateInfo, error) {
	type batch struct {
		ctrl hw.Controller
		idx  []int
		axes []int
	}
	var order []*batch
	byCtrl := make(map[hw.Controller]*batch)
	for i, ch := range chs {
		b, ok := byCtrl[ch.Controller]
		if !ok {
			b = &batch{ctrl: ch.Controller}
			byCtrl[ch.Controller] = b
			order = append(order, b)
		}
		b.idx = append(b.idx, i)
		b.axes = append(b.axes, ch.Axis())
	}

	out := make([]hw.StateInfo, len(chs))
	for _, b := range order {
		states, err := b.ctrl.ReadStateInfo(ctx, b.axes)
		if err != nil {
			return nil, synch.NewHardwareFault(b.ctrl.Name(), -1, "ReadStateInfo", err)
		}
		for j, axis := range b.axes {
			info, ok := states[axis]
			if !ok {
				info = hw.StateInfo{State: hw.StateUnknown, Status: "no state reported"}
			}
			out[b.idx[j]] = info
		}
	}
	return out, nil
}

// AnyMoving reports whether any state is Moving.
func AnyMoving(states []hw.StateInfo) bool {
	for _, s := range states {
		if s.State == hw.StateMoving {
			return true
		}
	}
	return false
}

// Finalize clears ch's pending operation and commits its final state.
func Finalize(ch Channel, info hw.StateInfo) {
	ch.Element.ClearOperation()
	ch.Element.PutStateInfo(info, hw.PropagatePriority)
}
