package orchestrator

import (
	"context"
	"fmt"
	"reflect"

	"github.com/roach88/tgsync/internal/hw"
	"github.com/roach88/tgsync/internal/synch"
	"github.com/roach88/tgsync/internal/tgaction"
	"github.com/roach88/tgsync/internal/timeline"
)

// ChannelConfig is one trigger/gate element of a controller.
type ChannelConfig struct {
	Element hw.Element
	Type    hw.SynchType
}

// ControllerConfig is a hardware controller and the channels it drives.
// The controller must implement hw.Synchronizer.
//
// Controllers are identified by interface value, not by name, so their
// dynamic type must be comparable (normally a pointer). Entries holding the
// same controller share its axes.
type ControllerConfig struct {
	Controller hw.Controller
	Channels   []ChannelConfig
}

// Config lists the hardware taking part in a run. It may be empty when
// only software listeners are synchronized.
type Config struct {
	Controllers []ControllerConfig
}

// channels builds the run's TG channels in configuration order.
func (c Config) channels() ([]tgaction.Channel, error) {
	type axisKey struct {
		ctrl hw.Controller
		axis int
	}
	var out []tgaction.Channel
	seen := make(map[axisKey]bool)
	for _, cc := range c.Controllers {
		if cc.Controller == nil {
			return nil, synch.NewConfigurationError("controller entry without controller")
		}
		if !reflect.TypeOf(cc.Controller).Comparable() {
			return nil, synch.NewConfigurationError(fmt.Sprintf("controller %s: %T is not comparable", cc.Controller.Name(), cc.Controller))
		}
		for _, ch := range cc.Channels {
			if ch.Element == nil {
				return nil, synch.NewConfigurationError(fmt.Sprintf("controller %s has a channel without element", cc.Controller.Name()))
			}
			key := axisKey{cc.Controller, ch.Element.Axis()}
			if seen[key] {
				return nil, synch.NewConfigurationError(fmt.Sprintf("axis %d of controller %s configured twice", ch.Element.Axis(), cc.Controller.Name()))
			}
			seen[key] = true
			typ := ch.Type
			if typ == 0 {
				typ = hw.SynchGate
			}
			out = append(out, tgaction.Channel{Element: ch.Element, Controller: cc.Controller, Type: typ})
		}
	}
	return out, nil
}

// Monitor observes generator events for the duration of a run, in
// addition to the registered listeners.
type Monitor = timeline.Listener

// Flusher is implemented by monitors that buffer events. Flush runs once
// playback is over, before the run's listeners are detached.
type Flusher interface {
	Flush(ctx context.Context) error
}

// StartOptions are the per-run inputs besides the hardware configuration.
type StartOptions struct {
	// Moveable drives Position-domain playback. Optional.
	Moveable hw.Moveable

	// Monitor receives every generator event of the run. Optional.
	Monitor Monitor

	// ActiveDomain and PassiveDomain default to Position when a Moveable
	// is given and to Time otherwise.
	ActiveDomain  synch.Domain
	PassiveDomain synch.Domain

	// Direction is +1 or -1. Zero infers it from the sign of the
	// description's Position totals.
	Direction int
}

// resolve fills in defaulted domains and direction.
func (o StartOptions) resolve(desc synch.Description) (active, passive synch.Domain, direction int, err error) {
	fallback := synch.DomainTime
	if o.Moveable != nil {
		fallback = synch.DomainPosition
	}
	active, passive = o.ActiveDomain, o.PassiveDomain
	if active == synch.DomainDefault {
		active = fallback
	}
	if passive == synch.DomainDefault {
		passive = fallback
	}

	direction = o.Direction
	switch direction {
	case 0:
		direction = desc.InferDirection()
	case 1, -1:
	default:
		return 0, 0, 0, synch.NewConfigurationError(fmt.Sprintf("direction must be 1 or -1, got %d", direction))
	}

	if (active == synch.DomainPosition || passive == synch.DomainPosition) && o.Moveable == nil {
		return 0, 0, 0, synch.NewConfigurationError("position domain playback requires a moveable")
	}
	return active, passive, direction, nil
}
