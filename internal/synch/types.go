package synch

import (
	"fmt"
	"strings"
)

// Domain is the coordinate space in which a timestamp is expressed.
type Domain int

const (
	// DomainDefault asks the caller to pick a domain. The generator never
	// accepts it; the orchestrator resolves it before configuring.
	DomainDefault Domain = iota
	// DomainPosition expresses coordinates as positions of a moveable.
	DomainPosition
	// DomainTime expresses coordinates as seconds since playback start.
	DomainTime
)

// String returns the lowercase domain name.
func (d Domain) String() string {
	switch d {
	case DomainDefault:
		return "default"
	case DomainPosition:
		return "position"
	case DomainTime:
		return "time"
	default:
		return fmt.Sprintf("domain(%d)", int(d))
	}
}

// ParseDomain parses a domain name. The empty string is DomainDefault.
func ParseDomain(s string) (Domain, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "default":
		return DomainDefault, nil
	case "position":
		return DomainPosition, nil
	case "time":
		return DomainTime, nil
	default:
		return DomainDefault, fmt.Errorf("invalid domain %q: must be time, position or default", s)
	}
}

// EventType is the kind of edge a trigger/gate source emits.
type EventType int

const (
	// Active marks the start of an exposure.
	Active EventType = iota + 1
	// Passive marks the end of an exposure.
	Passive
)

func (t EventType) String() string {
	switch t {
	case Active:
		return "active"
	case Passive:
		return "passive"
	default:
		return fmt.Sprintf("event(%d)", int(t))
	}
}

// Param names one entry of a group.
type Param string

const (
	ParamInitial Param = "initial"
	ParamDelay   Param = "delay"
	ParamActive  Param = "active"
	ParamTotal   Param = "total"
	ParamRepeats Param = "repeats"
)

// Coordinate is a value tagged with the domain it belongs to.
// The zero Coordinate has DomainDefault and is invalid for arithmetic.
type Coordinate struct {
	domain Domain
	value  float64
}

// Time returns a Time-domain coordinate in seconds.
func Time(seconds float64) Coordinate {
	return Coordinate{domain: DomainTime, value: seconds}
}

// Position returns a Position-domain coordinate.
func Position(p float64) Coordinate {
	return Coordinate{domain: DomainPosition, value: p}
}

// Domain returns the coordinate's domain.
func (c Coordinate) Domain() Domain { return c.domain }

// Value returns the raw value.
func (c Coordinate) Value() float64 { return c.value }

// Add returns c+o. Coordinates of different domains cannot be combined.
func (c Coordinate) Add(o Coordinate) (Coordinate, error) {
	if err := c.sameDomain(o); err != nil {
		return Coordinate{}, err
	}
	return Coordinate{domain: c.domain, value: c.value + o.value}, nil
}

// Sub returns c-o. Coordinates of different domains cannot be combined.
func (c Coordinate) Sub(o Coordinate) (Coordinate, error) {
	if err := c.sameDomain(o); err != nil {
		return Coordinate{}, err
	}
	return Coordinate{domain: c.domain, value: c.value - o.value}, nil
}

// Scale returns c multiplied by k, keeping its domain.
func (c Coordinate) Scale(k float64) Coordinate {
	return Coordinate{domain: c.domain, value: c.value * k}
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%s(%g)", c.domain, c.value)
}

func (c Coordinate) sameDomain(o Coordinate) error {
	if c.domain == DomainDefault || o.domain == DomainDefault {
		return NewConfigurationError("coordinate without domain")
	}
	if c.domain != o.domain {
		return NewConfigurationError(fmt.Sprintf("cannot combine %s and %s coordinates", c.domain, o.domain))
	}
	return nil
}
