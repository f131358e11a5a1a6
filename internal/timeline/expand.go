package timeline

import (
	"fmt"
	"math"

	"github.com/roach88/tgsync/internal/synch"
)

// Timeline is an expanded description: one Active and one Passive
// coordinate per cycle, in the configured domains.
//
// INVARIANTS:
//   - len(Active) == len(Passive) == description.TotalRepeats()
//   - Passive[i] - (cycle i start in PassiveDomain) == the group's Active extent
//   - both sequences are monotonic in Direction
type Timeline struct {
	ActiveDomain  synch.Domain
	PassiveDomain synch.Domain
	Direction     int

	Active  []float64
	Passive []float64

	// cycleStart[i] is the start of cycle i expressed in PassiveDomain.
	// Equal to Active[i] when both domains match.
	cycleStart []float64
}

// Len returns the number of cycles.
func (t *Timeline) Len() int {
	return len(t.Active)
}

// PassiveOffset returns the Active extent of cycle i in the passive domain.
func (t *Timeline) PassiveOffset(i int) float64 {
	return t.Passive[i] - t.cycleStart[i]
}

// Coordinate returns the nominal coordinate of event (typ, i).
func (t *Timeline) Coordinate(typ synch.EventType, i int) synch.Coordinate {
	if typ == synch.Passive {
		return coordinate(t.PassiveDomain, t.Passive[i])
	}
	return coordinate(t.ActiveDomain, t.Active[i])
}

func coordinate(d synch.Domain, v float64) synch.Coordinate {
	if d == synch.DomainPosition {
		return synch.Position(v)
	}
	return synch.Time(v)
}

// Expand computes the event sequences for desc.
//
// For cycle k of a group:
//
//	active  = initial + delay + k*total
//	passive = active + activeExtent
//
// Position extents (delay, active, total) are scaled as |v|*direction;
// Time extents must be non-negative and ignore direction. A group without
// an Initial value for a domain starts where the previous group ended
// (initial + delay + repeats*total), or at 0 for the first group.
//
// Nothing is returned unless every group validates.
func Expand(desc synch.Description, active, passive synch.Domain, direction int) (*Timeline, error) {
	if err := checkDomain("active", active); err != nil {
		return nil, err
	}
	if err := checkDomain("passive", passive); err != nil {
		return nil, err
	}
	if direction != 1 && direction != -1 {
		return nil, synch.NewConfigurationError(fmt.Sprintf("direction must be 1 or -1, got %d", direction))
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}

	domains := []synch.Domain{active}
	if passive != active {
		domains = append(domains, passive)
	}

	n := desc.TotalRepeats()
	tl := &Timeline{
		ActiveDomain:  active,
		PassiveDomain: passive,
		Direction:     direction,
		Active:        make([]float64, 0, n),
		Passive:       make([]float64, 0, n),
		cycleStart:    make([]float64, 0, n),
	}

	carried := map[synch.Domain]synch.Coordinate{
		synch.DomainTime:     synch.Time(0),
		synch.DomainPosition: synch.Position(0),
	}

	for gi, g := range desc {
		params := make(map[synch.Domain]groupParams, len(domains))
		for _, d := range domains {
			p, err := resolveGroup(gi, g, d, direction, carried[d])
			if err != nil {
				return nil, err
			}
			params[d] = p
			carried[d] = p.end
		}

		pa, pp := params[active], params[passive]
		for k := 0; k < g.Repeats; k++ {
			fk := float64(k)
			tl.Active = append(tl.Active, pa.start+fk*pa.total)
			start := pp.start + fk*pp.total
			tl.cycleStart = append(tl.cycleStart, start)
			tl.Passive = append(tl.Passive, start+pp.active)
		}
	}

	return tl, nil
}

type groupParams struct {
	start  float64 // initial + delay
	active float64
	total  float64
	end    synch.Coordinate
}

func resolveGroup(gi int, g synch.Group, d synch.Domain, direction int, carried synch.Coordinate) (groupParams, error) {
	initial := carried
	if c, ok := g.Initial.Get(d); ok {
		initial = c
	}

	delay := coordinate(d, 0)
	if c, ok := g.Delay.Get(d); ok {
		v, err := extent(gi, synch.ParamDelay, c, direction)
		if err != nil {
			return groupParams{}, err
		}
		delay = v
	}

	start, err := initial.Add(delay)
	if err != nil {
		return groupParams{}, err
	}

	if g.Repeats == 0 {
		// Contributes no events; Active/Total are optional.
		return groupParams{start: start.Value(), end: start}, nil
	}

	act, ok := g.Active.Get(d)
	if !ok {
		return groupParams{}, synch.NewGroupError(gi, fmt.Sprintf("%s has no %s value", synch.ParamActive, d))
	}
	tot, ok := g.Total.Get(d)
	if !ok {
		return groupParams{}, synch.NewGroupError(gi, fmt.Sprintf("%s has no %s value", synch.ParamTotal, d))
	}
	if act, err = extent(gi, synch.ParamActive, act, direction); err != nil {
		return groupParams{}, err
	}
	if tot, err = extent(gi, synch.ParamTotal, tot, direction); err != nil {
		return groupParams{}, err
	}
	if math.Abs(act.Value()) > math.Abs(tot.Value()) {
		return groupParams{}, synch.NewGroupError(gi, fmt.Sprintf("%s (%g) exceeds %s (%g) in %s domain",
			synch.ParamActive, act.Value(), synch.ParamTotal, tot.Value(), d))
	}

	end, err := start.Add(tot.Scale(float64(g.Repeats)))
	if err != nil {
		return groupParams{}, err
	}

	return groupParams{
		start:  start.Value(),
		active: act.Value(),
		total:  tot.Value(),
		end:    end,
	}, nil
}

// extent applies the domain's sign rules to a relative group value.
func extent(gi int, param synch.Param, c synch.Coordinate, direction int) (synch.Coordinate, error) {
	if c.Domain() == synch.DomainTime {
		if c.Value() < 0 {
			return synch.Coordinate{}, synch.NewGroupError(gi, fmt.Sprintf("%s must be >= 0 in time domain, got %g", param, c.Value()))
		}
		return c, nil
	}
	return synch.Position(math.Abs(c.Value()) * float64(direction)), nil
}

func checkDomain(role string, d synch.Domain) error {
	if d != synch.DomainTime && d != synch.DomainPosition {
		return synch.NewConfigurationError(fmt.Sprintf("%s domain must be time or position, got %s", role, d))
	}
	return nil
}
