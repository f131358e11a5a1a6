package synch

import (
	"fmt"
	"math"
)

// Values holds one group parameter in each domain. A nil field means the
// value was not supplied for that domain.
type Values struct {
	Time     *float64 `json:"time,omitempty" yaml:"time,omitempty"`
	Position *float64 `json:"position,omitempty" yaml:"position,omitempty"`
}

// At builds Values from coordinates. Later coordinates of the same domain
// replace earlier ones.
func At(cs ...Coordinate) Values {
	var v Values
	for _, c := range cs {
		x := c.Value()
		switch c.Domain() {
		case DomainTime:
			v.Time = &x
		case DomainPosition:
			v.Position = &x
		}
	}
	return v
}

// Get returns the coordinate for domain d, if supplied.
func (v Values) Get(d Domain) (Coordinate, bool) {
	switch d {
	case DomainTime:
		if v.Time != nil {
			return Time(*v.Time), true
		}
	case DomainPosition:
		if v.Position != nil {
			return Position(*v.Position), true
		}
	}
	return Coordinate{}, false
}

// Has reports whether a value was supplied for domain d.
func (v Values) Has(d Domain) bool {
	_, ok := v.Get(d)
	return ok
}

// IsZero reports whether no domain was supplied.
func (v Values) IsZero() bool {
	return v.Time == nil && v.Position == nil
}

func (v Values) clone() Values {
	var out Values
	if v.Time != nil {
		t := *v.Time
		out.Time = &t
	}
	if v.Position != nil {
		p := *v.Position
		out.Position = &p
	}
	return out
}

// Group describes Repeats cycles sharing the same timing.
type Group struct {
	// Initial is the starting coordinate. Omitted domains continue from
	// where the previous group ended (0 for the first group).
	Initial Values `json:"initial,omitempty" yaml:"initial,omitempty"`

	// Delay is added before the first Active event of the group. Defaults to 0.
	Delay Values `json:"delay,omitempty" yaml:"delay,omitempty"`

	// Active is the extent of the "on" period.
	Active Values `json:"active" yaml:"active"`

	// Total is the extent of one full cycle (Active + Passive).
	Total Values `json:"total" yaml:"total"`

	// Repeats is the number of cycles. Zero is legal.
	Repeats int `json:"repeats" yaml:"repeats"`
}

// MaxRepeats bounds the cycles of a description, per group and in total.
// Expanded timelines hold three float64 slices of this length.
const MaxRepeats = 1 << 24

// Description is an ordered sequence of groups.
type Description []Group

// TotalRepeats returns the number of cycles across all groups. The sum
// saturates at math.MaxInt; Validate rejects anything above MaxRepeats.
func (d Description) TotalRepeats() int {
	n := 0
	for _, g := range d {
		if g.Repeats <= 0 {
			continue
		}
		if g.Repeats > math.MaxInt-n {
			return math.MaxInt
		}
		n += g.Repeats
	}
	return n
}

// Has reports whether every group with cycles supplies Active and Total in
// domain dom.
func (d Description) Has(dom Domain) bool {
	if len(d) == 0 {
		return false
	}
	for _, g := range d {
		if g.Repeats == 0 {
			continue
		}
		if !g.Active.Has(dom) || !g.Total.Has(dom) {
			return false
		}
	}
	return true
}

// InferDirection returns -1 when the first Position Total found is
// negative, otherwise +1.
func (d Description) InferDirection() int {
	for _, g := range d {
		if g.Total.Position != nil && *g.Total.Position != 0 {
			if *g.Total.Position < 0 {
				return -1
			}
			return 1
		}
	}
	return 1
}

// Validate checks the parts of the description that do not depend on the
// domains chosen for playback.
func (d Description) Validate() error {
	total := 0
	for i, g := range d {
		if g.Repeats < 0 {
			return NewGroupError(i, fmt.Sprintf("%s must be >= 0, got %d", ParamRepeats, g.Repeats))
		}
		if g.Repeats > MaxRepeats-total {
			return NewGroupError(i, fmt.Sprintf("%s exceeds %d cycles in total", ParamRepeats, MaxRepeats))
		}
		total += g.Repeats
		for _, pv := range []struct {
			param Param
			vals  Values
		}{
			{ParamInitial, g.Initial},
			{ParamDelay, g.Delay},
			{ParamActive, g.Active},
			{ParamTotal, g.Total},
		} {
			for _, x := range []*float64{pv.vals.Time, pv.vals.Position} {
				if x != nil && (math.IsNaN(*x) || math.IsInf(*x, 0)) {
					return NewGroupError(i, fmt.Sprintf("%s is not a finite number", pv.param))
				}
			}
		}
	}
	return nil
}

// Clone returns a deep copy.
func (d Description) Clone() Description {
	if d == nil {
		return nil
	}
	out := make(Description, len(d))
	for i, g := range d {
		out[i] = Group{
			Initial: g.Initial.clone(),
			Delay:   g.Delay.clone(),
			Active:  g.Active.clone(),
			Total:   g.Total.clone(),
			Repeats: g.Repeats,
		}
	}
	return out
}
