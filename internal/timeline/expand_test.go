package timeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tgsync/internal/synch"
)

const tolerance = 1e-9

func timeGroup(initial, delay, active, total float64, repeats int) synch.Group {
	return synch.Group{
		Initial: synch.At(synch.Time(initial)),
		Delay:   synch.At(synch.Time(delay)),
		Active:  synch.At(synch.Time(active)),
		Total:   synch.At(synch.Time(total)),
		Repeats: repeats,
	}
}

func positionGroup(active, total float64, repeats int) synch.Group {
	return synch.Group{
		Active:  synch.At(synch.Position(active)),
		Total:   synch.At(synch.Position(total)),
		Repeats: repeats,
	}
}

func TestExpand_TimeScenario(t *testing.T) {
	desc := synch.Description{timeGroup(0, 0.1, 0.1, 0.2, 10)}

	tl, err := Expand(desc, synch.DomainTime, synch.DomainTime, 1)
	require.NoError(t, err)
	require.Equal(t, 10, tl.Len())
	require.Len(t, tl.Passive, 10)

	for i := 0; i < 10; i++ {
		assert.InDelta(t, 0.1+0.2*float64(i), tl.Active[i], tolerance, "active %d", i)
		assert.InDelta(t, 0.2+0.2*float64(i), tl.Passive[i], tolerance, "passive %d", i)
	}
}

func TestExpand_PositionDecreasing(t *testing.T) {
	desc := synch.Description{positionGroup(-0.1, -0.2, 10)}

	tl, err := Expand(desc, synch.DomainPosition, synch.DomainPosition, -1)
	require.NoError(t, err)
	require.Equal(t, 10, tl.Len())

	for i := 0; i < 10; i++ {
		assert.InDelta(t, -0.2*float64(i), tl.Active[i], tolerance)
		assert.InDelta(t, -0.1, tl.Passive[i]-tl.Active[i], tolerance)
	}
}

func TestExpand_PositionMagnitudesFollowDirection(t *testing.T) {
	// Unsigned extents are scaled by direction.
	pos, err := Expand(synch.Description{positionGroup(0.1, 0.2, 3)}, synch.DomainPosition, synch.DomainPosition, -1)
	require.NoError(t, err)
	neg, err := Expand(synch.Description{positionGroup(-0.1, -0.2, 3)}, synch.DomainPosition, synch.DomainPosition, -1)
	require.NoError(t, err)

	assert.Equal(t, neg.Active, pos.Active)
	assert.Equal(t, neg.Passive, pos.Passive)
}

func TestExpand_Invariants(t *testing.T) {
	descs := map[string]synch.Description{
		"single": {timeGroup(0, 0.1, 0.1, 0.2, 10)},
		"multi": {
			timeGroup(0, 0, 0.05, 0.1, 4),
			timeGroup(0.5, 0.01, 0.2, 0.3, 3),
			{Active: synch.At(synch.Time(0.01)), Total: synch.At(synch.Time(0.01)), Repeats: 5},
		},
		"empty group": {
			timeGroup(0, 0, 0.1, 0.2, 2),
			{Repeats: 0},
			timeGroup(1, 0, 0.1, 0.2, 2),
		},
		"zero total": {timeGroup(1, 0, 0, 0, 3)},
	}

	for name, desc := range descs {
		t.Run(name, func(t *testing.T) {
			tl, err := Expand(desc, synch.DomainTime, synch.DomainTime, 1)
			require.NoError(t, err)

			require.Equal(t, desc.TotalRepeats(), len(tl.Active))
			require.Equal(t, len(tl.Active), len(tl.Passive))

			for i := 1; i < tl.Len(); i++ {
				assert.GreaterOrEqual(t, tl.Active[i], tl.Active[i-1], "active %d", i)
				assert.GreaterOrEqual(t, tl.Passive[i], tl.Passive[i-1], "passive %d", i)
			}

			i := 0
			for _, g := range desc {
				for k := 0; k < g.Repeats; k++ {
					assert.InDelta(t, *g.Active.Time, tl.Passive[i]-tl.Active[i], tolerance)
					if k > 0 {
						assert.InDelta(t, *g.Total.Time, tl.Active[i]-tl.Active[i-1], tolerance)
					}
					i++
				}
			}
		})
	}
}

func TestExpand_InitialCarriedForward(t *testing.T) {
	desc := synch.Description{
		timeGroup(1, 0.5, 0.1, 0.2, 2),
		{Delay: synch.At(synch.Time(0.05)), Active: synch.At(synch.Time(0.1)), Total: synch.At(synch.Time(0.3)), Repeats: 2},
	}

	tl, err := Expand(desc, synch.DomainTime, synch.DomainTime, 1)
	require.NoError(t, err)

	// First group ends at 1 + 0.5 + 2*0.2 = 1.9.
	want := []float64{1.5, 1.7, 1.95, 2.25}
	for i, w := range want {
		assert.InDelta(t, w, tl.Active[i], tolerance, "active %d", i)
	}
}

func TestExpand_EmptyGroupStillCarriesDelay(t *testing.T) {
	desc := synch.Description{
		{Initial: synch.At(synch.Time(2)), Delay: synch.At(synch.Time(1)), Repeats: 0},
		{Active: synch.At(synch.Time(0.1)), Total: synch.At(synch.Time(0.2)), Repeats: 1},
	}

	tl, err := Expand(desc, synch.DomainTime, synch.DomainTime, 1)
	require.NoError(t, err)
	require.Equal(t, 1, tl.Len())
	assert.InDelta(t, 3.0, tl.Active[0], tolerance)
}

func TestExpand_MixedDomains(t *testing.T) {
	desc := synch.Description{{
		Initial: synch.At(synch.Position(10), synch.Time(0)),
		Active:  synch.At(synch.Position(0.5), synch.Time(0.05)),
		Total:   synch.At(synch.Position(1), synch.Time(0.1)),
		Repeats: 3,
	}}

	tl, err := Expand(desc, synch.DomainPosition, synch.DomainTime, 1)
	require.NoError(t, err)

	assert.InDeltaSlice(t, []float64{10, 11, 12}, tl.Active, tolerance)
	assert.InDeltaSlice(t, []float64{0.05, 0.15, 0.25}, tl.Passive, tolerance)
	for i := 0; i < 3; i++ {
		assert.InDelta(t, 0.05, tl.PassiveOffset(i), tolerance)
	}

	assert.Equal(t, synch.Position(11), tl.Coordinate(synch.Active, 1))
	assert.Equal(t, synch.DomainTime, tl.Coordinate(synch.Passive, 1).Domain())
}

func TestExpand_Errors(t *testing.T) {
	tests := []struct {
		name    string
		desc    synch.Description
		active  synch.Domain
		passive synch.Domain
		dir     int
		msg     string
	}{
		{
			name:   "missing domain value",
			desc:   synch.Description{timeGroup(0, 0, 0.1, 0.2, 1)},
			active: synch.DomainPosition, passive: synch.DomainPosition, dir: 1,
			msg: "active has no position value",
		},
		{
			name:   "missing total",
			desc:   synch.Description{{Active: synch.At(synch.Time(0.1)), Repeats: 1}},
			active: synch.DomainTime, passive: synch.DomainTime, dir: 1,
			msg: "total has no time value",
		},
		{
			name:   "negative repeats",
			desc:   synch.Description{timeGroup(0, 0, 0.1, 0.2, -1)},
			active: synch.DomainTime, passive: synch.DomainTime, dir: 1,
			msg: "repeats must be >= 0",
		},
		{
			name:   "negative time",
			desc:   synch.Description{timeGroup(0, 0, -0.1, 0.2, 1)},
			active: synch.DomainTime, passive: synch.DomainTime, dir: 1,
			msg: "active must be >= 0 in time domain",
		},
		{
			name:   "active exceeds total",
			desc:   synch.Description{timeGroup(0, 0, 0.3, 0.2, 1)},
			active: synch.DomainTime, passive: synch.DomainTime, dir: 1,
			msg: "exceeds total",
		},
		{
			name:   "bad direction",
			desc:   synch.Description{timeGroup(0, 0, 0.1, 0.2, 1)},
			active: synch.DomainTime, passive: synch.DomainTime, dir: 0,
			msg: "direction must be 1 or -1",
		},
		{
			name:   "default domain",
			desc:   synch.Description{timeGroup(0, 0, 0.1, 0.2, 1)},
			active: synch.DomainDefault, passive: synch.DomainTime, dir: 1,
			msg: "active domain must be time or position",
		},
		{
			name:   "passive domain missing value",
			desc:   synch.Description{timeGroup(0, 0, 0.1, 0.2, 1)},
			active: synch.DomainTime, passive: synch.DomainPosition, dir: 1,
			msg: "no position value",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tl, err := Expand(tt.desc, tt.active, tt.passive, tt.dir)
			require.Error(t, err)
			assert.Nil(t, tl)
			assert.True(t, synch.IsConfigurationError(err), "got %v", err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestExpand_ZeroRepeatGroupNeedsNoValues(t *testing.T) {
	desc := synch.Description{{Repeats: 0}}
	tl, err := Expand(desc, synch.DomainTime, synch.DomainTime, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, tl.Len())
}
