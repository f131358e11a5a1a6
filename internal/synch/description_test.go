package synch

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func timeGroup(initial, delay, active, total float64, repeats int) Group {
	return Group{
		Initial: At(Time(initial)),
		Delay:   At(Time(delay)),
		Active:  At(Time(active)),
		Total:   At(Time(total)),
		Repeats: repeats,
	}
}

func TestValues_At(t *testing.T) {
	v := At(Time(1), Position(-2), Time(3))
	c, ok := v.Get(DomainTime)
	require.True(t, ok)
	assert.Equal(t, 3.0, c.Value())

	c, ok = v.Get(DomainPosition)
	require.True(t, ok)
	assert.Equal(t, -2.0, c.Value())

	_, ok = Values{}.Get(DomainTime)
	assert.False(t, ok)
	assert.True(t, Values{}.IsZero())
	assert.False(t, v.IsZero())
}

func TestDescription_TotalRepeats(t *testing.T) {
	d := Description{
		timeGroup(0, 0, 0.1, 0.2, 3),
		timeGroup(0, 0, 0.1, 0.2, 0),
		timeGroup(0, 0, 0.1, 0.2, 4),
	}
	assert.Equal(t, 7, d.TotalRepeats())
}

func TestDescription_Has(t *testing.T) {
	d := Description{timeGroup(0, 0, 0.1, 0.2, 3)}
	assert.True(t, d.Has(DomainTime))
	assert.False(t, d.Has(DomainPosition))
	assert.False(t, Description{}.Has(DomainTime))

	// Empty groups do not need values.
	d = append(d, Group{Repeats: 0})
	assert.True(t, d.Has(DomainTime))
}

func TestDescription_InferDirection(t *testing.T) {
	d := Description{{Active: At(Position(-0.1)), Total: At(Position(-0.2)), Repeats: 1}}
	assert.Equal(t, -1, d.InferDirection())

	d = Description{{Active: At(Position(0.1)), Total: At(Position(0.2)), Repeats: 1}}
	assert.Equal(t, 1, d.InferDirection())

	assert.Equal(t, 1, Description{timeGroup(0, 0, 1, 2, 1)}.InferDirection())
}

func TestDescription_Validate(t *testing.T) {
	require.NoError(t, Description{timeGroup(0, 0.1, 0.1, 0.2, 10)}.Validate())

	err := Description{timeGroup(0, 0, 0.1, 0.2, 1), timeGroup(0, 0, 0.1, 0.2, -1)}.Validate()
	require.Error(t, err)
	assert.True(t, IsConfigurationError(err))
	assert.Contains(t, err.Error(), "group=1")

	err = Description{timeGroup(0, 0, math.NaN(), 0.2, 1)}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "active is not a finite number")
}

func TestDescription_ValidateRepeatsLimit(t *testing.T) {
	require.NoError(t, Description{timeGroup(0, 0, 0.1, 0.2, MaxRepeats)}.Validate())

	err := Description{timeGroup(0, 0, 0.1, 0.2, math.MaxInt/2)}.Validate()
	require.Error(t, err)
	assert.True(t, IsConfigurationError(err))
	assert.Contains(t, err.Error(), "repeats exceeds")

	d := Description{timeGroup(0, 0, 0.1, 0.2, math.MaxInt), timeGroup(0, 0, 0.1, 0.2, 2)}
	err = d.Validate()
	require.Error(t, err)
	assert.True(t, IsConfigurationError(err))
	assert.Contains(t, err.Error(), "group=0")

	d = Description{timeGroup(0, 0, 0.1, 0.2, MaxRepeats), timeGroup(0, 0, 0.1, 0.2, 1)}
	err = d.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "group=1")
}

func TestDescription_TotalRepeatsSaturates(t *testing.T) {
	d := Description{timeGroup(0, 0, 0.1, 0.2, math.MaxInt), timeGroup(0, 0, 0.1, 0.2, 2)}
	assert.Equal(t, math.MaxInt, d.TotalRepeats())
}

func TestDescription_CloneIsDeep(t *testing.T) {
	d := Description{timeGroup(0, 0, 0.1, 0.2, 1)}
	c := d.Clone()
	*c[0].Active.Time = 5

	assert.Equal(t, 0.1, *d[0].Active.Time)
	assert.Nil(t, Description(nil).Clone())
}
