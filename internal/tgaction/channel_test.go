package tgaction

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tgsync/internal/hw"
	"github.com/roach88/tgsync/internal/hw/sim"
	"github.com/roach88/tgsync/internal/synch"
)

func f(v float64) *float64 { return &v }

func testDesc() synch.Description {
	return synch.Description{{
		Initial: synch.Values{Time: f(0)},
		Delay:   synch.Values{Time: f(0.1)},
		Active:  synch.Values{Time: f(0.1)},
		Total:   synch.Values{Time: f(0.2)},
		Repeats: 10,
	}}
}

func calls(c *sim.Controller) []string {
	var out []string
	for _, call := range c.Calls() {
		out = append(out, call.String())
	}
	return out
}

func TestSynchronizeController_CallOrder(t *testing.T) {
	ctrl := sim.NewController("tgctrl01")
	require.NoError(t, SynchronizeController(context.Background(), ctrl, []int{1, 2}, testDesc()))

	assert.Equal(t, []string{
		"PreSynchAll",
		"PreSynchOne(1)", "SynchOne(1)",
		"PreSynchOne(2)", "SynchOne(2)",
		"SynchAll",
	}, calls(ctrl))
}

func TestSynchronizeController_RejectedAxis(t *testing.T) {
	ctrl := sim.NewController("tgctrl01", sim.RejectSynch(2))
	err := SynchronizeController(context.Background(), ctrl, []int{1, 2, 3}, testDesc())

	require.Error(t, err)
	assert.True(t, synch.IsProgrammingError(err))
	assert.Equal(t, "PROGRAMMING: PreSynchOne rejected by controller (controller=tgctrl01, axis=2)", err.Error())
	assert.NotContains(t, calls(ctrl), "SynchOne(2)")
	assert.NotContains(t, calls(ctrl), "SynchAll")
}

func TestSynchronizeController_HardwareFault(t *testing.T) {
	boom := errors.New("timeout")
	ctrl := sim.NewController("tgctrl01", sim.FailCall("SynchAll", boom))
	err := SynchronizeController(context.Background(), ctrl, []int{1}, testDesc())

	assert.True(t, synch.IsHardwareFault(err))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "HARDWARE_FAULT: SynchAll failed (controller=tgctrl01): timeout", err.Error())
}

func TestSynchronizeController_NotATriggerGateController(t *testing.T) {
	ctrl := sim.NewController("ct01").StartOnly()
	err := SynchronizeController(context.Background(), ctrl, []int{1}, testDesc())
	assert.True(t, synch.IsConfigurationError(err))
}

func TestStartController(t *testing.T) {
	ctrl := sim.NewController("tgctrl01")
	chs := []Channel{
		{Element: hw.NewElement("tg01", 1), Controller: ctrl},
		{Element: hw.NewElement("tg02", 2), Controller: ctrl},
	}
	require.NoError(t, StartController(context.Background(), ctrl, chs))
	assert.Equal(t, []string{
		"PreStartAll",
		"PreStartOne(1)", "StartOne(1)",
		"PreStartOne(2)", "StartOne(2)",
		"StartAll",
	}, calls(ctrl))
	for _, ch := range chs {
		assert.Equal(t, hw.StateMoving, ch.Element.(*hw.BaseElement).StateInfo().State)
		assert.Equal(t, Operation, ch.Element.(*hw.BaseElement).Operation())
	}

	rejecting := sim.NewController("tgctrl02", sim.RejectStart(1))
	el := hw.NewElement("tg03", 1)
	err := StartController(context.Background(), rejecting, []Channel{{Element: el, Controller: rejecting}})
	assert.True(t, synch.IsProgrammingError(err))
	assert.False(t, rejecting.Called("StartOne"))
	assert.Empty(t, el.Operation())
}

func TestStartController_StartAllFailureFaultsChannels(t *testing.T) {
	ctrl := sim.NewController("tgctrl01", sim.FailCall("StartAll", errors.New("bus timeout")))
	el := hw.NewElement("tg01", 1)
	err := StartController(context.Background(), ctrl, []Channel{{Element: el, Controller: ctrl}})

	assert.True(t, synch.IsHardwareFault(err))
	assert.Equal(t, hw.StateFault, el.StateInfo().State)
	assert.Empty(t, el.Operation())
}

func TestReadStates_GroupsPerController(t *testing.T) {
	ctx := context.Background()
	a := sim.NewController("a", sim.WithMovingReads(1))
	b := sim.NewController("b", sim.FailRead(4, errors.New("lost")))
	require.NoError(t, a.StartOne(ctx, 1))

	chs := []Channel{
		{Element: hw.NewElement("a1", 1), Controller: a},
		{Element: hw.NewElement("b4", 4), Controller: b},
		{Element: hw.NewElement("a2", 2), Controller: a},
	}
	states, err := ReadStates(ctx, chs)
	require.NoError(t, err)

	require.Len(t, states, 3)
	assert.Equal(t, hw.StateMoving, states[0].State)
	assert.Equal(t, hw.StateInfo{State: hw.StateFault, Status: "lost"}, states[1])
	assert.Equal(t, hw.StateOn, states[2].State)
	assert.True(t, AnyMoving(states))
}

func TestReadStates_ControllerFailure(t *testing.T) {
	ctrl := sim.NewController("a", sim.FailCall("ReadStateInfo", errors.New("offline")))
	_, err := ReadStates(context.Background(), []Channel{{Element: hw.NewElement("a1", 1), Controller: ctrl}})
	assert.True(t, synch.IsHardwareFault(err))
}

func TestMarkMovingAndFinalize(t *testing.T) {
	el := hw.NewElement("tg01", 1)
	ch := Channel{Element: el, Controller: sim.NewController("a")}

	MarkMoving(ch)
	assert.Equal(t, Operation, el.Operation())
	assert.Equal(t, hw.StateMoving, el.StateInfo().State)

	Finalize(ch, hw.StateInfo{State: hw.StateOn, Status: "done"})
	assert.Empty(t, el.Operation())
	assert.Equal(t, hw.StateInfo{State: hw.StateOn, Status: "done"}, el.StateInfo())
	assert.Equal(t, "tg01(a:1)", ch.String())
}
