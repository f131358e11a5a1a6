package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func sampleResult() *Result {
	r := NewResult()
	r.Calls = []CallTrace{
		{Controller: "tgctrl01", Call: "PreSynchAll"},
		{Controller: "tgctrl01", Call: "SynchOne(1)"},
		{Controller: "tgctrl01", Call: "SynchOne(2)"},
		{Controller: "tgctrl02", Call: "StartAll"},
	}
	r.Events = []EventTrace{
		{Seq: 1, Type: "active", Index: 0},
		{Seq: 2, Type: "passive", Index: 0},
		{Seq: 3, Type: "active", Index: 1},
	}
	r.States["tg01"] = "On"
	r.Listeners["acq01"] = 3
	return r
}

func TestEvaluateAssertions_Pass(t *testing.T) {
	msgs := EvaluateAssertions(sampleResult(), []Assertion{
		{Type: AssertEventCount, Event: "active", Count: 2},
		{Type: AssertEventOrder, Event: "active", Indices: []int{0, 1}},
		{Type: AssertCallOrder, Controller: "tgctrl02", Calls: []string{"StartAll"}},
		{Type: AssertCallCount, Controller: "tgctrl01", Call: "SynchOne", Count: 2},
		{Type: AssertFinalState, Element: "tg01", State: "on"},
		{Type: AssertListenerCount, Listener: "acq01", Count: 3},
	})
	assert.Empty(t, msgs)
}

func TestEvaluateAssertions_Failures(t *testing.T) {
	tests := []struct {
		name      string
		assertion Assertion
		want      string
	}{
		{"event count", Assertion{Type: AssertEventCount, Event: "passive", Count: 2}, "expected 2 passive events, got 1"},
		{"event order", Assertion{Type: AssertEventOrder, Event: "active", Indices: []int{1, 0}}, "expected active indices [1 0], got [0 1]"},
		{"call order", Assertion{Type: AssertCallOrder, Controller: "tgctrl01", Calls: []string{"PreSynchAll"}}, "controller tgctrl01: expected calls"},
		{"call count", Assertion{Type: AssertCallCount, Controller: "tgctrl02", Call: "StartOne", Count: 1}, "expected 1 StartOne calls, got 0"},
		{"missing element", Assertion{Type: AssertFinalState, Element: "tg09", State: "On"}, "element tg09 not found"},
		{"wrong state", Assertion{Type: AssertFinalState, Element: "tg01", State: "Moving"}, "expected state Moving, got On"},
		{"missing listener", Assertion{Type: AssertListenerCount, Listener: "ct01"}, "listener ct01 not found"},
		{"listener count", Assertion{Type: AssertListenerCount, Listener: "acq01", Count: 4}, "expected 4 events, got 3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msgs := EvaluateAssertions(sampleResult(), []Assertion{tt.assertion})
			if assert.Len(t, msgs, 1) {
				assert.Contains(t, msgs[0], tt.want)
				assert.Contains(t, msgs[0], "assertion 0 ("+tt.assertion.Type+")")
			}
		})
	}
}

func TestCallName(t *testing.T) {
	assert.Equal(t, "SynchOne", callName("SynchOne(12)"))
	assert.Equal(t, "SynchAll", callName("SynchAll"))
}
