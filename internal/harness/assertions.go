package harness

import (
	"fmt"
	"slices"
	"strings"
)

// AssertionError describes a failed assertion.
type AssertionError struct {
	Index   int
	Type    string
	Message string
}

func (e *AssertionError) Error() string {
	return fmt.Sprintf("assertion %d (%s): %s", e.Index, e.Type, e.Message)
}

// EvaluateAssertions checks every assertion against the result and returns
// one message per failure. An empty slice means all assertions held.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	msgs := []string{}
	for i, a := range assertions {
		if err := evaluateAssertion(result, i, a); err != nil {
			msgs = append(msgs, err.Error())
		}
	}
	return msgs
}

func evaluateAssertion(result *Result, index int, a Assertion) error {
	fail := func(format string, args ...any) error {
		return &AssertionError{Index: index, Type: a.Type, Message: fmt.Sprintf(format, args...)}
	}

	switch a.Type {
	case AssertEventCount:
		got := len(eventIndices(result, a.Event))
		if got != a.Count {
			return fail("expected %d %s events, got %d", a.Count, a.Event, got)
		}

	case AssertEventOrder:
		got := eventIndices(result, a.Event)
		if !slices.Equal(got, a.Indices) {
			return fail("expected %s indices %v, got %v", a.Event, a.Indices, got)
		}

	case AssertCallOrder:
		got := controllerCalls(result, a.Controller)
		if !slices.Equal(got, a.Calls) {
			return fail("controller %s: expected calls %v, got %v", a.Controller, a.Calls, got)
		}

	case AssertCallCount:
		got := 0
		for _, call := range controllerCalls(result, a.Controller) {
			if callName(call) == a.Call {
				got++
			}
		}
		if got != a.Count {
			return fail("controller %s: expected %d %s calls, got %d", a.Controller, a.Count, a.Call, got)
		}

	case AssertFinalState:
		got, ok := result.States[a.Element]
		if !ok {
			return fail("element %s not found", a.Element)
		}
		if !strings.EqualFold(got, a.State) {
			return fail("element %s: expected state %s, got %s", a.Element, a.State, got)
		}

	case AssertListenerCount:
		got, ok := result.Listeners[a.Listener]
		if !ok {
			return fail("listener %s not found", a.Listener)
		}
		if got != a.Count {
			return fail("listener %s: expected %d events, got %d", a.Listener, a.Count, got)
		}

	default:
		return fail("unknown assertion type")
	}
	return nil
}

func eventIndices(result *Result, typ string) []int {
	out := []int{}
	for _, ev := range result.Events {
		if ev.Type == typ {
			out = append(out, ev.Index)
		}
	}
	return out
}

func controllerCalls(result *Result, controller string) []string {
	out := []string{}
	for _, c := range result.Calls {
		if c.Controller == controller {
			out = append(out, c.Call)
		}
	}
	return out
}

// callName strips the axis from a call such as "SynchOne(1)".
func callName(call string) string {
	if i := strings.IndexByte(call, '('); i >= 0 {
		return call[:i]
	}
	return call
}
