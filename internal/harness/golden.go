package harness

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// TraceSnapshot captures the complete trace of a scenario execution.
// Coordinates are pre-formatted strings so the snapshot is byte-stable.
type TraceSnapshot struct {
	ScenarioName string            `json:"scenario_name"`
	RunID        string            `json:"run_id"`
	Outcome      string            `json:"outcome"`
	Error        string            `json:"error,omitempty"`
	Calls        []CallTrace       `json:"calls"`
	Events       []EventTrace      `json:"events"`
	States       map[string]string `json:"states"`
}

// Snapshot builds the golden snapshot of a result.
func Snapshot(name string, result *Result) TraceSnapshot {
	return TraceSnapshot{
		ScenarioName: name,
		RunID:        result.RunID,
		Outcome:      result.Outcome,
		Error:        result.ErrorText(),
		Calls:        result.Calls,
		Events:       result.Events,
		States:       result.States,
	}
}

// MarshalSnapshot renders a snapshot as indented JSON with a trailing
// newline. encoding/json sorts map keys, so the output is deterministic.
func MarshalSnapshot(s TraceSnapshot) ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if trace doesn't match golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an already computed result against a golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := MarshalSnapshot(Snapshot(scenarioName, result))
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
