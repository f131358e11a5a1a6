package harness

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/tgsync/internal/hw"
	"github.com/roach88/tgsync/internal/synch"
)

// Scenario defines a synchronization scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// ActiveDomain and PassiveDomain select the generator's domains.
	// Empty means default resolution by the orchestrator.
	ActiveDomain  string `yaml:"active_domain,omitempty"`
	PassiveDomain string `yaml:"passive_domain,omitempty"`

	// Direction is 1, -1, or 0 to infer it.
	Direction int `yaml:"direction,omitempty"`

	// Synchronization is the description programmed on every channel and
	// played back by the generator.
	Synchronization synch.Description `yaml:"synchronization"`

	// Controllers are the simulated hardware controllers.
	Controllers []ControllerSpec `yaml:"controllers,omitempty"`

	// Listeners names the software listeners attached to the generator.
	Listeners []string `yaml:"listeners,omitempty"`

	// Moveable drives Position-domain playback.
	Moveable *MoveableSpec `yaml:"moveable,omitempty"`

	// ExpectError is the expected error category: configuration,
	// programming or hardware_fault. Empty means the run must succeed.
	ExpectError string `yaml:"expect_error,omitempty"`

	// Assertions validate the trace and final state.
	Assertions []Assertion `yaml:"assertions"`
}

// ControllerSpec configures a simulated controller.
type ControllerSpec struct {
	Name string `yaml:"name"`

	// MovingReads is how many state reads a started axis reports Moving.
	MovingReads int `yaml:"moving_reads,omitempty"`

	// RejectSynch and RejectStart list axes refused by PreSynchOne and
	// PreStartOne.
	RejectSynch []int `yaml:"reject_synch,omitempty"`
	RejectStart []int `yaml:"reject_start,omitempty"`

	// Fail maps call names to the error message they fail with.
	Fail map[string]string `yaml:"fail,omitempty"`

	// StartOnly removes the trigger-generation capability.
	StartOnly bool `yaml:"start_only,omitempty"`

	Channels []ChannelSpec `yaml:"channels"`
}

// ChannelSpec is one trigger/gate element.
type ChannelSpec struct {
	Element string `yaml:"element"`
	Axis    int    `yaml:"axis"`
	Type    string `yaml:"type,omitempty"`
}

// MoveableSpec is a simulated moveable swept from Start to Target.
type MoveableSpec struct {
	Name   string  `yaml:"name"`
	Start  float64 `yaml:"start"`
	Target float64 `yaml:"target"`
	Step   float64 `yaml:"step"`
}

// Assertion validates the outcome of a scenario.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Event is "active" or "passive" (event_count, event_order).
	Event string `yaml:"event,omitempty"`

	// Count is the expected number (event_count, call_count, listener_count).
	Count int `yaml:"count,omitempty"`

	// Indices is the expected index sequence (event_order).
	Indices []int `yaml:"indices,omitempty"`

	// Controller names a controller (call_order, call_count).
	Controller string `yaml:"controller,omitempty"`

	// Calls is the expected call list (call_order).
	Calls []string `yaml:"calls,omitempty"`

	// Call is a call name such as "StartOne" (call_count).
	Call string `yaml:"call,omitempty"`

	// Element and State check an element's final state (final_state).
	Element string `yaml:"element,omitempty"`
	State   string `yaml:"state,omitempty"`

	// Listener names a software listener (listener_count).
	Listener string `yaml:"listener,omitempty"`
}

// Assertion type constants.
const (
	AssertEventCount    = "event_count"
	AssertEventOrder    = "event_order"
	AssertCallOrder     = "call_order"
	AssertCallCount     = "call_count"
	AssertFinalState    = "final_state"
	AssertListenerCount = "listener_count"
)

// Expected error categories.
const (
	ErrorConfiguration = "configuration"
	ErrorProgramming   = "programming"
	ErrorHardwareFault = "hardware_fault"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return errors.New("name is required")
	}
	if s.Description == "" {
		return errors.New("description is required")
	}
	if len(s.Synchronization) == 0 {
		return errors.New("synchronization must have at least one group")
	}
	if _, err := synch.ParseDomain(s.ActiveDomain); err != nil {
		return fmt.Errorf("active_domain: %w", err)
	}
	if _, err := synch.ParseDomain(s.PassiveDomain); err != nil {
		return fmt.Errorf("passive_domain: %w", err)
	}
	if len(s.Assertions) == 0 {
		return errors.New("assertions list is required and must be non-empty")
	}

	switch s.ExpectError {
	case "", ErrorConfiguration, ErrorProgramming, ErrorHardwareFault:
	default:
		return fmt.Errorf("expect_error: unknown category %q", s.ExpectError)
	}

	names := make(map[string]bool)
	for i, c := range s.Controllers {
		if c.Name == "" {
			return fmt.Errorf("controllers[%d]: name is required", i)
		}
		if names[c.Name] {
			return fmt.Errorf("controllers[%d]: duplicate name %q", i, c.Name)
		}
		names[c.Name] = true
		for j, ch := range c.Channels {
			if ch.Element == "" {
				return fmt.Errorf("controllers[%d].channels[%d]: element is required", i, j)
			}
			if _, err := hw.ParseSynchType(ch.Type); err != nil {
				return fmt.Errorf("controllers[%d].channels[%d]: %w", i, j, err)
			}
		}
	}

	if m := s.Moveable; m != nil {
		if m.Name == "" {
			return errors.New("moveable: name is required")
		}
		if m.Step == 0 {
			return errors.New("moveable: step must be non-zero")
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertEventCount, AssertEventOrder:
		if a.Event != "active" && a.Event != "passive" {
			return fmt.Errorf("assertions[%d]: event must be active or passive for %s", index, a.Type)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertCallOrder:
		if a.Controller == "" {
			return fmt.Errorf("assertions[%d]: controller is required for call_order", index)
		}
	case AssertCallCount:
		if a.Controller == "" || a.Call == "" {
			return fmt.Errorf("assertions[%d]: controller and call are required for call_count", index)
		}
	case AssertFinalState:
		if a.Element == "" || a.State == "" {
			return fmt.Errorf("assertions[%d]: element and state are required for final_state", index)
		}
	case AssertListenerCount:
		if a.Listener == "" {
			return fmt.Errorf("assertions[%d]: listener is required for listener_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
