package harness

import "fmt"

// CallTrace is one recorded controller call.
type CallTrace struct {
	Controller string `json:"controller"`
	Call       string `json:"call"`
}

// EventTrace is one generator event as stored for the run.
type EventTrace struct {
	Seq        int    `json:"seq"`
	Type       string `json:"type"`
	Index      int    `json:"index"`
	Domain     string `json:"domain"`
	Coordinate string `json:"coordinate"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall success: the run ended as expected and every
	// assertion held.
	Pass bool `json:"pass"`

	// RunID identifies the stored run.
	RunID string `json:"run_id"`

	// Outcome is the stored run outcome (completed, failed, ...).
	Outcome string `json:"outcome"`

	// Err is the error returned by the orchestrator, if any.
	Err error `json:"-"`

	// Calls lists controller calls grouped by controller, in
	// configuration order.
	Calls []CallTrace `json:"calls"`

	// Events lists the generator events in firing order.
	Events []EventTrace `json:"events"`

	// States maps element names to their final state.
	States map[string]string `json:"states"`

	// Listeners maps software listener names to events received.
	Listeners map[string]int `json:"listeners"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:      true,
		Calls:     []CallTrace{},
		Events:    []EventTrace{},
		States:    make(map[string]string),
		Listeners: make(map[string]int),
		Errors:    []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// ErrorText returns the orchestrator error message, or "".
func (r *Result) ErrorText() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

func formatCoordinate(v float64) string {
	return fmt.Sprintf("%.6f", v)
}
