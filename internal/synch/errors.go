package synch

import (
	"errors"
	"fmt"
)

// Error is the error type raised by the synchronization engine.
//
// Configuration and programming errors are never recovered inside the
// engine: they are surfaced to the caller, which owns retry and operator
// notification. Hardware faults wrap the controller's own error so
// errors.Is still matches it.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Controller names the controller involved, if any.
	Controller string

	// Axis is the controller axis involved, or -1 for controller-wide calls.
	Axis int

	// Group is the description group index for configuration errors, or -1.
	Group int

	// Err is the underlying cause, if any.
	Err error
}

// ErrorCode categorizes engine errors.
type ErrorCode string

const (
	// ErrCodeConfiguration indicates a malformed or incomplete description.
	ErrCodeConfiguration ErrorCode = "CONFIGURATION"

	// ErrCodeProgramming indicates a controller rejected PreSynchOne or PreStartOne.
	ErrCodeProgramming ErrorCode = "PROGRAMMING"

	// ErrCodeHardwareFault indicates a controller call failed.
	ErrCodeHardwareFault ErrorCode = "HARDWARE_FAULT"
)

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	switch {
	case e.Controller != "" && e.Axis >= 0:
		msg = fmt.Sprintf("%s (controller=%s, axis=%d)", msg, e.Controller, e.Axis)
	case e.Controller != "":
		msg = fmt.Sprintf("%s (controller=%s)", msg, e.Controller)
	case e.Group >= 0:
		msg = fmt.Sprintf("%s (group=%d)", msg, e.Group)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsConfigurationError reports whether err is, or wraps, a configuration error.
func IsConfigurationError(err error) bool {
	return hasCode(err, ErrCodeConfiguration)
}

// IsProgrammingError reports whether err is, or wraps, a programming error.
func IsProgrammingError(err error) bool {
	return hasCode(err, ErrCodeProgramming)
}

// IsHardwareFault reports whether err is, or wraps, a hardware fault.
func IsHardwareFault(err error) bool {
	return hasCode(err, ErrCodeHardwareFault)
}

func hasCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// NewConfigurationError creates an Error for a description problem that is
// not tied to a particular group.
func NewConfigurationError(message string) *Error {
	return &Error{Code: ErrCodeConfiguration, Message: message, Group: -1}
}

// NewGroupError creates a configuration Error for description group i.
func NewGroupError(group int, message string) *Error {
	return &Error{Code: ErrCodeConfiguration, Message: message, Group: group}
}

// NewProgrammingError creates an Error for a controller that rejected an axis.
func NewProgrammingError(controller string, axis int, call string) *Error {
	return &Error{
		Code:       ErrCodeProgramming,
		Message:    fmt.Sprintf("%s rejected by controller", call),
		Controller: controller,
		Axis:       axis,
		Group:      -1,
	}
}

// NewHardwareFault wraps err raised by a controller call.
func NewHardwareFault(controller string, axis int, call string, err error) *Error {
	return &Error{
		Code:       ErrCodeHardwareFault,
		Message:    call + " failed",
		Controller: controller,
		Axis:       axis,
		Group:      -1,
		Err:        err,
	}
}
