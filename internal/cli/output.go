package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/roach88/tgsync/internal/synch"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Run or scenario failure
	ExitCommandError = 2 // Command error (invalid paths, database not found, etc.)
)

// Error codes reported in CLI responses.
const (
	ErrCodeGeneric       = "E001" // Generic/unknown error
	ErrCodeNotFound      = "E005" // Path not found
	ErrCodeConfiguration = "E010" // Invalid synchronization description
	ErrCodeProgramming   = "E011" // Controller rejected an axis
	ErrCodeHardwareFault = "E012" // Controller call failed
)

// ExitError carries the process exit code of a failed command.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode returns the exit code carried by err, or ExitFailure.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// errorCode maps a synchronization error to its CLI error code.
func errorCode(err error) string {
	switch {
	case synch.IsConfigurationError(err):
		return ErrCodeConfiguration
	case synch.IsProgrammingError(err):
		return ErrCodeProgramming
	case synch.IsHardwareFault(err):
		return ErrCodeHardwareFault
	default:
		return ErrCodeGeneric
	}
}

// OutputFormatter writes command results as text or as a JSON CLIResponse.
type OutputFormatter struct {
	Format  string
	Writer  io.Writer
	Verbose bool
}

func newFormatter(opts *RootOptions, w io.Writer) *OutputFormatter {
	return &OutputFormatter{Format: opts.Format, Writer: w, Verbose: opts.Verbose}
}

// CLIResponse is the JSON envelope of every command.
type CLIResponse struct {
	Status string    `json:"status"` // "ok" or "error"
	Data   any       `json:"data,omitempty"`
	Error  *CLIError `json:"error,omitempty"`
}

// CLIError is the error half of a CLIResponse.
type CLIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Success writes data, JSON-wrapped or with its default text form.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "ok", Data: data})
	}
	_, err := fmt.Fprintln(f.Writer, data)
	return err
}

// Error writes an error report. Details are shown in text mode only when
// verbose.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: code, Message: message, Details: details},
		})
	}
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// Fail reports a failure to load or check the description at path and
// returns the matching ExitError. A missing file is a command error; a
// rejected description is a failure.
func (f *OutputFormatter) Fail(path string, err error) *ExitError {
	if errors.Is(err, fs.ErrNotExist) {
		_ = f.Error(ErrCodeNotFound, fmt.Sprintf("description not found: %s", path), nil)
		return WrapExitError(ExitCommandError, ErrCodeNotFound, err)
	}
	code := errorCode(err)
	_ = f.Error(code, err.Error(), nil)
	return WrapExitError(ExitFailure, code, err)
}

// newPrinter returns the printer used for human-readable counts and
// durations ("1,024 events").
func newPrinter() *message.Printer {
	return message.NewPrinter(language.English)
}

// setupLogging installs the process-wide slog handler. Diagnostics go to w
// so they never mix with command output.
func setupLogging(w io.Writer, verbose bool) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}
