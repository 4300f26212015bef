package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/roach88/req1/internal/ir"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Rejection, script fault, validation errors or failed scenarios
	ExitCommandError = 2 // Command error (bad input, missing entity, database not found, etc.)
)

// ErrCodeCommand is the envelope code for errors that carry no req1 code.
const ErrCodeCommand = "COMMAND_ERROR"

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)

	// Reported is set once the error was written to the command output.
	Reported bool
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		if e.Message == "" {
			return e.Err.Error()
		}
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

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// exitCodeFor maps req1 error codes onto exit codes. Script outcomes and
// conflicts are failures; everything else is a command error.
func exitCodeFor(err error) int {
	switch ir.ErrorCode(err) {
	case ir.ErrCodeRejected, ir.ErrCodeScriptFault, ir.ErrCodeReferenceFault, ir.ErrCodeConflict:
		return ExitFailure
	}
	return ExitCommandError
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // req1 error code or COMMAND_ERROR
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

// Success outputs a successful result. In text mode render writes the
// human-readable form.
func (f *OutputFormatter) Success(data any, render func(w io.Writer)) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}
	render(f.Writer)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	fmt.Fprintf(f.Writer, "%s %s\n", styles.fail.Render("Error ["+code+"]:"), message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// Fail reports err and returns the ExitError the command should return.
func (f *OutputFormatter) Fail(err error) error {
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Reported {
		return exitErr
	}

	code := ir.ErrorCode(err)
	exit := exitCodeFor(err)
	if code == "" {
		code = ErrCodeCommand
		if errors.As(err, &exitErr) {
			exit = exitErr.Code
		}
	}
	var details any
	if e, ok := ir.AsError(err); ok && (e.Script != "" || e.ObjectID != "") {
		details = map[string]string{"script": e.Script, "object_id": e.ObjectID}
	}
	if werr := f.Error(code, err.Error(), details); werr != nil {
		return werr
	}
	return &ExitError{Code: exit, Err: err, Reported: true}
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}

// styles used by text output. lipgloss drops colors when the writer is
// not a terminal.
var styles = struct {
	title lipgloss.Style
	ok    lipgloss.Style
	fail  lipgloss.Style
	warn  lipgloss.Style
	dim   lipgloss.Style
	level lipgloss.Style
}{
	title: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF")),
	ok:    lipgloss.NewStyle().Foreground(lipgloss.Color("#3FB950")),
	fail:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B")),
	warn:  lipgloss.NewStyle().Foreground(lipgloss.Color("#E3B341")),
	dim:   lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")),
	level: lipgloss.NewStyle().Width(10),
}

// severityStyle picks the style for an issue severity.
func severityStyle(s ir.Severity) lipgloss.Style {
	switch s {
	case ir.SeverityError:
		return styles.fail
	case ir.SeverityWarning:
		return styles.warn
	}
	return styles.dim
}
