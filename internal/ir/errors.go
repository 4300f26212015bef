package ir

import (
	"errors"
	"fmt"
)

// Error codes surfaced at the script and service boundaries.
const (
	ErrCodeRejected       = "VALIDATION_REJECTED"
	ErrCodeScriptFault    = "SCRIPT_FAULT"
	ErrCodeReferenceFault = "REFERENCE_FAULT"
	ErrCodeHostStateFault = "HOST_STATE_FAULT"
	ErrCodeNotFound       = "NOT_FOUND"
	ErrCodeBadRequest     = "BAD_REQUEST"
	ErrCodeConflict       = "CONFLICT"
)

// DefaultRejectReason is used when a script rejects without a reason.
const DefaultRejectReason = "rejected by script"

// Error is the single error type of the req1 core.
// Script is the offending script name when one is known.
type Error struct {
	Code     string
	Script   string
	Reason   string
	ObjectID string
	Message  string
	Err      error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeRejected:
		return fmt.Sprintf("script '%s' rejected: %s", e.Script, e.Reason)
	case ErrCodeScriptFault:
		if e.Script != "" {
			return fmt.Sprintf("script '%s' error: %s", e.Script, e.Message)
		}
		return "script error: " + e.Message
	}
	if e.Script != "" {
		return fmt.Sprintf("%s: script '%s': %s", e.Code, e.Script, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Rejected builds a VALIDATION_REJECTED error.
func Rejected(script, reason string) *Error {
	return &Error{Code: ErrCodeRejected, Script: script, Reason: reason}
}

// ScriptFault builds a SCRIPT_FAULT error carrying the raw guest error text.
func ScriptFault(script string, err error) *Error {
	return &Error{Code: ErrCodeScriptFault, Script: script, Message: err.Error(), Err: err}
}

// ReferenceFault builds a REFERENCE_FAULT error for an unresolvable id.
func ReferenceFault(objectID, msg string) *Error {
	return &Error{Code: ErrCodeReferenceFault, ObjectID: objectID, Message: msg}
}

// HostStateFault builds a HOST_STATE_FAULT error.
func HostStateFault(msg string, err error) *Error {
	return &Error{Code: ErrCodeHostStateFault, Message: msg, Err: err}
}

// NotFound builds a NOT_FOUND error.
func NotFound(format string, args ...any) *Error {
	return &Error{Code: ErrCodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// BadRequest builds a BAD_REQUEST error.
func BadRequest(format string, args ...any) *Error {
	return &Error{Code: ErrCodeBadRequest, Message: fmt.Sprintf(format, args...)}
}

// Conflict builds a CONFLICT error.
func Conflict(format string, args ...any) *Error {
	return &Error{Code: ErrCodeConflict, Message: fmt.Sprintf(format, args...)}
}

// WithScript returns a copy of the error attributed to script.
// Attribution already present is kept.
func (e *Error) WithScript(script string) *Error {
	cp := *e
	if cp.Script == "" {
		cp.Script = script
	}
	return &cp
}

// ErrorCode returns the code of the first *Error in err's chain, or "".
func ErrorCode(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// AsError returns the first *Error in err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// IsRejected checks if err is a script rejection.
func IsRejected(err error) bool { return ErrorCode(err) == ErrCodeRejected }

// IsScriptFault checks if err is a guest compile or runtime fault.
func IsScriptFault(err error) bool { return ErrorCode(err) == ErrCodeScriptFault }

// IsReferenceFault checks if err names an unresolvable object id.
func IsReferenceFault(err error) bool { return ErrorCode(err) == ErrCodeReferenceFault }

// IsHostStateFault checks if err is an internal bridging failure.
func IsHostStateFault(err error) bool { return ErrorCode(err) == ErrCodeHostStateFault }

// IsNotFound checks if err reports a missing entity.
func IsNotFound(err error) bool { return ErrorCode(err) == ErrCodeNotFound }

// IsBadRequest checks if err reports invalid input.
func IsBadRequest(err error) bool { return ErrorCode(err) == ErrCodeBadRequest }

// IsConflict checks if err reports a uniqueness or state conflict.
func IsConflict(err error) bool { return ErrorCode(err) == ErrCodeConflict }
