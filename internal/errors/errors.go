package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes for categorizing errors.
const (
	// ErrNotFound means the connection id names no live connection.
	ErrNotFound = "NOT_FOUND"
	// ErrConnectionLost means the session failed its liveness probe or the
	// system category; the connection has been torn down.
	ErrConnectionLost = "CONNECTION_LOST"
	// ErrConnectFailed means a new session could not be established.
	ErrConnectFailed = "CONNECT_FAILED"
	// ErrMetricUnavailable is internal to sampling; it degrades to zero values
	// and never reaches callers of FetchSnapshot.
	ErrMetricUnavailable = "METRIC_UNAVAILABLE"
	// ErrInternal covers unexpected failures.
	ErrInternal = "INTERNAL"
	// ErrInvalidInput rejects a malformed connection request.
	ErrInvalidInput = "INVALID_INPUT"

	ErrConfig = "CONFIG"
	ErrSSH    = "SSH"
	ErrExec   = "EXEC"
)

// Error represents a structured error with code, message, suggestion, and optional cause.
// It renders as:
//
//	✗ <What failed>
//
//	  <Why it failed - technical details>
//
//	  <How to fix it - actionable steps>
type Error struct {
	Code       string
	Message    string
	Suggestion string
	Cause      error
}

// New creates a new structured error with the given code, message, and suggestion.
func New(code, message, suggestion string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		Suggestion: suggestion,
	}
}

// Wrap wraps an existing error with a message, defaulting to ErrInternal code.
func Wrap(err error, message string) *Error {
	return &Error{
		Code:    ErrInternal,
		Message: message,
		Cause:   err,
	}
}

// WrapWithCode wraps an existing error with a specific code, message, and suggestion.
func WrapWithCode(err error, code, message, suggestion string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		Suggestion: suggestion,
		Cause:      err,
	}
}

// NotFound reports an unknown connection id.
func NotFound(id string) *Error {
	return &Error{
		Code:       ErrNotFound,
		Message:    fmt.Sprintf("No connection found for %s", id),
		Suggestion: "Connect to the host again to get a fresh connection id",
	}
}

// ConnectionLost reports a torn down connection.
func ConnectionLost(id string, cause error) *Error {
	return &Error{
		Code:       ErrConnectionLost,
		Message:    fmt.Sprintf("Connection %s was lost", id),
		Suggestion: "Reconnect to resume monitoring",
		Cause:      cause,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("✗ %s\n", e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf("\n  %s\n", e.Cause.Error()))
	}

	if e.Suggestion != "" {
		b.WriteString(fmt.Sprintf("\n  %s\n", e.Suggestion))
	}

	return b.String()
}

// Short returns the message and cause on one line, for API payloads and log lines.
func (e *Error) Short() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause for use with errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsCode checks if an error is a structured Error with the given code.
func IsCode(err error, code string) bool {
	return CodeOf(err) == code && err != nil
}

// CodeOf returns the code of the outermost structured Error in err's chain.
// Unstructured errors report ErrInternal; nil reports "".
func CodeOf(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrInternal
}

// Message returns a one-line description of err suitable for clients.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Short()
	}
	return err.Error()
}
