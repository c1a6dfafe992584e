package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unified error code across the client.
type ErrorCode string

// Resolution error codes
const (
	// ErrAgentNotFound indicates an agent name is absent from the remote
	// directory even after a fresh refresh. Not retryable; the caller
	// referenced a worker the server does not have.
	ErrAgentNotFound ErrorCode = "AGENT_NOT_FOUND"
	// ErrUnresolvedAgent indicates a workflow references at least one
	// unknown agent. Registration is aborted before any network call.
	ErrUnresolvedAgent ErrorCode = "UNRESOLVED_AGENT"
)

// Registration and execution error codes
const (
	ErrInvalidWorkflow    ErrorCode = "INVALID_WORKFLOW"
	ErrRegistrationFailed ErrorCode = "REGISTRATION_FAILED"
	ErrExecutionFailed    ErrorCode = "EXECUTION_FAILED"
	ErrServerUnavailable  ErrorCode = "SERVER_UNAVAILABLE"
)

// Transport signal codes. These are informational: they describe a
// degradation the client absorbed, never a failure surfaced to callers.
const (
	ErrTransportDegraded ErrorCode = "TRANSPORT_DEGRADED"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Retryable  bool      `json:"retryable"`
	WorkflowID string    `json:"workflow_id,omitempty"`
	Cause      error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithHTTPStatus sets the HTTP status code.
func (e *Error) WithHTTPStatus(status int) *Error {
	e.HTTPStatus = status
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// WithWorkflowID scopes the error to a workflow.
func (e *Error) WithWorkflowID(id string) *Error {
	e.WorkflowID = id
	return e
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsCode reports whether err carries the given error code anywhere in
// its chain.
func IsCode(err error, code ErrorCode) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Code == code {
			return true
		}
		err = e.Unwrap()
	}
	return false
}
