package execution

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes execution errors.
type ErrorCode string

const (
	// ErrCodeNotReady indicates the selection cannot produce a report yet.
	ErrCodeNotReady ErrorCode = "NOT_READY"

	// ErrCodeExecutionFailed indicates the executor reported failure.
	ErrCodeExecutionFailed ErrorCode = "EXECUTION_FAILED"

	// ErrCodeTransport indicates the executor could not be reached.
	ErrCodeTransport ErrorCode = "TRANSPORT"

	// ErrCodeUnauthorized indicates the executor rejected the credentials.
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"

	// ErrCodeDecode indicates the executor's answer could not be decoded.
	ErrCodeDecode ErrorCode = "DECODE"
)

// Error is an execution failure with a code for callers to branch on.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Status is the HTTP status when the error came from a remote call.
	Status int

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status=%d)", msg, e.Status)
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

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var ee *Error
	if errors.As(err, &ee) {
		return ee.Code
	}
	return ""
}

// IsNotReady returns true if err is a NOT_READY error.
// Uses errors.As to handle wrapped errors.
func IsNotReady(err error) bool {
	return CodeOf(err) == ErrCodeNotReady
}

// IsUnauthorized returns true if err is an UNAUTHORIZED error.
// Uses errors.As to handle wrapped errors.
func IsUnauthorized(err error) bool {
	return CodeOf(err) == ErrCodeUnauthorized
}

// NewNotReadyError creates an Error for a selection without tables or fields.
func NewNotReadyError(readiness fmt.Stringer) *Error {
	return &Error{
		Code:    ErrCodeNotReady,
		Message: fmt.Sprintf("selection is %s; select at least one table and one field", readiness),
	}
}
