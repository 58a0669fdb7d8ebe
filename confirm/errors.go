package confirm

import (
	"errors"
	"fmt"
)

// Code classifies terminal confirmation errors.
type Code string

const (
	// CodeIntegration marks developer mistakes: descriptor misuse,
	// consistency mismatches, missing handlers. These should be caught in
	// development, never retried in production.
	CodeIntegration Code = "integration_error"
	// CodeTransport marks errors surfaced verbatim from the payments API.
	CodeTransport Code = "transport_error"
	// CodeAuthentication marks failed additional-authentication steps.
	CodeAuthentication Code = "authentication_failed"
	// CodeInvalidRequest marks structurally invalid selections rejected
	// before any network call.
	CodeInvalidRequest Code = "invalid_request"
)

const genericMessage = "Something went wrong. Please try again."

// Error is a classified confirmation error. Message is safe to display to
// the customer; DebugMessage carries developer detail and must never be
// shown to users.
type Error struct {
	Code         Code
	Message      string
	DebugMessage string
	Err          error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.DebugMessage != "" {
		return e.DebugMessage
	}
	return e.Message
}

// Unwrap allows errors.Is/As to inspect the underlying error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewError constructs a classified error.
func NewError(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// IntegrationError constructs a developer-facing error with a generic
// user-visible message and a distinct debug description.
func IntegrationError(debug string) *Error {
	return &Error{Code: CodeIntegration, Message: genericMessage, DebugMessage: debug}
}

// IsIntegration reports whether err is classified as an integration error.
func IsIntegration(err error) bool {
	var ce *Error
	return errors.As(err, &ce) && ce.Code == CodeIntegration
}

// wrapTransport classifies an error from the payments transport, keeping an
// already-classified error as is.
func wrapTransport(op string, err error) *Error {
	var ce *Error
	if errors.As(err, &ce) {
		return ce
	}
	return &Error{
		Code:         CodeTransport,
		Message:      genericMessage,
		DebugMessage: fmt.Sprintf("confirm: %s failed", op),
		Err:          err,
	}
}
