// Package apierrors defines the error taxonomy shared by every API surface.
//
// Errors carry a stable machine-readable code plus a human-readable message.
// Handlers map codes to HTTP statuses at the boundary; internal layers wrap
// causes with fmt.Errorf and %w and only convert to an *Error at the edge.
package apierrors

import (
	"errors"
	"net/http"
)

// Code identifies an error category with a stable wire representation.
type Code string

const (
	CodeValidation        Code = "VALIDATION_ERROR"
	CodeNotFound          Code = "RESOURCE_NOT_FOUND"
	CodeUnauthorized      Code = "UNAUTHORIZED"
	CodeForbidden         Code = "FORBIDDEN"
	CodeInternal          Code = "INTERNAL_SERVER_ERROR"
	CodeConflict          Code = "CONFLICT"
	CodePlanLimitExceeded Code = "SOLO_PLAN_LIMIT_EXCEEDED"
	CodeNoSubscription    Code = "SUBSCRIPTION_NOT_FOUND"
	CodeTooManyRequests   Code = "TOO_MANY_REQUESTS"
)

// Error is the API-visible error type.
type Error struct {
	Code    Code
	Message string
	// Cause is the wrapped internal error, logged server-side but never
	// serialized to clients.
	Cause error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error { return e.Cause }

// Status maps the error code to an HTTP status.
func (e *Error) Status() int {
	switch e.Code {
	case CodeConflict:
		return http.StatusConflict
	case CodeForbidden:
		return http.StatusForbidden
	case CodeInternal:
		return http.StatusInternalServerError
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeTooManyRequests:
		return http.StatusTooManyRequests
	default:
		// Validation, plan-limit and subscription errors are all
		// client errors on the wire.
		return http.StatusBadRequest
	}
}

// New creates an error with an explicit code.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Validation(message string) *Error {
	if message == "" {
		message = "Validation error"
	}
	return &Error{Code: CodeValidation, Message: message}
}

func NotFound(message string) *Error {
	if message == "" {
		message = "Resource not found"
	}
	return &Error{Code: CodeNotFound, Message: message}
}

func Unauthorized(message string) *Error {
	if message == "" {
		message = "Unauthorized"
	}
	return &Error{Code: CodeUnauthorized, Message: message}
}

func Forbidden(message string) *Error {
	if message == "" {
		message = "Forbidden"
	}
	return &Error{Code: CodeForbidden, Message: message}
}

func Conflict(message string) *Error {
	if message == "" {
		message = "Conflict error"
	}
	return &Error{Code: CodeConflict, Message: message}
}

// Internal wraps an unexpected failure. The cause stays server-side.
func Internal(message string, cause error) *Error {
	if message == "" {
		message = "Internal server error"
	}
	return &Error{Code: CodeInternal, Message: message, Cause: cause}
}

// PlanLimit reports a free-plan quota denial with an upgrade prompt.
func PlanLimit(message string) *Error {
	return &Error{Code: CodePlanLimitExceeded, Message: message}
}

// FromErr returns err as an *Error, or wraps it as an internal error.
func FromErr(err error) *Error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return Internal("", err)
}

// IsCode reports whether err is an *Error with the given code.
func IsCode(err error, code Code) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Code == code
}
