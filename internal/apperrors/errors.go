// Package apperrors defines the error taxonomy shared by the service layer
// and the transport layers. Every failure that reaches a client is one of
// four codes, each with a fixed HTTP status.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes.
const (
	// CodeInvalidInput is a missing URL or a URL that failed the reachability probe.
	CodeInvalidInput = "INVALID_INPUT"
	// CodeUnavailable means the store connection is not established.
	CodeUnavailable = "SERVICE_UNAVAILABLE"
	// CodeNotFound means the short identifier has no mapping.
	CodeNotFound = "NOT_FOUND"
	// CodeInternal is any unexpected store or serialization failure.
	CodeInternal = "INTERNAL_ERROR"
)

// AppError is an error carrying a code and a client-safe message.
// The wrapped Err is for logs only and never rendered to clients.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the wrapped cause.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is reports whether target is an AppError with the same code.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates an AppError.
func New(code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Wrap creates an AppError around err.
func Wrap(err error, code, message string) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

var (
	// ErrURLRequired is returned when the request carries no URL.
	ErrURLRequired = New(CodeInvalidInput, "URL is required")
	// ErrURLUnreachable is returned when the probe fails.
	ErrURLUnreachable = New(CodeInvalidInput, "URL not reachable")
	// ErrStoreUnavailable is returned while the store is not connected.
	ErrStoreUnavailable = New(CodeUnavailable, "Service unavailable. Store not connected.")
	// ErrURLNotFound is returned when a short id is unknown.
	ErrURLNotFound = New(CodeNotFound, "URL not found")
	// ErrInternal is the generic internal failure.
	ErrInternal = New(CodeInternal, "Internal server error")
)

// CodeOf returns the code of the first AppError in err's chain,
// or CodeInternal when there is none.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// HTTPStatus maps err to the status code the HTTP layer must answer with.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeInvalidInput:
		return http.StatusBadRequest
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	case CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the message that is safe to show to a client.
// Internal errors always collapse to the generic message.
func PublicMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Code != CodeInternal {
		return appErr.Message
	}
	return ErrInternal.Message
}

// IsUnavailable reports whether err carries CodeUnavailable.
func IsUnavailable(err error) bool {
	return CodeOf(err) == CodeUnavailable
}
