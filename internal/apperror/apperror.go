// Package apperror defines the error taxonomy shared by services and HTTP
// handlers. Services return *Error values; handlers translate them into the
// response envelope, mapping anything else to a 500 without leaking details.
package apperror

import (
	"errors"
	"net/http"
)

var (
	ErrValidation = errors.New("validation failed")
	ErrAuth       = errors.New("unauthorized")
	ErrConflict   = errors.New("conflict")
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
	ErrInternal   = errors.New("internal error")
)

// Error carries an HTTP status and a human-readable message alongside the
// sentinel kind it wraps.
type Error struct {
	Kind    error
	Status  int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// Validation reports malformed or missing input.
func Validation(message string) *Error {
	return &Error{Kind: ErrValidation, Status: http.StatusBadRequest, Message: message}
}

// Auth reports bad credentials or an invalid, expired or reused token.
func Auth(message string) *Error {
	return &Error{Kind: ErrAuth, Status: http.StatusUnauthorized, Message: message}
}

// Conflict reports a duplicate unique field.
func Conflict(message string) *Error {
	return &Error{Kind: ErrConflict, Status: http.StatusConflict, Message: message}
}

// NotFound reports a missing referenced entity. Surfaced as 400 to match the
// public API contract; callers needing a 404 can remap.
func NotFound(message string) *Error {
	return &Error{Kind: ErrNotFound, Status: http.StatusBadRequest, Message: message}
}

// Forbidden reports an ownership violation.
func Forbidden(message string) *Error {
	return &Error{Kind: ErrForbidden, Status: http.StatusForbidden, Message: message}
}

// Internal reports an unexpected backend failure.
func Internal(message string) *Error {
	return &Error{Kind: ErrInternal, Status: http.StatusInternalServerError, Message: message}
}

// StatusOf extracts the HTTP status for err, defaulting to 500 for errors
// outside the taxonomy.
func StatusOf(err error) int {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	return http.StatusInternalServerError
}

// MessageOf extracts the public message for err. Unknown errors collapse to a
// generic message so internals never reach the client.
func MessageOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "something went wrong"
}
