// Package dErrors provides coded domain errors. Services attach a Code that the
// HTTP layer translates into a status and a stable machine-readable string, so
// business logic never imports net/http.
package dErrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain failure.
type Code string

const (
	// CodeInvalidInput marks malformed caller input rejected before any
	// external call is attempted.
	CodeInvalidInput Code = "invalid_input"

	// CodeValidation marks a request that parsed but failed business validation.
	CodeValidation Code = "validation_failed"

	// CodeBadRequest marks a request the caller can correct and retry.
	CodeBadRequest Code = "bad_request"

	// CodeUnauthorized marks missing or invalid credentials.
	CodeUnauthorized Code = "unauthorized"

	// CodeForbidden marks an authenticated caller lacking permission.
	CodeForbidden Code = "forbidden"

	// CodeNotFound marks an entity that does not exist.
	CodeNotFound Code = "not_found"

	// CodeConflict marks an operation rejected by current state, such as an
	// idempotency guard.
	CodeConflict Code = "conflict"

	// CodeUnavailable marks a dependency that is temporarily unreachable;
	// the operation is retryable.
	CodeUnavailable Code = "unavailable"

	// CodeInvariantViolation marks a broken model invariant. Surfacing one to
	// a caller indicates a bug; services normally translate it.
	CodeInvariantViolation Code = "invariant_violation"

	// CodeInternal marks an unexpected failure. Details are logged, never
	// returned to callers.
	CodeInternal Code = "internal_error"
)

// Error is a domain error with a classification code and a human-readable
// message safe to surface to callers (except for CodeInternal).
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a domain error with the given code and message.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf creates a domain error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error. If err is nil,
// Wrap returns nil.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err carries the given code anywhere in its chain.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal for
// unclassified errors.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf extracts the caller-safe message from err. Unclassified errors
// yield an empty message so nothing internal leaks.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return ""
}
