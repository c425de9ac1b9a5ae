package gateway

import (
	"errors"
	"fmt"
)

// ErrorCategory normalizes provider failures so the verification core can
// react uniformly regardless of backend.
type ErrorCategory string

const (
	// CategoryInvalidInput indicates malformed caller input rejected before
	// any provider round trip.
	CategoryInvalidInput ErrorCategory = "invalid_input"

	// CategoryInvalidCredential indicates the OTP code did not match.
	CategoryInvalidCredential ErrorCategory = "invalid_credential"

	// CategoryUnknownChallenge indicates the correlation token is not
	// recognized: expired, fabricated, or already consumed. Backends report
	// all three identically so callers cannot distinguish which is true.
	CategoryUnknownChallenge ErrorCategory = "unknown_challenge"

	// CategoryTimeout indicates the provider took too long to respond.
	CategoryTimeout ErrorCategory = "timeout"

	// CategoryOutage indicates the provider is unavailable.
	CategoryOutage ErrorCategory = "provider_outage"

	// CategoryInternal indicates an unexpected failure.
	CategoryInternal ErrorCategory = "internal"
)

// ProviderError wraps provider failures with normalized categorization.
type ProviderError struct {
	Category   ErrorCategory
	Message    string
	Underlying error
	Retryable  bool
}

func (e *ProviderError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("provider [%s]: %s: %v", e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("provider [%s]: %s", e.Category, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Underlying }

// NewProviderError creates a normalized provider error. Timeouts and outages
// are marked retryable.
func NewProviderError(category ErrorCategory, message string, underlying error) *ProviderError {
	return &ProviderError{
		Category:   category,
		Message:    message,
		Underlying: underlying,
		Retryable:  category == CategoryTimeout || category == CategoryOutage,
	}
}

// Category extracts the error category, defaulting to CategoryInternal for
// unclassified errors.
func Category(err error) ErrorCategory {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Category
	}
	return CategoryInternal
}

// IsCategory reports whether err carries the given category.
func IsCategory(err error, category ErrorCategory) bool {
	return Category(err) == category
}

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	return false
}
