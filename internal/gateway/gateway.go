// Package gateway abstracts the external Aadhaar OTP verification provider.
//
// Two backends satisfy the same contract: a deterministic sandbox used in
// development and tests, and a live HTTP adapter. The verification core only
// sees the Gateway interface; backend selection happens at wiring time, never
// inside business logic.
package gateway

import (
	"context"
	"encoding/json"
)

// Gateway is the provider seam. It is a pure request/response boundary: no
// state is persisted by implementations beyond their open-challenge book.
type Gateway interface {
	// IssueChallenge starts an OTP challenge for the given national ID.
	// The national ID is validated before any backend work; malformed input
	// fails with CategoryInvalidInput and no provider round trip.
	IssueChallenge(ctx context.Context, nationalID string) (Challenge, error)

	// ResolveChallenge completes a challenge. Fails with
	// CategoryInvalidCredential for a wrong code and CategoryUnknownChallenge
	// for a token the provider does not recognize (expired, fabricated, or
	// already consumed). Resolution is one-shot: a challenge is consumed by
	// its first resolution attempt regardless of outcome.
	ResolveChallenge(ctx context.Context, correlationID, code string) (Identity, error)
}

// Challenge is the result of issuing an OTP challenge.
type Challenge struct {
	// CorrelationID is the provider-issued token binding this challenge to
	// its eventual resolution.
	CorrelationID string

	// Message is the provider's human-readable status, e.g. where the OTP
	// was delivered.
	Message string

	// DevCode carries the expected OTP for development backends only. Live
	// backends leave it empty; it must never reach production responses.
	DevCode string
}

// Identity holds the attributes the provider attests after a successful
// resolution.
type Identity struct {
	Name        string
	DateOfBirth string
	Gender      string
	Address     string

	// Raw is the full provider payload, retained only when the audit
	// configuration asks for it.
	Raw json.RawMessage
}

// NationalIDLength is the required length of an Aadhaar number.
const NationalIDLength = 12

// ValidateNationalID enforces the issuance precondition: exactly 12 ASCII
// digits. It runs before any provider call so malformed input never costs a
// round trip.
func ValidateNationalID(nationalID string) error {
	if len(nationalID) != NationalIDLength {
		return NewProviderError(CategoryInvalidInput, "aadhaar number must be exactly 12 digits", nil)
	}
	for i := 0; i < len(nationalID); i++ {
		if nationalID[i] < '0' || nationalID[i] > '9' {
			return NewProviderError(CategoryInvalidInput, "aadhaar number must contain only digits", nil)
		}
	}
	return nil
}
