// Package domain holds typed identifiers shared across the service.
//
// IDs are distinct types over uuid.UUID so the compiler rejects passing a
// user ID where an attempt ID is expected. Parse functions enforce the trust
// boundary invariant: IDs must be valid, non-nil UUIDs.
package domain

import (
	"github.com/google/uuid"

	dErrors "kyc-gateway/pkg/domain-errors"
)

// UserID identifies the owner of a KYC profile and its documents.
type UserID uuid.UUID

// AttemptID identifies a single verification attempt record.
type AttemptID uuid.UUID

func (u UserID) String() string    { return uuid.UUID(u).String() }
func (u UserID) IsNil() bool       { return uuid.UUID(u) == uuid.Nil }
func (a AttemptID) String() string { return uuid.UUID(a).String() }
func (a AttemptID) IsNil() bool    { return uuid.UUID(a) == uuid.Nil }

// NewAttemptID allocates a fresh attempt identifier.
func NewAttemptID() AttemptID { return AttemptID(uuid.New()) }

// ParseUserID parses and validates a user ID from its string form.
func ParseUserID(s string) (UserID, error) {
	u, err := parse(s, "user_id")
	return UserID(u), err
}

// ParseAttemptID parses and validates an attempt ID from its string form.
func ParseAttemptID(s string) (AttemptID, error) {
	u, err := parse(s, "attempt_id")
	return AttemptID(u), err
}

func parse(s, field string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" is not a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" must not be the nil UUID")
	}
	return u, nil
}
