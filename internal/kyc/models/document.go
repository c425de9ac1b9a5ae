package models

import (
	"encoding/json"
	"time"

	id "kyc-gateway/pkg/domain"
	dErrors "kyc-gateway/pkg/domain-errors"
)

// DocumentType enumerates the tracked identity documents.
type DocumentType string

const (
	// DocumentTypeAadhaar is verified automatically via the provider OTP flow.
	DocumentTypeAadhaar DocumentType = "Aadhaar"
	// DocumentTypePAN is tracked as a manual-review document; no automated
	// verification path exists for it.
	DocumentTypePAN DocumentType = "PAN"
)

// DocumentStatus is the lifecycle state of a verification attempt.
type DocumentStatus string

const (
	DocumentStatusPending  DocumentStatus = "Pending"
	DocumentStatusVerified DocumentStatus = "Verified"
	DocumentStatusFailed   DocumentStatus = "Failed"
)

// CanTransitionTo enforces the attempt state machine: Pending is the only
// non-terminal state, and terminal states are never left.
func (s DocumentStatus) CanTransitionTo(target DocumentStatus) bool {
	if s != DocumentStatusPending {
		return false
	}
	return target == DocumentStatusVerified || target == DocumentStatusFailed
}

// Document is one verification attempt: an OTP challenge for Aadhaar, or a
// manually-reviewed submission for PAN.
//
// Invariants:
//   - Belongs to exactly one user; rows cascade-delete with the user.
//   - Status transitions once from Pending to a terminal state and is never
//     resurrected; a retry always creates a new Document.
//   - NumberToken is the sealed document number; the raw value is never
//     stored or projected. NumberLast4 carries the only recoverable suffix.
//   - CorrelationID is set while an Aadhaar OTP challenge is in flight and
//     cleared once the attempt reaches a terminal state.
type Document struct {
	ID            id.AttemptID
	UserID        id.UserID
	Type          DocumentType
	Status        DocumentStatus
	NumberToken   string
	NumberLast4   string
	CorrelationID *string

	UploadedAt time.Time
	VerifiedAt *time.Time

	// Attributes attested by the provider, populated only on success.
	VerifiedName string
	DateOfBirth  string
	Gender       string
	Address      string

	// FailureReason records the provider message for failed attempts.
	FailureReason string

	// ProviderResponse retains the full provider payload when audit capture
	// is enabled. Excluded from every projection.
	ProviderResponse json.RawMessage
}

// NewAadhaarAttempt creates a Pending attempt for an in-flight OTP challenge.
func NewAadhaarAttempt(userID id.UserID, numberToken, numberLast4, correlationID string, now time.Time) (*Document, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "attempt requires an owner")
	}
	if correlationID == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "aadhaar attempt requires a correlation id")
	}
	return &Document{
		ID:            id.NewAttemptID(),
		UserID:        userID,
		Type:          DocumentTypeAadhaar,
		Status:        DocumentStatusPending,
		NumberToken:   numberToken,
		NumberLast4:   numberLast4,
		CorrelationID: &correlationID,
		UploadedAt:    now,
	}, nil
}

// NewPANDocument creates a Pending manual-review PAN record.
func NewPANDocument(userID id.UserID, numberToken, numberLast4 string, now time.Time) (*Document, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "document requires an owner")
	}
	return &Document{
		ID:          id.NewAttemptID(),
		UserID:      userID,
		Type:        DocumentTypePAN,
		Status:      DocumentStatusPending,
		NumberToken: numberToken,
		NumberLast4: numberLast4,
		UploadedAt:  now,
	}, nil
}

// CanResolve checks the attempt is still awaiting resolution.
// Use with ApplyVerified/ApplyFailed in Execute callbacks.
func (d *Document) CanResolve() error {
	if d.Status != DocumentStatusPending {
		return dErrors.New(dErrors.CodeInvariantViolation, "attempt already resolved")
	}
	return nil
}

// VerifiedAttributes carries the provider-attested identity applied on
// success.
type VerifiedAttributes struct {
	Name        string
	DateOfBirth string
	Gender      string
	Address     string
	Raw         json.RawMessage
}

// ApplyVerified transitions the attempt to Verified and stamps the attested
// attributes. Call CanResolve first.
func (d *Document) ApplyVerified(now time.Time, attrs VerifiedAttributes) {
	d.Status = DocumentStatusVerified
	d.VerifiedAt = &now
	d.VerifiedName = attrs.Name
	d.DateOfBirth = attrs.DateOfBirth
	d.Gender = attrs.Gender
	d.Address = attrs.Address
	d.ProviderResponse = attrs.Raw
	d.CorrelationID = nil
}

// ApplyFailed transitions the attempt to Failed, recording the provider
// message. VerifiedAt stays unset; only successful attempts carry it.
// Call CanResolve first.
func (d *Document) ApplyFailed(reason string) {
	d.Status = DocumentStatusFailed
	d.FailureReason = reason
	d.CorrelationID = nil
}
