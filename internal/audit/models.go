// Package audit captures structured audit events for identity verification
// actions. Events flow from domain services through a buffered publisher to a
// background worker, which fans them out to the configured sinks.
package audit

import (
	"context"
	"time"
)

// Actions emitted by the verification core.
const (
	ActionChallengeIssued     = "aadhaar_challenge_issued"
	ActionAadhaarVerified     = "aadhaar_verified"
	ActionVerificationFailed  = "aadhaar_verification_failed"
	ActionPANDocumentRecorded = "pan_document_recorded"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	UserID    string    `json:"user_id,omitempty"`
	Action    string    `json:"action"`
	Subject   string    `json:"subject,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	ClientIP  string    `json:"client_ip,omitempty"`
}

// Sink receives events one at a time. Implementations must be safe for
// concurrent use by the worker.
type Sink interface {
	Append(ctx context.Context, event Event) error
}
