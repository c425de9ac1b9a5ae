package models

import (
	"time"

	id "kyc-gateway/pkg/domain"
)

// KYCStatus is a user's aggregate verification state.
type KYCStatus string

const (
	KYCStatusNotSubmitted KYCStatus = "NotSubmitted"
	KYCStatusPending      KYCStatus = "Pending"
	KYCStatusVerified     KYCStatus = "Verified"
	KYCStatusRejected     KYCStatus = "Rejected"
)

// Profile is the per-user KYC aggregate. AadhaarVerified is a cached
// projection: true iff at least one Aadhaar attempt is Verified. The
// aggregate is owned by the recompute step and always derived from attempt
// records, never patched incrementally, so a retried recomputation is safe.
//
// PANVerified is tracked independently and deliberately does not gate Status:
// PAN has no automated verification path, so making it a prerequisite would
// dead-end every user. Flipping it is a manual back-office action.
type Profile struct {
	UserID          id.UserID
	Status          KYCStatus
	AadhaarVerified bool
	PANVerified     bool
	SubmittedAt     *time.Time
	VerifiedAt      *time.Time
}

// NewProfile creates an empty aggregate for a user.
func NewProfile(userID id.UserID) *Profile {
	return &Profile{
		UserID: userID,
		Status: KYCStatusNotSubmitted,
	}
}

// MarkSubmitted records the first submission time and moves a fresh profile
// to Pending. Later submissions keep the original timestamp.
func (p *Profile) MarkSubmitted(now time.Time) {
	if p.SubmittedAt == nil {
		p.SubmittedAt = &now
	}
	if p.Status == KYCStatusNotSubmitted {
		p.Status = KYCStatusPending
	}
}

// ApplyAggregate folds the recomputed projection into the profile.
// VerifiedAt is stamped the first time the status becomes Verified and is
// never moved afterwards.
func (p *Profile) ApplyAggregate(aadhaarVerified bool, now time.Time) {
	p.AadhaarVerified = aadhaarVerified
	if aadhaarVerified {
		if p.Status != KYCStatusVerified {
			p.Status = KYCStatusVerified
			p.VerifiedAt = &now
		}
	}
}
