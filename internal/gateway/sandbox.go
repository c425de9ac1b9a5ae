package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"kyc-gateway/pkg/platform/sentinel"
	"kyc-gateway/pkg/requestcontext"
)

// SandboxCode is the single OTP the sandbox backend accepts for any open
// challenge.
const SandboxCode = "123456"

// Canned identity attributes returned by the sandbox on success.
const (
	sandboxName    = "Test User"
	sandboxDOB     = "01-01-1990"
	sandboxGender  = "M"
	sandboxAddress = "Test Address, Test City, Test State - 123456"
)

// OpenChallenge is an issued, unresolved OTP challenge held by the sandbox.
type OpenChallenge struct {
	CorrelationID string    `json:"correlation_id"`
	NationalID    string    `json:"national_id"`
	Code          string    `json:"code"`
	IssuedAt      time.Time `json:"issued_at"`
}

// ChallengeStore holds open sandbox challenges. Consume is one-shot: a
// challenge can be taken out exactly once, and expired entries behave as if
// they never existed.
type ChallengeStore interface {
	Put(ctx context.Context, ch OpenChallenge, ttl time.Duration) error
	Consume(ctx context.Context, correlationID string) (OpenChallenge, error)
}

// Sandbox is the deterministic provider backend. It issues uuid correlation
// tokens, accepts SandboxCode for any open challenge, and returns a canned
// identity payload. It backs development, CI, and every unit test that needs
// the full OTP round trip without network access.
type Sandbox struct {
	challenges ChallengeStore
	ttl        time.Duration
}

// NewSandbox constructs a sandbox backend over the given challenge store.
func NewSandbox(challenges ChallengeStore, ttl time.Duration) *Sandbox {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Sandbox{challenges: challenges, ttl: ttl}
}

func (s *Sandbox) IssueChallenge(ctx context.Context, nationalID string) (Challenge, error) {
	if err := ValidateNationalID(nationalID); err != nil {
		return Challenge{}, err
	}

	ch := OpenChallenge{
		CorrelationID: uuid.NewString(),
		NationalID:    nationalID,
		Code:          SandboxCode,
		IssuedAt:      requestcontext.Now(ctx),
	}
	if err := s.challenges.Put(ctx, ch, s.ttl); err != nil {
		return Challenge{}, NewProviderError(CategoryOutage, "failed to record challenge", err)
	}

	return Challenge{
		CorrelationID: ch.CorrelationID,
		Message:       "OTP sent to registered mobile number",
		DevCode:       ch.Code,
	}, nil
}

func (s *Sandbox) ResolveChallenge(ctx context.Context, correlationID, code string) (Identity, error) {
	if correlationID == "" || code == "" {
		return Identity{}, NewProviderError(CategoryInvalidInput, "correlation id and code are required", nil)
	}

	ch, err := s.challenges.Consume(ctx, correlationID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) || errors.Is(err, sentinel.ErrExpired) {
			return Identity{}, NewProviderError(CategoryUnknownChallenge, "correlation id not recognized or expired", err)
		}
		return Identity{}, NewProviderError(CategoryOutage, "failed to look up challenge", err)
	}

	// The challenge is consumed either way; a wrong code requires reissuance.
	if code != ch.Code {
		return Identity{}, NewProviderError(CategoryInvalidCredential, "invalid OTP", nil)
	}

	identity := Identity{
		Name:        sandboxName,
		DateOfBirth: sandboxDOB,
		Gender:      sandboxGender,
		Address:     sandboxAddress,
	}
	identity.Raw, _ = json.Marshal(map[string]string{
		"name":          identity.Name,
		"date_of_birth": identity.DateOfBirth,
		"gender":        identity.Gender,
		"address":       identity.Address,
		"source":        "sandbox",
	})
	return identity, nil
}
