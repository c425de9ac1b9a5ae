// Package service orchestrates identity verification: Aadhaar OTP challenges,
// PAN document intake, and the per-user KYC aggregate.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"kyc-gateway/internal/audit"
	"kyc-gateway/internal/gateway"
	"kyc-gateway/internal/kyc/metrics"
	"kyc-gateway/internal/kyc/models"
	"kyc-gateway/internal/vault"
	id "kyc-gateway/pkg/domain"
	dErrors "kyc-gateway/pkg/domain-errors"
	"kyc-gateway/pkg/platform/sentinel"
	"kyc-gateway/pkg/requestcontext"
)

// DocumentStore persists verification attempts. Resolve must be atomic: of
// concurrent resolvers for the same pending attempt exactly one succeeds and
// the rest see sentinel.ErrNotFound.
type DocumentStore interface {
	Create(ctx context.Context, doc *models.Document) error
	FindPendingByCorrelation(ctx context.Context, userID id.UserID, correlationID string) (*models.Document, error)
	Resolve(ctx context.Context, userID id.UserID, correlationID string,
		validate func(*models.Document) error, mutate func(*models.Document)) (*models.Document, error)
	ListByUser(ctx context.Context, userID id.UserID) ([]*models.Document, error)
	HasVerified(ctx context.Context, userID id.UserID, docType models.DocumentType) (bool, error)
}

// ProfileStore persists the per-user aggregate.
type ProfileStore interface {
	FindByID(ctx context.Context, userID id.UserID) (*models.Profile, error)
	Update(ctx context.Context, p *models.Profile) error
}

// StoreTx runs a function atomically across both stores.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// AuditPublisher receives verification audit events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event)
}

type Service struct {
	gateway   gateway.Gateway
	documents DocumentStore
	profiles  ProfileStore
	tx        StoreTx
	sealer    vault.Sealer

	logger         *slog.Logger
	metrics        *metrics.Metrics
	auditPublisher AuditPublisher
	capturePayload bool
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) { s.auditPublisher = p }
}

// WithProviderPayloadCapture stores the raw provider response on verified
// attempts. Off by default; the payload contains unmasked identity data.
func WithProviderPayloadCapture(enabled bool) Option {
	return func(s *Service) { s.capturePayload = enabled }
}

func New(gw gateway.Gateway, documents DocumentStore, profiles ProfileStore, storeTx StoreTx, sealer vault.Sealer, opts ...Option) *Service {
	s := &Service{
		gateway:   gw,
		documents: documents,
		profiles:  profiles,
		tx:        storeTx,
		sealer:    sealer,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StartResult is returned from a successful challenge issuance.
type StartResult struct {
	CorrelationID string
	Message       string
	DevCode       string
}

// StartAadhaarVerification issues an OTP challenge and records a Pending
// attempt bound to the provider's correlation token. The provider call runs
// before the transaction; no lock or transaction spans the round trip.
func (s *Service) StartAadhaarVerification(ctx context.Context, userID id.UserID, nationalID string) (*StartResult, error) {
	profile, err := s.profiles.FindByID(ctx, userID)
	if err != nil {
		return nil, s.profileErr(err)
	}
	if profile.AadhaarVerified {
		return nil, dErrors.New(dErrors.CodeConflict, "aadhaar is already verified")
	}
	if err := gateway.ValidateNationalID(nationalID); err != nil {
		return nil, mapProviderErr(err)
	}

	started := time.Now()
	challenge, err := s.gateway.IssueChallenge(ctx, nationalID)
	s.metrics.ObserveProvider("issue_challenge", time.Since(started))
	if err != nil {
		s.logger.WarnContext(ctx, "challenge issuance failed",
			"user_id", userID, "category", gateway.Category(err))
		return nil, mapProviderErr(err)
	}

	token, err := s.sealer.Seal(nationalID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "seal document number")
	}

	now := requestcontext.Now(ctx)
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		attempt, err := models.NewAadhaarAttempt(userID, token, models.LastFour(nationalID), challenge.CorrelationID, now)
		if err != nil {
			return err
		}
		if err := s.documents.Create(ctx, attempt); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "create attempt")
		}
		profile.MarkSubmitted(now)
		if err := s.profiles.Update(ctx, profile); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "update profile")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ChallengeIssued()
	s.emit(ctx, audit.Event{
		UserID:  userID.String(),
		Action:  audit.ActionChallengeIssued,
		Subject: challenge.CorrelationID,
	})
	s.logger.InfoContext(ctx, "aadhaar challenge issued",
		"user_id", userID, "correlation_id", challenge.CorrelationID)

	return &StartResult{
		CorrelationID: challenge.CorrelationID,
		Message:       challenge.Message,
		DevCode:       challenge.DevCode,
	}, nil
}

// VerifiedDetails is the identity summary returned after a successful
// resolution. The address is stored but never returned here.
type VerifiedDetails struct {
	Name        string
	DateOfBirth string
	Gender      string
}

// CompleteAadhaarVerification resolves an outstanding challenge. The provider
// round trip happens outside any lock or transaction; the attempt transition
// afterwards is conditional on the attempt still being Pending, so of two
// concurrent completions one wins and the other reports an unknown challenge.
func (s *Service) CompleteAadhaarVerification(ctx context.Context, userID id.UserID, correlationID, code string) (*VerifiedDetails, error) {
	if correlationID == "" || code == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "correlation id and code are required")
	}
	if _, err := s.profiles.FindByID(ctx, userID); err != nil {
		return nil, s.profileErr(err)
	}

	// Cheap pre-check so a fabricated token never costs a provider call.
	if _, err := s.documents.FindPendingByCorrelation(ctx, userID, correlationID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.metrics.VerificationResolved(metrics.OutcomeUnknown)
			return nil, errUnknownChallenge()
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "find attempt")
	}

	started := time.Now()
	identity, err := s.gateway.ResolveChallenge(ctx, correlationID, code)
	s.metrics.ObserveProvider("resolve_challenge", time.Since(started))
	if err != nil {
		return nil, s.completeFailed(ctx, userID, correlationID, err)
	}
	return s.completeVerified(ctx, userID, correlationID, identity)
}

func (s *Service) completeVerified(ctx context.Context, userID id.UserID, correlationID string, identity gateway.Identity) (*VerifiedDetails, error) {
	attrs := models.VerifiedAttributes{
		Name:        identity.Name,
		DateOfBirth: identity.DateOfBirth,
		Gender:      identity.Gender,
		Address:     identity.Address,
	}
	if s.capturePayload {
		attrs.Raw = identity.Raw
	}

	now := requestcontext.Now(ctx)
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		_, err := s.documents.Resolve(ctx, userID, correlationID,
			func(d *models.Document) error { return d.CanResolve() },
			func(d *models.Document) { d.ApplyVerified(now, attrs) })
		if err != nil {
			return err
		}
		return s.recomputeAggregate(ctx, userID, now)
	})
	if errors.Is(err, sentinel.ErrNotFound) {
		// Lost the race: another resolution consumed the attempt first.
		s.metrics.VerificationResolved(metrics.OutcomeUnknown)
		return nil, errUnknownChallenge()
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "resolve attempt")
	}

	s.metrics.VerificationResolved(metrics.OutcomeVerified)
	s.emit(ctx, audit.Event{
		UserID:  userID.String(),
		Action:  audit.ActionAadhaarVerified,
		Subject: correlationID,
	})
	s.logger.InfoContext(ctx, "aadhaar verified", "user_id", userID)

	return &VerifiedDetails{
		Name:        identity.Name,
		DateOfBirth: identity.DateOfBirth,
		Gender:      identity.Gender,
	}, nil
}

func (s *Service) completeFailed(ctx context.Context, userID id.UserID, correlationID string, provErr error) error {
	category := gateway.Category(provErr)
	s.logger.WarnContext(ctx, "aadhaar resolution failed",
		"user_id", userID, "category", category)

	switch category {
	case gateway.CategoryInvalidCredential:
		// The provider consumed the challenge; mark the attempt Failed. The
		// aggregate is untouched: a failed attempt never regresses it.
		reason := providerMessage(provErr)
		_, err := s.documents.Resolve(ctx, userID, correlationID,
			func(d *models.Document) error { return d.CanResolve() },
			func(d *models.Document) { d.ApplyFailed(reason) })
		if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeInternal, "fail attempt")
		}
		if errors.Is(err, sentinel.ErrNotFound) {
			s.metrics.VerificationResolved(metrics.OutcomeUnknown)
			return errUnknownChallenge()
		}
		s.metrics.VerificationResolved(metrics.OutcomeFailed)
		s.emit(ctx, audit.Event{
			UserID:  userID.String(),
			Action:  audit.ActionVerificationFailed,
			Subject: correlationID,
			Reason:  reason,
		})
		return mapProviderErr(provErr)

	case gateway.CategoryUnknownChallenge:
		s.metrics.VerificationResolved(metrics.OutcomeUnknown)
		return errUnknownChallenge()

	default:
		// Timeout, outage, or unclassified: the attempt stays Pending so the
		// caller can retry the same challenge once the provider recovers.
		s.metrics.VerificationResolved(metrics.OutcomeUnavailable)
		return mapProviderErr(provErr)
	}
}

// recomputeAggregate derives the profile projection from attempt records.
// It is idempotent: rerunning after a partial failure converges on the same
// state.
func (s *Service) recomputeAggregate(ctx context.Context, userID id.UserID, now time.Time) error {
	verified, err := s.documents.HasVerified(ctx, userID, models.DocumentTypeAadhaar)
	if err != nil {
		return err
	}
	profile, err := s.profiles.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	profile.ApplyAggregate(verified, now)
	return s.profiles.Update(ctx, profile)
}

// RecordPANDocument stores a PAN number for manual review. There is no
// automated verification path; the record stays Pending until back office
// action.
func (s *Service) RecordPANDocument(ctx context.Context, userID id.UserID, panNumber string) error {
	profile, err := s.profiles.FindByID(ctx, userID)
	if err != nil {
		return s.profileErr(err)
	}
	if !models.ValidPAN(panNumber) {
		return dErrors.New(dErrors.CodeInvalidInput, "pan number must match the format ABCDE1234F")
	}
	normalized := models.NormalizePAN(panNumber)

	token, err := s.sealer.Seal(normalized)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "seal document number")
	}

	now := requestcontext.Now(ctx)
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		doc, err := models.NewPANDocument(userID, token, models.LastFour(normalized), now)
		if err != nil {
			return err
		}
		if err := s.documents.Create(ctx, doc); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "create document")
		}
		profile.MarkSubmitted(now)
		if err := s.profiles.Update(ctx, profile); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "update profile")
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.metrics.PANRecorded()
	s.emit(ctx, audit.Event{
		UserID: userID.String(),
		Action: audit.ActionPANDocumentRecorded,
	})
	s.logger.InfoContext(ctx, "pan document recorded", "user_id", userID)
	return nil
}

// Status returns the masked aggregate view.
func (s *Service) Status(ctx context.Context, userID id.UserID) (*models.StatusView, error) {
	profile, err := s.profiles.FindByID(ctx, userID)
	if err != nil {
		return nil, s.profileErr(err)
	}
	docs, err := s.documents.ListByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list documents")
	}

	view := &models.StatusView{
		KYCStatus:       profile.Status,
		AadhaarVerified: profile.AadhaarVerified,
		PANVerified:     profile.PANVerified,
		KYCSubmittedAt:  profile.SubmittedAt,
		KYCVerifiedAt:   profile.VerifiedAt,
	}
	for _, doc := range docs {
		switch {
		case doc.Type == models.DocumentTypeAadhaar && doc.Status == models.DocumentStatusVerified && view.AadhaarDetails == nil:
			view.AadhaarDetails = &models.AadhaarDetails{
				Name:           doc.VerifiedName,
				DateOfBirth:    doc.DateOfBirth,
				Gender:         doc.Gender,
				LastFourDigits: doc.NumberLast4,
			}
		case doc.Type == models.DocumentTypePAN && view.PANDetails == nil:
			// Docs are newest-first, so this is the latest PAN submission.
			view.PANDetails = &models.PANDetails{
				MaskedNumber: models.MaskedNumber(doc.NumberLast4),
				Status:       doc.Status,
			}
		}
	}
	return view, nil
}

// Documents returns the masked attempt history, newest first.
func (s *Service) Documents(ctx context.Context, userID id.UserID) ([]models.DocumentView, error) {
	if _, err := s.profiles.FindByID(ctx, userID); err != nil {
		return nil, s.profileErr(err)
	}
	docs, err := s.documents.ListByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list documents")
	}
	views := make([]models.DocumentView, 0, len(docs))
	for _, doc := range docs {
		views = append(views, doc.View())
	}
	return views, nil
}

func (s *Service) profileErr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "user not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "load profile")
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditPublisher != nil {
		s.auditPublisher.Emit(ctx, event)
	}
}
