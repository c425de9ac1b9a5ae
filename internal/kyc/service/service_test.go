package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kyc-gateway/internal/audit"
	"kyc-gateway/internal/gateway"
	"kyc-gateway/internal/kyc/models"
	"kyc-gateway/internal/kyc/store"
	documentstore "kyc-gateway/internal/kyc/store/document"
	profilestore "kyc-gateway/internal/kyc/store/profile"
	"kyc-gateway/internal/vault"
	id "kyc-gateway/pkg/domain"
	dErrors "kyc-gateway/pkg/domain-errors"
	"kyc-gateway/pkg/requestcontext"
)

const (
	testAadhaar = "123456789012"
	testPAN     = "ABCDE1234F"
)

type capturingPublisher struct {
	mu     sync.Mutex
	events []audit.Event
}

func (p *capturingPublisher) Emit(_ context.Context, event audit.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *capturingPublisher) actions() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Action)
	}
	return out
}

type fixture struct {
	svc       *Service
	gateway   gateway.Gateway
	documents *documentstore.InMemory
	profiles  *profilestore.InMemory
	audit     *capturingPublisher
	userID    id.UserID
	ctx       context.Context
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	gw := gateway.NewSandbox(gateway.NewInMemoryChallengeStore(), 5*time.Minute)
	documents := documentstore.NewInMemory()
	profiles := profilestore.NewInMemory()
	publisher := &capturingPublisher{}

	uid, err := id.ParseUserID("7f8c6a9e-5f2b-4f51-9a34-6f1f3f0a1b2c")
	require.NoError(t, err)

	ctx := requestcontext.WithTime(context.Background(), time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
	require.NoError(t, profiles.Create(ctx, models.NewProfile(uid)))

	opts = append([]Option{WithAuditPublisher(publisher)}, opts...)
	svc := New(gw, documents, profiles, store.NoopRunner{}, vault.NewDev("test-seed"), opts...)

	return &fixture{
		svc:       svc,
		gateway:   gw,
		documents: documents,
		profiles:  profiles,
		audit:     publisher,
		userID:    uid,
		ctx:       ctx,
	}
}

func (f *fixture) start(t *testing.T) *StartResult {
	t.Helper()
	result, err := f.svc.StartAadhaarVerification(f.ctx, f.userID, testAadhaar)
	require.NoError(t, err)
	return result
}

func (f *fixture) verify(t *testing.T) {
	t.Helper()
	result := f.start(t)
	_, err := f.svc.CompleteAadhaarVerification(f.ctx, f.userID, result.CorrelationID, result.DevCode)
	require.NoError(t, err)
}

func TestStartAadhaarVerification(t *testing.T) {
	f := newFixture(t)

	result := f.start(t)
	assert.NotEmpty(t, result.CorrelationID)
	assert.Equal(t, gateway.SandboxCode, result.DevCode)
	assert.NotEmpty(t, result.Message)

	// A Pending attempt bound to the correlation token exists.
	attempt, err := f.documents.FindPendingByCorrelation(f.ctx, f.userID, result.CorrelationID)
	require.NoError(t, err)
	assert.Equal(t, models.DocumentStatusPending, attempt.Status)
	assert.Equal(t, "9012", attempt.NumberLast4)
	assert.NotEqual(t, testAadhaar, attempt.NumberToken, "raw number must not be stored")

	// First submission moves the profile to Pending and stamps SubmittedAt.
	profile, err := f.profiles.FindByID(f.ctx, f.userID)
	require.NoError(t, err)
	assert.Equal(t, models.KYCStatusPending, profile.Status)
	assert.NotNil(t, profile.SubmittedAt)
	assert.False(t, profile.AadhaarVerified)

	assert.Equal(t, []string{audit.ActionChallengeIssued}, f.audit.actions())
}

func TestStartAadhaarVerificationUnknownUser(t *testing.T) {
	f := newFixture(t)
	stranger, err := id.ParseUserID("00000000-0000-4000-8000-000000000001")
	require.NoError(t, err)

	_, err = f.svc.StartAadhaarVerification(f.ctx, stranger, testAadhaar)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestStartAadhaarVerificationInvalidNumber(t *testing.T) {
	f := newFixture(t)
	for _, bad := range []string{"", "12345", "1234567890123", "12345678901a"} {
		_, err := f.svc.StartAadhaarVerification(f.ctx, f.userID, bad)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput), "number %q", bad)
	}

	// Nothing recorded and nothing audited.
	docs, err := f.documents.ListByUser(f.ctx, f.userID)
	require.NoError(t, err)
	assert.Empty(t, docs)
	assert.Empty(t, f.audit.actions())
}

func TestStartAadhaarVerificationAlreadyVerified(t *testing.T) {
	f := newFixture(t)
	f.verify(t)

	_, err := f.svc.StartAadhaarVerification(f.ctx, f.userID, testAadhaar)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}

func TestCompleteAadhaarVerificationSuccess(t *testing.T) {
	f := newFixture(t)
	result := f.start(t)

	details, err := f.svc.CompleteAadhaarVerification(f.ctx, f.userID, result.CorrelationID, result.DevCode)
	require.NoError(t, err)
	assert.Equal(t, "Test User", details.Name)
	assert.Equal(t, "01-01-1990", details.DateOfBirth)
	assert.Equal(t, "M", details.Gender)

	docs, err := f.documents.ListByUser(f.ctx, f.userID)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, models.DocumentStatusVerified, docs[0].Status)
	assert.Nil(t, docs[0].CorrelationID, "correlation cleared on terminal state")
	assert.NotNil(t, docs[0].VerifiedAt)
	assert.Empty(t, docs[0].ProviderResponse, "payload capture is off by default")

	profile, err := f.profiles.FindByID(f.ctx, f.userID)
	require.NoError(t, err)
	assert.True(t, profile.AadhaarVerified)
	assert.Equal(t, models.KYCStatusVerified, profile.Status)
	assert.NotNil(t, profile.VerifiedAt)

	assert.Equal(t, []string{audit.ActionChallengeIssued, audit.ActionAadhaarVerified}, f.audit.actions())
}

func TestCompleteAadhaarVerificationPayloadCapture(t *testing.T) {
	f := newFixture(t, WithProviderPayloadCapture(true))
	f.verify(t)

	docs, err := f.documents.ListByUser(f.ctx, f.userID)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.NotEmpty(t, docs[0].ProviderResponse)
}

func TestCompleteAadhaarVerificationWrongCode(t *testing.T) {
	f := newFixture(t)
	result := f.start(t)

	_, err := f.svc.CompleteAadhaarVerification(f.ctx, f.userID, result.CorrelationID, "000000")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))

	// The attempt is terminally Failed; the aggregate never regresses below
	// Pending and the profile stays unverified.
	docs, err := f.documents.ListByUser(f.ctx, f.userID)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, models.DocumentStatusFailed, docs[0].Status)
	assert.Nil(t, docs[0].VerifiedAt)
	assert.NotEmpty(t, docs[0].FailureReason)

	profile, err := f.profiles.FindByID(f.ctx, f.userID)
	require.NoError(t, err)
	assert.False(t, profile.AadhaarVerified)
	assert.Equal(t, models.KYCStatusPending, profile.Status)

	// The challenge was consumed: retrying the same token, even with the
	// right code, reports an unknown challenge.
	_, err = f.svc.CompleteAadhaarVerification(f.ctx, f.userID, result.CorrelationID, gateway.SandboxCode)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))

	assert.Contains(t, f.audit.actions(), audit.ActionVerificationFailed)
}

func TestCompleteAadhaarVerificationUnknownCorrelation(t *testing.T) {
	f := newFixture(t)
	f.start(t)

	_, err := f.svc.CompleteAadhaarVerification(f.ctx, f.userID, "fabricated", gateway.SandboxCode)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func TestCompleteAadhaarVerificationUnknownUser(t *testing.T) {
	f := newFixture(t)
	result := f.start(t)

	stranger, err := id.ParseUserID("00000000-0000-4000-8000-000000000001")
	require.NoError(t, err)
	_, err = f.svc.CompleteAadhaarVerification(f.ctx, stranger, result.CorrelationID, result.DevCode)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestCompleteAadhaarVerificationMissingInput(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CompleteAadhaarVerification(f.ctx, f.userID, "", "")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestCompleteAadhaarVerificationRetryAfterFailure(t *testing.T) {
	f := newFixture(t)
	first := f.start(t)
	_, err := f.svc.CompleteAadhaarVerification(f.ctx, f.userID, first.CorrelationID, "000000")
	require.Error(t, err)

	// A fresh challenge succeeds; the failed attempt stays in history.
	second := f.start(t)
	_, err = f.svc.CompleteAadhaarVerification(f.ctx, f.userID, second.CorrelationID, second.DevCode)
	require.NoError(t, err)

	docs, err := f.documents.ListByUser(f.ctx, f.userID)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, models.DocumentStatusVerified, docs[0].Status)
	assert.Equal(t, models.DocumentStatusFailed, docs[1].Status)

	profile, err := f.profiles.FindByID(f.ctx, f.userID)
	require.NoError(t, err)
	assert.True(t, profile.AadhaarVerified)
}

type outageGateway struct{ issued gateway.Gateway }

func (g outageGateway) IssueChallenge(ctx context.Context, nationalID string) (gateway.Challenge, error) {
	return g.issued.IssueChallenge(ctx, nationalID)
}

func (g outageGateway) ResolveChallenge(context.Context, string, string) (gateway.Identity, error) {
	return gateway.Identity{}, gateway.NewProviderError(gateway.CategoryOutage, "provider down", nil)
}

func TestCompleteAadhaarVerificationProviderOutage(t *testing.T) {
	f := newFixture(t)
	f.svc.gateway = outageGateway{issued: f.gateway}

	result := f.start(t)
	_, err := f.svc.CompleteAadhaarVerification(f.ctx, f.userID, result.CorrelationID, gateway.SandboxCode)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))

	// The attempt stays Pending: the caller may retry once the provider
	// recovers.
	attempt, err := f.documents.FindPendingByCorrelation(f.ctx, f.userID, result.CorrelationID)
	require.NoError(t, err)
	assert.Equal(t, models.DocumentStatusPending, attempt.Status)

	// Recovery: the original backend answers and the same challenge resolves.
	f.svc.gateway = f.gateway
	_, err = f.svc.CompleteAadhaarVerification(f.ctx, f.userID, result.CorrelationID, result.DevCode)
	require.NoError(t, err)
}

func TestCompleteAadhaarVerificationSingleWinner(t *testing.T) {
	f := newFixture(t)
	result := f.start(t)

	var wg sync.WaitGroup
	outcomes := make(chan error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.CompleteAadhaarVerification(f.ctx, f.userID, result.CorrelationID, result.DevCode)
			outcomes <- err
		}()
	}
	wg.Wait()
	close(outcomes)

	var wins, losses int
	for err := range outcomes {
		if err == nil {
			wins++
		} else {
			assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
			losses++
		}
	}
	assert.Equal(t, 1, wins, "exactly one resolution wins")
	assert.Equal(t, 3, losses)

	docs, err := f.documents.ListByUser(f.ctx, f.userID)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, models.DocumentStatusVerified, docs[0].Status)
}

func TestRecordPANDocument(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.svc.RecordPANDocument(f.ctx, f.userID, "abcde1234f"))

	docs, err := f.documents.ListByUser(f.ctx, f.userID)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, models.DocumentTypePAN, docs[0].Type)
	assert.Equal(t, models.DocumentStatusPending, docs[0].Status)
	assert.Equal(t, "234F", docs[0].NumberLast4)
	assert.NotEqual(t, testPAN, docs[0].NumberToken)

	profile, err := f.profiles.FindByID(f.ctx, f.userID)
	require.NoError(t, err)
	assert.Equal(t, models.KYCStatusPending, profile.Status)
	assert.False(t, profile.PANVerified, "pan has no automated verification path")

	assert.Equal(t, []string{audit.ActionPANDocumentRecorded}, f.audit.actions())
}

func TestRecordPANDocumentInvalidFormat(t *testing.T) {
	f := newFixture(t)
	for _, bad := range []string{"", "ABCDE1234", "1BCDE1234F", "ABCDE12345"} {
		err := f.svc.RecordPANDocument(f.ctx, f.userID, bad)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput), "pan %q", bad)
	}
}

func TestStatusAggregation(t *testing.T) {
	f := newFixture(t)

	view, err := f.svc.Status(f.ctx, f.userID)
	require.NoError(t, err)
	assert.Equal(t, models.KYCStatusNotSubmitted, view.KYCStatus)
	assert.False(t, view.AadhaarVerified)
	assert.Nil(t, view.AadhaarDetails)
	assert.Nil(t, view.PANDetails)

	f.verify(t)
	require.NoError(t, f.svc.RecordPANDocument(f.ctx, f.userID, testPAN))

	view, err = f.svc.Status(f.ctx, f.userID)
	require.NoError(t, err)
	assert.Equal(t, models.KYCStatusVerified, view.KYCStatus)
	assert.True(t, view.AadhaarVerified)
	assert.NotNil(t, view.KYCSubmittedAt)
	assert.NotNil(t, view.KYCVerifiedAt)

	require.NotNil(t, view.AadhaarDetails)
	assert.Equal(t, "Test User", view.AadhaarDetails.Name)
	assert.Equal(t, "9012", view.AadhaarDetails.LastFourDigits)

	require.NotNil(t, view.PANDetails)
	assert.Equal(t, "********234F", view.PANDetails.MaskedNumber)
	assert.Equal(t, models.DocumentStatusPending, view.PANDetails.Status)
}

func TestStatusAfterFailedAttemptOnly(t *testing.T) {
	f := newFixture(t)
	result := f.start(t)
	_, err := f.svc.CompleteAadhaarVerification(f.ctx, f.userID, result.CorrelationID, "000000")
	require.Error(t, err)

	view, err := f.svc.Status(f.ctx, f.userID)
	require.NoError(t, err)
	assert.Equal(t, models.KYCStatusPending, view.KYCStatus)
	assert.False(t, view.AadhaarVerified)
	assert.Nil(t, view.AadhaarDetails)
}

func TestDocumentsMasked(t *testing.T) {
	f := newFixture(t)
	f.verify(t)
	require.NoError(t, f.svc.RecordPANDocument(f.ctx, f.userID, testPAN))

	views, err := f.svc.Documents(f.ctx, f.userID)
	require.NoError(t, err)
	require.Len(t, views, 2)

	// Newest first: the PAN record precedes the verified Aadhaar attempt.
	assert.Equal(t, models.DocumentTypePAN, views[0].Type)
	assert.Equal(t, "********234F", views[0].MaskedNumber)
	assert.Equal(t, models.DocumentTypeAadhaar, views[1].Type)
	assert.Equal(t, "********9012", views[1].MaskedNumber)
	assert.Equal(t, "Test User", views[1].VerifiedName)
	assert.NotNil(t, views[1].VerifiedAt)
}
