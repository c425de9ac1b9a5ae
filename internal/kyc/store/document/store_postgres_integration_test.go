//go:build integration

package document

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"kyc-gateway/internal/kyc/models"
	kycstore "kyc-gateway/internal/kyc/store"
	profilestore "kyc-gateway/internal/kyc/store/profile"
	"kyc-gateway/internal/platform/postgres"
	id "kyc-gateway/pkg/domain"
	"kyc-gateway/pkg/platform/sentinel"
	"kyc-gateway/pkg/testutil/containers"
)

type PostgresSuite struct {
	suite.Suite
	pg       *containers.PostgresContainer
	store    *Postgres
	profiles *profilestore.Postgres
	runner   *kycstore.SQLRunner
	userID   id.UserID
	now      time.Time
}

func TestPostgresSuite(t *testing.T) {
	suite.Run(t, new(PostgresSuite))
}

func (s *PostgresSuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
	s.Require().NoError(postgres.Migrate(context.Background(), s.pg.DB))
	s.store = NewPostgres(s.pg.DB)
	s.profiles = profilestore.NewPostgres(s.pg.DB)
	s.runner = kycstore.NewSQLRunner(s.pg.DB)
	s.now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
}

func (s *PostgresSuite) TearDownSuite() {
	_ = s.pg.DB.Close()
	_ = s.pg.Container.Terminate(context.Background())
}

func (s *PostgresSuite) SetupTest() {
	ctx := context.Background()
	_, err := s.pg.DB.ExecContext(ctx, `TRUNCATE kyc_documents, kyc_profiles CASCADE`)
	s.Require().NoError(err)

	uid, err := id.ParseUserID("7f8c6a9e-5f2b-4f51-9a34-6f1f3f0a1b2c")
	s.Require().NoError(err)
	s.userID = uid
	s.Require().NoError(s.profiles.Create(ctx, models.NewProfile(uid)))
}

func (s *PostgresSuite) newAttempt(correlationID string, at time.Time) *models.Document {
	doc, err := models.NewAadhaarAttempt(s.userID, "sealed-token", "9012", correlationID, at)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Create(context.Background(), doc))
	return doc
}

func (s *PostgresSuite) TestCreateAndFindPending() {
	ctx := context.Background()
	created := s.newAttempt("corr-1", s.now)

	found, err := s.store.FindPendingByCorrelation(ctx, s.userID, "corr-1")
	s.Require().NoError(err)
	s.Equal(created.ID, found.ID)
	s.Equal(models.DocumentStatusPending, found.Status)
	s.Equal("9012", found.NumberLast4)
	s.Require().NotNil(found.CorrelationID)
	s.Equal("corr-1", *found.CorrelationID)

	_, err = s.store.FindPendingByCorrelation(ctx, s.userID, "corr-missing")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresSuite) TestResolveVerifiedRoundTrip() {
	ctx := context.Background()
	s.newAttempt("corr-1", s.now)

	attrs := models.VerifiedAttributes{
		Name:        "Test User",
		DateOfBirth: "01-01-1990",
		Gender:      "M",
		Address:     "Test Address",
		Raw:         []byte(`{"source":"test"}`),
	}
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		_, err := s.store.Resolve(ctx, s.userID, "corr-1",
			func(d *models.Document) error { return d.CanResolve() },
			func(d *models.Document) { d.ApplyVerified(s.now.Add(time.Minute), attrs) })
		return err
	})
	s.Require().NoError(err)

	docs, err := s.store.ListByUser(ctx, s.userID)
	s.Require().NoError(err)
	s.Require().Len(docs, 1)
	s.Equal(models.DocumentStatusVerified, docs[0].Status)
	s.Nil(docs[0].CorrelationID)
	s.Equal("Test User", docs[0].VerifiedName)
	s.JSONEq(`{"source":"test"}`, string(docs[0].ProviderResponse))
	s.Require().NotNil(docs[0].VerifiedAt)

	ok, err := s.store.HasVerified(ctx, s.userID, models.DocumentTypeAadhaar)
	s.Require().NoError(err)
	s.True(ok)
}

func (s *PostgresSuite) TestResolveFailedKeepsVerifiedAtEmpty() {
	ctx := context.Background()
	s.newAttempt("corr-1", s.now)

	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		_, err := s.store.Resolve(ctx, s.userID, "corr-1",
			func(d *models.Document) error { return d.CanResolve() },
			func(d *models.Document) { d.ApplyFailed("invalid OTP") })
		return err
	})
	s.Require().NoError(err)

	docs, err := s.store.ListByUser(ctx, s.userID)
	s.Require().NoError(err)
	s.Require().Len(docs, 1)
	s.Equal(models.DocumentStatusFailed, docs[0].Status)
	s.Equal("invalid OTP", docs[0].FailureReason)
	s.Nil(docs[0].VerifiedAt)
}

func (s *PostgresSuite) TestResolveSingleWinner() {
	ctx := context.Background()
	s.newAttempt("corr-1", s.now)

	var wg sync.WaitGroup
	outcomes := make(chan error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcomes <- s.runner.RunInTx(ctx, func(ctx context.Context) error {
				_, err := s.store.Resolve(ctx, s.userID, "corr-1",
					func(d *models.Document) error { return d.CanResolve() },
					func(d *models.Document) {
						d.ApplyVerified(s.now, models.VerifiedAttributes{})
					})
				return err
			})
		}()
	}
	wg.Wait()
	close(outcomes)

	var wins int
	for err := range outcomes {
		if err == nil {
			wins++
		} else {
			s.ErrorIs(err, sentinel.ErrNotFound)
		}
	}
	s.Equal(1, wins)
}

func (s *PostgresSuite) TestResolvePicksMostRecentPending() {
	ctx := context.Background()
	s.newAttempt("corr-1", s.now)
	newer := s.newAttempt("corr-1", s.now.Add(time.Minute))

	found, err := s.store.FindPendingByCorrelation(ctx, s.userID, "corr-1")
	s.Require().NoError(err)
	s.Equal(newer.ID, found.ID)
}

func (s *PostgresSuite) TestListByUserNewestFirst() {
	ctx := context.Background()
	s.newAttempt("corr-1", s.now)
	pan, err := models.NewPANDocument(s.userID, "sealed-pan", "234F", s.now.Add(time.Minute))
	s.Require().NoError(err)
	s.Require().NoError(s.store.Create(ctx, pan))

	docs, err := s.store.ListByUser(ctx, s.userID)
	s.Require().NoError(err)
	s.Require().Len(docs, 2)
	s.Equal(models.DocumentTypePAN, docs[0].Type)
	s.Equal(models.DocumentTypeAadhaar, docs[1].Type)
}
