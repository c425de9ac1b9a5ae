//go:build integration

package profile

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"kyc-gateway/internal/kyc/models"
	"kyc-gateway/internal/platform/postgres"
	id "kyc-gateway/pkg/domain"
	"kyc-gateway/pkg/platform/sentinel"
	"kyc-gateway/pkg/testutil/containers"
)

type PostgresSuite struct {
	suite.Suite
	pg     *containers.PostgresContainer
	store  *Postgres
	userID id.UserID
}

func TestPostgresSuite(t *testing.T) {
	suite.Run(t, new(PostgresSuite))
}

func (s *PostgresSuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
	s.Require().NoError(postgres.Migrate(context.Background(), s.pg.DB))
	s.store = NewPostgres(s.pg.DB)

	uid, err := id.ParseUserID("7f8c6a9e-5f2b-4f51-9a34-6f1f3f0a1b2c")
	s.Require().NoError(err)
	s.userID = uid
}

func (s *PostgresSuite) TearDownSuite() {
	_ = s.pg.DB.Close()
	_ = s.pg.Container.Terminate(context.Background())
}

func (s *PostgresSuite) SetupTest() {
	_, err := s.pg.DB.ExecContext(context.Background(), `TRUNCATE kyc_profiles CASCADE`)
	s.Require().NoError(err)
}

func (s *PostgresSuite) TestLifecycle() {
	ctx := context.Background()

	_, err := s.store.FindByID(ctx, s.userID)
	s.ErrorIs(err, sentinel.ErrNotFound)

	p := models.NewProfile(s.userID)
	s.Require().NoError(s.store.Create(ctx, p))
	s.ErrorIs(s.store.Create(ctx, p), sentinel.ErrConflict)

	found, err := s.store.FindByID(ctx, s.userID)
	s.Require().NoError(err)
	s.Equal(models.KYCStatusNotSubmitted, found.Status)
	s.False(found.AadhaarVerified)

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	found.MarkSubmitted(now)
	found.ApplyAggregate(true, now)
	s.Require().NoError(s.store.Update(ctx, found))

	again, err := s.store.FindByID(ctx, s.userID)
	s.Require().NoError(err)
	s.Equal(models.KYCStatusVerified, again.Status)
	s.True(again.AadhaarVerified)
	s.Require().NotNil(again.SubmittedAt)
	s.Require().NotNil(again.VerifiedAt)
	s.True(again.VerifiedAt.Equal(now))
}

func (s *PostgresSuite) TestUpdateMissing() {
	p := models.NewProfile(s.userID)
	s.ErrorIs(s.store.Update(context.Background(), p), sentinel.ErrNotFound)
}
