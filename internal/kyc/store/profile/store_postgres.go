package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"kyc-gateway/internal/kyc/models"
	id "kyc-gateway/pkg/domain"
	"kyc-gateway/pkg/platform/sentinel"
	"kyc-gateway/pkg/platform/tx"
)

type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Postgres) conn(ctx context.Context) execer {
	if t, ok := tx.From(ctx); ok {
		return t
	}
	return s.db
}

func (s *Postgres) Create(ctx context.Context, p *models.Profile) error {
	_, err := s.conn(ctx).ExecContext(ctx, `
		INSERT INTO kyc_profiles (user_id, status, aadhaar_verified, pan_verified, submitted_at, verified_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		p.UserID.String(), p.Status, p.AadhaarVerified, p.PANVerified, p.SubmittedAt, p.VerifiedAt,
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert profile: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, userID id.UserID) (*models.Profile, error) {
	var (
		p   models.Profile
		uid string
	)
	err := s.conn(ctx).QueryRowContext(ctx, `
		SELECT user_id, status, aadhaar_verified, pan_verified, submitted_at, verified_at
		FROM kyc_profiles
		WHERE user_id = $1`,
		userID.String(),
	).Scan(&uid, &p.Status, &p.AadhaarVerified, &p.PANVerified, &p.SubmittedAt, &p.VerifiedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find profile: %w", err)
	}
	p.UserID, err = id.ParseUserID(uid)
	if err != nil {
		return nil, fmt.Errorf("find profile: %w", err)
	}
	return &p, nil
}

func (s *Postgres) Update(ctx context.Context, p *models.Profile) error {
	res, err := s.conn(ctx).ExecContext(ctx, `
		UPDATE kyc_profiles
		SET status = $1, aadhaar_verified = $2, pan_verified = $3, submitted_at = $4, verified_at = $5
		WHERE user_id = $6`,
		p.Status, p.AadhaarVerified, p.PANVerified, p.SubmittedAt, p.VerifiedAt, p.UserID.String(),
	)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
