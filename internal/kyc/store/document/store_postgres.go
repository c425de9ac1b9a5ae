package document

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"kyc-gateway/internal/kyc/models"
	id "kyc-gateway/pkg/domain"
	"kyc-gateway/pkg/platform/sentinel"
	"kyc-gateway/pkg/platform/tx"
)

// Postgres stores attempts in the kyc_documents table.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Postgres) conn(ctx context.Context) execer {
	if t, ok := tx.From(ctx); ok {
		return t
	}
	return s.db
}

const documentColumns = `id, user_id, document_type, status, number_token, number_last4,
	correlation_id, uploaded_at, verified_at, verified_name, date_of_birth, gender,
	address, failure_reason, provider_response`

func (s *Postgres) Create(ctx context.Context, doc *models.Document) error {
	_, err := s.conn(ctx).ExecContext(ctx, `
		INSERT INTO kyc_documents (`+documentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		doc.ID.String(), doc.UserID.String(), doc.Type, doc.Status,
		doc.NumberToken, doc.NumberLast4, doc.CorrelationID, doc.UploadedAt,
		doc.VerifiedAt, nullString(doc.VerifiedName), nullString(doc.DateOfBirth),
		nullString(doc.Gender), nullString(doc.Address), nullString(doc.FailureReason),
		nullBytes(doc.ProviderResponse),
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (s *Postgres) FindPendingByCorrelation(ctx context.Context, userID id.UserID, correlationID string) (*models.Document, error) {
	row := s.conn(ctx).QueryRowContext(ctx, `
		SELECT `+documentColumns+`
		FROM kyc_documents
		WHERE user_id = $1 AND correlation_id = $2
		  AND document_type = $3 AND status = $4
		ORDER BY uploaded_at DESC
		LIMIT 1`,
		userID.String(), correlationID, models.DocumentTypeAadhaar, models.DocumentStatusPending,
	)
	return scanDocument(row)
}

// Resolve locks the most recent matching Pending attempt, applies the
// callbacks, and persists the result in one statement pair. Run inside a
// transaction; the row lock makes a concurrent resolver wait and then miss,
// since the row is no longer Pending.
func (s *Postgres) Resolve(ctx context.Context, userID id.UserID, correlationID string,
	validate func(*models.Document) error, mutate func(*models.Document)) (*models.Document, error) {
	conn := s.conn(ctx)

	row := conn.QueryRowContext(ctx, `
		SELECT `+documentColumns+`
		FROM kyc_documents
		WHERE user_id = $1 AND correlation_id = $2
		  AND document_type = $3 AND status = $4
		ORDER BY uploaded_at DESC
		LIMIT 1
		FOR UPDATE`,
		userID.String(), correlationID, models.DocumentTypeAadhaar, models.DocumentStatusPending,
	)
	doc, err := scanDocument(row)
	if err != nil {
		return nil, err
	}
	if err := validate(doc); err != nil {
		return nil, err
	}
	mutate(doc)

	res, err := conn.ExecContext(ctx, `
		UPDATE kyc_documents
		SET status = $1, correlation_id = $2, verified_at = $3, verified_name = $4,
		    date_of_birth = $5, gender = $6, address = $7, failure_reason = $8,
		    provider_response = $9
		WHERE id = $10 AND status = $11`,
		doc.Status, doc.CorrelationID, doc.VerifiedAt, nullString(doc.VerifiedName),
		nullString(doc.DateOfBirth), nullString(doc.Gender), nullString(doc.Address),
		nullString(doc.FailureReason), nullBytes(doc.ProviderResponse),
		doc.ID.String(), models.DocumentStatusPending,
	)
	if err != nil {
		return nil, fmt.Errorf("resolve document: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("resolve document: %w", err)
	}
	if affected == 0 {
		return nil, sentinel.ErrNotFound
	}
	return doc, nil
}

func (s *Postgres) ListByUser(ctx context.Context, userID id.UserID) ([]*models.Document, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, `
		SELECT `+documentColumns+`
		FROM kyc_documents
		WHERE user_id = $1
		ORDER BY uploaded_at DESC, id DESC`,
		userID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var out []*models.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

func (s *Postgres) HasVerified(ctx context.Context, userID id.UserID, docType models.DocumentType) (bool, error) {
	var exists bool
	err := s.conn(ctx).QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM kyc_documents
			WHERE user_id = $1 AND document_type = $2 AND status = $3
		)`,
		userID.String(), docType, models.DocumentStatusVerified,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("count verified documents: %w", err)
	}
	return exists, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*models.Document, error) {
	var (
		doc           models.Document
		docID, userID string
		correlationID sql.NullString
		verifiedName  sql.NullString
		dateOfBirth   sql.NullString
		gender        sql.NullString
		address       sql.NullString
		failureReason sql.NullString
		providerResp  []byte
	)
	err := row.Scan(
		&docID, &userID, &doc.Type, &doc.Status, &doc.NumberToken, &doc.NumberLast4,
		&correlationID, &doc.UploadedAt, &doc.VerifiedAt, &verifiedName, &dateOfBirth,
		&gender, &address, &failureReason, &providerResp,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan document: %w", err)
	}
	doc.ID, err = id.ParseAttemptID(docID)
	if err != nil {
		return nil, fmt.Errorf("scan document: %w", err)
	}
	doc.UserID, err = id.ParseUserID(userID)
	if err != nil {
		return nil, fmt.Errorf("scan document: %w", err)
	}
	if correlationID.Valid {
		doc.CorrelationID = &correlationID.String
	}
	doc.VerifiedName = verifiedName.String
	doc.DateOfBirth = dateOfBirth.String
	doc.Gender = gender.String
	doc.Address = address.String
	doc.FailureReason = failureReason.String
	doc.ProviderResponse = providerResp
	return &doc, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return b
}
