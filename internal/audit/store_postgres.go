package audit

import (
	"context"
	"database/sql"
	"fmt"

	txcontext "kyc-gateway/pkg/platform/tx"
)

// PostgresStore appends audit events to an append-only table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO audit_events (occurred_at, user_id, action, subject, reason, request_id, client_ip)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		event.Timestamp, nullString(event.UserID), event.Action,
		nullString(event.Subject), nullString(event.Reason),
		nullString(event.RequestID), nullString(event.ClientIP),
	)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
