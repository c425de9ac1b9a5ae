// Package store provides transaction plumbing shared by the kyc stores.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"kyc-gateway/pkg/platform/tx"
)

// SQLRunner runs a function inside a database transaction. The transaction
// rides the context so every store call within fn joins it.
type SQLRunner struct {
	db *sql.DB
}

func NewSQLRunner(db *sql.DB) *SQLRunner {
	return &SQLRunner{db: db}
}

func (r *SQLRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	t, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx.WithTx(ctx, t)); err != nil {
		_ = t.Rollback()
		return err
	}
	if err := t.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// NoopRunner is the in-memory counterpart: the memory stores provide their
// own atomicity, so fn just runs on the caller's context.
type NoopRunner struct{}

func (NoopRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
