package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ericfisherdev/passpanel/internal/domain/model"
	"github.com/ericfisherdev/passpanel/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.PendingStore = (*PendingRepo)(nil)

// PendingRepo is the SQLite implementation of the PendingStore port interface.
// The table holds at most one row; staging replaces it.
type PendingRepo struct {
	db *DB
}

// NewPendingRepo creates a new PendingRepo backed by the given DB.
func NewPendingRepo(db *DB) *PendingRepo {
	return &PendingRepo{db: db}
}

// Stage replaces the pending slot with p.
func (r *PendingRepo) Stage(ctx context.Context, p model.PendingCredential) error {
	const query = `
		INSERT OR REPLACE INTO pending_credential (slot, url, login_url, username, password, staged_at)
		VALUES (1, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Writer.ExecContext(ctx, query,
		p.URL, p.LoginURL, p.Username, p.Password, formatTime(p.StagedAt),
	)
	if err != nil {
		return fmt.Errorf("stage pending credential: %w", err)
	}

	return nil
}

// Get returns the staged credential. Returns nil, nil if the slot is empty.
func (r *PendingRepo) Get(ctx context.Context) (*model.PendingCredential, error) {
	const query = `
		SELECT url, login_url, username, password, staged_at
		FROM pending_credential
		WHERE slot = 1
	`

	var p model.PendingCredential
	var stagedAt string

	err := r.db.Reader.QueryRowContext(ctx, query).Scan(
		&p.URL, &p.LoginURL, &p.Username, &p.Password, &stagedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get pending credential: %w", err)
	}

	p.StagedAt, err = parseTime(stagedAt)
	if err != nil {
		return nil, fmt.Errorf("parse staged_at: %w", err)
	}

	return &p, nil
}

// Clear empties the pending slot. Clearing an empty slot is not an error.
func (r *PendingRepo) Clear(ctx context.Context) error {
	if _, err := r.db.Writer.ExecContext(ctx, `DELETE FROM pending_credential`); err != nil {
		return fmt.Errorf("clear pending credential: %w", err)
	}

	return nil
}
