package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ericfisherdev/passpanel/internal/domain/model"
	"github.com/ericfisherdev/passpanel/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.CredentialStore = (*CredentialRepo)(nil)

const credentialColumns = `id, url, login_url, username, password, created_at, updated_at`

// CredentialRepo is the SQLite implementation of the CredentialStore port interface.
// Passwords are stored as plaintext; a UNIQUE (url, username) index backs the
// one-record-per-login invariant.
type CredentialRepo struct {
	db *DB
}

// NewCredentialRepo creates a new CredentialRepo backed by the given DB.
func NewCredentialRepo(db *DB) *CredentialRepo {
	return &CredentialRepo{db: db}
}

// Upsert saves a login keyed by its exact (url, username) pair in a single
// read-modify-write transaction.
func (r *CredentialRepo) Upsert(ctx context.Context, input model.CredentialInput, id string, now time.Time) (model.Credential, bool, error) {
	loginURL := input.LoginURL
	if loginURL == "" {
		loginURL = input.URL
	}

	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return model.Credential{}, false, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after commit is a no-op.

	const selectQuery = `SELECT ` + credentialColumns + ` FROM credentials WHERE url = ? AND username = ?`
	existing, err := scanCredential(tx.QueryRowContext(ctx, selectQuery, input.URL, input.Username))

	var (
		cred    model.Credential
		created bool
	)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		cred = model.Credential{
			ID:        id,
			URL:       input.URL,
			LoginURL:  loginURL,
			Username:  input.Username,
			Password:  input.Password,
			CreatedAt: now.UTC(),
		}
		const insertQuery = `INSERT INTO credentials (id, url, login_url, username, password, created_at) VALUES (?, ?, ?, ?, ?, ?)`
		if _, err := tx.ExecContext(ctx, insertQuery,
			cred.ID, cred.URL, cred.LoginURL, cred.Username, cred.Password, formatTime(cred.CreatedAt),
		); err != nil {
			return model.Credential{}, false, fmt.Errorf("insert credential %s@%s: %w", input.Username, input.URL, err)
		}
		created = true

	case err != nil:
		return model.Credential{}, false, fmt.Errorf("find credential %s@%s: %w", input.Username, input.URL, err)

	default:
		updatedAt := now.UTC()
		cred = *existing
		cred.Password = input.Password
		cred.LoginURL = loginURL
		cred.UpdatedAt = &updatedAt

		const updateQuery = `UPDATE credentials SET password = ?, login_url = ?, updated_at = ? WHERE id = ?`
		if _, err := tx.ExecContext(ctx, updateQuery,
			cred.Password, cred.LoginURL, formatTime(updatedAt), cred.ID,
		); err != nil {
			return model.Credential{}, false, fmt.Errorf("update credential %s: %w", cred.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return model.Credential{}, false, fmt.Errorf("commit credential %s: %w", cred.ID, err)
	}

	return cred, created, nil
}

// ListAll returns every credential in the order it was first saved.
func (r *CredentialRepo) ListAll(ctx context.Context) ([]model.Credential, error) {
	const query = `SELECT ` + credentialColumns + ` FROM credentials ORDER BY seq`

	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	defer rows.Close()

	var creds []model.Credential
	for rows.Next() {
		cred, err := scanCredential(rows)
		if err != nil {
			return nil, fmt.Errorf("scan credential: %w", err)
		}
		creds = append(creds, *cred)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate credentials: %w", err)
	}

	return creds, nil
}

// GetByID returns the credential with the given id. Returns nil, nil if it
// does not exist.
func (r *CredentialRepo) GetByID(ctx context.Context, id string) (*model.Credential, error) {
	const query = `SELECT ` + credentialColumns + ` FROM credentials WHERE id = ?`

	cred, err := scanCredential(r.db.Reader.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get credential %s: %w", id, err)
	}

	return cred, nil
}

// Update overwrites every mutable column of the credential with cred.ID.
func (r *CredentialRepo) Update(ctx context.Context, cred model.Credential) error {
	const query = `
		UPDATE credentials
		SET url = ?, login_url = ?, username = ?, password = ?, updated_at = ?
		WHERE id = ?
	`

	var updatedAt any
	if cred.UpdatedAt != nil {
		updatedAt = formatTime(*cred.UpdatedAt)
	}

	result, err := r.db.Writer.ExecContext(ctx, query,
		cred.URL, cred.LoginURL, cred.Username, cred.Password, updatedAt, cred.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("update credential %s: %w", cred.ID, driven.ErrCredentialConflict)
		}
		return fmt.Errorf("update credential %s: %w", cred.ID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("update credential %s: %w", cred.ID, driven.ErrCredentialNotFound)
	}

	return nil
}

// Delete removes the credential with the given id.
func (r *CredentialRepo) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM credentials WHERE id = ?`

	result, err := r.db.Writer.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete credential %s: %w", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("delete credential %s: %w", id, driven.ErrCredentialNotFound)
	}

	return nil
}

// Merge inserts credentials whose id and (url, username) pair are both unused.
// Conflicting rows are ignored.
func (r *CredentialRepo) Merge(ctx context.Context, creds []model.Credential) (int, error) {
	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after commit is a no-op.

	const query = `INSERT OR IGNORE INTO credentials (` + credentialColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`

	var inserted int
	for _, cred := range creds {
		result, err := tx.ExecContext(ctx, query, credentialArgs(cred)...)
		if err != nil {
			return 0, fmt.Errorf("merge credential %s: %w", cred.ID, err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("check rows affected: %w", err)
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit merge: %w", err)
	}

	return inserted, nil
}

// ReplaceAll deletes every credential and inserts creds in a single
// transaction. A later entry with the same (url, username) or id as an
// earlier one replaces it.
func (r *CredentialRepo) ReplaceAll(ctx context.Context, creds []model.Credential) error {
	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after commit is a no-op.

	if _, err := tx.ExecContext(ctx, `DELETE FROM credentials`); err != nil {
		return fmt.Errorf("clear credentials: %w", err)
	}

	const query = `INSERT OR REPLACE INTO credentials (` + credentialColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`
	for _, cred := range creds {
		if _, err := tx.ExecContext(ctx, query, credentialArgs(cred)...); err != nil {
			return fmt.Errorf("insert credential %s: %w", cred.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace: %w", err)
	}

	return nil
}

func credentialArgs(cred model.Credential) []any {
	loginURL := cred.LoginURL
	if loginURL == "" {
		loginURL = cred.URL
	}

	var updatedAt any
	if cred.UpdatedAt != nil {
		updatedAt = formatTime(*cred.UpdatedAt)
	}

	return []any{
		cred.ID, cred.URL, loginURL, cred.Username, cred.Password,
		formatTime(cred.CreatedAt), updatedAt,
	}
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanCredential(s scanner) (*model.Credential, error) {
	var cred model.Credential
	var createdAt string
	var updatedAt sql.NullString

	err := s.Scan(&cred.ID, &cred.URL, &cred.LoginURL, &cred.Username, &cred.Password, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	cred.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}

	if updatedAt.Valid && updatedAt.String != "" {
		t, err := parseTime(updatedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse updated_at: %w", err)
		}
		cred.UpdatedAt = &t
	}

	return &cred, nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint")
}

// formatTime renders t in the layout parseTime reads back without loss.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime tries multiple SQLite datetime formats.
func parseTime(s string) (time.Time, error) {
	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05Z",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05.000",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized time format: %s", s)
}
