package driven

import (
	"context"
	"errors"
	"time"

	"github.com/ericfisherdev/passpanel/internal/domain/model"
)

// Sentinel errors returned by CredentialStore implementations.
var (
	// ErrCredentialNotFound indicates no credential has the requested id.
	ErrCredentialNotFound = errors.New("credential not found")

	// ErrCredentialConflict indicates another credential already owns the
	// (url, username) pair or the id.
	ErrCredentialConflict = errors.New("credential already exists")
)

// CredentialStore defines the driven port for the canonical credential list.
// Every method is a single transaction; no caller-side locking is needed.
type CredentialStore interface {
	// Upsert looks up the credential with the exact (URL, Username) of input.
	// When found, it replaces Password and LoginURL and sets UpdatedAt to now,
	// keeping ID and CreatedAt. Otherwise it inserts a new credential with the
	// given id and CreatedAt set to now. created reports which path was taken.
	Upsert(ctx context.Context, input model.CredentialInput, id string, now time.Time) (cred model.Credential, created bool, err error)

	// ListAll returns every credential in insertion order.
	ListAll(ctx context.Context) ([]model.Credential, error)

	// GetByID returns the credential with the given id, or (nil, nil).
	GetByID(ctx context.Context, id string) (*model.Credential, error)

	// Update overwrites the credential with cred.ID. Returns
	// ErrCredentialNotFound or ErrCredentialConflict.
	Update(ctx context.Context, cred model.Credential) error

	// Delete removes the credential with the given id. Returns ErrCredentialNotFound.
	Delete(ctx context.Context, id string) error

	// Merge inserts the credentials whose id and (URL, Username) are both new,
	// skipping the rest. Returns the number inserted.
	Merge(ctx context.Context, creds []model.Credential) (int, error)

	// ReplaceAll swaps the entire list for creds.
	ReplaceAll(ctx context.Context, creds []model.Credential) error
}
