package driven

import (
	"context"

	"github.com/ericfisherdev/passpanel/internal/domain/model"
)

// PendingStore defines the driven port for the single pending-credential
// slot. Stage overwrites any value already present.
type PendingStore interface {
	Stage(ctx context.Context, pending model.PendingCredential) error

	// Get returns the staged value, or (nil, nil) when the slot is empty.
	Get(ctx context.Context) (*model.PendingCredential, error)

	Clear(ctx context.Context) error
}
