// Package application contains use-case orchestration services.
package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ericfisherdev/passpanel/internal/domain/model"
	"github.com/ericfisherdev/passpanel/internal/domain/port/driven"
)

// Coordinator owns the canonical credential list and the pending slot. It is
// the only writer of either; page agents reach it through the Router.
type Coordinator struct {
	creds      driven.CredentialStore
	pending    driven.PendingStore
	pendingTTL time.Duration
	now        func() time.Time
	newID      func() string
}

// CoordinatorOption customises a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithClock replaces time.Now as the source of timestamps.
func WithClock(now func() time.Time) CoordinatorOption {
	return func(c *Coordinator) { c.now = now }
}

// WithIDGenerator replaces the UUID generator used for new credentials.
func WithIDGenerator(newID func() string) CoordinatorOption {
	return func(c *Coordinator) { c.newID = newID }
}

// NewCoordinator creates a Coordinator. A pendingTTL of zero keeps staged
// credentials until they are explicitly cleared.
func NewCoordinator(creds driven.CredentialStore, pending driven.PendingStore, pendingTTL time.Duration, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		creds:      creds,
		pending:    pending,
		pendingTTL: pendingTTL,
		now:        time.Now,
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Save inserts or updates the credential identified by (URL, Username).
// Saving an identical triple twice leaves a single record with the same id.
func (c *Coordinator) Save(ctx context.Context, input model.CredentialInput) (model.Credential, error) {
	if err := validateInput(input); err != nil {
		return model.Credential{}, err
	}

	cred, _, err := c.creds.Upsert(ctx, input, c.newID(), c.now())
	if err != nil {
		return model.Credential{}, fmt.Errorf("save credential: %w", err)
	}

	return cred, nil
}

// List returns the credentials whose stored URL has exactly the host of url.
func (c *Coordinator) List(ctx context.Context, url string) ([]model.Credential, error) {
	all, err := c.creds.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}

	host := Hostname(url)
	matches := make([]model.Credential, 0, len(all))
	for _, cred := range all {
		if Hostname(cred.URL) == host {
			matches = append(matches, cred)
		}
	}

	return matches, nil
}

// Exists reports whether any credential is saved for the host of url.
func (c *Coordinator) Exists(ctx context.Context, url string) (bool, error) {
	matches, err := c.List(ctx, url)
	if err != nil {
		return false, err
	}
	return len(matches) > 0, nil
}

// StagePending overwrites the pending slot with p.
func (c *Coordinator) StagePending(ctx context.Context, p model.PendingCredential) error {
	if p.LoginURL == "" {
		p.LoginURL = p.URL
	}
	p.StagedAt = c.now()

	if err := c.pending.Stage(ctx, p); err != nil {
		return fmt.Errorf("stage pending: %w", err)
	}

	return nil
}

// GetPending returns the staged credential, or nil when the slot is empty.
// A value older than the pending TTL is cleared and reported as absent.
func (c *Coordinator) GetPending(ctx context.Context) (*model.PendingCredential, error) {
	p, err := c.pending.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("get pending: %w", err)
	}
	if p == nil {
		return nil, nil
	}

	if c.pendingTTL > 0 && c.now().Sub(p.StagedAt) > c.pendingTTL {
		if err := c.pending.Clear(ctx); err != nil {
			return nil, fmt.Errorf("expire pending: %w", err)
		}
		return nil, nil
	}

	return p, nil
}

// ClearPending empties the pending slot.
func (c *Coordinator) ClearPending(ctx context.Context) error {
	if err := c.pending.Clear(ctx); err != nil {
		return fmt.Errorf("clear pending: %w", err)
	}
	return nil
}

// All returns every saved credential in insertion order.
func (c *Coordinator) All(ctx context.Context) ([]model.Credential, error) {
	creds, err := c.creds.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	return creds, nil
}

// Search returns credentials whose URL or username contains keyword,
// ignoring case. An empty keyword matches everything.
func (c *Coordinator) Search(ctx context.Context, keyword string) ([]model.Credential, error) {
	all, err := c.All(ctx)
	if err != nil {
		return nil, err
	}

	keyword = strings.ToLower(strings.TrimSpace(keyword))
	if keyword == "" {
		return all, nil
	}

	matches := make([]model.Credential, 0, len(all))
	for _, cred := range all {
		if strings.Contains(strings.ToLower(cred.URL), keyword) ||
			strings.Contains(strings.ToLower(cred.Username), keyword) {
			matches = append(matches, cred)
		}
	}

	return matches, nil
}

// Get returns the credential with the given id or ErrCredentialNotFound.
func (c *Coordinator) Get(ctx context.Context, id string) (model.Credential, error) {
	cred, err := c.creds.GetByID(ctx, id)
	if err != nil {
		return model.Credential{}, fmt.Errorf("get credential: %w", err)
	}
	if cred == nil {
		return model.Credential{}, fmt.Errorf("get credential %s: %w", id, driven.ErrCredentialNotFound)
	}
	return *cred, nil
}

// Create adds a credential from the management surface. It shares Save's
// upsert semantics, so re-adding an existing login updates its password.
func (c *Coordinator) Create(ctx context.Context, input model.CredentialInput) (model.Credential, error) {
	return c.Save(ctx, input)
}

// Update edits the credential with the given id in place, keeping its id and
// creation time. Moving it onto another credential's (URL, Username) returns
// ErrCredentialConflict.
func (c *Coordinator) Update(ctx context.Context, id string, input model.CredentialInput) (model.Credential, error) {
	if err := validateInput(input); err != nil {
		return model.Credential{}, err
	}

	cred, err := c.Get(ctx, id)
	if err != nil {
		return model.Credential{}, err
	}

	now := c.now()
	cred.URL = input.URL
	cred.LoginURL = input.LoginURL
	if cred.LoginURL == "" {
		cred.LoginURL = input.URL
	}
	cred.Username = input.Username
	cred.Password = input.Password
	cred.UpdatedAt = &now

	if err := c.creds.Update(ctx, cred); err != nil {
		return model.Credential{}, fmt.Errorf("update credential: %w", err)
	}

	return cred, nil
}

// Delete removes the credential with the given id.
func (c *Coordinator) Delete(ctx context.Context, id string) error {
	if err := c.creds.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	return nil
}

func validateInput(input model.CredentialInput) error {
	if strings.TrimSpace(input.URL) == "" || input.Username == "" || input.Password == "" {
		return ErrInvalidCredential
	}
	return nil
}
