package application

import (
	"context"
	"fmt"

	"github.com/ericfisherdev/passpanel/internal/domain/port/driven"
)

// MinMasterPasswordLength is the shortest master password Set accepts.
const MinMasterPasswordLength = 6

// masterPasswordKey is the settings key holding the master password.
const masterPasswordKey = "master_password"

// GateService manages the optional master password that guards export.
// The value is stored and compared as plain text: it is a usability gate,
// not a cryptographic control.
type GateService struct {
	settings driven.SettingStore
}

// NewGateService creates a GateService backed by settings.
func NewGateService(settings driven.SettingStore) *GateService {
	return &GateService{settings: settings}
}

// IsSet reports whether a master password is configured.
func (s *GateService) IsSet(ctx context.Context) (bool, error) {
	value, ok, err := s.settings.Get(ctx, masterPasswordKey)
	if err != nil {
		return false, fmt.Errorf("read master password: %w", err)
	}
	return ok && value != "", nil
}

// Set stores a new master password. newPassword must equal confirm and be at
// least MinMasterPasswordLength characters; when a password is already set,
// current must match it.
func (s *GateService) Set(ctx context.Context, current, newPassword, confirm string) error {
	if newPassword != confirm {
		return ErrGateConfirmMismatch
	}
	if len([]rune(newPassword)) < MinMasterPasswordLength {
		return ErrGateTooShort
	}
	if err := s.checkCurrent(ctx, current); err != nil {
		return err
	}

	if err := s.settings.Set(ctx, masterPasswordKey, newPassword); err != nil {
		return fmt.Errorf("store master password: %w", err)
	}
	return nil
}

// Remove deletes the master password after checking current against it.
func (s *GateService) Remove(ctx context.Context, current string) error {
	if err := s.checkCurrent(ctx, current); err != nil {
		return err
	}

	if err := s.settings.Delete(ctx, masterPasswordKey); err != nil {
		return fmt.Errorf("remove master password: %w", err)
	}
	return nil
}

// Verify checks input against the master password. It succeeds whenever no
// master password is set. An empty input against a set password returns
// ErrGateRequired; a wrong one returns ErrGateMismatch.
func (s *GateService) Verify(ctx context.Context, input string) error {
	value, ok, err := s.settings.Get(ctx, masterPasswordKey)
	if err != nil {
		return fmt.Errorf("read master password: %w", err)
	}
	if !ok || value == "" {
		return nil
	}
	if input == "" {
		return ErrGateRequired
	}
	if input != value {
		return ErrGateMismatch
	}
	return nil
}

func (s *GateService) checkCurrent(ctx context.Context, current string) error {
	value, ok, err := s.settings.Get(ctx, masterPasswordKey)
	if err != nil {
		return fmt.Errorf("read master password: %w", err)
	}
	if ok && value != "" && current != value {
		return ErrGateMismatch
	}
	return nil
}
