package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ericfisherdev/passpanel/internal/domain/model"
	"github.com/ericfisherdev/passpanel/internal/domain/port/driven"
)

// TabAgents is the view of the agent hub the fill orchestrator needs.
type TabAgents interface {
	ActiveTab(ctx context.Context) (driven.Tab, error)
	Deliver(ctx context.Context, tabID string, msg model.Message) (model.Reply, error)
}

// FillOrchestrator fills saved credentials into the active tab, optionally
// navigating to the login page and submitting first.
type FillOrchestrator struct {
	coord  *Coordinator
	tabs   TabAgents
	settle time.Duration
	logger *slog.Logger
}

// NewFillOrchestrator creates a FillOrchestrator. tabs may be nil when no
// browser is attached; every fill then fails with ErrNoBrowser.
func NewFillOrchestrator(coord *Coordinator, tabs TabAgents, settle time.Duration, logger *slog.Logger) *FillOrchestrator {
	return &FillOrchestrator{
		coord:  coord,
		tabs:   tabs,
		settle: settle,
		logger: logger,
	}
}

// Available reports whether a browser is attached.
func (o *FillOrchestrator) Available() bool {
	return o.tabs != nil
}

// FillCurrent fills the credential into whatever page the active tab shows.
func (o *FillOrchestrator) FillCurrent(ctx context.Context, id string) error {
	if o.tabs == nil {
		return ErrNoBrowser
	}

	cred, err := o.coord.Get(ctx, id)
	if err != nil {
		return err
	}

	tab, err := o.tabs.ActiveTab(ctx)
	if err != nil {
		return err
	}

	return o.deliver(ctx, tab, cred, false)
}

// AutoLogin navigates the active tab to the credential's login page, waits
// for it to settle and has the tab's agent fill the form. When submit is set
// the agent also clicks the login button.
func (o *FillOrchestrator) AutoLogin(ctx context.Context, id string, submit bool) error {
	if o.tabs == nil {
		return ErrNoBrowser
	}

	cred, err := o.coord.Get(ctx, id)
	if err != nil {
		return err
	}

	tab, err := o.tabs.ActiveTab(ctx)
	if err != nil {
		return err
	}

	target := cred.EffectiveLoginURL()
	if err := tab.Navigate(ctx, target); err != nil {
		return fmt.Errorf("navigate to %s: %w", target, err)
	}

	timer := time.NewTimer(o.settle)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
		return ctx.Err()
	}

	o.logger.Info("auto login", "credential_id", cred.ID, "url", target, "submit", submit)
	return o.deliver(ctx, tab, cred, submit)
}

func (o *FillOrchestrator) deliver(ctx context.Context, tab driven.Tab, cred model.Credential, submit bool) error {
	reply, err := o.tabs.Deliver(ctx, tab.ID(), model.Message{
		Action:   model.ActionAutoFillLogin,
		Username: cred.Username,
		Password: cred.Password,
		Submit:   submit,
	})
	if err != nil {
		return err
	}
	if !reply.Success {
		return fmt.Errorf("fill credential %s: %w", cred.ID, errors.New(reply.Error))
	}
	return nil
}
