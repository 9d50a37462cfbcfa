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

// Toast messages shown on the page.
const (
	toastSaved      = "Password saved"
	toastUpdated    = "Password updated"
	toastSaveFailed = "Save failed, please try again"
	toastFilled     = "Password filled"
)

// AgentConfig holds the page agent's timing knobs.
type AgentConfig struct {
	// PendingCheckDelays are offsets from page load at which the pending
	// slot is polled. They must be ascending.
	PendingCheckDelays []time.Duration
	PromptTimeout      time.Duration
	LivenessInterval   time.Duration
	FillAttempts       int
	FillRetryDelay     time.Duration

	// PageCallTimeout bounds each call into the page. Zero means no bound.
	PageCallTimeout time.Duration
}

// DefaultAgentConfig returns the default page agent timings.
func DefaultAgentConfig() AgentConfig {
	return AgentConfig{
		PendingCheckDelays: []time.Duration{time.Second, 3 * time.Second, 5 * time.Second},
		PromptTimeout:      10 * time.Second,
		LivenessInterval:   5 * time.Second,
		FillAttempts:       5,
		FillRetryDelay:     500 * time.Millisecond,
		PageCallTimeout:    5 * time.Second,
	}
}

// agentRequest is an inbound message for the agent, answered on done.
type agentRequest struct {
	msg  model.Message
	done chan model.Reply
}

// fillJob tracks an autoFillLogin request across retry attempts.
type fillJob struct {
	msg     model.Message
	attempt int
	done    chan model.Reply
}

// agentState is owned by the Run goroutine and never shared.
type agentState struct {
	checkTimer *time.Timer
	checkIndex int
	handled    bool

	prompt      *model.PendingCredential
	promptKind  model.PromptKind
	promptTimer *time.Timer

	fill      *fillJob
	fillTimer *time.Timer
}

func newAgentState() *agentState {
	return &agentState{
		checkTimer:  newStoppedTimer(),
		promptTimer: newStoppedTimer(),
		fillTimer:   newStoppedTimer(),
	}
}

func (s *agentState) stopTimers() {
	s.checkTimer.Stop()
	s.promptTimer.Stop()
	s.fillTimer.Stop()
}

// newStoppedTimer returns a timer whose channel will not fire until Reset.
func newStoppedTimer() *time.Timer {
	t := time.NewTimer(time.Hour)
	t.Stop()
	return t
}

// PageAgent observes one tab. It captures login submissions into the
// pending slot, runs the save/update prompt, attaches autofill dropdowns and
// executes fill commands. All of its timers and page calls are driven from
// the single Run loop.
type PageAgent struct {
	page      driven.Page
	messenger driven.Messenger
	cfg       AgentConfig
	logger    *slog.Logger
	requests  chan agentRequest
	stopped   chan struct{}
}

// NewPageAgent creates an agent for page that talks to the coordinator
// through messenger.
func NewPageAgent(page driven.Page, messenger driven.Messenger, cfg AgentConfig, logger *slog.Logger) *PageAgent {
	return &PageAgent{
		page:      page,
		messenger: messenger,
		cfg:       cfg,
		logger:    logger,
		requests:  make(chan agentRequest),
		stopped:   make(chan struct{}),
	}
}

// Done is closed once Run has returned.
func (a *PageAgent) Done() <-chan struct{} {
	return a.stopped
}

// Run observes the page until ctx is canceled, the page closes or the
// coordinator channel fails. It returns nil on cancellation, ErrPageClosed
// when the page's event stream ends and ErrChannelInvalidated when the
// coordinator stops answering. Every timer is stopped and the page observers
// are detached before Run returns. Run must be called at most once.
func (a *PageAgent) Run(ctx context.Context) (err error) {
	defer close(a.stopped)

	st := newAgentState()
	defer a.teardown(st)

	liveness := time.NewTicker(a.cfg.LivenessInterval)
	defer liveness.Stop()

	defer func() {
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			err = nil
		}
	}()

	events := a.page.Events()

	if err := a.onLoad(ctx, st); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-events:
			if !ok {
				return ErrPageClosed
			}
			if err := a.handleEvent(ctx, st, ev); err != nil {
				return err
			}

		case <-st.checkTimer.C:
			if err := a.checkPending(ctx, st); err != nil {
				return err
			}
			a.scheduleNextCheck(st)

		case <-st.promptTimer.C:
			a.logger.Debug("save prompt timed out")
			if err := a.resolvePrompt(ctx, st, false); err != nil {
				return err
			}

		case <-st.fillTimer.C:
			a.attemptFill(ctx, st)

		case req := <-a.requests:
			a.startFill(ctx, st, req)

		case <-liveness.C:
			if _, err := a.send(ctx, model.Message{Action: model.ActionPing}); err != nil {
				return err
			}
		}
	}
}

// Deliver hands msg to the agent and waits for its reply. Only
// autoFillLogin is accepted.
func (a *PageAgent) Deliver(ctx context.Context, msg model.Message) (model.Reply, error) {
	req := agentRequest{msg: msg, done: make(chan model.Reply, 1)}

	select {
	case a.requests <- req:
	case <-a.stopped:
		return model.Reply{}, ErrPageClosed
	case <-ctx.Done():
		return model.Reply{}, ctx.Err()
	}

	select {
	case reply := <-req.done:
		return reply, nil
	case <-ctx.Done():
		return model.Reply{}, ctx.Err()
	}
}

func (a *PageAgent) teardown(st *agentState) {
	st.stopTimers()

	if st.fill != nil {
		st.fill.done <- model.Failure(ErrPageClosed)
		st.fill = nil
	}

	if err := a.page.Detach(); err != nil {
		a.logger.Warn("detach page observers failed", "error", err)
	}
}

// send wraps a channel failure in ErrChannelInvalidated.
func (a *PageAgent) send(ctx context.Context, msg model.Message) (model.Reply, error) {
	reply, err := a.messenger.Send(ctx, msg)
	if err != nil {
		if ctx.Err() != nil {
			return model.Reply{}, ctx.Err()
		}
		return model.Reply{}, fmt.Errorf("%w: %s: %w", ErrChannelInvalidated, msg.Action, err)
	}
	return reply, nil
}

func (a *PageAgent) handleEvent(ctx context.Context, st *agentState, ev model.PageEvent) error {
	switch ev.Kind {
	case model.PageEventLoad:
		return a.onLoad(ctx, st)

	case model.PageEventSubmit:
		snap, ok := a.eventSnapshot(ctx, ev)
		if !ok {
			return nil
		}
		return a.capture(ctx, snap, snap.InForm(ev.Form))

	case model.PageEventClick:
		snap, ok := a.eventSnapshot(ctx, ev)
		if !ok {
			return nil
		}
		target, found := snap.Field(ev.Target)
		if !found || !IsLoginButton(target) {
			return nil
		}
		return a.capture(ctx, snap, snap.InForm(target.Form))

	case model.PageEventMutation:
		return a.instrument(ctx)

	case model.PageEventPick:
		return a.pick(ctx, ev)

	case model.PageEventPrompt:
		return a.resolvePrompt(ctx, st, ev.Confirmed)

	default:
		a.logger.Debug("ignoring page event", "kind", ev.Kind)
		return nil
	}
}

// onLoad resets per-document state. A prompt shown on the previous document
// is gone with it; the pending value stays staged and is offered again.
func (a *PageAgent) onLoad(ctx context.Context, st *agentState) error {
	st.prompt = nil
	st.promptTimer.Stop()
	st.handled = false

	st.checkIndex = 0
	st.checkTimer.Stop()
	if len(a.cfg.PendingCheckDelays) > 0 {
		st.checkTimer.Reset(a.cfg.PendingCheckDelays[0])
	}

	return a.instrument(ctx)
}

func (a *PageAgent) scheduleNextCheck(st *agentState) {
	if st.handled || st.checkIndex+1 >= len(a.cfg.PendingCheckDelays) {
		return
	}
	delay := a.cfg.PendingCheckDelays[st.checkIndex+1] - a.cfg.PendingCheckDelays[st.checkIndex]
	st.checkIndex++
	st.checkTimer.Reset(delay)
}

func (a *PageAgent) eventSnapshot(ctx context.Context, ev model.PageEvent) (model.FormSnapshot, bool) {
	if ev.Snapshot != nil {
		return *ev.Snapshot, true
	}
	pctx, cancel := a.pageCtx(ctx)
	defer cancel()

	snap, err := a.page.Snapshot(pctx)
	if err != nil {
		a.logger.Warn("snapshot page failed", "event", ev.Kind, "error", err)
		return model.FormSnapshot{}, false
	}
	return snap, true
}

// capture stages the credential typed into scope. Nothing is staged unless
// both a username and a password value are present.
func (a *PageAgent) capture(ctx context.Context, snap model.FormSnapshot, scope []model.FormField) error {
	detected := DetectLoginFields(scope)
	if !detected.Complete() || detected.Password.Value == "" || detected.Username.Value == "" {
		return nil
	}

	origin, loginURL := Origin(snap.URL)
	reply, err := a.send(ctx, model.Message{
		Action: model.ActionSavePendingPassword,
		Data: &model.PendingCredential{
			URL:      origin,
			LoginURL: loginURL,
			Username: detected.Username.Value,
			Password: detected.Password.Value,
		},
	})
	if err != nil {
		return err
	}
	if !reply.Success {
		a.logger.Warn("stage pending credential failed", "error", reply.Error)
		return nil
	}

	a.logger.Debug("captured login", "url", origin, "strategy", detected.Strategy)
	return nil
}

// checkPending runs one poll of the pending slot and opens the save/update
// prompt when the staged credential is new or changed.
func (a *PageAgent) checkPending(ctx context.Context, st *agentState) error {
	if st.handled || st.prompt != nil {
		return nil
	}

	reply, err := a.send(ctx, model.Message{Action: model.ActionGetPendingPassword})
	if err != nil {
		return err
	}
	if !reply.Success {
		a.logger.Warn("read pending credential failed", "error", reply.Error)
		return nil
	}
	if reply.Data == nil {
		return nil
	}

	st.handled = true
	st.checkTimer.Stop()
	p := *reply.Data

	if !p.Complete() {
		a.logger.Debug("discarding incomplete pending credential")
		return a.clearPending(ctx)
	}

	saved, err := a.send(ctx, model.Message{Action: model.ActionGetPasswords, URL: p.URL})
	if err != nil {
		return err
	}
	if !saved.Success {
		a.logger.Warn("list saved credentials failed", "error", saved.Error)
		return nil
	}

	kind := model.PromptSave
	for _, cred := range saved.Passwords {
		if cred.Username != p.Username {
			continue
		}
		if cred.Password == p.Password {
			return a.clearPending(ctx)
		}
		kind = model.PromptUpdate
		break
	}

	prompt := model.Prompt{Kind: kind, Username: p.Username, Host: Hostname(p.URL)}
	pctx, cancel := a.pageCtx(ctx)
	defer cancel()
	if err := a.page.ShowPrompt(pctx, prompt); err != nil {
		a.logger.Warn("show save prompt failed", "error", err)
	}

	st.prompt = &p
	st.promptKind = kind
	st.promptTimer.Reset(a.cfg.PromptTimeout)
	return nil
}

// resolvePrompt finishes the active prompt. Confirm saves the pending
// credential; cancel and timeout only clear it.
func (a *PageAgent) resolvePrompt(ctx context.Context, st *agentState, confirmed bool) error {
	p := st.prompt
	if p == nil {
		return nil
	}
	st.prompt = nil
	st.promptTimer.Stop()

	pctx, cancel := a.pageCtx(ctx)
	err := a.page.DismissPrompt(pctx)
	cancel()
	if err != nil {
		a.logger.Warn("dismiss save prompt failed", "error", err)
	}

	if confirmed {
		reply, err := a.send(ctx, model.Message{Action: model.ActionSavePassword, Data: p})
		if err != nil {
			return err
		}

		message := toastSaved
		if st.promptKind == model.PromptUpdate {
			message = toastUpdated
		}
		if !reply.Success {
			a.logger.Warn("save credential failed", "error", reply.Error)
			message = toastSaveFailed
		}
		a.toast(ctx, message)
	}

	return a.clearPending(ctx)
}

func (a *PageAgent) clearPending(ctx context.Context) error {
	reply, err := a.send(ctx, model.Message{Action: model.ActionClearPendingPassword})
	if err != nil {
		return err
	}
	if !reply.Success {
		a.logger.Warn("clear pending credential failed", "error", reply.Error)
	}
	return nil
}

// instrument attaches autofill dropdowns to every detected field that does
// not already carry one. Pages with no saved credentials get none.
func (a *PageAgent) instrument(ctx context.Context) error {
	pctx, cancel := a.pageCtx(ctx)
	snap, err := a.page.Snapshot(pctx)
	cancel()
	if err != nil {
		a.logger.Warn("snapshot page failed", "error", err)
		return nil
	}

	refs := DetectAffordanceTargets(snap).Refs()
	if len(refs) == 0 {
		return nil
	}

	reply, err := a.send(ctx, model.Message{Action: model.ActionGetPasswords, URL: snap.URL})
	if err != nil {
		return err
	}
	if !reply.Success || len(reply.Passwords) == 0 {
		return nil
	}

	options := make([]model.AffordanceOption, 0, len(reply.Passwords))
	for _, cred := range reply.Passwords {
		options = append(options, model.AffordanceOption{
			CredentialID: cred.ID,
			Username:     cred.Username,
			Host:         Hostname(cred.URL),
		})
	}

	for _, ref := range refs {
		pctx, cancel := a.pageCtx(ctx)
		_, err := a.page.Instrument(pctx, ref, options)
		cancel()
		if err != nil {
			a.logger.Warn("attach autofill failed", "ref", ref, "error", err)
		}
	}

	return nil
}

// pick fills the form around the focused field with the chosen credential.
func (a *PageAgent) pick(ctx context.Context, ev model.PageEvent) error {
	snap, ok := a.eventSnapshot(ctx, ev)
	if !ok {
		return nil
	}

	scope := snap.Fields
	if target, found := snap.Field(ev.Target); found {
		scope = snap.InForm(target.Form)
	}

	reply, err := a.send(ctx, model.Message{Action: model.ActionGetPasswords, URL: snap.URL})
	if err != nil {
		return err
	}
	if !reply.Success {
		a.logger.Warn("list saved credentials failed", "error", reply.Error)
		return nil
	}

	for _, cred := range reply.Passwords {
		if cred.ID != ev.CredentialID {
			continue
		}
		filled, err := a.fill(ctx, scope, cred.Username, cred.Password)
		if err != nil {
			a.logger.Warn("fill picked credential failed", "error", err)
			return nil
		}
		if filled {
			a.toast(ctx, toastFilled)
		}
		return nil
	}

	a.logger.Debug("picked credential not found", "credential_id", ev.CredentialID)
	return nil
}

// fill writes username and password into the fields detected in scope. It
// reports false when scope has no password field.
func (a *PageAgent) fill(ctx context.Context, scope []model.FormField, username, password string) (bool, error) {
	detected := DetectLoginFields(scope)
	if detected.Password == nil {
		return false, nil
	}

	ctx, cancel := a.pageCtx(ctx)
	defer cancel()

	if detected.Username != nil && username != "" {
		if err := a.page.SetValue(ctx, detected.Username.Ref, username); err != nil {
			return false, fmt.Errorf("fill username: %w", err)
		}
	}

	if err := a.page.SetValue(ctx, detected.Password.Ref, password); err != nil {
		return false, fmt.Errorf("fill password: %w", err)
	}

	return true, nil
}

func (a *PageAgent) startFill(ctx context.Context, st *agentState, req agentRequest) {
	if req.msg.Action != model.ActionAutoFillLogin {
		req.done <- model.Failure(fmt.Errorf("Unknown action: %s", req.msg.Action)) //nolint:staticcheck // Message text is part of the channel protocol.
		return
	}

	if st.fill != nil {
		st.fill.done <- model.Failure(errors.New("superseded by a newer fill request"))
	}
	st.fillTimer.Stop()
	st.fill = &fillJob{msg: req.msg, done: req.done}

	a.attemptFill(ctx, st)
}

// attemptFill runs one fill attempt and schedules the next one until the
// password field appears or the attempts are used up.
func (a *PageAgent) attemptFill(ctx context.Context, st *agentState) {
	job := st.fill
	if job == nil {
		return
	}
	job.attempt++

	filled, err := a.tryFill(ctx, job.msg)
	if err != nil {
		a.logger.Debug("fill attempt failed", "attempt", job.attempt, "error", err)
	}

	if filled {
		job.done <- model.Reply{Success: true}
		st.fill = nil
		return
	}

	if job.attempt >= a.cfg.FillAttempts {
		job.done <- model.Failure(fmt.Errorf("no password field found after %d attempts", job.attempt))
		st.fill = nil
		return
	}

	st.fillTimer.Reset(a.cfg.FillRetryDelay)
}

func (a *PageAgent) tryFill(ctx context.Context, msg model.Message) (bool, error) {
	pctx, cancel := a.pageCtx(ctx)
	snap, err := a.page.Snapshot(pctx)
	cancel()
	if err != nil {
		return false, fmt.Errorf("snapshot page: %w", err)
	}

	_, form := DetectInSnapshot(snap)
	scope := snap.InForm(form)

	filled, err := a.fill(ctx, scope, msg.Username, msg.Password)
	if err != nil || !filled {
		return false, err
	}

	if msg.Submit {
		button, ok := FindLoginButton(scope)
		if !ok {
			a.logger.Warn("no login button to submit")
			return true, nil
		}
		pctx, cancel := a.pageCtx(ctx)
		defer cancel()
		if err := a.page.Click(pctx, button.Ref); err != nil {
			return true, fmt.Errorf("click login button: %w", err)
		}
	}

	return true, nil
}

func (a *PageAgent) toast(ctx context.Context, message string) {
	ctx, cancel := a.pageCtx(ctx)
	defer cancel()

	if err := a.page.Toast(ctx, message); err != nil {
		a.logger.Warn("show toast failed", "error", err)
	}
}

// pageCtx derives the context for one page call.
func (a *PageAgent) pageCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.cfg.PageCallTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.cfg.PageCallTimeout)
}
