package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"

	"github.com/ericfisherdev/passpanel/internal/domain/model"
	"github.com/ericfisherdev/passpanel/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.Tab = (*Tab)(nil)

const (
	eventBuffer     = 64
	detachTimeout   = 2 * time.Second
	callTimeout     = 5 * time.Second
	navigateTimeout = 30 * time.Second
)

// ErrElementNotFound is returned when a ref no longer resolves to an element,
// usually because the page re-rendered.
var ErrElementNotFound = errors.New("element not found")

// Tab is one browser page with the observer installed.
type Tab struct {
	page   *rod.Page
	id     string
	logger *slog.Logger

	stopBinding  func() error
	removeScript func() error
	stopDialogs  context.CancelFunc
	onDetach     func(*Tab)

	mu         sync.Mutex
	events     chan model.PageEvent
	closed     bool
	targetGone bool
	detachOnce sync.Once
	detachErr  error
}

// attachTab exposes the event binding and installs the observer in the
// current document and every future one.
func attachTab(page *rod.Page, logger *slog.Logger, onDetach func(*Tab)) (*Tab, error) {
	t := &Tab{
		page:     page,
		id:       string(page.TargetID),
		logger:   logger.With("tab", string(page.TargetID)),
		onDetach: onDetach,
		events:   make(chan model.PageEvent, eventBuffer),
	}

	stop, err := page.Expose(bindingName, t.onBinding)
	if err != nil {
		return nil, fmt.Errorf("expose binding: %w", err)
	}
	t.stopBinding = stop

	remove, err := page.EvalOnNewDocument(observerScript)
	if err != nil {
		_ = stop()
		return nil, fmt.Errorf("install observer: %w", err)
	}
	t.removeScript = remove

	if _, err := page.Timeout(callTimeout).Eval("() => {" + observerScript + "}"); err != nil {
		_ = remove()
		_ = stop()
		return nil, fmt.Errorf("install observer in current document: %w", err)
	}

	// A JavaScript dialog blocks Runtime.evaluate until it is answered.
	dialogCtx, cancel := context.WithCancel(context.Background())
	t.stopDialogs = cancel
	go page.Context(dialogCtx).EachEvent(func(e *proto.PageJavascriptDialogOpening) {
		go t.dismissDialog(e)
	})()

	t.logger.Debug("tab attached")
	return t, nil
}

// ID returns the DevTools target id.
func (t *Tab) ID() string {
	return t.id
}

// Events delivers observer events until the tab is detached or closed.
func (t *Tab) Events() <-chan model.PageEvent {
	return t.events
}

// URL returns the page's current location.
func (t *Tab) URL(ctx context.Context) (string, error) {
	p := t.page.Context(ctx).Timeout(callTimeout)
	defer p.CancelTimeout()

	info, err := p.Info()
	if err != nil {
		return "", fmt.Errorf("get page info: %w", err)
	}
	return info.URL, nil
}

// Snapshot returns every input and button with its computed layout.
func (t *Tab) Snapshot(ctx context.Context) (model.FormSnapshot, error) {
	v, err := t.call(ctx, "snapshot")
	if err != nil {
		return model.FormSnapshot{}, err
	}

	raw, err := v.MarshalJSON()
	if err != nil {
		return model.FormSnapshot{}, fmt.Errorf("encode snapshot: %w", err)
	}
	var dto snapshotDTO
	if err := json.Unmarshal(raw, &dto); err != nil {
		return model.FormSnapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return dto.toModel(), nil
}

// SetValue writes value through the native setter and fires input and change.
func (t *Tab) SetValue(ctx context.Context, ref, value string) error {
	v, err := t.call(ctx, "setValue", ref, value)
	if err != nil {
		return err
	}
	if !v.Bool() {
		return fmt.Errorf("set value on %s: %w", ref, ErrElementNotFound)
	}
	return nil
}

// Click activates the element.
func (t *Tab) Click(ctx context.Context, ref string) error {
	v, err := t.call(ctx, "click", ref)
	if err != nil {
		return err
	}
	if !v.Bool() {
		return fmt.Errorf("click %s: %w", ref, ErrElementNotFound)
	}
	return nil
}

// Instrument attaches the autofill dropdown. It reports false when the field
// is missing or already carries one.
func (t *Tab) Instrument(ctx context.Context, ref string, options []model.AffordanceOption) (bool, error) {
	v, err := t.call(ctx, "instrument", ref, toOptionDTOs(options))
	if err != nil {
		return false, err
	}
	return v.Bool(), nil
}

// ShowPrompt renders the save or update prompt, replacing any previous one.
func (t *Tab) ShowPrompt(ctx context.Context, prompt model.Prompt) error {
	_, err := t.call(ctx, "showPrompt", promptDTO{
		Kind:     string(prompt.Kind),
		Username: prompt.Username,
		Host:     prompt.Host,
	})
	return err
}

// DismissPrompt removes the prompt if it is showing.
func (t *Tab) DismissPrompt(ctx context.Context) error {
	_, err := t.call(ctx, "dismissPrompt")
	return err
}

// Toast shows a short-lived notice.
func (t *Tab) Toast(ctx context.Context, message string) error {
	_, err := t.call(ctx, "toast", message)
	return err
}

// Navigate loads url and waits for the load event.
func (t *Tab) Navigate(ctx context.Context, url string) error {
	p := t.page.Context(ctx).Timeout(navigateTimeout)
	defer p.CancelTimeout()

	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("wait for load of %s: %w", url, err)
	}
	return nil
}

// Detach removes the binding and the observer and closes Events. It is safe
// to call more than once.
func (t *Tab) Detach() error {
	t.detachOnce.Do(func() {
		var errs []error

		t.mu.Lock()
		gone := t.targetGone
		t.mu.Unlock()

		t.stopDialogs()

		if !gone {
			p := t.page.Timeout(detachTimeout)
			if _, err := p.Eval(`() => window.__passpanel ? window.__passpanel.detach() : false`); err != nil {
				errs = append(errs, fmt.Errorf("detach observer: %w", err))
			}
			if err := t.removeScript(); err != nil {
				errs = append(errs, fmt.Errorf("remove observer script: %w", err))
			}
			if err := t.stopBinding(); err != nil {
				errs = append(errs, fmt.Errorf("remove binding: %w", err))
			}
		}

		t.closeEvents()
		if t.onDetach != nil {
			t.onDetach(t)
		}
		t.detachErr = errors.Join(errs...)
		t.logger.Debug("tab detached", "target_gone", gone)
	})
	return t.detachErr
}

func (t *Tab) detached() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// gone marks the target as destroyed and ends the event stream.
func (t *Tab) gone() {
	t.mu.Lock()
	t.targetGone = true
	t.mu.Unlock()
	t.closeEvents()
}

func (t *Tab) closeEvents() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed {
		t.closed = true
		close(t.events)
	}
}

// onBinding receives observer payloads. It must not block rod's event loop,
// so a full buffer drops the event.
func (t *Tab) onBinding(payload gson.JSON) (interface{}, error) {
	raw, err := payload.MarshalJSON()
	if err != nil {
		t.logger.Warn("dropping page event", "error", err)
		return nil, nil
	}
	ev, err := decodeEvent(raw)
	if err != nil {
		t.logger.Warn("dropping page event", "error", err)
		return nil, nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, nil
	}
	select {
	case t.events <- ev:
	default:
		t.logger.Warn("page event buffer full, dropping event", "kind", ev.Kind)
	}
	return nil, nil
}

// call invokes a method of the in-page observer.
func (t *Tab) call(ctx context.Context, method string, args ...interface{}) (gson.JSON, error) {
	js := fmt.Sprintf(`(...args) => {
		const pm = window.__passpanel;
		if (!pm) throw new Error('observer not installed');
		return pm.%s(...args);
	}`, method)

	p := t.page.Context(ctx).Timeout(callTimeout)
	defer p.CancelTimeout()

	res, err := p.Eval(js, args...)
	if err != nil {
		return gson.JSON{}, fmt.Errorf("%s: %w", method, err)
	}
	return res.Value, nil
}

// dismissDialog answers a page dialog so observer calls can run again.
// beforeunload is accepted so navigation proceeds.
func (t *Tab) dismissDialog(e *proto.PageJavascriptDialogOpening) {
	accept := e.Type == proto.PageDialogTypeBeforeunload
	err := proto.PageHandleJavaScriptDialog{Accept: accept}.Call(t.page.Timeout(detachTimeout))
	if err != nil {
		t.logger.Debug("dismiss page dialog failed", "type", e.Type, "error", err)
		return
	}
	t.logger.Debug("dismissed page dialog", "type", e.Type, "message", e.Message)
}
