package driven

import (
	"context"

	"github.com/ericfisherdev/passpanel/internal/domain/model"
)

// Page is the driven port a page agent uses to observe and act on one
// loaded document. Implementations must never block or cancel the page's own
// event handling.
type Page interface {
	// URL returns the document's current location.
	URL(ctx context.Context) (string, error)

	// Snapshot captures every input and button with its layout facts.
	Snapshot(ctx context.Context) (model.FormSnapshot, error)

	// SetValue writes value into the field and dispatches input and change
	// events so page scripts observe it.
	SetValue(ctx context.Context, ref, value string) error

	// Click activates the element.
	Click(ctx context.Context, ref string) error

	// Instrument attaches an autofill dropdown to the field. It reports false
	// when the field was already instrumented.
	Instrument(ctx context.Context, ref string, options []model.AffordanceOption) (bool, error)

	ShowPrompt(ctx context.Context, prompt model.Prompt) error
	DismissPrompt(ctx context.Context) error
	Toast(ctx context.Context, message string) error

	// Events delivers observations from the page. The channel is closed when
	// the page goes away.
	Events() <-chan model.PageEvent

	// Detach removes every observer the adapter installed.
	Detach() error
}

// Tab is a browser tab: a Page that can be navigated.
type Tab interface {
	Page

	ID() string

	// Navigate loads url and returns once the load event has fired.
	Navigate(ctx context.Context, url string) error
}

// Browser is the driven port for the tab-owning browser.
type Browser interface {
	// ActiveTab returns the tab the user is looking at, opening one if needed.
	ActiveTab(ctx context.Context) (Tab, error)

	// Tabs returns all open tabs.
	Tabs(ctx context.Context) ([]Tab, error)

	Close() error
}
