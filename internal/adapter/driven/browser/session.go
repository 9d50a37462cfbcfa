// Package browser drives a Chromium browser over the DevTools protocol with
// go-rod. Each tab gets an in-page observer that reports events to its agent.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/ericfisherdev/passpanel/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.Browser = (*Session)(nil)

// Options selects how the session reaches a browser. A ControlURL attaches to
// a running browser; otherwise one is launched from Bin, or from rod's
// managed download when Bin is empty.
type Options struct {
	ControlURL string
	Bin        string
	Headless   bool
}

// Session owns the browser connection and hands out one Tab per open page.
type Session struct {
	browser  *rod.Browser
	launched *launcher.Launcher
	cancel   context.CancelFunc
	logger   *slog.Logger

	mu   sync.Mutex
	tabs map[string]*Tab
}

// Connect attaches to or launches a browser and starts watching for closed
// targets.
func Connect(ctx context.Context, opts Options, logger *slog.Logger) (*Session, error) {
	ctx, cancel := context.WithCancel(ctx)

	s := &Session{
		cancel: cancel,
		logger: logger,
		tabs:   make(map[string]*Tab),
	}

	controlURL := opts.ControlURL
	if controlURL == "" {
		l := launcher.New().Headless(opts.Headless)
		if opts.Bin != "" {
			l = l.Bin(opts.Bin)
		}
		u, err := l.Launch()
		if err != nil {
			cancel()
			return nil, fmt.Errorf("launch browser: %w", err)
		}
		controlURL = u
		s.launched = l
	}

	b := rod.New().ControlURL(controlURL).Context(ctx)
	if err := b.Connect(); err != nil {
		s.cleanupLauncher()
		cancel()
		return nil, fmt.Errorf("connect to browser: %w", err)
	}
	s.browser = b

	if err := (proto.TargetSetDiscoverTargets{Discover: true}).Call(b); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("discover targets: %w", err)
	}

	wait := b.EachEvent(func(e *proto.TargetTargetDestroyed) {
		s.targetGone(string(e.TargetID))
	})
	go wait()

	logger.Info("browser connected", "control_url", controlURL, "launched", s.launched != nil)
	return s, nil
}

// ActiveTab returns the focused, visible tab. When no tab reports focus the
// first visible one wins, then the first one; with no tabs a blank one is
// opened.
func (s *Session) ActiveTab(ctx context.Context) (driven.Tab, error) {
	pages, err := s.browser.Context(ctx).Pages()
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}

	if len(pages) == 0 {
		page, err := s.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
		if err != nil {
			return nil, fmt.Errorf("open tab: %w", err)
		}
		return s.tabFor(page)
	}

	var visible *rod.Page
	for _, page := range pages {
		res, err := page.Context(ctx).Eval(`() => [document.visibilityState === 'visible', document.hasFocus()]`)
		if err != nil {
			s.logger.Debug("skipping unresponsive tab", "tab", page.TargetID, "error", err)
			continue
		}
		state := res.Value.Arr()
		if len(state) != 2 || !state[0].Bool() {
			continue
		}
		if state[1].Bool() {
			return s.tabFor(page)
		}
		if visible == nil {
			visible = page
		}
	}
	if visible != nil {
		return s.tabFor(visible)
	}
	return s.tabFor(pages[0])
}

// Tabs returns a Tab for every open page. Pages whose previous Tab was
// detached get a fresh one.
func (s *Session) Tabs(ctx context.Context) ([]driven.Tab, error) {
	pages, err := s.browser.Context(ctx).Pages()
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}

	tabs := make([]driven.Tab, 0, len(pages))
	for _, page := range pages {
		tab, err := s.tabFor(page)
		if err != nil {
			s.logger.Warn("failed to attach tab", "tab", page.TargetID, "error", err)
			continue
		}
		tabs = append(tabs, tab)
	}
	return tabs, nil
}

// Close detaches every tab and releases the browser. A launched browser is
// shut down; an attached one is only disconnected.
func (s *Session) Close() error {
	s.mu.Lock()
	tabs := make([]*Tab, 0, len(s.tabs))
	for _, t := range s.tabs {
		tabs = append(tabs, t)
	}
	s.mu.Unlock()

	for _, t := range tabs {
		if err := t.Detach(); err != nil {
			s.logger.Debug("detach on close failed", "tab", t.ID(), "error", err)
		}
	}

	var err error
	if s.launched != nil && s.browser != nil {
		err = s.browser.Close()
	}
	s.cleanupLauncher()
	s.cancel()
	if err != nil {
		return fmt.Errorf("close browser: %w", err)
	}
	return nil
}

func (s *Session) cleanupLauncher() {
	if s.launched != nil {
		s.launched.Cleanup()
	}
}

// tabFor returns the live Tab for page, attaching a new one if needed.
func (s *Session) tabFor(page *rod.Page) (*Tab, error) {
	id := string(page.TargetID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.tabs[id]; ok && !t.detached() {
		return t, nil
	}

	t, err := attachTab(page, s.logger, s.forget)
	if err != nil {
		return nil, err
	}
	s.tabs[id] = t
	return t, nil
}

// forget drops t from the registry if it is still the current Tab for its id.
func (s *Session) forget(t *Tab) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tabs[t.ID()] == t {
		delete(s.tabs, t.ID())
	}
}

func (s *Session) targetGone(id string) {
	s.mu.Lock()
	t, ok := s.tabs[id]
	if ok {
		delete(s.tabs, id)
	}
	s.mu.Unlock()

	if ok {
		s.logger.Debug("tab closed", "tab", id)
		t.gone()
	}
}
