package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ericfisherdev/passpanel/internal/domain/model"
	"github.com/ericfisherdev/passpanel/internal/domain/port/driven"
)

// AgentHub runs one PageAgent per browser tab. It discovers tabs, routes
// agent-addressed messages and stops every agent when its context ends.
type AgentHub struct {
	browser   driven.Browser
	messenger driven.Messenger
	cfg       AgentConfig
	logger    *slog.Logger

	mu     sync.RWMutex
	agents map[string]*PageAgent
	group  *errgroup.Group
	ctx    context.Context
}

// NewAgentHub creates a hub for browser. Agents reach the coordinator
// through messenger.
func NewAgentHub(browser driven.Browser, messenger driven.Messenger, cfg AgentConfig, logger *slog.Logger) *AgentHub {
	return &AgentHub{
		browser:   browser,
		messenger: messenger,
		cfg:       cfg,
		logger:    logger,
		agents:    make(map[string]*PageAgent),
	}
}

// Run attaches an agent to every open tab and keeps discovering new tabs
// every liveness interval. It blocks until ctx is canceled and all agents
// have stopped.
func (h *AgentHub) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	h.mu.Lock()
	h.group = g
	h.ctx = gctx
	h.mu.Unlock()

	g.Go(func() error {
		h.syncTabs(gctx)

		ticker := time.NewTicker(h.cfg.LivenessInterval)
		defer ticker.Stop()

		for {
			select {
			case <-gctx.Done():
				h.logger.Info("agent hub stopped")
				return nil
			case <-ticker.C:
				h.syncTabs(gctx)
			}
		}
	})

	return g.Wait()
}

func (h *AgentHub) syncTabs(ctx context.Context) {
	tabs, err := h.browser.Tabs(ctx)
	if err != nil {
		if ctx.Err() == nil {
			h.logger.Warn("list browser tabs failed", "error", err)
		}
		return
	}

	for _, tab := range tabs {
		h.Attach(tab)
	}
}

// Attach starts an agent for tab unless one is already running. It reports
// whether a new agent was started.
func (h *AgentHub) Attach(tab driven.Tab) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.group == nil || h.ctx.Err() != nil {
		return false
	}

	id := tab.ID()
	if _, ok := h.agents[id]; ok {
		return false
	}

	logger := h.logger.With("tab", id)
	agent := NewPageAgent(tab, h.messenger, h.cfg, logger)
	h.agents[id] = agent
	ctx := h.ctx

	h.group.Go(func() error {
		err := agent.Run(ctx)

		h.mu.Lock()
		if h.agents[id] == agent {
			delete(h.agents, id)
		}
		h.mu.Unlock()

		switch {
		case err == nil:
		case errors.Is(err, ErrPageClosed):
			logger.Info("tab closed")
		case errors.Is(err, ErrChannelInvalidated):
			logger.Warn("agent stopped: coordinator unreachable", "error", err)
		default:
			logger.Error("agent failed", "error", err)
		}

		// One tab's failure must not stop the others.
		return nil
	})

	logger.Info("agent attached")
	return true
}

// Len returns the number of running agents.
func (h *AgentHub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.agents)
}

// ActiveTab returns the browser's active tab, attaching an agent to it if
// it has none yet.
func (h *AgentHub) ActiveTab(ctx context.Context) (driven.Tab, error) {
	tab, err := h.browser.ActiveTab(ctx)
	if err != nil {
		return nil, fmt.Errorf("get active tab: %w", err)
	}
	h.Attach(tab)
	return tab, nil
}

// Deliver sends msg to the agent of the tab with the given id.
func (h *AgentHub) Deliver(ctx context.Context, tabID string, msg model.Message) (model.Reply, error) {
	h.mu.RLock()
	agent, ok := h.agents[tabID]
	h.mu.RUnlock()

	if !ok {
		return model.Reply{}, fmt.Errorf("deliver %s to tab %s: %w", msg.Action, tabID, ErrNoAgent)
	}

	reply, err := agent.Deliver(ctx, msg)
	if err != nil {
		return model.Reply{}, fmt.Errorf("deliver %s to tab %s: %w", msg.Action, tabID, err)
	}
	return reply, nil
}
