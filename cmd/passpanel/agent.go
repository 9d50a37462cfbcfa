package main

import (
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	browseradapter "github.com/ericfisherdev/passpanel/internal/adapter/driven/browser"
	"github.com/ericfisherdev/passpanel/internal/adapter/driven/messenger"
	"github.com/ericfisherdev/passpanel/internal/application"
	"github.com/ericfisherdev/passpanel/internal/config"
)

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Run browser agents against a remote coordinator",
	Long: `Agent attaches to (or launches) a Chromium browser and runs a page agent
in every tab, sending messages to the coordinator at PASSPANEL_COORDINATOR_URL
instead of an in-process one. Autofill requested from the remote GUI is not
delivered to these tabs.`,
	RunE: runAgent,
}

func init() {
	rootCmd.AddCommand(agentCmd)
}

func runAgent(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.CoordinatorURL == "" {
		return errors.New("PASSPANEL_COORDINATOR_URL is required for the agent command")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session, err := browseradapter.Connect(ctx, browseradapter.Options{
		ControlURL: cfg.BrowserControlURL,
		Bin:        cfg.BrowserBin,
		Headless:   cfg.BrowserHeadless,
	}, slog.Default())
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := session.Close(); closeErr != nil {
			slog.Error("error closing browser", "error", closeErr)
		}
	}()

	client := messenger.NewClient(cfg.CoordinatorURL, 10*time.Second, slog.Default())
	hub := application.NewAgentHub(session, client, agentConfig(cfg), slog.Default())

	slog.Info("agent started", "coordinator", cfg.CoordinatorURL)
	if err := hub.Run(ctx); err != nil {
		return err
	}

	slog.Info("agent stopped")
	return nil
}
