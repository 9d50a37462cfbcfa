package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	"github.com/ericfisherdev/passpanel/internal/application"
	"github.com/ericfisherdev/passpanel/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "passpanel",
	Short: "Password manager that captures, saves and fills logins in your browser",
	Long: `PassPanel keeps one list of website logins. It watches a Chromium
browser for submitted login forms, asks before saving, and fills saved
logins back into pages. Configuration is read from PASSPANEL_* environment
variables.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

// agentConfig maps the loaded configuration onto the page agent timings.
func agentConfig(cfg *config.Config) application.AgentConfig {
	return application.AgentConfig{
		PendingCheckDelays: cfg.PendingCheckDelays,
		PromptTimeout:      cfg.PromptTimeout,
		LivenessInterval:   cfg.LivenessInterval,
		FillAttempts:       cfg.FillAttempts,
		FillRetryDelay:     cfg.FillRetryDelay,
		PageCallTimeout:    cfg.PageCallTimeout,
	}
}
