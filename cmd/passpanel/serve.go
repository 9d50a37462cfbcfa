package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	browseradapter "github.com/ericfisherdev/passpanel/internal/adapter/driven/browser"
	sqliteadapter "github.com/ericfisherdev/passpanel/internal/adapter/driven/sqlite"
	httphandler "github.com/ericfisherdev/passpanel/internal/adapter/driving/http"
	webhandler "github.com/ericfisherdev/passpanel/internal/adapter/driving/web"
	"github.com/ericfisherdev/passpanel/internal/application"
	"github.com/ericfisherdev/passpanel/internal/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the coordinator, web GUI and browser agents",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	// 1. Load configuration (fail fast on invalid env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"pending_ttl", cfg.PendingTTL,
		"browser_enabled", cfg.BrowserEnabled,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database and run migrations.
	db, err := openDB(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	// 4. Wire adapters.
	credentialStore := sqliteadapter.NewCredentialRepo(db)
	pendingStore := sqliteadapter.NewPendingRepo(db)
	settingStore := sqliteadapter.NewSettingRepo(db)

	// 5. Create application services.
	coord := application.NewCoordinator(credentialStore, pendingStore, cfg.PendingTTL)
	router := application.NewRouter(coord, slog.Default())
	gate := application.NewGateService(settingStore)
	transfer := application.NewTransferService(credentialStore, gate)

	g, gctx := errgroup.WithContext(ctx)

	// 6. Attach the browser when enabled. Without it the orchestrator
	// reports ErrNoBrowser and the GUI hides login buttons.
	var tabs application.TabAgents
	if cfg.BrowserEnabled {
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

		hub := application.NewAgentHub(session, router, agentConfig(cfg), slog.Default())
		g.Go(func() error { return hub.Run(gctx) })
		tabs = hub
	} else {
		slog.Info("browser disabled, fill and capture are unavailable")
	}
	fill := application.NewFillOrchestrator(coord, tabs, cfg.NavigationSettle, slog.Default())

	// 7. Create HTTP handlers and register API and GUI routes.
	mux := http.NewServeMux()
	httphandler.RegisterRoutes(mux, httphandler.NewHandler(router, coord, transfer, gate, fill, slog.Default()))
	webhandler.RegisterRoutes(mux, webhandler.NewHandler(coord, transfer, gate, fill, slog.Default()))

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           httphandler.ApplyMiddleware(mux, slog.Default()),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g.Go(func() error {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	// 8. Graceful shutdown once the signal arrives or a component fails.
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("http server shutdown error", "error", err)
		}
		return nil
	})

	slog.Info("passpanel started", "listen_addr", cfg.ListenAddr)

	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("shutdown complete")
	return nil
}

// openDB opens the database (dual reader/writer with WAL mode) and applies
// pending migrations on the writer connection.
func openDB(ctx context.Context, path string) (*sqliteadapter.DB, error) {
	db, err := sqliteadapter.NewDB(ctx, path)
	if err != nil {
		return nil, err
	}

	version, err := sqliteadapter.RunMigrations(db.Writer)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	slog.Info("database ready", "path", path, "schema_version", version)
	return db, nil
}
