package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	httphandler "github.com/ericfisherdev/gitpulse/internal/adapter/driving/http"
	"github.com/ericfisherdev/gitpulse/internal/application"
)

// viewIdleTimeout is how long an unused activity view is kept.
const viewIdleTimeout = 30 * time.Minute

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the periodic sync",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return serve()
		},
	}
}

func serve() error {
	// 1. Load configuration.
	cfg, err := loadConfig(os.Stdout)
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"sync_interval", cfg.SyncInterval,
		"retention_days", cfg.RetentionDays,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open and migrate the database, wire stores.
	a, err := openApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.seedRepositories(ctx); err != nil {
		return err
	}

	// 4. Sync engine. Without a token the API still serves stored activity.
	var syncer httphandler.RepoSyncer = disabledSyncer{}
	syncSvc, err := a.syncService()
	switch {
	case errors.Is(err, errNoToken):
		slog.Warn("no github token configured, syncing disabled")
	case err != nil:
		return err
	default:
		syncer = syncSvc
		if cfg.SyncInterval > 0 {
			go syncSvc.Start(ctx)
		} else {
			slog.Info("periodic sync disabled")
		}
	}

	// 5. Query engine and HTTP API.
	activitySvc := application.NewActivityService(a.stores)
	feeds := application.NewFeedRegistry(activitySvc, viewIdleTimeout)

	apiHandler := httphandler.NewHandler(a.stores.Repos, syncer, activitySvc, feeds, slog.Default())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           httphandler.NewRouter(apiHandler, slog.Default()),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// Adding a repository syncs it before responding.
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
			stop()
		}
	}()

	// 6. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}

// disabledSyncer answers sync requests when no GitHub token is configured.
type disabledSyncer struct{}

func (disabledSyncer) AddRepository(context.Context, string) (application.RepoReport, bool, error) {
	return application.RepoReport{}, false, application.ErrSyncDisabled
}

func (disabledSyncer) SyncAll(context.Context) (application.RunReport, error) {
	return application.RunReport{}, application.ErrSyncDisabled
}
