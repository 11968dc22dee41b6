package main

import (
	"context"
	"errors"
	"log/slog"

	githubadapter "github.com/ericfisherdev/gitpulse/internal/adapter/driven/github"
	sqliteadapter "github.com/ericfisherdev/gitpulse/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/gitpulse/internal/application"
	"github.com/ericfisherdev/gitpulse/internal/config"
)

// errNoToken is returned by commands that need GitHub when no token is set.
var errNoToken = errors.New("GITPULSE_GITHUB_TOKEN is not set")

// app holds the wired adapters shared by every command.
type app struct {
	cfg    *config.Config
	db     *sqliteadapter.DB
	stores application.Stores
}

// openApp opens the database, migrates it and wires the stores.
func openApp(ctx context.Context, cfg *config.Config) (*app, error) {
	db, err := sqliteadapter.NewDB(ctx, cfg.DBPath)
	if err != nil {
		return nil, err
	}
	slog.Debug("database opened", "path", cfg.DBPath)

	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &app{
		cfg: cfg,
		db:  db,
		stores: application.Stores{
			Repos:   sqliteadapter.NewRepoRepo(db),
			Commits: sqliteadapter.NewCommitRepo(db),
			PRs:     sqliteadapter.NewPRRepo(db),
			Issues:  sqliteadapter.NewIssueRepo(db),
			Reviews: sqliteadapter.NewReviewRepo(db),
		},
	}, nil
}

func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}

// seedRepositories registers the repositories listed in the configuration.
// Invalid names are logged and skipped.
func (a *app) seedRepositories(ctx context.Context) error {
	for _, name := range a.cfg.Repositories {
		if err := application.ValidateRepoName(name); err != nil {
			slog.Warn("skipping configured repository", "repo", name, "error", err)
			continue
		}
		if _, err := a.stores.Repos.FindOrCreate(ctx, name); err != nil {
			return err
		}
	}
	if n := len(a.cfg.Repositories); n > 0 {
		slog.Info("configured repositories seeded", "count", n)
	}
	return nil
}

// syncService builds the sync engine on a GitHub client. It fails without a
// token.
func (a *app) syncService() (*application.SyncService, error) {
	if !a.cfg.HasGitHubToken() {
		return nil, errNoToken
	}

	client, err := githubadapter.NewClient(a.cfg.GitHubToken, a.cfg.GitHubBaseURL, a.cfg.RequestsPerSecond)
	if err != nil {
		return nil, err
	}

	return application.NewSyncService(client, a.stores, application.SyncOptions{
		Retention:         a.cfg.Retention(),
		LowQuotaThreshold: a.cfg.LowQuotaThreshold,
		Interval:          a.cfg.SyncInterval,
	}), nil
}
