package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/gitpulse/internal/application"
)

func reposCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repos",
		Short: "Manage tracked repositories",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add owner/repo",
		Short: "Track a repository and run its first sync",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app) error {
				svc, err := a.syncService()
				if err != nil {
					return err
				}

				report, created, err := svc.AddRepository(ctx, args[0])
				if report.Repository == "" {
					return err
				}

				if created {
					fmt.Fprintf(cmd.OutOrStdout(), "Tracking %s\n", args[0])
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "%s is already tracked\n", args[0])
				}
				printRepoReports(cmd.OutOrStdout(), []application.RepoReport{report})
				return err
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List tracked repositories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(func(ctx context.Context, a *app) error {
				repos, err := a.stores.Repos.ListAll(ctx)
				if err != nil {
					return err
				}
				printRepositories(cmd.OutOrStdout(), repos)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove owner/repo",
		Short: "Stop tracking a repository and delete its activity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app) error {
				if err := a.stores.Repos.Remove(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
				return nil
			})
		},
	})

	return cmd
}

// withApp loads the configuration, opens the database and runs fn. Logs go
// to stderr so command output stays clean.
func withApp(fn func(ctx context.Context, a *app) error) error {
	cfg, err := loadConfig(os.Stderr)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(ctx, a)
}
