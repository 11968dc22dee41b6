package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/gitpulse/internal/application"
)

func syncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync [owner/repo...]",
		Short: "Sync tracked repositories once and exit",
		Long: `Sync pulls new activity for every tracked repository, or only for the
repositories given as arguments. Named repositories that are not tracked
yet are registered first.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range args {
				if err := application.ValidateRepoName(name); err != nil {
					return err
				}
			}

			return withApp(func(ctx context.Context, a *app) error {
				if err := a.seedRepositories(ctx); err != nil {
					return err
				}

				svc, err := a.syncService()
				if err != nil {
					return err
				}

				reports, failed, err := runSync(ctx, svc, args)
				if err != nil {
					return err
				}

				printRepoReports(cmd.OutOrStdout(), reports)

				if failed > 0 {
					return fmt.Errorf("%d of %d repositories failed to sync", failed, len(reports))
				}
				return nil
			})
		},
	}
}

// runSync syncs names in order, or every tracked repository when names is
// empty, and counts the failed repositories.
func runSync(ctx context.Context, svc *application.SyncService, names []string) ([]application.RepoReport, int, error) {
	if len(names) == 0 {
		run, err := svc.SyncAll(ctx)
		if err != nil {
			return nil, 0, err
		}
		return run.Repositories, run.Failed, nil
	}

	var reports []application.RepoReport
	failed := 0
	for _, name := range names {
		if ctx.Err() != nil {
			return reports, failed, ctx.Err()
		}
		report, err := svc.SyncRepo(ctx, name)
		if err != nil {
			failed++
		}
		reports = append(reports, report)
	}

	return reports, failed, nil
}
