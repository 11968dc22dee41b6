package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/gitpulse/internal/application"
)

const dateLayout = "2006-01-02"

type activityFlags struct {
	repo    string
	repos   []string
	author  string
	authors []string
	days    int
	start   string
	end     string
	limit   int
}

func activityCmd() *cobra.Command {
	var f activityFlags

	cmd := &cobra.Command{
		Use:   "activity",
		Short: "Show the merged activity timeline from the local database",
		Long: `Activity prints stored commits, pull requests, issues and reviews,
newest first. It reads the local database only; run "gitpulse sync" to
fetch new activity.

Examples:
  # Everything from the last week
  gitpulse activity --days 7

  # One author across two repositories in March
  gitpulse activity --repos octo/app,octo/lib --author alice --start 2026-03-01 --end 2026-03-31`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter, err := f.filter()
			if err != nil {
				return err
			}

			return withApp(func(ctx context.Context, a *app) error {
				items, err := application.NewActivityService(a.stores).Query(ctx, filter)
				if err != nil {
					return err
				}
				if f.limit > 0 && len(items) > f.limit {
					items = items[:f.limit]
				}
				printActivity(cmd.OutOrStdout(), items, time.Now())
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&f.repo, "repo", application.AllRepositories, `Repository "owner/repo", or "all"`)
	cmd.Flags().StringSliceVar(&f.repos, "repos", nil, "Comma-separated repositories (used when --repo is not set)")
	cmd.Flags().StringVar(&f.author, "author", "", "Single author; overrides --authors")
	cmd.Flags().StringSliceVar(&f.authors, "authors", nil, "Comma-separated authors")
	cmd.Flags().IntVar(&f.days, "days", 0, "Only the last N days")
	cmd.Flags().StringVar(&f.start, "start", "", "First day of a date range (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.end, "end", "", "Last day of a date range (YYYY-MM-DD)")
	cmd.Flags().IntVar(&f.limit, "limit", 50, "Maximum rows to print; 0 prints all")

	cmd.MarkFlagsMutuallyExclusive("days", "start")
	cmd.MarkFlagsMutuallyExclusive("days", "end")
	cmd.MarkFlagsRequiredTogether("start", "end")

	return cmd
}

// filter builds the query filter. --repos only applies when --repo is left
// at its default.
func (f activityFlags) filter() (application.ActivityFilter, error) {
	filter := application.ActivityFilter{
		Repository: f.repo,
		Author:     f.author,
		Authors:    f.authors,
		Window:     application.AllTime(),
	}
	if len(f.repos) > 0 && f.repo == application.AllRepositories {
		filter.Repository = ""
		filter.Repositories = f.repos
	}

	switch {
	case f.days != 0:
		filter.Window = application.LastDays(f.days)
	case f.start != "":
		start, err := time.Parse(dateLayout, f.start)
		if err != nil {
			return filter, fmt.Errorf("--start: expected YYYY-MM-DD, got %q", f.start)
		}
		end, err := time.Parse(dateLayout, f.end)
		if err != nil {
			return filter, fmt.Errorf("--end: expected YYYY-MM-DD, got %q", f.end)
		}
		filter.Window = application.Between(start, end)
	}

	return filter, nil
}
