package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ericfisherdev/gitpulse/internal/domain/model"
)

// prStates are the pull request states fetched as separate listings.
var prStates = []model.PRState{model.PRStateOpen, model.PRStateClosed}

// syncCommits fetches commits of every branch newer than the watermark and
// stores the ones whose key is neither stored nor seen earlier in this run.
func (s *SyncService) syncCommits(ctx context.Context, repo *model.Repository, kr *KindReport) error {
	branches, err := s.source.ListBranches(ctx, repo.FullName)
	if err != nil {
		return fmt.Errorf("list branches: %w", err)
	}

	known, err := s.stores.Commits.Keys(ctx, repo.ID)
	if err != nil {
		return err
	}

	for _, branch := range branches {
		commits, err := s.source.ListCommits(ctx, repo.FullName, branch, kr.Since)
		if err != nil {
			return fmt.Errorf("list commits on %s: %w", branch, err)
		}
		kr.Fetched += len(commits)

		fresh := make([]model.Commit, 0, len(commits))
		for _, c := range commits {
			if !c.CommittedAt.After(kr.Since) {
				continue
			}
			key := c.Key()
			if _, dup := known[key]; dup {
				continue
			}
			known[key] = struct{}{}

			c.RepositoryID = repo.ID
			fresh = append(fresh, c)
		}

		stored, err := s.storeCommits(ctx, repo.FullName, fresh)
		if err != nil {
			return err
		}
		kr.Stored += stored
	}

	return nil
}

// storeCommits inserts commits as one batch. When the batch fails the rows
// are retried one by one and rows that still fail are logged and skipped.
func (s *SyncService) storeCommits(ctx context.Context, repoFullName string, commits []model.Commit) (int, error) {
	if len(commits) == 0 {
		return 0, nil
	}

	n, err := s.stores.Commits.InsertBatch(ctx, commits)
	if err == nil {
		return n, nil
	}
	if ctx.Err() != nil {
		return 0, ctx.Err()
	}

	slog.Warn("commit batch insert failed, inserting one by one",
		"repo", repoFullName,
		"count", len(commits),
		"error", err,
	)

	var stored int
	for _, c := range commits {
		inserted, err := s.stores.Commits.Insert(ctx, c)
		if err != nil {
			if ctx.Err() != nil {
				return stored, ctx.Err()
			}
			slog.Warn("commit insert failed",
				"repo", repoFullName,
				"branch", c.Branch,
				"committed_at", c.CommittedAt,
				"error", err,
			)
			continue
		}
		if inserted {
			stored++
		}
	}

	return stored, nil
}

// syncPullRequests upserts open and closed pull requests created after the
// watermark.
func (s *SyncService) syncPullRequests(ctx context.Context, repo *model.Repository, kr *KindReport) error {
	for _, state := range prStates {
		prs, err := s.source.ListPullRequests(ctx, repo.FullName, string(state), kr.Since)
		if err != nil {
			return fmt.Errorf("list %s pull requests: %w", state, err)
		}
		kr.Fetched += len(prs)

		for _, pr := range prs {
			if !pr.CreatedAt.After(kr.Since) {
				continue
			}
			pr.RepositoryID = repo.ID
			if err := s.stores.PRs.Upsert(ctx, pr); err != nil {
				return err
			}
			kr.Stored++
		}
	}

	return nil
}

// syncIssues upserts issues created after the watermark.
func (s *SyncService) syncIssues(ctx context.Context, repo *model.Repository, kr *KindReport) error {
	issues, err := s.source.ListIssues(ctx, repo.FullName, kr.Since)
	if err != nil {
		return fmt.Errorf("list issues: %w", err)
	}
	kr.Fetched += len(issues)

	for _, issue := range issues {
		if !issue.CreatedAt.After(kr.Since) {
			continue
		}
		issue.RepositoryID = repo.ID
		if err := s.stores.Issues.Upsert(ctx, issue); err != nil {
			return err
		}
		kr.Stored++
	}

	return nil
}

// syncReviews lists reviews of the pull requests updated since the watermark
// and upserts reviews submitted after it. Pull requests with older activity are
// skipped without a request. The remaining API quota is checked before each
// batch of pull requests because this stage issues one listing per PR.
func (s *SyncService) syncReviews(ctx context.Context, repo *model.Repository, kr *KindReport) error {
	prs, err := s.source.ListPullRequests(ctx, repo.FullName, "all", kr.Since)
	if err != nil {
		return fmt.Errorf("list pull requests for reviews: %w", err)
	}

	walked := 0
	for _, pr := range prs {
		if pr.LastActivity().Before(kr.Since) {
			continue
		}
		if walked%s.reviewBatch == 0 {
			if err := s.source.WaitForQuota(ctx, s.quotaThreshold); err != nil {
				return err
			}
		}
		walked++

		reviews, err := s.source.ListReviews(ctx, repo.FullName, pr.Number, kr.Since)
		if err != nil {
			return fmt.Errorf("list reviews of #%d: %w", pr.Number, err)
		}
		kr.Fetched += len(reviews)

		for _, review := range reviews {
			if !review.CreatedAt.After(kr.Since) {
				continue
			}
			if review.Comment == "" {
				review.Comment = model.DefaultReviewComment
			}
			review.RepositoryID = repo.ID
			if err := s.stores.Reviews.Upsert(ctx, review); err != nil {
				return err
			}
			kr.Stored++
		}
	}

	return nil
}
