// Package application contains use-case orchestration services.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/ericfisherdev/gitpulse/internal/domain/model"
	"github.com/ericfisherdev/gitpulse/internal/domain/port/driven"
)

// SyncStage names the step a repository sync is in or stopped at.
type SyncStage string

const (
	StageInit         SyncStage = "init"
	StageRepository   SyncStage = "repository"
	StagePrune        SyncStage = "prune"
	StageWatermarks   SyncStage = "watermarks"
	StageCommits      SyncStage = "commits"
	StagePullRequests SyncStage = "pull_requests"
	StageIssues       SyncStage = "issues"
	StageReviews      SyncStage = "reviews"
	StageDone         SyncStage = "done"
	StageFailed       SyncStage = "failed"
)

// KindReport counts what one sync did for one activity kind.
type KindReport struct {
	Since   time.Time // watermark used as the fetch lower bound
	Pruned  int64
	Fetched int // items returned by GitHub before filtering
	Stored  int // rows inserted or upserted
}

// RepoReport is the outcome of syncing one repository.
type RepoReport struct {
	Repository string
	Stage      SyncStage // StageDone or StageFailed once finished
	FailedAt   SyncStage // stage that failed; empty on success
	Error      string
	Kinds      map[model.ActivityKind]*KindReport
	StartedAt  time.Time
	FinishedAt time.Time
}

// Failed reports whether the sync stopped before completing.
func (r RepoReport) Failed() bool {
	return r.Stage == StageFailed
}

// RunReport is the outcome of syncing every tracked repository.
type RunReport struct {
	RunID        string
	Repositories []RepoReport
	Failed       int
	StartedAt    time.Time
	FinishedAt   time.Time
}

// SyncOptions tunes a SyncService. Zero values select the defaults.
type SyncOptions struct {
	Retention         time.Duration // DefaultRetention
	LowQuotaThreshold int           // 20
	ReviewBatchSize   int           // 5 pull requests between quota checks
	Interval          time.Duration // scheduler period; Start requires > 0
	Now               func() time.Time
}

// SyncService pulls activity from GitHub into the stores. Repositories are
// synced one at a time and one stage at a time; a failing repository is
// logged and skipped.
type SyncService struct {
	source         driven.ActivitySource
	stores         Stores
	retention      time.Duration
	quotaThreshold int
	reviewBatch    int
	interval       time.Duration
	now            func() time.Time

	// inflight coalesces concurrent syncs of the same repository.
	inflight singleflight.Group
}

// NewSyncService creates a new SyncService with all required dependencies.
func NewSyncService(source driven.ActivitySource, stores Stores, opts SyncOptions) *SyncService {
	s := &SyncService{
		source:         source,
		stores:         stores,
		retention:      opts.Retention,
		quotaThreshold: opts.LowQuotaThreshold,
		reviewBatch:    opts.ReviewBatchSize,
		interval:       opts.Interval,
		now:            opts.Now,
	}

	if s.retention <= 0 {
		s.retention = DefaultRetention
	}
	if s.quotaThreshold <= 0 {
		s.quotaThreshold = 20
	}
	if s.reviewBatch <= 0 {
		s.reviewBatch = 5
	}
	if s.now == nil {
		s.now = time.Now
	}

	return s
}

// Start runs a full sync immediately and then once per interval until ctx is
// canceled. It blocks.
func (s *SyncService) Start(ctx context.Context) {
	if _, err := s.SyncAll(ctx); err != nil {
		slog.Error("initial sync failed", "error", err)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("sync service stopped")
			return
		case <-ticker.C:
			if _, err := s.SyncAll(ctx); err != nil {
				slog.Error("sync run failed", "error", err)
			}
		}
	}
}

// SyncAll syncs every tracked repository in name order. Per-repository
// failures are recorded in the report, not returned. An error is returned
// only when the repository list cannot be read or ctx ends.
func (s *SyncService) SyncAll(ctx context.Context) (RunReport, error) {
	run := RunReport{
		RunID:     uuid.NewString(),
		StartedAt: s.now(),
	}

	repos, err := s.stores.Repos.ListAll(ctx)
	if err != nil {
		return run, fmt.Errorf("list repositories: %w", err)
	}

	for _, repo := range repos {
		if ctx.Err() != nil {
			run.FinishedAt = s.now()
			return run, ctx.Err()
		}

		report, err := s.SyncRepo(ctx, repo.FullName)
		if err != nil {
			slog.Error("repo sync failed",
				"run_id", run.RunID,
				"repo", repo.FullName,
				"stage", report.FailedAt,
				"error", err,
			)
			run.Failed++
		}
		run.Repositories = append(run.Repositories, report)
	}

	run.FinishedAt = s.now()

	slog.Info("sync run complete",
		"run_id", run.RunID,
		"repos", len(repos),
		"errors", run.Failed,
		"duration", run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond),
	)

	return run, nil
}

// SyncRepo syncs one repository, registering it first if needed. A call made
// while the same repository is already syncing waits for that sync and
// shares its report. The error is non-nil when the sync failed.
func (s *SyncService) SyncRepo(ctx context.Context, fullName string) (RepoReport, error) {
	v, err, shared := s.inflight.Do(fullName, func() (any, error) {
		return s.syncRepo(ctx, fullName)
	})
	if shared {
		slog.Debug("joined in-flight sync", "repo", fullName)
	}

	return v.(RepoReport), err
}

// AddRepository validates fullName, checks it exists on GitHub, registers it
// and runs its first sync. A repository that is already tracked is synced
// again; created tells the two cases apart.
func (s *SyncService) AddRepository(ctx context.Context, fullName string) (report RepoReport, created bool, err error) {
	if err := ValidateRepoName(fullName); err != nil {
		return RepoReport{}, false, err
	}

	exists, err := s.source.RepositoryExists(ctx, fullName)
	if err != nil {
		return RepoReport{}, false, fmt.Errorf("check repository %s: %w", fullName, err)
	}
	if !exists {
		return RepoReport{}, false, fmt.Errorf("%w: %s", ErrRemoteRepoNotFound, fullName)
	}

	_, err = s.stores.Repos.Add(ctx, fullName)
	switch {
	case err == nil:
		created = true
		slog.Info("repository added", "repo", fullName)
	case errors.Is(err, driven.ErrRepoAlreadyExists):
	default:
		return RepoReport{}, false, err
	}

	report, err = s.SyncRepo(ctx, fullName)
	return report, created, err
}

func (s *SyncService) syncRepo(ctx context.Context, fullName string) (RepoReport, error) {
	report := RepoReport{
		Repository: fullName,
		Stage:      StageInit,
		Kinds:      make(map[model.ActivityKind]*KindReport, len(model.ActivityKinds)),
		StartedAt:  s.now(),
	}
	for _, kind := range model.ActivityKinds {
		report.Kinds[kind] = &KindReport{}
	}

	fail := func(err error) (RepoReport, error) {
		report.FailedAt = report.Stage
		report.Stage = StageFailed
		report.Error = err.Error()
		report.FinishedAt = s.now()
		return report, fmt.Errorf("sync %s at %s: %w", fullName, report.FailedAt, err)
	}

	report.Stage = StageRepository
	repo, err := s.stores.Repos.FindOrCreate(ctx, fullName)
	if err != nil {
		return fail(err)
	}

	stores := s.stores.byKind()
	horizon := report.StartedAt.Add(-s.retention)

	report.Stage = StagePrune
	pruned, err := prune(ctx, stores, repo.ID, horizon)
	if err != nil {
		return fail(err)
	}
	for kind, n := range pruned {
		report.Kinds[kind].Pruned = n
	}

	report.Stage = StageWatermarks
	marks, err := watermarks(ctx, stores, repo.ID, horizon)
	if err != nil {
		return fail(err)
	}
	for kind, mark := range marks {
		report.Kinds[kind].Since = mark
	}

	steps := []struct {
		stage SyncStage
		run   func(context.Context, *model.Repository, *KindReport) error
		kind  model.ActivityKind
	}{
		{StageCommits, s.syncCommits, model.ActivityCommit},
		{StagePullRequests, s.syncPullRequests, model.ActivityPullRequest},
		{StageIssues, s.syncIssues, model.ActivityIssue},
		{StageReviews, s.syncReviews, model.ActivityReview},
	}

	for _, step := range steps {
		report.Stage = step.stage
		if err := step.run(ctx, repo, report.Kinds[step.kind]); err != nil {
			return fail(err)
		}
	}

	report.Stage = StageDone
	report.FinishedAt = s.now()

	slog.Info("repo synced",
		"repo", fullName,
		"commits", report.Kinds[model.ActivityCommit].Stored,
		"pull_requests", report.Kinds[model.ActivityPullRequest].Stored,
		"issues", report.Kinds[model.ActivityIssue].Stored,
		"reviews", report.Kinds[model.ActivityReview].Stored,
		"duration", report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond),
	)

	return report, nil
}
