package application_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/gitpulse/internal/application"
	"github.com/ericfisherdev/gitpulse/internal/domain/model"
)

var syncNow = time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC)

func march(day, hour int) time.Time {
	return time.Date(2026, 3, day, hour, 0, 0, 0, time.UTC)
}

func commitAt(branch, msg, author string, at time.Time) model.Commit {
	return model.Commit{Branch: branch, Message: msg, Author: author, CommittedAt: at}
}

func newTestSyncService(source *fakeSource, stores *fakeStores) *application.SyncService {
	return application.NewSyncService(source, stores.stores(), application.SyncOptions{
		Now: func() time.Time { return syncNow },
	})
}

// seedOcto fills the source with one repository's worth of activity.
func seedOcto(source *fakeSource) {
	source.branches["octo/app"] = []string{"main", "dev"}
	source.commits["octo/app"] = map[string][]model.Commit{
		"main": {
			commitAt("main", "init", "alice", march(20, 9)),
			commitAt("main", "add readme", "alice", march(21, 9)),
		},
		"dev": {
			commitAt("dev", "init", "alice", march(20, 9)),
			commitAt("dev", "wip", "bob", march(22, 9)),
			commitAt("dev", "wip", "bob", march(22, 9)),
		},
	}
	source.prs["octo/app"] = []model.PullRequest{
		{Number: 1, Title: "Add readme", Author: "alice", State: model.PRStateOpen, CreatedAt: march(22, 10)},
		{Number: 2, Title: "Fix build", Author: "bob", State: model.PRStateClosed, CreatedAt: march(23, 10)},
	}
	source.issues["octo/app"] = []model.Issue{
		{Number: 10, Title: "Build is red", Author: "carol", CreatedAt: march(24, 10)},
	}
	source.reviews["octo/app"] = map[int][]model.Review{
		1: {{ReviewID: 100, PRNumber: 1, Author: "bob", CreatedAt: march(25, 10)}},
		2: {{ReviewID: 200, PRNumber: 2, Comment: "LGTM", Author: "alice", CreatedAt: march(25, 11)}},
	}
}

func TestSyncRepo_StoresEveryKind(t *testing.T) {
	source := newFakeSource()
	seedOcto(source)
	stores := newFakeStores()
	svc := newTestSyncService(source, stores)

	report, err := svc.SyncRepo(context.Background(), "octo/app")
	require.NoError(t, err)

	assert.Equal(t, application.StageDone, report.Stage)
	assert.Empty(t, report.FailedAt)
	assert.False(t, report.Failed())

	commits := report.Kinds[model.ActivityCommit]
	assert.Equal(t, 5, commits.Fetched)
	assert.Equal(t, 4, commits.Stored, "same commit on two branches is two rows, duplicate listing is one")
	assert.Equal(t, 2, report.Kinds[model.ActivityPullRequest].Stored)
	assert.Equal(t, 1, report.Kinds[model.ActivityIssue].Stored)
	assert.Equal(t, 2, report.Kinds[model.ActivityReview].Stored)

	repo, err := stores.repos.GetByFullName(context.Background(), "octo/app")
	require.NoError(t, err)
	require.NotNil(t, repo)

	for _, c := range stores.commits.all() {
		assert.Equal(t, repo.ID, c.RepositoryID)
	}

	comments := map[int64]string{}
	for _, r := range stores.reviews.all() {
		comments[r.ReviewID] = r.Comment
	}
	assert.Equal(t, map[int64]string{100: model.DefaultReviewComment, 200: "LGTM"}, comments)
}

func TestSyncRepo_ResyncStoresNothingNew(t *testing.T) {
	source := newFakeSource()
	seedOcto(source)
	stores := newFakeStores()
	svc := newTestSyncService(source, stores)

	_, err := svc.SyncRepo(context.Background(), "octo/app")
	require.NoError(t, err)

	report, err := svc.SyncRepo(context.Background(), "octo/app")
	require.NoError(t, err)

	for _, kind := range model.ActivityKinds {
		assert.Zero(t, report.Kinds[kind].Stored, "kind %s", kind)
	}
	assert.Len(t, stores.commits.all(), 4)
	assert.Len(t, stores.prs.all(), 2)
}

func TestSyncRepo_PruneThenWatermarkFallsBackToHorizon(t *testing.T) {
	source := newFakeSource()
	seedOcto(source)
	stores := newFakeStores()

	repo, err := stores.repos.Add(context.Background(), "octo/app")
	require.NoError(t, err)

	// Older than the 30 day horizon: pruned, so commits fall back to the horizon.
	stores.commits.put(model.Commit{RepositoryID: repo.ID, Branch: "main", Message: "ancient", Author: "alice", CommittedAt: syncNow.AddDate(0, 0, -40)})
	// Inside the horizon: kept, and becomes the pull request watermark.
	stores.prs.put(model.PullRequest{RepositoryID: repo.ID, Number: 9, Title: "old", Author: "alice", State: model.PRStateClosed, CreatedAt: march(10, 0)})

	svc := newTestSyncService(source, stores)
	report, err := svc.SyncRepo(context.Background(), "octo/app")
	require.NoError(t, err)

	horizon := syncNow.Add(-application.DefaultRetention)

	assert.Equal(t, int64(1), report.Kinds[model.ActivityCommit].Pruned)
	assert.Equal(t, horizon, report.Kinds[model.ActivityCommit].Since)
	assert.Equal(t, march(10, 0), report.Kinds[model.ActivityPullRequest].Since)

	for _, call := range source.callsOf("commits") {
		assert.Equal(t, horizon, call.Since)
	}
	for _, call := range source.callsOf("issues") {
		assert.Equal(t, horizon, call.Since)
	}
}

func TestSyncRepo_SkipsItemsNotNewerThanWatermark(t *testing.T) {
	source := newFakeSource()
	source.branches["octo/app"] = []string{"main"}
	source.commits["octo/app"] = map[string][]model.Commit{
		"main": {
			commitAt("main", "same second", "alice", march(20, 9)),
			commitAt("main", "later", "alice", march(21, 9)),
		},
	}
	stores := newFakeStores()

	repo, err := stores.repos.Add(context.Background(), "octo/app")
	require.NoError(t, err)
	stores.commits.put(model.Commit{RepositoryID: repo.ID, Branch: "main", Message: "stored", Author: "alice", CommittedAt: march(20, 9)})

	svc := newTestSyncService(source, stores)
	report, err := svc.SyncRepo(context.Background(), "octo/app")
	require.NoError(t, err)

	assert.Equal(t, 2, report.Kinds[model.ActivityCommit].Fetched)
	assert.Equal(t, 1, report.Kinds[model.ActivityCommit].Stored)
}

func TestSyncRepo_BatchFailureFallsBackToRowInserts(t *testing.T) {
	source := newFakeSource()
	seedOcto(source)
	stores := newFakeStores()
	stores.commits.failBatch = true

	svc := newTestSyncService(source, stores)
	report, err := svc.SyncRepo(context.Background(), "octo/app")
	require.NoError(t, err)

	assert.Equal(t, 4, report.Kinds[model.ActivityCommit].Stored)
	assert.Equal(t, 2, stores.commits.batchCalls, "one batch per branch")
	assert.Equal(t, 4, stores.commits.insertCalls)
	assert.Len(t, stores.commits.all(), 4)
}

func TestSyncRepo_ChecksQuotaBeforeEachReviewBatch(t *testing.T) {
	source := newFakeSource()
	for n := 1; n <= 12; n++ {
		source.prs["octo/app"] = append(source.prs["octo/app"], model.PullRequest{
			Number: n, Title: "pr", Author: "alice", State: model.PRStateOpen, CreatedAt: march(20, n),
		})
	}
	stores := newFakeStores()

	svc := newTestSyncService(source, stores)
	_, err := svc.SyncRepo(context.Background(), "octo/app")
	require.NoError(t, err)

	assert.Equal(t, 3, source.quotaChecks)
	assert.Len(t, source.callsOf("reviews"), 12)
}

func TestSyncRepo_ListsReviewsOnlyForRecentlyUpdatedPRs(t *testing.T) {
	source := newFakeSource()
	source.prs["octo/app"] = []model.PullRequest{
		{Number: 1, Title: "old but active", Author: "alice", State: model.PRStateOpen, CreatedAt: march(2, 9), UpdatedAt: march(25, 9)},
		{Number: 2, Title: "stale", Author: "bob", State: model.PRStateClosed, CreatedAt: march(2, 10), UpdatedAt: march(5, 10)},
		{Number: 3, Title: "no update time", Author: "carol", State: model.PRStateOpen, CreatedAt: march(21, 9)},
	}
	source.reviews["octo/app"] = map[int][]model.Review{
		1: {{ReviewID: 10, PRNumber: 1, Author: "bob", CreatedAt: march(25, 10)}},
		2: {{ReviewID: 20, PRNumber: 2, Author: "carol", CreatedAt: march(26, 10)}},
	}
	stores := newFakeStores()

	repo, err := stores.repos.Add(context.Background(), "octo/app")
	require.NoError(t, err)
	stores.reviews.put(model.Review{RepositoryID: repo.ID, ReviewID: 5, PRNumber: 9, Comment: "ok", Author: "dave", CreatedAt: march(20, 0)})

	svc := newTestSyncService(source, stores)
	report, err := svc.SyncRepo(context.Background(), "octo/app")
	require.NoError(t, err)

	var walked []int
	for _, call := range source.callsOf("reviews") {
		walked = append(walked, call.PR)
	}
	assert.Equal(t, []int{1, 3}, walked)
	assert.Equal(t, 1, report.Kinds[model.ActivityReview].Stored)
	assert.Equal(t, 1, source.quotaChecks)
}

func TestSyncRepo_FailureReportsStage(t *testing.T) {
	source := newFakeSource()
	source.branchErr["octo/app"] = errors.New("boom")
	stores := newFakeStores()

	svc := newTestSyncService(source, stores)
	report, err := svc.SyncRepo(context.Background(), "octo/app")
	require.Error(t, err)

	assert.True(t, report.Failed())
	assert.Equal(t, application.StageCommits, report.FailedAt)
	assert.Contains(t, report.Error, "boom")
	assert.Empty(t, source.callsOf("pulls"), "later stages must not run")
}

func TestSyncAll_ContinuesAfterRepoFailure(t *testing.T) {
	source := newFakeSource()
	source.branchErr["octo/a"] = errors.New("boom")
	source.branches["octo/b"] = []string{"main"}
	source.commits["octo/b"] = map[string][]model.Commit{
		"main": {commitAt("main", "hello", "bob", march(20, 9))},
	}
	stores := newFakeStores()
	for _, name := range []string{"octo/b", "octo/a"} {
		_, err := stores.repos.Add(context.Background(), name)
		require.NoError(t, err)
	}

	svc := newTestSyncService(source, stores)
	run, err := svc.SyncAll(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, run.RunID)
	assert.Equal(t, 1, run.Failed)
	require.Len(t, run.Repositories, 2)
	assert.Equal(t, "octo/a", run.Repositories[0].Repository)
	assert.True(t, run.Repositories[0].Failed())
	assert.Equal(t, "octo/b", run.Repositories[1].Repository)
	assert.Equal(t, application.StageDone, run.Repositories[1].Stage)
	assert.Equal(t, 1, run.Repositories[1].Kinds[model.ActivityCommit].Stored)
}

func TestSyncAll_StopsWhenContextCanceled(t *testing.T) {
	stores := newFakeStores()
	_, err := stores.repos.Add(context.Background(), "octo/a")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc := newTestSyncService(newFakeSource(), stores)
	run, err := svc.SyncAll(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, run.Repositories)
}

func TestAddRepository(t *testing.T) {
	t.Run("invalid name", func(t *testing.T) {
		source := newFakeSource()
		svc := newTestSyncService(source, newFakeStores())

		_, _, err := svc.AddRepository(context.Background(), "not-a-repo")
		require.ErrorIs(t, err, application.ErrInvalidRepoName)
		assert.Empty(t, source.callsOf("exists"), "GitHub must not be queried")
	})

	t.Run("missing on GitHub", func(t *testing.T) {
		source := newFakeSource()
		source.missing["octo/ghost"] = true
		stores := newFakeStores()
		svc := newTestSyncService(source, stores)

		_, _, err := svc.AddRepository(context.Background(), "octo/ghost")
		require.ErrorIs(t, err, application.ErrRemoteRepoNotFound)

		repos, err := stores.repos.ListAll(context.Background())
		require.NoError(t, err)
		assert.Empty(t, repos)
	})

	t.Run("new then existing", func(t *testing.T) {
		source := newFakeSource()
		seedOcto(source)
		stores := newFakeStores()
		svc := newTestSyncService(source, stores)

		report, created, err := svc.AddRepository(context.Background(), "octo/app")
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, application.StageDone, report.Stage)
		assert.Equal(t, 4, report.Kinds[model.ActivityCommit].Stored)

		report, created, err = svc.AddRepository(context.Background(), "octo/app")
		require.NoError(t, err)
		assert.False(t, created)
		assert.Zero(t, report.Kinds[model.ActivityCommit].Stored)
	})
}

func TestValidateRepoName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		valid bool
	}{
		{name: "simple", input: "octo/app", valid: true},
		{name: "dots dashes underscores", input: "my-org/my_repo.go", valid: true},
		{name: "no slash", input: "octo", valid: false},
		{name: "too many parts", input: "octo/app/extra", valid: false},
		{name: "empty owner", input: "/app", valid: false},
		{name: "empty repo", input: "octo/", valid: false},
		{name: "dot segment", input: "octo/..", valid: false},
		{name: "space", input: "octo/my app", valid: false},
		{name: "empty", input: "", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := application.ValidateRepoName(tt.input)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, application.ErrInvalidRepoName)
			}
		})
	}
}
