package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/gitpulse/internal/domain/model"
	"github.com/ericfisherdev/gitpulse/internal/domain/port/driven"
)

func TestRepoRepo_Add(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepoRepo(db)
	repo.now = func() time.Time { return time.Date(2026, 1, 15, 10, 0, 0, 500, time.UTC) }
	ctx := context.Background()

	added, err := repo.Add(ctx, "octocat/hello-world")
	require.NoError(t, err)
	assert.NotZero(t, added.ID)

	got, err := repo.GetByFullName(ctx, "octocat/hello-world")
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, added.ID, got.ID)
	assert.Equal(t, "octocat/hello-world", got.FullName)
	assert.Equal(t, time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC), got.AddedAt)
}

func TestRepoRepo_Add_Duplicate(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepoRepo(db)
	ctx := context.Background()

	_, err := repo.Add(ctx, "octocat/hello-world")
	require.NoError(t, err)

	_, err = repo.Add(ctx, "octocat/hello-world")
	assert.ErrorIs(t, err, driven.ErrRepoAlreadyExists)
}

func TestRepoRepo_FindOrCreate(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepoRepo(db)
	ctx := context.Background()

	first, err := repo.FindOrCreate(ctx, "octocat/hello-world")
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := repo.FindOrCreate(ctx, "octocat/hello-world")
	require.NoError(t, err)
	require.NotNil(t, second)

	assert.Equal(t, first.ID, second.ID, "second call must reuse the existing row")

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestRepoRepo_Remove_CascadesActivity(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepoRepo(db)
	commits := NewCommitRepo(db)
	ctx := context.Background()

	r := seedRepo(t, db, "octocat/hello-world")
	_, err := commits.InsertBatch(ctx, []model.Commit{
		{RepositoryID: r.ID, Branch: "main", Message: "init", Author: "alice", CommittedAt: day(time.March, 1)},
	})
	require.NoError(t, err)

	require.NoError(t, repo.Remove(ctx, "octocat/hello-world"))

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	_, ok, err := commits.Latest(ctx, r.ID)
	require.NoError(t, err)
	assert.False(t, ok, "commits should be removed with their repository")
}

func TestRepoRepo_Remove_NotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepoRepo(db)

	err := repo.Remove(context.Background(), "nonexistent/repo")
	assert.ErrorIs(t, err, driven.ErrRepoNotFound)
}

func TestRepoRepo_ListAll(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepoRepo(db)
	ctx := context.Background()

	for _, name := range []string{"charlie/zeta", "alice/alpha", "bob/beta"} {
		_, err := repo.Add(ctx, name)
		require.NoError(t, err)
	}

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)

	// Ordered by full_name
	assert.Equal(t, "alice/alpha", all[0].FullName)
	assert.Equal(t, "bob/beta", all[1].FullName)
	assert.Equal(t, "charlie/zeta", all[2].FullName)
}

func TestRepoRepo_GetByFullName_NotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepoRepo(db)

	got, err := repo.GetByFullName(context.Background(), "nonexistent/repo")
	require.NoError(t, err)
	assert.Nil(t, got, "non-existent repo should return nil without error")
}

func TestParseTime_StoredLayoutRoundTrip(t *testing.T) {
	in := time.Date(2026, 2, 3, 4, 5, 6, 789, time.FixedZone("CET", 3600))

	got, err := parseTime(formatTime(in))
	require.NoError(t, err)

	assert.Equal(t, time.Date(2026, 2, 3, 3, 5, 6, 0, time.UTC), got)
}
