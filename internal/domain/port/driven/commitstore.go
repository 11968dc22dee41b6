package driven

import (
	"context"

	"github.com/ericfisherdev/gitpulse/internal/domain/model"
)

// CommitStore defines the driven port for commit persistence. Commits are
// insert-only and unique on their CommitKey within a repository.
type CommitStore interface {
	ActivityStore

	// InsertBatch inserts all commits in a single transaction and returns the
	// number of new rows. Rows colliding with an existing key are skipped.
	InsertBatch(ctx context.Context, commits []model.Commit) (int, error)
	// Insert inserts one commit. It reports false when the key already existed.
	Insert(ctx context.Context, c model.Commit) (bool, error)
	// Keys returns the deduplication keys already stored for the repository.
	Keys(ctx context.Context, repoID int64) (map[model.CommitKey]struct{}, error)
	Search(ctx context.Context, criteria model.ActivityCriteria) ([]model.Commit, error)
}
