package application

import (
	"github.com/ericfisherdev/gitpulse/internal/domain/model"
	"github.com/ericfisherdev/gitpulse/internal/domain/port/driven"
)

// Stores bundles the persistence ports shared by the sync and query services.
type Stores struct {
	Repos   driven.RepoStore
	Commits driven.CommitStore
	PRs     driven.PRStore
	Issues  driven.IssueStore
	Reviews driven.ReviewStore
}

// byKind returns the watermark/retention view of each activity store.
func (s Stores) byKind() map[model.ActivityKind]driven.ActivityStore {
	return map[model.ActivityKind]driven.ActivityStore{
		model.ActivityCommit:      s.Commits,
		model.ActivityPullRequest: s.PRs,
		model.ActivityIssue:       s.Issues,
		model.ActivityReview:      s.Reviews,
	}
}
