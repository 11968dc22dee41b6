package driven

import (
	"context"

	"github.com/ericfisherdev/gitpulse/internal/domain/model"
)

// PRStore defines the driven port for pull request persistence. Pull requests
// are upserted on (repository, number).
type PRStore interface {
	ActivityStore

	Upsert(ctx context.Context, pr model.PullRequest) error
	Search(ctx context.Context, criteria model.ActivityCriteria) ([]model.PullRequest, error)
}
