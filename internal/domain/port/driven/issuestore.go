package driven

import (
	"context"

	"github.com/ericfisherdev/gitpulse/internal/domain/model"
)

// IssueStore defines the driven port for issue persistence.
type IssueStore interface {
	ActivityStore

	Upsert(ctx context.Context, issue model.Issue) error
	Search(ctx context.Context, criteria model.ActivityCriteria) ([]model.Issue, error)
}
