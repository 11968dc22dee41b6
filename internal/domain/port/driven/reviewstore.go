package driven

import (
	"context"

	"github.com/ericfisherdev/gitpulse/internal/domain/model"
)

// ReviewStore defines the driven port for review persistence. Reviews are
// upserted on (repository, review ID).
type ReviewStore interface {
	ActivityStore

	Upsert(ctx context.Context, review model.Review) error
	Search(ctx context.Context, criteria model.ActivityCriteria) ([]model.Review, error)
}
