package driven

import (
	"context"
	"time"
)

// ActivityStore is the part of every activity store used for watermarks and
// retention. Dates are the kind's own date field: committed_at for commits,
// created_at for everything else.
type ActivityStore interface {
	// Latest returns the newest stored date for the repository. ok is false
	// when the repository has no rows of this kind.
	Latest(ctx context.Context, repoID int64) (latest time.Time, ok bool, err error)

	// DeleteOlderThan removes rows of the repository dated before cutoff and
	// returns how many were deleted.
	DeleteOlderThan(ctx context.Context, repoID int64, cutoff time.Time) (int64, error)
}
