package application

import (
	"context"
	"fmt"
	"time"

	"github.com/ericfisherdev/gitpulse/internal/domain/model"
	"github.com/ericfisherdev/gitpulse/internal/domain/port/driven"
)

// DefaultRetention is how far back activity is kept and, for a kind with no
// stored rows, how far back the first fetch reaches.
const DefaultRetention = 30 * 24 * time.Hour

// prune deletes every activity row of the repository dated before horizon and
// returns the per-kind deletion counts.
func prune(ctx context.Context, stores map[model.ActivityKind]driven.ActivityStore, repoID int64, horizon time.Time) (map[model.ActivityKind]int64, error) {
	deleted := make(map[model.ActivityKind]int64, len(stores))

	for _, kind := range model.ActivityKinds {
		n, err := stores[kind].DeleteOlderThan(ctx, repoID, horizon)
		if err != nil {
			return deleted, fmt.Errorf("prune %s: %w", kind, err)
		}
		deleted[kind] = n
	}

	return deleted, nil
}

// watermark returns the newest stored date of one kind for the repository,
// or floor when nothing of that kind is stored.
func watermark(ctx context.Context, store driven.ActivityStore, repoID int64, floor time.Time) (time.Time, error) {
	latest, ok, err := store.Latest(ctx, repoID)
	if err != nil {
		return time.Time{}, err
	}
	if !ok {
		return floor, nil
	}
	return latest, nil
}

// watermarks resolves the lower fetch bound of every kind.
func watermarks(ctx context.Context, stores map[model.ActivityKind]driven.ActivityStore, repoID int64, floor time.Time) (map[model.ActivityKind]time.Time, error) {
	marks := make(map[model.ActivityKind]time.Time, len(stores))

	for _, kind := range model.ActivityKinds {
		mark, err := watermark(ctx, stores[kind], repoID, floor)
		if err != nil {
			return marks, fmt.Errorf("watermark %s: %w", kind, err)
		}
		marks[kind] = mark
	}

	return marks, nil
}
