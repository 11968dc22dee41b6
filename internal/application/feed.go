package application

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ericfisherdev/gitpulse/internal/domain/model"
)

// FeedSnapshot is the state a feed currently exposes. Items are those of the
// last successful refresh; Err is set when a later refresh failed.
type FeedSnapshot struct {
	Items      []model.ActivityItem
	Filter     ActivityFilter
	Err        error
	UpdatedAt  time.Time
	Generation uint64
}

// ActivityFeed holds the live query result of one consumer. Starting a
// refresh cancels the one still running, and a result that arrives after a
// newer refresh started is thrown away.
type ActivityFeed struct {
	query Querier
	now   func() time.Time

	mu       sync.Mutex
	gen      uint64
	cancel   context.CancelFunc
	current  FeedSnapshot
	lastUsed time.Time
}

// NewActivityFeed creates an empty feed backed by query.
func NewActivityFeed(query Querier) *ActivityFeed {
	return &ActivityFeed{query: query, now: time.Now, lastUsed: time.Now()}
}

// Refresh runs filter and, unless superseded meanwhile, makes its result the
// feed's current state. A superseded refresh returns ErrSuperseded. A failed
// refresh keeps the previous items and records the error.
func (f *ActivityFeed) Refresh(ctx context.Context, filter ActivityFilter) ([]model.ActivityItem, error) {
	f.mu.Lock()
	if f.cancel != nil {
		f.cancel()
	}
	f.gen++
	gen := f.gen
	qctx, cancel := context.WithCancel(ctx)
	f.cancel = cancel
	f.lastUsed = f.now()
	f.mu.Unlock()

	defer cancel()

	items, err := f.query.Query(qctx, filter)

	f.mu.Lock()
	defer f.mu.Unlock()

	if gen != f.gen {
		return nil, ErrSuperseded
	}
	f.cancel = nil

	if err != nil {
		f.current.Err = err
		return nil, err
	}

	f.current = FeedSnapshot{
		Items:      items,
		Filter:     filter,
		UpdatedAt:  f.now(),
		Generation: gen,
	}

	return items, nil
}

// Snapshot returns the state currently exposed by the feed.
func (f *ActivityFeed) Snapshot() FeedSnapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

// Close cancels any refresh still running.
func (f *ActivityFeed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
	f.gen++
}

// touch marks the feed as used now.
func (f *ActivityFeed) touch() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastUsed = f.now()
}

func (f *ActivityFeed) idleSince() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastUsed
}

// FeedRegistry keeps one ActivityFeed per view. Views unused for longer than
// the idle timeout are closed and forgotten.
type FeedRegistry struct {
	query Querier
	idle  time.Duration
	now   func() time.Time

	mu    sync.Mutex
	feeds map[string]*ActivityFeed
}

// NewFeedRegistry creates a registry whose feeds run queries through query.
func NewFeedRegistry(query Querier, idle time.Duration) *FeedRegistry {
	return &FeedRegistry{
		query: query,
		idle:  idle,
		now:   time.Now,
		feeds: make(map[string]*ActivityFeed),
	}
}

// NewView registers a fresh view and returns its ID.
func (r *FeedRegistry) NewView() string {
	id := uuid.NewString()
	r.Feed(id)
	return id
}

// Feed returns the feed of view id, creating it on first use.
func (r *FeedRegistry) Feed(id string) *ActivityFeed {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.evictIdleLocked()

	feed, ok := r.feeds[id]
	if !ok {
		feed = NewActivityFeed(r.query)
		feed.now = r.now
		feed.lastUsed = r.now()
		r.feeds[id] = feed
	}

	return feed
}

// Lookup returns the feed of view id if it exists. A found view counts as
// used, so views that are only read stay alive.
func (r *FeedRegistry) Lookup(id string) (*ActivityFeed, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.evictIdleLocked()

	feed, ok := r.feeds[id]
	if ok {
		feed.touch()
	}
	return feed, ok
}

// Len returns the number of live views.
func (r *FeedRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.feeds)
}

func (r *FeedRegistry) evictIdleLocked() {
	if r.idle <= 0 {
		return
	}

	cutoff := r.now().Add(-r.idle)
	for id, feed := range r.feeds {
		if feed.idleSince().Before(cutoff) {
			feed.Close()
			delete(r.feeds, id)
		}
	}
}
