package application

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ericfisherdev/gitpulse/internal/domain/model"
)

// AllRepositories selects every tracked repository.
const AllRepositories = "all"

// WindowKind selects how a DateWindow bounds activity dates.
type WindowKind string

const (
	WindowAll      WindowKind = "all"
	WindowLastDays WindowKind = "last_days"
	WindowRange    WindowKind = "range"
)

// DateWindow bounds activity by date. LastDays is a rolling window ending
// now. Range covers Start through End as whole UTC days, both included.
type DateWindow struct {
	Kind  WindowKind
	Days  int
	Start time.Time
	End   time.Time
}

// AllTime returns a window that does not constrain dates.
func AllTime() DateWindow { return DateWindow{Kind: WindowAll} }

// LastDays returns a rolling window covering the last n days.
func LastDays(n int) DateWindow { return DateWindow{Kind: WindowLastDays, Days: n} }

// Between returns a window covering the days start through end.
func Between(start, end time.Time) DateWindow {
	return DateWindow{Kind: WindowRange, Start: start, End: end}
}

// ActivityFilter selects which activity a query returns.
//
// Repository is AllRepositories or an exact "owner/repo"; when it is empty,
// Repositories selects an explicit set. A nil set means all repositories and
// an empty non-nil set selects none. Author,
// when set, overrides Authors; with neither set every author matches.
type ActivityFilter struct {
	Repository   string
	Repositories []string
	Author       string
	Authors      []string
	Window       DateWindow
}

// Querier runs activity queries. ActivityService implements it.
type Querier interface {
	Query(ctx context.Context, filter ActivityFilter) ([]model.ActivityItem, error)
}

// Compile-time interface satisfaction check.
var _ Querier = (*ActivityService)(nil)

// ActivityService merges the four activity kinds into one timeline.
type ActivityService struct {
	stores Stores
	now    func() time.Time
}

// NewActivityService creates an ActivityService reading from stores.
func NewActivityService(stores Stores) *ActivityService {
	return &ActivityService{stores: stores, now: time.Now}
}

// Query returns the activity matching filter, newest first. The four kinds
// are searched concurrently; items with equal dates keep the order commits,
// pull requests, issues, reviews.
func (s *ActivityService) Query(ctx context.Context, filter ActivityFilter) ([]model.ActivityItem, error) {
	since, until, err := s.resolveWindow(filter.Window)
	if err != nil {
		return nil, err
	}

	repoNames, err := s.resolveRepositories(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(repoNames) == 0 {
		return []model.ActivityItem{}, nil
	}

	criteria := model.ActivityCriteria{
		RepositoryIDs: make([]int64, 0, len(repoNames)),
		Authors:       resolveAuthors(filter),
		Since:         since,
		Until:         until,
	}
	for id := range repoNames {
		criteria.RepositoryIDs = append(criteria.RepositoryIDs, id)
	}
	slices.Sort(criteria.RepositoryIDs)

	var (
		commits []model.Commit
		prs     []model.PullRequest
		issues  []model.Issue
		reviews []model.Review
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		commits, err = s.stores.Commits.Search(gctx, criteria)
		return err
	})
	g.Go(func() error {
		var err error
		prs, err = s.stores.PRs.Search(gctx, criteria)
		return err
	})
	g.Go(func() error {
		var err error
		issues, err = s.stores.Issues.Search(gctx, criteria)
		return err
	})
	g.Go(func() error {
		var err error
		reviews, err = s.stores.Reviews.Search(gctx, criteria)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("query activity: %w", err)
	}

	items := make([]model.ActivityItem, 0, len(commits)+len(prs)+len(issues)+len(reviews))
	for _, c := range commits {
		items = append(items, model.ActivityItem{
			Kind: model.ActivityCommit, Title: c.Message, Author: c.Author,
			Date: c.CommittedAt, Repository: repoNames[c.RepositoryID],
		})
	}
	for _, pr := range prs {
		items = append(items, model.ActivityItem{
			Kind: model.ActivityPullRequest, Title: pr.Title, Author: pr.Author,
			Date: pr.CreatedAt, Repository: repoNames[pr.RepositoryID], State: pr.State,
		})
	}
	for _, issue := range issues {
		items = append(items, model.ActivityItem{
			Kind: model.ActivityIssue, Title: issue.Title, Author: issue.Author,
			Date: issue.CreatedAt, Repository: repoNames[issue.RepositoryID],
		})
	}
	for _, r := range reviews {
		items = append(items, model.ActivityItem{
			Kind: model.ActivityReview, Title: r.Comment, Author: r.Author,
			Date: r.CreatedAt, Repository: repoNames[r.RepositoryID],
		})
	}

	slices.SortStableFunc(items, func(a, b model.ActivityItem) int {
		return b.Date.Compare(a.Date)
	})

	return items, nil
}

// resolveRepositories maps the filter's repository selection to tracked
// repository IDs and names. Unknown names select nothing.
func (s *ActivityService) resolveRepositories(ctx context.Context, filter ActivityFilter) (map[int64]string, error) {
	repos, err := s.stores.Repos.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	var wanted map[string]bool
	switch {
	case filter.Repository == AllRepositories:
	case filter.Repository != "":
		wanted = map[string]bool{filter.Repository: true}
	case filter.Repositories != nil:
		wanted = make(map[string]bool, len(filter.Repositories))
		for _, name := range filter.Repositories {
			wanted[name] = true
		}
	}

	selected := make(map[int64]string, len(repos))
	for _, repo := range repos {
		if wanted == nil || wanted[repo.FullName] {
			selected[repo.ID] = repo.FullName
		}
	}

	return selected, nil
}

// resolveAuthors applies the single-author override. Blank names are ignored.
func resolveAuthors(filter ActivityFilter) []string {
	if a := strings.TrimSpace(filter.Author); a != "" {
		return []string{a}
	}

	var authors []string
	for _, a := range filter.Authors {
		if a = strings.TrimSpace(a); a != "" {
			authors = append(authors, a)
		}
	}
	return authors
}

// resolveWindow turns a DateWindow into a half-open [since, until) range.
// Zero values leave that side open.
func (s *ActivityService) resolveWindow(w DateWindow) (since, until time.Time, err error) {
	switch w.Kind {
	case "", WindowAll:
		return time.Time{}, time.Time{}, nil

	case WindowLastDays:
		if w.Days <= 0 {
			return since, until, fmt.Errorf("%w: last days must be positive, got %d", ErrInvalidFilter, w.Days)
		}
		return s.now().UTC().AddDate(0, 0, -w.Days), time.Time{}, nil

	case WindowRange:
		if w.Start.IsZero() || w.End.IsZero() {
			return since, until, fmt.Errorf("%w: range needs both start and end", ErrInvalidFilter)
		}
		start := startOfDay(w.Start)
		end := startOfDay(w.End)
		if end.Before(start) {
			return since, until, fmt.Errorf("%w: range ends before it starts", ErrInvalidFilter)
		}
		return start, end.AddDate(0, 0, 1), nil

	default:
		return since, until, fmt.Errorf("%w: unknown window %q", ErrInvalidFilter, w.Kind)
	}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
