package application_test

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/ericfisherdev/gitpulse/internal/application"
	"github.com/ericfisherdev/gitpulse/internal/domain/model"
	"github.com/ericfisherdev/gitpulse/internal/domain/port/driven"
)

// --- In-memory store fakes ---

type fakeRepoStore struct {
	mu     sync.Mutex
	repos  []model.Repository
	nextID int64
}

func (s *fakeRepoStore) Add(_ context.Context, fullName string) (*model.Repository, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.repos {
		if r.FullName == fullName {
			return nil, fmt.Errorf("add repository %s: %w", fullName, driven.ErrRepoAlreadyExists)
		}
	}
	s.nextID++
	repo := model.Repository{ID: s.nextID, FullName: fullName}
	s.repos = append(s.repos, repo)
	return &repo, nil
}

func (s *fakeRepoStore) FindOrCreate(ctx context.Context, fullName string) (*model.Repository, error) {
	if repo, _ := s.GetByFullName(ctx, fullName); repo != nil {
		return repo, nil
	}
	return s.Add(ctx, fullName)
}

func (s *fakeRepoStore) Remove(_ context.Context, fullName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, r := range s.repos {
		if r.FullName == fullName {
			s.repos = append(s.repos[:i], s.repos[i+1:]...)
			return nil
		}
	}
	return driven.ErrRepoNotFound
}

func (s *fakeRepoStore) GetByFullName(_ context.Context, fullName string) (*model.Repository, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.repos {
		if r.FullName == fullName {
			repo := r
			return &repo, nil
		}
	}
	return nil, nil
}

func (s *fakeRepoStore) ListAll(_ context.Context) ([]model.Repository, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := slices.Clone(s.repos)
	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	return out, nil
}

// fakeActivityStore is a generic in-memory table keyed by a natural key.
type fakeActivityStore[T any] struct {
	mu        sync.Mutex
	rows      []T
	key       func(T) string
	repo      func(T) int64
	date      func(T) time.Time
	author    func(T) string
	searchErr error
}

// put inserts row, or replaces the row with the same key. It reports whether
// the row was new.
func (s *fakeActivityStore[T]) put(row T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := s.key(row)
	for i, existing := range s.rows {
		if s.key(existing) == k {
			s.rows[i] = row
			return false
		}
	}
	s.rows = append(s.rows, row)
	return true
}

func (s *fakeActivityStore[T]) all() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.rows)
}

func (s *fakeActivityStore[T]) Latest(_ context.Context, repoID int64) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var latest time.Time
	var ok bool
	for _, row := range s.rows {
		if s.repo(row) == repoID && (!ok || s.date(row).After(latest)) {
			latest, ok = s.date(row), true
		}
	}
	return latest, ok, nil
}

func (s *fakeActivityStore[T]) DeleteOlderThan(_ context.Context, repoID int64, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var kept []T
	var deleted int64
	for _, row := range s.rows {
		if s.repo(row) == repoID && s.date(row).Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, row)
	}
	s.rows = kept
	return deleted, nil
}

func (s *fakeActivityStore[T]) search(criteria model.ActivityCriteria) ([]T, error) {
	if s.searchErr != nil {
		return nil, s.searchErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var out []T
	for _, row := range s.rows {
		if !slices.Contains(criteria.RepositoryIDs, s.repo(row)) {
			continue
		}
		if len(criteria.Authors) > 0 && !slices.Contains(criteria.Authors, s.author(row)) {
			continue
		}
		d := s.date(row)
		if !criteria.Since.IsZero() && d.Before(criteria.Since) {
			continue
		}
		if !criteria.Until.IsZero() && !d.Before(criteria.Until) {
			continue
		}
		out = append(out, row)
	}
	sort.SliceStable(out, func(i, j int) bool { return s.date(out[i]).After(s.date(out[j])) })
	return out, nil
}

type fakeCommitStore struct {
	*fakeActivityStore[model.Commit]
	failBatch   bool
	batchCalls  int
	insertCalls int
}

func commitKey(c model.Commit) string {
	k := c.Key()
	return fmt.Sprintf("%d|%s|%s|%s|%s", c.RepositoryID, k.Message, k.Author, k.CommittedAt.Format(time.RFC3339), k.Branch)
}

func (s *fakeCommitStore) InsertBatch(_ context.Context, commits []model.Commit) (int, error) {
	s.batchCalls++
	if s.failBatch {
		return 0, errors.New("database is locked")
	}

	var n int
	for _, c := range commits {
		if s.put(c) {
			n++
		}
	}
	return n, nil
}

func (s *fakeCommitStore) Insert(_ context.Context, c model.Commit) (bool, error) {
	s.insertCalls++
	return s.put(c), nil
}

func (s *fakeCommitStore) Keys(_ context.Context, repoID int64) (map[model.CommitKey]struct{}, error) {
	keys := make(map[model.CommitKey]struct{})
	for _, c := range s.all() {
		if c.RepositoryID == repoID {
			keys[c.Key()] = struct{}{}
		}
	}
	return keys, nil
}

func (s *fakeCommitStore) Search(_ context.Context, criteria model.ActivityCriteria) ([]model.Commit, error) {
	return s.search(criteria)
}

type fakePRStore struct {
	*fakeActivityStore[model.PullRequest]
}

func (s fakePRStore) Upsert(_ context.Context, pr model.PullRequest) error {
	s.put(pr)
	return nil
}

func (s fakePRStore) Search(_ context.Context, criteria model.ActivityCriteria) ([]model.PullRequest, error) {
	return s.search(criteria)
}

type fakeIssueStore struct {
	*fakeActivityStore[model.Issue]
}

func (s fakeIssueStore) Upsert(_ context.Context, issue model.Issue) error {
	s.put(issue)
	return nil
}

func (s fakeIssueStore) Search(_ context.Context, criteria model.ActivityCriteria) ([]model.Issue, error) {
	return s.search(criteria)
}

type fakeReviewStore struct {
	*fakeActivityStore[model.Review]
}

func (s fakeReviewStore) Upsert(_ context.Context, review model.Review) error {
	s.put(review)
	return nil
}

func (s fakeReviewStore) Search(_ context.Context, criteria model.ActivityCriteria) ([]model.Review, error) {
	return s.search(criteria)
}

// fakeStores holds the concrete fakes behind an application.Stores.
type fakeStores struct {
	repos   *fakeRepoStore
	commits *fakeCommitStore
	prs     fakePRStore
	issues  fakeIssueStore
	reviews fakeReviewStore
}

func newFakeStores() *fakeStores {
	return &fakeStores{
		repos: &fakeRepoStore{},
		commits: &fakeCommitStore{fakeActivityStore: &fakeActivityStore[model.Commit]{
			key:    commitKey,
			repo:   func(c model.Commit) int64 { return c.RepositoryID },
			date:   func(c model.Commit) time.Time { return c.CommittedAt },
			author: func(c model.Commit) string { return c.Author },
		}},
		prs: fakePRStore{&fakeActivityStore[model.PullRequest]{
			key:    func(pr model.PullRequest) string { return fmt.Sprintf("%d#%d", pr.RepositoryID, pr.Number) },
			repo:   func(pr model.PullRequest) int64 { return pr.RepositoryID },
			date:   func(pr model.PullRequest) time.Time { return pr.CreatedAt },
			author: func(pr model.PullRequest) string { return pr.Author },
		}},
		issues: fakeIssueStore{&fakeActivityStore[model.Issue]{
			key:    func(i model.Issue) string { return fmt.Sprintf("%d#%d", i.RepositoryID, i.Number) },
			repo:   func(i model.Issue) int64 { return i.RepositoryID },
			date:   func(i model.Issue) time.Time { return i.CreatedAt },
			author: func(i model.Issue) string { return i.Author },
		}},
		reviews: fakeReviewStore{&fakeActivityStore[model.Review]{
			key:    func(r model.Review) string { return fmt.Sprintf("%d/%d", r.RepositoryID, r.ReviewID) },
			repo:   func(r model.Review) int64 { return r.RepositoryID },
			date:   func(r model.Review) time.Time { return r.CreatedAt },
			author: func(r model.Review) string { return r.Author },
		}},
	}
}

func (f *fakeStores) stores() application.Stores {
	return application.Stores{
		Repos:   f.repos,
		Commits: f.commits,
		PRs:     f.prs,
		Issues:  f.issues,
		Reviews: f.reviews,
	}
}

// --- ActivitySource fake ---

type listCall struct {
	Kind   string
	Branch string
	State  string
	PR     int
	Since  time.Time
}

// fakeSource serves canned activity per repository and records every call.
type fakeSource struct {
	mu          sync.Mutex
	branches    map[string][]string
	commits     map[string]map[string][]model.Commit
	prs         map[string][]model.PullRequest
	issues      map[string][]model.Issue
	reviews     map[string]map[int][]model.Review
	missing     map[string]bool
	branchErr   map[string]error
	calls       []listCall
	quotaChecks int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		branches:  map[string][]string{},
		commits:   map[string]map[string][]model.Commit{},
		prs:       map[string][]model.PullRequest{},
		issues:    map[string][]model.Issue{},
		reviews:   map[string]map[int][]model.Review{},
		missing:   map[string]bool{},
		branchErr: map[string]error{},
	}
}

func (f *fakeSource) record(c listCall) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
}

func (f *fakeSource) callsOf(kind string) []listCall {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []listCall
	for _, c := range f.calls {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeSource) ListBranches(_ context.Context, repo string) ([]string, error) {
	f.record(listCall{Kind: "branches"})
	if err := f.branchErr[repo]; err != nil {
		return nil, err
	}
	return f.branches[repo], nil
}

func (f *fakeSource) ListCommits(_ context.Context, repo, branch string, since time.Time) ([]model.Commit, error) {
	f.record(listCall{Kind: "commits", Branch: branch, Since: since})
	return slices.Clone(f.commits[repo][branch]), nil
}

func (f *fakeSource) ListPullRequests(_ context.Context, repo, state string, since time.Time) ([]model.PullRequest, error) {
	f.record(listCall{Kind: "pulls", State: state, Since: since})

	var out []model.PullRequest
	for _, pr := range f.prs[repo] {
		if state == "all" || string(pr.State) == state {
			out = append(out, pr)
		}
	}
	return out, nil
}

func (f *fakeSource) ListIssues(_ context.Context, repo string, since time.Time) ([]model.Issue, error) {
	f.record(listCall{Kind: "issues", Since: since})
	return slices.Clone(f.issues[repo]), nil
}

func (f *fakeSource) ListReviews(_ context.Context, repo string, prNumber int, since time.Time) ([]model.Review, error) {
	f.record(listCall{Kind: "reviews", PR: prNumber, Since: since})
	return slices.Clone(f.reviews[repo][prNumber]), nil
}

func (f *fakeSource) RepositoryExists(_ context.Context, repo string) (bool, error) {
	f.record(listCall{Kind: "exists"})
	return !f.missing[repo], nil
}

func (f *fakeSource) WaitForQuota(_ context.Context, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.quotaChecks++
	return nil
}
