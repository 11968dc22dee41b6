package driven

import (
	"context"
	"time"

	"github.com/ericfisherdev/gitpulse/internal/domain/model"
)

// ActivitySource defines the driven port for reading repository activity from
// GitHub. Returned entities carry no RepositoryID; the caller assigns it.
//
// List methods page through the full result set. A rate-limit response is
// waited out and the page retried. Any other failure ends the listing early
// and the items gathered so far are returned without an error, so callers
// must tolerate partial results. Only context cancellation is reported.
type ActivitySource interface {
	ListBranches(ctx context.Context, repoFullName string) ([]string, error)
	ListCommits(ctx context.Context, repoFullName, branch string, since time.Time) ([]model.Commit, error)
	// ListPullRequests accepts "open", "closed" or "all" as state.
	ListPullRequests(ctx context.Context, repoFullName, state string, since time.Time) ([]model.PullRequest, error)
	// ListIssues excludes issues that are pull requests.
	ListIssues(ctx context.Context, repoFullName string, since time.Time) ([]model.Issue, error)
	ListReviews(ctx context.Context, repoFullName string, prNumber int, since time.Time) ([]model.Review, error)

	// RepositoryExists reports whether the repository is visible to the token.
	RepositoryExists(ctx context.Context, repoFullName string) (bool, error)

	// WaitForQuota blocks until the core rate limit has at least threshold
	// requests remaining.
	WaitForQuota(ctx context.Context, threshold int) error
}
