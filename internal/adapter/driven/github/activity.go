package github

import (
	"context"
	"net/url"
	"strconv"
	"time"

	gh "github.com/google/go-github/v82/github"

	"github.com/ericfisherdev/gitpulse/internal/domain/model"
)

// sinceLayout is the ISO 8601 form GitHub expects in "since" parameters.
const sinceLayout = "2006-01-02T15:04:05Z"

// ListBranches returns the names of every branch in the repository.
func (c *Client) ListBranches(ctx context.Context, repoFullName string) ([]string, error) {
	base, err := repoPath(repoFullName)
	if err != nil {
		return nil, err
	}

	branches, err := fetchPaged[gh.Branch](ctx, c, base+"/branches", nil)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(branches))
	for _, b := range branches {
		names = append(names, b.GetName())
	}

	return names, nil
}

// ListCommits returns commits reachable from branch, committed at or after
// since according to GitHub. Author and date come from the git author.
func (c *Client) ListCommits(ctx context.Context, repoFullName, branch string, since time.Time) ([]model.Commit, error) {
	base, err := repoPath(repoFullName)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("sha", branch)
	setSince(params, since)

	commits, err := fetchPaged[gh.RepositoryCommit](ctx, c, base+"/commits", params)
	if err != nil {
		return nil, err
	}

	out := make([]model.Commit, 0, len(commits))
	for i := range commits {
		out = append(out, mapCommit(&commits[i], branch))
	}

	return out, nil
}

// ListPullRequests returns pull requests in the given state ("open", "closed"
// or "all"), most recently updated first. GitHub does not filter pulls by
// since; callers compare UpdatedAt themselves.
func (c *Client) ListPullRequests(ctx context.Context, repoFullName, state string, since time.Time) ([]model.PullRequest, error) {
	base, err := repoPath(repoFullName)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("state", state)
	params.Set("sort", "updated")
	params.Set("direction", "desc")
	setSince(params, since)

	prs, err := fetchPaged[gh.PullRequest](ctx, c, base+"/pulls", params)
	if err != nil {
		return nil, err
	}

	out := make([]model.PullRequest, 0, len(prs))
	for i := range prs {
		out = append(out, mapPullRequest(&prs[i]))
	}

	return out, nil
}

// ListIssues returns issues updated since the given time, leaving out the
// pull requests GitHub also reports through the issues endpoint.
func (c *Client) ListIssues(ctx context.Context, repoFullName string, since time.Time) ([]model.Issue, error) {
	base, err := repoPath(repoFullName)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	setSince(params, since)

	issues, err := fetchPaged[gh.Issue](ctx, c, base+"/issues", params)
	if err != nil {
		return nil, err
	}

	out := make([]model.Issue, 0, len(issues))
	for i := range issues {
		if issues[i].IsPullRequest() {
			continue
		}
		out = append(out, mapIssue(&issues[i]))
	}

	return out, nil
}

// ListReviews returns the reviews submitted on one pull request.
func (c *Client) ListReviews(ctx context.Context, repoFullName string, prNumber int, since time.Time) ([]model.Review, error) {
	base, err := repoPath(repoFullName)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	setSince(params, since)

	reviews, err := fetchPaged[gh.PullRequestReview](ctx, c, base+"/pulls/"+strconv.Itoa(prNumber)+"/reviews", params)
	if err != nil {
		return nil, err
	}

	out := make([]model.Review, 0, len(reviews))
	for i := range reviews {
		out = append(out, mapReview(&reviews[i], prNumber))
	}

	return out, nil
}

func setSince(params url.Values, since time.Time) {
	if since.IsZero() {
		return
	}
	params.Set("since", since.UTC().Format(sinceLayout))
}

// mapCommit converts a go-github RepositoryCommit seen on branch to a domain Commit.
func mapCommit(rc *gh.RepositoryCommit, branch string) model.Commit {
	author := rc.GetCommit().GetAuthor()

	return model.Commit{
		Branch:      branch,
		Message:     rc.GetCommit().GetMessage(),
		Author:      author.GetName(),
		CommittedAt: normalize(author.GetDate().Time),
	}
}

// mapPullRequest converts a go-github PullRequest to a domain PullRequest.
// It uses GetXxx() helper methods exclusively to avoid nil pointer panics.
func mapPullRequest(pr *gh.PullRequest) model.PullRequest {
	state := model.PRStateOpen
	if pr.GetState() == "closed" {
		state = model.PRStateClosed
	}

	return model.PullRequest{
		Number:    pr.GetNumber(),
		Title:     pr.GetTitle(),
		Author:    pr.GetUser().GetLogin(),
		State:     state,
		CreatedAt: normalize(pr.GetCreatedAt().Time),
		UpdatedAt: normalize(pr.GetUpdatedAt().Time),
	}
}

func mapIssue(issue *gh.Issue) model.Issue {
	return model.Issue{
		Number:    issue.GetNumber(),
		Title:     issue.GetTitle(),
		Author:    issue.GetUser().GetLogin(),
		CreatedAt: normalize(issue.GetCreatedAt().Time),
	}
}

// mapReview converts a go-github PullRequestReview to a domain Review. The
// submission time is the review's date; pending reviews have none.
func mapReview(r *gh.PullRequestReview, prNumber int) model.Review {
	comment := r.GetBody()
	if comment == "" {
		comment = model.DefaultReviewComment
	}

	return model.Review{
		ReviewID:  r.GetID(),
		PRNumber:  prNumber,
		Comment:   comment,
		Author:    r.GetUser().GetLogin(),
		CreatedAt: normalize(r.GetSubmittedAt().Time),
	}
}

// normalize drops sub-second precision and the zone so values compare equal
// to what the store gives back.
func normalize(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC().Truncate(time.Second)
}
