// Package github implements the ActivitySource port on the GitHub REST API
// using the go-github library.
package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"
	gh "github.com/google/go-github/v82/github"
	"github.com/gregjones/httpcache"
	"golang.org/x/time/rate"

	"github.com/ericfisherdev/gitpulse/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ActivitySource = (*Client)(nil)

// Client implements the driven.ActivitySource port.
type Client struct {
	gh      *gh.Client
	limiter *rate.Limiter // nil when requests are not paced

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewClient creates a GitHub client with the following transport stack:
//  1. httpcache (ETag-based conditional request caching)
//  2. go-github-ratelimit (secondary rate limit middleware)
//  3. go-github (REST client with token auth)
//
// baseURL selects a GitHub Enterprise API root when non-empty.
// requestsPerSecond paces outgoing requests; zero or less disables pacing.
func NewClient(token, baseURL string, requestsPerSecond float64) (*Client, error) {
	cacheTransport := httpcache.NewMemoryCacheTransport()
	rateLimitClient := github_ratelimit.NewClient(cacheTransport)
	client := gh.NewClient(rateLimitClient).WithAuthToken(token)

	if baseURL != "" {
		var err error
		client, err = client.WithEnterpriseURLs(baseURL, baseURL)
		if err != nil {
			return nil, fmt.Errorf("configure enterprise URL %q: %w", baseURL, err)
		}
	}

	c := newClient(client)
	if requestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
	}

	return c, nil
}

// NewClientWithHTTPClient creates a Client with a custom http.Client and base URL.
// This constructor is intended for testing, allowing injection of an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL, token string) (*Client, error) {
	client := gh.NewClient(httpClient)
	if token != "" {
		client = client.WithAuthToken(token)
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	client.BaseURL = u

	return newClient(client), nil
}

func newClient(client *gh.Client) *Client {
	return &Client{
		gh:    client,
		now:   time.Now,
		sleep: sleepContext,
	}
}

// RepositoryExists reports whether repoFullName resolves on GitHub. A 404
// yields false without an error.
func (c *Client) RepositoryExists(ctx context.Context, repoFullName string) (bool, error) {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return false, err
	}

	if err := c.pace(ctx); err != nil {
		return false, err
	}

	_, resp, err := c.gh.Repositories.Get(bypassRateLimitCheck(ctx), owner, repo)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return false, nil
		}
		return false, fmt.Errorf("get repository %s: %w", repoFullName, err)
	}

	logRateLimit(resp, repoFullName, 0, 1)

	return true, nil
}

// pace blocks until the request limiter admits one more request.
func (c *Client) pace(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

// bypassRateLimitCheck stops go-github from failing requests locally after it
// has seen an exhausted quota; waiting out the reset is done by the caller.
func bypassRateLimitCheck(ctx context.Context) context.Context {
	return context.WithValue(ctx, gh.BypassRateLimitCheck, true)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// splitRepo splits a "owner/repo" string into its two components.
func splitRepo(fullName string) (string, string, error) {
	parts := strings.SplitN(fullName, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repo name %q: expected owner/repo", fullName)
	}
	return parts[0], parts[1], nil
}

// repoPath returns the escaped "repos/{owner}/{repo}" API path.
func repoPath(repoFullName string) (string, error) {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return "", err
	}
	return "repos/" + url.PathEscape(owner) + "/" + url.PathEscape(repo), nil
}
