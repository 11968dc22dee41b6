package github

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	gh "github.com/google/go-github/v82/github"
)

// perPage is the page size requested from every list endpoint. A page holding
// fewer items is the last one.
const perPage = 100

// fetchPaged walks path page by page and decodes every item into T.
//
// A rate-limited page is waited out and requested again, with no cap on the
// number of attempts. Any other failure stops the walk; the failure is logged
// and the items gathered so far are returned with a nil error. The only error
// returned is the context's.
func fetchPaged[T any](ctx context.Context, c *Client, path string, params url.Values) ([]T, error) {
	var all []T

	page := 1
	for {
		q := url.Values{}
		for k, vs := range params {
			q[k] = append([]string(nil), vs...)
		}
		q.Set("page", strconv.Itoa(page))
		q.Set("per_page", strconv.Itoa(perPage))

		req, err := c.gh.NewRequest(http.MethodGet, path+"?"+q.Encode(), nil)
		if err != nil {
			slog.Warn("paged fetch aborted", "path", path, "page", page, "error", err)
			return all, nil
		}

		if err := c.pace(ctx); err != nil {
			return all, err
		}

		var items []T
		resp, err := c.gh.Do(bypassRateLimitCheck(ctx), req, &items)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return all, ctxErr
		}

		if err != nil {
			if isRateLimited(resp) {
				wait := c.rateLimitWait(resp)
				slog.Warn("rate limit reached, waiting",
					"path", path,
					"page", page,
					"wait", wait.Round(time.Second),
				)
				if err := c.sleep(ctx, wait); err != nil {
					return all, err
				}
				continue
			}

			status := 0
			if resp != nil {
				status = resp.StatusCode
			}
			slog.Warn("paged fetch aborted",
				"path", path,
				"page", page,
				"status", status,
				"kept", len(all),
				"error", err,
			)
			return all, nil
		}

		logRateLimit(resp, path, page, len(items))

		all = append(all, items...)
		if len(items) < perPage {
			return all, nil
		}
		page++
	}
}

// isRateLimited reports whether resp is a rate-limit rejection. A 403 that
// still shows remaining quota and carries no Retry-After is a permission
// failure, not a rate limit.
func isRateLimited(resp *gh.Response) bool {
	if resp == nil {
		return false
	}

	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		return true
	case http.StatusForbidden:
		if resp.Header.Get("Retry-After") != "" {
			return true
		}
		remaining := resp.Header.Get("X-RateLimit-Remaining")
		return remaining == "" || remaining == "0"
	default:
		return false
	}
}
