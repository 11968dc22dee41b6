package github

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	gh "github.com/google/go-github/v82/github"
)

// resetBuffer is added to every computed rate-limit wait so the retry lands
// after GitHub has actually reset the window.
const resetBuffer = time.Second

// rateLimitWait returns how long to sleep after a rate-limited response:
// Retry-After when present, otherwise until X-RateLimit-Reset. Both get
// resetBuffer added. Without either header only the buffer is waited.
func (c *Client) rateLimitWait(resp *gh.Response) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
			return time.Duration(secs)*time.Second + resetBuffer
		}
	}

	return c.untilReset(resp.Rate.Reset.Time)
}

func (c *Client) untilReset(reset time.Time) time.Duration {
	if reset.IsZero() {
		return resetBuffer
	}
	return max(reset.Sub(c.now()), 0) + resetBuffer
}

// WaitForQuota checks the core rate limit and, when fewer than threshold
// requests remain, sleeps until the window resets. A failed check is logged
// and treated as enough quota.
func (c *Client) WaitForQuota(ctx context.Context, threshold int) error {
	if err := c.pace(ctx); err != nil {
		return err
	}

	limits, _, err := c.gh.RateLimit.Get(bypassRateLimitCheck(ctx))
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		slog.Warn("rate limit check failed", "error", err)
		return nil
	}

	core := limits.GetCore()
	if core == nil || core.Remaining >= threshold {
		return nil
	}

	wait := c.untilReset(core.Reset.Time)
	slog.Warn("rate limit low, waiting",
		"remaining", core.Remaining,
		"threshold", threshold,
		"wait", wait.Round(time.Second),
	)

	return c.sleep(ctx, wait)
}

// logRateLimit logs the GitHub API rate limit status after each call.
func logRateLimit(resp *gh.Response, endpoint string, page, count int) {
	if resp == nil {
		return
	}

	slog.Debug("github api call",
		"endpoint", endpoint,
		"page", page,
		"count", count,
		"rate_remaining", resp.Rate.Remaining,
		"rate_limit", resp.Rate.Limit,
	)

	if resp.Rate.Limit > 0 && resp.Rate.Remaining < 100 {
		slog.Warn("github rate limit low",
			"remaining", resp.Rate.Remaining,
			"reset_in", time.Until(resp.Rate.Reset.Time).Round(time.Second),
		)
	}
}
