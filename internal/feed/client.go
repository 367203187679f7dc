package feed

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/pders01/jobfeed/internal/config"
	"github.com/pders01/jobfeed/internal/debuglog"
	"github.com/pders01/jobfeed/internal/model"
)

// Result is the outcome of fetching one source. Exactly one of Items and
// Err is meaningful; a feed with no entries yields empty Items and nil Err.
type Result struct {
	Source model.Source
	Items  []model.RawItem
	Err    *FetchError
}

// Client fetches and parses feeds, retrying transient failures.
type Client struct {
	fetcher    *Fetcher
	parser     *Parser
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

func NewClient(cfg *config.Config) *Client {
	c := &Client{
		fetcher:   NewFetcher(cfg),
		parser:    NewParser(),
		baseDelay: 500 * time.Millisecond,
	}
	c.maxDelay = c.fetcher.Timeout()
	if cfg != nil {
		c.maxRetries = cfg.Feed.Retries
		if cfg.Feed.RetryBaseDelay > 0 {
			c.baseDelay = cfg.Feed.RetryBaseDelay
		}
		if cfg.Feed.RetryMaxDelay > 0 {
			c.maxDelay = cfg.Feed.RetryMaxDelay
		}
	}
	return c
}

// FetchFeed never panics on bad input and always tags failures with a kind.
// No wait between attempts exceeds the client's max delay, so a source can
// hold its batch for at most (retries+1) timeouts plus retries max delays.
func (c *Client) FetchFeed(ctx context.Context, src model.Source) Result {
	items, err := c.fetchOnce(ctx, src)
	for attempt := 1; err != nil && attempt <= c.maxRetries && isRetryable(err); attempt++ {
		delay, ok := c.backoffDelay(attempt, err)
		if !ok {
			debuglog.WithFields(map[string]any{
				"source": src.ID(),
				"delay":  delay,
			}).Warnf("giving up: server asked to wait longer than %s", c.maxDelay)
			break
		}
		debuglog.WithFields(map[string]any{
			"source":  src.ID(),
			"attempt": attempt,
			"delay":   delay,
		}).Warnf("retrying after transient error: %v", err.Cause)

		select {
		case <-ctx.Done():
			return Result{Source: src, Err: classify(src, ctx.Err())}
		case <-time.After(delay):
		}
		items, err = c.fetchOnce(ctx, src)
	}

	if err != nil {
		return Result{Source: src, Err: err}
	}
	return Result{Source: src, Items: items}
}

func (c *Client) fetchOnce(ctx context.Context, src model.Source) ([]model.RawItem, *FetchError) {
	body, err := c.fetcher.Fetch(ctx, src.URL)
	if err != nil {
		return nil, classify(src, err)
	}

	items, err := c.parser.Parse(body)
	if err != nil {
		return nil, &FetchError{Source: src, Kind: KindParse, Cause: err}
	}
	return items, nil
}

func classify(src model.Source, err error) *FetchError {
	kind := KindNetwork

	var httpErr *HTTPError
	var netErr net.Error
	switch {
	case errors.As(err, &httpErr):
		kind = KindHTTP
	case errors.Is(err, context.DeadlineExceeded):
		kind = KindTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		kind = KindTimeout
	}
	return &FetchError{Source: src, Kind: kind, Cause: err}
}

// backoffDelay doubles baseDelay per attempt, capped at maxDelay. A
// Retry-After header wins, but one beyond maxDelay reports false so the
// caller stops retrying instead of stalling its batch.
func (c *Client) backoffDelay(attempt int, err *FetchError) (time.Duration, bool) {
	var httpErr *HTTPError
	if errors.As(err.Cause, &httpErr) && httpErr.RetryAfter > 0 {
		if c.maxDelay > 0 && httpErr.RetryAfter > c.maxDelay {
			return httpErr.RetryAfter, false
		}
		return httpErr.RetryAfter, true
	}

	delay := c.baseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if c.maxDelay > 0 && delay >= c.maxDelay {
			return c.maxDelay, true
		}
	}
	if c.maxDelay > 0 {
		delay = min(delay, c.maxDelay)
	}
	return delay, true
}

// isRetryable reports network failures, timeouts, 429 and 5xx responses.
func isRetryable(err *FetchError) bool {
	if errors.Is(err.Cause, context.Canceled) {
		return false
	}
	switch err.Kind {
	case KindNetwork, KindTimeout:
		return true
	case KindHTTP:
		code := err.StatusCode()
		return code == 429 || code >= 500
	default:
		return false
	}
}
