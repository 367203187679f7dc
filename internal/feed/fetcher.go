package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/pders01/jobfeed/internal/config"
)

const (
	defaultUserAgent = "jobfeed/1.0 (https://github.com/pders01/jobfeed)"
	defaultTimeout   = 10 * time.Second
	maxBodySize      = 10 << 20
	acceptHeader     = "application/rss+xml, application/atom+xml, application/json, application/xml, text/xml"
)

type Fetcher struct {
	client    *http.Client
	userAgent string
	timeout   time.Duration
	limiter   *HostLimiter
}

func NewFetcher(cfg *config.Config) *Fetcher {
	f := &Fetcher{
		client:    &http.Client{},
		userAgent: defaultUserAgent,
		timeout:   defaultTimeout,
		limiter:   NewHostLimiter(0, 1),
	}
	if cfg != nil {
		if cfg.Feed.UserAgent != "" {
			f.userAgent = cfg.Feed.UserAgent
		}
		if cfg.Feed.HTTPTimeout > 0 {
			f.timeout = cfg.Feed.HTTPTimeout
		}
		f.limiter = NewHostLimiter(cfg.Feed.HostRate, cfg.Feed.HostBurst)
	}
	return f
}

// Timeout is the per-request budget applied by Fetch.
func (f *Fetcher) Timeout() time.Duration {
	return f.timeout
}

// Fetch GETs url and returns the body. The host limiter wait happens before
// the per-request timeout starts. Status codes >= 400 yield *HTTPError.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if err := f.limiter.WaitURL(ctx, url); err != nil {
		return nil, fmt.Errorf("waiting for rate limiter: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", acceptHeader)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, &HTTPError{
			StatusCode: resp.StatusCode,
			RetryAfter: retryAfter(resp),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	return body, nil
}

// retryAfter reads a Retry-After header given in seconds; zero if absent.
func retryAfter(resp *http.Response) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if seconds, err := strconv.Atoi(v); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
	}
	return 0
}
