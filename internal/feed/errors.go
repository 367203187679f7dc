package feed

import (
	"errors"
	"fmt"
	"time"

	"github.com/pders01/jobfeed/internal/model"
)

// ErrorKind classifies why a single feed could not be fetched.
type ErrorKind string

const (
	KindTimeout ErrorKind = "timeout"
	KindNetwork ErrorKind = "network"
	KindHTTP    ErrorKind = "http"
	KindParse   ErrorKind = "parse"
)

var (
	ErrTimeout = errors.New("feed request timed out")
	ErrNetwork = errors.New("feed request failed")
	ErrHTTP    = errors.New("feed server returned an error status")
	ErrParse   = errors.New("feed body could not be parsed")
)

func (k ErrorKind) sentinel() error {
	switch k {
	case KindTimeout:
		return ErrTimeout
	case KindHTTP:
		return ErrHTTP
	case KindParse:
		return ErrParse
	default:
		return ErrNetwork
	}
}

// HTTPError wraps an HTTP status code so retry logic can inspect it.
type HTTPError struct {
	StatusCode int
	RetryAfter time.Duration // from Retry-After header, zero if absent
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

// FetchError is the per-feed failure reported by Client.FetchFeed.
// errors.Is matches both the kind sentinel and the underlying cause.
type FetchError struct {
	Source model.Source
	Kind   ErrorKind
	Cause  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch %s: %v", e.Source, e.Cause)
}

func (e *FetchError) Unwrap() []error {
	return []error{e.Kind.sentinel(), e.Cause}
}

// StatusCode returns the HTTP status behind an http-kind failure, or 0.
func (e *FetchError) StatusCode() int {
	var httpErr *HTTPError
	if errors.As(e.Cause, &httpErr) {
		return httpErr.StatusCode
	}
	return 0
}
