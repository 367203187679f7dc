package model

import "errors"

// ErrAllFeedsFailed is returned when a refresh cycle got no usable result
// from any configured source.
var ErrAllFeedsFailed = errors.New("all feeds failed")

// ErrRefreshInProgress is returned by synchronous refreshes rejected by the
// repository gate.
var ErrRefreshInProgress = errors.New("refresh already in progress")
