package tui

import (
	"fmt"

	"github.com/pders01/jobfeed/internal/listing"
)

// StatusKind indicates severity for status messages.
type StatusKind int

const (
	StatusInfo StatusKind = iota
	StatusSuccess
	StatusWarn
	StatusError
)

// Canonical short status messages used across the app.
const (
	MsgRefreshing    = "Refreshing…"
	MsgRefreshBusy   = "Refresh already in progress"
	MsgLoadingJob    = "Loading job…"
	MsgNoResults     = "No results"
	MsgNoApplyLink   = "No apply link for this job"
	MsgOpeningLink   = "Opening apply link…"
	MsgFeedsFailed   = "Some feeds failed to load. Showing available data."
	MsgRefreshClosed = "Refresh unavailable"
)

func MsgResultsCount(n int) string {
	if n == 1 {
		return "1 result"
	}
	return fmt.Sprintf("%d results", n)
}

func MsgJobsCount(n int) string {
	if n == 1 {
		return "1 job"
	}
	return fmt.Sprintf("%d jobs", n)
}

func MsgBatchProgress(batch, batches, jobs int) string {
	return fmt.Sprintf("Fetching batch %d/%d • %s", batch, batches, MsgJobsCount(jobs))
}

// MsgRefreshSummary reports a finished cycle. A negative docCount omits
// the index size.
func MsgRefreshSummary(jobs, failedFeeds, docCount int) string {
	base := "Refreshed: " + MsgJobsCount(jobs)
	if failedFeeds == 1 {
		base += " • 1 feed failed"
	} else if failedFeeds > 1 {
		base += fmt.Sprintf(" • %d feeds failed", failedFeeds)
	}
	if docCount >= 0 {
		base += fmt.Sprintf(" • idx: %d docs", docCount)
	}
	return base
}

func MsgSortOrder(order listing.SortOrder) string {
	return "Sorted by " + string(order)
}
