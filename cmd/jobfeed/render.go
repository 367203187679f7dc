package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/pders01/jobfeed/internal/listing"
	"github.com/pders01/jobfeed/internal/model"
	"github.com/pders01/jobfeed/internal/repository"
	"github.com/pders01/jobfeed/internal/storage"
	"github.com/pders01/jobfeed/internal/tui"
)

var cardStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(tui.MutedColor).
	Padding(0, 1).
	MarginBottom(1)

func renderCard(job model.Job) string {
	title := tui.TitleStyle.Render(job.Title)
	var badges []string
	if job.Featured {
		badges = append(badges, tui.FeaturedBadgeStyle.Render("FEATURED"))
	}
	if job.IsNew {
		badges = append(badges, tui.NewBadgeStyle.Render("NEW"))
	}
	if len(badges) > 0 {
		title = lipgloss.JoinHorizontal(lipgloss.Top, title, " ", strings.Join(badges, " "))
	}

	meta := tui.OrganizationStyle.Render(job.Organization) + tui.SeparatorStyle.Render(" · ") + job.Category
	rows := []string{
		title,
		meta,
		fmt.Sprintf("Eligibility: %s", job.Eligibility),
		fmt.Sprintf("Location: %s  Salary: %s", job.Location, job.Salary),
		tui.DateStyle.Render(fmt.Sprintf("Posted %s  Last date %s", displayDate(job.PostDate), job.ExpiryDate)),
		tui.HelpStyle.Render("id " + job.ID),
	}
	return cardStyle.Render(strings.Join(rows, "\n"))
}

func displayDate(rfc string) string {
	if len(rfc) >= 10 {
		return rfc[:10]
	}
	return rfc
}

func printPage(w io.Writer, page listing.Page) {
	if page.Total == 0 {
		fmt.Fprintln(w, tui.HelpStyle.Render("No jobs match the current filters."))
		return
	}
	for _, job := range page.Jobs {
		fmt.Fprintln(w, renderCard(job))
	}
	fmt.Fprintln(w, tui.HelpStyle.Render(fmt.Sprintf("Page %d of %d • %s",
		page.Number, page.TotalPages, tui.MsgJobsCount(page.Total))))
}

// printCacheAge reports how old the stored snapshot is against the
// freshness window.
func printCacheAge(w io.Writer, cache *storage.Cache) {
	age, ok := cache.Age()
	if !ok {
		return
	}
	state := "fresh"
	if age < 0 || age >= cache.Window() {
		state = "stale"
	}
	fmt.Fprintln(w, tui.HelpStyle.Render(fmt.Sprintf("Cache updated %s ago (%s, window %s)",
		age.Truncate(time.Second), state, cache.Window())))
}

func printCycle(w io.Writer, res repository.CycleResult, docCount int) {
	summary := tui.MsgRefreshSummary(res.Jobs, len(res.Failed), docCount)
	switch res.State {
	case repository.Succeeded:
		fmt.Fprintln(w, tui.StatusSuccessStyle.Render(summary))
	case repository.PartiallyFailed:
		fmt.Fprintln(w, tui.StatusWarnStyle.Render(summary))
	default:
		fmt.Fprintln(w, tui.StatusErrorStyle.Render(tui.MsgFeedsFailed))
	}
	for _, fe := range res.Failed {
		fmt.Fprintln(w, tui.HelpStyle.Render("  ✗ "+fe.Error()))
	}
}

func printEvent(w io.Writer, evt repository.Event) {
	stamp := evt.At.Format("15:04:05")
	switch evt.Type {
	case repository.EventStarted:
		fmt.Fprintf(w, "%s %s\n", stamp, tui.MsgRefreshing)
	case repository.EventProgress:
		fmt.Fprintf(w, "%s %s\n", stamp, tui.MsgBatchProgress(evt.Batch, evt.Batches, evt.Count()))
	case repository.EventSucceeded, repository.EventPartiallyFailed:
		fmt.Fprintf(w, "%s %s\n", stamp, tui.MsgRefreshSummary(evt.Count(), len(evt.Failures), -1))
	case repository.EventFailed:
		fmt.Fprintf(w, "%s %s (%v)\n", stamp, tui.MsgFeedsFailed, evt.Err)
	case repository.EventLoaded:
		fmt.Fprintf(w, "%s loaded %s from cache\n", stamp, tui.MsgJobsCount(evt.Count()))
	}
}
