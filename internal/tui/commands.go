package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/pders01/jobfeed/internal/model"
	"github.com/pders01/jobfeed/internal/search"
)

func (a *App) loadJobs() tea.Cmd {
	repo := a.repo
	return func() tea.Msg {
		if repo == nil {
			return jobsLoadedMsg{}
		}
		return jobsLoadedMsg{jobs: repo.Jobs()}
	}
}

// waitForEvent blocks on the next repository event. Update re-issues it
// after every event so exactly one reader is pending at a time.
func (a *App) waitForEvent() tea.Cmd {
	ch := a.events
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		evt, ok := <-ch
		if !ok {
			return eventsClosedMsg{}
		}
		return eventMsg{event: evt}
	}
}

func (a *App) renderJob(job model.Job) tea.Cmd {
	return func() tea.Msg {
		r, err := a.getRenderer()
		if err != nil {
			return jobRenderedMsg{id: job.ID, content: "Error initializing renderer: " + err.Error()}
		}
		rendered, err := r.Render(JobMarkdown(job))
		if err != nil {
			return jobRenderedMsg{id: job.ID, content: fmt.Sprintf("# Error\n\nFailed to render job: %s\n\nPress Escape to go back.", err)}
		}
		return jobRenderedMsg{id: job.ID, content: rendered}
	}
}

// JobMarkdown formats a job as a markdown document for the detail view and
// the CLI show command.
func JobMarkdown(job model.Job) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", job.Title)

	var flags []string
	if job.Featured {
		flags = append(flags, "**Featured**")
	}
	if job.IsNew {
		flags = append(flags, "**New**")
	}
	if len(flags) > 0 {
		b.WriteString(strings.Join(flags, " · ") + "\n\n")
	}

	fmt.Fprintf(&b, "*%s* · %s\n\n", job.Organization, job.Category)

	rows := [][2]string{
		{"Eligibility", job.Eligibility},
		{"Education", job.Education},
		{"Location", job.Location},
		{"Salary", job.Salary},
		{"Posted", job.PostDate},
		{"Last date", job.ExpiryDate},
	}
	for _, row := range rows {
		if row[1] != "" {
			fmt.Fprintf(&b, "- **%s:** %s\n", row[0], row[1])
		}
	}
	b.WriteString("\n---\n\n")

	details := job.Details
	if strings.TrimSpace(details) == "" {
		details = job.Description
	}
	b.WriteString(details)
	b.WriteString("\n\n")

	if job.ApplyLink != "" && job.ApplyLink != model.PlaceholderLink {
		fmt.Fprintf(&b, "[Apply online](%s)\n", job.ApplyLink)
	}
	return b.String()
}

func (a *App) performSearch(query string, seq int) tea.Cmd {
	jobs := a.jobs
	searcher := a.searcher
	return func() tea.Msg {
		if searcher == nil {
			return searchResultsMsg{seq: seq, results: search.Match(jobs, query, searchLimit)}
		}
		results, err := searcher.Search(query, searchLimit)
		if err != nil {
			return errorMsg{err: fmt.Errorf("search: %w", err)}
		}
		return searchResultsMsg{seq: seq, results: search.Resolve(results, jobs)}
	}
}

func (a *App) reindex(jobs []model.Job) tea.Cmd {
	idx, ok := a.searcher.(search.Indexer)
	if !ok {
		return nil
	}
	return func() tea.Msg {
		return indexedMsg{err: idx.Reindex(jobs)}
	}
}

func (a *App) openLink(job model.Job) tea.Cmd {
	launcher := a.launcher
	return func() tea.Msg {
		if launcher == nil {
			return linkOpenedMsg{err: fmt.Errorf("no launcher configured")}
		}
		return linkOpenedMsg{err: launcher.Open(job.ApplyLink)}
	}
}
