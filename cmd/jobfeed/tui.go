package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/pders01/jobfeed/internal/debuglog"
	"github.com/pders01/jobfeed/internal/media"
	"github.com/pders01/jobfeed/internal/search"
	"github.com/pders01/jobfeed/internal/tui"
)

func newTUICmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Browse jobs in the terminal UI (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, opts)
		},
	}
}

func runTUI(cmd *cobra.Command, opts *rootOptions) error {
	s, err := openStack(cmd, opts)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := signalContext(cmd)
	defer cancel()

	var searcher search.Searcher
	if path := s.cfg.Listing.SearchIndex; path != "" {
		idx, err := search.NewIndex(path)
		if err != nil {
			debuglog.Warnf("opening search index, falling back to in-memory search: %v", err)
		} else {
			defer idx.Close()
			searcher = idx
		}
	}
	if searcher == nil {
		searcher = search.NewEngine(nil)
	}

	app := tui.NewApp(ctx, s.repo,
		tui.WithSearcher(searcher),
		tui.WithLauncher(media.NewLauncher(s.cfg.Open)),
	)
	defer app.Close()

	// Seed before the first frame so Init only fetches on a cache miss.
	if s.repo.Bootstrap() {
		if ix, ok := searcher.(search.Indexer); ok {
			if err := ix.Reindex(s.repo.Jobs()); err != nil {
				debuglog.Warnf("indexing cached jobs: %v", err)
			}
		}
	}
	go s.repo.AutoRefresh(ctx, s.cfg.Feed.RefreshInterval, app.Visible)

	p := tea.NewProgram(app,
		tea.WithAltScreen(),
		tea.WithReportFocus(),
		tea.WithContext(ctx),
	)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running terminal UI: %w", err)
	}
	return nil
}
