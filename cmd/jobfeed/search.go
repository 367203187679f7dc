package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pders01/jobfeed/internal/debuglog"
	"github.com/pders01/jobfeed/internal/model"
	"github.com/pders01/jobfeed/internal/search"
	"github.com/pders01/jobfeed/internal/tui"
)

func newSearchCmd(opts *rootOptions) *cobra.Command {
	var (
		offline bool
		limit   int
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Full-text search over cached jobs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")

			s, err := openStack(cmd, opts)
			if err != nil {
				return err
			}
			defer s.Close()

			ctx, cancel := signalContext(cmd)
			defer cancel()

			if _, err := s.loadJobs(ctx, offline); err != nil {
				debuglog.Warnf("refresh before search: %v", err)
			}

			jobs := s.repo.Jobs()
			results, err := runSearch(s.cfg.Listing.SearchIndex, jobs, query, limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(results) == 0 {
				fmt.Fprintln(out, tui.HelpStyle.Render(tui.MsgNoResults))
				return nil
			}
			for _, r := range results {
				fmt.Fprintln(out, renderCard(*r.Job))
			}
			fmt.Fprintln(out, tui.HelpStyle.Render(tui.MsgResultsCount(len(results))))
			return nil
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "use the cache only, never fetch")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of results")
	return cmd
}

// runSearch queries the bleve index at indexPath, or scans jobs in memory
// when no index is configured.
func runSearch(indexPath string, jobs []model.Job, query string, limit int) ([]*search.Result, error) {
	if indexPath == "" {
		return search.Match(jobs, query, limit), nil
	}

	idx, err := search.NewIndex(indexPath)
	if err != nil {
		return nil, err
	}
	defer idx.Close()

	if err := idx.Reindex(jobs); err != nil {
		return nil, fmt.Errorf("indexing jobs: %w", err)
	}
	results, err := idx.Search(query, limit)
	if err != nil {
		return nil, err
	}
	return search.Resolve(results, jobs), nil
}
