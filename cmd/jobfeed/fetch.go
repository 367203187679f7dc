package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pders01/jobfeed/internal/debuglog"
	"github.com/pders01/jobfeed/internal/model"
	"github.com/pders01/jobfeed/internal/search"
)

func newFetchCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch",
		Short: "Fetch every configured feed and update the cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStack(cmd, opts)
			if err != nil {
				return err
			}
			defer s.Close()

			ctx, cancel := signalContext(cmd)
			defer cancel()

			// Seed from the cache so a partial refresh merges into it.
			s.repo.Bootstrap()

			res, err := s.repo.RefreshSync(ctx)
			out := cmd.OutOrStdout()
			if err != nil {
				printCycle(out, res, -1)
				if errors.Is(err, model.ErrAllFeedsFailed) {
					return fmt.Errorf("refresh failed: %w", err)
				}
				return err
			}

			docs := -1
			if path := s.cfg.Listing.SearchIndex; path != "" {
				n, idxErr := reindexAt(path, s.repo.Jobs())
				if idxErr != nil {
					debuglog.Warnf("updating search index: %v", idxErr)
				} else {
					docs = n
				}
			}
			printCycle(out, res, docs)
			return nil
		},
	}
}

// reindexAt rebuilds the bleve index at path and returns its size.
func reindexAt(path string, jobs []model.Job) (int, error) {
	idx, err := search.NewIndex(path)
	if err != nil {
		return 0, err
	}
	defer idx.Close()

	if err := idx.Reindex(jobs); err != nil {
		return 0, err
	}
	return idx.DocCount()
}
