package main

import (
	"github.com/spf13/cobra"

	"github.com/pders01/jobfeed/internal/debuglog"
	"github.com/pders01/jobfeed/internal/listing"
)

type listOptions struct {
	offline   bool
	search    string
	category  string
	education string
	sort      string
	page      int
	perPage   int
}

func newListCmd(opts *rootOptions) *cobra.Command {
	lo := &listOptions{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cached jobs, refreshing first when the cache is stale",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			order, err := listing.ParseSortOrder(lo.sort)
			if err != nil {
				return err
			}

			s, err := openStack(cmd, opts)
			if err != nil {
				return err
			}
			defer s.Close()

			ctx, cancel := signalContext(cmd)
			defer cancel()

			if _, err := s.loadJobs(ctx, lo.offline); err != nil {
				// Keep going with whatever the cache held.
				debuglog.Warnf("refresh before list: %v", err)
			}

			perPage := lo.perPage
			if perPage == 0 {
				perPage = s.cfg.Listing.PerPage
			}
			page := listing.Run(s.repo.Jobs(), listing.Query{
				Filter: listing.Filter{
					Search:    lo.search,
					Category:  lo.category,
					Education: lo.education,
				},
				Order:   order,
				Page:    lo.page,
				PerPage: perPage,
			})
			printPage(cmd.OutOrStdout(), page)
			printCacheAge(cmd.OutOrStdout(), s.cache)
			return nil
		},
	}

	cmd.Flags().BoolVar(&lo.offline, "offline", false, "use the cache only, never fetch")
	cmd.Flags().StringVarP(&lo.search, "search", "s", "", "substring filter over title, organization and details")
	cmd.Flags().StringVar(&lo.category, "category", listing.All, "category filter")
	cmd.Flags().StringVar(&lo.education, "education", listing.All, "education filter")
	cmd.Flags().StringVar(&lo.sort, "sort", string(listing.DateDesc), "sort order: date-desc, date-asc, title-asc, title-desc")
	cmd.Flags().IntVarP(&lo.page, "page", "p", 1, "page number")
	cmd.Flags().IntVar(&lo.perPage, "per-page", 0, "jobs per page (default from config)")
	return cmd
}
