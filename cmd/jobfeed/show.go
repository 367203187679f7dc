package main

import (
	"fmt"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/pders01/jobfeed/internal/tui"
)

func newShowCmd(opts *rootOptions) *cobra.Command {
	var (
		raw   bool
		width int
	)

	cmd := &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show the full details of one cached job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStack(cmd, opts)
			if err != nil {
				return err
			}
			defer s.Close()

			s.repo.Bootstrap()
			for _, job := range s.repo.Jobs() {
				if job.ID != args[0] {
					continue
				}

				md := tui.JobMarkdown(job)
				if raw {
					fmt.Fprint(cmd.OutOrStdout(), md)
					return nil
				}
				r, err := glamour.NewTermRenderer(
					glamour.WithAutoStyle(),
					glamour.WithWordWrap(width),
				)
				if err != nil {
					return fmt.Errorf("creating renderer: %w", err)
				}
				rendered, err := r.Render(md)
				if err != nil {
					return fmt.Errorf("rendering job: %w", err)
				}
				fmt.Fprint(cmd.OutOrStdout(), rendered)
				return nil
			}
			return fmt.Errorf("job %s not found in cache", args[0])
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "print markdown without rendering")
	cmd.Flags().IntVar(&width, "width", 80, "wrap width for rendered output")
	return cmd
}
