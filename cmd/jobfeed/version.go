package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pders01/jobfeed/internal/tui"
)

// Version is the version of the application, set at build time
var Version = "dev"

func newVersionCmd() *cobra.Command {
	var banner bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			if banner {
				tui.ShowBanner(cmd.OutOrStdout(), Version)
				return
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", tui.AppName, Version)
		},
	}

	cmd.Flags().BoolVar(&banner, "banner", false, "print the logo banner")
	return cmd
}
