package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pders01/jobfeed/internal/config"
	"github.com/pders01/jobfeed/internal/tui"
)

func newGenerateConfigCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "generate-config [path]",
		Short: "Write a config file with every default filled in",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := defaultConfigPath()
			if len(args) == 1 {
				path = args[0]
			}

			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("config file %s already exists (use --force to overwrite)", path)
			} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("checking %s: %w", path, err)
			}

			if err := config.GenerateDefaultConfig(path); err != nil {
				return fmt.Errorf("generating config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Generated config at %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")
	return cmd
}

func defaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "jobfeed", "config.toml")
}

func newSourcesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List the configured feeds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, src := range cfg.Sources {
				fmt.Fprintf(out, "%s  %s\n",
					tui.OrganizationStyle.Render(src.String()),
					tui.HelpStyle.Render(fmt.Sprintf("[%s] %s · %s", src.ID(), src.Category, src.Education)))
				fmt.Fprintf(out, "    %s\n", src.URL)
			}
			fmt.Fprintf(out, "%d sources\n", len(cfg.Sources))
			return nil
		},
	}
}
