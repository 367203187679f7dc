package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/pders01/jobfeed/internal/debuglog"
)

func newWatchCmd(opts *rootOptions) *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Refresh on the configured interval and print each cycle",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStack(cmd, opts)
			if err != nil {
				return err
			}
			defer s.Close()

			lock, err := acquireWatchLock(lockPath(s.cfg.Cache.Path))
			if err != nil {
				return err
			}
			defer func() {
				if err := lock.Unlock(); err != nil {
					debuglog.Warnf("releasing watch lock: %v", err)
				}
			}()

			ctx, cancel := signalContext(cmd)
			defer cancel()

			events, unsubscribe := s.repo.Subscribe()
			defer unsubscribe()

			out := cmd.OutOrStdout()
			if once {
				s.repo.Bootstrap()
				res, err := s.repo.RefreshSync(ctx)
				printCycle(out, res, -1)
				return err
			}

			s.repo.Bootstrap()
			s.repo.Refresh(ctx)
			go s.repo.AutoRefresh(ctx, s.cfg.Feed.RefreshInterval, nil)

			fmt.Fprintf(out, "Watching %d feeds every %s, Ctrl+C to stop\n",
				len(s.repo.Sources()), s.cfg.Feed.RefreshInterval)
			for {
				select {
				case <-ctx.Done():
					return nil
				case evt, ok := <-events:
					if !ok {
						return nil
					}
					printEvent(out, evt)
				}
			}
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "run a single cycle and exit")
	return cmd
}

func lockPath(cachePath string) string {
	if cachePath == "" {
		return filepath.Join(os.TempDir(), "jobfeed-watch.lock")
	}
	return cachePath + ".lock"
}

// acquireWatchLock keeps two watchers from refreshing the same cache.
func acquireWatchLock(path string) (*flock.Flock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating lock directory: %w", err)
	}
	lock := flock.New(path)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquiring watch lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("another jobfeed watch is already running (lock %s)", path)
	}
	return lock, nil
}
