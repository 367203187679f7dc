package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/pders01/jobfeed/internal/config"
	"github.com/pders01/jobfeed/internal/debuglog"
	"github.com/pders01/jobfeed/internal/feed"
	"github.com/pders01/jobfeed/internal/normalize"
	"github.com/pders01/jobfeed/internal/repository"
	"github.com/pders01/jobfeed/internal/scheduler"
	"github.com/pders01/jobfeed/internal/storage"
)

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	dbPath     string
	logLevel   string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "jobfeed",
		Short: "Government job postings from RSS feeds",
		Long: "jobfeed fetches government job postings from a fixed set of RSS feeds,\n" +
			"caches them locally and lets you browse, filter and search them.",
		SilenceUsage:  true,
		SilenceErrors: true,
		// Without a subcommand jobfeed opens the terminal browser.
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, opts)
		},
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to config file (default: ~/.config/jobfeed/config.toml)")
	root.PersistentFlags().StringVar(&opts.dbPath, "db", "", "path to the cache database (overrides config)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error, off")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log to stderr at info level or lower")

	root.AddCommand(
		newFetchCmd(opts),
		newListCmd(opts),
		newSearchCmd(opts),
		newShowCmd(opts),
		newWatchCmd(opts),
		newTUICmd(opts),
		newSourcesCmd(opts),
		newGenerateConfigCmd(),
		newVersionCmd(),
	)
	return root
}

// loadConfig reads .env, then the config file, then applies flag overrides.
func loadConfig(opts *rootOptions) (*config.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.dbPath != "" {
		cfg.Cache.Path = opts.dbPath
	}
	return cfg, nil
}

func setupLogging(cmd *cobra.Command, cfg *config.Config, opts *rootOptions) error {
	level := debuglog.ParseLogLevel(cfg.Log.Level)
	if opts.logLevel != "" {
		level = debuglog.ParseLogLevel(opts.logLevel)
	}
	if opts.verbose {
		if level > debuglog.LevelInfo {
			level = debuglog.LevelInfo
		}
		debuglog.SetOutput(cmd.ErrOrStderr(), level)
		return nil
	}
	return debuglog.Setup(level, cfg.Log.File)
}

// stack is the wired set of components one command works with.
type stack struct {
	cfg   *config.Config
	cache *storage.Cache
	repo  *repository.Repository
}

func openStack(cmd *cobra.Command, opts *rootOptions) (*stack, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	if err := setupLogging(cmd, cfg, opts); err != nil {
		return nil, err
	}

	kv, err := storage.Open(cfg.Cache.Backend, cfg.Cache.Path)
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}
	cache := storage.NewCache(kv,
		storage.WithKey(cfg.Cache.Key),
		storage.WithWindow(cfg.Cache.Freshness),
	)

	norm := normalize.Default()
	norm.NewWithin = cfg.Feed.NewWithin
	sched := scheduler.New(feed.NewClient(cfg), cfg.Feed.MaxParallel, scheduler.WithNormalizer(norm))

	debuglog.WithFields(map[string]any{
		"backend":  cfg.Cache.Backend,
		"sources":  len(cfg.Sources),
		"parallel": sched.Parallel(),
	}).Infof("jobfeed starting")

	return &stack{
		cfg:   cfg,
		cache: cache,
		repo:  repository.New(sched, cache, cfg.Sources),
	}, nil
}

func (s *stack) Close() {
	s.repo.Close()
	if err := s.cache.Close(); err != nil {
		debuglog.Warnf("closing cache: %v", err)
	}
}

// loadJobs seeds the repository from the cache and, unless offline, runs a
// refresh cycle when the cache was missing or stale.
func (s *stack) loadJobs(ctx context.Context, offline bool) (repository.CycleResult, error) {
	if s.repo.Bootstrap() || offline {
		return repository.CycleResult{}, nil
	}
	return s.repo.RefreshSync(ctx)
}

func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}
