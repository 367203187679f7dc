package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/pders01/jobfeed/internal/model"
	"github.com/pders01/jobfeed/internal/validation"
)

// Cache backends accepted in [cache].backend.
const (
	BackendBolt   = "bolt"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

type Config struct {
	Cache       CacheConfig    `mapstructure:"cache"`
	Feed        FeedConfig     `mapstructure:"feed"`
	Listing     ListingConfig  `mapstructure:"listing"`
	Log         LogConfig      `mapstructure:"log"`
	Open        OpenConfig     `mapstructure:"open"`
	Sources     []model.Source `mapstructure:"sources"`
	SourcesFile string         `mapstructure:"sources_file"`
}

type CacheConfig struct {
	Backend   string        `mapstructure:"backend"`
	Path      string        `mapstructure:"path"`
	Freshness time.Duration `mapstructure:"freshness"`
	Key       string        `mapstructure:"key"`
}

type FeedConfig struct {
	HTTPTimeout       time.Duration `mapstructure:"http_timeout"`
	MaxParallel       int           `mapstructure:"max_parallel"`
	RefreshInterval   time.Duration `mapstructure:"refresh_interval"`
	UserAgent         string        `mapstructure:"user_agent"`
	HostRate          float64       `mapstructure:"host_rate"`
	HostBurst         int           `mapstructure:"host_burst"`
	Retries           int           `mapstructure:"retries"`
	RetryBaseDelay    time.Duration `mapstructure:"retry_base_delay"`
	RetryMaxDelay     time.Duration `mapstructure:"retry_max_delay"` // 0 means http_timeout
	NewWithin         time.Duration `mapstructure:"new_within"`
	AllowPrivateHosts bool          `mapstructure:"allow_private_hosts"`
}

type ListingConfig struct {
	PerPage     int    `mapstructure:"per_page"`
	SearchIndex string `mapstructure:"search_index"`
}

// OpenConfig names the commands used to open apply links. Empty values
// fall back to the platform opener.
type OpenConfig struct {
	Browser   string `mapstructure:"browser"`
	PDFViewer string `mapstructure:"pdf_viewer"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// DefaultSources are the feeds crawled when no sources are configured.
func DefaultSources() []model.Source {
	const proxy = "https://api.rss2json.com/v1/api.json?rss_url="
	return []model.Source{
		{URL: proxy + "https://www.employmentnews.gov.in/feed/", Organization: "Employment News", Category: "Central Government", Education: "10th/12th/Graduate"},
		{URL: proxy + "https://www.ssc.nic.in/feed/", Organization: "Staff Selection Commission", Category: "SSC", Education: "12th/Graduate"},
		{URL: proxy + "https://www.mpsc.gov.in/feed/", Organization: "Maharashtra PSC", Category: "State Government", Education: "Graduate"},
		{URL: proxy + "https://www.uppsc.up.nic.in/feed/", Organization: "Uttar Pradesh PSC", Category: "State Government", Education: "12th/Graduate"},
		{URL: proxy + "https://www.ibps.in/feed/", Organization: "IBPS", Category: "Banking", Education: "Graduate"},
		{URL: proxy + "https://www.isro.gov.in/feed/", Organization: "ISRO", Category: "Technical", Education: "Engineering"},
		{URL: proxy + "https://www.aiims.edu/feed/", Organization: "AIIMS", Category: "Medical", Education: "MBBS/BDS"},
		{URL: proxy + "https://indianrailways.gov.in/feed/", Organization: "Indian Railways", Category: "Railway", Education: "10th/ITI"},
	}
}

func defaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".jobfeed")

	return &Config{
		Cache: CacheConfig{
			Backend:   BackendBolt,
			Path:      filepath.Join(dataDir, "cache.db"),
			Freshness: 30 * time.Minute,
			Key:       "jobs_cache",
		},
		Feed: FeedConfig{
			HTTPTimeout:     10 * time.Second,
			MaxParallel:     15,
			RefreshInterval: 15 * time.Minute,
			UserAgent:       "jobfeed/1.0 (https://github.com/pders01/jobfeed)",
			HostRate:        5,
			HostBurst:       15,
			Retries:         0,
			RetryBaseDelay:  500 * time.Millisecond,
			RetryMaxDelay:   10 * time.Second,
			NewWithin:       72 * time.Hour,
		},
		Listing: ListingConfig{
			PerPage:     12,
			SearchIndex: filepath.Join(dataDir, "index.bleve"),
		},
		Log: LogConfig{
			Level: "warn",
			File:  filepath.Join(dataDir, "jobfeed.log"),
		},
		Sources: DefaultSources(),
	}
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("cache.backend", cfg.Cache.Backend)
	v.SetDefault("cache.path", cfg.Cache.Path)
	v.SetDefault("cache.freshness", cfg.Cache.Freshness)
	v.SetDefault("cache.key", cfg.Cache.Key)

	v.SetDefault("feed.http_timeout", cfg.Feed.HTTPTimeout)
	v.SetDefault("feed.max_parallel", cfg.Feed.MaxParallel)
	v.SetDefault("feed.refresh_interval", cfg.Feed.RefreshInterval)
	v.SetDefault("feed.user_agent", cfg.Feed.UserAgent)
	v.SetDefault("feed.host_rate", cfg.Feed.HostRate)
	v.SetDefault("feed.host_burst", cfg.Feed.HostBurst)
	v.SetDefault("feed.retries", cfg.Feed.Retries)
	v.SetDefault("feed.retry_base_delay", cfg.Feed.RetryBaseDelay)
	v.SetDefault("feed.retry_max_delay", cfg.Feed.RetryMaxDelay)
	v.SetDefault("feed.new_within", cfg.Feed.NewWithin)
	v.SetDefault("feed.allow_private_hosts", cfg.Feed.AllowPrivateHosts)

	v.SetDefault("listing.per_page", cfg.Listing.PerPage)
	v.SetDefault("listing.search_index", cfg.Listing.SearchIndex)

	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.file", cfg.Log.File)

	v.SetDefault("open.browser", cfg.Open.Browser)
	v.SetDefault("open.pdf_viewer", cfg.Open.PDFViewer)

	v.SetDefault("sources", sourceMaps(cfg.Sources))
	v.SetDefault("sources_file", cfg.SourcesFile)
}

// Load reads configuration from configPath, or from config.toml in
// ~/.config/jobfeed or the working directory when configPath is empty.
// JOBFEED_* environment variables override file values.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v, defaultConfig())

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		homeDir, _ := os.UserHomeDir()
		configDir := filepath.Join(homeDir, ".config", "jobfeed")

		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(configDir)
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("JOBFEED")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	expandPaths(&config)

	if config.SourcesFile != "" {
		sources, err := LoadSourcesFile(config.SourcesFile)
		if err != nil {
			return nil, err
		}
		config.Sources = sources
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks value ranges and normalizes every source URL in place.
func (c *Config) Validate() error {
	switch c.Cache.Backend {
	case BackendBolt, BackendSQLite, BackendMemory:
	default:
		return fmt.Errorf("cache.backend: unknown backend %q", c.Cache.Backend)
	}
	if c.Cache.Backend != BackendMemory && c.Cache.Path == "" {
		return fmt.Errorf("cache.path is required for the %s backend", c.Cache.Backend)
	}
	if c.Cache.Freshness <= 0 {
		return fmt.Errorf("cache.freshness must be positive, got %s", c.Cache.Freshness)
	}
	if c.Cache.Key == "" {
		return fmt.Errorf("cache.key cannot be empty")
	}
	if c.Feed.HTTPTimeout <= 0 {
		return fmt.Errorf("feed.http_timeout must be positive, got %s", c.Feed.HTTPTimeout)
	}
	if c.Feed.MaxParallel < 1 {
		return fmt.Errorf("feed.max_parallel must be at least 1, got %d", c.Feed.MaxParallel)
	}
	if c.Feed.Retries < 0 {
		return fmt.Errorf("feed.retries cannot be negative")
	}
	if c.Feed.RetryMaxDelay < 0 {
		return fmt.Errorf("feed.retry_max_delay cannot be negative")
	}
	if c.Listing.PerPage < 1 {
		return fmt.Errorf("listing.per_page must be at least 1, got %d", c.Listing.PerPage)
	}

	validator := validation.NewSourceValidator()
	if c.Feed.AllowPrivateHosts {
		validator = validation.NewPermissiveSourceValidator()
	}
	sources, err := validator.ValidateSources(c.Sources)
	if err != nil {
		return fmt.Errorf("sources: %w", err)
	}
	c.Sources = sources
	return nil
}

type sourcesFile struct {
	Sources []model.Source `yaml:"sources" toml:"sources"`
}

// LoadSourcesFile reads a feed list from a YAML or TOML file, chosen by
// extension.
func LoadSourcesFile(path string) ([]model.Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading sources file: %w", err)
	}

	var parsed sourcesFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &parsed)
	case ".toml":
		err = toml.Unmarshal(data, &parsed)
	default:
		return nil, fmt.Errorf("sources file %s: unsupported format (want .yaml, .yml or .toml)", path)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing sources file %s: %w", path, err)
	}
	if len(parsed.Sources) == 0 {
		return nil, fmt.Errorf("sources file %s lists no sources", path)
	}
	return parsed.Sources, nil
}

// expandPath expands ~ to home directory and converts to absolute path
func expandPath(path string) string {
	if path == "" || path == "-" {
		return path
	}

	if len(path) >= 2 && path[:2] == "~/" {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path[2:])
	}

	if !filepath.IsAbs(path) {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
	}

	return path
}

func expandPaths(cfg *Config) {
	cfg.Cache.Path = expandPath(cfg.Cache.Path)
	cfg.Listing.SearchIndex = expandPath(cfg.Listing.SearchIndex)
	cfg.Log.File = expandPath(cfg.Log.File)
	cfg.SourcesFile = expandPath(cfg.SourcesFile)
}

func sourceMaps(sources []model.Source) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(sources))
	for _, s := range sources {
		out = append(out, map[string]interface{}{
			"url":          s.URL,
			"organization": s.Organization,
			"category":     s.Category,
			"education":    s.Education,
		})
	}
	return out
}

func Save(config *Config, path string) error {
	v := viper.New()

	// Durations are written as strings for TOML readability
	v.Set("cache", map[string]interface{}{
		"backend":   config.Cache.Backend,
		"path":      config.Cache.Path,
		"freshness": config.Cache.Freshness.String(),
		"key":       config.Cache.Key,
	})
	v.Set("feed", map[string]interface{}{
		"http_timeout":        config.Feed.HTTPTimeout.String(),
		"max_parallel":        config.Feed.MaxParallel,
		"refresh_interval":    config.Feed.RefreshInterval.String(),
		"user_agent":          config.Feed.UserAgent,
		"host_rate":           config.Feed.HostRate,
		"host_burst":          config.Feed.HostBurst,
		"retries":             config.Feed.Retries,
		"retry_base_delay":    config.Feed.RetryBaseDelay.String(),
		"retry_max_delay":     config.Feed.RetryMaxDelay.String(),
		"new_within":          config.Feed.NewWithin.String(),
		"allow_private_hosts": config.Feed.AllowPrivateHosts,
	})
	v.Set("listing", map[string]interface{}{
		"per_page":     config.Listing.PerPage,
		"search_index": config.Listing.SearchIndex,
	})
	v.Set("log", map[string]interface{}{
		"level": config.Log.Level,
		"file":  config.Log.File,
	})
	v.Set("open", map[string]interface{}{
		"browser":    config.Open.Browser,
		"pdf_viewer": config.Open.PDFViewer,
	})
	if config.SourcesFile != "" {
		v.Set("sources_file", config.SourcesFile)
	}
	v.Set("sources", sourceMaps(config.Sources))

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	return v.WriteConfigAs(path)
}

func GenerateDefaultConfig(path string) error {
	return Save(defaultConfig(), path)
}
