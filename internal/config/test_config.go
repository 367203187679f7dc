package config

import (
	"time"

	"github.com/pders01/jobfeed/internal/model"
)

// TestConfig returns a config suitable for testing
func TestConfig() *Config {
	cfg := defaultConfig()
	cfg.Cache.Backend = BackendMemory
	cfg.Cache.Path = ""
	cfg.Feed.HTTPTimeout = 2 * time.Second
	cfg.Feed.MaxParallel = 4
	cfg.Feed.UserAgent = "jobfeed-test/1.0"
	cfg.Feed.HostRate = 0
	cfg.Feed.AllowPrivateHosts = true
	cfg.Listing.SearchIndex = ""
	cfg.Log.File = "-"
	cfg.Sources = []model.Source{}
	return cfg
}
