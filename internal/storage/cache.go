package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/pders01/jobfeed/internal/debuglog"
	"github.com/pders01/jobfeed/internal/model"
)

const (
	DefaultCacheKey    = "jobs_cache"
	DefaultCacheWindow = 30 * time.Minute
)

// Cache persists one job snapshot under a fixed key and serves it back only
// while it is younger than the freshness window.
type Cache struct {
	kv     KV
	key    string
	window time.Duration
	now    func() time.Time
}

type CacheOption func(*Cache)

// WithClock replaces time.Now for freshness checks and timestamps.
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) { c.now = now }
}

// WithKey overrides DefaultCacheKey.
func WithKey(key string) CacheOption {
	return func(c *Cache) {
		if key != "" {
			c.key = key
		}
	}
}

// WithWindow overrides DefaultCacheWindow.
func WithWindow(window time.Duration) CacheOption {
	return func(c *Cache) {
		if window > 0 {
			c.window = window
		}
	}
}

func NewCache(kv KV, opts ...CacheOption) *Cache {
	c := &Cache{
		kv:     kv,
		key:    DefaultCacheKey,
		window: DefaultCacheWindow,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Save writes jobs with the current timestamp in a single Set.
func (c *Cache) Save(jobs []model.Job) error {
	if jobs == nil {
		jobs = []model.Job{}
	}
	data, err := json.Marshal(model.CacheEntry{Jobs: jobs, Timestamp: c.now()})
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}
	if err := c.kv.Set(c.key, data); err != nil {
		return fmt.Errorf("saving cache: %w", err)
	}
	return nil
}

// Load returns the cached jobs when a fresh snapshot exists. Missing, stale,
// unreadable and corrupt snapshots are all reported as a miss, as is one
// stamped in the future.
func (c *Cache) Load() ([]model.Job, bool) {
	entry, ok := c.read()
	if !ok {
		return nil, false
	}
	age := c.now().Sub(entry.Timestamp)
	if age < 0 {
		debuglog.Debugf("cache %s is stamped in the future (saved %s)", c.key, entry.Timestamp.Format(time.RFC3339))
		return nil, false
	}
	if age >= c.window {
		debuglog.Debugf("cache %s is stale (saved %s)", c.key, entry.Timestamp.Format(time.RFC3339))
		return nil, false
	}
	return entry.Jobs, true
}

// Age reports how old the stored snapshot is, regardless of freshness.
func (c *Cache) Age() (time.Duration, bool) {
	entry, ok := c.read()
	if !ok {
		return 0, false
	}
	return c.now().Sub(entry.Timestamp), true
}

// Window is how long a snapshot stays fresh.
func (c *Cache) Window() time.Duration {
	return c.window
}

func (c *Cache) read() (model.CacheEntry, bool) {
	var entry model.CacheEntry

	data, ok, err := c.kv.Get(c.key)
	if err != nil {
		debuglog.Debugf("cache read failed: %v", err)
		return entry, false
	}
	if !ok {
		return entry, false
	}

	if err := json.Unmarshal(data, &entry); err != nil {
		debuglog.Debugf("cache %s is corrupt: %v", c.key, err)
		return entry, false
	}
	if entry.Timestamp.IsZero() {
		debuglog.Debugf("cache %s has no timestamp", c.key)
		return entry, false
	}
	return entry, true
}

func (c *Cache) Close() error {
	return c.kv.Close()
}
