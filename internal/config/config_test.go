package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Cache.Backend != BackendBolt {
		t.Errorf("Cache.Backend = %s, want bolt", cfg.Cache.Backend)
	}
	if cfg.Cache.Freshness != 30*time.Minute {
		t.Errorf("Cache.Freshness = %v, want 30m", cfg.Cache.Freshness)
	}
	if cfg.Cache.Key != "jobs_cache" {
		t.Errorf("Cache.Key = %s, want jobs_cache", cfg.Cache.Key)
	}

	if cfg.Feed.HTTPTimeout != 10*time.Second {
		t.Errorf("Feed.HTTPTimeout = %v, want 10s", cfg.Feed.HTTPTimeout)
	}
	if cfg.Feed.MaxParallel != 15 {
		t.Errorf("Feed.MaxParallel = %d, want 15", cfg.Feed.MaxParallel)
	}
	if cfg.Feed.RefreshInterval != 15*time.Minute {
		t.Errorf("Feed.RefreshInterval = %v, want 15m", cfg.Feed.RefreshInterval)
	}
	if cfg.Feed.UserAgent == "" {
		t.Error("Feed.UserAgent should not be empty")
	}
	if cfg.Feed.RetryMaxDelay != cfg.Feed.HTTPTimeout {
		t.Errorf("Feed.RetryMaxDelay = %v, want %v", cfg.Feed.RetryMaxDelay, cfg.Feed.HTTPTimeout)
	}

	if cfg.Listing.PerPage != 12 {
		t.Errorf("Listing.PerPage = %d, want 12", cfg.Listing.PerPage)
	}

	if len(cfg.Sources) != 8 {
		t.Errorf("len(Sources) = %d, want 8", len(cfg.Sources))
	}
}

func TestLoad_DefaultConfig(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Feed.RefreshInterval != 15*time.Minute {
		t.Errorf("Feed.RefreshInterval = %v, want 15m", cfg.Feed.RefreshInterval)
	}
	if len(cfg.Sources) != 8 {
		t.Fatalf("len(Sources) = %d, want 8", len(cfg.Sources))
	}
	if cfg.Sources[4].Organization != "IBPS" || cfg.Sources[4].Category != "Banking" {
		t.Errorf("Sources[4] = %+v, want IBPS/Banking", cfg.Sources[4])
	}
}

func TestLoad_FromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.toml")
	configContent := `
[cache]
backend = "sqlite"
path = "/tmp/jobs.sqlite"
freshness = "10m"

[feed]
http_timeout = "3s"
max_parallel = 4
user_agent = "test-agent"

[listing]
per_page = 20

[[sources]]
url = "www.ibps.in/feed/"
organization = "IBPS"
category = "Banking"
education = "Graduate"
`

	if err := os.WriteFile(configPath, []byte(configContent), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Cache.Backend != BackendSQLite {
		t.Errorf("Cache.Backend = %s, want sqlite", cfg.Cache.Backend)
	}
	if cfg.Cache.Path != "/tmp/jobs.sqlite" {
		t.Errorf("Cache.Path = %s, want /tmp/jobs.sqlite", cfg.Cache.Path)
	}
	if cfg.Cache.Freshness != 10*time.Minute {
		t.Errorf("Cache.Freshness = %v, want 10m", cfg.Cache.Freshness)
	}
	if cfg.Cache.Key != "jobs_cache" {
		t.Errorf("Cache.Key = %s, want default jobs_cache", cfg.Cache.Key)
	}
	if cfg.Feed.HTTPTimeout != 3*time.Second {
		t.Errorf("Feed.HTTPTimeout = %v, want 3s", cfg.Feed.HTTPTimeout)
	}
	if cfg.Feed.MaxParallel != 4 {
		t.Errorf("Feed.MaxParallel = %d, want 4", cfg.Feed.MaxParallel)
	}
	if cfg.Feed.RefreshInterval != 15*time.Minute {
		t.Errorf("Feed.RefreshInterval = %v, want default 15m", cfg.Feed.RefreshInterval)
	}
	if cfg.Listing.PerPage != 20 {
		t.Errorf("Listing.PerPage = %d, want 20", cfg.Listing.PerPage)
	}
	if len(cfg.Sources) != 1 {
		t.Fatalf("len(Sources) = %d, want 1", len(cfg.Sources))
	}
	if cfg.Sources[0].URL != "https://www.ibps.in/feed/" {
		t.Errorf("Sources[0].URL = %s, want normalized https URL", cfg.Sources[0].URL)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("JOBFEED_FEED_MAX_PARALLEL", "7")
	t.Setenv("JOBFEED_CACHE_BACKEND", "memory")

	configPath := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(configPath, []byte("[log]\nlevel = \"debug\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Feed.MaxParallel != 7 {
		t.Errorf("Feed.MaxParallel = %d, want 7", cfg.Feed.MaxParallel)
	}
	if cfg.Cache.Backend != BackendMemory {
		t.Errorf("Cache.Backend = %s, want memory", cfg.Cache.Backend)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %s, want debug", cfg.Log.Level)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "unknown backend",
			content: "[cache]\nbackend = \"redis\"\n",
			wantErr: "unknown backend",
		},
		{
			name:    "zero parallelism",
			content: "[feed]\nmax_parallel = 0\n",
			wantErr: "max_parallel",
		},
		{
			name:    "negative retry cap",
			content: "[feed]\nretry_max_delay = \"-1s\"\n",
			wantErr: "retry_max_delay",
		},
		{
			name:    "source without organization",
			content: "[[sources]]\nurl = \"https://www.ibps.in/feed/\"\n",
			wantErr: "organization is required",
		},
		{
			name:    "private source",
			content: "[[sources]]\nurl = \"http://10.0.0.8/feed\"\norganization = \"Intranet\"\n",
			wantErr: "private IP",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(configPath, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}

			_, err := Load(configPath)
			if err == nil {
				t.Fatalf("Load() expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_AllowPrivateHosts(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.toml")
	content := "[feed]\nallow_private_hosts = true\n\n[[sources]]\nurl = \"http://127.0.0.1:8080/feed\"\norganization = \"Local\"\n"
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Sources[0].URL != "http://127.0.0.1:8080/feed" {
		t.Errorf("Sources[0].URL = %s", cfg.Sources[0].URL)
	}
}

func TestLoadSourcesFile(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "sources.yaml")
	yamlContent := `sources:
  - url: https://www.isro.gov.in/feed/
    organization: ISRO
    category: Technical
    education: Engineering
  - url: https://www.aiims.edu/feed/
    organization: AIIMS
    category: Medical
`
	if err := os.WriteFile(yamlPath, []byte(yamlContent), 0o644); err != nil {
		t.Fatal(err)
	}

	tomlPath := filepath.Join(dir, "sources.toml")
	tomlContent := `[[sources]]
url = "https://www.ssc.nic.in/feed/"
organization = "Staff Selection Commission"
category = "SSC"
`
	if err := os.WriteFile(tomlPath, []byte(tomlContent), 0o644); err != nil {
		t.Fatal(err)
	}

	sources, err := LoadSourcesFile(yamlPath)
	if err != nil {
		t.Fatalf("LoadSourcesFile(yaml) error = %v", err)
	}
	if len(sources) != 2 || sources[1].Organization != "AIIMS" || sources[0].Education != "Engineering" {
		t.Errorf("LoadSourcesFile(yaml) = %+v", sources)
	}

	sources, err = LoadSourcesFile(tomlPath)
	if err != nil {
		t.Fatalf("LoadSourcesFile(toml) error = %v", err)
	}
	if len(sources) != 1 || sources[0].Category != "SSC" {
		t.Errorf("LoadSourcesFile(toml) = %+v", sources)
	}

	if _, err := LoadSourcesFile(filepath.Join(dir, "sources.json")); err == nil {
		t.Error("LoadSourcesFile(json) expected error")
	}
}

func TestLoad_SourcesFileReplacesInline(t *testing.T) {
	dir := t.TempDir()
	sourcesPath := filepath.Join(dir, "feeds.yml")
	if err := os.WriteFile(sourcesPath, []byte("sources:\n  - url: https://www.ibps.in/feed/\n    organization: IBPS\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	configPath := filepath.Join(dir, "config.toml")
	content := "sources_file = \"" + filepath.ToSlash(sourcesPath) + "\"\n"
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(cfg.Sources) != 1 || cfg.Sources[0].Organization != "IBPS" {
		t.Errorf("Sources = %+v, want only IBPS", cfg.Sources)
	}
}

func TestSave(t *testing.T) {
	cfg := defaultConfig()
	cfg.Cache.Path = "/test/cache.db"
	cfg.Feed.UserAgent = "test-save-agent"
	cfg.Feed.HTTPTimeout = 45 * time.Second
	cfg.Sources = cfg.Sources[:2]

	savePath := filepath.Join(t.TempDir(), "nested", "saved-config.toml")
	if err := Save(cfg, savePath); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(savePath)
	if err != nil {
		t.Fatalf("Failed to load saved config: %v", err)
	}

	if loaded.Cache.Path != cfg.Cache.Path {
		t.Errorf("Loaded Cache.Path = %s, want %s", loaded.Cache.Path, cfg.Cache.Path)
	}
	if loaded.Feed.UserAgent != cfg.Feed.UserAgent {
		t.Errorf("Loaded Feed.UserAgent = %s, want %s", loaded.Feed.UserAgent, cfg.Feed.UserAgent)
	}
	if loaded.Feed.HTTPTimeout != 45*time.Second {
		t.Errorf("Loaded Feed.HTTPTimeout = %v, want 45s", loaded.Feed.HTTPTimeout)
	}
	if len(loaded.Sources) != 2 || loaded.Sources[1].Organization != "Staff Selection Commission" {
		t.Errorf("Loaded Sources = %+v", loaded.Sources)
	}
}

func TestGenerateDefaultConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "generated.toml")
	if err := GenerateDefaultConfig(configPath); err != nil {
		t.Fatalf("GenerateDefaultConfig() error = %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load generated config: %v", err)
	}

	if cfg.Feed.MaxParallel != 15 {
		t.Errorf("Generated config has Feed.MaxParallel = %d, want 15", cfg.Feed.MaxParallel)
	}
	if len(cfg.Sources) != 8 {
		t.Errorf("Generated config has %d sources, want 8", len(cfg.Sources))
	}
}

func TestTestConfig(t *testing.T) {
	cfg := TestConfig()

	if cfg.Cache.Backend != BackendMemory {
		t.Errorf("TestConfig Cache.Backend = %s, want memory", cfg.Cache.Backend)
	}
	if cfg.Feed.UserAgent != "jobfeed-test/1.0" {
		t.Errorf("TestConfig Feed.UserAgent = %s, want 'jobfeed-test/1.0'", cfg.Feed.UserAgent)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("TestConfig should validate: %v", err)
	}
}
