// ABOUTME: Tests for loading, overriding and validating configuration
// ABOUTME: Writes TOML and .env files into temp dirs and isolates XDG paths

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	for key := range envSetters {
		t.Setenv(key, "")
	}
	return dir
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	dir := isolate(t)

	cfg, path, exists, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if exists {
		t.Error("expected no config file")
	}
	if want := filepath.Join(dir, "config", "podroll", "config.toml"); path != want {
		t.Errorf("path = %q, want %q", path, want)
	}
	if want := filepath.Join(dir, "data", "podroll", "podroll.db"); cfg.Data.DBPath != want {
		t.Errorf("DBPath = %q, want %q", cfg.Data.DBPath, want)
	}
	if want := filepath.Join(dir, "data", "podroll", "crawl.lock"); cfg.Data.LockFile != want {
		t.Errorf("LockFile = %q, want %q", cfg.Data.LockFile, want)
	}
	if cfg.Crawl.Workers != DefaultWorkers {
		t.Errorf("Workers = %d, want %d", cfg.Crawl.Workers, DefaultWorkers)
	}
	if cfg.Canonical.FuzzyMatch {
		t.Error("fuzzy matching should be off by default")
	}
}

func TestLoad_File(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "podroll.toml")
	writeFile(t, path, `
[data]
db_path = "~/pods/podroll.db"

[log]
level = "DEBUG"
format = "json"

[crawl]
workers = 8
lease_ttl = "5m"

[schedule]
min_interval = "30m"
max_interval = "48h"
base_interval = "2h"
jitter = 0.1
failure_threshold = 5
not_modified_growth = 2.0

[canonical]
fuzzy_match = true

[recommend]
top_k = 5
`)

	cfg, _, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !exists {
		t.Error("expected config file to exist")
	}
	if want := filepath.Join(dir, "pods", "podroll.db"); cfg.Data.DBPath != want {
		t.Errorf("DBPath = %q, want %q", cfg.Data.DBPath, want)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("Log = %+v", cfg.Log)
	}
	if cfg.Crawl.Workers != 8 || cfg.Crawl.LeaseTTL.Std() != 5*time.Minute {
		t.Errorf("Crawl = %+v", cfg.Crawl)
	}
	if cfg.Crawl.BatchLimit != DefaultBatchLimit {
		t.Errorf("unset BatchLimit = %d, want default", cfg.Crawl.BatchLimit)
	}

	pol := cfg.SchedulePolicy()
	if pol.Min != 30*time.Minute || pol.Max != 48*time.Hour || pol.Base != 2*time.Hour {
		t.Errorf("SchedulePolicy() = %+v", pol)
	}
	if pol.FailureThreshold != 5 || pol.NotModifiedGrowth != 2.0 {
		t.Errorf("SchedulePolicy() = %+v", pol)
	}
	if !cfg.Canonical.FuzzyMatch {
		t.Error("fuzzy_match not applied")
	}
	if opts := cfg.RecommendOptions(); opts.TopK != 5 || opts.Keywords == 0 {
		t.Errorf("RecommendOptions() = %+v", opts)
	}
	if len(cfg.FetchOptions()) == 0 {
		t.Error("FetchOptions() is empty")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	dir := isolate(t)
	t.Setenv("PODROLL_DB", filepath.Join(dir, "env.db"))
	t.Setenv("PODROLL_WORKERS", "3")
	t.Setenv("PODROLL_FUZZY_MATCH", "true")
	t.Setenv("PODROLL_LOG_LEVEL", "warn")

	cfg, _, _, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Data.DBPath != filepath.Join(dir, "env.db") {
		t.Errorf("DBPath = %q", cfg.Data.DBPath)
	}
	if cfg.Crawl.Workers != 3 || !cfg.Canonical.FuzzyMatch || cfg.LoggingOptions().Level != "warn" {
		t.Errorf("env overrides not applied: %+v", cfg)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		env  map[string]string
		want string
	}{
		{"bad toml", "[crawl\nworkers = 1", nil, "parse config"},
		{"unknown key", "[crawl]\nthreads = 2", nil, "parse config"},
		{"bad duration", "[fetch]\ntimeout = \"soon\"", nil, "parse config"},
		{"zero workers", "[crawl]\nworkers = 0", nil, "workers"},
		{"bad level", "[log]\nlevel = \"loud\"", nil, "level"},
		{"max below min", "[schedule]\nmin_interval = \"2h\"\nmax_interval = \"1h\"\nbase_interval = \"2h\"", nil, "max"},
		{"base outside range", "[schedule]\nbase_interval = \"720h\"", nil, "base_interval"},
		{"bad cron", "[daemon]\ncrawl_cron = \"every day\"", nil, "daemon.crawl_cron"},
		{"bad env", "", map[string]string{"PODROLL_WORKERS": "many"}, "PODROLL_WORKERS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := isolate(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := filepath.Join(dir, "config.toml")
			writeFile(t, path, tt.body)

			_, _, _, err := Load(path)
			if err == nil {
				t.Fatal("Load() should fail")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should mention %q", err, tt.want)
			}
		})
	}
}

func TestCreateSample_RoundTrip(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "nested", "config.toml")

	if err := CreateSample(path); err != nil {
		t.Fatalf("CreateSample() error = %v", err)
	}
	cfg, _, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !exists {
		t.Fatal("sample not found")
	}
	if cfg.Schedule.Max.Std() != 7*24*time.Hour {
		t.Errorf("Max = %v, want 168h", cfg.Schedule.Max.Std())
	}
	if cfg.Daemon.CrawlCron != DefaultCrawlCron {
		t.Errorf("CrawlCron = %q", cfg.Daemon.CrawlCron)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	writeFile(t, path, "PODROLL_DOTENV_PROBE=loaded\n")
	t.Cleanup(func() { os.Unsetenv("PODROLL_DOTENV_PROBE") })

	if err := LoadDotEnv(filepath.Join(dir, "missing.env"), path); err != nil {
		t.Fatalf("LoadDotEnv() error = %v", err)
	}
	if got := os.Getenv("PODROLL_DOTENV_PROBE"); got != "loaded" {
		t.Errorf("PODROLL_DOTENV_PROBE = %q, want loaded", got)
	}
}

func TestExpandPath(t *testing.T) {
	home := isolate(t)

	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"~", home},
		{"~/x/y.db", filepath.Join(home, "x", "y.db")},
		{"/abs/path", "/abs/path"},
	}
	for _, tt := range tests {
		if got := ExpandPath(tt.in); got != tt.want {
			t.Errorf("ExpandPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
