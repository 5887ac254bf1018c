// ABOUTME: TOML configuration for podroll with .env and PODROLL_* environment overrides
// ABOUTME: Converts settings into the option types the fetcher, scheduler and recommender take

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/harper/podroll/internal/fetch"
	"github.com/harper/podroll/internal/logging"
	"github.com/harper/podroll/internal/recommend"
	"github.com/harper/podroll/internal/schedule"
	"github.com/harper/podroll/internal/storage"
)

// Duration is a time.Duration written as "90s" or "1h30m" in TOML.
type Duration time.Duration

// UnmarshalText parses a Go duration string.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(b)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", b, err)
	}
	*d = Duration(v)
	return nil
}

// MarshalText writes the duration in Go notation.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the standard library duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Data locates the database and the crawl lock.
type Data struct {
	DBPath   string `toml:"db_path" validate:"required"`
	LockFile string `toml:"lock_file"`
}

// Log configures the process logger.
type Log struct {
	Level  string `toml:"level" validate:"oneof=debug info warn warning error"`
	Format string `toml:"format" validate:"oneof=console json"`
	File   string `toml:"file"`
}

// Fetch configures outbound HTTP.
type Fetch struct {
	Timeout   Duration `toml:"timeout" validate:"gt=0"`
	UserAgent string   `toml:"user_agent" validate:"required"`
	Retries   int      `toml:"retries" validate:"gte=0,lte=10"`
	MaxSize   int64    `toml:"max_size" validate:"gt=0"`
}

// Crawl configures batch ingestion.
type Crawl struct {
	Workers    int      `toml:"workers" validate:"gte=1,lte=64"`
	BatchLimit int      `toml:"batch_limit" validate:"gte=1"`
	LeaseTTL   Duration `toml:"lease_ttl" validate:"gt=0"`
}

// Schedule mirrors schedule.Policy.
type Schedule struct {
	Min               Duration `toml:"min_interval" validate:"gt=0"`
	Max               Duration `toml:"max_interval" validate:"gtfield=Min"`
	Base              Duration `toml:"base_interval" validate:"gt=0"`
	Jitter            float64  `toml:"jitter" validate:"gte=0,lt=1"`
	FailureThreshold  int      `toml:"failure_threshold" validate:"gte=1"`
	NotModifiedGrowth float64  `toml:"not_modified_growth" validate:"gte=1"`
}

// Canonical configures duplicate detection.
type Canonical struct {
	FuzzyMatch bool `toml:"fuzzy_match"`
}

// Recommend configures the recommendation batch.
type Recommend struct {
	Keywords  int    `toml:"keywords" validate:"gte=1"`
	TopK      int    `toml:"top_k" validate:"gte=1"`
	MaxBucket int    `toml:"max_bucket" validate:"gte=2"`
	Cron      string `toml:"cron"`
}

// Daemon configures the long-running scheduler.
type Daemon struct {
	CrawlCron string `toml:"crawl_cron"`
}

// Config is the full podroll configuration.
type Config struct {
	Data      Data      `toml:"data"`
	Log       Log       `toml:"log"`
	Fetch     Fetch     `toml:"fetch"`
	Crawl     Crawl     `toml:"crawl"`
	Schedule  Schedule  `toml:"schedule"`
	Canonical Canonical `toml:"canonical"`
	Recommend Recommend `toml:"recommend"`
	Daemon    Daemon    `toml:"daemon"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	pol := schedule.DefaultPolicy()
	return Config{
		Data: Data{DBPath: storage.GetDefaultDBPath()},
		Log:  Log{Level: "info", Format: "console"},
		Fetch: Fetch{
			Timeout:   Duration(DefaultHTTPTimeout),
			UserAgent: fetch.DefaultUserAgent,
			Retries:   DefaultFetchRetries,
			MaxSize:   fetch.MaxResponseSize,
		},
		Crawl: Crawl{
			Workers:    DefaultWorkers,
			BatchLimit: DefaultBatchLimit,
			LeaseTTL:   Duration(DefaultLeaseTTL),
		},
		Schedule: Schedule{
			Min:               Duration(pol.Min),
			Max:               Duration(pol.Max),
			Base:              Duration(pol.Base),
			Jitter:            pol.Jitter,
			FailureThreshold:  pol.FailureThreshold,
			NotModifiedGrowth: pol.NotModifiedGrowth,
		},
		Recommend: Recommend{
			Keywords:  recommend.DefaultKeywords,
			TopK:      recommend.DefaultTopK,
			MaxBucket: recommend.DefaultMaxBucket,
			Cron:      DefaultRecommendCron,
		},
		Daemon: Daemon{CrawlCron: DefaultCrawlCron},
	}
}

// DefaultConfigPath returns $XDG_CONFIG_HOME/podroll/config.toml.
func DefaultConfigPath() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, _ := os.UserHomeDir()
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "podroll", "config.toml")
}

// LoadDotEnv loads KEY=VALUE files into the environment without overriding
// variables that are already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Load reads the file at path (the default location when empty), applies
// PODROLL_* environment overrides and validates the result. It reports the
// resolved path and whether a file was found there.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	if path == "" {
		path = DefaultConfigPath()
	}
	path = ExpandPath(path)

	exists := true
	file, err := os.Open(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		exists = false
	case err != nil:
		return nil, "", false, fmt.Errorf("open config: %w", err)
	default:
		defer file.Close()
		dec := toml.NewDecoder(file)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, "", false, err
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, path, exists, nil
}

// env overrides, keyed by variable name
var envSetters = map[string]func(c *Config, v string) error{
	"PODROLL_DB":         func(c *Config, v string) error { c.Data.DBPath = v; return nil },
	"PODROLL_LOG_LEVEL":  func(c *Config, v string) error { c.Log.Level = v; return nil },
	"PODROLL_LOG_FORMAT": func(c *Config, v string) error { c.Log.Format = v; return nil },
	"PODROLL_LOG_FILE":   func(c *Config, v string) error { c.Log.File = v; return nil },
	"PODROLL_USER_AGENT": func(c *Config, v string) error { c.Fetch.UserAgent = v; return nil },
	"PODROLL_WORKERS": func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		c.Crawl.Workers = n
		return err
	},
	"PODROLL_FUZZY_MATCH": func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		c.Canonical.FuzzyMatch = b
		return err
	},
}

func (c *Config) applyEnv() error {
	for key, set := range envSetters {
		v, ok := os.LookupEnv(key)
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		if err := set(c, strings.TrimSpace(v)); err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
	}
	return nil
}

func (c *Config) normalize() {
	c.Data.DBPath = ExpandPath(c.Data.DBPath)
	c.Log.File = ExpandPath(c.Log.File)
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
	if c.Data.LockFile == "" && c.Data.DBPath != "" {
		c.Data.LockFile = filepath.Join(filepath.Dir(c.Data.DBPath), "crawl.lock")
	}
	c.Data.LockFile = ExpandPath(c.Data.LockFile)
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if path == "" {
		return ""
	}
	if path == "~" {
		home, _ := os.UserHomeDir()
		return home
	}
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// CreateSample writes the default configuration to path.
func CreateSample(path string) error {
	cfg := Default()
	return cfg.Save(path)
}

// Save validates the config and writes it to path as TOML.
func (c *Config) Save(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), DefaultDirPerms); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// SchedulePolicy returns the crawl scheduler policy.
func (c *Config) SchedulePolicy() schedule.Policy {
	return schedule.Policy{
		Min:               c.Schedule.Min.Std(),
		Max:               c.Schedule.Max.Std(),
		Base:              c.Schedule.Base.Std(),
		Jitter:            c.Schedule.Jitter,
		FailureThreshold:  c.Schedule.FailureThreshold,
		NotModifiedGrowth: c.Schedule.NotModifiedGrowth,
	}
}

// FetchOptions returns the fetcher options for the configured HTTP settings.
func (c *Config) FetchOptions() []fetch.Option {
	return []fetch.Option{
		fetch.WithTimeout(c.Fetch.Timeout.Std()),
		fetch.WithUserAgent(c.Fetch.UserAgent),
		fetch.WithRetries(c.Fetch.Retries, DefaultRetryDelay, DefaultRetryMaxDelay),
		fetch.WithMaxSize(c.Fetch.MaxSize),
	}
}

// LoggingOptions returns the logger options.
func (c *Config) LoggingOptions() logging.Options {
	return logging.Options{
		Level:  c.Log.Level,
		Format: c.Log.Format,
		File:   c.Log.File,
	}
}

// RecommendOptions returns the recommender options.
func (c *Config) RecommendOptions() recommend.Options {
	return recommend.Options{
		Keywords:  c.Recommend.Keywords,
		TopK:      c.Recommend.TopK,
		MaxBucket: c.Recommend.MaxBucket,
	}
}
