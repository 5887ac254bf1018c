// ABOUTME: Root Cobra command and global flags
// ABOUTME: Loads configuration, builds the logger and opens the podcast store for every subcommand

package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/harper/podroll/internal/canonical"
	"github.com/harper/podroll/internal/config"
	"github.com/harper/podroll/internal/fetch"
	"github.com/harper/podroll/internal/ingest"
	"github.com/harper/podroll/internal/logging"
	"github.com/harper/podroll/internal/storage"
)

var (
	dbPath     string
	configPath string
	logLevel   string
	cfg        *config.Config
	logger     *slog.Logger
	store      *storage.SQLiteStore
)

var rootCmd = &cobra.Command{
	Use:   "podroll",
	Short: "Podcast feed crawler with duplicate detection and recommendations",
	Long: `
██████╗  ██████╗ ██████╗ ██████╗  ██████╗ ██╗     ██╗
██╔══██╗██╔═══██╗██╔══██╗██╔══██╗██╔═══██╗██║     ██║
██████╔╝██║   ██║██║  ██║██████╔╝██║   ██║██║     ██║
██╔═══╝ ██║   ██║██║  ██║██╔══██╗██║   ██║██║     ██║
██║     ╚██████╔╝██████╔╝██║  ██║╚██████╔╝███████╗███████╗
╚═╝      ╚═════╝ ╚═════╝ ╚═╝  ╚═╝ ╚═════╝ ╚══════╝╚══════╝

Podcast directory crawler.

Import OPML subscriptions, crawl RSS/Atom feeds on an adaptive schedule,
fold duplicate feeds together and compute similar-podcast recommendations.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadDotEnv(); err != nil {
			return err
		}

		loaded, _, _, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
		if dbPath != "" {
			cfg.Data.DBPath = config.ExpandPath(dbPath)
		}
		if logLevel != "" {
			cfg.Log.Level = logLevel
		}

		logger, err = logging.New(cfg.LoggingOptions())
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}

		store, err = storage.NewSQLiteStore(cfg.Data.DBPath)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if store != nil {
			err := store.Close()
			store = nil
			if err != nil {
				return fmt.Errorf("failed to close database: %w", err)
			}
		}
		return nil
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database file path (default: ~/.local/share/podroll/podroll.db)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default: ~/.config/podroll/config.toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
}

// newIngester wires the fetch-parse-store pipeline from the loaded config.
func newIngester() *ingest.Ingester {
	fetcher := fetch.New(cfg.FetchOptions()...)
	resolver := canonical.NewResolver(store, canonical.WithFuzzyMatch(cfg.Canonical.FuzzyMatch))
	return ingest.New(store, fetcher,
		ingest.WithLogger(logger),
		ingest.WithPolicy(cfg.SchedulePolicy()),
		ingest.WithResolver(resolver),
		ingest.WithLeaseTTL(cfg.Crawl.LeaseTTL.Std()),
	)
}

// shortID trims an ID for display.
func shortID(id string) string {
	if len(id) > config.DisplayIDLength {
		return id[:config.DisplayIDLength]
	}
	return id
}
