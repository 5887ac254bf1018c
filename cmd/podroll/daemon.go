// ABOUTME: Daemon command that crawls and recomputes recommendations on cron schedules
// ABOUTME: Runs until interrupted; overlapping runs of the same job are skipped

package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/harper/podroll/internal/ingest"
	"github.com/harper/podroll/internal/recommend"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Crawl and recommend on a schedule",
	Long: `Run crawl batches and recommendation rebuilds on the cron schedules from
the config file ([daemon] crawl_cron and [recommend] cron). An empty schedule
disables that job. Stops cleanly on SIGINT or SIGTERM.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		runNow, _ := cmd.Flags().GetBool("now")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		in := newIngester()
		crawl := func() {
			report, err := in.Batch(ctx, ingest.BatchOptions{
				Limit:    cfg.Crawl.BatchLimit,
				Workers:  cfg.Crawl.Workers,
				LockPath: cfg.Data.LockFile,
			})
			switch {
			case errors.Is(err, ingest.ErrBatchRunning):
				logger.Info("crawl skipped, another batch holds the lock")
			case err != nil:
				logger.Error("crawl failed", "error", err)
			default:
				logger.Info("crawl finished",
					"due", report.Due, "updated", report.Updated, "unchanged", report.Unchanged,
					"duplicates", report.Duplicates, "errored", report.Errored, "episodes", report.Episodes)
			}
		}
		rebuild := func() {
			if _, err := recommend.Run(ctx, store, cfg.RecommendOptions(), logger); err != nil {
				logger.Error("recommendations failed", "error", err)
			}
		}

		cl := cronLogger{logger}
		c := cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)))
		jobs := 0
		for _, job := range []struct {
			name, spec string
			run        func()
		}{
			{"crawl", cfg.Daemon.CrawlCron, crawl},
			{"recommend", cfg.Recommend.Cron, rebuild},
		} {
			if job.spec == "" {
				continue
			}
			if _, err := c.AddFunc(job.spec, job.run); err != nil {
				return fmt.Errorf("schedule %s job: %w", job.name, err)
			}
			logger.Info("scheduled job", "job", job.name, "cron", job.spec)
			jobs++
		}
		if jobs == 0 {
			return errors.New("no schedules configured")
		}

		if runNow {
			crawl()
		}

		c.Start()
		<-ctx.Done()
		logger.Info("shutting down")
		<-c.Stop().Done()
		return nil
	},
}

// cronLogger routes cron's scheduler logs through slog.
type cronLogger struct {
	l *slog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}

func init() {
	rootCmd.AddCommand(daemonCmd)
	daemonCmd.Flags().Bool("now", false, "run a crawl immediately before waiting for the schedule")
}
