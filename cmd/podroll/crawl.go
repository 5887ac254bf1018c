// ABOUTME: Crawl command to fetch, parse and store due podcasts or a single podcast
// ABOUTME: Prints colored per-outcome summaries of updated, unchanged and errored feeds

package main

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harper/podroll/internal/ingest"
	"github.com/harper/podroll/internal/models"
)

var crawlCmd = &cobra.Command{
	Use:   "crawl [podcast]",
	Short: "Crawl feeds that are due",
	Long: `Crawl every podcast whose next poll time has passed, or a single podcast
given by ID, ID prefix or feed URL.

Conditional requests (ETag, Last-Modified) skip unchanged feeds. Use --force to
fetch and re-apply every feed unconditionally. Podcasts excluded after repeated
failures are skipped unless --all is given or they are named directly.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		all, _ := cmd.Flags().GetBool("all")
		limit, _ := cmd.Flags().GetInt("limit")
		workers, _ := cmd.Flags().GetInt("workers")

		in := newIngester()

		if len(args) == 1 {
			p, err := store.GetPodcastByRef(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("podcast not found: %w", err)
			}
			fmt.Printf("Crawling %s... ", p.DisplayName())
			res, err := in.Run(cmd.Context(), p, force)
			if err != nil {
				fmt.Printf("%s\n", color.RedString("x"))
				return err
			}
			printResult(res)
			return nil
		}

		if limit <= 0 {
			limit = cfg.Crawl.BatchLimit
		}
		if workers <= 0 {
			workers = cfg.Crawl.Workers
		}

		report, err := in.Batch(cmd.Context(), ingest.BatchOptions{
			Limit:           limit,
			Workers:         workers,
			IncludeExcluded: all,
			Force:           force,
			LockPath:        cfg.Data.LockFile,
		})
		if errors.Is(err, ingest.ErrBatchRunning) {
			fmt.Println("Another crawl is already running")
			return nil
		}
		if err != nil {
			return fmt.Errorf("crawl failed: %w", err)
		}

		printReport(report)
		return nil
	},
}

func printResult(res *ingest.Result) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	faint := color.New(color.Faint).SprintFunc()

	switch res.Outcome {
	case models.ParserErrorNone:
		fmt.Printf("%s %d new, %d updated", green("v"), res.Inserted, res.Updated)
		if res.Failed > 0 {
			fmt.Printf(", %s", red(fmt.Sprintf("%d failed", res.Failed)))
		}
		if res.Skipped > 0 {
			fmt.Printf(", %s", faint(fmt.Sprintf("%d skipped", res.Skipped)))
		}
		fmt.Println()
	case models.ParserErrorNotModified:
		fmt.Printf("%s (not modified)\n", faint("-"))
	case models.ParserErrorDuplicate:
		fmt.Printf("%s duplicate of %s\n", faint("="), shortID(res.CanonicalID))
	default:
		fmt.Printf("%s %s\n", red("x"), res.Outcome)
	}
}

func printReport(r *ingest.Report) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	faint := color.New(color.Faint).SprintFunc()

	if r.Due == 0 {
		fmt.Println("No podcasts due")
		return
	}

	fmt.Printf("Summary: %d podcast(s) crawled\n", r.Due)
	if r.Updated > 0 {
		fmt.Printf("  %s %d updated (%d episodes)\n", green("v"), r.Updated, r.Episodes)
	}
	if r.Unchanged > 0 {
		fmt.Printf("  %s %d unchanged\n", faint("-"), r.Unchanged)
	}
	if r.Duplicates > 0 {
		fmt.Printf("  %s %d duplicates merged\n", faint("="), r.Duplicates)
	}
	if r.Leased > 0 {
		fmt.Printf("  %s %d busy in another worker\n", faint("~"), r.Leased)
	}
	if r.Errored > 0 {
		fmt.Printf("  %s %d errors\n", red("x"), r.Errored)
	}
}

func init() {
	rootCmd.AddCommand(crawlCmd)
	crawlCmd.Flags().BoolP("force", "f", false, "ignore cache headers and content hash")
	crawlCmd.Flags().BoolP("all", "a", false, "include podcasts excluded after repeated failures")
	crawlCmd.Flags().IntP("limit", "n", 0, "max podcasts to crawl (default from config)")
	crawlCmd.Flags().IntP("workers", "w", 0, "concurrent workers (default from config)")
}
