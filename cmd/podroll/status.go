// ABOUTME: Status command summarizing the podcast store
// ABOUTME: Shows counts of tracked, excluded, duplicate and errored podcasts

package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show store statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		stats, err := store.Stats(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to read stats: %w", err)
		}

		n := func(v int) string { return humanize.Comma(int64(v)) }
		fmt.Println(renderTable(
			[]string{"", "Count"},
			[][]string{
				{"Podcasts", n(stats.Podcasts)},
				{"Active", n(stats.Active)},
				{"Excluded", n(stats.Excluded)},
				{"Duplicates", n(stats.Duplicates)},
				{"Errored", n(stats.Errored)},
				{"Episodes", n(stats.Episodes)},
				{"With recommendations", n(stats.Recommended)},
			},
			[]columnAlignment{alignLeft, alignRight},
		))
		fmt.Printf("Database: %s\n", cfg.Data.DBPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
