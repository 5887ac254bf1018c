// ABOUTME: Merge command for folding a duplicate podcast into its canonical podcast
// ABOUTME: Operator counterpart to automatic duplicate detection during crawls

package main

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harper/podroll/internal/canonical"
)

var mergeCmd = &cobra.Command{
	Use:   "merge <duplicate> <canonical>",
	Short: "Mark a podcast as a duplicate of another",
	Long: `Mark the first podcast as a duplicate of the second.

The duplicate keeps its episodes but is no longer crawled or listed. Podcasts
that pointed at the duplicate are re-pointed at the canonical podcast.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		dup, err := store.GetPodcastByRef(ctx, args[0])
		if err != nil {
			return fmt.Errorf("duplicate podcast not found: %w", err)
		}
		canon, err := store.GetPodcastByRef(ctx, args[1])
		if err != nil {
			return fmt.Errorf("canonical podcast not found: %w", err)
		}

		if err := canonical.Merge(ctx, store, dup.ID, canon.ID); err != nil {
			if errors.Is(err, canonical.ErrCycle) {
				return fmt.Errorf("%s already resolves to %s", canon.DisplayName(), dup.DisplayName())
			}
			return fmt.Errorf("failed to merge: %w", err)
		}

		fmt.Printf("%s %s is now a duplicate of %s\n", color.GreenString("v"), dup.DisplayName(), canon.DisplayName())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(mergeCmd)
}
