// ABOUTME: Recommend command to recompute similar-podcast recommendations
// ABOUTME: Rebuilds every podcast's top matches from the current store contents

package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harper/podroll/internal/recommend"
)

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Recompute recommendations",
	Long:  "Recompute similar-podcast recommendations from titles, descriptions, keywords and categories",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := cfg.RecommendOptions()
		if topK, _ := cmd.Flags().GetInt("top-k"); topK > 0 {
			opts.TopK = topK
		}

		summary, err := recommend.Run(cmd.Context(), store, opts, logger)
		if err != nil {
			return fmt.Errorf("failed to compute recommendations: %w", err)
		}

		fmt.Printf("%s %d recommendation(s) across %d podcast(s) in %s\n",
			color.GreenString("v"), summary.Edges, summary.Podcasts, summary.Duration.Round(time.Millisecond))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(recommendCmd)
	recommendCmd.Flags().Int("top-k", 0, "recommendations kept per podcast (default from config)")
}
