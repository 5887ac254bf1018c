// ABOUTME: Show command for viewing one podcast in detail
// ABOUTME: Renders the description as markdown and lists recent episodes and recommendations

package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harper/podroll/internal/config"
	"github.com/harper/podroll/internal/content"
	"github.com/harper/podroll/internal/storage"
)

var showCmd = &cobra.Command{
	Use:   "show <podcast>",
	Short: "Show a podcast",
	Long:  "Display a podcast's details, recent episodes and recommended podcasts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		episodes, _ := cmd.Flags().GetInt("episodes")
		ctx := cmd.Context()

		p, err := store.GetPodcastByRef(ctx, args[0])
		if err != nil {
			return fmt.Errorf("podcast not found: %w", err)
		}

		bold := color.New(color.Bold).SprintFunc()
		faint := color.New(color.Faint).SprintFunc()
		cyan := color.New(color.FgCyan).SprintFunc()

		fmt.Println(strings.Repeat("─", config.SeparatorWidth))
		fmt.Printf("%s\n\n", bold(p.DisplayName()))
		fmt.Printf("%s %s\n", faint("ID:"), p.ID)
		fmt.Printf("%s %s\n", faint("Feed:"), cyan(p.RSS))
		if p.Link != "" {
			fmt.Printf("%s %s\n", faint("Site:"), cyan(p.Link))
		}
		if p.Owner != "" {
			fmt.Printf("%s %s\n", faint("Owner:"), p.Owner)
		}
		if len(p.Categories) > 0 {
			fmt.Printf("%s %s\n", faint("Categories:"), strings.Join(p.Categories, ", "))
		}
		fmt.Printf("%s %s\n", faint("State:"), stateLabel(p))
		if p.CanonicalID != nil {
			fmt.Printf("%s %s\n", faint("Duplicate of:"), *p.CanonicalID)
		}
		if p.ParsedAt != nil {
			fmt.Printf("%s %s\n", faint("Updated:"), p.ParsedAt.Format(config.DateFormatLong))
		}
		if p.NextPollAt != nil {
			fmt.Printf("%s %s (every %s)\n", faint("Next poll:"), humanize.Time(*p.NextPollAt), p.PollInterval)
		}
		fmt.Println(strings.Repeat("─", config.SeparatorWidth))

		if p.Description != "" {
			markdown := content.ToMarkdown(p.Description)
			rendered, err := glamour.Render(markdown, "dark")
			if err != nil {
				fmt.Printf("\n%s\n", markdown)
			} else {
				fmt.Print(rendered)
			}
		}

		if err := showEpisodes(cmd, p.ID, episodes); err != nil {
			return err
		}
		return showRecommendations(cmd, p.ID)
	},
}

func showEpisodes(cmd *cobra.Command, podcastID string, limit int) error {
	total, err := store.CountEpisodes(cmd.Context(), podcastID)
	if err != nil {
		return fmt.Errorf("failed to count episodes: %w", err)
	}
	if total == 0 {
		fmt.Println("\n(No episodes)")
		return nil
	}

	eps, err := store.Episodes(cmd.Context(), podcastID, limit)
	if err != nil {
		return fmt.Errorf("failed to list episodes: %w", err)
	}

	fmt.Printf("\nEpisodes (%s)\n", humanize.Comma(int64(total)))
	rows := make([][]string, 0, len(eps))
	for _, e := range eps {
		size := "-"
		if e.Length > 0 {
			size = humanize.Bytes(uint64(e.Length))
		}
		dur := e.Duration
		if dur == "" {
			dur = "-"
		}
		rows = append(rows, []string{e.PubDate.Format(config.DateFormatShort), e.Title, dur, size})
	}
	fmt.Println(renderTable(
		[]string{"Published", "Title", "Duration", "Size"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight},
	))
	return nil
}

func showRecommendations(cmd *cobra.Command, podcastID string) error {
	recs, err := store.Recommendations(cmd.Context(), podcastID, 0)
	if err != nil {
		return fmt.Errorf("failed to load recommendations: %w", err)
	}
	if len(recs) == 0 {
		return nil
	}

	faint := color.New(color.Faint).SprintFunc()
	fmt.Println("\nSimilar podcasts")
	for _, r := range recs {
		other, err := store.GetPodcast(cmd.Context(), r.RecommendedID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			return fmt.Errorf("failed to load podcast: %w", err)
		}
		fmt.Printf("  %s %s %s\n", faint(shortID(other.ID)), other.DisplayName(), faint(fmt.Sprintf("%.2f", r.Score)))
	}
	return nil
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().IntP("episodes", "e", 10, "number of recent episodes to show")
}
