// ABOUTME: List command for browsing tracked podcasts with filtering options
// ABOUTME: Renders podcasts as a table with crawl state and relative crawl times

package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harper/podroll/internal/config"
	"github.com/harper/podroll/internal/dates"
	"github.com/harper/podroll/internal/models"
	"github.com/harper/podroll/internal/storage"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls", "l"},
	Short:   "List podcasts",
	Long:    "List tracked podcasts, optionally filtered by category, age or a full-text search",
	RunE: func(cmd *cobra.Command, args []string) error {
		category, _ := cmd.Flags().GetString("category")
		since, _ := cmd.Flags().GetString("since")
		search, _ := cmd.Flags().GetString("search")
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		var (
			podcasts []*models.Podcast
			err      error
		)
		if search != "" {
			podcasts, err = store.Search(cmd.Context(), search, limit)
		} else {
			filter := storage.ListFilter{Category: category, Limit: limit, Offset: offset}
			if since != "" {
				cutoff, ok := dates.Since(since, time.Now())
				if !ok {
					return fmt.Errorf("unknown period %q (use today, yesterday, week or month)", since)
				}
				filter.Since = &cutoff
			}
			podcasts, err = store.ListActive(cmd.Context(), filter)
		}
		if err != nil {
			return fmt.Errorf("failed to list podcasts: %w", err)
		}

		if len(podcasts) == 0 {
			fmt.Println("No podcasts found")
			return nil
		}

		rows := make([][]string, 0, len(podcasts))
		for _, p := range podcasts {
			rows = append(rows, []string{
				shortID(p.ID),
				p.DisplayName(),
				strings.Join(p.Categories, ", "),
				stateLabel(p),
				relative(p.ParsedAt),
				relative(p.NextPollAt),
			})
		}
		fmt.Println(renderTable(
			[]string{"ID", "Title", "Categories", "State", "Updated", "Next poll"},
			rows,
			[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight},
		))
		return nil
	},
}

// stateLabel colors a podcast's crawl state and last error.
func stateLabel(p *models.Podcast) string {
	label := string(p.State)
	switch {
	case p.IsDuplicate():
		return color.New(color.Faint).Sprint(label)
	case !p.Active:
		label += " (excluded)"
	case p.ParserError != models.ParserErrorNone && p.ParserError != models.ParserErrorNotModified:
		label += " (" + string(p.ParserError) + ")"
	default:
		return color.GreenString(label)
	}
	return color.RedString(label)
}

func relative(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return humanize.Time(*t)
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringP("category", "c", "", "filter by category")
	listCmd.Flags().StringP("since", "s", "", "only podcasts added since: today, yesterday, week, month")
	listCmd.Flags().StringP("search", "q", "", "full-text search over title, description and keywords")
	listCmd.Flags().IntP("limit", "n", config.DefaultListLimit, "max podcasts to show")
	listCmd.Flags().IntP("offset", "o", 0, "number of podcasts to skip (for pagination)")

	listCmd.MarkFlagsMutuallyExclusive("search", "category")
	listCmd.MarkFlagsMutuallyExclusive("search", "since")
}
