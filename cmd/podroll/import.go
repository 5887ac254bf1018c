// ABOUTME: Import command for loading podcast subscriptions from an OPML file
// ABOUTME: Inserts unseen feed URLs as pending podcasts for the next crawl

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:     "import-opml <file>",
	Aliases: []string{"import"},
	Short:   "Import podcasts from an OPML file",
	Long: `Import every feed URL from an OPML subscription list.

Nested folders are flattened. URLs that are already known are skipped, so
importing the same file twice is harmless. Use "-" to read from stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			data []byte
			err  error
		)
		if args[0] == "-" {
			data, err = io.ReadAll(os.Stdin)
		} else {
			data, err = os.ReadFile(args[0])
		}
		if err != nil {
			return fmt.Errorf("failed to read OPML: %w", err)
		}

		inserted, err := newIngester().ImportOPML(cmd.Context(), data)
		if err != nil {
			return fmt.Errorf("failed to import OPML: %w", err)
		}

		green := color.New(color.FgGreen).SprintFunc()
		faint := color.New(color.Faint).SprintFunc()
		if inserted == 0 {
			fmt.Printf("%s no new podcasts\n", faint("-"))
			return nil
		}
		fmt.Printf("%s imported %d podcast(s)\n", green("v"), inserted)
		fmt.Println(faint("Run 'podroll crawl' to fetch them"))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
}
