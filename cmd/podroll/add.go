// ABOUTME: Add command to subscribe to a podcast by feed or website URL
// ABOUTME: Discovers the feed behind a website and crawls it straight away

package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var addCmd = &cobra.Command{
	Use:   "add <url>",
	Short: "Add a podcast",
	Long: `Add a podcast by its feed URL or by a website that links to its feed.

Website URLs are searched for <link rel="alternate"> tags and common feed
paths. The new podcast is crawled immediately unless --no-crawl is given.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		noCrawl, _ := cmd.Flags().GetBool("no-crawl")

		in := newIngester()
		p, created, err := in.Add(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to add podcast: %w", err)
		}

		faint := color.New(color.Faint).SprintFunc()
		if !created {
			fmt.Printf("%s already tracked as %s %s\n", faint("-"), faint(shortID(p.ID)), p.DisplayName())
			return nil
		}
		fmt.Printf("%s added %s %s\n", color.GreenString("v"), faint(shortID(p.ID)), p.RSS)

		if noCrawl {
			return nil
		}
		fmt.Printf("Crawling %s... ", p.RSS)
		res, err := in.Run(cmd.Context(), p, false)
		if err != nil {
			fmt.Println(color.RedString("x"))
			return err
		}
		printResult(res)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(addCmd)
	addCmd.Flags().Bool("no-crawl", false, "add without crawling")
}
