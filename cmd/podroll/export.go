// ABOUTME: Export command for writing tracked podcasts as OPML
// ABOUTME: Groups podcasts into folders by their first category for backup or import elsewhere

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/harper/podroll/internal/opml"
	"github.com/harper/podroll/internal/storage"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export OPML to stdout",
	Long:  "Export every non-duplicate podcast in OPML format to standard output or a file",
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		category, _ := cmd.Flags().GetString("category")

		podcasts, err := store.ListActive(cmd.Context(), storage.ListFilter{Category: category})
		if err != nil {
			return fmt.Errorf("failed to list podcasts: %w", err)
		}

		doc := opml.NewDocument("podroll podcasts")
		for _, p := range podcasts {
			folder := ""
			if len(p.Categories) > 0 {
				folder = p.Categories[0]
			}
			if err := doc.AddFeed(p.RSS, p.Title, folder); err != nil {
				return err
			}
		}

		if output != "" {
			if err := doc.WriteFile(output); err != nil {
				return fmt.Errorf("failed to write OPML: %w", err)
			}
			fmt.Fprintf(os.Stderr, "Exported %d podcast(s) to %s\n", len(podcasts), output)
			return nil
		}
		return doc.Write(os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringP("output", "o", "", "write to file instead of stdout")
	exportCmd.Flags().StringP("category", "c", "", "only export podcasts in this category")
}
