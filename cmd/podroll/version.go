// ABOUTME: Version command for podroll CLI
// ABOUTME: Displays version, commit, build date and the database schema version

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version information set via ldflags at build time
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  "Print the version, commit hash, build date and schema version of podroll.",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("podroll %s\n", Version)
		fmt.Printf("  commit:  %s\n", Commit)
		fmt.Printf("  built:   %s\n", BuildDate)

		schema, dirty, err := store.SchemaVersion()
		if err != nil {
			return fmt.Errorf("failed to read schema version: %w", err)
		}
		state := ""
		if dirty {
			state = " (dirty)"
		}
		fmt.Printf("  schema:  %d%s\n", schema, state)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
