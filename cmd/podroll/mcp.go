// ABOUTME: MCP server command for podroll CLI
// ABOUTME: Starts stdio-based MCP server for AI agent integration

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harper/podroll/internal/mcp"
)

var mcpReadOnly bool

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server for AI agents",
	Long: `Start the Model Context Protocol (MCP) server on stdio.

This allows AI agents like Claude to browse and search your podcasts,
look up recommendations, and crawl or add feeds through structured tools.

The server communicates via JSON-RPC on stdin/stdout, so logs go to the
configured log file or stderr.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ingester := newIngester()
		if mcpReadOnly {
			ingester = nil
		}
		server := mcp.NewServer(store, ingester, Version)

		if err := server.ServeStdio(); err != nil {
			return fmt.Errorf("MCP server error: %w", err)
		}

		return nil
	},
}

func init() {
	mcpCmd.Flags().BoolVar(&mcpReadOnly, "read-only", false, "Only offer tools that do not fetch feeds")
	rootCmd.AddCommand(mcpCmd)
}
