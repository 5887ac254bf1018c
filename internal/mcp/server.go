// ABOUTME: MCP server implementation for podroll
// ABOUTME: Provides tools, resources, and prompts for AI agents to browse and crawl podcasts

package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/harper/podroll/internal/ingest"
	"github.com/harper/podroll/internal/storage"
)

// Server wraps the MCP server with podroll-specific context
type Server struct {
	mcpServer *server.MCPServer
	store     storage.Store
	ingester  *ingest.Ingester
}

// NewServer creates a new MCP server instance. ingester may be nil, in which
// case the crawl and add tools are not offered.
func NewServer(store storage.Store, ingester *ingest.Ingester, version string) *Server {
	s := &Server{
		store:    store,
		ingester: ingester,
	}

	s.mcpServer = server.NewMCPServer(
		"podroll",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
		server.WithPromptCapabilities(true),
	)

	s.registerTools()
	s.registerResources()
	s.registerPrompts()

	return s
}

// ServeStdio starts the MCP server on stdio
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
