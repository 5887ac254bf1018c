// ABOUTME: MCP resource providers for podroll
// ABOUTME: Exposes read-only views of recently added podcasts and collection statistics

package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/harper/podroll/internal/dates"
	"github.com/harper/podroll/internal/storage"
)

const resourcePodcastLimit = 50

// ResourceData is the standard response format for all resources.
type ResourceData struct {
	Metadata ResourceMetadata  `json:"metadata"`
	Data     interface{}       `json:"data"`
	Links    map[string]string `json:"links"`
}

// ResourceMetadata contains metadata about the resource response.
type ResourceMetadata struct {
	Timestamp   time.Time      `json:"timestamp"`
	Count       int            `json:"count"`
	ResourceURI string         `json:"resource_uri"`
	Filters     map[string]any `json:"filters,omitempty"`
}

func (s *Server) registerResources() {
	s.registerPodcastsResource()
	s.registerRecentResource()
	s.registerStatsResource()
}

func (s *Server) registerPodcastsResource() {
	s.mcpServer.AddResource(
		mcp.Resource{
			URI:         "podroll://podcasts",
			Name:        "Podcasts",
			Description: "The most recently added podcasts that are not duplicates of another feed, with crawl state and parser error",
			MIMEType:    "application/json",
		},
		s.handlePodcastsResource,
	)
}

func (s *Server) handlePodcastsResource(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	podcasts, err := s.store.ListActive(ctx, storage.ListFilter{Limit: resourcePodcastLimit})
	if err != nil {
		return nil, fmt.Errorf("failed to list podcasts: %w", err)
	}

	return jsonResource(request.Params.URI, ResourceData{
		Metadata: ResourceMetadata{
			Timestamp:   time.Now(),
			Count:       len(podcasts),
			ResourceURI: "podroll://podcasts",
			Filters:     map[string]any{"limit": resourcePodcastLimit},
		},
		Data: toPodcastOutputs(podcasts),
		Links: map[string]string{
			"recent": "podroll://podcasts/recent",
			"stats":  "podroll://stats",
		},
	})
}

func (s *Server) registerRecentResource() {
	s.mcpServer.AddResource(
		mcp.Resource{
			URI:         "podroll://podcasts/recent",
			Name:        "Podcasts Added This Week",
			Description: "Podcasts added during the last seven days",
			MIMEType:    "application/json",
		},
		func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
			since, _ := dates.Since("week", time.Now())
			podcasts, err := s.store.ListActive(ctx, storage.ListFilter{Since: &since})
			if err != nil {
				return nil, fmt.Errorf("failed to list podcasts: %w", err)
			}

			return jsonResource(request.Params.URI, ResourceData{
				Metadata: ResourceMetadata{
					Timestamp:   time.Now(),
					Count:       len(podcasts),
					ResourceURI: "podroll://podcasts/recent",
					Filters:     map[string]any{"since": since},
				},
				Data: toPodcastOutputs(podcasts),
				Links: map[string]string{
					"all": "podroll://podcasts",
				},
			})
		},
	)
}

func (s *Server) registerStatsResource() {
	s.mcpServer.AddResource(
		mcp.Resource{
			URI:         "podroll://stats",
			Name:        "Collection Statistics",
			Description: "Counts of podcasts by state, duplicates, errored feeds, episodes and podcasts with recommendations",
			MIMEType:    "application/json",
		},
		s.handleStatsResource,
	)
}

func (s *Server) handleStatsResource(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load stats: %w", err)
	}

	return jsonResource(request.Params.URI, ResourceData{
		Metadata: ResourceMetadata{
			Timestamp:   time.Now(),
			Count:       1,
			ResourceURI: "podroll://stats",
		},
		Data: map[string]int{
			"podcasts":    stats.Podcasts,
			"active":      stats.Active,
			"excluded":    stats.Excluded,
			"duplicates":  stats.Duplicates,
			"errored":     stats.Errored,
			"episodes":    stats.Episodes,
			"recommended": stats.Recommended,
		},
		Links: map[string]string{
			"podcasts": "podroll://podcasts",
		},
	})
}

func jsonResource(uri string, data ResourceData) ([]mcp.ResourceContents, error) {
	jsonBytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resource: %w", err)
	}

	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(jsonBytes),
		},
	}, nil
}
