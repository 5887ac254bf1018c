// ABOUTME: MCP tool definitions and handlers for podcast and episode operations
// ABOUTME: Lets agents list, search and inspect podcasts and trigger crawls of single feeds

package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/harper/podroll/internal/content"
	"github.com/harper/podroll/internal/dates"
	"github.com/harper/podroll/internal/models"
	"github.com/harper/podroll/internal/storage"
)

const (
	defaultEpisodes = 10
	maxLimit        = 500
)

// Type definitions for input/output structures

type ListPodcastsInput struct {
	Category string `json:"category,omitempty"`
	Since    string `json:"since,omitempty"`
	Limit    *int   `json:"limit,omitempty"`
	Offset   *int   `json:"offset,omitempty"`
}

type SearchPodcastsInput struct {
	Query string `json:"query"`
	Limit *int   `json:"limit,omitempty"`
}

type PodcastRefInput struct {
	Podcast  string `json:"podcast"`
	Episodes *int   `json:"episodes,omitempty"`
	Force    bool   `json:"force,omitempty"`
}

type AddPodcastInput struct {
	URL string `json:"url"`
}

type PodcastOutput struct {
	ID          string     `json:"id"`
	RSS         string     `json:"rss"`
	Title       string     `json:"title,omitempty"`
	Link        string     `json:"link,omitempty"`
	Language    string     `json:"language,omitempty"`
	Categories  []string   `json:"categories,omitempty"`
	State       string     `json:"state"`
	Active      bool       `json:"active"`
	ParserError string     `json:"parser_error,omitempty"`
	CanonicalID string     `json:"canonical_id,omitempty"`
	ParsedAt    *time.Time `json:"parsed_at,omitempty"`
	NextPollAt  *time.Time `json:"next_poll_at,omitempty"`
}

type ListPodcastsOutput struct {
	Podcasts []PodcastOutput `json:"podcasts"`
	Count    int             `json:"count"`
	Filters  map[string]any  `json:"filters,omitempty"`
}

type EpisodeOutput struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	PubDate  time.Time `json:"pub_date"`
	MediaURL string    `json:"media_url"`
	Duration string    `json:"duration,omitempty"`
	Season   int32     `json:"season,omitempty"`
	Number   int32     `json:"number,omitempty"`
}

type RecommendationOutput struct {
	ID    string  `json:"id"`
	Title string  `json:"title"`
	Score float64 `json:"score"`
}

type GetPodcastOutput struct {
	PodcastOutput
	Description     string                 `json:"description,omitempty"`
	Owner           string                 `json:"owner,omitempty"`
	EpisodeCount    int                    `json:"episode_count"`
	Episodes        []EpisodeOutput        `json:"episodes"`
	Recommendations []RecommendationOutput `json:"recommendations"`
}

type CrawlOutput struct {
	Podcast     string `json:"podcast"`
	Outcome     string `json:"outcome"`
	Inserted    int    `json:"inserted"`
	Updated     int    `json:"updated"`
	Failed      int    `json:"failed"`
	Skipped     int    `json:"skipped"`
	CanonicalID string `json:"canonical_id,omitempty"`
}

type AddPodcastOutput struct {
	Podcast PodcastOutput `json:"podcast"`
	Created bool          `json:"created"`
	Crawl   *CrawlOutput  `json:"crawl,omitempty"`
}

// Tool registration

func (s *Server) registerTools() {
	s.registerListPodcastsTool()
	s.registerSearchPodcastsTool()
	s.registerGetPodcastTool()
	if s.ingester != nil {
		s.registerCrawlPodcastTool()
		s.registerAddPodcastTool()
	}
}

func (s *Server) registerListPodcastsTool() {
	tool := mcp.Tool{
		Name:        "list_podcasts",
		Description: "List tracked podcasts, newest first. Duplicate feeds that were folded into another podcast are left out. Filter by category, or use 'since' with 'today', 'yesterday', 'week' or 'month' to see recently added podcasts.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"category": map[string]interface{}{
					"type":        "string",
					"description": "Only podcasts declaring this category (case-insensitive). Example: 'Technology'",
				},
				"since": map[string]interface{}{
					"type":        "string",
					"description": "Only podcasts added since: 'today', 'yesterday', 'week' or 'month'",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of podcasts to return. Default: 50",
				},
				"offset": map[string]interface{}{
					"type":        "integer",
					"description": "Number of podcasts to skip for pagination",
				},
			},
		},
	}
	s.mcpServer.AddTool(tool, s.handleListPodcasts)
}

func (s *Server) registerSearchPodcastsTool() {
	tool := mcp.Tool{
		Name:        "search_podcasts",
		Description: "Full-text search over podcast titles, descriptions and keywords. Every word must match.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search words. Example: 'distributed systems'",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results. Default: 20",
				},
			},
			Required: []string{"query"},
		},
	}
	s.mcpServer.AddTool(tool, s.handleSearchPodcasts)
}

func (s *Server) registerGetPodcastTool() {
	tool := mcp.Tool{
		Name:        "get_podcast",
		Description: "Get one podcast with its description as Markdown, its most recent episodes and similar podcasts. Accepts a podcast ID, an ID prefix of at least 6 characters or the feed URL.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"podcast": map[string]interface{}{
					"type":        "string",
					"description": "Podcast ID, ID prefix or feed URL",
				},
				"episodes": map[string]interface{}{
					"type":        "integer",
					"description": "Number of recent episodes to include. Default: 10",
				},
			},
			Required: []string{"podcast"},
		},
	}
	s.mcpServer.AddTool(tool, s.handleGetPodcast)
}

func (s *Server) registerCrawlPodcastTool() {
	tool := mcp.Tool{
		Name:        "crawl_podcast",
		Description: "Fetch and parse one podcast feed now, regardless of its schedule. Unchanged feeds report 'not_modified'; set force=true to re-apply the feed anyway.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"podcast": map[string]interface{}{
					"type":        "string",
					"description": "Podcast ID, ID prefix or feed URL",
				},
				"force": map[string]interface{}{
					"type":        "boolean",
					"description": "Ignore cache headers and the stored content hash. Default: false",
				},
			},
			Required: []string{"podcast"},
		},
	}
	s.mcpServer.AddTool(tool, s.handleCrawlPodcast)
}

func (s *Server) registerAddPodcastTool() {
	tool := mcp.Tool{
		Name:        "add_podcast",
		Description: "Subscribe to a podcast by feed URL or by a website that links to its feed, then crawl it once.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"url": map[string]interface{}{
					"type":        "string",
					"description": "Feed or website URL. Example: 'https://example.com/podcast'",
				},
			},
			Required: []string{"url"},
		},
	}
	s.mcpServer.AddTool(tool, s.handleAddPodcast)
}

// Handlers

func (s *Server) handleListPodcasts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input ListPodcastsInput
	if err := req.BindArguments(&input); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	filter := storage.ListFilter{Category: input.Category, Limit: 50}
	filters := map[string]any{}
	if input.Limit != nil {
		if *input.Limit < 0 {
			return nil, fmt.Errorf("limit must be non-negative, got %d", *input.Limit)
		}
		filter.Limit = min(*input.Limit, maxLimit)
		filters["limit"] = filter.Limit
	}
	if input.Offset != nil {
		if *input.Offset < 0 {
			return nil, fmt.Errorf("offset must be non-negative, got %d", *input.Offset)
		}
		filter.Offset = *input.Offset
		filters["offset"] = filter.Offset
	}
	if input.Category != "" {
		filters["category"] = input.Category
	}
	if input.Since != "" {
		since, ok := dates.Since(input.Since, time.Now())
		if !ok {
			return nil, fmt.Errorf("unknown period %q", input.Since)
		}
		filter.Since = &since
		filters["since"] = since
	}

	podcasts, err := s.store.ListActive(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list podcasts: %w", err)
	}

	return jsonResult(ListPodcastsOutput{
		Podcasts: toPodcastOutputs(podcasts),
		Count:    len(podcasts),
		Filters:  filters,
	})
}

func (s *Server) handleSearchPodcasts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input SearchPodcastsInput
	if err := req.BindArguments(&input); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	if input.Query == "" {
		return nil, fmt.Errorf("query is required")
	}

	limit := 0
	if input.Limit != nil {
		limit = min(*input.Limit, maxLimit)
	}
	podcasts, err := s.store.Search(ctx, input.Query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search podcasts: %w", err)
	}

	return jsonResult(ListPodcastsOutput{
		Podcasts: toPodcastOutputs(podcasts),
		Count:    len(podcasts),
		Filters:  map[string]any{"query": input.Query},
	})
}

func (s *Server) handleGetPodcast(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input PodcastRefInput
	if err := req.BindArguments(&input); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	p, err := s.store.GetPodcastByRef(ctx, input.Podcast)
	if err != nil {
		return nil, fmt.Errorf("podcast not found: %s", input.Podcast)
	}

	limit := defaultEpisodes
	if input.Episodes != nil && *input.Episodes >= 0 {
		limit = min(*input.Episodes, maxLimit)
	}

	output := GetPodcastOutput{
		PodcastOutput:   toPodcastOutput(p),
		Owner:           p.Owner,
		Episodes:        []EpisodeOutput{},
		Recommendations: []RecommendationOutput{},
	}
	if p.Description != "" {
		output.Description = content.ToMarkdown(p.Description)
	}

	if output.EpisodeCount, err = s.store.CountEpisodes(ctx, p.ID); err != nil {
		return nil, fmt.Errorf("failed to count episodes: %w", err)
	}
	if limit > 0 {
		episodes, err := s.store.Episodes(ctx, p.ID, limit)
		if err != nil {
			return nil, fmt.Errorf("failed to list episodes: %w", err)
		}
		for _, e := range episodes {
			output.Episodes = append(output.Episodes, EpisodeOutput{
				ID:       e.ID,
				Title:    e.Title,
				PubDate:  e.PubDate,
				MediaURL: e.MediaURL,
				Duration: e.Duration,
				Season:   e.Season,
				Number:   e.Number,
			})
		}
	}

	recs, err := s.store.Recommendations(ctx, p.ID, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to load recommendations: %w", err)
	}
	for _, r := range recs {
		other, err := s.store.GetPodcast(ctx, r.RecommendedID)
		if err != nil {
			continue
		}
		output.Recommendations = append(output.Recommendations, RecommendationOutput{
			ID:    other.ID,
			Title: other.DisplayName(),
			Score: r.Score,
		})
	}

	return jsonResult(output)
}

func (s *Server) handleCrawlPodcast(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input PodcastRefInput
	if err := req.BindArguments(&input); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	p, err := s.store.GetPodcastByRef(ctx, input.Podcast)
	if err != nil {
		return nil, fmt.Errorf("podcast not found: %s", input.Podcast)
	}

	out, err := s.crawl(ctx, p, input.Force)
	if err != nil {
		return nil, err
	}
	return jsonResult(out)
}

func (s *Server) handleAddPodcast(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input AddPodcastInput
	if err := req.BindArguments(&input); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	if input.URL == "" {
		return nil, fmt.Errorf("url is required")
	}

	p, created, err := s.ingester.Add(ctx, input.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to add podcast: %w", err)
	}

	output := AddPodcastOutput{Created: created}
	if created {
		if output.Crawl, err = s.crawl(ctx, p, false); err != nil {
			return nil, err
		}
		if p, err = s.store.GetPodcast(ctx, p.ID); err != nil {
			return nil, fmt.Errorf("failed to reload podcast: %w", err)
		}
	}
	output.Podcast = toPodcastOutput(p)

	return jsonResult(output)
}

func (s *Server) crawl(ctx context.Context, p *models.Podcast, force bool) (*CrawlOutput, error) {
	res, err := s.ingester.Run(ctx, p, force)
	if err != nil {
		return nil, fmt.Errorf("failed to crawl %s: %w", p.RSS, err)
	}
	outcome := string(res.Outcome)
	if outcome == "" {
		outcome = "ok"
	}
	return &CrawlOutput{
		Podcast:     p.ID,
		Outcome:     outcome,
		Inserted:    res.Inserted,
		Updated:     res.Updated,
		Failed:      res.Failed,
		Skipped:     res.Skipped,
		CanonicalID: res.CanonicalID,
	}, nil
}

// Helpers

func toPodcastOutput(p *models.Podcast) PodcastOutput {
	out := PodcastOutput{
		ID:          p.ID,
		RSS:         p.RSS,
		Title:       p.Title,
		Link:        p.Link,
		Language:    p.Language,
		Categories:  p.Categories,
		State:       string(p.State),
		Active:      p.Active,
		ParserError: string(p.ParserError),
		ParsedAt:    p.ParsedAt,
		NextPollAt:  p.NextPollAt,
	}
	if p.CanonicalID != nil {
		out.CanonicalID = *p.CanonicalID
	}
	return out
}

func toPodcastOutputs(podcasts []*models.Podcast) []PodcastOutput {
	out := make([]PodcastOutput, 0, len(podcasts))
	for _, p := range podcasts {
		out = append(out, toPodcastOutput(p))
	}
	return out
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal output: %w", err)
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}
