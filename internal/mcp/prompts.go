// ABOUTME: MCP prompt definitions and handlers
// ABOUTME: Provides workflow templates for discovering podcasts and triaging broken feeds

package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPrompts() {
	s.registerFindSimilarPrompt()
	s.registerFeedHealthPrompt()
}

func (s *Server) registerFindSimilarPrompt() {
	s.mcpServer.AddPrompt(
		mcp.Prompt{
			Name:        "find-similar",
			Description: "Find podcasts similar to one you already like, using stored recommendations and full-text search",
			Arguments: []mcp.PromptArgument{
				{
					Name:        "podcast",
					Description: "Podcast ID, ID prefix or feed URL to start from",
					Required:    true,
				},
			},
		},
		s.handleFindSimilar,
	)
}

//nolint:funlen // Prompt handlers contain large template strings
func (s *Server) handleFindSimilar(_ context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	podcast := req.Params.Arguments["podcast"]
	if podcast == "" {
		return nil, fmt.Errorf("podcast argument is required")
	}

	template := fmt.Sprintf(`# Find Similar Podcasts

## Overview
Build a short list of podcasts related to %[1]s. Recommendations are precomputed from
titles, descriptions, keywords, episode titles and shared categories; search fills the gaps.

## Workflow Steps

### Step 1: Load the Starting Podcast
**Use get_podcast tool:**
- get_podcast(podcast="%[1]s", episodes=5)
- Note its categories, language and the topics of its recent episodes

### Step 2: Review Recommendations
The get_podcast result includes a "recommendations" list ordered by score.
- Scores above 1.0 usually mean shared categories plus overlapping vocabulary
- An empty list means recommendations have not been rebuilt since the podcast was added

### Step 3: Widen With Search
Pick two or three distinctive topic words from Step 1.
- search_podcasts(query="<topic words>")
- Skip results that are already in the recommendation list

### Step 4: Browse the Category
- list_podcasts(category="<first category>", limit=20)

## Output
Present up to ten podcasts, each with its title, one sentence on why it matches,
and whether it came from recommendations, search or category browsing.
`, podcast)

	return &mcp.GetPromptResult{
		Description: "Find podcasts similar to " + podcast,
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: template,
				},
			},
		},
	}, nil
}

func (s *Server) registerFeedHealthPrompt() {
	s.mcpServer.AddPrompt(
		mcp.Prompt{
			Name:        "feed-health",
			Description: "Review podcasts whose last crawl failed and decide which to retry",
			Arguments:   []mcp.PromptArgument{},
		},
		s.handleFeedHealth,
	)
}

func (s *Server) handleFeedHealth(_ context.Context, _ mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	template := `# Feed Health Review

## Step 1: Check Statistics
Read the podroll://stats resource. "errored" counts podcasts whose last parse failed,
"excluded" counts podcasts dropped after repeated invalid content.

## Step 2: Find Failing Podcasts
Read podroll://podcasts and collect entries with a parser_error of:
- inaccessible: the server refused or timed out; usually temporary
- unavailable: 404 or 410; the feed has probably moved
- invalid_rss / invalid_data: the document is not a usable feed

## Step 3: Retry
For inaccessible feeds call crawl_podcast(podcast="<id>"). A not_modified or ok outcome
means the feed has recovered.

## Step 4: Report
List the podcasts that still fail, grouped by parser_error, with a suggested action for each.
`

	return &mcp.GetPromptResult{
		Description: "Review failing podcast feeds",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: template,
				},
			},
		},
	}, nil
}
