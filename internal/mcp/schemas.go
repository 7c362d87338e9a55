package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// submitForIndexingTool returns the tool definition for submit_for_indexing
func submitForIndexingTool() mcp.Tool {
	return mcp.Tool{
		Name:        "submit_for_indexing",
		Description: "Submit a page or piece of content for background indexing",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"url": map[string]interface{}{
					"type":        "string",
					"description": "Source URL (required for pages, used for deduplication)",
				},
				"content": map[string]interface{}{
					"type":        "string",
					"description": "Captured text content to index",
				},
				"title": map[string]interface{}{
					"type":        "string",
					"description": "Optional title; generated from the content when omitted",
				},
				"type": map[string]interface{}{
					"type":        "string",
					"description": "Kind of content being submitted",
					"enum":        []string{"page", "text", "image"},
					"default":     "page",
				},
				"category_slug": map[string]interface{}{
					"type":        "string",
					"description": "Optional category override; skips automatic resolution",
				},
				"mime_type": map[string]interface{}{
					"type":        "string",
					"description": "MIME type of the image payload (image submissions only)",
				},
				"data": map[string]interface{}{
					"type":        "string",
					"description": "Base64-encoded image bytes (image submissions only)",
				},
				"user_triggered": map[string]interface{}{
					"type":        "boolean",
					"description": "True when the user explicitly asked for this submission",
					"default":     false,
				},
			},
			Required: []string{"content"},
		},
	}
}

// saveSnippetTool returns the tool definition for save_snippet
func saveSnippetTool() mcp.Tool {
	return mcp.Tool{
		Name:        "save_snippet",
		Description: "Save a user-selected text snippet as a retrievable context",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"content": map[string]interface{}{
					"type":        "string",
					"description": "The selected text to save",
				},
				"url": map[string]interface{}{
					"type":        "string",
					"description": "Optional source URL of the snippet",
				},
				"category_slug": map[string]interface{}{
					"type":        "string",
					"description": "Optional category override; skips automatic resolution",
				},
			},
			Required: []string{"content"},
		},
	}
}

// searchTool returns the tool definition for search
func searchTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search",
		Description: "Semantic search over all saved contexts",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Natural language search query",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (1-100)",
					"default":     10,
					"minimum":     1,
					"maximum":     100,
				},
			},
			Required: []string{"query"},
		},
	}
}

// deepResearchTool returns the tool definition for deep_research
func deepResearchTool() mcp.Tool {
	return mcp.Tool{
		Name:        "deep_research",
		Description: "Assemble the most relevant saved content for a question within a token budget",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "The research question",
				},
				"token_budget": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum tokens of context to assemble; defaults to the active mode's budget",
					"minimum":     1,
				},
			},
			Required: []string{"query"},
		},
	}
}

// deleteContextTool returns the tool definition for delete_context
func deleteContextTool() mcp.Tool {
	return mcp.Tool{
		Name:        "delete_context",
		Description: "Delete a saved context and every embedding derived from it",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"id": map[string]interface{}{
					"type":        "string",
					"description": "Context id to delete",
				},
			},
			Required: []string{"id"},
		},
	}
}

// renameCategoryTool returns the tool definition for rename_category
func renameCategoryTool() mcp.Tool {
	return mcp.Tool{
		Name:        "rename_category",
		Description: "Rename a category slug, migrating every context that uses it",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"old_slug": map[string]interface{}{
					"type":        "string",
					"description": "Current category slug",
				},
				"new_slug": map[string]interface{}{
					"type":        "string",
					"description": "New category slug (lowercase, hyphen-separated)",
				},
			},
			Required: []string{"old_slug", "new_slug"},
		},
	}
}

// listCategoriesTool returns the tool definition for list_categories
func listCategoriesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_categories",
		Description: "List all categories with their labels",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Report store statistics, queue state, and active providers",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
