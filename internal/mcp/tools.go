package mcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/recallkit/recall-mcp/internal/searcher"
	"github.com/recallkit/recall-mcp/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams = -32602 // Invalid method parameters
	ErrorCodeInternalError = -32603 // Internal JSON-RPC error
)

// handleSubmitForIndexing handles the submit_for_indexing tool invocation
func (s *Server) handleSubmitForIndexing(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	content, _ := args["content"].(string)
	if content == "" {
		return nil, missingParam("content")
	}

	contextType := types.ContextType(getStringDefault(args, "type", string(types.ContextPage)))
	payload := types.IndexPayload{
		URL:           getStringDefault(args, "url", ""),
		Title:         getStringDefault(args, "title", ""),
		Content:       content,
		Type:          contextType,
		CategorySlug:  getStringDefault(args, "category_slug", ""),
		UserTriggered: getBoolDefault(args, "user_triggered", false),
	}

	if encoded := getStringDefault(args, "data", ""); encoded != "" {
		data, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, newMCPError(ErrorCodeInvalidParams, "data must be base64 encoded", map[string]interface{}{
				"param": "data",
			})
		}
		payload.Data = data
		payload.MimeType = getStringDefault(args, "mime_type", "")
	}

	outcome, err := s.pipeline.SubmitForIndexing(ctx, payload)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "indexing failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"outcome": string(outcome),
	})), nil
}

// handleSaveSnippet handles the save_snippet tool invocation
func (s *Server) handleSaveSnippet(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	content, _ := args["content"].(string)
	if content == "" {
		return nil, missingParam("content")
	}

	outcome, err := s.pipeline.SaveSnippet(ctx, content,
		getStringDefault(args, "url", ""),
		getStringDefault(args, "category_slug", ""))
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to save snippet", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"outcome": string(outcome),
	})), nil
}

// handleSearch handles the search tool invocation
func (s *Server) handleSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, _ := args["query"].(string)
	if query == "" {
		return nil, missingParam("query")
	}

	limit := getIntDefault(args, "limit", 10)
	if limit < 1 || limit > 100 {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 100", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	resp, err := s.searcher.Search(ctx, searcher.SearchRequest{Query: query, Limit: limit})
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	results := make([]map[string]interface{}, 0, len(resp.Results))
	for _, r := range resp.Results {
		results = append(results, map[string]interface{}{
			"id":         r.ID,
			"rank":       r.Rank,
			"score":      r.Score,
			"context_id": r.Metadata.ContextID,
			"type":       string(r.Metadata.Type),
			"category":   r.Metadata.Category,
			"content":    r.RawContent,
		})
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"results":     results,
		"duration_ms": resp.Duration.Milliseconds(),
	})), nil
}

// handleDeepResearch handles the deep_research tool invocation
func (s *Server) handleDeepResearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, _ := args["query"].(string)
	if query == "" {
		return nil, missingParam("query")
	}

	budget := getIntDefault(args, "token_budget", s.cfg.TokenBudget())
	if budget < 1 {
		return nil, newMCPError(ErrorCodeInvalidParams, "token_budget must be positive", map[string]interface{}{
			"param": "token_budget",
			"value": budget,
		})
	}

	result, err := s.packer.Pack(ctx, query, budget)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "research assembly failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	display := make([]map[string]interface{}, 0, len(result.DisplayContexts))
	for _, d := range result.DisplayContexts {
		display = append(display, map[string]interface{}{
			"id":       d.Context.ID,
			"title":    d.Context.Title,
			"category": d.Context.CategorySlug,
			"type":     string(d.Context.Type),
			"score":    d.Score,
		})
	}

	injected := make([]map[string]interface{}, 0, len(result.InjectedContexts))
	for _, i := range result.InjectedContexts {
		injected = append(injected, map[string]interface{}{
			"title":       i.Title,
			"description": i.Description,
			"fragments":   i.Fragments,
		})
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"display_contexts":  display,
		"injected_contexts": injected,
		"token_budget":      budget,
	})), nil
}

// handleDeleteContext handles the delete_context tool invocation
func (s *Server) handleDeleteContext(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	id, _ := args["id"].(string)
	if id == "" {
		return nil, missingParam("id")
	}

	if err := s.pipeline.DeleteContext(ctx, id); err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "delete failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"deleted": true,
		"id":      id,
	})), nil
}

// handleRenameCategory handles the rename_category tool invocation
func (s *Server) handleRenameCategory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	oldSlug, _ := args["old_slug"].(string)
	newSlug, _ := args["new_slug"].(string)
	if oldSlug == "" {
		return nil, missingParam("old_slug")
	}
	if newSlug == "" {
		return nil, missingParam("new_slug")
	}

	if err := s.pipeline.RenameCategory(ctx, oldSlug, newSlug); err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "rename failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"renamed":  true,
		"old_slug": oldSlug,
		"new_slug": newSlug,
	})), nil
}

// handleListCategories handles the list_categories tool invocation
func (s *Server) handleListCategories(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	categories, err := s.storage.ListCategories(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to list categories", map[string]interface{}{
			"error": err.Error(),
		})
	}

	out := make([]map[string]interface{}, 0, len(categories))
	for _, c := range categories {
		out = append(out, map[string]interface{}{
			"slug":  c.Slug,
			"label": c.Label,
		})
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"categories": out,
	})), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status, err := s.storage.GetStatus(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get status", map[string]interface{}{
			"error": err.Error(),
		})
	}

	queueCounts := make(map[string]interface{}, len(status.QueueByStatus))
	for st, count := range status.QueueByStatus {
		queueCounts[string(st)] = count
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"mode":          string(s.cfg.Mode),
		"indexing_mode": string(s.cfg.IndexingMode),
		"provider": map[string]interface{}{
			"embedding": s.embedder.Provider(),
			"model":     s.embedder.Model(),
			"dimension": s.embedder.Dimension(),
		},
		"statistics": map[string]interface{}{
			"contexts":   status.Contexts,
			"categories": status.Categories,
			"embeddings": status.Embeddings,
			"assets":     status.Assets,
		},
		"queue": queueCounts,
	})), nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

func missingParam(name string) error {
	return newMCPError(ErrorCodeInvalidParams, name+" parameter is required", map[string]interface{}{
		"param":  name,
		"reason": "missing or empty",
	})
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}
