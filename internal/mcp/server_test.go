package mcp

import (
	"context"
	"encoding/base64"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recallkit/recall-mcp/internal/config"
)

func setupTestServer(t *testing.T) *Server {
	t.Helper()

	cfg := config.Default()
	cfg.DatabasePath = filepath.Join(t.TempDir(), "recall.db")

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := NewServer(cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.storage.Close() })
	return s
}

func callRequest(args map[string]interface{}) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func textContent(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	text, ok := mcp.AsTextContent(result.Content[0])
	require.True(t, ok)
	return text.Text
}

func TestNewServer(t *testing.T) {
	s := setupTestServer(t)

	assert.NotNil(t, s.pipeline)
	assert.NotNil(t, s.searcher)
	assert.NotNil(t, s.packer)
	assert.NotNil(t, s.storage)
	assert.NotNil(t, s.embedder)
}

func TestHandleSaveSnippetAndSearch(t *testing.T) {
	s := setupTestServer(t)
	ctx := context.Background()

	result, err := s.handleSaveSnippet(ctx, callRequest(map[string]interface{}{
		"content":       "Fold the dough every thirty minutes during bulk fermentation.",
		"category_slug": "baking",
	}))
	require.NoError(t, err)
	assert.Contains(t, textContent(t, result), "indexed")

	result, err = s.handleSearch(ctx, callRequest(map[string]interface{}{
		"query": "dough fermentation folding",
	}))
	require.NoError(t, err)

	body := textContent(t, result)
	assert.Contains(t, body, "baking")
	assert.Contains(t, body, "results")
}

func TestHandleSubmitForIndexing_Validation(t *testing.T) {
	s := setupTestServer(t)

	_, err := s.handleSubmitForIndexing(context.Background(), callRequest(map[string]interface{}{}))
	require.Error(t, err)

	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrorCodeInvalidParams, mcpErr.Code)
}

func TestHandleSubmitForIndexing_Image(t *testing.T) {
	s := setupTestServer(t)
	ctx := context.Background()

	raw := []byte{0x89, 'P', 'N', 'G'}
	result, err := s.handleSubmitForIndexing(ctx, callRequest(map[string]interface{}{
		"url":       "https://example.com/diagram",
		"content":   "Diagram of the ingestion pipeline stages.",
		"type":      "image",
		"mime_type": "image/png",
		"data":      base64.StdEncoding.EncodeToString(raw),
	}))
	require.NoError(t, err)
	assert.Contains(t, textContent(t, result), "indexed")

	contexts, err := s.storage.ListContexts(ctx)
	require.NoError(t, err)
	require.Len(t, contexts, 1)
	require.NotEmpty(t, contexts[0].AssetID)

	asset, err := s.storage.GetAsset(ctx, contexts[0].AssetID)
	require.NoError(t, err)
	assert.Equal(t, raw, asset.Data)
}

func TestHandleSubmitForIndexing_RejectsBadBase64(t *testing.T) {
	s := setupTestServer(t)

	_, err := s.handleSubmitForIndexing(context.Background(), callRequest(map[string]interface{}{
		"content": "image content",
		"type":    "image",
		"data":    "not-base64!!!",
	}))
	require.Error(t, err)

	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrorCodeInvalidParams, mcpErr.Code)
}

func TestHandleSearch_LimitValidation(t *testing.T) {
	s := setupTestServer(t)

	_, err := s.handleSearch(context.Background(), callRequest(map[string]interface{}{
		"query": "anything",
		"limit": float64(500),
	}))
	assert.Error(t, err)
}

func TestHandleDeepResearch(t *testing.T) {
	s := setupTestServer(t)
	ctx := context.Background()

	_, err := s.handleSaveSnippet(ctx, callRequest(map[string]interface{}{
		"content": "Notes about pruning apple trees in late winter.",
	}))
	require.NoError(t, err)

	result, err := s.handleDeepResearch(ctx, callRequest(map[string]interface{}{
		"query":        "when to prune apple trees",
		"token_budget": float64(500),
	}))
	require.NoError(t, err)

	body := textContent(t, result)
	assert.Contains(t, body, "display_contexts")
	assert.Contains(t, body, "injected_contexts")
}

func TestHandleListCategoriesAndStatus(t *testing.T) {
	s := setupTestServer(t)
	ctx := context.Background()

	_, err := s.handleSaveSnippet(ctx, callRequest(map[string]interface{}{
		"content":       "A note to remember.",
		"category_slug": "notes",
	}))
	require.NoError(t, err)

	result, err := s.handleListCategories(ctx, callRequest(nil))
	require.NoError(t, err)
	assert.Contains(t, textContent(t, result), "notes")

	result, err = s.handleGetStatus(ctx, callRequest(nil))
	require.NoError(t, err)

	body := textContent(t, result)
	assert.Contains(t, body, "statistics")
	assert.Contains(t, body, "ondevice")
}

func TestHandleDeleteContext(t *testing.T) {
	s := setupTestServer(t)
	ctx := context.Background()

	_, err := s.handleSaveSnippet(ctx, callRequest(map[string]interface{}{
		"content": "Disposable note content.",
	}))
	require.NoError(t, err)

	contexts, err := s.storage.ListContexts(ctx)
	require.NoError(t, err)
	require.Len(t, contexts, 1)

	result, err := s.handleDeleteContext(ctx, callRequest(map[string]interface{}{
		"id": contexts[0].ID,
	}))
	require.NoError(t, err)
	assert.Contains(t, textContent(t, result), "true")

	contexts, err = s.storage.ListContexts(ctx)
	require.NoError(t, err)
	assert.Empty(t, contexts)
}

func TestHandleRenameCategory(t *testing.T) {
	s := setupTestServer(t)
	ctx := context.Background()

	_, err := s.handleSaveSnippet(ctx, callRequest(map[string]interface{}{
		"content":       "Sourdough schedule.",
		"category_slug": "recipes",
	}))
	require.NoError(t, err)

	_, err = s.handleRenameCategory(ctx, callRequest(map[string]interface{}{
		"old_slug": "recipes",
		"new_slug": "cooking",
	}))
	require.NoError(t, err)

	result, err := s.handleListCategories(ctx, callRequest(nil))
	require.NoError(t, err)

	body := textContent(t, result)
	assert.Contains(t, body, "cooking")
	assert.NotContains(t, body, "recipes")
}
