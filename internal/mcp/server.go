package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/server"

	"github.com/recallkit/recall-mcp/internal/category"
	"github.com/recallkit/recall-mcp/internal/chunker"
	"github.com/recallkit/recall-mcp/internal/classifier"
	"github.com/recallkit/recall-mcp/internal/config"
	"github.com/recallkit/recall-mcp/internal/embedder"
	"github.com/recallkit/recall-mcp/internal/packer"
	"github.com/recallkit/recall-mcp/internal/pipeline"
	"github.com/recallkit/recall-mcp/internal/queue"
	"github.com/recallkit/recall-mcp/internal/searcher"
	"github.com/recallkit/recall-mcp/internal/storage"
	"github.com/recallkit/recall-mcp/internal/tokenizer"
)

const (
	// ServerName is the MCP server name
	ServerName = "recall-mcp"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp      *server.MCPServer
	storage  storage.Storage
	pipeline *pipeline.Pipeline
	searcher *searcher.Searcher
	packer   *packer.Packer
	embedder embedder.Embedder
	cfg      config.Config
	logger   *slog.Logger
}

// NewServer assembles the full engine behind an MCP tool surface
func NewServer(cfg config.Config, logger *slog.Logger) (*Server, error) {
	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	store, err := storage.NewSQLiteStorage(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	emb, cls, err := buildProviders(cfg)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	estimator := tokenizer.NewWithFallback()
	srch := searcher.NewSearcher(store, emb)
	resolver := category.NewResolver(store, srch, cls,
		cfg.SimilarityThreshold(), cfg.CategorySearchLimit, logger)
	pipe := pipeline.New(store, queue.New(store), emb, cls, resolver,
		chunker.New(estimator), cfg, logger)
	pack := packer.NewPacker(store, srch, estimator, logger)

	s := &Server{
		mcp:      server.NewMCPServer(ServerName, ServerVersion),
		storage:  store,
		pipeline: pipe,
		searcher: srch,
		packer:   pack,
		embedder: emb,
		cfg:      cfg,
		logger:   logger,
	}
	s.registerTools()
	return s, nil
}

// buildProviders selects the embedding and classification backends for
// the configured mode
func buildProviders(cfg config.Config) (embedder.Embedder, classifier.Classifier, error) {
	if cfg.Mode == config.ModeOnline {
		emb, err := embedder.New(embedder.Config{
			Provider: embedder.ProviderOpenAI,
			APIKey:   cfg.OpenAIAPIKey,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize embedder: %w", err)
		}
		cls, err := classifier.NewOpenAIClassifier(cfg.OpenAIAPIKey)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize classifier: %w", err)
		}
		return emb, cls, nil
	}

	emb, err := embedder.New(embedder.Config{Provider: embedder.ProviderLocal})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	return emb, classifier.NewLocalClassifier(), nil
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	defer func() { _ = s.storage.Close() }()
	s.logger.Info("serving", "mode", s.cfg.Mode, "db", s.cfg.DatabasePath)
	return server.ServeStdio(s.mcp)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(submitForIndexingTool(), s.handleSubmitForIndexing)
	s.mcp.AddTool(saveSnippetTool(), s.handleSaveSnippet)
	s.mcp.AddTool(searchTool(), s.handleSearch)
	s.mcp.AddTool(deepResearchTool(), s.handleDeepResearch)
	s.mcp.AddTool(deleteContextTool(), s.handleDeleteContext)
	s.mcp.AddTool(renameCategoryTool(), s.handleRenameCategory)
	s.mcp.AddTool(listCategoriesTool(), s.handleListCategories)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
}
