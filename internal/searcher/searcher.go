package searcher

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/recallkit/recall-mcp/internal/embedder"
	"github.com/recallkit/recall-mcp/internal/storage"
	"github.com/recallkit/recall-mcp/pkg/types"
)

const (
	// DefaultLimit is used when a request does not specify a result count
	DefaultLimit = 10

	// MaxLimit caps a single search request
	MaxLimit = 100
)

// SearchRequest contains parameters for a search operation
type SearchRequest struct {
	Query string
	Limit int
}

// SearchResponse contains ranked results and timing metadata
type SearchResponse struct {
	Results  []types.SearchResult
	Duration time.Duration
}

// Searcher runs semantic search over every stored embedding, parents and
// chunks alike. Concurrent searches for the same query share one
// embedding call through the singleflight group.
type Searcher struct {
	storage  storage.Storage
	embedder embedder.Embedder
	group    singleflight.Group
}

// NewSearcher creates a new Searcher instance
func NewSearcher(storage storage.Storage, embedder embedder.Embedder) *Searcher {
	return &Searcher{
		storage:  storage,
		embedder: embedder,
	}
}

// Search embeds the query and ranks all stored embeddings by cosine
// similarity, returning the top Limit results
func (s *Searcher) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	start := time.Now()

	if req.Query == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}
	if req.Limit <= 0 {
		req.Limit = DefaultLimit
	}
	if req.Limit > MaxLimit {
		req.Limit = MaxLimit
	}

	queryVector, err := s.embedQuery(ctx, req.Query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	matches, err := s.storage.SearchVector(ctx, queryVector, req.Limit)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	results := make([]types.SearchResult, 0, len(matches))
	for i, m := range matches {
		results = append(results, types.SearchResult{
			ID:         m.ID,
			Rank:       i + 1,
			Score:      m.Score,
			Metadata:   m.Metadata,
			RawContent: m.RawContent,
		})
	}

	return &SearchResponse{
		Results:  results,
		Duration: time.Since(start),
	}, nil
}

// embedQuery collapses concurrent identical queries into one provider call
func (s *Searcher) embedQuery(ctx context.Context, query string) ([]float32, error) {
	v, err, _ := s.group.Do(query, func() (interface{}, error) {
		return s.embedder.Embed(ctx, query)
	})
	if err != nil {
		return nil, err
	}
	return v.([]float32), nil
}
