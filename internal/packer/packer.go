// Package packer assembles deep-research context sets: given a query and
// a token budget, it picks the most relevant stored content that fits.
//
// Parents are packed before chunks because a parent anchors its chunks;
// a fragment that would blow the budget is dropped along with every
// chunk after it. The output is two parallel lists: displayContexts for
// the caller to surface, injectedContexts as the text actually handed to
// the answering model.
package packer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/recallkit/recall-mcp/internal/searcher"
	"github.com/recallkit/recall-mcp/internal/storage"
	"github.com/recallkit/recall-mcp/internal/tokenizer"
	"github.com/recallkit/recall-mcp/pkg/types"
)

// DefaultSearchLimit bounds the candidate pool fed to the budget walk
const DefaultSearchLimit = 20

// Result holds the two parallel output lists of one assembly
type Result struct {
	DisplayContexts  []types.ScoredContext
	InjectedContexts []types.InjectedContext
}

// Packer assembles token-budgeted context sets from search results
type Packer struct {
	store       storage.Storage
	searcher    *searcher.Searcher
	estimator   tokenizer.Estimator
	searchLimit int
	logger      *slog.Logger
}

// NewPacker creates a Packer
func NewPacker(store storage.Storage, s *searcher.Searcher, estimator tokenizer.Estimator, logger *slog.Logger) *Packer {
	return &Packer{
		store:       store,
		searcher:    s,
		estimator:   estimator,
		searchLimit: DefaultSearchLimit,
		logger:      logger,
	}
}

// bucket accumulates the fragments accepted for one parent context
type bucket struct {
	parent    *types.Context
	score     float64
	fragments []string
}

// Pack runs semantic search for the query and greedily assembles the
// highest-ranked content that fits inside budget tokens. Zero search
// results yield an empty Result, not an error.
func (p *Packer) Pack(ctx context.Context, query string, budget int) (*Result, error) {
	if budget <= 0 {
		return nil, fmt.Errorf("token budget must be positive, got %d", budget)
	}

	resp, err := p.searcher.Search(ctx, searcher.SearchRequest{
		Query: query,
		Limit: p.searchLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("research search failed: %w", err)
	}
	if len(resp.Results) == 0 {
		return &Result{}, nil
	}

	// Parents claim the budget first; score order breaks ties within
	// each group
	results := make([]types.SearchResult, len(resp.Results))
	copy(results, resp.Results)
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Metadata.Type == types.EmbeddingParent &&
			results[j].Metadata.Type != types.EmbeddingParent
	})

	buckets := make(map[string]*bucket)
	var order []string
	total := 0
	chunksClosed := false

	for _, result := range results {
		parentID := p.parentID(result)
		if parentID == "" {
			p.logger.Warn("embedding with no resolvable parent id, skipping", "id", result.ID)
			continue
		}

		tokens := p.estimator.Count(result.RawContent)

		switch result.Metadata.Type {
		case types.EmbeddingParent:
			if total+tokens > budget {
				continue
			}
			b, err := p.ensureBucket(ctx, buckets, &order, parentID, result.Score)
			if err != nil {
				continue
			}
			b.fragments = append(b.fragments, result.RawContent)
			total += tokens

		case types.EmbeddingChunk:
			if chunksClosed {
				continue
			}
			if total+tokens > budget {
				chunksClosed = true
				continue
			}
			b, err := p.ensureBucket(ctx, buckets, &order, parentID, result.Score)
			if err != nil {
				continue
			}
			b.fragments = append(b.fragments, result.RawContent)
			total += tokens
		}
	}

	out := &Result{}
	for _, id := range order {
		b := buckets[id]
		if len(b.fragments) == 0 {
			continue
		}
		out.DisplayContexts = append(out.DisplayContexts, types.ScoredContext{
			Context: b.parent,
			Score:   b.score,
		})
		out.InjectedContexts = append(out.InjectedContexts, types.InjectedContext{
			Title:       b.parent.Title,
			Description: b.parent.Description,
			Fragments:   b.fragments,
		})
	}

	return out, nil
}

// ensureBucket returns the bucket for parentID, resolving the parent
// context record on first use. A missing parent record is inconsistent
// state: logged and skipped, never fatal.
func (p *Packer) ensureBucket(ctx context.Context, buckets map[string]*bucket, order *[]string, parentID string, score float64) (*bucket, error) {
	if b, ok := buckets[parentID]; ok {
		return b, nil
	}

	parent, err := p.store.GetContext(ctx, parentID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			p.logger.Warn("fragment references missing parent context, skipping",
				"parent_id", parentID)
		} else {
			p.logger.Error("failed to load parent context",
				"parent_id", parentID, "error", err)
		}
		return nil, err
	}

	b := &bucket{parent: parent, score: score}
	buckets[parentID] = b
	*order = append(*order, parentID)
	return b, nil
}

// parentID resolves the owning context for a search hit. Parent
// embeddings share their context id; chunk ids encode it as
// {contextID}-chunk-{hash}.
func (p *Packer) parentID(result types.SearchResult) string {
	if result.Metadata.ContextID != "" {
		return result.Metadata.ContextID
	}
	if idx := strings.Index(result.ID, "-chunk-"); idx > 0 {
		return result.ID[:idx]
	}
	if result.Metadata.Type == types.EmbeddingParent {
		return result.ID
	}
	return ""
}
