// Package searcher implements semantic search over the stored embeddings.
//
// Search is a brute-force cosine-similarity scan over every embedding,
// parents and chunks alike. The corpus is a single user's saved contexts,
// so a full scan stays well inside interactive latency and keeps ranking
// exact.
//
// # Basic Usage
//
//	s := searcher.NewSearcher(store, emb)
//
//	resp, err := s.Search(ctx, searcher.SearchRequest{
//	    Query: "sourdough hydration",
//	    Limit: 10,
//	})
//
//	for _, result := range resp.Results {
//	    fmt.Printf("[%d] %.2f %s\n", result.Rank, result.Score, result.ID)
//	}
//
// Concurrent searches for the same query text share a single embedding
// call via singleflight; the embedder's own LRU cache covers repeats
// over time.
package searcher
