package searcher

import (
	"context"
	"fmt"
	"testing"

	"github.com/recallkit/recall-mcp/internal/embedder"
	"github.com/recallkit/recall-mcp/internal/storage"
	"github.com/recallkit/recall-mcp/pkg/types"
)

// seedCorpus stores n parent embeddings of varied content
func seedCorpus(b *testing.B, store storage.Storage, emb embedder.Embedder, n int) {
	b.Helper()

	topics := []string{
		"sourdough bread baking and fermentation",
		"kubernetes cluster operations and scaling",
		"watercolor painting techniques for beginners",
		"personal finance and index fund investing",
		"trail running training plans",
	}

	ctx := context.Background()
	for i := 0; i < n; i++ {
		content := fmt.Sprintf("%s note %d", topics[i%len(topics)], i)
		vector, err := emb.Embed(ctx, content)
		if err != nil {
			b.Fatal(err)
		}
		id := fmt.Sprintf("ctx-%d", i)
		err = store.UpsertEmbedding(ctx, &types.EmbeddingRecord{
			ID:         id,
			Vector:     vector,
			RawContent: content,
			Metadata: types.EmbeddingMetadata{
				ContextID: id,
				Type:      types.EmbeddingParent,
				Category:  "bench",
			},
		})
		if err != nil {
			b.Fatal(err)
		}
	}
}

func benchmarkSearch(b *testing.B, corpusSize int) {
	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		b.Fatal(err)
	}
	defer store.Close()

	emb, err := embedder.NewLocalProvider(nil)
	if err != nil {
		b.Fatal(err)
	}

	seedCorpus(b, store, emb, corpusSize)
	s := NewSearcher(store, emb)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, err := s.Search(ctx, SearchRequest{Query: "bread fermentation schedule", Limit: 10})
		if err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkSearch_100(b *testing.B)  { benchmarkSearch(b, 100) }
func BenchmarkSearch_1000(b *testing.B) { benchmarkSearch(b, 1000) }
