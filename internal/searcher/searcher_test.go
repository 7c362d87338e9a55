package searcher

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recallkit/recall-mcp/internal/embedder"
	"github.com/recallkit/recall-mcp/internal/storage"
	"github.com/recallkit/recall-mcp/pkg/types"
)

func setupTestSearcher(t *testing.T) (*Searcher, *storage.SQLiteStorage, embedder.Embedder) {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	emb, err := embedder.NewLocalProvider(nil)
	require.NoError(t, err)

	return NewSearcher(store, emb), store, emb
}

func storeEmbedding(t *testing.T, store *storage.SQLiteStorage, emb embedder.Embedder, id, contextID, category, content string, embType types.EmbeddingType) {
	t.Helper()

	vector, err := emb.Embed(context.Background(), content)
	require.NoError(t, err)

	err = store.UpsertEmbedding(context.Background(), &types.EmbeddingRecord{
		ID:         id,
		Vector:     vector,
		RawContent: content,
		Metadata: types.EmbeddingMetadata{
			ContextID: contextID,
			Type:      embType,
			Category:  category,
		},
	})
	require.NoError(t, err)
}

func TestSearch_RanksByRelevance(t *testing.T) {
	s, store, emb := setupTestSearcher(t)

	storeEmbedding(t, store, emb, "ctx-bread", "ctx-bread", "baking",
		"sourdough bread baking with flour water and salt", types.EmbeddingParent)
	storeEmbedding(t, store, emb, "ctx-stocks", "ctx-stocks", "finance",
		"quarterly earnings report for semiconductor stocks", types.EmbeddingParent)

	resp, err := s.Search(context.Background(), SearchRequest{
		Query: "baking sourdough bread with flour",
		Limit: 10,
	})
	require.NoError(t, err)
	require.Len(t, resp.Results, 2)

	assert.Equal(t, "ctx-bread", resp.Results[0].ID)
	assert.Equal(t, 1, resp.Results[0].Rank)
	assert.Equal(t, 2, resp.Results[1].Rank)
	assert.Greater(t, resp.Results[0].Score, resp.Results[1].Score)
}

func TestSearch_IncludesChunks(t *testing.T) {
	s, store, emb := setupTestSearcher(t)

	storeEmbedding(t, store, emb, "ctx-1", "ctx-1", "baking",
		"a long article about baking", types.EmbeddingParent)
	storeEmbedding(t, store, emb, "ctx-1-chunk-abc", "ctx-1", "baking",
		"the chapter on sourdough starter feeding schedules", types.EmbeddingChunk)

	resp, err := s.Search(context.Background(), SearchRequest{
		Query: "sourdough starter feeding",
		Limit: 10,
	})
	require.NoError(t, err)
	require.Len(t, resp.Results, 2)

	assert.Equal(t, "ctx-1-chunk-abc", resp.Results[0].ID)
	assert.Equal(t, types.EmbeddingChunk, resp.Results[0].Metadata.Type)
}

func TestSearch_LimitApplied(t *testing.T) {
	s, store, emb := setupTestSearcher(t)

	storeEmbedding(t, store, emb, "a", "a", "c", "first note about gardening", types.EmbeddingParent)
	storeEmbedding(t, store, emb, "b", "b", "c", "second note about gardening", types.EmbeddingParent)
	storeEmbedding(t, store, emb, "c", "c", "c", "third note about gardening", types.EmbeddingParent)

	resp, err := s.Search(context.Background(), SearchRequest{Query: "gardening", Limit: 2})
	require.NoError(t, err)
	assert.Len(t, resp.Results, 2)
}

func TestSearch_EmptyStore(t *testing.T) {
	s, _, _ := setupTestSearcher(t)

	resp, err := s.Search(context.Background(), SearchRequest{Query: "anything"})
	require.NoError(t, err)
	assert.Empty(t, resp.Results)
}

func TestSearch_EmptyQuery(t *testing.T) {
	s, _, _ := setupTestSearcher(t)

	_, err := s.Search(context.Background(), SearchRequest{Query: ""})
	assert.Error(t, err)
}

func TestSearch_DefaultLimit(t *testing.T) {
	s, _, _ := setupTestSearcher(t)

	resp, err := s.Search(context.Background(), SearchRequest{Query: "anything", Limit: -5})
	require.NoError(t, err)
	assert.Empty(t, resp.Results)
}
