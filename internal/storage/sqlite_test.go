package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recallkit/recall-mcp/pkg/types"
)

func setupTestDB(t *testing.T) *SQLiteStorage {
	// Use in-memory database for testing
	store, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	require.NotNil(t, store)
	return store
}

func mustCategory(t *testing.T, store *SQLiteStorage, slug, label string) {
	t.Helper()
	err := store.CreateCategory(context.Background(), &types.Category{Slug: slug, Label: label})
	require.NoError(t, err)
}

func testContext(id, fingerprint, slug string) *types.Context {
	return &types.Context{
		ID:                 id,
		Fingerprint:        fingerprint,
		ContentFingerprint: "content-" + fingerprint,
		CategorySlug:       slug,
		Type:               types.ContextPage,
		Title:              "Title " + id,
		Description:        "Description " + id,
		Summary:            "Summary " + id,
	}
}

func TestNewSQLiteStorage(t *testing.T) {
	store := setupTestDB(t)
	defer store.Close()

	assert.NotNil(t, store)
	assert.NotNil(t, store.db)
}

func TestCreateContext(t *testing.T) {
	store := setupTestDB(t)
	defer store.Close()

	ctx := context.Background()
	mustCategory(t, store, "recipes", "Recipes")

	record := testContext("ctx-1", "fp-1", "recipes")
	err := store.CreateContext(ctx, record)
	require.NoError(t, err)
	assert.False(t, record.CreatedAt.IsZero())

	retrieved, err := store.GetContext(ctx, "ctx-1")
	require.NoError(t, err)
	assert.Equal(t, record.Fingerprint, retrieved.Fingerprint)
	assert.Equal(t, types.ContextPage, retrieved.Type)
	assert.Equal(t, "recipes", retrieved.CategorySlug)
}

func TestCreateContext_DuplicatePageFingerprint(t *testing.T) {
	store := setupTestDB(t)
	defer store.Close()

	ctx := context.Background()
	mustCategory(t, store, "recipes", "Recipes")

	require.NoError(t, store.CreateContext(ctx, testContext("ctx-1", "fp-1", "recipes")))

	duplicate := testContext("ctx-2", "fp-1", "recipes")
	err := store.CreateContext(ctx, duplicate)
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestCreateContext_DuplicateTextContentFingerprint(t *testing.T) {
	store := setupTestDB(t)
	defer store.Close()

	ctx := context.Background()
	mustCategory(t, store, "notes", "Notes")

	first := testContext("ctx-1", "fp-1", "notes")
	first.Type = types.ContextText
	first.ContentFingerprint = "snippet-hash"
	require.NoError(t, store.CreateContext(ctx, first))

	second := testContext("ctx-2", "fp-2", "notes")
	second.Type = types.ContextText
	second.ContentFingerprint = "snippet-hash"
	assert.ErrorIs(t, store.CreateContext(ctx, second), ErrAlreadyExists)

	// Same content fingerprint is fine for pages - only text dedups on it
	third := testContext("ctx-3", "fp-3", "notes")
	third.ContentFingerprint = "snippet-hash"
	assert.NoError(t, store.CreateContext(ctx, third))
}

func TestGetContextByFingerprint(t *testing.T) {
	store := setupTestDB(t)
	defer store.Close()

	ctx := context.Background()
	mustCategory(t, store, "recipes", "Recipes")
	require.NoError(t, store.CreateContext(ctx, testContext("ctx-1", "fp-1", "recipes")))

	retrieved, err := store.GetContextByFingerprint(ctx, "fp-1")
	require.NoError(t, err)
	assert.Equal(t, "ctx-1", retrieved.ID)

	_, err = store.GetContextByFingerprint(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteContext_CascadesEmbeddingsAndAsset(t *testing.T) {
	store := setupTestDB(t)
	defer store.Close()

	ctx := context.Background()
	mustCategory(t, store, "recipes", "Recipes")

	asset := &types.Asset{ID: "asset-1", MimeType: "image/png", Data: []byte{1, 2, 3}}
	require.NoError(t, store.CreateAsset(ctx, asset))

	record := testContext("ctx-1", "fp-1", "recipes")
	record.Type = types.ContextImage
	record.AssetID = "asset-1"
	require.NoError(t, store.CreateContext(ctx, record))

	parent := &types.EmbeddingRecord{
		ID:         "ctx-1",
		Vector:     []float32{1, 0, 0},
		RawContent: "parent content",
		Metadata:   types.EmbeddingMetadata{ContextID: "ctx-1", Type: types.EmbeddingParent},
	}
	chunk := &types.EmbeddingRecord{
		ID:         "ctx-1-chunk-abc",
		Vector:     []float32{0, 1, 0},
		RawContent: "chunk content",
		Metadata:   types.EmbeddingMetadata{ContextID: "ctx-1", Type: types.EmbeddingChunk},
	}
	require.NoError(t, store.UpsertEmbedding(ctx, parent))
	require.NoError(t, store.UpsertEmbedding(ctx, chunk))

	require.NoError(t, store.DeleteContext(ctx, "ctx-1"))

	_, err := store.GetContext(ctx, "ctx-1")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.GetEmbedding(ctx, "ctx-1")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.GetEmbedding(ctx, "ctx-1-chunk-abc")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.GetAsset(ctx, "asset-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteContext_NotFound(t *testing.T) {
	store := setupTestDB(t)
	defer store.Close()

	err := store.DeleteContext(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateCategory_Duplicate(t *testing.T) {
	store := setupTestDB(t)
	defer store.Close()

	mustCategory(t, store, "recipes", "Recipes")
	err := store.CreateCategory(context.Background(), &types.Category{Slug: "recipes", Label: "Recipes again"})
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestRenameCategory_MigratesAllContexts(t *testing.T) {
	store := setupTestDB(t)
	defer store.Close()

	ctx := context.Background()
	mustCategory(t, store, "old", "Old")

	for _, id := range []string{"ctx-1", "ctx-2", "ctx-3"} {
		record := testContext(id, "fp-"+id, "old")
		require.NoError(t, store.CreateContext(ctx, record))
		require.NoError(t, store.UpsertEmbedding(ctx, &types.EmbeddingRecord{
			ID:         id,
			Vector:     []float32{1},
			RawContent: "content",
			Metadata:   types.EmbeddingMetadata{ContextID: id, Type: types.EmbeddingParent, Category: "old"},
		}))
	}

	require.NoError(t, store.RenameCategory(ctx, "old", "new", "New"))

	oldContexts, err := store.ListContextsByCategory(ctx, "old")
	require.NoError(t, err)
	assert.Empty(t, oldContexts)

	newContexts, err := store.ListContextsByCategory(ctx, "new")
	require.NoError(t, err)
	assert.Len(t, newContexts, 3)

	_, err = store.GetCategory(ctx, "old")
	assert.ErrorIs(t, err, ErrNotFound)

	renamed, err := store.GetCategory(ctx, "new")
	require.NoError(t, err)
	assert.Equal(t, "New", renamed.Label)

	// Embedding metadata follows the rename
	emb, err := store.GetEmbedding(ctx, "ctx-1")
	require.NoError(t, err)
	assert.Equal(t, "new", emb.Metadata.Category)
}

func TestRenameCategory_MergeIntoExisting(t *testing.T) {
	store := setupTestDB(t)
	defer store.Close()

	ctx := context.Background()
	mustCategory(t, store, "old", "Old")
	mustCategory(t, store, "new", "New")
	require.NoError(t, store.CreateContext(ctx, testContext("ctx-1", "fp-1", "old")))

	require.NoError(t, store.RenameCategory(ctx, "old", "new", ""))

	migrated, err := store.ListContextsByCategory(ctx, "new")
	require.NoError(t, err)
	assert.Len(t, migrated, 1)
}

func TestRenameCategory_MissingSource(t *testing.T) {
	store := setupTestDB(t)
	defer store.Close()

	err := store.RenameCategory(context.Background(), "missing", "new", "New")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetStatus(t *testing.T) {
	store := setupTestDB(t)
	defer store.Close()

	ctx := context.Background()
	mustCategory(t, store, "recipes", "Recipes")
	require.NoError(t, store.CreateContext(ctx, testContext("ctx-1", "fp-1", "recipes")))
	require.NoError(t, store.CreateQueueItem(ctx, &types.QueueItem{
		ID: "job-1", Payload: []byte(`{}`), Status: types.StatusPending,
	}))

	status, err := store.GetStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, status.Contexts)
	assert.Equal(t, 1, status.Categories)
	assert.Equal(t, 0, status.Embeddings)
	assert.Equal(t, 1, status.QueueByStatus[types.StatusPending])
}
