package storage

import (
	"context"
	"errors"

	"github.com/recallkit/recall-mcp/pkg/types"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when trying to create a duplicate entity
	ErrAlreadyExists = errors.New("already exists")
)

// Storage defines the interface for persisting contexts, categories, assets,
// embeddings, and durable queue items.
//
// All operations are atomic single-record reads and writes except
// RenameCategory and DeleteContext, whose multi-record cascades are applied
// as one transaction by the implementation.
type Storage interface {
	// Context operations
	CreateContext(ctx context.Context, record *types.Context) error
	GetContext(ctx context.Context, id string) (*types.Context, error)
	GetContextByFingerprint(ctx context.Context, fingerprint string) (*types.Context, error)
	GetContextByContentFingerprint(ctx context.Context, fingerprint string) (*types.Context, error)
	ListContexts(ctx context.Context) ([]*types.Context, error)
	ListContextsByCategory(ctx context.Context, slug string) ([]*types.Context, error)
	// DeleteContext removes the context, every embedding whose metadata
	// references it, and its asset if one is attached.
	DeleteContext(ctx context.Context, id string) error

	// Category operations
	CreateCategory(ctx context.Context, category *types.Category) error
	GetCategory(ctx context.Context, slug string) (*types.Category, error)
	ListCategories(ctx context.Context) ([]*types.Category, error)
	// RenameCategory re-keys the category and migrates every dependent
	// context to the new slug in a single transaction.
	RenameCategory(ctx context.Context, oldSlug, newSlug, newLabel string) error

	// Asset operations
	CreateAsset(ctx context.Context, asset *types.Asset) error
	GetAsset(ctx context.Context, id string) (*types.Asset, error)
	DeleteAsset(ctx context.Context, id string) error

	// Embedding operations
	UpsertEmbedding(ctx context.Context, record *types.EmbeddingRecord) error
	GetEmbedding(ctx context.Context, id string) (*types.EmbeddingRecord, error)
	ListEmbeddings(ctx context.Context) ([]*types.EmbeddingRecord, error)
	DeleteEmbeddingsByContext(ctx context.Context, contextID string) error

	// SearchVector ranks every stored embedding by cosine similarity against
	// the query vector and returns the top limit hits, best first.
	SearchVector(ctx context.Context, vector []float32, limit int) ([]VectorResult, error)

	// Queue operations
	CreateQueueItem(ctx context.Context, item *types.QueueItem) error
	GetQueueItem(ctx context.Context, id string) (*types.QueueItem, error)
	ListQueueItems(ctx context.Context) ([]*types.QueueItem, error)
	// OldestPending returns the oldest item in the pending state, or
	// ErrNotFound when the backlog is empty.
	OldestPending(ctx context.Context) (*types.QueueItem, error)
	CountQueueByStatus(ctx context.Context, status types.QueueStatus) (int, error)
	UpdateQueueStatus(ctx context.Context, id string, status types.QueueStatus) error
	DeleteQueueItem(ctx context.Context, id string) error

	// Status operations
	GetStatus(ctx context.Context) (*StoreStatus, error)

	// Database operations
	Close() error
}

// VectorResult represents one hit from a vector similarity search
type VectorResult struct {
	ID         string
	Score      float64
	Metadata   types.EmbeddingMetadata
	RawContent string
}

// StoreStatus contains record counts for the status surface
type StoreStatus struct {
	Contexts      int
	Categories    int
	Embeddings    int
	Assets        int
	QueueByStatus map[types.QueueStatus]int
}
