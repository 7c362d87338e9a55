package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/recallkit/recall-mcp/pkg/types"
)

// Embedding operations

func (s *SQLiteStorage) UpsertEmbedding(ctx context.Context, record *types.EmbeddingRecord) error {
	query := `
		INSERT INTO embeddings (id, context_id, type, category, url, raw_content, vector, dimension, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			context_id = excluded.context_id,
			type = excluded.type,
			category = excluded.category,
			url = excluded.url,
			raw_content = excluded.raw_content,
			vector = excluded.vector,
			dimension = excluded.dimension
	`
	now := time.Now()
	_, err := s.db.ExecContext(ctx, query,
		record.ID, record.Metadata.ContextID, string(record.Metadata.Type),
		record.Metadata.Category, record.Metadata.URL, record.RawContent,
		serializeVector(record.Vector), len(record.Vector), now)
	if err != nil {
		return fmt.Errorf("failed to upsert embedding: %w", err)
	}
	record.CreatedAt = now
	return nil
}

const embeddingColumns = `id, context_id, type, COALESCE(category, ''), COALESCE(url, ''), raw_content, vector`

func (s *SQLiteStorage) GetEmbedding(ctx context.Context, id string) (*types.EmbeddingRecord, error) {
	query := `SELECT ` + embeddingColumns + ` FROM embeddings WHERE id = ?`
	row := s.db.QueryRowContext(ctx, query, id)

	record, err := scanEmbedding(row.Scan)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get embedding: %w", err)
	}
	return record, nil
}

func (s *SQLiteStorage) ListEmbeddings(ctx context.Context) ([]*types.EmbeddingRecord, error) {
	query := `SELECT ` + embeddingColumns + ` FROM embeddings ORDER BY created_at`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list embeddings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []*types.EmbeddingRecord
	for rows.Next() {
		record, err := scanEmbedding(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan embedding: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// DeleteEmbeddingsByContext removes the parent embedding and every chunk
// embedding whose metadata references the context
func (s *SQLiteStorage) DeleteEmbeddingsByContext(ctx context.Context, contextID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM embeddings WHERE context_id = ?", contextID)
	if err != nil {
		return fmt.Errorf("failed to delete embeddings: %w", err)
	}
	return nil
}

// scanEmbedding reads one embedding row via the given scan function
func scanEmbedding(scan func(dest ...interface{}) error) (*types.EmbeddingRecord, error) {
	var record types.EmbeddingRecord
	var embeddingType string
	var blob []byte
	err := scan(&record.ID, &record.Metadata.ContextID, &embeddingType,
		&record.Metadata.Category, &record.Metadata.URL, &record.RawContent, &blob)
	if err != nil {
		return nil, err
	}
	record.Metadata.Type = types.EmbeddingType(embeddingType)
	record.Vector = deserializeVector(blob)
	return &record, nil
}
