package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/recallkit/recall-mcp/pkg/types"
)

// Queue item operations

func (s *SQLiteStorage) CreateQueueItem(ctx context.Context, item *types.QueueItem) error {
	query := `INSERT INTO queue_items (id, payload, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`
	now := time.Now()
	_, err := s.db.ExecContext(ctx, query, item.ID, string(item.Payload), string(item.Status), now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("queue item %s: %w", item.ID, ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create queue item: %w", err)
	}
	item.CreatedAt = now
	item.UpdatedAt = now
	return nil
}

const queueColumns = `id, payload, status, created_at, updated_at`

func (s *SQLiteStorage) GetQueueItem(ctx context.Context, id string) (*types.QueueItem, error) {
	query := `SELECT ` + queueColumns + ` FROM queue_items WHERE id = ?`
	item, err := scanQueueItem(s.db.QueryRowContext(ctx, query, id).Scan)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get queue item: %w", err)
	}
	return item, nil
}

func (s *SQLiteStorage) ListQueueItems(ctx context.Context) ([]*types.QueueItem, error) {
	query := `SELECT ` + queueColumns + ` FROM queue_items ORDER BY created_at`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list queue items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var items []*types.QueueItem
	for rows.Next() {
		item, err := scanQueueItem(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan queue item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// OldestPending returns the oldest item still in the pending state
func (s *SQLiteStorage) OldestPending(ctx context.Context) (*types.QueueItem, error) {
	query := `SELECT ` + queueColumns + ` FROM queue_items WHERE status = ? ORDER BY created_at LIMIT 1`
	item, err := scanQueueItem(s.db.QueryRowContext(ctx, query, string(types.StatusPending)).Scan)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find next pending item: %w", err)
	}
	return item, nil
}

func (s *SQLiteStorage) CountQueueByStatus(ctx context.Context, status types.QueueStatus) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM queue_items WHERE status = ?", string(status)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count queue items: %w", err)
	}
	return count, nil
}

func (s *SQLiteStorage) UpdateQueueStatus(ctx context.Context, id string, status types.QueueStatus) error {
	result, err := s.db.ExecContext(ctx, "UPDATE queue_items SET status = ?, updated_at = ? WHERE id = ?",
		string(status), time.Now(), id)
	if err != nil {
		if isUniqueViolation(err) {
			// The single-processing partial index rejected a second in-flight item
			return fmt.Errorf("processing slot taken: %w", ErrAlreadyExists)
		}
		return fmt.Errorf("failed to update queue status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStorage) DeleteQueueItem(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM queue_items WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete queue item: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// failStaleProcessing marks any processing row as failed. A single process
// owns the queue, so an in-flight row found at open time was orphaned by an
// unclean exit and must release the slot for the job to be retried.
func failStaleProcessing(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, "UPDATE queue_items SET status = ?, updated_at = ? WHERE status = ?",
		string(types.StatusFailed), time.Now(), string(types.StatusProcessing))
	if err != nil {
		return fmt.Errorf("failed to recover stale queue items: %w", err)
	}
	return nil
}

func scanQueueItem(scan func(dest ...interface{}) error) (*types.QueueItem, error) {
	var item types.QueueItem
	var payload string
	var status string
	if err := scan(&item.ID, &payload, &status, &item.CreatedAt, &item.UpdatedAt); err != nil {
		return nil, err
	}
	item.Payload = []byte(payload)
	item.Status = types.QueueStatus(status)
	return &item, nil
}
