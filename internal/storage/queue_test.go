package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recallkit/recall-mcp/pkg/types"
)

func TestCreateQueueItem_Duplicate(t *testing.T) {
	store := setupTestDB(t)
	defer store.Close()

	ctx := context.Background()
	item := &types.QueueItem{ID: "job-1", Payload: []byte(`{"content":"a"}`), Status: types.StatusPending}
	require.NoError(t, store.CreateQueueItem(ctx, item))

	dup := &types.QueueItem{ID: "job-1", Payload: []byte(`{}`), Status: types.StatusPending}
	assert.ErrorIs(t, store.CreateQueueItem(ctx, dup), ErrAlreadyExists)
}

func TestOldestPending_FIFO(t *testing.T) {
	store := setupTestDB(t)
	defer store.Close()

	ctx := context.Background()
	for _, id := range []string{"job-1", "job-2", "job-3"} {
		require.NoError(t, store.CreateQueueItem(ctx, &types.QueueItem{
			ID: id, Payload: []byte(`{}`), Status: types.StatusPending,
		}))
		time.Sleep(5 * time.Millisecond) // created_at ordering
	}

	next, err := store.OldestPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, "job-1", next.ID)

	require.NoError(t, store.UpdateQueueStatus(ctx, "job-1", types.StatusCompleted))

	next, err = store.OldestPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, "job-2", next.ID)
}

func TestOldestPending_Empty(t *testing.T) {
	store := setupTestDB(t)
	defer store.Close()

	_, err := store.OldestPending(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateQueueStatus(t *testing.T) {
	store := setupTestDB(t)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.CreateQueueItem(ctx, &types.QueueItem{
		ID: "job-1", Payload: []byte(`{}`), Status: types.StatusPending,
	}))

	require.NoError(t, store.UpdateQueueStatus(ctx, "job-1", types.StatusProcessing))

	item, err := store.GetQueueItem(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, types.StatusProcessing, item.Status)

	assert.ErrorIs(t, store.UpdateQueueStatus(ctx, "missing", types.StatusFailed), ErrNotFound)
}

func TestUpdateQueueStatus_SingleProcessingSlot(t *testing.T) {
	store := setupTestDB(t)
	defer store.Close()

	ctx := context.Background()
	for _, id := range []string{"job-1", "job-2"} {
		require.NoError(t, store.CreateQueueItem(ctx, &types.QueueItem{
			ID: id, Payload: []byte(`{}`), Status: types.StatusPending,
		}))
	}

	require.NoError(t, store.UpdateQueueStatus(ctx, "job-1", types.StatusProcessing))

	// The schema itself rejects a second processing row
	err := store.UpdateQueueStatus(ctx, "job-2", types.StatusProcessing)
	assert.ErrorIs(t, err, ErrAlreadyExists)

	count, err := store.CountQueueByStatus(ctx, types.StatusProcessing)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestDeleteQueueItem(t *testing.T) {
	store := setupTestDB(t)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.CreateQueueItem(ctx, &types.QueueItem{
		ID: "job-1", Payload: []byte(`{}`), Status: types.StatusCompleted,
	}))

	require.NoError(t, store.DeleteQueueItem(ctx, "job-1"))
	assert.ErrorIs(t, store.DeleteQueueItem(ctx, "job-1"), ErrNotFound)
}
