// Package queue implements the durable job queue that drives indexing work.
//
// Each queue item is keyed by a content fingerprint, making the queue the
// idempotency gate for indexing: at most one non-failed item can exist per
// key, and at most one item may hold the processing slot at a time. All
// other admitted work waits in pending and is drained in FIFO order.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/recallkit/recall-mcp/internal/storage"
	"github.com/recallkit/recall-mcp/pkg/types"
)

var (
	// ErrDuplicate is returned when admission declines a key because a
	// completed or in-flight item already exists. It is a no-op signal,
	// not a failure.
	ErrDuplicate = errors.New("duplicate job")
)

// Admission is the outcome of an admission attempt
type Admission int

const (
	// AdmissionProceed means the caller now owns the processing slot and
	// must run the job to a terminal status.
	AdmissionProceed Admission = iota
	// AdmissionQueued means the item was accepted but another job holds
	// the single execution slot; it waits in pending.
	AdmissionQueued
	// AdmissionDuplicate means a non-failed item with this key already
	// exists; nothing was queued.
	AdmissionDuplicate
)

func (a Admission) String() string {
	switch a {
	case AdmissionProceed:
		return "proceed"
	case AdmissionQueued:
		return "queued"
	case AdmissionDuplicate:
		return "duplicate"
	}
	return "unknown"
}

// Queue coordinates durable queue items with single-flight execution.
// Storage is injected so tests can run against an isolated store; the
// partial unique index on the processing status backs up the in-process
// serialization below.
type Queue struct {
	store storage.Storage

	// mu serializes check-then-act admission sequences
	mu sync.Mutex
}

// New creates a Queue over the given store
func New(store storage.Storage) *Queue {
	return &Queue{store: store}
}

// Add inserts a new pending item. It fails with storage.ErrAlreadyExists if
// a non-failed item with this key exists; a failed item is replaced so the
// job can be attempted again with the fresh payload.
func (q *Queue) Add(ctx context.Context, key string, payload json.RawMessage) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.addLocked(ctx, key, payload)
}

func (q *Queue) addLocked(ctx context.Context, key string, payload json.RawMessage) error {
	existing, err := q.store.GetQueueItem(ctx, key)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return err
	}

	if existing != nil {
		if existing.Status != types.StatusFailed {
			return fmt.Errorf("queue item %s: %w", key, storage.ErrAlreadyExists)
		}
		if err := q.store.DeleteQueueItem(ctx, key); err != nil {
			return err
		}
	}

	return q.store.CreateQueueItem(ctx, &types.QueueItem{
		ID:      key,
		Payload: payload,
		Status:  types.StatusPending,
	})
}

// UpdateStatus transitions an item's status
func (q *Queue) UpdateStatus(ctx context.Context, key string, status types.QueueStatus) error {
	if !status.Valid() {
		return fmt.Errorf("invalid queue status %q", status)
	}
	return q.store.UpdateQueueStatus(ctx, key, status)
}

// Find returns the item for a key, or storage.ErrNotFound
func (q *Queue) Find(ctx context.Context, key string) (*types.QueueItem, error) {
	return q.store.GetQueueItem(ctx, key)
}

// FindNext returns the oldest pending item, or nil if the backlog is empty
func (q *Queue) FindNext(ctx context.Context) (*types.QueueItem, error) {
	item, err := q.store.OldestPending(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	return item, err
}

// FindAll returns every queue item in insertion order
func (q *Queue) FindAll(ctx context.Context) ([]*types.QueueItem, error) {
	return q.store.ListQueueItems(ctx)
}

// Delete removes an item
func (q *Queue) Delete(ctx context.Context, key string) error {
	return q.store.DeleteQueueItem(ctx, key)
}

// Admit decides whether an externally submitted job should run now, wait,
// or be declined as a duplicate:
//
//  1. A completed, processing, or already-pending item with this key
//     declines the submission (duplicate in flight or already done).
//  2. A failed item is retried: it takes the processing slot if free,
//     otherwise it re-enters the pending backlog.
//  3. Otherwise the item is inserted pending and takes the processing slot
//     only when no other job holds it.
func (q *Queue) Admit(ctx context.Context, key string, payload json.RawMessage) (Admission, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	existing, err := q.store.GetQueueItem(ctx, key)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return AdmissionDuplicate, err
	}

	if existing != nil {
		switch existing.Status {
		case types.StatusCompleted, types.StatusProcessing, types.StatusPending:
			return AdmissionDuplicate, nil
		case types.StatusFailed:
			// Automatic retry on the next natural trigger
			return q.takeSlotLocked(ctx, key)
		}
	}

	if err := q.addLocked(ctx, key, payload); err != nil {
		return AdmissionDuplicate, err
	}
	return q.takeSlotLocked(ctx, key)
}

// AcquireNext is the internal drain trigger: it claims the oldest pending
// item for processing, bypassing the duplicate check because the item is
// already owned by the queue. Returns nil when the backlog is empty or the
// processing slot is held elsewhere.
func (q *Queue) AcquireNext(ctx context.Context) (*types.QueueItem, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	item, err := q.store.OldestPending(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	admission, err := q.takeSlotLocked(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	if admission != AdmissionProceed {
		return nil, nil
	}
	item.Status = types.StatusProcessing
	return item, nil
}

// takeSlotLocked moves the item to processing if the single execution slot
// is free, leaving it pending otherwise. Callers must hold q.mu.
func (q *Queue) takeSlotLocked(ctx context.Context, key string) (Admission, error) {
	inFlight, err := q.store.CountQueueByStatus(ctx, types.StatusProcessing)
	if err != nil {
		return AdmissionQueued, err
	}
	if inFlight > 0 {
		// Another job holds the slot; make sure this one waits in pending
		if err := q.ensurePending(ctx, key); err != nil {
			return AdmissionQueued, err
		}
		return AdmissionQueued, nil
	}

	if err := q.store.UpdateQueueStatus(ctx, key, types.StatusProcessing); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			// Lost the slot to a concurrent writer; wait in line
			if perr := q.ensurePending(ctx, key); perr != nil {
				return AdmissionQueued, perr
			}
			return AdmissionQueued, nil
		}
		return AdmissionQueued, err
	}
	return AdmissionProceed, nil
}

func (q *Queue) ensurePending(ctx context.Context, key string) error {
	item, err := q.store.GetQueueItem(ctx, key)
	if err != nil {
		return err
	}
	if item.Status == types.StatusPending {
		return nil
	}
	return q.store.UpdateQueueStatus(ctx, key, types.StatusPending)
}
