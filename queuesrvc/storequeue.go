package queuesrvc

import (
	"context"
	"fmt"
	"sync"

	"github.com/programme-lv/duel/domain"
	"github.com/programme-lv/duel/statestore"
)

// StoreQueue keeps the queue as a singleton record in the state store.
// The in-memory copy changes only after the record was written.
type StoreQueue struct {
	mu      sync.Mutex
	repo    statestore.QueueRepo
	entries []domain.QueueEntry
}

var _ Queue = (*StoreQueue)(nil)

func NewStoreQueue(ctx context.Context, repo statestore.QueueRepo) (*StoreQueue, error) {
	entries, err := repo.LoadQueue(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load queue: %w", err)
	}
	return &StoreQueue{repo: repo, entries: entries}, nil
}

func (q *StoreQueue) Push(ctx context.Context, entry domain.QueueEntry) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	next := append(append(make([]domain.QueueEntry, 0, len(q.entries)+1), q.entries...), entry)
	if err := q.repo.SaveQueue(ctx, next); err != nil {
		return fmt.Errorf("failed to save queue: %w", err)
	}
	q.entries = next
	return nil
}

func (q *StoreQueue) Head(ctx context.Context) (domain.QueueEntry, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.entries) == 0 {
		return domain.QueueEntry{}, false, nil
	}
	return q.entries[0], true, nil
}

func (q *StoreQueue) Pop(ctx context.Context, entry domain.QueueEntry) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.entries) == 0 || q.entries[0] != entry {
		return nil
	}

	next := append([]domain.QueueEntry{}, q.entries[1:]...)
	if err := q.repo.SaveQueue(ctx, next); err != nil {
		return fmt.Errorf("failed to save queue: %w", err)
	}
	q.entries = next
	return nil
}

func (q *StoreQueue) List(ctx context.Context) ([]domain.QueueEntry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]domain.QueueEntry{}, q.entries...), nil
}
