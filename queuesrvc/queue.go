package queuesrvc

import (
	"context"

	"github.com/programme-lv/duel/domain"
)

// Queue is the durable FIFO of submissions waiting to be judged.
// It is safe for concurrent producers and a single consumer.
type Queue interface {
	Push(ctx context.Context, entry domain.QueueEntry) error
	// Head returns the oldest entry without removing it.
	Head(ctx context.Context) (domain.QueueEntry, bool, error)
	// Pop removes the head if it is entry.
	Pop(ctx context.Context, entry domain.QueueEntry) error
	List(ctx context.Context) ([]domain.QueueEntry, error)
}
