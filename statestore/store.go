package statestore

import (
	"context"
	"errors"

	"github.com/programme-lv/duel/domain"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

type SubmissionRepo interface {
	// CreateSubmission fails with ErrDuplicate when the id was used before.
	CreateSubmission(ctx context.Context, subm domain.Submission) error
	PutSubmission(ctx context.Context, subm domain.Submission) error
	GetSubmission(ctx context.Context, id string) (domain.Submission, error)
	// ListSubmissions returns the user's submissions, oldest first.
	ListSubmissions(ctx context.Context, user string) ([]domain.Submission, error)
}

type SlotRepo interface {
	GetSlot(ctx context.Context, user string, role string) (domain.Slot, bool, error)
	PutSlot(ctx context.Context, slot domain.Slot) error
}

type QueueRepo interface {
	LoadQueue(ctx context.Context) ([]domain.QueueEntry, error)
	SaveQueue(ctx context.Context, queue []domain.QueueEntry) error
}

type StateRepo interface {
	// LoadState reports false when no state was ever saved.
	LoadState(ctx context.Context) (domain.State, bool, error)
	SaveState(ctx context.Context, state domain.State) error
}

// Store persists one record per submission and per slot, plus the queue and
// the state as singleton records.
type Store interface {
	SubmissionRepo
	SlotRepo
	QueueRepo
	StateRepo
	Close() error
}
