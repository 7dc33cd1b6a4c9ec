package statestore

import (
	"context"
	"strings"
	"sync"

	"github.com/programme-lv/duel/domain"
)

// MemStore keeps everything in process memory. Used in tests and with store=memory.
type MemStore struct {
	mu    sync.Mutex
	subms map[string]domain.Submission
	slots map[string]domain.Slot
	queue []domain.QueueEntry
	state domain.State
}

var _ Store = (*MemStore)(nil)

func NewMemStore() *MemStore {
	return &MemStore{
		subms: map[string]domain.Submission{},
		slots: map[string]domain.Slot{},
	}
}

func (m *MemStore) CreateSubmission(ctx context.Context, subm domain.Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.subms[subm.ID]; ok {
		return ErrDuplicate
	}
	m.subms[subm.ID] = subm
	return nil
}

func (m *MemStore) PutSubmission(ctx context.Context, subm domain.Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subms[subm.ID] = subm
	return nil
}

func (m *MemStore) GetSubmission(ctx context.Context, id string) (domain.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	subm, ok := m.subms[id]
	if !ok {
		return domain.Submission{}, ErrNotFound
	}
	return subm, nil
}

func (m *MemStore) ListSubmissions(ctx context.Context, user string) ([]domain.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res := []domain.Submission{}
	for id, subm := range m.subms {
		if strings.HasPrefix(id, user+"/") {
			res = append(res, subm)
		}
	}
	sortByTime(res)
	return res, nil
}

func (m *MemStore) GetSlot(ctx context.Context, user string, role string) (domain.Slot, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	slot, ok := m.slots[slotKey(user, role)]
	return slot, ok, nil
}

func (m *MemStore) PutSlot(ctx context.Context, slot domain.Slot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slots[slotKey(slot.User, slot.Role)] = slot
	return nil
}

func (m *MemStore) LoadQueue(ctx context.Context) ([]domain.QueueEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.QueueEntry{}, m.queue...), nil
}

func (m *MemStore) SaveQueue(ctx context.Context, queue []domain.QueueEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append([]domain.QueueEntry{}, queue...)
	return nil
}

func (m *MemStore) LoadState(ctx context.Context) (domain.State, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == nil {
		return nil, false, nil
	}
	return m.state.Clone(), true, nil
}

func (m *MemStore) SaveState(ctx context.Context, state domain.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = state.Clone()
	return nil
}

func (m *MemStore) Close() error {
	return nil
}

func slotKey(user string, role string) string {
	return user + "/" + role
}
