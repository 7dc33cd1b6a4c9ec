package statestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/programme-lv/duel/domain"
)

const (
	prefixSubm = "subm/"
	prefixSlot = "slot/"
	keyQueue   = "queue"
	keyState   = "state"
)

// PebbleStore persists records in a local Pebble database.
// Every write is synced, the worker relies on it surviving a crash.
type PebbleStore struct {
	db     *pebble.DB
	logger *slog.Logger

	// serializes check-then-set in CreateSubmission
	createMu sync.Mutex
}

var _ Store = (*PebbleStore)(nil)

func NewPebbleStore(path string) (*PebbleStore, error) {
	opts := &pebble.Options{
		Cache:        pebble.NewCache(32 << 20),
		MemTableSize: 16 << 20,
	}
	db, err := pebble.Open(path, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble at %s: %w", path, err)
	}
	return &PebbleStore{
		db:     db,
		logger: slog.Default().With("module", "pebblestore"),
	}, nil
}

func (p *PebbleStore) get(key string) ([]byte, error) {
	value, closer, err := p.db.Get([]byte(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	// value is invalid after closer.Close()
	res := make([]byte, len(value))
	copy(res, value)
	return res, nil
}

func (p *PebbleStore) set(key string, value []byte) error {
	return p.db.Set([]byte(key), value, pebble.Sync)
}

func (p *PebbleStore) getJson(key string, v any) error {
	data, err := p.get(key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}
	return nil
}

func (p *PebbleStore) setJson(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	return p.set(key, data)
}

func (p *PebbleStore) CreateSubmission(ctx context.Context, subm domain.Submission) error {
	p.createMu.Lock()
	defer p.createMu.Unlock()

	_, err := p.get(prefixSubm + subm.ID)
	if err == nil {
		return ErrDuplicate
	}
	if !errors.Is(err, ErrNotFound) {
		return err
	}
	return p.setJson(prefixSubm+subm.ID, subm)
}

func (p *PebbleStore) PutSubmission(ctx context.Context, subm domain.Submission) error {
	return p.setJson(prefixSubm+subm.ID, subm)
}

func (p *PebbleStore) GetSubmission(ctx context.Context, id string) (domain.Submission, error) {
	var subm domain.Submission
	if err := p.getJson(prefixSubm+id, &subm); err != nil {
		return domain.Submission{}, err
	}
	return subm, nil
}

// ListSubmissions scans subm/{user}/, ids are "{user}/{uuid}".
func (p *PebbleStore) ListSubmissions(ctx context.Context, user string) ([]domain.Submission, error) {
	prefix := []byte(prefixSubm + user + "/")
	iter, err := p.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixUpperBound(prefix),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	res := []domain.Submission{}
	for iter.First(); iter.Valid(); iter.Next() {
		value, err := iter.ValueAndErr()
		if err != nil {
			return nil, err
		}
		var subm domain.Submission
		if err := json.Unmarshal(value, &subm); err != nil {
			p.logger.Error("skipping corrupt submission", "key", string(iter.Key()), "error", err)
			continue
		}
		res = append(res, subm)
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}
	sortByTime(res)
	return res, nil
}

func (p *PebbleStore) GetSlot(ctx context.Context, user string, role string) (domain.Slot, bool, error) {
	var slot domain.Slot
	err := p.getJson(prefixSlot+slotKey(user, role), &slot)
	if errors.Is(err, ErrNotFound) {
		return domain.Slot{}, false, nil
	}
	if err != nil {
		return domain.Slot{}, false, err
	}
	return slot, true, nil
}

func (p *PebbleStore) PutSlot(ctx context.Context, slot domain.Slot) error {
	return p.setJson(prefixSlot+slotKey(slot.User, slot.Role), slot)
}

func (p *PebbleStore) LoadQueue(ctx context.Context) ([]domain.QueueEntry, error) {
	queue := []domain.QueueEntry{}
	err := p.getJson(keyQueue, &queue)
	if errors.Is(err, ErrNotFound) {
		return []domain.QueueEntry{}, nil
	}
	return queue, err
}

func (p *PebbleStore) SaveQueue(ctx context.Context, queue []domain.QueueEntry) error {
	if queue == nil {
		queue = []domain.QueueEntry{}
	}
	return p.setJson(keyQueue, queue)
}

func (p *PebbleStore) LoadState(ctx context.Context) (domain.State, bool, error) {
	data, err := p.get(keyState)
	if errors.Is(err, ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	s, err := decodeState(data)
	if err != nil {
		return nil, false, err
	}
	return s, true, nil
}

func (p *PebbleStore) SaveState(ctx context.Context, state domain.State) error {
	data, err := encodeState(state)
	if err != nil {
		return err
	}
	return p.set(keyState, data)
}

func (p *PebbleStore) Close() error {
	return p.db.Close()
}

// prefixUpperBound returns the smallest key greater than every key with prefix.
func prefixUpperBound(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}
