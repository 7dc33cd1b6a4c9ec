package statestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/guregu/dynamo/v2"
	"github.com/programme-lv/duel/domain"
)

// ddbRow is the single-table layout:
//
//	pk=user#{user}  sk=subm#{id}       submission
//	pk=user#{user}  sk=slot#{role}     slot
//	pk=queue        sk=queue           queue
//	pk=state        sk=state           zstd state
type ddbRow struct {
	Pk   string `dynamo:"pk,hash"`
	Sk   string `dynamo:"sk,range"`
	Data []byte `dynamo:"data"`
}

type DdbStore struct {
	table dynamo.Table
}

var _ Store = (*DdbStore)(nil)

func NewDdbStore(ddbClient *dynamodb.Client, tableName string) *DdbStore {
	db := dynamo.NewFromIface(ddbClient)
	return &DdbStore{table: db.Table(tableName)}
}

func userPk(user string) string {
	return "user#" + user
}

// submUser extracts the owner from a "{user}/{uuid}" id.
func submUser(id string) (string, error) {
	user, _, ok := strings.Cut(id, "/")
	if !ok || user == "" {
		return "", fmt.Errorf("malformed submission id %q", id)
	}
	return user, nil
}

func (d *DdbStore) get(ctx context.Context, pk string, sk string) ([]byte, error) {
	var row ddbRow
	err := d.table.Get("pk", pk).Range("sk", dynamo.Equal, sk).One(ctx, &row)
	if errors.Is(err, dynamo.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.Data, nil
}

func (d *DdbStore) put(ctx context.Context, pk string, sk string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s/%s: %w", pk, sk, err)
	}
	return d.table.Put(ddbRow{Pk: pk, Sk: sk, Data: data}).Run(ctx)
}

func (d *DdbStore) CreateSubmission(ctx context.Context, subm domain.Submission) error {
	user, err := submUser(subm.ID)
	if err != nil {
		return err
	}
	data, err := json.Marshal(subm)
	if err != nil {
		return fmt.Errorf("failed to marshal submission: %w", err)
	}
	row := ddbRow{Pk: userPk(user), Sk: "subm#" + subm.ID, Data: data}
	err = d.table.Put(row).If("attribute_not_exists(pk)").Run(ctx)
	if dynamo.IsCondCheckFailed(err) {
		return ErrDuplicate
	}
	return err
}

func (d *DdbStore) PutSubmission(ctx context.Context, subm domain.Submission) error {
	user, err := submUser(subm.ID)
	if err != nil {
		return err
	}
	return d.put(ctx, userPk(user), "subm#"+subm.ID, subm)
}

func (d *DdbStore) GetSubmission(ctx context.Context, id string) (domain.Submission, error) {
	user, err := submUser(id)
	if err != nil {
		return domain.Submission{}, ErrNotFound
	}
	data, err := d.get(ctx, userPk(user), "subm#"+id)
	if err != nil {
		return domain.Submission{}, err
	}
	var subm domain.Submission
	if err := json.Unmarshal(data, &subm); err != nil {
		return domain.Submission{}, fmt.Errorf("failed to unmarshal submission: %w", err)
	}
	return subm, nil
}

func (d *DdbStore) ListSubmissions(ctx context.Context, user string) ([]domain.Submission, error) {
	var rows []ddbRow
	err := d.table.Get("pk", userPk(user)).
		Range("sk", dynamo.BeginsWith, "subm#").
		All(ctx, &rows)
	if err != nil {
		return nil, err
	}
	res := make([]domain.Submission, 0, len(rows))
	for _, row := range rows {
		var subm domain.Submission
		if err := json.Unmarshal(row.Data, &subm); err != nil {
			return nil, fmt.Errorf("failed to unmarshal submission %s: %w", row.Sk, err)
		}
		res = append(res, subm)
	}
	sortByTime(res)
	return res, nil
}

func (d *DdbStore) GetSlot(ctx context.Context, user string, role string) (domain.Slot, bool, error) {
	data, err := d.get(ctx, userPk(user), "slot#"+role)
	if errors.Is(err, ErrNotFound) {
		return domain.Slot{}, false, nil
	}
	if err != nil {
		return domain.Slot{}, false, err
	}
	var slot domain.Slot
	if err := json.Unmarshal(data, &slot); err != nil {
		return domain.Slot{}, false, fmt.Errorf("failed to unmarshal slot: %w", err)
	}
	return slot, true, nil
}

func (d *DdbStore) PutSlot(ctx context.Context, slot domain.Slot) error {
	return d.put(ctx, userPk(slot.User), "slot#"+slot.Role, slot)
}

func (d *DdbStore) LoadQueue(ctx context.Context) ([]domain.QueueEntry, error) {
	data, err := d.get(ctx, keyQueue, keyQueue)
	if errors.Is(err, ErrNotFound) {
		return []domain.QueueEntry{}, nil
	}
	if err != nil {
		return nil, err
	}
	queue := []domain.QueueEntry{}
	if err := json.Unmarshal(data, &queue); err != nil {
		return nil, fmt.Errorf("failed to unmarshal queue: %w", err)
	}
	return queue, nil
}

func (d *DdbStore) SaveQueue(ctx context.Context, queue []domain.QueueEntry) error {
	if queue == nil {
		queue = []domain.QueueEntry{}
	}
	return d.put(ctx, keyQueue, keyQueue, queue)
}

func (d *DdbStore) LoadState(ctx context.Context) (domain.State, bool, error) {
	data, err := d.get(ctx, keyState, keyState)
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

func (d *DdbStore) SaveState(ctx context.Context, state domain.State) error {
	data, err := encodeState(state)
	if err != nil {
		return err
	}
	return d.table.Put(ddbRow{Pk: keyState, Sk: keyState, Data: data}).Run(ctx)
}

func (d *DdbStore) Close() error {
	return nil
}
