package arena_test

import (
	"context"
	"errors"
	"testing"

	"github.com/programme-lv/duel/arena"
	"github.com/programme-lv/duel/domain"
	"github.com/programme-lv/duel/scoreboard"
	"github.com/programme-lv/duel/statestore"
	"github.com/stretchr/testify/require"
)

var rules = scoreboard.Rules{
	Policy:    scoreboard.PolicyMargin,
	Producer:  "client",
	Consumer:  "server",
	Testcases: 1,
	Combos:    []string{"std"},
}

type failingRepo struct {
	statestore.StateRepo
}

func (failingRepo) SaveState(context.Context, domain.State) error {
	return errors.New("disk full")
}

func duel() domain.State {
	s := domain.NewState("client", "server")
	s["client"]["carol"] = domain.Entry{SubmissionID: "carol/1", Result: map[string]domain.OpponentResult{
		"sam": {OpponentUser: "sam", Testpoints: []domain.TestpointScore{{Testcase: 1, Variant: "std", Score: 1}}},
	}}
	s["server"]["sam"] = domain.Entry{SubmissionID: "sam/1", Result: map[string]domain.OpponentResult{
		"carol": {OpponentUser: "carol", Testpoints: []domain.TestpointScore{{Testcase: 1, Variant: "std", Score: 1}}},
	}}
	return s
}

func TestNewStartsEmptyAndPersists(t *testing.T) {
	ctx := context.Background()
	store := statestore.NewMemStore()

	a, err := arena.New(ctx, rules, store)
	require.NoError(t, err)
	require.Equal(t, domain.NewState("client", "server"), a.Snapshot())
	require.Empty(t, a.Scoreboard().Rows)

	_, ok, err := store.LoadState(ctx)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestCommitRecomputesScoreboard(t *testing.T) {
	ctx := context.Background()
	store := statestore.NewMemStore()
	a, err := arena.New(ctx, rules, store)
	require.NoError(t, err)

	require.NoError(t, a.Commit(ctx, duel()))

	board := a.Scoreboard()
	require.Len(t, board.Rows, 2)
	require.Equal(t, "sam", board.Rows[0].User)
	require.Equal(t, 1.0, board.Rows[0].Total)

	reloaded, err := arena.New(ctx, rules, store)
	require.NoError(t, err)
	require.Equal(t, a.Snapshot(), reloaded.Snapshot())
	require.Equal(t, board, reloaded.Scoreboard())
}

func TestSnapshotIsIsolated(t *testing.T) {
	ctx := context.Background()
	a, err := arena.New(ctx, rules, statestore.NewMemStore())
	require.NoError(t, err)
	require.NoError(t, a.Commit(ctx, duel()))

	snap := a.Snapshot()
	snap["client"]["carol"].Result["sam"].Testpoints[0].Score = 0
	delete(snap["server"], "sam")

	again := a.Snapshot()
	require.Equal(t, 1.0, again["client"]["carol"].Result["sam"].Testpoints[0].Score)
	require.Contains(t, again["server"], "sam")
}

func TestFailedCommitKeepsPreviousState(t *testing.T) {
	ctx := context.Background()
	store := statestore.NewMemStore()
	require.NoError(t, store.SaveState(ctx, domain.NewState("client", "server")))

	a, err := arena.New(ctx, rules, failingRepo{StateRepo: store})
	require.NoError(t, err)

	err = a.Commit(ctx, duel())
	require.ErrorContains(t, err, "disk full")
	require.Empty(t, a.Snapshot()["client"])
	require.Empty(t, a.Scoreboard().Rows)
}
