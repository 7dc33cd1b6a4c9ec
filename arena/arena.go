package arena

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/programme-lv/duel/domain"
	"github.com/programme-lv/duel/scoreboard"
	"github.com/programme-lv/duel/statestore"
)

// Arena owns the authoritative result matrix and the scoreboard derived from it.
// The worker is the only writer; readers always get deep copies.
type Arena struct {
	logger *slog.Logger
	rules  scoreboard.Rules
	repo   statestore.StateRepo

	mu    sync.RWMutex
	state domain.State
	board scoreboard.Scoreboard
}

// New loads the persisted state, or starts empty with one RoleState per role.
func New(ctx context.Context, rules scoreboard.Rules, repo statestore.StateRepo) (*Arena, error) {
	state, ok, err := repo.LoadState(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load state: %w", err)
	}
	if !ok {
		state = domain.NewState(rules.Roles()...)
		if err := repo.SaveState(ctx, state); err != nil {
			return nil, fmt.Errorf("failed to save initial state: %w", err)
		}
	}
	for _, role := range rules.Roles() {
		if state[role] == nil {
			state[role] = domain.RoleState{}
		}
	}

	a := &Arena{
		logger: slog.Default().With("module", "arena"),
		rules:  rules,
		repo:   repo,
		state:  state,
		board:  scoreboard.Compute(rules, state),
	}
	return a, nil
}

func (a *Arena) Rules() scoreboard.Rules {
	return a.rules
}

// Snapshot returns a deep copy of every RoleState.
func (a *Arena) Snapshot() domain.State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state.Clone()
}

func (a *Arena) Scoreboard() scoreboard.Scoreboard {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.board.Clone()
}

// Commit persists next and only then makes it visible together with its
// recomputed scoreboard. On error the previous state stays in place.
func (a *Arena) Commit(ctx context.Context, next domain.State) error {
	if err := a.repo.SaveState(ctx, next); err != nil {
		return fmt.Errorf("failed to persist state: %w", err)
	}
	board := scoreboard.Compute(a.rules, next)

	a.mu.Lock()
	a.state = next.Clone()
	a.board = board
	a.mu.Unlock()

	a.logger.Debug("state committed", "rows", len(board.Rows))
	return nil
}
