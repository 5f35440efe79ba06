// Package ledger owns the canonical storage and per-actor statistics.
//
// All mutation goes through Apply, which is atomic over a batch of
// transactions: the batch is applied to a copy of the state, the copy is
// persisted when a Store is configured, and only then swapped in.
package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/fastprodman/stashledger/internal/stash"
)

// Store persists the full ledger state after each commit.
type Store interface {
	Save(ctx context.Context, state stash.State) error
}

// CommitResult describes one successful Apply.
type CommitResult struct {
	Before  stash.State
	After   stash.State
	Applied []stash.Transaction
}

type Ledger struct {
	mu    sync.Mutex
	state stash.State
	store Store
}

// New returns a ledger starting from initial. store may be nil.
func New(initial stash.State, store Store) *Ledger {
	return &Ledger{
		state: initial.Clone(),
		store: store,
	}
}

// Apply commits txs atomically. If any transaction fails, or the store
// rejects the new state, nothing changes.
func (l *Ledger) Apply(ctx context.Context, txs ...stash.Transaction) (CommitResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	next := l.state.Clone()

	for i, tx := range txs {
		err := next.Apply(tx)
		if err != nil {
			return CommitResult{}, fmt.Errorf("apply %s (%d/%d): %w", tx.Kind, i+1, len(txs), err)
		}
	}

	if l.store != nil {
		err := l.store.Save(ctx, next)
		if err != nil {
			return CommitResult{}, fmt.Errorf("%w: save state: %w", stash.ErrCommitFailed, err)
		}
	}

	before := l.state
	l.state = next

	return CommitResult{
		Before:  before.Clone(),
		After:   next.Clone(),
		Applied: txs,
	}, nil
}

// Snapshot returns a deep copy of the current state.
func (l *Ledger) Snapshot() stash.State {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.state.Clone()
}

// Actor returns the statistics for id and whether the actor is known.
func (l *Ledger) Actor(id stash.ActorID) (stash.ActorStats, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.state.Actors[id]

	return s, ok
}
