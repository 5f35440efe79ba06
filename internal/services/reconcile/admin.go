package reconcile

import (
	"context"
	"strconv"

	"github.com/fastprodman/stashledger/internal/stash"
)

// ForceSetStock overwrites the storage quantity for the category behind
// label. Only the privilege check applies.
func (e *Engine) ForceSetStock(ctx context.Context, actor stash.ActorID, privileged bool, label string, value uint64) Result {
	return e.Submit(ctx, ManualEntry{
		Actor:      actor,
		Privileged: privileged,
		Kind:       string(stash.KindForceSetStock),
		Label:      label,
		Amount:     strconv.FormatUint(value, 10),
	})
}

// ResetLedger clears part of the ledger:
//
//	money       funds storage
//	goods       goods storage
//	leaderboard per-actor statistics
//	all         everything, including pending credit
func (e *Engine) ResetLedger(ctx context.Context, actor stash.ActorID, privileged bool, scope string) Result {
	return e.Submit(ctx, ManualEntry{
		Actor:      actor,
		Privileged: privileged,
		Kind:       string(stash.KindResetLedger),
		Scope:      scope,
	})
}
