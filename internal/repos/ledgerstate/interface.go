package ledgerstate

import (
	"context"
	"errors"

	"github.com/fastprodman/stashledger/internal/stash"
)

var ErrValueOutOfRange = errors.New("value out of storable range")

// LedgerState persists the flat ledger record: storage per category, four
// counters per actor and the pending credit set.
type LedgerState interface {
	Load(ctx context.Context) (stash.State, error)
	Save(ctx context.Context, state stash.State) error
}
