package ledgerstate

import (
	"database/sql"
	"fmt"
	"math"

	"github.com/fastprodman/stashledger/internal/repos/ledgerstate"
)

var _ ledgerstate.LedgerState = (*ledgerStateRepo)(nil)

type ledgerStateRepo struct{ db *sql.DB }

func New(db *sql.DB) *ledgerStateRepo {
	return &ledgerStateRepo{db: db}
}

// toBigint guards the uint64→BIGINT conversion.
func toBigint(v uint64) (int64, error) {
	if v > math.MaxInt64 {
		return 0, fmt.Errorf("%w: %d", ledgerstate.ErrValueOutOfRange, v)
	}

	return int64(v), nil
}
