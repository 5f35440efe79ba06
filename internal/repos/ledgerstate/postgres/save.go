package ledgerstate

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fastprodman/stashledger/internal/infra/pgutils"
	"github.com/fastprodman/stashledger/internal/stash"
)

// Save replaces the persisted state with state in one transaction.
func (r *ledgerStateRepo) Save(ctx context.Context, state stash.State) error {
	err := pgutils.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		err := saveStorage(ctx, tx, state.Storage)
		if err != nil {
			return err
		}

		err = saveActors(ctx, tx, state.Actors)
		if err != nil {
			return err
		}

		return savePendingCredit(ctx, tx, state.PendingCredit)
	})
	if err != nil {
		return fmt.Errorf("save ledger state: %w", err)
	}

	return nil
}

func saveStorage(ctx context.Context, tx *sql.Tx, storage map[stash.Category]uint64) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM storage`)
	if err != nil {
		return fmt.Errorf("clear storage: %w", err)
	}

	for c, q := range storage {
		v, err := toBigint(q)
		if err != nil {
			return fmt.Errorf("storage %s: %w", c, err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO storage (category, quantity)
			VALUES ($1, $2)
		`, string(c), v)
		if err != nil {
			return fmt.Errorf("insert storage %s: %w", c, err)
		}
	}

	return nil
}

func saveActors(ctx context.Context, tx *sql.Tx, actors map[stash.ActorID]stash.ActorStats) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM actors`)
	if err != nil {
		return fmt.Errorf("clear actors: %w", err)
	}

	for id, s := range actors {
		vals := make([]int64, 0, 4)

		for _, u := range []uint64{s.GoodsTaken, s.GoodsDeposited, s.FundsPaid, s.FundsWithdrawn} {
			v, err := toBigint(u)
			if err != nil {
				return fmt.Errorf("actor %s: %w", id, err)
			}

			vals = append(vals, v)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO actors (id, goods_taken, goods_deposited, funds_paid, funds_withdrawn)
			VALUES ($1, $2, $3, $4, $5)
		`, string(id), vals[0], vals[1], vals[2], vals[3])
		if err != nil {
			return fmt.Errorf("insert actor %s: %w", id, err)
		}
	}

	return nil
}

func savePendingCredit(ctx context.Context, tx *sql.Tx, pending map[stash.ActorID]uint64) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM pending_credit`)
	if err != nil {
		return fmt.Errorf("clear pending credit: %w", err)
	}

	for id, amount := range pending {
		v, err := toBigint(amount)
		if err != nil {
			return fmt.Errorf("pending credit %s: %w", id, err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO pending_credit (actor_id, amount)
			VALUES ($1, $2)
		`, string(id), v)
		if err != nil {
			return fmt.Errorf("insert pending credit %s: %w", id, err)
		}
	}

	return nil
}
