package ledgerstate

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fastprodman/stashledger/internal/stash"
)

// Load reads the persisted state. An empty database yields stash.NewState().
func (r *ledgerStateRepo) Load(ctx context.Context) (stash.State, error) {
	state := stash.NewState()

	err := scanRows(ctx, r.db, `SELECT category, quantity FROM storage`, func(rows *sql.Rows) error {
		var (
			c string
			q int64
		)

		err := rows.Scan(&c, &q)
		if err != nil {
			return err
		}

		state.Storage[stash.Category(c)] = uint64(q)

		return nil
	})
	if err != nil {
		return stash.State{}, fmt.Errorf("load storage: %w", err)
	}

	err = scanRows(ctx, r.db, `
		SELECT id, goods_taken, goods_deposited, funds_paid, funds_withdrawn
		FROM actors
	`, func(rows *sql.Rows) error {
		var (
			id         string
			gt, gd     int64
			paid, with int64
		)

		err := rows.Scan(&id, &gt, &gd, &paid, &with)
		if err != nil {
			return err
		}

		state.Actors[stash.ActorID(id)] = stash.ActorStats{
			GoodsTaken:     uint64(gt),
			GoodsDeposited: uint64(gd),
			FundsPaid:      uint64(paid),
			FundsWithdrawn: uint64(with),
		}

		return nil
	})
	if err != nil {
		return stash.State{}, fmt.Errorf("load actors: %w", err)
	}

	err = scanRows(ctx, r.db, `SELECT actor_id, amount FROM pending_credit`, func(rows *sql.Rows) error {
		var (
			id     string
			amount int64
		)

		err := rows.Scan(&id, &amount)
		if err != nil {
			return err
		}

		state.PendingCredit[stash.ActorID(id)] = uint64(amount)

		return nil
	})
	if err != nil {
		return stash.State{}, fmt.Errorf("load pending credit: %w", err)
	}

	return state, nil
}

func scanRows(ctx context.Context, db *sql.DB, query string, fn func(*sql.Rows) error) error {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		err = fn(rows)
		if err != nil {
			return fmt.Errorf("scan: %w", err)
		}
	}

	return rows.Err()
}
