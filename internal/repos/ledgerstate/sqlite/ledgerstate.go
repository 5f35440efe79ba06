package ledgerstate

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	"github.com/fastprodman/stashledger/internal/infra/sqliteutil"
	"github.com/fastprodman/stashledger/internal/repos/ledgerstate"
	"github.com/fastprodman/stashledger/internal/stash"
)

var _ ledgerstate.LedgerState = (*ledgerStateRepo)(nil)

// Schema returns the ledger state tables.
func Schema() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS storage (
			category TEXT PRIMARY KEY,
			quantity INTEGER NOT NULL CHECK (quantity >= 0)
		)`,
		`CREATE TABLE IF NOT EXISTS actors (
			id              TEXT PRIMARY KEY,
			goods_taken     INTEGER NOT NULL DEFAULT 0 CHECK (goods_taken >= 0),
			goods_deposited INTEGER NOT NULL DEFAULT 0 CHECK (goods_deposited >= 0),
			funds_paid      INTEGER NOT NULL DEFAULT 0 CHECK (funds_paid >= 0),
			funds_withdrawn INTEGER NOT NULL DEFAULT 0 CHECK (funds_withdrawn >= 0)
		)`,
		`CREATE TABLE IF NOT EXISTS pending_credit (
			actor_id TEXT PRIMARY KEY,
			amount   INTEGER NOT NULL CHECK (amount > 0)
		)`,
	}
}

type ledgerStateRepo struct{ db *sql.DB }

func New(db *sql.DB) *ledgerStateRepo {
	return &ledgerStateRepo{db: db}
}

// Save replaces the persisted state with state in one transaction.
func (r *ledgerStateRepo) Save(ctx context.Context, state stash.State) error {
	err := sqliteutil.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		for _, table := range []string{"storage", "actors", "pending_credit"} {
			_, err := tx.ExecContext(ctx, `DELETE FROM `+table)
			if err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}

		for c, q := range state.Storage {
			v, err := toInteger(q)
			if err != nil {
				return fmt.Errorf("storage %s: %w", c, err)
			}

			_, err = tx.ExecContext(ctx, `INSERT INTO storage (category, quantity) VALUES (?, ?)`, string(c), v)
			if err != nil {
				return fmt.Errorf("insert storage %s: %w", c, err)
			}
		}

		for id, s := range state.Actors {
			vals := make([]any, 0, 5)
			vals = append(vals, string(id))

			for _, u := range []uint64{s.GoodsTaken, s.GoodsDeposited, s.FundsPaid, s.FundsWithdrawn} {
				v, err := toInteger(u)
				if err != nil {
					return fmt.Errorf("actor %s: %w", id, err)
				}

				vals = append(vals, v)
			}

			_, err := tx.ExecContext(ctx, `
				INSERT INTO actors (id, goods_taken, goods_deposited, funds_paid, funds_withdrawn)
				VALUES (?, ?, ?, ?, ?)
			`, vals...)
			if err != nil {
				return fmt.Errorf("insert actor %s: %w", id, err)
			}
		}

		for id, amount := range state.PendingCredit {
			v, err := toInteger(amount)
			if err != nil {
				return fmt.Errorf("pending credit %s: %w", id, err)
			}

			_, err = tx.ExecContext(ctx, `INSERT INTO pending_credit (actor_id, amount) VALUES (?, ?)`, string(id), v)
			if err != nil {
				return fmt.Errorf("insert pending credit %s: %w", id, err)
			}
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("save ledger state: %w", err)
	}

	return nil
}

// Load reads the persisted state. An empty database yields stash.NewState().
func (r *ledgerStateRepo) Load(ctx context.Context) (stash.State, error) {
	state := stash.NewState()

	rows, err := r.db.QueryContext(ctx, `SELECT category, quantity FROM storage`)
	if err != nil {
		return stash.State{}, fmt.Errorf("query storage: %w", err)
	}

	for rows.Next() {
		var (
			c string
			q int64
		)

		err = rows.Scan(&c, &q)
		if err != nil {
			rows.Close()
			return stash.State{}, fmt.Errorf("scan storage: %w", err)
		}

		state.Storage[stash.Category(c)] = uint64(q)
	}

	rows.Close()

	rows, err = r.db.QueryContext(ctx, `
		SELECT id, goods_taken, goods_deposited, funds_paid, funds_withdrawn FROM actors
	`)
	if err != nil {
		return stash.State{}, fmt.Errorf("query actors: %w", err)
	}

	for rows.Next() {
		var (
			id         string
			gt, gd     int64
			paid, with int64
		)

		err = rows.Scan(&id, &gt, &gd, &paid, &with)
		if err != nil {
			rows.Close()
			return stash.State{}, fmt.Errorf("scan actor: %w", err)
		}

		state.Actors[stash.ActorID(id)] = stash.ActorStats{
			GoodsTaken:     uint64(gt),
			GoodsDeposited: uint64(gd),
			FundsPaid:      uint64(paid),
			FundsWithdrawn: uint64(with),
		}
	}

	rows.Close()

	rows, err = r.db.QueryContext(ctx, `SELECT actor_id, amount FROM pending_credit`)
	if err != nil {
		return stash.State{}, fmt.Errorf("query pending credit: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id     string
			amount int64
		)

		err = rows.Scan(&id, &amount)
		if err != nil {
			return stash.State{}, fmt.Errorf("scan pending credit: %w", err)
		}

		state.PendingCredit[stash.ActorID(id)] = uint64(amount)
	}

	err = rows.Err()
	if err != nil {
		return stash.State{}, fmt.Errorf("iterate pending credit: %w", err)
	}

	return state, nil
}

func toInteger(v uint64) (int64, error) {
	if v > math.MaxInt64 {
		return 0, fmt.Errorf("%w: %d", ledgerstate.ErrValueOutOfRange, v)
	}

	return int64(v), nil
}
