package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/stashledger/internal/repos/journal"
	"github.com/jackc/pgx/v5/pgconn"
)

var _ journal.Journal = (*journalRepo)(nil)

type journalRepo struct{ db *sql.DB }

func New(db *sql.DB) *journalRepo {
	return &journalRepo{db: db}
}

func (r *journalRepo) Append(ctx context.Context, e journal.Entry) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO journal (id, at, source, status, outcome, reason, actor_id, target_id, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, e.ID, e.At, e.Source, e.Status, e.Outcome, e.Reason, e.Actor, e.Target, e.Payload)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == "23505" { // unique_violation
				return journal.ErrDuplicateEntry
			}
		}

		return fmt.Errorf("insert journal entry: %w", err)
	}

	return nil
}

func (r *journalRepo) List(ctx context.Context, limit int) ([]journal.Entry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, at, source, status, outcome, reason, actor_id, target_id, payload
		FROM journal
		ORDER BY seq DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	out := make([]journal.Entry, 0, limit)

	for rows.Next() {
		var e journal.Entry

		err = rows.Scan(&e.ID, &e.At, &e.Source, &e.Status, &e.Outcome, &e.Reason, &e.Actor, &e.Target, &e.Payload)
		if err != nil {
			return nil, fmt.Errorf("scan journal entry: %w", err)
		}

		out = append(out, e)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate journal: %w", err)
	}

	return out, nil
}
