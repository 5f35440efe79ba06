package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fastprodman/stashledger/internal/infra/sqliteutil"
	"github.com/fastprodman/stashledger/internal/repos/journal"
)

var _ journal.Journal = (*journalRepo)(nil)

// Schema returns the journal table statements.
func Schema() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS journal (
			seq       INTEGER PRIMARY KEY AUTOINCREMENT,
			id        TEXT NOT NULL UNIQUE,
			at        TEXT NOT NULL,
			source    TEXT NOT NULL,
			status    TEXT NOT NULL,
			outcome   TEXT NOT NULL,
			reason    TEXT NOT NULL DEFAULT '',
			actor_id  TEXT NOT NULL DEFAULT '',
			target_id TEXT NOT NULL DEFAULT '',
			payload   BLOB
		)`,
		`CREATE INDEX IF NOT EXISTS idx_journal_actor ON journal(actor_id)`,
	}
}

type journalRepo struct{ db *sql.DB }

func New(db *sql.DB) *journalRepo {
	return &journalRepo{db: db}
}

func (r *journalRepo) Append(ctx context.Context, e journal.Entry) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO journal (id, at, source, status, outcome, reason, actor_id, target_id, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.At.UTC().Format(time.RFC3339Nano), e.Source, e.Status, e.Outcome, e.Reason, e.Actor, e.Target, e.Payload)
	if err != nil {
		if sqliteutil.IsUniqueViolation(err) {
			return journal.ErrDuplicateEntry
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
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	out := make([]journal.Entry, 0, limit)

	for rows.Next() {
		var (
			e  journal.Entry
			at string
		)

		err = rows.Scan(&e.ID, &at, &e.Source, &e.Status, &e.Outcome, &e.Reason, &e.Actor, &e.Target, &e.Payload)
		if err != nil {
			return nil, fmt.Errorf("scan journal entry: %w", err)
		}

		e.At, err = time.Parse(time.RFC3339Nano, at)
		if err != nil {
			return nil, fmt.Errorf("parse journal time: %w", err)
		}

		out = append(out, e)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate journal: %w", err)
	}

	return out, nil
}
