package sqliteutil

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Open opens (creating if needed) the SQLite database at path and applies the
// given schema statements. Use ":memory:" for a throwaway database.
//
// The pool is limited to one connection: SQLite allows a single writer and
// an in-memory database only lives as long as its connection.
func Open(ctx context.Context, path string, schema ...[]string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(1)

	pragmas := []string{
		`PRAGMA busy_timeout = 5000`,
		`PRAGMA foreign_keys = ON`,
	}
	if path != ":memory:" {
		pragmas = append(pragmas, `PRAGMA journal_mode = WAL`)
	}

	for _, p := range pragmas {
		_, err = db.ExecContext(ctx, p)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("exec %q: %w", p, err)
		}
	}

	for _, stmts := range schema {
		err = Migrate(ctx, db, stmts)
		if err != nil {
			db.Close()
			return nil, err
		}
	}

	return db, nil
}

// Migrate executes statements one at a time.
func Migrate(ctx context.Context, db *sql.DB, stmts []string) error {
	for _, s := range stmts {
		_, err := db.ExecContext(ctx, s)
		if err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	return nil
}

// WithTx runs fn inside a transaction.
// It commits if fn returns nil, otherwise it rolls back.
func WithTx(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	err = fn(tx)
	if err != nil {
		rbErr := tx.Rollback()
		if rbErr != nil {
			return fmt.Errorf("rollback after fn error: %v (fn err: %w)", rbErr, err)
		}
		return fmt.Errorf("fn: %w", err)
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// IsUniqueViolation reports whether err is a UNIQUE or PRIMARY KEY
// constraint failure.
func IsUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}

	code := se.Code()

	return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}
