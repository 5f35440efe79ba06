package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/fastprodman/stashledger/internal/config"
	"github.com/fastprodman/stashledger/internal/infra/pgutils"
	"github.com/fastprodman/stashledger/internal/infra/sqliteutil"
	"github.com/fastprodman/stashledger/internal/repos/journal"
	journalmem "github.com/fastprodman/stashledger/internal/repos/journal/memory"
	journalpg "github.com/fastprodman/stashledger/internal/repos/journal/postgres"
	journalsqlite "github.com/fastprodman/stashledger/internal/repos/journal/sqlite"
	"github.com/fastprodman/stashledger/internal/repos/ledgerstate"
	ledgerstatepg "github.com/fastprodman/stashledger/internal/repos/ledgerstate/postgres"
	ledgerstatesqlite "github.com/fastprodman/stashledger/internal/repos/ledgerstate/sqlite"
	"github.com/fastprodman/stashledger/pkg/shutdownqueue"
)

// backend bundles the persistence chosen by STORE_DRIVER. state is nil for
// the memory driver.
type backend struct {
	state   ledgerstate.LedgerState
	journal journal.Journal
}

func openBackend(ctx context.Context, cfg *apiConfig) (backend, error) {
	switch cfg.Store.Driver {
	case config.StorePostgres:
		db, err := pgutils.OpenDB(ctx, cfg.Store.Postgres)
		if err != nil {
			return backend{}, fmt.Errorf("open postgres: %w", err)
		}

		shutdownqueue.Add("close postgres", closeDB(db))

		return backend{
			state:   ledgerstatepg.New(db),
			journal: journalpg.New(db),
		}, nil

	case config.StoreSQLite:
		db, err := sqliteutil.Open(ctx, cfg.Store.SQLite.Path, ledgerstatesqlite.Schema(), journalsqlite.Schema())
		if err != nil {
			return backend{}, fmt.Errorf("open sqlite: %w", err)
		}

		shutdownqueue.Add("close sqlite", closeDB(db))

		return backend{
			state:   ledgerstatesqlite.New(db),
			journal: journalsqlite.New(db),
		}, nil

	default:
		slog.Warn("using in-memory store, ledger is lost on restart")

		return backend{journal: journalmem.New(cfg.JournalCapacity)}, nil
	}
}

func closeDB(db *sql.DB) shutdownqueue.Task {
	return func(context.Context) error {
		return db.Close()
	}
}
