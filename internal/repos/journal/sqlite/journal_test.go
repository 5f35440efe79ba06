package journal

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/fastprodman/stashledger/internal/infra/sqliteutil"
	"github.com/fastprodman/stashledger/internal/repos/journal"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sqliteutil.Open(t.Context(), filepath.Join(t.TempDir(), "journal.db"), Schema())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	t.Cleanup(func() { _ = db.Close() })

	return db
}

func TestJournal_AppendAndList(t *testing.T) {
	t.Parallel()

	repo := New(newTestDB(t))
	ctx := t.Context()
	at := time.Date(2025, 3, 1, 12, 0, 0, 123456789, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		err := repo.Append(ctx, journal.Entry{
			ID:      id,
			At:      at.Add(time.Duration(i) * time.Minute),
			Source:  "snapshot",
			Status:  "committed",
			Outcome: "accept_with_alert",
			Reason:  "underpaid",
			Actor:   "alice",
			Target:  "bob",
			Payload: []byte(`{}`),
		})
		if err != nil {
			t.Fatalf("append %s: %v", id, err)
		}
	}

	got, err := repo.List(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	if len(got) != 3 || got[0].ID != "c" || got[2].ID != "a" {
		t.Fatalf("unexpected order: %+v", got)
	}

	if !got[2].At.Equal(at) {
		t.Fatalf("time not preserved: want %v, got %v", at, got[2].At)
	}

	if got[0].Target != "bob" || got[0].Reason != "underpaid" || string(got[0].Payload) != `{}` {
		t.Fatalf("fields not round-tripped: %+v", got[0])
	}
}

func TestJournal_Duplicate(t *testing.T) {
	t.Parallel()

	repo := New(newTestDB(t))
	ctx := t.Context()
	e := journal.Entry{ID: "dup", At: time.Now(), Source: "manual", Status: "rejected", Outcome: "reject"}

	err := repo.Append(ctx, e)
	if err != nil {
		t.Fatalf("first append: %v", err)
	}

	err = repo.Append(ctx, e)
	if !errors.Is(err, journal.ErrDuplicateEntry) {
		t.Fatalf("expected ErrDuplicateEntry, got %v", err)
	}
}
