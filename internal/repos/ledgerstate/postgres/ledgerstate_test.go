package ledgerstate

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/fastprodman/stashledger/internal/infra/pgtestutil"
	"github.com/fastprodman/stashledger/internal/repos/ledgerstate"
	"github.com/fastprodman/stashledger/internal/stash"
)

func sampleState() stash.State {
	s := stash.NewState()
	s.Storage[stash.RestrictedGood] = 12
	s.Storage[stash.CleanFunds] = 48_000
	s.Actors["alice"] = stash.ActorStats{GoodsTaken: 3, FundsPaid: 12_000}
	s.Actors["bob"] = stash.ActorStats{GoodsDeposited: 15, FundsWithdrawn: 500}
	s.PendingCredit["bob"] = 4_000

	return s
}

func TestLedgerState_EmptyLoad(t *testing.T) {
	t.Parallel()

	repo := New(pgtestutil.NewTestDB(t))

	got, err := repo.Load(t.Context())
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if !got.Equal(stash.NewState()) {
		t.Fatalf("expected empty state, got %+v", got)
	}
}

func TestLedgerState_SaveLoad(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		saves []stash.State
	}{
		{
			name:  "single_save",
			saves: []stash.State{sampleState()},
		},
		{
			name:  "later_save_replaces",
			saves: []stash.State{sampleState(), stash.NewState()},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			repo := New(pgtestutil.NewTestDB(t))

			ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
			defer cancel()

			for _, s := range tt.saves {
				err := repo.Save(ctx, s)
				if err != nil {
					t.Fatalf("save: %v", err)
				}
			}

			got, err := repo.Load(ctx)
			if err != nil {
				t.Fatalf("load: %v", err)
			}

			want := tt.saves[len(tt.saves)-1]
			if !got.Equal(want) {
				t.Fatalf("state mismatch:\nwant %+v\ngot  %+v", want, got)
			}
		})
	}
}

func TestLedgerState_OutOfRangeLeavesPrevious(t *testing.T) {
	t.Parallel()

	repo := New(pgtestutil.NewTestDB(t))
	ctx := t.Context()

	err := repo.Save(ctx, sampleState())
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	huge := sampleState()
	huge.Storage[stash.DirtyFunds] = math.MaxUint64

	err = repo.Save(ctx, huge)
	if !errors.Is(err, ledgerstate.ErrValueOutOfRange) {
		t.Fatalf("expected ErrValueOutOfRange, got %v", err)
	}

	got, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if !got.Equal(sampleState()) {
		t.Fatalf("failed save must roll back, got %+v", got)
	}
}
