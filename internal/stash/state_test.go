package stash

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tx(kind Kind, c Category, n uint64) Transaction {
	return Transaction{Actor: "alice", Privileged: true, Kind: kind, Category: c, Magnitude: n}
}

func TestState_ApplyCounters(t *testing.T) {
	t.Parallel()

	s := NewState()

	require.NoError(t, s.Apply(tx(KindDepositGoods, RestrictedGood, 100)))
	require.NoError(t, s.Apply(tx(KindDepositFunds, DirtyFunds, 200_000)))
	require.NoError(t, s.Apply(tx(KindDepositFunds, CleanFunds, 1_000)))

	assert.Equal(t, uint64(100), s.Storage[RestrictedGood])
	assert.Equal(t, uint64(200_000), s.Storage[DirtyFunds])
	assert.Equal(t, uint64(201_000), s.PendingCredit["alice"], "pending credit accumulates across deposits")

	require.NoError(t, s.Apply(tx(KindTakeGoods, RestrictedGood, 50)))
	require.NoError(t, s.Apply(tx(KindWithdrawFunds, CleanFunds, 400)))

	assert.Equal(t, uint64(50), s.Storage[RestrictedGood])
	assert.Equal(t, uint64(600), s.Storage[CleanFunds])
	assert.False(t, s.HasCredit("alice"), "take consumes the credit in full")
	assert.Equal(t, ActorStats{
		GoodsTaken:     50,
		GoodsDeposited: 100,
		FundsPaid:      201_000,
		FundsWithdrawn: 400,
	}, s.Actors["alice"])
}

func TestState_ApplyTargetIsSubject(t *testing.T) {
	t.Parallel()

	s := NewState()
	d := tx(KindDepositFunds, CleanFunds, 10)
	d.Target = "bob"

	require.NoError(t, s.Apply(d))

	assert.True(t, s.HasCredit("bob"))
	assert.False(t, s.HasCredit("alice"))
	assert.Equal(t, uint64(10), s.Actors["bob"].FundsPaid)
}

func TestState_ApplyErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		storage map[Category]uint64
		tx      Transaction
		wantErr error
	}{
		{
			name:    "take more than stored",
			storage: map[Category]uint64{RestrictedGood: 5},
			tx:      tx(KindTakeGoods, RestrictedGood, 6),
			wantErr: ErrInsufficientStock,
		},
		{
			name:    "withdraw from empty funds",
			tx:      tx(KindWithdrawFunds, DirtyFunds, 1),
			wantErr: ErrInsufficientStock,
		},
		{
			name:    "deposit overflows",
			storage: map[Category]uint64{CleanFunds: math.MaxUint64},
			tx:      tx(KindDepositFunds, CleanFunds, 1),
			wantErr: ErrInvalidAmount,
		},
		{
			name:    "zero magnitude",
			tx:      tx(KindDepositGoods, RestrictedGood, 0),
			wantErr: ErrInvalidAmount,
		},
		{
			name:    "funds kind with goods category",
			tx:      tx(KindDepositFunds, RestrictedGood, 1),
			wantErr: ErrUnknownLabel,
		},
		{
			name:    "goods kind with funds category",
			tx:      tx(KindTakeGoods, CleanFunds, 1),
			wantErr: ErrUnknownLabel,
		},
		{
			name:    "reset without scope",
			tx:      Transaction{Kind: KindResetLedger},
			wantErr: ErrInvalidScope,
		},
		{
			name:    "unknown kind",
			tx:      Transaction{Kind: "steal"},
			wantErr: ErrInvalidKind,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := NewState()
			for c, q := range tt.storage {
				s.Storage[c] = q
			}

			err := s.Apply(tt.tx)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestState_ForceSetAllowsZero(t *testing.T) {
	t.Parallel()

	s := NewState()
	s.Storage[RestrictedGood] = 40

	require.NoError(t, s.Apply(tx(KindForceSetStock, RestrictedGood, 0)))
	assert.Equal(t, uint64(0), s.Storage[RestrictedGood])

	require.NoError(t, s.Apply(tx(KindForceSetStock, DirtyFunds, 999)))
	assert.Equal(t, uint64(999), s.Storage[DirtyFunds])
}

func TestState_Reset(t *testing.T) {
	t.Parallel()

	seed := func() State {
		s := NewState()
		s.Storage[RestrictedGood] = 10
		s.Storage[CleanFunds] = 20
		s.Storage[DirtyFunds] = 30
		s.Actors["alice"] = ActorStats{GoodsTaken: 1}
		s.PendingCredit["bob"] = 4000

		return s
	}

	tests := []struct {
		scope       Scope
		wantStorage map[Category]uint64
		wantActors  int
		wantCredit  int
	}{
		{
			scope:       ScopeMoney,
			wantStorage: map[Category]uint64{RestrictedGood: 10, CleanFunds: 0, DirtyFunds: 0},
			wantActors:  1,
			wantCredit:  1,
		},
		{
			scope:       ScopeGoods,
			wantStorage: map[Category]uint64{RestrictedGood: 0, CleanFunds: 20, DirtyFunds: 30},
			wantActors:  1,
			wantCredit:  1,
		},
		{
			scope:       ScopeLeaderboard,
			wantStorage: map[Category]uint64{RestrictedGood: 10, CleanFunds: 20, DirtyFunds: 30},
			wantActors:  0,
			wantCredit:  1,
		},
		{
			scope:       ScopeAll,
			wantStorage: map[Category]uint64{RestrictedGood: 0, CleanFunds: 0, DirtyFunds: 0},
			wantActors:  0,
			wantCredit:  0,
		},
	}

	for _, tt := range tests {
		t.Run(string(tt.scope), func(t *testing.T) {
			t.Parallel()

			s := seed()
			require.NoError(t, s.Apply(Transaction{Kind: KindResetLedger, Scope: tt.scope}))

			assert.Equal(t, tt.wantStorage, s.Storage)
			assert.Len(t, s.Actors, tt.wantActors)
			assert.Len(t, s.PendingCredit, tt.wantCredit)
		})
	}
}

func TestState_CloneIsDeep(t *testing.T) {
	t.Parallel()

	s := NewState()
	s.Actors["alice"] = ActorStats{GoodsTaken: 1}

	c := s.Clone()
	c.Storage[RestrictedGood] = 5
	c.Actors["alice"] = ActorStats{GoodsTaken: 2}
	c.PendingCredit["alice"] = 1

	assert.Equal(t, uint64(0), s.Storage[RestrictedGood])
	assert.Equal(t, uint64(1), s.Actors["alice"].GoodsTaken)
	assert.False(t, s.HasCredit("alice"))
	assert.False(t, s.Equal(c))
	assert.True(t, s.Equal(s.Clone()))
}
