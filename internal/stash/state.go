package stash

import (
	"fmt"
	"maps"
	"math/bits"
)

// ActorStats are cumulative per-actor counters. They only grow until a reset
// clears the leaderboard.
type ActorStats struct {
	GoodsTaken     uint64 `json:"goodsTaken"`
	GoodsDeposited uint64 `json:"goodsDeposited"`
	FundsPaid      uint64 `json:"fundsPaid"`
	FundsWithdrawn uint64 `json:"fundsWithdrawn"`
}

// State is the canonical ledger aggregate.
//
// PendingCredit holds the actors that deposited funds not yet consumed by a
// goods withdrawal, with the amount deposited since their last withdrawal.
type State struct {
	Storage       map[Category]uint64    `json:"storage"`
	Actors        map[ActorID]ActorStats `json:"actors"`
	PendingCredit map[ActorID]uint64     `json:"pendingCredit"`
}

// NewState returns an all-zero state with the builtin categories present.
func NewState() State {
	s := State{
		Storage:       make(map[Category]uint64, 3),
		Actors:        make(map[ActorID]ActorStats),
		PendingCredit: make(map[ActorID]uint64),
	}
	for _, c := range BuiltinCategories() {
		s.Storage[c] = 0
	}

	return s
}

// Clone returns a deep copy.
func (s State) Clone() State {
	out := State{
		Storage:       maps.Clone(s.Storage),
		Actors:        maps.Clone(s.Actors),
		PendingCredit: maps.Clone(s.PendingCredit),
	}
	if out.Storage == nil {
		out.Storage = make(map[Category]uint64)
	}
	if out.Actors == nil {
		out.Actors = make(map[ActorID]ActorStats)
	}
	if out.PendingCredit == nil {
		out.PendingCredit = make(map[ActorID]uint64)
	}

	return out
}

// Equal compares two states field by field.
func (s State) Equal(o State) bool {
	return maps.Equal(s.Storage, o.Storage) &&
		maps.Equal(s.Actors, o.Actors) &&
		maps.Equal(s.PendingCredit, o.PendingCredit)
}

// HasCredit reports whether actor is in the pending credit set.
func (s State) HasCredit(actor ActorID) bool {
	_, ok := s.PendingCredit[actor]

	return ok
}

// Apply mutates s in place. On error s may be partially modified, so callers
// apply to a Clone and swap on success.
//
//nolint:cyclop
func (s *State) Apply(t Transaction) error {
	err := t.Validate()
	if err != nil {
		return err
	}

	switch t.Kind {
	case KindTakeGoods, KindWithdrawFunds:
		have := s.Storage[t.Category]
		if have < t.Magnitude {
			return fmt.Errorf("%w: %s has %d, need %d", ErrInsufficientStock, t.Category, have, t.Magnitude)
		}

		s.Storage[t.Category] = have - t.Magnitude

		subject := t.Subject()
		stats := s.Actors[subject]

		if t.Kind == KindTakeGoods {
			stats.GoodsTaken, err = add(stats.GoodsTaken, t.Magnitude)
			delete(s.PendingCredit, subject)
		} else {
			stats.FundsWithdrawn, err = add(stats.FundsWithdrawn, t.Magnitude)
		}

		if err != nil {
			return err
		}

		s.Actors[subject] = stats

	case KindDepositGoods, KindDepositFunds:
		s.Storage[t.Category], err = add(s.Storage[t.Category], t.Magnitude)
		if err != nil {
			return err
		}

		subject := t.Subject()
		stats := s.Actors[subject]

		if t.Kind == KindDepositGoods {
			stats.GoodsDeposited, err = add(stats.GoodsDeposited, t.Magnitude)
		} else {
			stats.FundsPaid, err = add(stats.FundsPaid, t.Magnitude)
			if err == nil {
				s.PendingCredit[subject], err = add(s.PendingCredit[subject], t.Magnitude)
			}
		}

		if err != nil {
			return err
		}

		s.Actors[subject] = stats

	case KindForceSetStock:
		s.Storage[t.Category] = t.Magnitude

	case KindResetAll, KindResetLedger:
		s.reset(t.Scope)
	}

	return nil
}

func (s *State) reset(scope Scope) {
	switch scope {
	case ScopeMoney:
		for c := range s.Storage {
			if c.IsFunds() {
				s.Storage[c] = 0
			}
		}
	case ScopeGoods:
		for c := range s.Storage {
			if !c.IsFunds() {
				s.Storage[c] = 0
			}
		}
	case ScopeLeaderboard:
		clear(s.Actors)
	case ScopeAll:
		for c := range s.Storage {
			s.Storage[c] = 0
		}

		clear(s.Actors)
		clear(s.PendingCredit)
	}
}

func add(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, fmt.Errorf("%w: overflow", ErrInvalidAmount)
	}

	return sum, nil
}
