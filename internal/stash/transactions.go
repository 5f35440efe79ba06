package stash

import (
	"fmt"
	"strings"
	"time"
)

type ActorID string

type Kind string

const (
	KindTakeGoods     Kind = "take_goods"
	KindDepositGoods  Kind = "deposit_goods"
	KindDepositFunds  Kind = "deposit_funds"
	KindWithdrawFunds Kind = "withdraw_funds"
	KindForceSetStock Kind = "force_set_stock"
	KindResetAll      Kind = "reset_all"
	KindResetLedger   Kind = "reset_ledger"
)

// ParseKind validates a kind coming from outside the core.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	switch k {
	case KindTakeGoods, KindDepositGoods, KindDepositFunds, KindWithdrawFunds,
		KindForceSetStock, KindResetAll, KindResetLedger:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
	}
}

// Privileged kinds require the actor's privilege flag.
func (k Kind) Privileged() bool {
	switch k {
	case KindDepositGoods, KindForceSetStock, KindResetAll, KindResetLedger:
		return true
	default:
		return false
	}
}

// Administrative kinds bypass stock, payment and rate checks.
func (k Kind) Administrative() bool {
	switch k {
	case KindForceSetStock, KindResetAll, KindResetLedger:
		return true
	default:
		return false
	}
}

// Withdraws reports whether k removes units from storage.
func (k Kind) Withdraws() bool {
	return k == KindTakeGoods || k == KindWithdrawFunds
}

// Scope selects what a ledger reset clears.
type Scope string

const (
	ScopeMoney       Scope = "money"
	ScopeGoods       Scope = "goods"
	ScopeAll         Scope = "all"
	ScopeLeaderboard Scope = "leaderboard"
)

func ParseScope(s string) (Scope, error) {
	sc := Scope(strings.ToLower(strings.TrimSpace(s)))
	switch sc {
	case ScopeMoney, ScopeGoods, ScopeAll, ScopeLeaderboard:
		return sc, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidScope, s)
	}
}

// Transaction is the unit of work applied to the ledger.
type Transaction struct {
	ID         string    `json:"id"`
	Actor      ActorID   `json:"actor"`
	Target     ActorID   `json:"target,omitempty"`
	Privileged bool      `json:"privileged"`
	Kind       Kind      `json:"kind"`
	Category   Category  `json:"category,omitempty"`
	Magnitude  uint64    `json:"magnitude"`
	Scope      Scope     `json:"scope,omitempty"`
	At         time.Time `json:"at"`
}

// Subject is the actor the transaction is for.
func (t Transaction) Subject() ActorID {
	if t.Target != "" {
		return t.Target
	}

	return t.Actor
}

// Validate checks the shape of t without looking at any state.
func (t Transaction) Validate() error {
	if _, err := ParseKind(string(t.Kind)); err != nil {
		return err
	}

	switch t.Kind {
	case KindResetAll, KindResetLedger:
		if _, err := ParseScope(string(t.Scope)); err != nil {
			return err
		}

		return nil
	case KindForceSetStock:
		if t.Category == "" {
			return fmt.Errorf("%w: category required", ErrUnknownLabel)
		}

		return nil
	case KindDepositFunds, KindWithdrawFunds:
		if !t.Category.IsFunds() {
			return fmt.Errorf("%w: %s is not a funds category", ErrUnknownLabel, t.Category)
		}
	case KindTakeGoods, KindDepositGoods:
		if t.Category.IsFunds() || t.Category == "" {
			return fmt.Errorf("%w: %q is not a goods category", ErrUnknownLabel, t.Category)
		}
	}

	if t.Magnitude == 0 {
		return fmt.Errorf("%w: must be > 0", ErrInvalidAmount)
	}

	return nil
}
