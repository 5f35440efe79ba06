// Package policy classifies transactions before they reach the ledger.
//
// Rules run in order. Authorization, stock sufficiency and the payment gate
// are preconditions and reject the transaction. The rate and volume checks
// only attach alerts: the transaction still applies and the alerts travel
// with the result so reviewers can follow up.
package policy

import (
	"fmt"
	"math"
	"math/bits"

	"github.com/fastprodman/stashledger/internal/stash"
)

const (
	DefaultExchangeRate    uint64 = 4000
	DefaultVolumeThreshold uint64 = 50
)

type Outcome string

const (
	Accept          Outcome = "accept"
	AcceptWithAlert Outcome = "accept_with_alert"
	Reject          Outcome = "reject"
)

// Alert is an advisory attached to an accepted transaction.
type Alert struct {
	Reason          stash.Reason   `json:"reason"`
	Message         string         `json:"message"`
	Subject         stash.ActorID  `json:"subject"`
	Category        stash.Category `json:"category"`
	Magnitude       uint64         `json:"magnitude"`
	ExpectedMinimum uint64         `json:"expectedMinimum,omitempty"`
	Paid            uint64         `json:"paid,omitempty"`
}

type Verdict struct {
	Outcome Outcome      `json:"outcome"`
	Reason  stash.Reason `json:"reason,omitempty"`
	Alerts  []Alert      `json:"alerts,omitempty"`
	Err     error        `json:"-"`
}

func (v Verdict) Accepted() bool {
	return v.Outcome != Reject
}

// Rejected builds a rejection verdict from one of the stash sentinel errors.
func Rejected(err error) Verdict {
	return Verdict{
		Outcome: Reject,
		Reason:  stash.ReasonFor(err),
		Err:     err,
	}
}

// Config holds the named policy values.
type Config struct {
	// ExchangeRate is the minimum funds per unit of goods.
	ExchangeRate uint64
	// VolumeThreshold flags goods transactions above this many units.
	VolumeThreshold uint64
	// FundsVolumeThreshold flags funds transactions above this amount. Zero
	// disables the check.
	FundsVolumeThreshold uint64
}

// RateSource supplies per-category exchange rate overrides.
type RateSource interface {
	ExchangeRate(c stash.Category) (uint64, bool)
}

type Evaluator struct {
	cfg   Config
	rates RateSource
}

// NewEvaluator fills zero config values with defaults. rates may be nil.
func NewEvaluator(cfg Config, rates RateSource) *Evaluator {
	if cfg.ExchangeRate == 0 {
		cfg.ExchangeRate = DefaultExchangeRate
	}
	if cfg.VolumeThreshold == 0 {
		cfg.VolumeThreshold = DefaultVolumeThreshold
	}

	return &Evaluator{cfg: cfg, rates: rates}
}

// Config returns the effective configuration.
func (e *Evaluator) Config() Config {
	return e.cfg
}

// Evaluate classifies tx against the given state. It does not modify state.
func (e *Evaluator) Evaluate(tx stash.Transaction, state stash.State) Verdict {
	if tx.Kind.Privileged() && !tx.Privileged {
		return Rejected(fmt.Errorf("%w: %s requires privilege", stash.ErrUnauthorized, tx.Kind))
	}

	if tx.Kind.Administrative() {
		return Verdict{Outcome: Accept}
	}

	if tx.Kind.Withdraws() {
		have := state.Storage[tx.Category]
		if tx.Magnitude > have {
			return Rejected(fmt.Errorf("%w: %s has %d, requested %d",
				stash.ErrInsufficientStock, tx.Category, have, tx.Magnitude))
		}
	}

	subject := tx.Subject()

	if tx.Kind == stash.KindTakeGoods && !state.HasCredit(subject) {
		return Rejected(fmt.Errorf("%w: %s", stash.ErrNoPaymentOnFile, subject))
	}

	var alerts []Alert

	if tx.Kind == stash.KindTakeGoods {
		a, ok := e.checkRate(tx, state.PendingCredit[subject])
		if ok {
			alerts = append(alerts, a)
		}
	}

	a, ok := e.checkVolume(tx)
	if ok {
		alerts = append(alerts, a)
	}

	if len(alerts) > 0 {
		return Verdict{Outcome: AcceptWithAlert, Alerts: alerts}
	}

	return Verdict{Outcome: Accept}
}

// ExchangeRate returns the rate used for c.
func (e *Evaluator) ExchangeRate(c stash.Category) uint64 {
	if e.rates != nil {
		r, ok := e.rates.ExchangeRate(c)
		if ok && r > 0 {
			return r
		}
	}

	return e.cfg.ExchangeRate
}

func (e *Evaluator) checkRate(tx stash.Transaction, paid uint64) (Alert, bool) {
	expected := ExpectedMinimum(tx.Magnitude, e.ExchangeRate(tx.Category))
	if paid >= expected {
		return Alert{}, false
	}

	return Alert{
		Reason:          stash.ReasonUnderpaid,
		Message:         fmt.Sprintf("%s took %d %s having paid %d, expected at least %d", tx.Subject(), tx.Magnitude, tx.Category, paid, expected),
		Subject:         tx.Subject(),
		Category:        tx.Category,
		Magnitude:       tx.Magnitude,
		ExpectedMinimum: expected,
		Paid:            paid,
	}, true
}

func (e *Evaluator) checkVolume(tx stash.Transaction) (Alert, bool) {
	limit := e.cfg.VolumeThreshold
	if tx.Category.IsFunds() {
		limit = e.cfg.FundsVolumeThreshold
		if limit == 0 {
			return Alert{}, false
		}
	}

	if tx.Magnitude <= limit {
		return Alert{}, false
	}

	return Alert{
		Reason:    stash.ReasonUnusualVolume,
		Message:   fmt.Sprintf("%s moved %d %s, above the %d threshold", tx.Subject(), tx.Magnitude, tx.Category, limit),
		Subject:   tx.Subject(),
		Category:  tx.Category,
		Magnitude: tx.Magnitude,
	}, true
}

// ExpectedMinimum is magnitude × rate, saturating at MaxUint64.
func ExpectedMinimum(magnitude, rate uint64) uint64 {
	hi, lo := bits.Mul64(magnitude, rate)
	if hi != 0 {
		return math.MaxUint64
	}

	return lo
}
