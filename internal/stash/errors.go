package stash

import "errors"

// Validation failures.
var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrUnknownLabel  = errors.New("unknown label")
	ErrInvalidKind   = errors.New("invalid transaction kind")
	ErrInvalidScope  = errors.New("invalid reset scope")
)

// Business rule failures.
var (
	ErrUnauthorized      = errors.New("unauthorized")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrNoPaymentOnFile   = errors.New("no payment on file")
)

// Commit path failures.
var (
	ErrStockRace    = errors.New("stock changed before commit")
	ErrCommitFailed = errors.New("commit failed")
)

// Reason is the machine-readable cause attached to a verdict.
type Reason string

const (
	ReasonUnauthorized      Reason = "unauthorized"
	ReasonInsufficientStock Reason = "insufficient_stock"
	ReasonNoPaymentOnFile   Reason = "no_payment_on_file"
	ReasonInvalidAmount     Reason = "invalid_amount"
	ReasonUnknownLabel      Reason = "unknown_label"
	ReasonInvalidKind       Reason = "invalid_kind"
	ReasonInvalidScope      Reason = "invalid_scope"
	ReasonStockRace         Reason = "stock_race"
	ReasonCommitFailed      Reason = "commit_failed"

	ReasonUnderpaid     Reason = "underpaid"
	ReasonUnusualVolume Reason = "unusual_volume"
)

// ReasonFor maps a rejection error onto its reason.
func ReasonFor(err error) Reason {
	switch {
	case errors.Is(err, ErrStockRace):
		return ReasonStockRace
	case errors.Is(err, ErrCommitFailed):
		return ReasonCommitFailed
	case errors.Is(err, ErrUnauthorized):
		return ReasonUnauthorized
	case errors.Is(err, ErrInsufficientStock):
		return ReasonInsufficientStock
	case errors.Is(err, ErrNoPaymentOnFile):
		return ReasonNoPaymentOnFile
	case errors.Is(err, ErrInvalidAmount):
		return ReasonInvalidAmount
	case errors.Is(err, ErrUnknownLabel):
		return ReasonUnknownLabel
	case errors.Is(err, ErrInvalidKind):
		return ReasonInvalidKind
	case errors.Is(err, ErrInvalidScope):
		return ReasonInvalidScope
	default:
		return ReasonCommitFailed
	}
}
