package reconcile

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/fastprodman/stashledger/internal/stash"
	"github.com/fastprodman/stashledger/internal/stash/policy"
)

type Source string

const (
	SourceSnapshot Source = "snapshot"
	SourceManual   Source = "manual"
	SourceAdmin    Source = "admin"
)

type Status string

const (
	StatusCommitted Status = "committed"
	StatusRejected  Status = "rejected"
	// StatusBaseline marks the first snapshot, stored without evaluation.
	StatusBaseline Status = "baseline"
	// StatusUnchanged marks a snapshot identical to the baseline.
	StatusUnchanged Status = "unchanged"
)

// SnapshotReport is a recognized inventory snapshot plus the caller-resolved
// context of who reported it.
type SnapshotReport struct {
	Snapshot   stash.Snapshot
	Target     stash.ActorID
	Privileged bool
}

// ManualEntry is a transaction typed in by a user. Fields are raw strings;
// the engine validates them.
type ManualEntry struct {
	Actor      stash.ActorID
	Target     stash.ActorID
	Privileged bool
	Kind       string
	Label      string
	Amount     string
	Scope      string
}

// Result is the single event reported for every request.
type Result struct {
	ID           string              `json:"id"`
	Source       Source              `json:"source"`
	Status       Status              `json:"status"`
	Verdict      policy.Verdict      `json:"verdict"`
	Error        string              `json:"error,omitempty"`
	Actor        stash.ActorID       `json:"actor"`
	Target       stash.ActorID       `json:"target,omitempty"`
	Delta        stash.Delta         `json:"delta,omitempty"`
	Transactions []stash.Transaction `json:"transactions,omitempty"`
	State        stash.State         `json:"state"`
	At           time.Time           `json:"at"`
}

// Err returns the rejection cause, nil unless Status is rejected.
func (r Result) Err() error {
	return r.Verdict.Err
}

// Alerts is a shorthand for r.Verdict.Alerts.
func (r Result) Alerts() []policy.Alert {
	return r.Verdict.Alerts
}

// Notifier delivers results to reviewers. Formatting is up to the notifier.
type Notifier interface {
	Notify(ctx context.Context, r Result) error
}

// Recorder receives metrics for each reported result.
type Recorder interface {
	ObserveResult(source, status, reason string, took time.Duration)
	ObserveAlert(reason string)
	SetStorage(category string, quantity uint64)
}

type nopRecorder struct{}

func (nopRecorder) ObserveResult(string, string, string, time.Duration) {}
func (nopRecorder) ObserveAlert(string)                                 {}
func (nopRecorder) SetStorage(string, uint64)                           {}

var amountRe = regexp.MustCompile(`^(\d{1,3}(,\d{3})+|\d+)$`)

// ParseAmount reads a non-negative integer, allowing thousands separators
// ("200,000"). Anything else is stash.ErrInvalidAmount.
func ParseAmount(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if !amountRe.MatchString(s) {
		return 0, fmt.Errorf("%w: %q", stash.ErrInvalidAmount, s)
	}

	v, err := strconv.ParseUint(strings.ReplaceAll(s, ",", ""), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", stash.ErrInvalidAmount, s)
	}

	return v, nil
}
