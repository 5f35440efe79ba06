// Package reconcile turns inventory snapshots and manual entries into
// ledger transactions.
//
// Every request moves through the same steps: normalize the input, evaluate
// the resulting transactions against the policy, commit them to the ledger
// when accepted, and report exactly one Result. Evaluation and commit run
// under a single mutex so concurrent requests never interleave.
package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fastprodman/stashledger/internal/repos/journal"
	"github.com/fastprodman/stashledger/internal/stash"
	"github.com/fastprodman/stashledger/internal/stash/differ"
	"github.com/fastprodman/stashledger/internal/stash/labels"
	"github.com/fastprodman/stashledger/internal/stash/ledger"
	"github.com/fastprodman/stashledger/internal/stash/policy"
)

var tracer = otel.Tracer("github.com/fastprodman/stashledger/internal/services/reconcile")

type Engine struct {
	mu       sync.Mutex
	ledger   *ledger.Ledger
	policy   *policy.Evaluator
	labels   *labels.Table
	baseline *stash.Snapshot

	notifier Notifier
	journal  journal.Journal
	recorder Recorder
	now      func() time.Time
	newID    func() string
}

func New(l *ledger.Ledger, p *policy.Evaluator, t *labels.Table) *Engine {
	return &Engine{
		ledger:   l,
		policy:   p,
		labels:   t,
		notifier: LogNotifier{},
		recorder: nopRecorder{},
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

func (e *Engine) WithNotifier(n Notifier) *Engine {
	e.notifier = n
	return e
}

// WithJournal records every result in j.
func (e *Engine) WithJournal(j journal.Journal) *Engine {
	e.journal = j
	return e
}

func (e *Engine) WithRecorder(r Recorder) *Engine {
	e.recorder = r
	return e
}

func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// State returns a copy of the current ledger state.
func (e *Engine) State() stash.State {
	return e.ledger.Snapshot()
}

// Baseline returns the snapshot new reports are compared against, or nil
// before the first report.
func (e *Engine) Baseline() *stash.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.baseline == nil {
		return nil
	}

	b := stash.NewSnapshot(e.baseline.Actor, e.baseline.CapturedAt, e.baseline.Items)

	return &b
}

// ReportSnapshot reconciles a recognized snapshot against the baseline.
//
// The first snapshot only becomes the baseline. Later ones are diffed and the
// delta is expanded into deposits followed by withdrawals, all committed
// together. The baseline advances only when the delta commits.
func (e *Engine) ReportSnapshot(ctx context.Context, rep SnapshotReport) Result {
	start := time.Now()

	ctx, span := tracer.Start(ctx, "reconcile.ReportSnapshot")
	defer span.End()

	res := e.reportSnapshot(ctx, rep)
	e.report(ctx, span, res, start)

	return res
}

func (e *Engine) reportSnapshot(ctx context.Context, rep SnapshotReport) Result {
	snap := rep.Snapshot
	res := e.newResult(SourceSnapshot, snap.Actor, rep.Target)

	_, err := e.labels.Canonicalize(snap.Items)
	if err != nil {
		return reject(res, err, e.ledger.Snapshot())
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.baseline == nil {
		e.setBaseline(snap)

		res.Status = StatusBaseline
		res.Verdict = policy.Verdict{Outcome: policy.Accept}
		res.State = e.ledger.Snapshot()

		return res
	}

	delta, err := differ.Diff(e.baseline, snap, e.labels)
	if err != nil {
		return reject(res, err, e.ledger.Snapshot())
	}

	res.Delta = delta

	if delta.IsZero() {
		e.setBaseline(snap)

		res.Status = StatusUnchanged
		res.Verdict = policy.Verdict{Outcome: policy.Accept}
		res.State = e.ledger.Snapshot()

		return res
	}

	res = e.commit(ctx, res, e.expand(res, delta, rep.Privileged))
	if res.Status == StatusCommitted {
		e.setBaseline(snap)
	}

	return res
}

// RejectSnapshot reports a snapshot the caller could not read, for example
// OCR text with an unparseable quantity. Nothing is committed and the
// baseline stays as it is.
func (e *Engine) RejectSnapshot(ctx context.Context, rep SnapshotReport, cause error) Result {
	start := time.Now()

	ctx, span := tracer.Start(ctx, "reconcile.RejectSnapshot")
	defer span.End()

	res := reject(e.newResult(SourceSnapshot, rep.Snapshot.Actor, rep.Target), cause, e.ledger.Snapshot())
	e.report(ctx, span, res, start)

	return res
}

// Submit validates and applies a manual entry.
func (e *Engine) Submit(ctx context.Context, entry ManualEntry) Result {
	start := time.Now()

	ctx, span := tracer.Start(ctx, "reconcile.Submit")
	defer span.End()

	res := e.submit(ctx, entry)
	e.report(ctx, span, res, start)

	return res
}

func (e *Engine) submit(ctx context.Context, entry ManualEntry) Result {
	res := e.newResult(SourceManual, entry.Actor, entry.Target)

	tx, err := e.normalize(entry)
	if tx.Kind.Administrative() {
		res.Source = SourceAdmin
	}

	if err != nil {
		return reject(res, err, e.ledger.Snapshot())
	}

	tx.ID = res.ID

	e.mu.Lock()
	defer e.mu.Unlock()

	before := e.ledger.Snapshot()

	res = e.commit(ctx, res, []stash.Transaction{tx})
	if res.Status == StatusCommitted {
		// Values past MaxInt64 have no signed delta; the result simply omits it.
		res.Delta, _ = differ.Quantities(before.Storage, res.State.Storage)
	}

	if res.Status == StatusCommitted && changesStorage(tx) && tx.Kind.Administrative() {
		// Storage no longer matches the last screenshot; the next one
		// becomes the new baseline.
		e.baseline = nil
	}

	return res
}

// normalize maps a manual entry onto a validated transaction.
func (e *Engine) normalize(entry ManualEntry) (stash.Transaction, error) {
	tx := stash.Transaction{
		Actor:      entry.Actor,
		Target:     entry.Target,
		Privileged: entry.Privileged,
		At:         e.now(),
	}

	kind, err := stash.ParseKind(entry.Kind)
	if err != nil {
		return tx, err
	}

	tx.Kind = kind

	if kind == stash.KindResetAll || kind == stash.KindResetLedger {
		scope := entry.Scope
		if kind == stash.KindResetAll && scope == "" {
			scope = string(stash.ScopeAll)
		}

		tx.Scope, err = stash.ParseScope(scope)
		if err != nil {
			return tx, err
		}

		tx.Kind = stash.KindResetLedger
		if tx.Scope == stash.ScopeAll {
			tx.Kind = stash.KindResetAll
		}

		return tx, tx.Validate()
	}

	tx.Category, err = e.category(kind, entry.Label)
	if err != nil {
		return tx, err
	}

	tx.Magnitude, err = ParseAmount(entry.Amount)
	if err != nil {
		return tx, err
	}

	return tx, tx.Validate()
}

func (e *Engine) category(kind stash.Kind, label string) (stash.Category, error) {
	if label == "" && (kind == stash.KindTakeGoods || kind == stash.KindDepositGoods) {
		return stash.RestrictedGood, nil
	}

	return e.labels.Category(label)
}

// expand turns a delta into transactions ordered deposits first, so funds
// paid in the same snapshot count toward goods taken in it.
func (e *Engine) expand(res Result, delta stash.Delta, privileged bool) []stash.Transaction {
	var depositFunds, depositGoods, withdrawFunds, takeGoods []stash.Transaction

	for _, c := range delta.Categories() {
		d := delta[c]

		tx := stash.Transaction{
			Actor:      res.Actor,
			Target:     res.Target,
			Privileged: privileged,
			Category:   c,
			At:         res.At,
		}

		switch {
		case d > 0 && c.IsFunds():
			tx.Kind, tx.Magnitude = stash.KindDepositFunds, uint64(d)
			depositFunds = append(depositFunds, tx)
		case d > 0:
			tx.Kind, tx.Magnitude = stash.KindDepositGoods, uint64(d)
			depositGoods = append(depositGoods, tx)
		case c.IsFunds():
			tx.Kind, tx.Magnitude = stash.KindWithdrawFunds, uint64(-d)
			withdrawFunds = append(withdrawFunds, tx)
		default:
			tx.Kind, tx.Magnitude = stash.KindTakeGoods, uint64(-d)
			takeGoods = append(takeGoods, tx)
		}
	}

	txs := slices.Concat(depositFunds, depositGoods, withdrawFunds, takeGoods)
	for i := range txs {
		txs[i].ID = fmt.Sprintf("%s/%d", res.ID, i+1)
	}

	return txs
}

// commit evaluates txs in order against a projected state and applies them
// when all are accepted. Callers hold e.mu.
func (e *Engine) commit(ctx context.Context, res Result, txs []stash.Transaction) Result {
	state := e.ledger.Snapshot()
	res.Transactions = txs

	verdict := e.evaluate(txs, state)
	if !verdict.Accepted() {
		res.Status = StatusRejected
		res.Verdict = verdict
		res.Error = verdict.Err.Error()
		res.State = state

		return res
	}

	cr, err := e.ledger.Apply(ctx, txs...)
	if err != nil {
		if errors.Is(err, stash.ErrInsufficientStock) {
			err = fmt.Errorf("%w: %w", stash.ErrStockRace, err)
		}

		return reject(res, err, e.ledger.Snapshot())
	}

	res.Status = StatusCommitted
	res.Verdict = verdict
	res.State = cr.After

	return res
}

func (e *Engine) evaluate(txs []stash.Transaction, state stash.State) policy.Verdict {
	projected := state.Clone()

	var alerts []policy.Alert

	for _, tx := range txs {
		v := e.policy.Evaluate(tx, projected)
		if !v.Accepted() {
			return v
		}

		alerts = append(alerts, v.Alerts...)

		err := projected.Apply(tx)
		if err != nil {
			return policy.Rejected(err)
		}
	}

	if len(alerts) > 0 {
		return policy.Verdict{Outcome: policy.AcceptWithAlert, Alerts: alerts}
	}

	return policy.Verdict{Outcome: policy.Accept}
}

func (e *Engine) setBaseline(s stash.Snapshot) {
	b := stash.NewSnapshot(s.Actor, s.CapturedAt, s.Items)
	e.baseline = &b
}

func (e *Engine) newResult(src Source, actor, target stash.ActorID) Result {
	return Result{
		ID:     e.newID(),
		Source: src,
		Actor:  actor,
		Target: target,
		At:     e.now(),
	}
}

func reject(res Result, err error, state stash.State) Result {
	res.Status = StatusRejected
	res.Verdict = policy.Rejected(err)
	res.Error = err.Error()
	res.State = state

	return res
}

func changesStorage(tx stash.Transaction) bool {
	return tx.Kind == stash.KindForceSetStock || tx.Scope != stash.ScopeLeaderboard
}

// report hands the result to metrics, the journal and the notifier. Failures
// there are logged and never change the result.
func (e *Engine) report(ctx context.Context, span trace.Span, res Result, start time.Time) {
	span.SetAttributes(
		attribute.String("result.id", res.ID),
		attribute.String("result.source", string(res.Source)),
		attribute.String("result.status", string(res.Status)),
		attribute.String("result.reason", string(res.Verdict.Reason)),
		attribute.Int("result.alerts", len(res.Verdict.Alerts)),
	)

	e.recorder.ObserveResult(string(res.Source), string(res.Status), string(res.Verdict.Reason), time.Since(start))

	for _, a := range res.Verdict.Alerts {
		e.recorder.ObserveAlert(string(a.Reason))
	}

	for c, q := range res.State.Storage {
		e.recorder.SetStorage(string(c), q)
	}

	if e.journal != nil {
		err := e.record(ctx, res)
		if err != nil {
			slog.ErrorContext(ctx, "journal result", "id", res.ID, "error", err)
		}
	}

	if e.notifier != nil {
		err := e.notifier.Notify(ctx, res)
		if err != nil {
			slog.ErrorContext(ctx, "notify result", "id", res.ID, "error", err)
		}
	}
}

func (e *Engine) record(ctx context.Context, res Result) error {
	payload, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	err = e.journal.Append(ctx, journal.Entry{
		ID:      res.ID,
		At:      res.At,
		Source:  string(res.Source),
		Status:  string(res.Status),
		Outcome: string(res.Verdict.Outcome),
		Reason:  string(res.Verdict.Reason),
		Actor:   string(res.Actor),
		Target:  string(res.Target),
		Payload: payload,
	})
	if err != nil {
		return fmt.Errorf("append journal: %w", err)
	}

	return nil
}
