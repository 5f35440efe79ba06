package reconcile

import (
	"context"
	"log/slog"
)

// LogNotifier writes results to the default slog logger. Alerts are logged
// at warn level so they stand out for reviewers.
type LogNotifier struct{}

func (LogNotifier) Notify(ctx context.Context, r Result) error {
	attrs := []any{
		"id", r.ID,
		"source", r.Source,
		"status", r.Status,
		"actor", r.Actor,
	}
	if r.Target != "" {
		attrs = append(attrs, "target", r.Target)
	}

	if r.Status == StatusRejected {
		slog.InfoContext(ctx, "transaction rejected", append(attrs, "reason", r.Verdict.Reason, "error", r.Error)...)
		return nil
	}

	slog.InfoContext(ctx, "transaction reported", append(attrs, "delta", r.Delta, "storage", r.State.Storage)...)

	for _, a := range r.Verdict.Alerts {
		slog.WarnContext(ctx, "transaction alert",
			"id", r.ID,
			"reason", a.Reason,
			"subject", a.Subject,
			"category", a.Category,
			"magnitude", a.Magnitude,
			"expected_minimum", a.ExpectedMinimum,
			"paid", a.Paid,
			"message", a.Message,
		)
	}

	return nil
}

// MultiNotifier fans a result out to several notifiers and returns the first
// error after trying all of them.
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(ctx context.Context, r Result) error {
	var first error

	for _, n := range m {
		err := n.Notify(ctx, r)
		if err != nil && first == nil {
			first = err
		}
	}

	return first
}
