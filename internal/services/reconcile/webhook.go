package reconcile

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// WebhookNotifier posts results that carry alerts to a reviewers' webhook.
// Results without alerts are not sent.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

func NewWebhookNotifier(url string, timeout time.Duration) *WebhookNotifier {
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

type webhookPayload struct {
	ID     string        `json:"id"`
	Source Source        `json:"source"`
	Actor  string        `json:"actor"`
	Target string        `json:"target,omitempty"`
	At     time.Time     `json:"at"`
	Alerts []alertRecord `json:"alerts"`
}

type alertRecord struct {
	Reason          string `json:"reason"`
	Message         string `json:"message"`
	Subject         string `json:"subject"`
	Category        string `json:"category"`
	Magnitude       uint64 `json:"magnitude"`
	ExpectedMinimum uint64 `json:"expectedMinimum,omitempty"`
	Paid            uint64 `json:"paid,omitempty"`
}

func (w *WebhookNotifier) Notify(ctx context.Context, r Result) error {
	if len(r.Verdict.Alerts) == 0 {
		return nil
	}

	p := webhookPayload{
		ID:     r.ID,
		Source: r.Source,
		Actor:  string(r.Actor),
		Target: string(r.Target),
		At:     r.At,
	}
	for _, a := range r.Verdict.Alerts {
		p.Alerts = append(p.Alerts, alertRecord{
			Reason:          string(a.Reason),
			Message:         a.Message,
			Subject:         string(a.Subject),
			Category:        string(a.Category),
			Magnitude:       a.Magnitude,
			ExpectedMinimum: a.ExpectedMinimum,
			Paid:            a.Paid,
		})
	}

	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("post webhook: unexpected status %d", resp.StatusCode)
	}

	return nil
}
