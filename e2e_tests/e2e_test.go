//go:build e2e

package e2etests

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"
	"time"
)

const (
	timeout   = 5 * time.Second
	waitReady = 20 * time.Second
)

var httpClient = &http.Client{Timeout: timeout}

func baseURL() string {
	if v := os.Getenv("E2E_BASE_URL"); v != "" {
		return v
	}

	return "http://localhost:8080"
}

func TestE2E_PaidTakeFlow(t *testing.T) {
	waitUntilReady(t)

	actor := uniqActor("e2e-paid")

	t.Run("take_without_payment_rejected", func(t *testing.T) {
		code, body := postTransaction(t, actor, "take_goods", "1", "")
		if code != http.StatusConflict {
			t.Fatalf("unpaid take: want 409, got %d (%s)", code, body)
		}

		if code := getActorCode(t, actor); code != http.StatusNotFound {
			t.Fatalf("rejected take must not create actor: got %d", code)
		}
	})

	t.Run("restock_and_pay", func(t *testing.T) {
		code, body := postTransaction(t, actor, "deposit_goods", "5", "")
		if code != http.StatusOK {
			t.Fatalf("deposit goods: want 200, got %d (%s)", code, body)
		}

		code, body = postTransaction(t, actor, "deposit_funds", "10,000", "Dirty Money")
		if code != http.StatusOK {
			t.Fatalf("deposit funds: want 200, got %d (%s)", code, body)
		}
	})

	t.Run("paid_take_committed", func(t *testing.T) {
		code, body := postTransaction(t, actor, "take_goods", "1", "")
		if code != http.StatusOK {
			t.Fatalf("paid take: want 200, got %d (%s)", code, body)
		}

		stats := getActor(t, actor)
		if stats.Stats.GoodsTaken != 1 || stats.Stats.GoodsDeposited != 5 || stats.Stats.FundsPaid != 10000 {
			t.Fatalf("unexpected stats: %+v", stats.Stats)
		}

		if stats.HasCredit {
			t.Fatalf("credit should be consumed by the take")
		}
	})

	t.Run("second_take_needs_new_payment", func(t *testing.T) {
		code, body := postTransaction(t, actor, "take_goods", "1", "")
		if code != http.StatusConflict {
			t.Fatalf("second take: want 409, got %d (%s)", code, body)
		}
	})
}

func TestE2E_Validation(t *testing.T) {
	waitUntilReady(t)

	actor := uniqActor("e2e-bad")

	tests := []struct {
		name   string
		kind   string
		amount string
		label  string
		want   int
	}{
		{name: "unknown_kind", kind: "steal", amount: "1", want: http.StatusBadRequest},
		{name: "zero_amount", kind: "take_goods", amount: "0", want: http.StatusBadRequest},
		{name: "garbage_amount", kind: "deposit_funds", amount: "lots", label: "Clean Money", want: http.StatusBadRequest},
		{name: "unknown_label", kind: "deposit_goods", amount: "1", label: "Golden Toaster", want: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := postTransaction(t, actor, tt.kind, tt.amount, tt.label)
			if code != tt.want {
				t.Fatalf("want %d, got %d (%s)", tt.want, code, body)
			}
		})
	}

	t.Run("admin_reset_forbidden", func(t *testing.T) {
		code, body := post(t, actor, "/admin/reset", map[string]string{"scope": "all"})
		if code != http.StatusForbidden {
			t.Fatalf("reset by non-admin: want 403, got %d (%s)", code, body)
		}
	})

	t.Run("missing_actor_header", func(t *testing.T) {
		code, body := post(t, "", "/transactions", map[string]string{"kind": "take_goods", "amount": "1"})
		if code != http.StatusBadRequest {
			t.Fatalf("missing actor: want 400, got %d (%s)", code, body)
		}
	})
}

/* -------------------- helpers -------------------- */

type actorPayload struct {
	ActorID string `json:"actorId"`
	Stats   struct {
		GoodsTaken     uint64 `json:"goodsTaken"`
		GoodsDeposited uint64 `json:"goodsDeposited"`
		FundsPaid      uint64 `json:"fundsPaid"`
		FundsWithdrawn uint64 `json:"fundsWithdrawn"`
	} `json:"stats"`
	HasCredit bool `json:"hasCredit"`
}

func getActorCode(t *testing.T, actor string) int {
	t.Helper()

	resp, err := httpClient.Get(baseURL() + "/ledger/actors/" + actor)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	return resp.StatusCode
}

func getActor(t *testing.T, actor string) actorPayload {
	t.Helper()

	u := baseURL() + "/ledger/actors/" + actor

	resp, err := httpClient.Get(u)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		t.Fatalf("GET %s: want 200, got %d (%s)", u, resp.StatusCode, string(b))
	}

	var payload actorPayload

	err = json.NewDecoder(resp.Body).Decode(&payload)
	if err != nil {
		t.Fatalf("decode json: %v", err)
	}

	if payload.ActorID != actor {
		t.Fatalf("actorId mismatch: want %s, got %s", actor, payload.ActorID)
	}

	return payload
}

func postTransaction(t *testing.T, actor, kind, amount, label string) (int, string) {
	t.Helper()

	return post(t, actor, "/transactions", map[string]string{
		"kind":   kind,
		"amount": amount,
		"label":  label,
	})
}

func post(t *testing.T, actor, path string, body any) (int, string) {
	t.Helper()

	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, baseURL()+path, bytes.NewReader(data))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}

	req.Header.Set("Content-Type", "application/json")

	if actor != "" {
		req.Header.Set("X-Actor-ID", actor)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	b, _ := io.ReadAll(resp.Body)

	return resp.StatusCode, string(b)
}

// waitUntilReady polls /healthz until it answers 200 or waitReady elapses.
func waitUntilReady(t *testing.T) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), waitReady)
	defer cancel()

	u := baseURL() + "/healthz"

	tick := time.NewTicker(200 * time.Millisecond)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			t.Fatalf("service not ready at %s within %s", u, waitReady)
		case <-tick.C:
			resp, err := httpClient.Get(u)
			if err != nil {
				continue
			}

			_ = resp.Body.Close()

			if resp.StatusCode == http.StatusOK {
				return
			}
		}
	}
}

func uniqActor(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}
