package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastprodman/stashledger/internal/infra/metrics"
	journalmem "github.com/fastprodman/stashledger/internal/repos/journal/memory"
	"github.com/fastprodman/stashledger/internal/services/reconcile"
	"github.com/fastprodman/stashledger/internal/stash"
	"github.com/fastprodman/stashledger/internal/stash/labels"
	"github.com/fastprodman/stashledger/internal/stash/ledger"
	"github.com/fastprodman/stashledger/internal/stash/policy"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	initial := stash.NewState()
	initial.Storage[stash.RestrictedGood] = 100

	table := labels.Default()
	j := journalmem.New(50)
	collector := metrics.New(prometheus.NewRegistry())

	engine := reconcile.New(ledger.New(initial, nil), policy.NewEvaluator(policy.Config{}, table), table).
		WithJournal(j).
		WithRecorder(collector)

	return NewRouter(NewHandler(engine, j, table, []string{" boss ", ""}), collector.Handler())
}

func do(t *testing.T, h http.Handler, method, path, actor, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if actor != "" {
		req.Header.Set(actorHeader, actor)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	return rec
}

func decodeResult(t *testing.T, rec *httptest.ResponseRecorder) reconcile.Result {
	t.Helper()

	var res reconcile.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res), rec.Body.String())

	return res
}

func TestSubmitTransactionHandler(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		actor      string
		body       string
		wantStatus int
		wantReason stash.Reason
	}{
		{
			name:       "missing actor",
			body:       `{"kind":"deposit_funds","label":"Money","amount":"10"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "malformed json",
			actor:      "alice",
			body:       `{"kind":`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown field",
			actor:      "alice",
			body:       `{"kind":"deposit_funds","qty":1}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "deposit accepted",
			actor:      "alice",
			body:       `{"kind":"deposit_funds","label":"Dirty Money","amount":"200,000"}`,
			wantStatus: http.StatusOK,
		},
		{
			name:       "free text amount",
			actor:      "alice",
			body:       `{"kind":"deposit_funds","label":"Money","amount":"lots"}`,
			wantStatus: http.StatusBadRequest,
			wantReason: stash.ReasonInvalidAmount,
		},
		{
			name:       "take without payment",
			actor:      "alice",
			body:       `{"kind":"take_goods","label":"AK47","amount":"5"}`,
			wantStatus: http.StatusConflict,
			wantReason: stash.ReasonNoPaymentOnFile,
		},
		{
			name:       "goods deposit needs admin",
			actor:      "alice",
			body:       `{"kind":"deposit_goods","label":"AK47","amount":"5"}`,
			wantStatus: http.StatusForbidden,
			wantReason: stash.ReasonUnauthorized,
		},
		{
			name:       "admin goods deposit",
			actor:      "boss",
			body:       `{"kind":"deposit_goods","label":"AK47","amount":"5"}`,
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := do(t, newTestRouter(t), http.MethodPost, "/transactions", tt.actor, tt.body)
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())

			if tt.wantReason != "" {
				assert.Equal(t, tt.wantReason, decodeResult(t, rec).Verdict.Reason)
			}
		})
	}
}

func TestPaidTakeOverHTTP(t *testing.T) {
	t.Parallel()

	h := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/transactions", "alice", `{"kind":"deposit_funds","label":"Dirty Money","amount":"200000"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/transactions", "alice", `{"kind":"take_goods","label":"AK47","amount":"60"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	res := decodeResult(t, rec)
	assert.Equal(t, reconcile.StatusCommitted, res.Status)
	assert.Equal(t, policy.AcceptWithAlert, res.Verdict.Outcome)
	assert.Equal(t, uint64(40), res.State.Storage[stash.RestrictedGood])

	rec = do(t, h, http.MethodGet, "/ledger/actors/alice", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var actor struct {
		Stats     stash.ActorStats `json:"stats"`
		HasCredit bool             `json:"hasCredit"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &actor))
	assert.Equal(t, uint64(60), actor.Stats.GoodsTaken)
	assert.False(t, actor.HasCredit)

	rec = do(t, h, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `stashledger_alerts_total{reason="underpaid"} 1`)
}

func TestGetActorHandler_NotFound(t *testing.T) {
	t.Parallel()

	rec := do(t, newTestRouter(t), http.MethodGet, "/ledger/actors/nobody", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetLedgerHandler(t *testing.T) {
	t.Parallel()

	rec := do(t, newTestRouter(t), http.MethodGet, "/ledger", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var state stash.State
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Equal(t, uint64(100), state.Storage[stash.RestrictedGood])
}

func TestForceSetStockHandler(t *testing.T) {
	t.Parallel()

	h := newTestRouter(t)

	rec := do(t, h, http.MethodPut, "/admin/stock/restricted_good", "alice", `{"value":"0"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, h, http.MethodPut, "/admin/stock/restricted_good", "boss", `{"value":"1,000"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, uint64(1_000), decodeResult(t, rec).State.Storage[stash.RestrictedGood])

	rec = do(t, h, http.MethodPut, "/admin/stock/gold", "boss", `{"value":"1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResetLedgerHandler(t *testing.T) {
	t.Parallel()

	h := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/admin/reset", "boss", `{"scope":"goods"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Zero(t, decodeResult(t, rec).State.Storage[stash.RestrictedGood])

	rec = do(t, h, http.MethodPost, "/admin/reset", "boss", `{"scope":"nope"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/admin/reset", "alice", `{"scope":"all"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSnapshotHandlers(t *testing.T) {
	t.Parallel()

	h := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/snapshots/text", "alice", `{"text":"nothing useful here"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, h, http.MethodPost, "/snapshots/text", "alice", `{"text":"AK47 100x\nDirty Money 0x"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, reconcile.StatusBaseline, decodeResult(t, rec).Status)

	rec = do(t, h, http.MethodPost, "/snapshots", "alice", `{"items":{"AK47":95,"Dirty Money":20000}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	res := decodeResult(t, rec)
	assert.Equal(t, reconcile.StatusCommitted, res.Status)
	assert.Equal(t, uint64(95), res.State.Storage[stash.RestrictedGood])

	rec = do(t, h, http.MethodPost, "/snapshots", "alice", `{"items":{"Gold":1}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReportSnapshotTextHandler_BadQuantity(t *testing.T) {
	t.Parallel()

	h := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/snapshots/text", "alice", `{"text":"Weed 18446744073709551615x\nWeed 2x"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	res := decodeResult(t, rec)
	assert.Equal(t, reconcile.StatusRejected, res.Status)
	assert.Equal(t, stash.ReasonInvalidAmount, res.Verdict.Reason)

	// The rejected report did not become the baseline.
	rec = do(t, h, http.MethodPost, "/snapshots/text", "alice", `{"text":"Weed 2x\nTweed Jacket 9x"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, reconcile.StatusBaseline, decodeResult(t, rec).Status)

	rec = do(t, h, http.MethodGet, "/journal?limit=5", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var entries []reconcile.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, reconcile.StatusRejected, entries[1].Status)
}

func TestListJournalHandler(t *testing.T) {
	t.Parallel()

	h := newTestRouter(t)

	for _, amount := range []string{"10", "20", "x"} {
		do(t, h, http.MethodPost, "/transactions", "alice", `{"kind":"deposit_funds","label":"Money","amount":"`+amount+`"}`)
	}

	rec := do(t, h, http.MethodGet, "/journal?limit=2", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var entries []reconcile.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, reconcile.StatusRejected, entries[0].Status)
	assert.Equal(t, reconcile.StatusCommitted, entries[1].Status)

	rec = do(t, h, http.MethodGet, "/journal?limit=-3", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	rec := do(t, newTestRouter(t), http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "ok"))
}
