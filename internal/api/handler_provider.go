package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fastprodman/stashledger/internal/repos/journal"
	"github.com/fastprodman/stashledger/internal/services/reconcile"
	"github.com/fastprodman/stashledger/internal/stash"
	"github.com/fastprodman/stashledger/internal/stash/recognize"
)

const (
	actorHeader       = "X-Actor-ID"
	defaultJournalLen = 50
	maxJournalLen     = 500
)

// HandlerProvider wraps the reconciliation engine and exposes HTTP handlers.
type HandlerProvider struct {
	engine  *reconcile.Engine
	journal journal.Journal
	parser  *recognize.Parser
	admins  map[stash.ActorID]struct{}
}

// NewHandler returns a new handler provider. Actors listed in admins are
// treated as privileged. j may be nil, in which case /journal is empty.
func NewHandler(engine *reconcile.Engine, j journal.Journal, labels recognize.Labeler, admins []string) *HandlerProvider {
	set := make(map[stash.ActorID]struct{}, len(admins))
	for _, a := range admins {
		a = strings.TrimSpace(a)
		if a != "" {
			set[stash.ActorID(a)] = struct{}{}
		}
	}

	return &HandlerProvider{engine: engine, journal: j, parser: recognize.NewParser(labels), admins: set}
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeResult maps the result status and reason onto an HTTP status.
func writeResult(w http.ResponseWriter, res reconcile.Result) {
	status := http.StatusOK

	if res.Status == reconcile.StatusRejected {
		switch res.Verdict.Reason {
		case stash.ReasonInvalidAmount, stash.ReasonUnknownLabel, stash.ReasonInvalidKind, stash.ReasonInvalidScope:
			status = http.StatusBadRequest
		case stash.ReasonUnauthorized:
			status = http.StatusForbidden
		case stash.ReasonInsufficientStock, stash.ReasonNoPaymentOnFile, stash.ReasonStockRace:
			status = http.StatusConflict
		default:
			status = http.StatusInternalServerError
		}
	}

	writeJSON(w, status, res)
}

// actorFromHeader reads the caller identity resolved by the fronting bot.
func (h *HandlerProvider) actorFromHeader(r *http.Request) (stash.ActorID, bool, error) {
	id := strings.TrimSpace(r.Header.Get(actorHeader))
	if id == "" {
		return "", false, fmt.Errorf("missing %s header", actorHeader)
	}

	_, privileged := h.admins[stash.ActorID(id)]

	return stash.ActorID(id), privileged, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB cap
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("empty body")
		}

		return errors.New("invalid JSON")
	}

	return nil
}

// --- Handlers ---

type snapshotRequest struct {
	Items      map[string]uint64 `json:"items"`
	CapturedAt *time.Time        `json:"capturedAt"`
	Target     string            `json:"target"`
}

// ReportSnapshotHandler handles POST /snapshots
func (h *HandlerProvider) ReportSnapshotHandler(w http.ResponseWriter, r *http.Request) {
	actor, privileged, err := h.actorFromHeader(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req snapshotRequest

	err = decodeBody(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	at := time.Now()
	if req.CapturedAt != nil {
		at = *req.CapturedAt
	}

	res := h.engine.ReportSnapshot(r.Context(), reconcile.SnapshotReport{
		Snapshot:   stash.NewSnapshot(actor, at, req.Items),
		Target:     stash.ActorID(req.Target),
		Privileged: privileged,
	})
	writeResult(w, res)
}

type snapshotTextRequest struct {
	Text   string `json:"text"`
	Target string `json:"target"`
}

// ReportSnapshotTextHandler handles POST /snapshots/text. The body carries
// OCR output of an inventory screenshot.
func (h *HandlerProvider) ReportSnapshotTextHandler(w http.ResponseWriter, r *http.Request) {
	actor, privileged, err := h.actorFromHeader(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req snapshotTextRequest

	err = decodeBody(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	items, err := h.parser.Parse(req.Text)
	if err == nil && len(items) == 0 {
		writeError(w, http.StatusUnprocessableEntity, "no items recognized")
		return
	}

	rep := reconcile.SnapshotReport{
		Snapshot:   stash.NewSnapshot(actor, time.Now(), items),
		Target:     stash.ActorID(req.Target),
		Privileged: privileged,
	}

	if err != nil {
		writeResult(w, h.engine.RejectSnapshot(r.Context(), rep, err))
		return
	}

	writeResult(w, h.engine.ReportSnapshot(r.Context(), rep))
}

type txRequest struct {
	Kind   string `json:"kind"`
	Label  string `json:"label"`
	Amount string `json:"amount"`
	Target string `json:"target"`
	Scope  string `json:"scope"`
}

// SubmitTransactionHandler handles POST /transactions
func (h *HandlerProvider) SubmitTransactionHandler(w http.ResponseWriter, r *http.Request) {
	actor, privileged, err := h.actorFromHeader(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req txRequest

	err = decodeBody(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res := h.engine.Submit(r.Context(), reconcile.ManualEntry{
		Actor:      actor,
		Target:     stash.ActorID(req.Target),
		Privileged: privileged,
		Kind:       req.Kind,
		Label:      req.Label,
		Amount:     req.Amount,
		Scope:      req.Scope,
	})
	writeResult(w, res)
}

type stockRequest struct {
	Value string `json:"value"`
}

// ForceSetStockHandler handles PUT /admin/stock/{category}
func (h *HandlerProvider) ForceSetStockHandler(w http.ResponseWriter, r *http.Request) {
	actor, privileged, err := h.actorFromHeader(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req stockRequest

	err = decodeBody(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// The value goes through the same parser as manual entries, so "1,000"
	// and malformed input behave identically on both paths.
	res := h.engine.Submit(r.Context(), reconcile.ManualEntry{
		Actor:      actor,
		Privileged: privileged,
		Kind:       string(stash.KindForceSetStock),
		Label:      chi.URLParam(r, "category"),
		Amount:     req.Value,
	})
	writeResult(w, res)
}

type resetRequest struct {
	Scope string `json:"scope"`
}

// ResetLedgerHandler handles POST /admin/reset
func (h *HandlerProvider) ResetLedgerHandler(w http.ResponseWriter, r *http.Request) {
	actor, privileged, err := h.actorFromHeader(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req resetRequest

	err = decodeBody(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeResult(w, h.engine.ResetLedger(r.Context(), actor, privileged, req.Scope))
}

// GetLedgerHandler handles GET /ledger
func (h *HandlerProvider) GetLedgerHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.State())
}

// GetActorHandler handles GET /ledger/actors/{actorId}
func (h *HandlerProvider) GetActorHandler(w http.ResponseWriter, r *http.Request) {
	id := stash.ActorID(chi.URLParam(r, "actorId"))
	state := h.engine.State()

	stats, ok := state.Actors[id]
	if !ok {
		writeError(w, http.StatusNotFound, "actor not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"actorId":       id,
		"stats":         stats,
		"pendingCredit": state.PendingCredit[id],
		"hasCredit":     state.HasCredit(id),
	})
}

// ListJournalHandler handles GET /journal?limit=N
func (h *HandlerProvider) ListJournalHandler(w http.ResponseWriter, r *http.Request) {
	limit := defaultJournalLen

	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}

		limit = min(n, maxJournalLen)
	}

	if h.journal == nil {
		writeJSON(w, http.StatusOK, []json.RawMessage{})
		return
	}

	entries, err := h.journal.List(r.Context(), limit)
	if err != nil {
		slog.ErrorContext(r.Context(), "list journal", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	out := make([]json.RawMessage, 0, len(entries))
	for _, e := range entries {
		out = append(out, json.RawMessage(e.Payload))
	}

	writeJSON(w, http.StatusOK, out)
}
