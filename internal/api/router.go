package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter registers all API endpoints. metrics may be nil.
func NewRouter(h *HandlerProvider, metrics http.Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}

	r.Post("/snapshots", h.ReportSnapshotHandler)
	r.Post("/snapshots/text", h.ReportSnapshotTextHandler)
	r.Post("/transactions", h.SubmitTransactionHandler)

	r.Get("/ledger", h.GetLedgerHandler)
	r.Get("/ledger/actors/{actorId}", h.GetActorHandler)
	r.Get("/journal", h.ListJournalHandler)

	r.Route("/admin", func(r chi.Router) {
		r.Put("/stock/{category}", h.ForceSetStockHandler)
		r.Post("/reset", h.ResetLedgerHandler)
	})

	return r
}
