package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/fastprodman/stashledger/internal/api"
	"github.com/fastprodman/stashledger/internal/config"
	"github.com/fastprodman/stashledger/internal/infra/logging"
	"github.com/fastprodman/stashledger/internal/infra/metrics"
	"github.com/fastprodman/stashledger/internal/infra/tracing"
	"github.com/fastprodman/stashledger/internal/services/reconcile"
	"github.com/fastprodman/stashledger/internal/stash"
	"github.com/fastprodman/stashledger/internal/stash/labels"
	"github.com/fastprodman/stashledger/internal/stash/ledger"
	"github.com/fastprodman/stashledger/internal/stash/policy"
	"github.com/fastprodman/stashledger/pkg/shutdownqueue"
)

const serviceName = "stashledger"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error running api: %v\n", err)
		//nolint:gocritic
		os.Exit(1)
	}
}

func run(ctx context.Context) (retErr error) {
	cfg := new(apiConfig)

	err := config.Parse(cfg)
	if err != nil {
		return fmt.Errorf("init config: %w", err)
	}

	logging.SetupJSON(cfg.LogLevel)

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		serr := shutdownqueue.Shutdown(shutdownCtx)
		if serr != nil {
			retErr = errors.Join(retErr, serr)
		}
	}()

	// --- Infra ---
	shutdownTracing, err := tracing.Setup(ctx, cfg.Tracing, serviceName)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}

	shutdownqueue.Add("flush traces", shutdownTracing)

	table, err := loadLabels(cfg.LabelsFile)
	if err != nil {
		return err
	}

	store, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}

	initial := stash.NewState()
	if store.state != nil {
		initial, err = store.state.Load(ctx)
		if err != nil {
			return fmt.Errorf("load ledger: %w", err)
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	collector := metrics.New(reg)
	for c, q := range initial.Storage {
		collector.SetStorage(string(c), q)
	}

	// --- Domain ---
	var ledgerStore ledger.Store
	if store.state != nil {
		ledgerStore = store.state
	}

	evaluator := policy.NewEvaluator(policy.Config{
		ExchangeRate:         cfg.Policy.ExchangeRate,
		VolumeThreshold:      cfg.Policy.VolumeThreshold,
		FundsVolumeThreshold: cfg.Policy.FundsVolumeThreshold,
	}, table)

	engine := reconcile.New(ledger.New(initial, ledgerStore), evaluator, table).
		WithJournal(store.journal).
		WithRecorder(collector).
		WithNotifier(notifier(cfg))

	slog.Info("ledger loaded",
		"driver", cfg.Store.Driver,
		"categories", len(initial.Storage),
		"actors", len(initial.Actors),
		"admins", len(cfg.AdminActors),
	)

	// --- HTTP server ---
	handler := api.NewHandler(engine, store.journal, table, cfg.AdminActors)
	srv := api.NewServer(cfg.Port, api.NewRouter(handler, collector.Handler()))

	shutdownqueue.Add("http server", func(c context.Context) error {
		slog.Info("Shut down server")

		return srv.Shutdown(c)
	})

	errCh := make(chan error, 1)

	go func() {
		serr := srv.ListenAndServe()
		// http.ErrServerClosed is the normal path during Shutdown
		if serr != nil && !errors.Is(serr, http.ErrServerClosed) {
			errCh <- serr
			return
		}

		errCh <- nil
	}()

	slog.Info("API started", "port", cfg.Port)

	select {
	case <-ctx.Done():
		return nil
	case serr := <-errCh:
		if serr != nil {
			return fmt.Errorf("server error: %w", serr)
		}

		return nil
	}
}

func loadLabels(path string) (*labels.Table, error) {
	if path == "" {
		return labels.Default(), nil
	}

	table, err := labels.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load labels: %w", err)
	}

	slog.Info("label table loaded", "path", path, "labels", len(table.Labels()))

	return table, nil
}

func notifier(cfg *apiConfig) reconcile.Notifier {
	if cfg.AlertWebhookURL == "" {
		return reconcile.LogNotifier{}
	}

	return reconcile.MultiNotifier{
		reconcile.LogNotifier{},
		reconcile.NewWebhookNotifier(cfg.AlertWebhookURL, cfg.AlertWebhookTimeout),
	}
}
