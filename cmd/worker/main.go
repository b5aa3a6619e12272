// Package main is the entry point for the clinic ledger background worker.
// It relays outbox events, purges expired bookkeeping rows and reconciles
// stored balances against the journal.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"clinicledger/internal/app"
	"clinicledger/internal/config"
	appctx "clinicledger/internal/core/context"
	"clinicledger/internal/domain/ledger"
	"clinicledger/internal/infrastructure/metrics"
	"clinicledger/internal/infrastructure/storage/postgres"
	"clinicledger/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}
	if cfg.App.Env == config.EnvMemory {
		fmt.Println("the worker needs a database; APP_ENV=memory is not supported")
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.IsDevelopment(),
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithLogger(ctx, log.WithComponent("worker"))

	log.Info("starting clinicledger worker")

	m := metrics.New()
	db, err := app.OpenDatabase(ctx, cfg, m, false)
	if err != nil {
		log.Fatalw("failed to open database", "error", err)
	}
	defer db.Close()

	svc, err := app.NewPostgres(ctx, db.TxManager, cfg.SaleConfig(), nil)
	if err != nil {
		log.Fatalw("failed to build services", "error", err)
	}

	w := &Worker{
		cfg:         cfg,
		metrics:     m,
		ledger:      svc.Ledger,
		relay:       postgres.NewOutboxRelay(db.TxManager, cfg.Worker.OutboxBatchSize, postgres.LogHandler()),
		idempotency: postgres.NewIdempotencyStore(db.TxManager, cfg.Idempotency.TTL),
	}

	metricsServer := &http.Server{
		Addr:              cfg.Worker.MetricsAddr,
		Handler:           m.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return w.Run(gctx) })
	g.Go(func() error {
		log.Infow("metrics listener starting", "addr", metricsServer.Addr)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return metricsServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Errorw("worker stopped with error", "error", err)
		os.Exit(1)
	}
	log.Info("worker stopped")
}

// Worker runs the periodic jobs.
type Worker struct {
	cfg         *config.Config
	metrics     *metrics.Metrics
	ledger      *ledger.Service
	relay       *postgres.OutboxRelay
	idempotency *postgres.IdempotencyStore
}

// Run blocks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	outboxTicker := time.NewTicker(w.cfg.Worker.OutboxInterval)
	defer outboxTicker.Stop()

	reconcileTicker := time.NewTicker(w.cfg.Worker.ReconcileInterval)
	defer reconcileTicker.Stop()

	cleanupTicker := time.NewTicker(time.Hour)
	defer cleanupTicker.Stop()

	w.reconcile(appctx.ForJob(ctx, "reconcile"))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-outboxTicker.C:
			w.relayOutbox(appctx.ForJob(ctx, "outbox"))
		case <-reconcileTicker.C:
			w.reconcile(appctx.ForJob(ctx, "reconcile"))
		case <-cleanupTicker.C:
			w.cleanup(appctx.ForJob(ctx, "cleanup"))
		}
	}
}

func (w *Worker) relayOutbox(ctx context.Context) {
	stats, err := w.relay.ProcessBatch(ctx)
	if err != nil {
		logger.Error(ctx, "outbox relay failed", "error", err)
		return
	}
	w.metrics.OutboxRelayed(true, stats.Published)
	w.metrics.OutboxRelayed(false, stats.Failed)
	if stats.Published+stats.Failed > 0 {
		logger.Debug(ctx, "outbox batch relayed", "published", stats.Published, "failed", stats.Failed)
	}
}

// reconcile replays every account and reports drift. Drift is never
// corrected automatically.
func (w *Worker) reconcile(ctx context.Context) {
	for _, kind := range ledger.AllAccounts {
		rec, err := w.ledger.Reconcile(ctx, kind)
		if err != nil {
			logger.Error(ctx, "reconcile failed", "account", kind, "error", err)
			continue
		}
		w.metrics.BalanceDrift(string(kind), int64(rec.Drift))
		if !rec.Balanced() {
			logger.Warn(ctx, "balance drift detected",
				"account", kind,
				"stored", rec.Stored,
				"replayed", rec.Replayed,
				"drift", rec.Drift,
			)
		}
	}
}

func (w *Worker) cleanup(ctx context.Context) {
	if n, err := w.idempotency.CleanupExpired(ctx); err != nil {
		logger.Warn(ctx, "idempotency cleanup failed", "error", err)
	} else if n > 0 {
		logger.Info(ctx, "cleaned up idempotency keys", "count", n)
	}

	if n, err := w.relay.PurgePublished(ctx, w.cfg.Worker.OutboxRetention); err != nil {
		logger.Warn(ctx, "outbox purge failed", "error", err)
	} else if n > 0 {
		logger.Info(ctx, "purged published outbox messages", "count", n)
	}
}
