// Package main is the entry point for the clinic ledger API server.
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

	"clinicledger/internal/app"
	"clinicledger/internal/config"
	"clinicledger/internal/domain/auth"
	"clinicledger/internal/infrastructure/cache"
	v1 "clinicledger/internal/infrastructure/http/v1"
	"clinicledger/internal/infrastructure/http/v1/handlers"
	"clinicledger/internal/infrastructure/metrics"
	"clinicledger/internal/infrastructure/storage/postgres"
	"clinicledger/pkg/logger"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
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

	ctx := logger.WithLogger(context.Background(), log)
	log.Infow("starting clinicledger server", "env", cfg.App.Env, "version", version)

	m := metrics.New()
	routerCfg := v1.RouterConfig{
		Logger:  log,
		Metrics: m,
		Version: version,
		Debug:   cfg.IsDevelopment(),
	}

	if cfg.App.Env == config.EnvMemory {
		svc, _, err := app.NewInMemory(ctx, cfg.SaleConfig(), nil, nil)
		if err != nil {
			log.Fatalw("failed to build in-memory services", "error", err)
		}
		routerCfg.Services = svc
		log.Warn("running on the in-memory store; data is lost on exit")
	} else {
		db, err := app.OpenDatabase(ctx, cfg, m, true)
		if err != nil {
			log.Fatalw("failed to open database", "error", err)
		}
		defer db.Close()
		log.Info("database connection established")

		balanceCache := connectCache(ctx, cfg, m, log)

		svc, err := app.NewPostgres(ctx, db.TxManager, cfg.SaleConfig(), balanceCache)
		if err != nil {
			log.Fatalw("failed to build services", "error", err)
		}
		routerCfg.Services = svc
		routerCfg.HealthChecks = map[string]handlers.Pinger{"database": db.Pool}

		if cfg.Idempotency.Enabled {
			routerCfg.Idempotency = postgres.NewIdempotencyStore(db.TxManager, cfg.Idempotency.TTL)
		}
	}

	if cfg.JWT.Secret != "" {
		jwtCfg := auth.DefaultJWTConfig(cfg.JWT.Secret)
		if cfg.JWT.Issuer != "" {
			jwtCfg.Issuer = cfg.JWT.Issuer
		}
		routerCfg.JWTValidator = auth.NewJWTService(jwtCfg)
	} else {
		log.Warn("jwt.secret is empty; requests run as the system user")
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      v1.NewRouter(routerCfg),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}

// connectCache returns a Redis balance cache, or nil when Redis is not
// configured or unreachable. The ledger runs correctly without it.
func connectCache(ctx context.Context, cfg *config.Config, m *metrics.Metrics, log *logger.Logger) *cache.BalanceCache {
	if cfg.Redis.Addr == "" {
		return nil
	}
	client, err := cache.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Warnw("redis unavailable, balance cache disabled", "addr", cfg.Redis.Addr, "error", err)
		return nil
	}
	log.Infow("balance cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.BalanceTTL)
	return cache.NewBalanceCache(client, cfg.Redis.BalanceTTL, m.CacheLookup)
}
