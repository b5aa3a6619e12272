package app

import (
	"context"
	"fmt"

	"clinicledger/internal/config"
	"clinicledger/internal/infrastructure/metrics"
	"clinicledger/internal/infrastructure/storage/postgres"
)

// Database is an open pool with its transaction manager.
type Database struct {
	Pool      *postgres.Pool
	TxManager *postgres.TxManager
}

// Close releases the pool.
func (d *Database) Close() {
	if d != nil && d.Pool != nil {
		d.Pool.Close()
	}
}

// OpenDatabase connects to PostgreSQL and applies pending migrations when
// migrate is set. Retryable conflicts are counted on m.
func OpenDatabase(ctx context.Context, cfg *config.Config, m *metrics.Metrics, migrate bool) (*Database, error) {
	poolCfg := postgres.DefaultPoolConfig(cfg.Database.DSN).
		WithLimits(cfg.Database.MaxConns, cfg.Database.MinConns)

	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		return nil, err
	}

	if migrate {
		migrator, err := postgres.NewMigrator(pool)
		if err != nil {
			pool.Close()
			return nil, err
		}
		if _, err := migrator.Up(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}

	opts := postgres.DefaultTxOptions()
	if cfg.Database.StatementTimeout > 0 {
		opts.StatementTimeout = cfg.Database.StatementTimeout
	}
	if cfg.Database.LockTimeout > 0 {
		opts.LockTimeout = cfg.Database.LockTimeout
	}
	txm := postgres.NewTxManager(pool, opts)
	txm.OnConflict(m.Conflict)

	return &Database{Pool: pool, TxManager: txm}, nil
}
