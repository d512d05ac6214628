package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/config"
)

// ErrNotConfigured marks an optional backend that was deliberately left unset.
var ErrNotConfigured = errors.New("backend not configured")

// HistoryStore is the Postgres database holding the ticket audit trail.
// It is optional: without a DSN the store is disabled, pings report
// ErrNotConfigured and migrations are skipped.
type HistoryStore struct {
	pool *pgxpool.Pool
}

// DisabledHistoryStore returns a store with no database behind it.
func DisabledHistoryStore() *HistoryStore {
	return &HistoryStore{}
}

// OpenHistoryStore connects to the audit database named by cfg.DSN.
func OpenHistoryStore(ctx context.Context, cfg config.PostgresConfig, logger *zap.Logger) (*HistoryStore, error) {
	if cfg.DSN == "" {
		logger.Warn("POSTGRES_DSN not provided; ticket history disabled")
		return DisabledHistoryStore(), nil
	}

	poolCfg, err := historyPoolConfig(cfg)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	logger.Info("connected to ticket history database",
		zap.Int32("max_conns", poolCfg.MaxConns))
	return &HistoryStore{pool: pool}, nil
}

func historyPoolConfig(cfg config.PostgresConfig) (*pgxpool.Config, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, err
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.ConnMaxIdleSec > 0 {
		poolCfg.MaxConnIdleTime = time.Duration(cfg.ConnMaxIdleSec) * time.Second
	}
	if cfg.ConnMaxLifeSec > 0 {
		poolCfg.MaxConnLifetime = time.Duration(cfg.ConnMaxLifeSec) * time.Second
	}
	return poolCfg, nil
}

// Enabled reports whether a database backs the store.
func (s *HistoryStore) Enabled() bool {
	return s != nil && s.pool != nil
}

// Pool returns the pgx pool, nil when disabled.
func (s *HistoryStore) Pool() *pgxpool.Pool {
	if !s.Enabled() {
		return nil
	}
	return s.pool
}

// Migrate applies the schema in dir. A disabled store has nothing to migrate.
func (s *HistoryStore) Migrate(ctx context.Context, dir string, logger *zap.Logger) error {
	if !s.Enabled() {
		return nil
	}
	return RunMigrations(ctx, s.pool, dir, logger)
}

// Ping verifies connectivity for the readiness probe.
func (s *HistoryStore) Ping(ctx context.Context) error {
	if !s.Enabled() {
		return ErrNotConfigured
	}
	return s.pool.Ping(ctx)
}

func (s *HistoryStore) Close() {
	if s.Enabled() {
		s.pool.Close()
	}
}
