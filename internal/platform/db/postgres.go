package db

import (
	"context"
	"fmt"
	"time"

	"github.com/GolangDeveloperAlmir/sales-service/internal/platform/log"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PoolOptions sizes the order store pool. Zero values keep pgx defaults.
type PoolOptions struct {
	MaxConns    int32
	MinConns    int32
	PingTimeout time.Duration
}

// NewPostgresPool connects to the order store and pings it once, so a bad
// DATABASE_URL fails the process at startup instead of on the first command.
func NewPostgresPool(ctx context.Context, url string, opts PoolOptions, logger *log.Logger) (*pgxpool.Pool, error) {
	logger = log.OrNop(logger)

	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse DATABASE_URL: %w", err)
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}
	if opts.MinConns > 0 {
		cfg.MinConns = opts.MinConns
	}
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open order store: %w", err)
	}

	timeout := opts.PingTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	pctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := pool.Ping(pctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping order store: %w", err)
	}

	logger.Info("order store connected",
		log.Str("host", cfg.ConnConfig.Host),
		log.Str("database", cfg.ConnConfig.Database),
		log.Int("max_conns", int(cfg.MaxConns)),
	)

	return pool, nil
}
