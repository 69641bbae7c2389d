package repository

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/joseph-ayodele/proposal-builder/internal/common"
)

type Config struct {
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ConfigFrom maps the vector-store section of the app config to a pool config.
func ConfigFrom(vc common.VectorConfig) Config {
	return Config{
		DSN:             vc.DSN,
		MaxConns:        vc.MaxConns,
		MinConns:        vc.MinConns,
		MaxConnLifetime: vc.MaxConnLifetime,
		MaxConnIdleTime: 5 * time.Minute,
		DialTimeout:     vc.DialTimeout,
	}
}

// Open creates the pgx pool backing the pgvector store.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("db.connect.start")
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("db.connect.error", "error", err)
		return nil, common.StorageError("parse database url", err)
	}

	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	pc.MinConns = cfg.MinConns
	pc.MaxConnLifetime = cfg.MaxConnLifetime
	pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	pc.ConnConfig.RuntimeParams["application_name"] = "proposal-builder"
	if cfg.StatementTimeout > 0 {
		pc.ConnConfig.RuntimeParams["statement_timeout"] = cfg.StatementTimeout.String()
	}

	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		logger.Error("db.connect.error", "error", err)
		return nil, common.StorageError("connect to database", err)
	}

	logger.Info("db.connect.ok", "max_conns", pc.MaxConns)
	return pool, nil
}

func Close(pool *pgxpool.Pool, logger *slog.Logger) {
	if pool == nil {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	pool.Close()
	logger.Info("db.closed")
}

// HealthCheck pings the pool, bounded by timeout when positive.
func HealthCheck(ctx context.Context, pool *pgxpool.Pool, timeout time.Duration, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	start := time.Now()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("db.ping.error", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return common.StorageError("ping database", err)
	}
	logger.Debug("db.ping.ok", "elapsed_ms", time.Since(start).Milliseconds())
	return nil
}
