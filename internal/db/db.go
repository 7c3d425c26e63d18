package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Options tune the connection pool. Zero values keep the defaults below.
type Options struct {
	MaxConns     int32
	ConnIdleTime time.Duration
	ConnLifetime time.Duration
}

const (
	defaultConnIdleTime = 5 * time.Minute
	defaultConnLifetime = 30 * time.Minute
)

// Connect opens a pgx connection pool and verifies connectivity with a ping.
func Connect(ctx context.Context, dsn string, opts Options) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}

	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}
	cfg.MaxConnIdleTime = defaultConnIdleTime
	if opts.ConnIdleTime > 0 {
		cfg.MaxConnIdleTime = opts.ConnIdleTime
	}
	cfg.MaxConnLifetime = defaultConnLifetime
	if opts.ConnLifetime > 0 {
		cfg.MaxConnLifetime = opts.ConnLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}
