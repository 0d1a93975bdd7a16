// Package store persists the legal corpus in PostgreSQL behind pgxpool.
// Repositories accept the minimal DBInterface so pgxmock substitutes for
// the pool in tests.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/normabase/normabase/pkg/logger"
)

const (
	defaultMaxConns    = 10
	defaultPingTimeout = 3 * time.Second
)

// DBInterface is the slice of pgxpool.Pool the repositories need. Both the
// real pool and pgxmock.PgxPoolIface satisfy it.
type DBInterface interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Config holds connection settings for the store.
type Config struct {
	DSN      string
	MaxConns int
}

// Store owns the pgx connection pool. It is the only shared mutable
// resource in the engine; every document write borrows one pooled
// connection for the duration of its transaction.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore builds the pool, bounds it to cfg.MaxConns, and verifies
// connectivity with a short ping.
func NewStore(ctx context.Context, cfg *Config) (*Store, error) {
	if cfg == nil || cfg.DSN == "" {
		return nil, fmt.Errorf("store: dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("store: parse dsn: %w", err)
	}
	maxConns := cfg.MaxConns
	if maxConns <= 0 {
		maxConns = defaultMaxConns
	}
	poolCfg.MaxConns = int32(maxConns)
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("store: new pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	logger.FromContext(ctx).Info("store initialized", "max_conns", maxConns)
	return &Store{pool: pool}, nil
}

// Pool exposes the pool for repository construction. pgx types stay inside
// this package tree.
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

// Close releases the pool.
func (s *Store) Close(ctx context.Context) {
	s.pool.Close()
	logger.FromContext(ctx).Info("store closed")
}
