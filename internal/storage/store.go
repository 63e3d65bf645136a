package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"smartfollow/internal/config"
)

// ErrNotConfigured indicates the storage pool was not initialised.
var ErrNotConfigured = errors.New("storage: pool not configured")

// CandidateStore persists discovered addresses. Upserts are idempotent on
// (addr, token, chain).
type CandidateStore interface {
	UpsertCandidates(ctx context.Context, chain, token string, addrs []string, source string) error
	ListPending(ctx context.Context, chain string, limit int) ([]Pending, error)
}

// StatusStore persists classification state, last-write-wins.
type StatusStore interface {
	SetStatus(ctx context.Context, addr, chain string, status Status, reason string) error
	ListByStatus(ctx context.Context, chain string, status Status, limit int) ([]string, error)
	GetStatus(ctx context.Context, addr, chain string) (*ListEntry, error)
}

// NewPool configures a PostgreSQL connection pool from runtime settings.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse database dsn: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = int32(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}

	return pool, nil
}
