package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	upsertCandidateSQL = `INSERT INTO candidate_addrs (addr, token_address, chain, source)
    VALUES ($1, $2, $3, $4)
    ON CONFLICT (addr, token_address, chain) DO UPDATE
    SET last_seen = NOW();`

	listPendingSQL = `SELECT DISTINCT ON (c.addr)
        c.addr,
        c.chain,
        c.token_address,
        COALESCE(l.status, 'CANDIDATE') AS status
    FROM candidate_addrs c
    LEFT JOIN lists l ON l.addr = c.addr AND l.chain = c.chain
    WHERE c.chain = $1
      AND COALESCE(l.status, 'CANDIDATE') IN ('CANDIDATE', 'WATCH')
    ORDER BY c.addr, c.first_seen DESC
    LIMIT $2;`

	setStatusSQL = `INSERT INTO lists (addr, chain, status, reason, updated_at)
    VALUES ($1, $2, $3, $4, NOW())
    ON CONFLICT (addr, chain) DO UPDATE
    SET status = EXCLUDED.status,
        reason = EXCLUDED.reason,
        updated_at = NOW();`

	listByStatusSQL = `SELECT addr FROM lists
    WHERE chain = $1 AND status = $2
    ORDER BY updated_at DESC
    LIMIT $3;`

	getStatusSQL = `SELECT addr, chain, status, reason, updated_at
    FROM lists
    WHERE addr = $1 AND chain = $2;`
)

// Repository provides Postgres-backed candidate and status persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository wires a pgx pool into a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Close releases the underlying pool resources.
func (r *Repository) Close() {
	if r == nil || r.pool == nil {
		return
	}
	r.pool.Close()
}

func (r *Repository) getPool() (*pgxpool.Pool, error) {
	if r == nil || r.pool == nil {
		return nil, ErrNotConfigured
	}
	return r.pool, nil
}

// UpsertCandidates records discovered addresses idempotently, refreshing
// last_seen on conflict.
func (r *Repository) UpsertCandidates(ctx context.Context, chain, token string, addrs []string, source string) error {
	pool, err := r.getPool()
	if err != nil {
		return err
	}

	for _, addr := range addrs {
		if _, execErr := pool.Exec(ctx, upsertCandidateSQL, addr, token, chain, source); execErr != nil {
			return fmt.Errorf("upsert candidate %s: %w", addr, execErr)
		}
	}
	return nil
}

// ListPending returns candidates whose effective status still needs
// classification work.
func (r *Repository) ListPending(ctx context.Context, chain string, limit int) ([]Pending, error) {
	pool, err := r.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listPendingSQL, chain, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list pending: %w", queryErr)
	}
	defer rows.Close()

	pending := make([]Pending, 0)
	for rows.Next() {
		var p Pending
		var status string
		if err := rows.Scan(&p.Addr, &p.Chain, &p.Token, &status); err != nil {
			return nil, err
		}
		p.Status = Status(status)
		pending = append(pending, p)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return pending, nil
}

// SetStatus overwrites the address's classification record.
func (r *Repository) SetStatus(ctx context.Context, addr, chain string, status Status, reason string) error {
	pool, err := r.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, setStatusSQL, addr, chain, string(status), reason); execErr != nil {
		return fmt.Errorf("set status %s: %w", addr, execErr)
	}
	return nil
}

// ListByStatus lists addresses currently in the given status, most
// recently updated first.
func (r *Repository) ListByStatus(ctx context.Context, chain string, status Status, limit int) ([]string, error) {
	pool, err := r.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listByStatusSQL, chain, string(status), limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list by status: %w", queryErr)
	}
	defer rows.Close()

	addrs := make([]string, 0, limit)
	for rows.Next() {
		var addr string
		if err := rows.Scan(&addr); err != nil {
			return nil, err
		}
		addrs = append(addrs, addr)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return addrs, nil
}

// GetStatus fetches the classification record for an address, nil when
// none exists yet.
func (r *Repository) GetStatus(ctx context.Context, addr, chain string) (*ListEntry, error) {
	pool, err := r.getPool()
	if err != nil {
		return nil, err
	}

	var entry ListEntry
	var status string
	row := pool.QueryRow(ctx, getStatusSQL, addr, chain)
	if scanErr := row.Scan(&entry.Addr, &entry.Chain, &status, &entry.Reason, &entry.UpdatedAt); scanErr != nil {
		if errors.Is(scanErr, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get status: %w", scanErr)
	}
	entry.Status = Status(status)
	return &entry, nil
}

var (
	_ CandidateStore = (*Repository)(nil)
	_ StatusStore    = (*Repository)(nil)
)
