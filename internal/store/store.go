// Package store is the persistence boundary for defguard-core: a
// sqlc-style Querier interface plus a pgx-backed implementation, matching
// how the teacher keeps consumers behind storage.MeshStorage
// (pkg/storage/storage.go) instead of a concrete database handle. The
// Postgres schema and migration runner themselves are out of scope
// (spec.md §1); this package only needs the handful of queries Component C
// (counts) and Component I (audit log) issue against it.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Pool opens a pgx connection pool against url, applying maxConns the same
// way internal/config.DatabaseOptions.MaxOpenConns is read elsewhere in
// this module.
func Pool(ctx context.Context, url string, maxConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open database pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}
