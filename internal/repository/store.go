// Package repository is the pgx data access layer for the notification
// engine. It owns all SQL: table access, the authority function calls,
// and the atomic job claim used by the batch processor.
package repository

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store provides Postgres-backed persistence on a shared pgxpool.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a Store on the given pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Pool exposes the underlying pool for health checks.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}
