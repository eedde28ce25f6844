// Package db provides shared PostgreSQL helpers for the stores built on pgx.
package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Pool is the query surface of *pgxpool.Pool the stores depend on. Tests
// substitute a pgxmock pool, which satisfies the same interface. Pool
// lifecycle stays on the concrete type.
type Pool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}
