// Package repository stores identities in PostgreSQL: users and the API
// keys they authenticate with. Records live in MongoDB (see docstore).
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository wraps a pgx connection pool.
type Repository struct {
	pool *pgxpool.Pool
}

// New opens a pool against databaseURL and pings it.
func New(ctx context.Context, databaseURL string) (*Repository, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	// Lookups are rare once the auth cache is warm.
	cfg.MaxConns = 5
	cfg.MinConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Repository{pool: pool}, nil
}

func (r *Repository) Ping(ctx context.Context) error { return r.pool.Ping(ctx) }

func (r *Repository) Close() { r.pool.Close() }

// Pool exposes the pool to integration test helpers.
func (r *Repository) Pool() *pgxpool.Pool { return r.pool }

// SQLSTATE codes the repository maps to domain errors.
const (
	sqlUniqueViolation     = "23505"
	sqlForeignKeyViolation = "23503"
)

func hasSQLState(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}

func isUniqueViolation(err error) bool { return hasSQLState(err, sqlUniqueViolation) }

func isForeignKeyViolation(err error) bool { return hasSQLState(err, sqlForeignKeyViolation) }
