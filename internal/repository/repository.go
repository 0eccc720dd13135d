// Package repository is the PostgreSQL record store for listings and
// profiles. Statements are built with squirrel and run through pgx.
package repository

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

// Querier is the part of *pgxpool.Pool the store needs, so pgxmock can
// stand in for it.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// Repository implements the listing and profile stores on PostgreSQL.
type Repository struct {
	db Querier
}

func poolConfig(databaseURL string) (*pgxpool.Config, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	cfg.MaxConns = 10
	cfg.MinConns = 2
	cfg.MaxConnIdleTime = 5 * time.Minute
	cfg.HealthCheckPeriod = time.Minute
	if _, ok := cfg.ConnConfig.RuntimeParams["application_name"]; !ok {
		cfg.ConnConfig.RuntimeParams["application_name"] = "gophermarket"
	}
	return cfg, nil
}

// New opens a pool against databaseURL and verifies it with a ping.
func New(ctx context.Context, databaseURL string) (*Repository, error) {
	cfg, err := poolConfig(databaseURL)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Repository{db: pool}, nil
}

// NewWithQuerier wraps q, typically a pgxmock pool.
func NewWithQuerier(q Querier) *Repository {
	return &Repository{db: q}
}

// EnsureSchema creates the listings and user_profiles tables when missing.
// It is safe to run on every start.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Ping satisfies the readiness check.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

// Close drains the pool. It never fails; the error return matches the
// other record stores.
func (r *Repository) Close() error {
	r.db.Close()
	return nil
}
