// Package testutil holds helpers shared by integration tests.
package testutil

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/gophermarket/gophermarket/internal/model"
)

// RequireEnv returns an environment variable or skips the test if missing.
func RequireEnv(t testing.TB, key string) string {
	t.Helper()
	value := os.Getenv(key)
	if value == "" {
		t.Skipf("%s not set", key)
	}
	return value
}

const advisoryLockID int64 = 420420

// AcquireDBLock grabs a global advisory lock to serialize DB tests.
func AcquireDBLock(ctx context.Context, pool *pgxpool.Pool) (func() error, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", advisoryLockID); err != nil {
		conn.Release()
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	unlock := func() error {
		defer conn.Release()
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", advisoryLockID); err != nil {
			return fmt.Errorf("release advisory lock: %w", err)
		}
		return nil
	}

	return unlock, nil
}

// Execer runs a statement. *pgxpool.Pool satisfies it.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// DropTables removes tables so the next EnsureSchema starts clean.
func DropTables(ctx context.Context, db Execer, tables ...string) error {
	if len(tables) == 0 {
		return nil
	}
	quoted := make([]string, len(tables))
	for i, name := range tables {
		quoted[i] = pgx.Identifier{name}.Sanitize()
	}
	if _, err := db.Exec(ctx, "DROP TABLE IF EXISTS "+strings.Join(quoted, ", ")+" CASCADE"); err != nil {
		return fmt.Errorf("drop tables: %w", err)
	}
	return nil
}

// FlushRedis clears the current Redis database.
func FlushRedis(ctx context.Context, client *redis.Client) error {
	return client.FlushDB(ctx).Err()
}

var seq atomic.Int64

// UniqueEmail returns an address in domain that no other call returns.
func UniqueEmail(prefix, domain string) string {
	return fmt.Sprintf("%s-%d-%d@%s", prefix, time.Now().UnixNano(), seq.Add(1), domain)
}

// NewTestListing creates a listing owned by owner with sensible defaults.
func NewTestListing(t testing.TB, owner string) *model.Listing {
	t.Helper()
	return &model.Listing{
		Title:        "Test listing " + owner,
		Price:        decimal.RequireFromString("19.99"),
		ContactEmail: owner,
		OwnerID:      owner,
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
		ImageURLs:    []string{},
	}
}

// NewTestProfile creates a profile keyed by id.
func NewTestProfile(t testing.TB, id, email string) *model.UserProfile {
	t.Helper()
	name := "Test User"
	return &model.UserProfile{
		ID:          id,
		Email:       email,
		DisplayName: &name,
		CreatedAt:   time.Now().UTC().Truncate(time.Microsecond),
	}
}
