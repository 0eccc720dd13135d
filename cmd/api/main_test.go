package main

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gophermarket/gophermarket/internal/storage"
)

func TestRedactURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"postgres://market:s3cret@db:5432/market", "postgres://market@db:5432/market"},
		{"redis://:s3cret@cache:6379/0", "redis://redacted@cache:6379/0"},
		{"postgres://db/market?password=s3cret", "postgres://db/market?password=redacted"},
		{"file:data/market.db", "file:data/market.db"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, redactURL(tt.in), tt.in)
	}
}

func TestSanitizeError(t *testing.T) {
	dsn := "postgres://market:s3cret@db:5432/market"
	err := errors.New("dial " + dsn + ": password=s3cret refused")

	got := sanitizeError(err, dsn)
	assert.NotContains(t, got, "s3cret")
	assert.Contains(t, got, "postgres://market@db:5432/market")
	assert.Empty(t, sanitizeError(nil, dsn))
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLogLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLogLevel("warn"))
	assert.Equal(t, slog.LevelError, parseLogLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLogLevel("bogus"))
}

func TestImageStoreCheck(t *testing.T) {
	local, err := storage.NewLocalStore(t.TempDir(), "http://localhost:8080")
	require.NoError(t, err)

	check := imageStoreCheck(local)
	require.NotNil(t, check)
	assert.NoError(t, check.Ping(context.Background()))

	assert.Nil(t, imageStoreCheck(storage.NewMemoryStore()))
}
