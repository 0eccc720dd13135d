package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRun_ServesUntilCancelled(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	srv := New(handler, Config{Port: 0, ShutdownTimeout: time.Second}, discardLogger())

	var order []string
	srv.OnShutdown("store", func(context.Context) error {
		order = append(order, "store")
		return nil
	})
	srv.OnShutdown("limiter", func(context.Context) error {
		order = append(order, "limiter")
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	var addr string
	select {
	case a := <-srv.Listening():
		addr = a.String()
	case err := <-done:
		t.Fatalf("server exited early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not start")
	}

	resp, err := http.Get("http://" + addr + "/")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusTeapot, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
	assert.Equal(t, []string{"limiter", "store"}, order)
}

func TestGracefulShutdown_JoinsComponentErrors(t *testing.T) {
	srv := New(http.NotFoundHandler(), Config{}, discardLogger())
	boom := errors.New("boom")
	srv.OnShutdown("cache", func(context.Context) error { return boom })
	srv.OnShutdown("ok", func(context.Context) error { return nil })

	err := srv.gracefulShutdown()
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "cache")
}
