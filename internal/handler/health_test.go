package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func healthy() HealthChecker { return pingFunc(func(context.Context) error { return nil }) }

func serveProbe(t *testing.T, fn http.HandlerFunc, path string) (int, HealthResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	fn(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return rec.Code, resp
}

func TestHealthHandler_Healthz(t *testing.T) {
	h := NewHealthHandler(map[string]HealthChecker{
		"database": pingFunc(func(context.Context) error { return errors.New("down") }),
	}, nil)

	code, resp := serveProbe(t, h.Healthz, "/healthz")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", resp.Status)
	assert.Empty(t, resp.Checks)
}

func TestHealthHandler_Readyz(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]HealthChecker
		wantCode   int
		wantStatus string
		wantChecks map[string]string
	}{
		{
			name:       "all healthy",
			checks:     map[string]HealthChecker{"database": healthy(), "redis": healthy()},
			wantCode:   http.StatusOK,
			wantStatus: "ok",
			wantChecks: map[string]string{"database": "ok", "redis": "ok"},
		},
		{
			name: "database down",
			checks: map[string]HealthChecker{
				"database": pingFunc(func(context.Context) error {
					return errors.New("dial tcp: postgres://market:hunter2@db:5432 refused")
				}),
				"redis": healthy(),
			},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "unhealthy",
			wantChecks: map[string]string{"database": "unavailable", "redis": "ok"},
		},
		{
			name:       "optional dependency absent",
			checks:     map[string]HealthChecker{"database": healthy(), "redis": nil},
			wantCode:   http.StatusOK,
			wantStatus: "ok",
			wantChecks: map[string]string{"database": "ok", "redis": "not configured"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, resp := serveProbe(t, NewHealthHandler(tt.checks, nil).Readyz, "/readyz")

			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantStatus, resp.Status)
			assert.Equal(t, tt.wantChecks, resp.Checks)
		})
	}
}

func TestHealthHandler_ReadyzHonoursDeadline(t *testing.T) {
	var deadline bool
	h := NewHealthHandler(map[string]HealthChecker{
		"database": pingFunc(func(ctx context.Context) error {
			_, deadline = ctx.Deadline()
			return nil
		}),
	}, nil)

	code, _ := serveProbe(t, h.Readyz, "/readyz")
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, deadline)
}
