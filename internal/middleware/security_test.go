package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecurity(t *testing.T) {
	serve := func(isDev bool) http.Header {
		handler := Security(SecurityConfig{IsDevelopment: isDev})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		rec := httptest.NewRecorder()
		rec.Header().Set("Server", "go")
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/listings", nil))
		return rec.Header()
	}

	t.Run("production", func(t *testing.T) {
		h := serve(false)
		for name, want := range apiHeaders {
			assert.Equal(t, want, h.Get(name), name)
		}
		assert.Equal(t, hstsValue, h.Get("Strict-Transport-Security"))
		assert.Empty(t, h.Get("Server"))
	})

	t.Run("development skips HSTS", func(t *testing.T) {
		h := serve(true)
		assert.Empty(t, h.Get("Strict-Transport-Security"))
		assert.Equal(t, "nosniff", h.Get("X-Content-Type-Options"))
	})
}

func TestSecurity_HandlerCanOverride(t *testing.T) {
	handler := Security(SecurityConfig{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "private, max-age=60")
		w.WriteHeader(http.StatusOK)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "private, max-age=60", rec.Header().Get("Cache-Control"))
}

func TestPublicAssets(t *testing.T) {
	handler := Security(SecurityConfig{})(PublicAssets(status(http.StatusOK)))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/uploads/listings/a.jpg", nil))

	assert.Equal(t, "cross-origin", rec.Header().Get("Cross-Origin-Resource-Policy"))
	assert.Equal(t, "public, max-age=86400", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestMaxBodySize(t *testing.T) {
	tests := []struct {
		name          string
		limit         int64
		body          string
		contentLength int64
		wantStatus    int
	}{
		{"under limit", 1024, "small body", 10, http.StatusOK},
		{"declared length over limit", 10, "this body is longer than ten bytes", 34, http.StatusRequestEntityTooLarge},
		{"chunked body over limit", 10, "this body is longer than ten bytes", -1, http.StatusBadRequest},
		{"no body", 4, "", 0, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := MaxBodySize(tt.limit)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if _, err := io.Copy(io.Discard, r.Body); err != nil {
					w.WriteHeader(http.StatusBadRequest)
					return
				}
				w.WriteHeader(http.StatusOK)
			}))

			var body io.Reader
			if tt.body != "" {
				body = strings.NewReader(tt.body)
			}
			req := httptest.NewRequest(http.MethodPost, "/api/listings", body)
			req.ContentLength = tt.contentLength
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestMaxBodySize_RejectionIsJSON(t *testing.T) {
	handler := MaxBodySize(4)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/listings", strings.NewReader("too large")))

	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `"code":"PAYLOAD_TOO_LARGE"`)
}
