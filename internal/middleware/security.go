package middleware

import (
	"net/http"
)

const hstsValue = "max-age=31536000; includeSubDomains; preload"

// SecurityConfig holds configuration for security headers.
type SecurityConfig struct {
	// IsDevelopment omits Strict-Transport-Security so local plain-HTTP
	// clients are not pinned to HTTPS.
	IsDevelopment bool
}

// apiHeaders is the fixed header set for JSON API responses. Nothing the
// API returns is meant to be framed, scripted or cached by intermediaries.
var apiHeaders = map[string]string{
	"X-Content-Type-Options":       "nosniff",
	"X-Frame-Options":              "DENY",
	"X-XSS-Protection":             "0",
	"Referrer-Policy":              "strict-origin-when-cross-origin",
	"Content-Security-Policy":      "default-src 'none'; frame-ancestors 'none'",
	"Permissions-Policy":           "geolocation=(), microphone=(), camera=(), payment=(), usb=()",
	"Cross-Origin-Opener-Policy":   "same-origin",
	"Cross-Origin-Resource-Policy": "same-origin",
	"Cache-Control":                "no-store",
}

// Security returns a middleware that applies apiHeaders to every response,
// plus HSTS outside development.
func Security(cfg SecurityConfig) func(http.Handler) http.Handler {
	headers := make(http.Header, len(apiHeaders)+1)
	for k, v := range apiHeaders {
		headers.Set(k, v)
	}
	if !cfg.IsDevelopment {
		headers.Set("Strict-Transport-Security", hstsValue)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			for k, v := range headers {
				h.Set(k, v[0])
			}
			h.Del("Server")
			next.ServeHTTP(w, r)
		})
	}
}

// PublicAssets relaxes Security for uploaded listing images, which the web
// client embeds from its own origin and browsers may cache for a day.
func PublicAssets(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Cross-Origin-Resource-Policy", "cross-origin")
		h.Set("Cache-Control", "public, max-age=86400")
		next.ServeHTTP(w, r)
	})
}

// MaxBodySize rejects requests whose declared length exceeds maxBytes with
// PAYLOAD_TOO_LARGE and caps the body of everything else, so chunked
// uploads fail on read once they cross the limit.
func MaxBodySize(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body == nil || r.Body == http.NoBody {
				next.ServeHTTP(w, r)
				return
			}
			if r.ContentLength > maxBytes {
				writeError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Request body too large")
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
