package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gophermarket/gophermarket/internal/metrics"
	"github.com/gophermarket/gophermarket/internal/ratelimit"
)

// RateLimitConfig holds configuration for rate limiting middleware.
type RateLimitConfig struct {
	Logger  *slog.Logger
	Limiter *ratelimit.Limiter
	Enabled bool
	Metrics metrics.Recorder
}

// RateLimit returns middleware that admits requests per client IP and route
// class. The IP is the one resolved by ClientIP, which only believes
// forwarding headers from trusted proxies. Counter store errors fail open.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewNoop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.Enabled || cfg.Limiter == nil {
				next.ServeHTTP(w, r)
				return
			}

			ip := getClientIP(r)
			class := ratelimit.ClassOf(r.Method)

			result, err := cfg.Limiter.Admit(r.Context(), ip, class)
			if err != nil {
				cfg.Logger.Error("rate limit check failed",
					slog.String("error", err.Error()),
					slog.String("class", string(class)),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				// Fail open - allow request
				next.ServeHTTP(w, r)
				return
			}

			setRateLimitHeaders(w, result)

			if !result.Allowed {
				cfg.Metrics.IncRateLimited(string(class))
				annotate(r.Context(), slog.String("rate_limited", string(class)))
				cfg.Logger.Warn("rate limit exceeded",
					slog.String("class", string(class)),
					slog.String("ip", ip),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.Int64("retry_after_seconds", retryAfterSeconds(result)),
					slog.String("request_id", GetRequestID(r.Context())),
				)

				w.Header().Set("Retry-After", strconv.FormatInt(retryAfterSeconds(result), 10))
				writeError(w, http.StatusTooManyRequests, "RATE_LIMITED",
					fmt.Sprintf("Rate limit exceeded. Retry after %d seconds.", retryAfterSeconds(result)))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// setRateLimitHeaders sets standard rate limit response headers.
func setRateLimitHeaders(w http.ResponseWriter, d ratelimit.Decision) {
	if d.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))
	}
}

func retryAfterSeconds(d ratelimit.Decision) int64 {
	secs := int64(d.RetryAfter.Seconds())
	if d.RetryAfter > 0 && float64(secs) < d.RetryAfter.Seconds() {
		secs++
	}
	if secs < 1 {
		secs = 1
	}
	return secs
}
