package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gophermarket/gophermarket/internal/auth"
	"github.com/gophermarket/gophermarket/internal/metrics"
)

const defaultVerifyTimeout = 5 * time.Second

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	Logger   *slog.Logger
	Verifier auth.Verifier
	Timeout  time.Duration
	Metrics  metrics.Recorder
}

// Auth returns a middleware that verifies an optional bearer token and
// attaches the resulting auth.Principal to the request context.
// It never rejects a request; handlers that need a caller call
// auth.RequireIdentity.
func Auth(cfg AuthConfig) func(http.Handler) http.Handler {
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewNoop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultVerifyTimeout
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := auth.Principal{Outcome: auth.OutcomeAnonymous}

			token := extractBearerToken(r)
			if token != "" && cfg.Verifier != nil {
				ctx, cancel := context.WithTimeout(r.Context(), cfg.Timeout)
				id, err := cfg.Verifier.Verify(ctx, token)
				cancel()

				principal.Outcome = auth.Classify(id, err)
				if principal.Outcome == auth.OutcomeVerified {
					principal.Identity = id
					cfg.Logger.Debug("token verified",
						slog.String("email", id.Email),
						slog.String("endpoint", r.Method+" "+r.URL.Path),
						slog.String("request_id", GetRequestID(r.Context())),
					)
				} else {
					if err == nil {
						err = auth.ErrInvalidToken
					}
					cfg.Logger.Warn("token verification failed",
						slog.String("outcome", string(principal.Outcome)),
						slog.String("error", err.Error()),
						slog.String("ip", r.RemoteAddr),
						slog.String("endpoint", r.Method+" "+r.URL.Path),
						slog.String("request_id", GetRequestID(r.Context())),
					)
				}
			} else if token != "" {
				principal.Outcome = auth.OutcomeUnavailable
				cfg.Logger.Warn("bearer token presented but no verifier configured",
					slog.String("request_id", GetRequestID(r.Context())),
				)
			}

			cfg.Metrics.IncAuthOutcome(string(principal.Outcome))
			annotate(r.Context(), slog.String("auth", string(principal.Outcome)))

			ctx := auth.ContextWithPrincipal(r.Context(), principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractBearerToken returns the token from "Authorization: Bearer <token>".
func extractBearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(authHeader, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
