package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"
)

// responseStarted reports whether a status line already went out through
// the access-log writer, in which case a JSON error body would corrupt it.
func responseStarted(w http.ResponseWriter) bool {
	for {
		switch rw := w.(type) {
		case *responseWriter:
			return rw.wroteHeader
		case interface{ Unwrap() http.ResponseWriter }:
			w = rw.Unwrap()
		default:
			return false
		}
	}
}

// Recoverer converts handler panics into INTERNAL_ERROR responses. The panic
// value and stack go to the log only; in development the stack is also
// written as a plain multi-line block to stderr for readability.
func Recoverer(logger *slog.Logger, isDevelopment bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rvr := recover()
				if rvr == nil {
					return
				}
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}

				stack := debug.Stack()
				started := responseStarted(w)
				logger.Error("panic recovered",
					slog.String("request_id", GetRequestID(r.Context())),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Any("panic", rvr),
					slog.Bool("response_started", started),
					slog.String("stack", string(stack)),
				)
				if isDevelopment {
					debug.PrintStack()
				}

				if started {
					return
				}
				writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
			}()

			next.ServeHTTP(w, r)
		})
	}
}
