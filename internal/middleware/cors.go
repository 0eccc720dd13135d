package middleware

import (
	"net/http"
	"strconv"
	"strings"
)

// CORSConfig holds CORS configuration options.
type CORSConfig struct {
	// AllowedOrigins lists exact origins ("https://market.example.edu") or
	// wildcard subdomain patterns ("*.umn.edu", "https://*.umn.edu").
	// A pattern never matches the bare domain.
	AllowedOrigins []string

	AllowedMethods []string
	AllowedHeaders []string

	// ExposedHeaders are readable by browser scripts; the web client needs the
	// rate-limit headers to back off.
	ExposedHeaders []string

	// AllowCredentials must stay false while tokens travel in the
	// Authorization header.
	AllowCredentials bool

	// MaxAge is the preflight cache lifetime in seconds.
	MaxAge int
}

// DefaultCORSConfig returns CORS defaults for the marketplace web client.
func DefaultCORSConfig(allowedOrigins ...string) CORSConfig {
	return CORSConfig{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{
			"X-Request-ID",
			"Retry-After",
			"X-RateLimit-Limit",
			"X-RateLimit-Remaining",
			"X-RateLimit-Reset",
		},
		MaxAge: 86400,
	}
}

// originPolicy is the compiled form of CORSConfig.AllowedOrigins.
type originPolicy struct {
	exact    map[string]struct{}
	patterns []originPattern
}

type originPattern struct {
	scheme string // empty matches any scheme
	suffix string // ".umn.edu"
}

func compileOrigins(origins []string) originPolicy {
	p := originPolicy{exact: make(map[string]struct{}, len(origins))}
	for _, raw := range origins {
		o := strings.ToLower(strings.TrimSpace(raw))
		if o == "" {
			continue
		}

		scheme, host, hasScheme := strings.Cut(o, "://")
		if !hasScheme {
			scheme, host = "", o
		}
		if suffix, ok := strings.CutPrefix(host, "*"); ok && strings.HasPrefix(suffix, ".") {
			p.patterns = append(p.patterns, originPattern{scheme: scheme, suffix: suffix})
			continue
		}
		p.exact[o] = struct{}{}
	}
	return p
}

func (p originPolicy) allows(origin string) bool {
	o := strings.ToLower(origin)
	if _, ok := p.exact[o]; ok {
		return true
	}

	scheme, host, ok := strings.Cut(o, "://")
	if !ok {
		return false
	}
	for _, pat := range p.patterns {
		if pat.scheme != "" && pat.scheme != scheme {
			continue
		}
		if sub, found := strings.CutSuffix(host, pat.suffix); found && sub != "" {
			return true
		}
	}
	return false
}

// CORS returns a middleware that answers preflight requests and decorates
// responses to allowed origins. Requests from other origins pass through
// without CORS headers, so the browser withholds the response.
func CORS(cfg CORSConfig) func(http.Handler) http.Handler {
	policy := compileOrigins(cfg.AllowedOrigins)
	methods := strings.Join(cfg.AllowedMethods, ", ")
	headers := strings.Join(cfg.AllowedHeaders, ", ")
	exposed := strings.Join(cfg.ExposedHeaders, ", ")
	maxAge := ""
	if cfg.MaxAge > 0 {
		maxAge = strconv.Itoa(cfg.MaxAge)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}

			preflight := r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != ""
			if !policy.allows(origin) {
				if preflight {
					w.WriteHeader(http.StatusForbidden)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Add("Vary", "Origin")
			if cfg.AllowCredentials {
				h.Set("Access-Control-Allow-Credentials", "true")
			}
			if exposed != "" {
				h.Set("Access-Control-Expose-Headers", exposed)
			}

			if preflight {
				h.Set("Access-Control-Allow-Methods", methods)
				h.Set("Access-Control-Allow-Headers", headers)
				if maxAge != "" {
					h.Set("Access-Control-Max-Age", maxAge)
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
