// Package main is the entrypoint for the marketplace API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/gophermarket/gophermarket/internal/auth"
	"github.com/gophermarket/gophermarket/internal/cache"
	"github.com/gophermarket/gophermarket/internal/config"
	"github.com/gophermarket/gophermarket/internal/handler"
	"github.com/gophermarket/gophermarket/internal/metrics"
	"github.com/gophermarket/gophermarket/internal/middleware"
	"github.com/gophermarket/gophermarket/internal/ratelimit"
	"github.com/gophermarket/gophermarket/internal/repository"
	"github.com/gophermarket/gophermarket/internal/repository/sqlite"
	"github.com/gophermarket/gophermarket/internal/server"
	"github.com/gophermarket/gophermarket/internal/service"
	"github.com/gophermarket/gophermarket/internal/storage"
)

const pruneInterval = time.Minute

// recordStore is satisfied by both the Postgres repository and the SQLite store.
type recordStore interface {
	service.ListingStore
	service.ProfileStore
	Ping(ctx context.Context) error
	Close() error
}

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	verifier, err := newVerifier(cfg, logger)
	if err != nil {
		return err
	}
	trusted, err := middleware.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		return fmt.Errorf("trusted proxies: %w", err)
	}

	checks := make(map[string]handler.HealthChecker)

	store, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error(
			"failed to open record store",
			slog.String("driver", cfg.DatabaseDriver),
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		return errors.New("record store unavailable")
	}
	checks["database"] = store
	logger.Info("connected to record store", "driver", cfg.DatabaseDriver)

	// Rate-limit counters live in Redis when configured, otherwise in process.
	var counter ratelimit.Counter
	var cacheClient *cache.Cache
	pruneCtx, stopPrune := context.WithCancel(ctx)
	if cfg.RedisURL != "" {
		cacheClient, err = cache.New(ctx, cfg.RedisURL)
		if err != nil {
			stopPrune()
			_ = store.Close()
			logger.Error(
				"failed to connect to Redis",
				slog.String("error", sanitizeError(err, cfg.RedisURL)),
				slog.String("redis_url", redactURL(cfg.RedisURL)),
			)
			return errors.New("redis unavailable")
		}
		counter = cacheClient
		checks["redis"] = cacheClient
		logger.Info("connected to Redis")
	} else {
		mem := ratelimit.NewMemoryCounter()
		go mem.Run(pruneCtx, pruneInterval)
		counter = mem
	}

	images, uploads, closeImages, err := openImageStore(ctx, cfg, logger)
	if err != nil {
		stopPrune()
		_ = store.Close()
		if cacheClient != nil {
			_ = cacheClient.Close()
		}
		return fmt.Errorf("open image store: %w", err)
	}

	checks["storage"] = imageStoreCheck(images)

	recorder := metrics.NewInMemory()

	listings := service.NewListingService(store, images, service.ListingServiceConfig{
		AllowedEmailDomain: cfg.AllowedEmailDomain,
		CallTimeout:        cfg.UpstreamTimeout,
	}, recorder, logger)
	profiles := service.NewProfileService(store, cfg.UpstreamTimeout, logger)

	if cfg.SeedSampleListings {
		n, err := listings.SeedSampleListings(ctx)
		if err != nil {
			logger.Warn("failed to seed sample listings", "error", err)
		} else if n > 0 {
			logger.Info("seeded sample listings", "count", n)
		}
	}

	limiter := ratelimit.New(counter, ratelimit.Policy{
		Window: cfg.RateLimitWindow,
		Limits: map[ratelimit.RouteClass]int{
			ratelimit.ClassRead:  cfg.RateLimitReadMax,
			ratelimit.ClassWrite: cfg.RateLimitWriteMax,
		},
	})

	r := handler.NewRouter(handler.RouterConfig{
		Logger:         logger,
		IsDevelopment:  cfg.IsDevelopment(),
		MaxBodySize:    cfg.MaxRequestBodySize,
		TrustedProxies: trusted,
		CORS:           middleware.DefaultCORSConfig(cfg.CORSAllowedOrigins...),
		Auth: middleware.AuthConfig{
			Logger:   logger,
			Verifier: verifier,
			Timeout:  cfg.AuthVerifyTimeout,
			Metrics:  recorder,
		},
		RateLimit: middleware.RateLimitConfig{
			Logger:  logger,
			Limiter: limiter,
			Enabled: cfg.RateLimitEnabled,
			Metrics: recorder,
		},
		Health:   handler.NewHealthHandler(checks, logger),
		Listings: handler.NewListingHandler(listings, cfg.MaxMultipartMemory, logger),
		Profiles: handler.NewProfileHandler(profiles, logger),
		Metrics:  handler.NewMetricsHandler(recorder),
		Uploads:  uploads,
	})

	srv := server.New(r, server.Config{
		Port:            cfg.AppPort,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)

	srv.OnShutdown("record store", func(context.Context) error { return store.Close() })
	if cacheClient != nil {
		srv.OnShutdown("redis", func(context.Context) error { return cacheClient.Close() })
	}
	if closeImages != nil {
		srv.OnShutdown("image store", func(context.Context) error { return closeImages() })
	}
	srv.OnShutdown("rate limit pruner", func(context.Context) error {
		stopPrune()
		return nil
	})

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"auth_provider", cfg.AuthProvider,
		"storage_backend", cfg.StorageBackend,
	)

	return srv.Run(ctx)
}

func openStore(ctx context.Context, cfg *config.Config) (recordStore, error) {
	switch cfg.DatabaseDriver {
	case config.DriverPostgres:
		repo, err := repository.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := repo.EnsureSchema(ctx); err != nil {
			_ = repo.Close()
			return nil, err
		}
		return repo, nil
	default:
		path := strings.TrimPrefix(cfg.DatabaseURL, "sqlite://")
		if !strings.HasPrefix(path, "file:") {
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return nil, fmt.Errorf("create database directory: %w", err)
			}
		}
		return sqlite.Open(path)
	}
}

// openImageStore returns the blob store, an optional handler serving its
// files and an optional closer.
func openImageStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.ImageStore, http.Handler, func() error, error) {
	switch cfg.StorageBackend {
	case config.StorageGCS:
		gcs, err := storage.NewGCSStore(ctx, cfg.StorageBucket, cfg.GCSCredentialsJSON, logger)
		if err != nil {
			return nil, nil, nil, err
		}
		return gcs, nil, gcs.Close, nil
	case config.StorageMemory:
		logger.Warn("using in-memory image storage; uploads are lost on restart")
		return storage.NewMemoryStore(), nil, nil, nil
	default:
		local, err := storage.NewLocalStore(cfg.LocalStorageDir, cfg.PublicBaseURL)
		if err != nil {
			return nil, nil, nil, err
		}
		return local, http.FileServer(http.Dir(local.Dir())), nil, nil
	}
}

// imageStoreCheck returns the readiness check for stores that can be pinged.
// The in-memory store has nothing to check and reports "not configured".
func imageStoreCheck(images storage.ImageStore) handler.HealthChecker {
	if hc, ok := images.(handler.HealthChecker); ok {
		return hc
	}
	return nil
}

func newVerifier(cfg *config.Config, logger *slog.Logger) (auth.Verifier, error) {
	switch cfg.AuthProvider {
	case config.AuthProviderHMAC:
		logger.Warn("using shared-secret token verification; not for production")
		return auth.NewHMACVerifier(cfg.AuthHMACSecret), nil
	case config.AuthProviderFirebase:
		return auth.NewFirebaseVerifier(cfg.FirebaseProjectID, logger), nil
	default:
		return nil, fmt.Errorf("unknown auth provider %q", cfg.AuthProvider)
	}
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h).With("service", "gophermarket")
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s&]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return passwordPattern.ReplaceAllString(parsed.String(), "password=redacted")
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
