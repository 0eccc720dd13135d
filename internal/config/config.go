// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/go-playground/validator/v10"
)

// Database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Identity providers.
const (
	AuthProviderFirebase = "firebase"
	AuthProviderHMAC     = "hmac"
)

// Image storage backends.
const (
	StorageGCS    = "gcs"
	StorageLocal  = "local"
	StorageMemory = "memory"
)

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development" validate:"oneof=development test production"`
	AppPort int    `env:"APP_PORT" envDefault:"8080" validate:"min=1,max=65535"`

	// Record store
	DatabaseDriver string `env:"DATABASE_DRIVER" envDefault:"sqlite" validate:"oneof=postgres sqlite"`
	DatabaseURL    string `env:"DATABASE_URL,required" validate:"required"`

	// Optional Redis; when set, rate-limit counters are shared through it
	RedisURL string `env:"REDIS_URL"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json" validate:"oneof=json text"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Bound for each call to the blob store and the record store.
	UpstreamTimeout time.Duration `env:"UPSTREAM_TIMEOUT" envDefault:"20s" validate:"gt=0"`

	// Identity verification
	AuthProvider      string        `env:"AUTH_PROVIDER" envDefault:"firebase" validate:"oneof=firebase hmac"`
	FirebaseProjectID string        `env:"FIREBASE_PROJECT_ID"`
	AuthHMACSecret    string        `env:"AUTH_HMAC_SECRET"`
	AuthVerifyTimeout time.Duration `env:"AUTH_VERIFY_TIMEOUT" envDefault:"5s" validate:"gt=0"`

	// Listings may only be created by addresses in this domain.
	AllowedEmailDomain string `env:"ALLOWED_EMAIL_DOMAIN" envDefault:"umn.edu" validate:"required,hostname"`

	// Rate limiting (fixed window per client IP and route class)
	RateLimitEnabled  bool          `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	RateLimitWindow   time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m" validate:"gt=0"`
	RateLimitReadMax  int           `env:"RATE_LIMIT_READ_MAX" envDefault:"120" validate:"min=1"`
	RateLimitWriteMax int           `env:"RATE_LIMIT_WRITE_MAX" envDefault:"30" validate:"min=1"`

	// Peers allowed to set X-Forwarded-For / X-Real-IP (CIDRs or addresses).
	// Empty means every request is keyed by its TCP peer.
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:"," validate:"dive,cidr|ip"`

	// Image storage
	StorageBackend     string `env:"STORAGE_BACKEND" envDefault:"local" validate:"oneof=gcs local memory"`
	StorageBucket      string `env:"STORAGE_BUCKET"`
	GCSCredentialsJSON string `env:"GCS_CREDENTIALS_JSON"`
	LocalStorageDir    string `env:"LOCAL_STORAGE_DIR" envDefault:"./data/uploads"`
	PublicBaseURL      string `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:8080" validate:"url"`

	// Request body size limit in bytes (default 32MB, room for five images)
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"33554432" validate:"gt=0"`
	// Multipart parts above this size are spooled to disk
	MaxMultipartMemory int64 `env:"MAX_MULTIPART_MEMORY" envDefault:"8388608" validate:"gt=0"`

	// Browser origins allowed by CORS; entries may use a *. wildcard subdomain
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`

	SeedSampleListings bool `env:"SEED_SAMPLE_LISTINGS" envDefault:"false"`
}

var validate = validator.New()

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Validate checks field constraints and the settings that depend on each other.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	var errs []error
	switch c.AuthProvider {
	case AuthProviderFirebase:
		if strings.TrimSpace(c.FirebaseProjectID) == "" {
			errs = append(errs, errors.New("FIREBASE_PROJECT_ID is required when AUTH_PROVIDER=firebase"))
		}
	case AuthProviderHMAC:
		if len(c.AuthHMACSecret) < 32 {
			errs = append(errs, errors.New("AUTH_HMAC_SECRET must be at least 32 characters when AUTH_PROVIDER=hmac"))
		}
		if c.IsProduction() {
			errs = append(errs, errors.New("AUTH_PROVIDER=hmac is not allowed in production"))
		}
	}

	if c.StorageBackend == StorageGCS && strings.TrimSpace(c.StorageBucket) == "" {
		errs = append(errs, errors.New("STORAGE_BUCKET is required when STORAGE_BACKEND=gcs"))
	}
	if c.StorageBackend == StorageLocal && strings.TrimSpace(c.LocalStorageDir) == "" {
		errs = append(errs, errors.New("LOCAL_STORAGE_DIR is required when STORAGE_BACKEND=local"))
	}

	return errors.Join(errs...)
}

// Load parses environment variables and returns a validated Config.
// Returns an error if required variables are missing.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.AllowedEmailDomain = strings.ToLower(strings.TrimPrefix(cfg.AllowedEmailDomain, "@"))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
