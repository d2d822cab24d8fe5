// Package config loads and validates client and devserver config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Session store backends accepted by SESSION_STORE.
const (
	StoreFile     = "file"
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

// Analysis modes accepted by ANALYSIS_MODE.
const (
	AnalysisRemote    = "remote"
	AnalysisSimulated = "simulated"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// Env is the application environment (e.g. "development", "production"). Selects the log encoder.
	Env string `mapstructure:"APP_ENV"`

	// AuthBaseURL is the Authentication Service base URL; /login, /register, /logout, /refresh and /me are appended.
	AuthBaseURL string `mapstructure:"AUTH_BASE_URL"`
	// APIBaseURL is the REST API base URL for team management and analysis.
	APIBaseURL string `mapstructure:"API_BASE_URL"`
	// ChatWSURL is the websocket endpoint for the live exchange (ws:// or wss://).
	ChatWSURL string `mapstructure:"CHAT_WS_URL"`
	// RequestTimeout bounds every outbound network call (e.g. "10s").
	RequestTimeout string `mapstructure:"REQUEST_TIMEOUT"`
	// RequestMaxRetries caps retries of idempotent GETs on transport errors. Mutations are never retried.
	RequestMaxRetries int `mapstructure:"REQUEST_MAX_RETRIES"`

	// RefreshRatio is the fraction of the token lifetime after which the background refresh fires (0 < r < 1).
	RefreshRatio float64 `mapstructure:"REFRESH_RATIO"`
	// DefaultTokenTTL is used when neither expires_in nor the JWT exp claim gives a lifetime.
	DefaultTokenTTL string `mapstructure:"DEFAULT_TOKEN_TTL"`

	// SessionStore selects the persistence backend: file, memory, redis or postgres.
	SessionStore string `mapstructure:"SESSION_STORE"`
	// SessionFile is the JSON document used by the file backend.
	SessionFile string `mapstructure:"SESSION_FILE"`
	// RedisURL is the redis:// URL used by the redis backend.
	RedisURL string `mapstructure:"REDIS_URL"`
	// DatabaseURL is the Postgres DSN used by the postgres backend and cmd/migrate.
	DatabaseURL string `mapstructure:"DATABASE_URL"`

	// AnalysisMode selects remote (HTTP) or simulated breakdown generation.
	AnalysisMode string `mapstructure:"ANALYSIS_MODE"`
	// AnalysisDelay is the fixed delay of the simulated analysis (e.g. "2s").
	AnalysisDelay string `mapstructure:"ANALYSIS_DELAY"`

	// LogLevel is debug, info, warn or error.
	LogLevel string `mapstructure:"LOG_LEVEL"`
	// LogFile, when set, adds a rotated JSON file sink.
	LogFile string `mapstructure:"LOG_FILE"`

	// OTLPEndpoint is the OTLP gRPC collector endpoint; empty disables export.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTLPInsecure forces plaintext even for https endpoints.
	OTLPInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`

	// Devserver-only settings.
	// DevserverAddr is the listen address of cmd/devserver (e.g. :8000).
	DevserverAddr string `mapstructure:"DEVSERVER_ADDR"`
	// JWTPrivateKey is the PEM-encoded private key (RSA or ECDSA) or path to file. Empty generates an ephemeral key.
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"`
	// JWTPublicKey is the PEM-encoded public key or path to file; used with JWT_PRIVATE_KEY.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	// JWTIssuer is the iss claim.
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTAudience is the aud claim.
	JWTAudience string `mapstructure:"JWT_AUDIENCE"`
	// JWTAccessTTL is the access token lifetime (e.g. "30m").
	JWTAccessTTL string `mapstructure:"JWT_ACCESS_TTL"`
	// JWTRefreshTTL is the refresh token lifetime (e.g. "168h").
	JWTRefreshTTL string `mapstructure:"JWT_REFRESH_TTL"`
	// BcryptCost is the bcrypt cost factor (4–31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("APP_ENV", "development")
	v.SetDefault("AUTH_BASE_URL", "http://localhost:8000/api/v1/auth")
	v.SetDefault("API_BASE_URL", "http://localhost:8000/api/v1")
	v.SetDefault("CHAT_WS_URL", "ws://localhost:8000/api/v1/chat/ws")
	v.SetDefault("REQUEST_TIMEOUT", "10s")
	v.SetDefault("REQUEST_MAX_RETRIES", 2)
	v.SetDefault("REFRESH_RATIO", 0.93)
	v.SetDefault("DEFAULT_TOKEN_TTL", "30m")
	v.SetDefault("SESSION_STORE", StoreFile)
	v.SetDefault("SESSION_FILE", "")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("ANALYSIS_MODE", AnalysisRemote)
	v.SetDefault("ANALYSIS_DELAY", "2s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FILE", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("DEVSERVER_ADDR", ":8000")
	v.SetDefault("JWT_PRIVATE_KEY", "")
	v.SetDefault("JWT_PUBLIC_KEY", "")
	v.SetDefault("JWT_ISSUER", "singlebrief-auth")
	v.SetDefault("JWT_AUDIENCE", "singlebrief-api")
	v.SetDefault("JWT_ACCESS_TTL", "30m")
	v.SetDefault("JWT_REFRESH_TTL", "168h") // 7d
	v.SetDefault("BCRYPT_COST", 12)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := validateBaseURL("AUTH_BASE_URL", cfg.AuthBaseURL); err != nil {
		return nil, err
	}
	if err := validateBaseURL("API_BASE_URL", cfg.APIBaseURL); err != nil {
		return nil, err
	}

	if cfg.RefreshRatio <= 0 || cfg.RefreshRatio >= 1 {
		return nil, errors.New("config: REFRESH_RATIO must be between 0 and 1 (exclusive)")
	}
	if cfg.RequestMaxRetries < 0 {
		return nil, errors.New("config: REQUEST_MAX_RETRIES must not be negative")
	}

	cfg.SessionStore = strings.ToLower(strings.TrimSpace(cfg.SessionStore))
	switch cfg.SessionStore {
	case StoreFile, StoreMemory:
	case StoreRedis:
		if cfg.RedisURL == "" {
			return nil, errors.New("config: REDIS_URL must be set when SESSION_STORE=redis")
		}
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			return nil, errors.New("config: DATABASE_URL must be set when SESSION_STORE=postgres")
		}
	default:
		return nil, errors.New("config: SESSION_STORE must be one of file, memory, redis, postgres")
	}

	cfg.AnalysisMode = strings.ToLower(strings.TrimSpace(cfg.AnalysisMode))
	if cfg.AnalysisMode != AnalysisRemote && cfg.AnalysisMode != AnalysisSimulated {
		return nil, errors.New("config: ANALYSIS_MODE must be remote or simulated")
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}

	return &cfg, nil
}

func validateBaseURL(key, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return errors.New("config: " + key + " must be an absolute http(s) URL")
	}
	return nil
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// Timeout parses RequestTimeout as a time.Duration. Returns 10s if unset or invalid.
func (c *Config) Timeout() time.Duration {
	return parseDuration(c.RequestTimeout, 10*time.Second)
}

// TokenTTL parses DefaultTokenTTL as a time.Duration. Returns 30m if unset or invalid.
func (c *Config) TokenTTL() time.Duration {
	return parseDuration(c.DefaultTokenTTL, 30*time.Minute)
}

// SimulatedDelay parses AnalysisDelay as a time.Duration. Returns 2s if unset or invalid.
func (c *Config) SimulatedDelay() time.Duration {
	d, err := time.ParseDuration(c.AnalysisDelay)
	if err != nil || d < 0 {
		return 2 * time.Second
	}
	return d
}

// AccessTTL parses JWTAccessTTL as a time.Duration. Returns 30m if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	return parseDuration(c.JWTAccessTTL, 30*time.Minute)
}

// RefreshTTL parses JWTRefreshTTL as a time.Duration. Returns 168h if unset or invalid.
func (c *Config) RefreshTTL() time.Duration {
	return parseDuration(c.JWTRefreshTTL, 168*time.Hour)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
