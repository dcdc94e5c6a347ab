// Package config handles application configuration and environment loading.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Insecure development defaults. Both are rejected in production.
const (
	DefaultJWTSecret = "dev-secret-change-in-production"
	DefaultPassword  = "admin"
)

// AuthConfig holds login credentials, session and identity provider settings.
type AuthConfig struct {
	Username   string
	Password   string
	JWTSecret  string        // HS256 secret for session tokens
	SessionTTL time.Duration // token and session lifetime (default 1h)

	// Optional external identity provider. Bearer tokens it issues are
	// accepted alongside session tokens.
	OIDCIssuer   string
	OIDCAudience string
}

// OIDCEnabled returns true when an external identity provider is configured.
func (a *AuthConfig) OIDCEnabled() bool {
	return a.OIDCIssuer != ""
}

// DBConfig holds the PostgreSQL connection settings.
type DBConfig struct {
	URL         string // DATABASE_URL, or assembled from the DB_* parts
	MaxConns    int32
	MinConns    int32
	AutoMigrate bool
}

// ETLConfig holds upload pipeline switches.
type ETLConfig struct {
	SerializeUploads bool   // per-dataset advisory lock around uploads (default true)
	ValidateHeaders  bool   // check payload headers against staging columns (default false)
	RoutinesFile     string // optional override of the embedded routine descriptors
	MaxUploadBytes   int64
}

// ArchiveConfig holds the optional raw payload archive settings.
type ArchiveConfig struct {
	URL                string // s3://, gs:// or azblob:// target; empty disables archiving
	Workers            int
	AWSRegion          string
	S3Endpoint         string
	S3AccessKeyID      string
	S3SecretAccessKey  string
	GCSCredentialsFile string
	AzureAccountKey    string
}

// Config holds the server configuration.
type Config struct {
	Env        string // "development" (default) or "production"
	ListenAddr string // HTTP listen address (default ":8080")
	LogLevel   string // debug, info, warn, error (default "info")

	LogFile        string // rolling JSON log file (optional)
	LogFileMaxMB   int
	LogFileBackups int

	DB      DBConfig
	Auth    AuthConfig
	ETL     ETLConfig
	Archive ArchiveConfig

	// Rate limiting
	RateLimitRPS   float64 // sustained requests per second (default 100)
	RateLimitBurst int     // burst capacity (default 200)

	// CORS
	CORSAllowedOrigins []string // allowed origins for CORS (default: ["*"])

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// Warnings collects non-fatal warnings generated during config loading.
	// These are logged by the caller after the logger is initialised.
	Warnings []string
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// IsProduction returns true when the server is running in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		Env:            os.Getenv("ENV"),
		ListenAddr:     os.Getenv("LISTEN_ADDR"),
		LogLevel:       os.Getenv("LOG_LEVEL"),
		LogFile:        os.Getenv("LOG_FILE"),
		LogFileMaxMB:   parseIntEnv("LOG_FILE_MAX_MB", 50),
		LogFileBackups: parseIntEnv("LOG_FILE_BACKUPS", 5),
		DB: DBConfig{
			URL:         os.Getenv("DATABASE_URL"),
			MaxConns:    int32(parseIntEnv("DB_MAX_CONNS", 10)), //nolint:gosec // small config value
			MinConns:    int32(parseIntEnv("DB_MIN_CONNS", 0)),  //nolint:gosec // small config value
			AutoMigrate: parseBoolEnvDefault("DB_AUTO_MIGRATE", true),
		},
		Auth: AuthConfig{
			Username:     os.Getenv("AUTH_USERNAME"),
			Password:     os.Getenv("AUTH_PASSWORD"),
			JWTSecret:    os.Getenv("JWT_SECRET"),
			SessionTTL:   parseDurationEnv("SESSION_TTL", time.Hour),
			OIDCIssuer:   os.Getenv("AUTH_OIDC_ISSUER"),
			OIDCAudience: os.Getenv("AUTH_OIDC_AUDIENCE"),
		},
		ETL: ETLConfig{
			SerializeUploads: parseBoolEnvDefault("ETL_SERIALIZE_UPLOADS", true),
			ValidateHeaders:  parseBoolEnvDefault("ETL_VALIDATE_HEADERS", false),
			RoutinesFile:     os.Getenv("ETL_ROUTINES_FILE"),
			MaxUploadBytes:   int64(parseIntEnv("ETL_MAX_UPLOAD_MB", 50)) << 20,
		},
		Archive: ArchiveConfig{
			URL:                os.Getenv("ARCHIVE_URL"),
			Workers:            parseIntEnv("ARCHIVE_WORKERS", 4),
			AWSRegion:          os.Getenv("AWS_REGION"),
			S3Endpoint:         os.Getenv("S3_ENDPOINT"),
			S3AccessKeyID:      os.Getenv("S3_ACCESS_KEY_ID"),
			S3SecretAccessKey:  os.Getenv("S3_SECRET_ACCESS_KEY"),
			GCSCredentialsFile: os.Getenv("GCS_CREDENTIALS_FILE"),
			AzureAccountKey:    os.Getenv("AZURE_ACCOUNT_KEY"),
		},
		ReadTimeout:     parseDurationEnv("HTTP_READ_TIMEOUT", 30*time.Second),
		WriteTimeout:    parseDurationEnv("HTTP_WRITE_TIMEOUT", 5*time.Minute),
		ShutdownTimeout: parseDurationEnv("SHUTDOWN_TIMEOUT", 15*time.Second),
	}

	// Rate limiting
	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.RateLimitRPS = f
		}
	}
	if v := os.Getenv("RATE_LIMIT_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateLimitBurst = n
		}
	}

	// CORS
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		origins := strings.Split(v, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		cfg.CORSAllowedOrigins = compactNonEmpty(origins)
	}

	if cfg.DB.URL == "" {
		cfg.DB.URL = assembleDBURL()
	}
	if cfg.DB.MinConns > cfg.DB.MaxConns {
		return nil, fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", cfg.DB.MinConns, cfg.DB.MaxConns)
	}

	// Defaults
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.RateLimitRPS == 0 {
		cfg.RateLimitRPS = 100
	}
	if cfg.RateLimitBurst == 0 {
		cfg.RateLimitBurst = 200
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = []string{"*"}
	}
	if cfg.Auth.Username == "" {
		cfg.Auth.Username = "admin"
	}
	if cfg.Auth.Password == "" {
		cfg.Auth.Password = DefaultPassword
		cfg.Warnings = append(cfg.Warnings, "AUTH_PASSWORD not set, using insecure default. Set AUTH_PASSWORD in production!")
	}
	if cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = DefaultJWTSecret
		cfg.Warnings = append(cfg.Warnings, "JWT_SECRET not set, using insecure default. Set JWT_SECRET in production!")
	}
	if cfg.Auth.OIDCIssuer != "" && cfg.Auth.OIDCAudience == "" {
		return nil, fmt.Errorf("AUTH_OIDC_AUDIENCE is required when AUTH_OIDC_ISSUER is set")
	}
	if !cfg.ETL.SerializeUploads {
		cfg.Warnings = append(cfg.Warnings, "ETL_SERIALIZE_UPLOADS=false: concurrent uploads to one dataset may interleave in its staging table")
	}
	if err := cfg.Archive.validate(); err != nil {
		return nil, err
	}

	// Production mode: insecure defaults are fatal errors.
	if cfg.IsProduction() {
		if cfg.Auth.JWTSecret == DefaultJWTSecret {
			return nil, fmt.Errorf("JWT_SECRET must be set in production (ENV=production)")
		}
		if cfg.Auth.Password == DefaultPassword {
			return nil, fmt.Errorf("AUTH_PASSWORD must be set in production (ENV=production)")
		}
		if len(cfg.CORSAllowedOrigins) == 1 && cfg.CORSAllowedOrigins[0] == "*" {
			return nil, fmt.Errorf("CORS wildcard (*) is not allowed in production (ENV=production)")
		}
	}

	return cfg, nil
}

func (a *ArchiveConfig) validate() error {
	if a.URL == "" {
		return nil
	}
	scheme, _, ok := strings.Cut(a.URL, "://")
	if !ok {
		return fmt.Errorf("ARCHIVE_URL %q has no scheme", a.URL)
	}
	switch scheme {
	case "s3":
		if a.S3AccessKeyID == "" || a.S3SecretAccessKey == "" {
			return fmt.Errorf("ARCHIVE_URL is s3:// but S3_ACCESS_KEY_ID or S3_SECRET_ACCESS_KEY is missing")
		}
	case "azblob":
		if a.AzureAccountKey == "" {
			return fmt.Errorf("ARCHIVE_URL is azblob:// but AZURE_ACCOUNT_KEY is missing")
		}
	case "gs":
	default:
		return fmt.Errorf("ARCHIVE_URL scheme %q is not one of s3, gs, azblob", scheme)
	}
	return nil
}

// assembleDBURL builds a postgres URL from the DB_* parts.
func assembleDBURL() string {
	host := envOr("DB_HOST", "localhost")
	port := envOr("DB_PORT", "5432")
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(envOr("DB_USER", "postgres"), os.Getenv("DB_PASSWORD")),
		Host:   host + ":" + port,
		Path:   "/" + envOr("DB_NAME", "cm"),
	}
	if v := os.Getenv("DB_SSLMODE"); v != "" {
		u.RawQuery = "sslmode=" + url.QueryEscape(v)
	}
	return u.String()
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseIntEnv(key string, defaultVal int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func parseDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

func parseBoolEnvDefault(key string, defaultVal bool) bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	if v == "" {
		return defaultVal
	}
	if v == "0" || v == "false" || v == "no" || v == "off" {
		return false
	}
	if v == "1" || v == "true" || v == "yes" || v == "on" {
		return true
	}
	return defaultVal
}

func compactNonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// LoadDotEnv reads a .env file and sets any variables not already in the
// environment. A missing file is not an error.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}
