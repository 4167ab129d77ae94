package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/courserate-sg/server/internal/validation"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	AuthModeJWKS  = "jwks"
	AuthModeLocal = "local"
)

type Config struct {
	Server      ServerConfig    `yaml:"server"`
	Database    DatabaseConfig  `yaml:"database"`
	Auth        AuthConfig      `yaml:"auth"`
	CORS        CORSConfig      `yaml:"cors"`
	RateLimit   RateLimitConfig `yaml:"rate_limit"`
	Logging     LoggingConfig   `yaml:"logging"`
	Tracing     TracingConfig   `yaml:"tracing"`
	Metrics     MetricsConfig   `yaml:"metrics"`
	Jobs        JobsConfig      `yaml:"jobs"`
	Environment string          `yaml:"environment"`
}

type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	BaseURL      string        `yaml:"base_url"`
	APIPrefix    string        `yaml:"api_prefix"`
	APIVersion   string        `yaml:"api_version"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
	MaxBodyBytes int64         `yaml:"max_body_bytes"`
}

// DatabaseConfig accepts either a full URL or discrete connection fields.
// MaxConns mirrors a base pool of 5 plus an overflow of 10.
type DatabaseConfig struct {
	URL             string        `yaml:"url"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Name            string        `yaml:"name"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"ssl_mode"`
	MaxConns        int           `yaml:"max_conns"`
	MinConns        int           `yaml:"min_conns"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	AcquireTimeout  time.Duration `yaml:"acquire_timeout"`
	MigrationsPath  string        `yaml:"migrations_path"`
}

type AuthConfig struct {
	Mode        string        `yaml:"mode"`
	Region      string        `yaml:"region"`
	UserPoolID  string        `yaml:"user_pool_id"`
	ClientID    string        `yaml:"client_id"`
	JWKSURL     string        `yaml:"jwks_url"`
	CacheTTL    time.Duration `yaml:"cache_ttl"`
	LocalSecret string        `yaml:"local_secret"`
	LocalIssuer string        `yaml:"local_issuer"`
	LocalExpiry time.Duration `yaml:"local_expiry"`
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// AllowAll reports whether the wildcard origin is configured.
func (c CORSConfig) AllowAll() bool {
	for _, origin := range c.AllowedOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}

type RateLimitConfig struct {
	PublicPerMinute        int      `yaml:"public_per_minute"`
	AuthenticatedPerMinute int      `yaml:"authenticated_per_minute"`
	Burst                  int      `yaml:"burst"`
	TrustedProxyCIDRs      []string `yaml:"trusted_proxy_cidrs"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"`
	OTLPEndpoint string  `yaml:"otlp_endpoint"`
	ServiceName  string  `yaml:"service_name"`
	SampleRate   float64 `yaml:"sample_rate"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

type JobsConfig struct {
	Enabled         bool          `yaml:"enabled"`
	RefreshInterval time.Duration `yaml:"refresh_interval"`
	MaxWorkers      int           `yaml:"max_workers"`
}

// Default returns the built-in configuration before any file or environment overrides.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			BaseURL:      "http://localhost:8080",
			APIPrefix:    "/api",
			APIVersion:   "v1",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
			MaxBodyBytes: 1 << 20,
		},
		Database: DatabaseConfig{
			Port:            5432,
			SSLMode:         "prefer",
			MaxConns:        15,
			MinConns:        0,
			MaxConnLifetime: time.Hour,
			AcquireTimeout:  30 * time.Second,
		},
		Auth: AuthConfig{
			Mode:        AuthModeJWKS,
			Region:      "ap-southeast-1",
			CacheTTL:    time.Hour,
			LocalIssuer: "courserate-local",
			LocalExpiry: 24 * time.Hour,
		},
		CORS: CORSConfig{AllowedOrigins: []string{"*"}},
		RateLimit: RateLimitConfig{
			PublicPerMinute:        120,
			AuthenticatedPerMinute: 30,
			Burst:                  20,
		},
		Logging: LoggingConfig{Level: "info", Format: "json"},
		Tracing: TracingConfig{
			Exporter:    "none",
			ServiceName: "courserate-api",
			SampleRate:  1.0,
		},
		Metrics: MetricsConfig{Enabled: true},
		Jobs: JobsConfig{
			Enabled:         true,
			RefreshInterval: time.Hour,
			MaxWorkers:      5,
		},
		Environment: "development",
	}
}

// Load builds the configuration from defaults, an optional YAML file, a .env file
// in the working directory, and finally the process environment.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Server.Host = getEnv("SERVER_HOST", cfg.Server.Host)
	cfg.Server.Port = getEnvInt("SERVER_PORT", cfg.Server.Port)
	cfg.Server.BaseURL = getEnv("SERVER_BASE_URL", cfg.Server.BaseURL)
	cfg.Server.APIPrefix = getEnv("API_PREFIX", cfg.Server.APIPrefix)
	cfg.Server.APIVersion = getEnv("API_VERSION", cfg.Server.APIVersion)
	cfg.Server.ReadTimeout = getEnvDuration("SERVER_READ_TIMEOUT", cfg.Server.ReadTimeout)
	cfg.Server.WriteTimeout = getEnvDuration("SERVER_WRITE_TIMEOUT", cfg.Server.WriteTimeout)
	cfg.Server.IdleTimeout = getEnvDuration("SERVER_IDLE_TIMEOUT", cfg.Server.IdleTimeout)
	cfg.Server.MaxBodyBytes = int64(getEnvInt("SERVER_MAX_BODY_BYTES", int(cfg.Server.MaxBodyBytes)))

	cfg.Database.URL = getEnv("DATABASE_URL", cfg.Database.URL)
	cfg.Database.Host = getEnv("DB_HOST", cfg.Database.Host)
	cfg.Database.Port = getEnvInt("DB_PORT", cfg.Database.Port)
	cfg.Database.Name = getEnv("DB_NAME", cfg.Database.Name)
	cfg.Database.User = getEnv("DB_USERNAME", cfg.Database.User)
	cfg.Database.Password = getEnv("DB_PASSWORD", cfg.Database.Password)
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", cfg.Database.SSLMode)
	cfg.Database.MaxConns = getEnvInt("DB_MAX_CONNS", cfg.Database.MaxConns)
	cfg.Database.MinConns = getEnvInt("DB_MIN_CONNS", cfg.Database.MinConns)
	cfg.Database.MaxConnLifetime = getEnvDuration("DB_MAX_CONN_LIFETIME", cfg.Database.MaxConnLifetime)
	cfg.Database.AcquireTimeout = getEnvDuration("DB_ACQUIRE_TIMEOUT", cfg.Database.AcquireTimeout)
	cfg.Database.MigrationsPath = getEnv("MIGRATIONS_PATH", cfg.Database.MigrationsPath)

	cfg.Auth.Mode = strings.ToLower(getEnv("AUTH_MODE", cfg.Auth.Mode))
	cfg.Auth.Region = getEnv("COGNITO_REGION", cfg.Auth.Region)
	cfg.Auth.UserPoolID = getEnv("COGNITO_USER_POOL_ID", cfg.Auth.UserPoolID)
	cfg.Auth.ClientID = getEnv("COGNITO_USER_POOL_CLIENT_ID", cfg.Auth.ClientID)
	cfg.Auth.JWKSURL = getEnv("AUTH_JWKS_URL", cfg.Auth.JWKSURL)
	cfg.Auth.CacheTTL = getEnvDuration("AUTH_JWKS_CACHE_TTL", cfg.Auth.CacheTTL)
	cfg.Auth.LocalSecret = getEnv("AUTH_LOCAL_SECRET", cfg.Auth.LocalSecret)
	cfg.Auth.LocalIssuer = getEnv("AUTH_LOCAL_ISSUER", cfg.Auth.LocalIssuer)
	cfg.Auth.LocalExpiry = getEnvDuration("AUTH_LOCAL_EXPIRY", cfg.Auth.LocalExpiry)

	cfg.CORS.AllowedOrigins = getEnvList("CORS_ALLOWED_ORIGINS", cfg.CORS.AllowedOrigins)

	cfg.RateLimit.PublicPerMinute = getEnvInt("RATE_LIMIT_PUBLIC", cfg.RateLimit.PublicPerMinute)
	cfg.RateLimit.AuthenticatedPerMinute = getEnvInt("RATE_LIMIT_AUTHENTICATED", cfg.RateLimit.AuthenticatedPerMinute)
	cfg.RateLimit.Burst = getEnvInt("RATE_LIMIT_BURST", cfg.RateLimit.Burst)
	cfg.RateLimit.TrustedProxyCIDRs = getEnvList("TRUSTED_PROXY_CIDRS", cfg.RateLimit.TrustedProxyCIDRs)

	cfg.Logging.Level = getEnv("LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = getEnv("LOG_FORMAT", cfg.Logging.Format)

	cfg.Tracing.Enabled = getEnvBool("TRACING_ENABLED", cfg.Tracing.Enabled)
	cfg.Tracing.Exporter = getEnv("TRACING_EXPORTER", cfg.Tracing.Exporter)
	cfg.Tracing.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Tracing.OTLPEndpoint)
	cfg.Tracing.ServiceName = getEnv("OTEL_SERVICE_NAME", cfg.Tracing.ServiceName)
	cfg.Tracing.SampleRate = getEnvFloat("TRACING_SAMPLE_RATE", cfg.Tracing.SampleRate)

	cfg.Metrics.Enabled = getEnvBool("METRICS_ENABLED", cfg.Metrics.Enabled)

	cfg.Jobs.Enabled = getEnvBool("JOBS_ENABLED", cfg.Jobs.Enabled)
	cfg.Jobs.RefreshInterval = getEnvDuration("JOBS_REFRESH_INTERVAL", cfg.Jobs.RefreshInterval)
	cfg.Jobs.MaxWorkers = getEnvInt("JOBS_MAX_WORKERS", cfg.Jobs.MaxWorkers)

	cfg.Environment = getEnv("ENVIRONMENT", cfg.Environment)
}

// Validate checks the settings that cannot be defaulted.
func (c Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Database.URL == "" {
		if c.Database.Host == "" || c.Database.Name == "" {
			return fmt.Errorf("DATABASE_URL or DB_HOST and DB_NAME are required")
		}
		if c.Database.Port < 1 || c.Database.Port > 65535 {
			return fmt.Errorf("DB_PORT must be between 1 and 65535, got %d", c.Database.Port)
		}
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("DB_MAX_CONNS must be positive")
	}
	switch c.Auth.Mode {
	case AuthModeJWKS:
	case AuthModeLocal:
		if len(c.Auth.LocalSecret) < 32 {
			return fmt.Errorf("AUTH_LOCAL_SECRET must be at least 32 characters when AUTH_MODE=local")
		}
		if c.IsProduction() {
			return fmt.Errorf("AUTH_MODE=local is not allowed in production")
		}
	default:
		return fmt.Errorf("AUTH_MODE must be %q or %q, got %q", AuthModeJWKS, AuthModeLocal, c.Auth.Mode)
	}
	prod := c.IsProduction()
	if prod && len(c.CORS.AllowedOrigins) == 0 {
		return fmt.Errorf("CORS_ALLOWED_ORIGINS is required in production")
	}
	if err := validation.ValidateOrigin(c.Server.BaseURL, "SERVER_BASE_URL", prod); err != nil {
		return err
	}
	if err := validation.ValidateURL(c.Auth.JWKSURL, "AUTH_JWKS_URL", prod); err != nil {
		return err
	}
	for _, origin := range c.CORS.AllowedOrigins {
		if origin == "*" {
			continue
		}
		if err := validation.ValidateOrigin(origin, "CORS_ALLOWED_ORIGINS", false); err != nil {
			return err
		}
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		return fmt.Errorf("TRACING_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.Tracing.SampleRate)
	}
	return nil
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// DSN returns the connection string, assembling one from discrete fields when no URL is set.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:   "/" + d.Name,
	}
	if d.SSLMode != "" {
		u.RawQuery = "sslmode=" + url.QueryEscape(d.SSLMode)
	}
	return u.String()
}

// JWKSEndpoint resolves the key-set URL for the configured user pool.
func (a AuthConfig) JWKSEndpoint() string {
	if a.JWKSURL != "" {
		return a.JWKSURL
	}
	if a.UserPoolID == "" || a.Region == "" {
		return ""
	}
	return fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s/.well-known/jwks.json", a.Region, a.UserPoolID)
}

// Issuer is the expected iss claim for a Cognito user pool. It is empty when the key set
// URL is set directly, since the issuer of an arbitrary key set is unknown.
func (a AuthConfig) Issuer() string {
	if a.JWKSURL != "" || a.UserPoolID == "" || a.Region == "" {
		return ""
	}
	return fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s", a.Region, a.UserPoolID)
}

// APIBasePath joins prefix and version, e.g. "/api/v1".
func (s ServerConfig) APIBasePath() string {
	prefix := "/" + strings.Trim(s.APIPrefix, "/")
	version := strings.Trim(s.APIVersion, "/")
	if version == "" {
		return strings.TrimSuffix(prefix, "/")
	}
	if prefix == "/" {
		return "/" + version
	}
	return prefix + "/" + version
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

// getEnvDuration accepts Go duration strings ("30s") or a bare number of seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	if parsed, err := time.ParseDuration(value); err == nil {
		return parsed
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
