package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"

	"github.com/noah-isme/tokobaju-api/internal/money"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	JWTSecret          string
	CORSAllowedOrigins []string
	AccessTokenTTL     time.Duration
	MigrateOnStart     bool

	AdminSeedEmail    string
	AdminSeedPassword string

	ShippingCost money.Amount
	TaxRate      money.Rate

	CatalogCacheTTL     time.Duration
	CatalogDefaultLimit int
	CatalogMaxLimit     int
	AnalyticsCacheTTL   time.Duration

	IdempotencyTTL  time.Duration
	CheckoutLockTTL time.Duration
	BodyLimitBytes  int64

	RateLimitBackend string
	RateLimitWindow  time.Duration
	RateLimitMax     int

	QueueConcurrency int

	LogFormat        string
	LogLevel         string
	MetricsEnabled   bool
	MetricsNamespace string
	MetricsBuckets   []float64
	TracingEnabled   bool
	TracingEndpoint  string
	TracingSampling  float64
	ProbeTimeout     time.Duration
	ShutdownTimeout  time.Duration
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:        k.String("DATABASE_URL"),
		RedisURL:           k.String("REDIS_URL"),
		JWTSecret:          k.String("JWT_SECRET"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		AccessTokenTTL:     parseDuration(k.String("ACCESS_TOKEN_TTL"), "24h"),
		MigrateOnStart:     parseBool(k.String("MIGRATE_ON_START")),

		AdminSeedEmail:    valueOrDefault(k.String("ADMIN_SEED_EMAIL"), "admin@tokobaju.com"),
		AdminSeedPassword: valueOrDefault(k.String("ADMIN_SEED_PASSWORD"), "admin123"),

		CatalogCacheTTL:     parseDuration(k.String("CATALOG_CACHE_TTL"), "60s"),
		CatalogDefaultLimit: parseInt(k.String("CATALOG_DEFAULT_LIMIT"), 20),
		CatalogMaxLimit:     parseInt(k.String("CATALOG_MAX_LIMIT"), 100),
		AnalyticsCacheTTL:   parseDuration(k.String("ANALYTICS_CACHE_TTL"), "5m"),

		IdempotencyTTL:  parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),
		CheckoutLockTTL: parseDuration(k.String("CHECKOUT_LOCK_TTL"), "10s"),
		BodyLimitBytes:  int64(parseInt(k.String("BODY_LIMIT_BYTES"), 1<<20)),

		RateLimitBackend: strings.ToLower(valueOrDefault(k.String("RATE_LIMIT_BACKEND"), "sliding")),
		RateLimitWindow:  parseDuration(k.String("RATE_LIMIT_WINDOW"), "1m"),
		RateLimitMax:     parseInt(k.String("RATE_LIMIT_MAX"), 30),

		QueueConcurrency: parseInt(k.String("QUEUE_CONCURRENCY"), 5),

		LogFormat:        valueOrDefault(k.String("OBS_LOG_FORMAT"), "json"),
		LogLevel:         valueOrDefault(k.String("OBS_LOG_LEVEL"), "info"),
		MetricsEnabled:   parseBoolDefault(k.String("OBS_ENABLE_PROMETHEUS"), true),
		MetricsNamespace: valueOrDefault(k.String("OBS_METRICS_NAMESPACE"), "tokobaju"),
		MetricsBuckets:   parseFloats(k.String("OBS_METRICS_BUCKETS_MS")),
		TracingEnabled:   parseBoolDefault(k.String("OBS_ENABLE_TRACING"), false),
		TracingEndpoint:  k.String("OBS_OTLP_ENDPOINT"),
		TracingSampling:  parseFloat(k.String("OBS_TRACING_SAMPLING_RATIO"), 1),
		ProbeTimeout:     parseDuration(k.String("HEALTH_PROBE_TIMEOUT"), "500ms"),
		ShutdownTimeout:  parseDuration(k.String("SHUTDOWN_TIMEOUT"), "15s"),
	}

	shipping, err := strconv.ParseInt(valueOrDefault(k.String("SHIPPING_COST"), "25000"), 10, 64)
	if err != nil || shipping < 0 {
		return nil, errors.New("SHIPPING_COST must be a non-negative integer")
	}
	cfg.ShippingCost = money.Amount(shipping)

	cfg.TaxRate, err = money.ParseRate(valueOrDefault(k.String("TAX_RATE"), "0.11"))
	if err != nil || cfg.TaxRate.IsNegative() {
		return nil, errors.New("TAX_RATE must be a non-negative decimal")
	}

	switch cfg.RateLimitBackend {
	case "sliding", "ulule":
	default:
		return nil, fmt.Errorf("RATE_LIMIT_BACKEND must be sliding or ulule, got %q", cfg.RateLimitBackend)
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func parseBoolDefault(value string, fallback bool) bool {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return parseBool(value)
}

func parseFloat(value string, fallback float64) float64 {
	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return parsed
}

// parseFloats reads comma-separated histogram buckets, skipping malformed entries.
func parseFloats(value string) []float64 {
	var out []float64
	for _, part := range splitAndTrim(value) {
		if f, err := strconv.ParseFloat(part, 64); err == nil && f > 0 {
			out = append(out, f)
		}
	}
	return out
}

func parseInt(value string, fallback int) int {
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return parsed
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
