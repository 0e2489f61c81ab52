package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/curbshare/parking-backend/internal/availability"
)

const PROD_STRING = "prod"

// Config holds all application configuration loaded from environment.
type Config struct {
	IsProduction      bool
	ProdOrigins       string
	HTTPAddr          string
	DBDSN             string
	JWTSecret         string
	JWTAccessTokenTTL time.Duration
	BcryptCost        int

	// Optional Redis for a rate limiter shared between instances.
	RedisURL        string
	BookingRateMax  int
	AuthRateMax     int
	RateLimitWindow time.Duration

	SearchResultLimit    int
	SearchCandidateLimit int
	OpenGate             availability.GateMode

	StripeSecretKey        string
	StripeWebhookSecret    string
	StripeWebhookTolerance time.Duration
	WebBaseURL             string
	Currency               string

	// Platform fee in basis points of the booking amount.
	PlatformFeeBps int

	OTelEnabled  bool
	OTelEndpoint string
}

// Load loads configuration from .env (optional) and environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file loaded", "err", err)
	}

	cfg := &Config{}
	var err error

	// Production origin (default: empty)
	cfg.ProdOrigins = getEnv("PROD_ORIGINS", "")

	// Application environment (default: dev)
	cfg.IsProduction = getEnv("APP_ENV", "dev") == PROD_STRING

	// HTTP listen address (default: :8080)
	cfg.HTTPAddr = getEnv("HTTP_ADDR", ":8080")

	// Database DSN is required
	cfg.DBDSN = os.Getenv("DB_DSN")
	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required")
	}

	// JWT secret is required for signing tokens
	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	if cfg.JWTAccessTokenTTL, err = getEnvAsDuration("JWT_ACCESS_TOKEN_TTL", 15*time.Minute); err != nil {
		return nil, err
	}

	// Bcrypt cost for password hashing (default: 12)
	if cfg.BcryptCost, err = getEnvAsInt("BCRYPT_COST", 12); err != nil {
		return nil, err
	}

	cfg.RedisURL = getEnv("REDIS_URL", "")
	if cfg.BookingRateMax, err = getEnvAsInt("RATE_LIMIT_BOOKING", 10); err != nil {
		return nil, err
	}
	if cfg.AuthRateMax, err = getEnvAsInt("RATE_LIMIT_AUTH", 20); err != nil {
		return nil, err
	}
	if cfg.RateLimitWindow, err = getEnvAsDuration("RATE_LIMIT_WINDOW", 5*time.Minute); err != nil {
		return nil, err
	}

	if cfg.SearchResultLimit, err = getEnvAsInt("SEARCH_RESULT_LIMIT", availability.DefaultSearchLimit); err != nil {
		return nil, err
	}
	if cfg.SearchCandidateLimit, err = getEnvAsInt("SEARCH_CANDIDATE_LIMIT", 1000); err != nil {
		return nil, err
	}
	if cfg.SearchCandidateLimit < cfg.SearchResultLimit {
		return nil, fmt.Errorf("SEARCH_CANDIDATE_LIMIT (%d) must not be below SEARCH_RESULT_LIMIT (%d)",
			cfg.SearchCandidateLimit, cfg.SearchResultLimit)
	}

	if cfg.OpenGate, err = availability.ParseGateMode(getEnv("OPEN_GATE_MODE", "contain")); err != nil {
		return nil, fmt.Errorf("invalid OPEN_GATE_MODE: %w", err)
	}

	cfg.StripeSecretKey = getEnv("STRIPE_SECRET_KEY", "")
	cfg.StripeWebhookSecret = getEnv("STRIPE_WEBHOOK_SECRET", "")
	if cfg.StripeWebhookTolerance, err = getEnvAsDuration("STRIPE_WEBHOOK_TOLERANCE", 5*time.Minute); err != nil {
		return nil, err
	}
	cfg.WebBaseURL = strings.TrimRight(getEnv("WEB_BASE_URL", "http://localhost:3000"), "/")
	cfg.Currency = strings.ToLower(getEnv("CURRENCY", "eur"))

	if cfg.PlatformFeeBps, err = getEnvAsInt("PLATFORM_FEE_BPS", 1000); err != nil {
		return nil, err
	}
	if cfg.PlatformFeeBps < 0 || cfg.PlatformFeeBps > 10000 {
		return nil, fmt.Errorf("PLATFORM_FEE_BPS must be between 0 and 10000, got %d", cfg.PlatformFeeBps)
	}

	otelEnabled := strings.ToLower(getEnv("OTEL_ENABLED", "false"))
	cfg.OTelEnabled = otelEnabled == "true" || otelEnabled == "1"
	cfg.OTelEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")

	return cfg, nil
}

// getEnv returns the value of the environment variable if set,
// otherwise returns the provided default value.
func getEnv(key, defaultValue string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer.
// It returns the default value if the variable is not set.
// It returns an error if the variable is set but is not a valid integer.
func getEnvAsInt(key string, defaultValue int) (int, error) {
	valStr := getEnv(key, "")
	if valStr == "" {
		return defaultValue, nil
	}

	val, err := strconv.Atoi(valStr)
	if err != nil {
		return 0, fmt.Errorf("env %s value %q is not a valid integer: %w", key, valStr, err)
	}

	return val, nil
}

// getEnvAsDuration parses values such as "15m" or "1h".
func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	valStr := getEnv(key, "")
	if valStr == "" {
		return defaultValue, nil
	}

	val, err := time.ParseDuration(valStr)
	if err != nil {
		return 0, fmt.Errorf("env %s value %q is not a valid duration: %w", key, valStr, err)
	}
	return val, nil
}
