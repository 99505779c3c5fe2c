package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string
	RedisURL    string

	JWTSecret          string
	AccessTokenTTL     time.Duration
	PasswordMinLen     int
	CORSAllowedOrigins []string

	// Carrier integration. The tracking endpoint may be provisioned after
	// go-live, so the base URL is overridable per deployment; an empty value
	// means every fetch resolves through the synthetic fallback.
	CarrierAppKey          string
	CarrierAppSecret       string
	CarrierBaseURL         string
	CarrierTrackPath       string
	CarrierTimeout         time.Duration
	CarrierDisableFallback bool

	PaymentWebhookSecret string

	FreeShippingThreshold int64
	FlatShippingFee       int64
	Currency              string

	CatalogCacheTTL time.Duration

	RateLimitPerMinute int

	TrackingRefreshInterval time.Duration
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
		AccessTokenTTL:     parseDuration(k.String("ACCESS_TOKEN_TTL"), "15m"),
		PasswordMinLen:     parseInt(k.String("PASSWORD_MIN_LENGTH"), 8),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		CarrierAppKey:          k.String("CARRIER_APP_KEY"),
		CarrierAppSecret:       k.String("CARRIER_APP_SECRET"),
		CarrierBaseURL:         k.String("CARRIER_BASE_URL"),
		CarrierTrackPath:       valueOrDefault(k.String("CARRIER_TRACK_PATH"), "/api/track"),
		CarrierTimeout:         parseDuration(k.String("CARRIER_TIMEOUT"), "10s"),
		CarrierDisableFallback: parseBool(k.String("CARRIER_DISABLE_FALLBACK")),

		PaymentWebhookSecret: k.String("PAYMENT_WEBHOOK_SECRET"),

		FreeShippingThreshold: parseInt64(k.String("FREE_SHIPPING_THRESHOLD"), 500000),
		FlatShippingFee:       parseInt64(k.String("FLAT_SHIPPING_FEE"), 15000),
		Currency:              valueOrDefault(k.String("CURRENCY"), "IDR"),

		CatalogCacheTTL: parseDuration(k.String("CATALOG_CACHE_TTL"), "5m"),

		RateLimitPerMinute: parseInt(k.String("RATE_LIMIT_PER_MINUTE"), 120),

		TrackingRefreshInterval: parseDuration(k.String("TRACKING_REFRESH_INTERVAL"), "5m"),
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

// MustLoad behaves like Load but panics on error. Useful for command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
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

func parseInt(value string, fallback int) int {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	var parsed int
	if _, err := fmt.Sscanf(trimmed, "%d", &parsed); err != nil {
		return fallback
	}
	return parsed
}

func parseInt64(value string, fallback int64) int64 {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	var parsed int64
	if _, err := fmt.Sscanf(trimmed, "%d", &parsed); err != nil {
		return fallback
	}
	return parsed
}
