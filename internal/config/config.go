package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int
	LogLevel string
	AppName  string
	AppEnv   string

	// HTTP client
	HTTPTimeout time.Duration

	// Cache
	CacheTTL time.Duration

	// Observability
	OTLPEndpoint string

	// Supabase
	SupabaseURL        string
	SupabaseAnonKey    string
	SupabaseServiceKey string

	// JWT / Auth
	JWTSecret string

	// Webhook
	WebhookVerifyToken string

	// Membership tier thresholds (points required to enter each tier).
	TierSilverMin   int
	TierGoldMin     int
	TierPlatinumMin int

	// Engagement point values
	PointsArticleRead   int
	PointsGoalCompleted int
	PointsReferral      int
	PointsDayActive     int
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		AppName:  getEnv("APP_NAME", "outbehaving-api"),
		AppEnv:   getEnv("APP_ENV", "development"),

		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 10*time.Second),

		CacheTTL: getEnvDuration("CACHE_TTL", 5*time.Minute),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),

		SupabaseURL:        getEnv("SUPABASE_URL", ""),
		SupabaseAnonKey:    getEnv("SUPABASE_ANON_KEY", ""),
		SupabaseServiceKey: getEnv("SUPABASE_SERVICE_ROLE_KEY", ""),

		JWTSecret: getEnv("SUPABASE_JWT_SECRET", ""),

		WebhookVerifyToken: getEnv("WEBHOOK_VERIFY_TOKEN", "proffyn-secret"),

		TierSilverMin:   getEnvInt("TIER_SILVER_MIN", 1000),
		TierGoldMin:     getEnvInt("TIER_GOLD_MIN", 5000),
		TierPlatinumMin: getEnvInt("TIER_PLATINUM_MIN", 20000),

		PointsArticleRead:   getEnvInt("POINTS_ARTICLE_READ", 10),
		PointsGoalCompleted: getEnvInt("POINTS_GOAL_COMPLETED", 50),
		PointsReferral:      getEnvInt("POINTS_REFERRAL", 100),
		PointsDayActive:     getEnvInt("POINTS_DAY_ACTIVE", 5),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
