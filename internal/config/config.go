package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	PublicBaseURL string
	LogLevel      string
	LogFormat     string

	// Admin surface
	AdminToken string

	// Storage
	DatabaseURL string

	// Sessions
	SessionBackend    string // memory, redis or dynamodb
	SessionTableName  string
	RedisAddr         string
	RedisPassword     string
	RedisTLS          bool

	// Intent classifier / LLM
	GeminiAPIKey      string
	GeminiModel       string
	BedrockModelID    string
	ClassifierTimeout time.Duration

	// AWS (Bedrock, SES, DynamoDB, S3)
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	// Notifications
	EmailProvider     string // sendgrid, ses or stub
	SendGridAPIKey    string
	EmailFromAddress  string
	EmailFromName     string
	DispatchTimeout   time.Duration

	// Booking archive
	ArchiveBucket string
	ArchivePrefix string

	// Magic-link auth
	MagicLinkSecret string
	MagicLinkTTL    time.Duration
	DashboardURL    string

	// Widget / CORS
	AllowedOrigins  []string
	DefaultBusiness string

	// Per-IP limit on the chat endpoint, requests/sec. Zero disables.
	ChatRateLimit float64
	ChatRateBurst int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", "http://localhost:8080"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     getEnv("LOG_FORMAT", "json"),

		AdminToken: getEnv("ADMIN_TOKEN", ""),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		SessionBackend:   strings.ToLower(strings.TrimSpace(getEnv("SESSION_BACKEND", "memory"))),
		SessionTableName: getEnv("SESSION_TABLE_NAME", "chat_sessions"),
		RedisAddr:        getEnv("REDIS_ADDR", ""),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		RedisTLS:         getEnvAsBool("REDIS_TLS", false),

		GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
		GeminiModel:       getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		BedrockModelID:    getEnv("BEDROCK_MODEL_ID", ""),
		ClassifierTimeout: getEnvAsDuration("CLASSIFIER_TIMEOUT", 10*time.Second),

		AWSRegion:           getEnv("AWS_REGION", "eu-west-3"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		EmailProvider:    strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "auto"))),
		SendGridAPIKey:   getEnv("SENDGRID_API_KEY", ""),
		EmailFromAddress: getEnv("EMAIL_FROM_ADDRESS", "notifications@vitrine.app"),
		EmailFromName:    getEnv("EMAIL_FROM_NAME", "Vitrine"),
		DispatchTimeout:  getEnvAsDuration("DISPATCH_TIMEOUT", 15*time.Second),

		ArchiveBucket: getEnv("ARCHIVE_BUCKET", ""),
		ArchivePrefix: getEnv("ARCHIVE_PREFIX", "bookings"),

		MagicLinkSecret: getEnv("MAGIC_LINK_SECRET", ""),
		MagicLinkTTL:    getEnvAsDuration("MAGIC_LINK_TTL", 15*time.Minute),
		DashboardURL:    getEnv("DASHBOARD_URL", ""),

		AllowedOrigins:  getEnvAsList("ALLOWED_ORIGINS", nil),
		DefaultBusiness: getEnv("DEFAULT_BUSINESS_SLUG", "salon-demo"),

		ChatRateLimit: getEnvAsFloat("CHAT_RATE_LIMIT", 0),
		ChatRateBurst: getEnvAsInt("CHAT_RATE_BURST", 10),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated environment variable, dropping empty entries.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
