package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backends supported by the API.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
)

// Config holds application configuration
type Config struct {
	Port      string
	Env       string
	LogLevel  string
	LogFormat string

	// Admin API
	AdminToken         string
	CORSAllowedOrigins []string
	RateLimitPerMinute int
	RateLimitBurst     int

	// Persistence
	StoreBackend  string
	DatabaseURL   string
	MongoURI      string
	MongoDatabase string
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// Booking flow
	Timezone       string
	BookingIdleTTL time.Duration
	SessionLockTTL time.Duration

	// Text generation
	GeminiAPIKey     string
	GeminiModelID    string
	BedrockModelID   string
	LLMHistoryWindow int
	LLMTimeout       time.Duration

	// AWS
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string
	EventsQueueURL      string
	ArchiveBucket       string

	// Booking notifications
	EmailProvider       string
	ClinicNotifyEmail   string
	SendGridAPIKey      string
	SendGridFromEmail   string
	SendGridFromName    string
	// SESConfigurationSet enables SES event publishing when EMAIL_PROVIDER=ses.
	SESConfigurationSet string
}

// sessionLockHeadroom is the minimum margin between LLM_TIMEOUT and
// SESSION_LOCK_TTL, covering store round trips inside one locked turn.
const sessionLockHeadroom = 15 * time.Second

// Load reads configuration from environment variables
func Load() *Config {
	cfg := &Config{
		Port:      getEnv("PORT", "3001"),
		Env:       getEnv("ENV", "development"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		AdminToken:         strings.TrimSpace(getEnv("ADMIN_TOKEN", "")),
		CORSAllowedOrigins: getEnvAsList("CORS_ORIGINS", []string{"*"}),
		RateLimitPerMinute: getEnvAsInt("RATE_LIMIT_PER_MINUTE", 60),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 10),

		StoreBackend:  strings.ToLower(strings.TrimSpace(getEnv("STORE_BACKEND", StoreMemory))),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		MongoURI:      getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGODB_DATABASE", "vetchat"),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		Timezone:       getEnv("CLINIC_TIMEZONE", "UTC"),
		BookingIdleTTL: getEnvAsDuration("BOOKING_IDLE_TTL", 24*time.Hour),
		SessionLockTTL: getEnvAsDuration("SESSION_LOCK_TTL", 45*time.Second),

		GeminiAPIKey:     strings.TrimSpace(getEnv("GEMINI_API_KEY", "")),
		GeminiModelID:    getEnv("GEMINI_MODEL_ID", "gemini-2.5-flash"),
		BedrockModelID:   getEnv("BEDROCK_MODEL_ID", ""),
		LLMHistoryWindow: getEnvAsInt("LLM_HISTORY_WINDOW", 10),
		LLMTimeout:       getEnvAsDuration("LLM_TIMEOUT", 20*time.Second),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
		EventsQueueURL:      getEnv("APPOINTMENT_EVENTS_QUEUE_URL", ""),
		ArchiveBucket:       strings.TrimSpace(getEnv("TRANSCRIPT_ARCHIVE_BUCKET", "")),

		EmailProvider:       strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", ""))),
		ClinicNotifyEmail:   getEnv("CLINIC_NOTIFY_EMAIL", ""),
		SendGridAPIKey:      getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail:   getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:    getEnv("SENDGRID_FROM_NAME", "VetChat"),
		SESConfigurationSet: getEnv("SES_CONFIGURATION_SET", ""),
	}
	// A session lease must outlive the slowest generation it guards.
	if minTTL := cfg.LLMTimeout + sessionLockHeadroom; cfg.SessionLockTTL < minTTL {
		cfg.SessionLockTTL = minTTL
	}
	return cfg
}

// IsProduction reports whether the service runs with production semantics.
func (c *Config) IsProduction() bool {
	return c != nil && strings.EqualFold(c.Env, "production")
}

// Location resolves the clinic timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	if c == nil || strings.TrimSpace(c.Timezone) == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
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

func getEnvAsList(key string, defaultValue []string) []string {
	raw := strings.TrimSpace(getEnv(key, ""))
	if raw == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
