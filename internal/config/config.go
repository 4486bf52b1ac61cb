package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port            string
	Env             string
	LogLevel        string
	DatabaseURL     string
	AutoMigrate     bool
	DefaultTimezone string

	// Webhook ingress
	RetellWebhookSecret     string
	WebhookRateLimitRPS     float64
	WebhookRateLimitBurst   int
	WebhookDurationMinutes  int
	ManualDurationMinutes   int
	BookingMinLeadTime      time.Duration
	BookingMaxHorizon       time.Duration
	BookingSerializeRetries int

	// Admin API
	AdminJWTSecret     string
	CognitoRegion      string
	CognitoUserPoolID  string
	CognitoClientID    string
	CORSAllowedOrigins []string

	// Redis changefeed
	RedisAddr         string
	RedisPassword     string
	RedisTLS          bool
	ChangefeedChannel string
	DoctorCacheTTL    time.Duration

	// AWS
	AWSRegion            string
	AWSAccessKeyID       string
	AWSSecretAccessKey   string
	AWSEndpointOverride  string
	EventsQueueURL       string
	PayloadArchiveBucket string

	// Staff notifications
	EmailProvider      string
	NotifyEmailTo      string
	SendGridAPIKey     string
	SendGridFromEmail  string
	SendGridFromName   string
	SESFromEmail       string
	SESFromName        string
	OutboxPollInterval time.Duration
	OutboxBatchSize    int
}

// Load reads configuration from environment variables. A .env file in the
// working directory is loaded first when present; real environment values win.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:            getEnv("PORT", "8080"),
		Env:             getEnv("ENV", "development"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		AutoMigrate:     getEnvAsBool("AUTO_MIGRATE", false),
		DefaultTimezone: getEnv("DEFAULT_TIMEZONE", "Europe/Istanbul"),

		RetellWebhookSecret:     getEnv("RETELL_WEBHOOK_SECRET", ""),
		WebhookRateLimitRPS:     getEnvAsFloat("WEBHOOK_RATE_LIMIT_RPS", 10),
		WebhookRateLimitBurst:   getEnvAsInt("WEBHOOK_RATE_LIMIT_BURST", 20),
		WebhookDurationMinutes:  getEnvAsInt("WEBHOOK_APPOINTMENT_DURATION_MINS", 15),
		ManualDurationMinutes:   getEnvAsInt("MANUAL_APPOINTMENT_DURATION_MINS", 30),
		BookingMinLeadTime:      getEnvAsDuration("BOOKING_MIN_LEAD_TIME", time.Hour),
		BookingMaxHorizon:       getEnvAsDuration("BOOKING_MAX_HORIZON", 90*24*time.Hour),
		BookingSerializeRetries: getEnvAsInt("BOOKING_SERIALIZE_RETRIES", 3),

		AdminJWTSecret:     getEnv("ADMIN_JWT_SECRET", ""),
		CognitoRegion:      getEnv("COGNITO_REGION", ""),
		CognitoUserPoolID:  getEnv("COGNITO_USER_POOL_ID", ""),
		CognitoClientID:    getEnv("COGNITO_CLIENT_ID", ""),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),

		RedisAddr:         getEnv("REDIS_ADDR", ""),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		RedisTLS:          getEnvAsBool("REDIS_TLS", false),
		ChangefeedChannel: getEnv("CHANGEFEED_CHANNEL", "clinic:changes"),
		DoctorCacheTTL:    getEnvAsDuration("DOCTOR_CACHE_TTL", 10*time.Minute),

		AWSRegion:            getEnv("AWS_REGION", "eu-central-1"),
		AWSAccessKeyID:       getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride:  getEnv("AWS_ENDPOINT_OVERRIDE", ""),
		EventsQueueURL:       getEnv("EVENTS_QUEUE_URL", ""),
		PayloadArchiveBucket: getEnv("PAYLOAD_ARCHIVE_BUCKET", ""),

		EmailProvider:      strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "auto"))),
		NotifyEmailTo:      getEnv("NOTIFY_EMAIL_TO", ""),
		SendGridAPIKey:     getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail:  getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:   getEnv("SENDGRID_FROM_NAME", "Clinic Scheduler"),
		SESFromEmail:       getEnv("SES_FROM_EMAIL", ""),
		SESFromName:        getEnv("SES_FROM_NAME", "Clinic Scheduler"),
		OutboxPollInterval: getEnvAsDuration("OUTBOX_POLL_INTERVAL", 2*time.Second),
		OutboxBatchSize:    getEnvAsInt("OUTBOX_BATCH_SIZE", 25),
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
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

func getEnvAsList(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
