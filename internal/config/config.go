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
	DatabaseURL   string

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// Booking policy
	BookingLookaheadDays int
	CancellationWindow   time.Duration
	AutoConfirmBookings  bool

	// Payments
	PaymentGateway         string // "meshulam" or "tranzila"
	Currency               string
	PaymentMinAgorot       int64
	PaymentMaxAgorot       int64
	AllowSimulatedPayments bool
	CardEncryptionKey      string // hex-encoded 32-byte AES key; empty disables card encryption
	InvoicingEnabled       bool
	LogPaymentMetadata     bool

	MeshulamBaseURL  string
	MeshulamAPIKey   string
	MeshulamPageCode string
	TranzilaBaseURL  string
	TranzilaTerminal string
	TranzilaPassword string

	AdminJWTSecret string

	CORSAllowedOrigins []string

	// Email
	EmailProvider     string // "sendgrid" or "ses"
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string
	SESFromEmail        string
	SESFromName         string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     getEnv("LOG_FORMAT", "json"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),

		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		BookingLookaheadDays: getEnvAsInt("BOOKING_LOOKAHEAD_DAYS", 30),
		CancellationWindow:   getEnvAsDuration("CANCELLATION_WINDOW", 24*time.Hour),
		AutoConfirmBookings:  getEnvAsBool("AUTO_CONFIRM_BOOKINGS", false),

		PaymentGateway:         strings.ToLower(strings.TrimSpace(getEnv("PAYMENT_GATEWAY", "meshulam"))),
		Currency:               getEnv("PAYMENT_CURRENCY", "ILS"),
		PaymentMinAgorot:       getEnvAsInt64("PAYMENT_MIN_AGOROT", 1000),
		PaymentMaxAgorot:       getEnvAsInt64("PAYMENT_MAX_AGOROT", 500000),
		AllowSimulatedPayments: getEnvAsBool("ALLOW_SIMULATED_PAYMENTS", false),
		CardEncryptionKey:      getEnv("CARD_ENCRYPTION_KEY", ""),
		InvoicingEnabled:       getEnvAsBool("INVOICING_ENABLED", true),
		LogPaymentMetadata:     getEnvAsBool("LOG_PAYMENT_METADATA", true),

		MeshulamBaseURL:  getEnv("MESHULAM_BASE_URL", ""),
		MeshulamAPIKey:   getEnv("MESHULAM_API_KEY", ""),
		MeshulamPageCode: getEnv("MESHULAM_PAGE_CODE", ""),
		TranzilaBaseURL:  getEnv("TRANZILA_BASE_URL", ""),
		TranzilaTerminal: getEnv("TRANZILA_TERMINAL", ""),
		TranzilaPassword: getEnv("TRANZILA_PASSWORD", ""),

		AdminJWTSecret: getEnv("ADMIN_JWT_SECRET", ""),

		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", nil),

		EmailProvider:     strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "sendgrid"))),
		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "TipulHub"),

		AWSRegion:           getEnv("AWS_REGION", "eu-central-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
		SESFromEmail:        getEnv("SES_FROM_EMAIL", ""),
		SESFromName:         getEnv("SES_FROM_NAME", "TipulHub"),
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

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
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
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
