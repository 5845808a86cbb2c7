package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/joho/godotenv"
)

// MaxClassifierAttempts bounds CLASSIFIER_MAX_ATTEMPTS.
const MaxClassifierAttempts = 10

// Config holds all configuration for the civic issue service
type Config struct {
	// Server configuration
	Port           string
	LogLevel       string
	UploadDir      string
	MaxUploadBytes int64

	// Upload requests allowed per client per minute
	UploadRateLimitPerMinute int

	// Classifier configuration
	LLMProvider              string
	GoogleAPIKey             string
	GeminiModel              string
	ClassifierMaxAttempts    int
	ClassifierBaseDelay      time.Duration
	ClassifierAttemptTimeout time.Duration

	// Store configuration
	StoreDriver   string
	MongoURL      string
	MongoDatabase string
	DBHost        string
	DBPort        string
	DBUser        string
	DBPassword    string
	DBName        string
	StoreTimeout  time.Duration

	// Session verification
	ClerkSecretKey    string
	ClerkAPIURL       string
	ClerkIssuerURL    string
	ClerkJWTPublicKey string
	AuthDevFallback   bool
	AuthTimeout       time.Duration

	// SendGrid configuration
	SendGridAPIKey    string
	SendGridFromName  string
	SendGridFromEmail string
	NotifyEmailTo     []string
	EmailTimeout      time.Duration

	// RabbitMQ configuration
	RabbitMQ RabbitMQConfig
}

// RabbitMQConfig holds the AMQP connection settings for issue events
type RabbitMQConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Exchange string
}

// Enabled reports whether an AMQP host has been configured.
func (r RabbitMQConfig) Enabled() bool {
	return r.Host != ""
}

// GetAMQPURL returns the connection URL for the configured broker.
func (r RabbitMQConfig) GetAMQPURL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s/", r.User, r.Password, r.Host, r.Port)
}

// Load loads configuration from a .env file, if present, and environment variables
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warnf("Failed to read .env file: %v", err)
	}

	cfg := &Config{
		// Server defaults
		Port:                     getEnv("PORT", "8080"),
		LogLevel:                 getEnv("LOG_LEVEL", "info"),
		UploadDir:                getEnv("UPLOAD_DIR", "uploads"),
		MaxUploadBytes:           int64(getIntEnv("MAX_UPLOAD_BYTES", 10<<20)),
		UploadRateLimitPerMinute: getIntEnv("UPLOAD_RATE_LIMIT_PER_MINUTE", 20),

		// Classifier defaults
		LLMProvider:              strings.ToLower(getEnv("LLM_PROVIDER", "gemini")),
		GoogleAPIKey:             getEnv("GOOGLE_API_KEY", ""),
		GeminiModel:              getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		ClassifierMaxAttempts:    getIntEnv("CLASSIFIER_MAX_ATTEMPTS", 3),
		ClassifierBaseDelay:      getDurationEnv("CLASSIFIER_BASE_DELAY", 2*time.Second),
		ClassifierAttemptTimeout: getDurationEnv("CLASSIFIER_ATTEMPT_TIMEOUT", 30*time.Second),

		// Store defaults
		StoreDriver:   strings.ToLower(getEnv("STORE_DRIVER", "mongo")),
		MongoURL:      getEnv("MONGODB_URL", ""),
		MongoDatabase: getEnv("MONGODB_DATABASE", "civicvoice_db"),
		DBHost:        getEnv("DB_HOST", "localhost"),
		DBPort:        getEnv("DB_PORT", "3306"),
		DBUser:        getEnv("DB_USER", "server"),
		DBPassword:    getEnv("DB_PASSWORD", "secret"),
		DBName:        getEnv("DB_NAME", "civicvoice"),
		StoreTimeout:  getDurationEnv("STORE_TIMEOUT", 10*time.Second),

		// Session verification defaults
		ClerkSecretKey:    getEnv("CLERK_SECRET_KEY", ""),
		ClerkAPIURL:       strings.TrimRight(getEnv("CLERK_API_URL", "https://api.clerk.com/v1"), "/"),
		ClerkIssuerURL:    getEnv("CLERK_ISSUER_URL", ""),
		ClerkJWTPublicKey: getEnv("CLERK_JWT_PUBLIC_KEY", ""),
		AuthDevFallback:   getBoolEnv("AUTH_DEV_FALLBACK", false),
		AuthTimeout:       getDurationEnv("AUTH_TIMEOUT", 10*time.Second),

		// SendGrid defaults
		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "CivicVoice"),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", "noreply@civicvoice.app"),
		NotifyEmailTo:     getStringSliceEnv("NOTIFY_EMAIL_TO", ""),
		EmailTimeout:      getDurationEnv("EMAIL_TIMEOUT", 15*time.Second),

		RabbitMQ: RabbitMQConfig{
			Host:     getEnv("AMQP_HOST", ""),
			Port:     getEnv("AMQP_PORT", "5672"),
			User:     getEnv("AMQP_USER", "guest"),
			Password: getEnv("AMQP_PASSWORD", "guest"),
			Exchange: getEnv("RABBITMQ_EXCHANGE", "civicvoice"),
		},
	}

	return cfg
}

// Validate returns an error for configuration the service cannot start without.
// The classifier API key is the only mandatory setting.
func (c *Config) Validate() error {
	if c.LLMProvider != "stub" && c.GoogleAPIKey == "" {
		return fmt.Errorf("GOOGLE_API_KEY environment variable is required")
	}
	if c.ClassifierMaxAttempts < 1 || c.ClassifierMaxAttempts > MaxClassifierAttempts {
		return fmt.Errorf("CLASSIFIER_MAX_ATTEMPTS must be between 1 and %d, got %d",
			MaxClassifierAttempts, c.ClassifierMaxAttempts)
	}
	switch c.StoreDriver {
	case "mongo", "mysql":
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.StoreDriver)
	}
	return nil
}

// MySQLDSN returns the go-sql-driver DSN for the MySQL store.
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&multiStatements=true",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDurationEnv gets a duration environment variable or returns a default value
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		log.Warnf("Invalid duration for %s: %q, using %v", key, value, defaultValue)
	}
	return defaultValue
}

// getIntEnv gets an integer environment variable or returns a default value
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
		log.Warnf("Invalid integer for %s: %q, using %d", key, value, defaultValue)
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
		log.Warnf("Invalid boolean for %s: %q, using %t", key, value, defaultValue)
	}
	return defaultValue
}

// getStringSliceEnv gets a comma-separated environment variable as a slice
func getStringSliceEnv(key, defaultValue string) []string {
	value := getEnv(key, defaultValue)
	if value == "" {
		return nil
	}

	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
