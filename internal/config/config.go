package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

// Storage drivers
const (
	StorageDriverPostgres = "postgres"
	StorageDriverMongo    = "mongo"
)

// minJWTSecretLength is the shortest accepted HMAC signing secret
const minJWTSecretLength = 32

// Config holds application configuration
type Config struct {
	StorageDriver string
	DatabaseURL   string
	MongoURI      string
	MongoDatabase string

	ServerPort  string
	BaseURL     string
	FrontendURL string
	EnableHSTS  bool

	RedisURL         string
	RabbitMQURL      string
	RabbitMQPrefetch int

	JWTSecret     string
	JWTIssuer     string
	JWTTTL        time.Duration
	AuthRateLimit string

	ReminderInterval         time.Duration
	ReminderWindow           time.Duration
	ReminderTimezone         string
	ReminderLocation         *time.Location
	ReminderSchedulerEnabled bool

	OneSignalAppID  string
	OneSignalAPIKey string
	OneSignalAPIURL string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	LogFormat       string
	WorkerDebugMode bool
	ServerDebugMode bool
	OTELEnabled     bool
	OTELEndpoint    string
}

// Load reads configuration from environment variables. Values from a .env file
// in the working directory are applied first without overriding the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := &Config{
		StorageDriver:            getEnv("STORAGE_DRIVER", StorageDriverPostgres),
		DatabaseURL:              getEnv("DATABASE_URL", ""),
		MongoURI:                 getEnv("MONGODB_URI", ""),
		MongoDatabase:            getEnv("MONGODB_DATABASE", "smart_tasks"),
		ServerPort:               getEnv("SERVER_PORT", "8080"),
		BaseURL:                  getEnv("BASE_URL", "http://localhost:8080"),
		FrontendURL:              getEnv("FRONTEND_URL", "http://localhost:3000"),
		EnableHSTS:               getEnvBool("ENABLE_HSTS", false),
		RedisURL:                 getEnv("REDIS_URL", "redis://localhost:6379/0"),
		RabbitMQURL:              getEnv("RABBITMQ_URL", ""),
		RabbitMQPrefetch:         getEnvInt("RABBITMQ_PREFETCH", 1),
		JWTSecret:                getEnv("JWT_SECRET", ""),
		JWTIssuer:                getEnv("JWT_ISSUER", "smart-tasks"),
		JWTTTL:                   getEnvDuration("JWT_TTL", 24*time.Hour),
		AuthRateLimit:            getEnv("AUTH_RATE_LIMIT", "5-S"),
		ReminderInterval:         getEnvDuration("REMINDER_INTERVAL", 5*time.Minute),
		ReminderWindow:           getEnvDuration("REMINDER_WINDOW", 5*time.Minute),
		ReminderTimezone:         getEnv("REMINDER_TIMEZONE", "UTC"),
		ReminderSchedulerEnabled: getEnvBool("REMINDER_SCHEDULER_ENABLED", true),
		OneSignalAppID:           getEnv("ONESIGNAL_APP_ID", ""),
		OneSignalAPIKey:          getEnv("ONESIGNAL_API_KEY", ""),
		OneSignalAPIURL:          getEnv("ONESIGNAL_API_URL", "https://onesignal.com/api/v1"),
		SMTPHost:                 getEnv("SMTP_HOST", ""),
		SMTPPort:                 getEnvInt("SMTP_PORT", 587),
		SMTPUsername:             getEnv("SMTP_USERNAME", ""),
		SMTPPassword:             getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:                 getEnv("SMTP_FROM", "no-reply@localhost"),
		LogFormat:                getEnv("LOG_FORMAT", "json"),
		WorkerDebugMode:          getEnvBool("WORKER_DEBUG_MODE", false),
		ServerDebugMode:          getEnvBool("SERVER_DEBUG_MODE", false),
		OTELEnabled:              getEnvBool("OTEL_ENABLED", false),
		OTELEndpoint:             getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}

	switch cfg.StorageDriver {
	case StorageDriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
	case StorageDriverMongo:
		if cfg.MongoURI == "" {
			return nil, fmt.Errorf("MONGODB_URI is required when STORAGE_DRIVER=mongo")
		}
	default:
		return nil, fmt.Errorf("unsupported STORAGE_DRIVER %q", cfg.StorageDriver)
	}

	if cfg.RabbitMQURL == "" {
		return nil, fmt.Errorf("RABBITMQ_URL is required for job queueing")
	}

	if len(cfg.JWTSecret) < minJWTSecretLength {
		return nil, fmt.Errorf("JWT_SECRET must be at least %d characters", minJWTSecretLength)
	}

	loc, err := time.LoadLocation(cfg.ReminderTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid REMINDER_TIMEZONE: %w", err)
	}
	cfg.ReminderLocation = loc

	return cfg, nil
}

// PushEnabled reports whether OneSignal delivery is configured
func (c *Config) PushEnabled() bool {
	return c.OneSignalAppID != "" && c.OneSignalAPIKey != ""
}

// DevelopmentLogging reports whether console log output was requested
func (c *Config) DevelopmentLogging() bool {
	return c.LogFormat == "console"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}
