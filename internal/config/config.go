package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// JWT configuration
	JWT JWTConfig

	// CORS configuration
	CORS CORSConfig

	// Scheduling and payroll week configuration
	Scheduling SchedulingConfig

	// Manager notification configuration
	Notify NotifyConfig

	// Security configuration
	Security SecurityConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port        string
	Environment string // development, staging, production
	LogLevel    string // debug, info, warn, error
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	URL                string
	MaxConnections     int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
	MaxTxRetries       int // retries on serialization failure or deadlock
}

// JWTConfig holds JWT-related configuration
type JWTConfig struct {
	Secret            string
	Issuer            string
	AccessTokenExpiry time.Duration
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// SchedulingConfig holds crew scheduling and week lock settings
type SchedulingConfig struct {
	DefaultStart    string // HH:MM start of the standard workday
	DefaultEnd      string // HH:MM end of the standard workday
	WeekLockCron    string // six-field cron spec (with seconds)
	WeekLockEnabled bool
	WeekUnlockGrace time.Duration
	Timezone        string
}

// NotifyConfig holds outbound notification configuration
type NotifyConfig struct {
	Mode       string // "dev" logs only, "webhook" posts to WebhookURL
	WebhookURL string
	Token      string
	Timeout    time.Duration
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	EnableRequestLog bool
	EnableAuditLog   bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			URL:                getEnv("DATABASE_URL", ""),
			MaxConnections:     getEnvAsInt("DATABASE_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("DATABASE_MAX_IDLE_CONNECTIONS", 5),
			ConnMaxLifetime:    time.Duration(getEnvAsInt("DATABASE_CONN_MAX_LIFETIME", 300)) * time.Second,
			MaxTxRetries:       getEnvAsInt("DATABASE_MAX_TX_RETRIES", 3),
		},
		JWT: JWTConfig{
			Secret:            getEnv("JWT_SECRET", ""),
			Issuer:            getEnv("JWT_ISSUER", "fieldcrew"),
			AccessTokenExpiry: time.Duration(getEnvAsInt("JWT_ACCESS_TOKEN_EXPIRY", 3600)) * time.Second,
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}),
			AllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Authorization"}),
		},
		Scheduling: SchedulingConfig{
			DefaultStart:    getEnv("SCHEDULE_DEFAULT_START", "07:00"),
			DefaultEnd:      getEnv("SCHEDULE_DEFAULT_END", "15:30"),
			WeekLockCron:    getEnv("WEEK_LOCK_CRON", "0 5 0 * * 1"), // Monday 00:05
			WeekLockEnabled: getEnvAsBool("WEEK_LOCK_ENABLED", true),
			WeekUnlockGrace: getEnvAsDuration("WEEK_UNLOCK_GRACE", 48*time.Hour),
			Timezone:        getEnv("APP_TIMEZONE", "UTC"),
		},
		Notify: NotifyConfig{
			Mode:       getEnv("NOTIFY_MODE", "dev"),
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
			Token:      getEnv("NOTIFY_WEBHOOK_TOKEN", ""),
			Timeout:    time.Duration(getEnvAsInt("NOTIFY_TIMEOUT_SECONDS", 10)) * time.Second,
		},
		Security: SecurityConfig{
			EnableRequestLog: getEnvAsBool("ENABLE_REQUEST_LOGGING", true),
			EnableAuditLog:   getEnvAsBool("ENABLE_AUDIT_LOGGING", true),
		},
	}

	// Validate required configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if c.Database.MaxTxRetries < 1 {
		return fmt.Errorf("DATABASE_MAX_TX_RETRIES must be at least 1")
	}

	if err := validateClock(c.Scheduling.DefaultStart); err != nil {
		return fmt.Errorf("SCHEDULE_DEFAULT_START: %w", err)
	}
	if err := validateClock(c.Scheduling.DefaultEnd); err != nil {
		return fmt.Errorf("SCHEDULE_DEFAULT_END: %w", err)
	}
	if c.Scheduling.DefaultEnd < c.Scheduling.DefaultStart {
		return fmt.Errorf("SCHEDULE_DEFAULT_END must not be before SCHEDULE_DEFAULT_START")
	}

	if c.Scheduling.WeekLockEnabled {
		parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
		if _, err := parser.Parse(c.Scheduling.WeekLockCron); err != nil {
			return fmt.Errorf("invalid WEEK_LOCK_CRON %q: %w", c.Scheduling.WeekLockCron, err)
		}
	}

	if _, err := time.LoadLocation(c.Scheduling.Timezone); err != nil {
		return fmt.Errorf("invalid APP_TIMEZONE %q: %w", c.Scheduling.Timezone, err)
	}

	// Webhook delivery needs a target
	if c.Notify.Mode == "webhook" && c.Notify.WebhookURL == "" {
		return fmt.Errorf("NOTIFY_WEBHOOK_URL is required when NOTIFY_MODE=webhook")
	} else if c.Notify.Mode != "dev" && c.Notify.Mode != "webhook" {
		return fmt.Errorf("invalid NOTIFY_MODE: %s (must be 'dev' or 'webhook')", c.Notify.Mode)
	}

	return nil
}

// Location returns the configured business timezone
func (c *SchedulingConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func validateClock(value string) error {
	if _, err := time.Parse("15:04", value); err != nil {
		return fmt.Errorf("invalid time %q, expected HH:MM", value)
	}
	return nil
}

// Helper functions to get environment variables

func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid integer value for %s, using default: %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Invalid boolean value for %s, using default: %t", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Invalid duration value for %s, using default: %s", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var result []string
	for _, v := range strings.Split(valueStr, ",") {
		trimmed := strings.TrimSpace(v)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
