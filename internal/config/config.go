package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	DatabaseURL    string
	SessionSecret  string
	SessionTTL     time.Duration
	LogLevel       string
	LogFormat      string
	PrometheusPort string
	Port           string
	BaseURL        string
	Location       *time.Location
	MigrationsPath string

	// TelegramToken is optional; without it announcements are only logged
	TelegramToken string

	ReminderInterval time.Duration
	ReminderLead     time.Duration

	SMTP SMTPConfig
}

// SMTPConfig configures outgoing password reset mail. An empty Host
// disables delivery and reset links are written to the log instead.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Enabled reports whether an SMTP relay is configured
func (c SMTPConfig) Enabled() bool {
	return c.Host != ""
}

// Load loads configuration from environment variables. A .env file in the
// working directory is read first when present.
func Load() (*Config, error) {
	return load(true)
}

// LoadWithoutDatabase is Load for the in-memory store, where DATABASE_URL
// may be empty.
func LoadWithoutDatabase() (*Config, error) {
	return load(false)
}

func load(requireDatabase bool) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		LogLevel:       getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:      getEnvOrDefault("LOG_FORMAT", "text"),
		PrometheusPort: getEnvOrDefault("PROMETHEUS_PORT", "9090"),
		Port:           getEnvOrDefault("PORT", "8080"),
		BaseURL:        strings.TrimRight(getEnvOrDefault("BASE_URL", "http://localhost:8080"), "/"),
		MigrationsPath: getEnvOrDefault("MIGRATIONS_PATH", "migrations"),
		TelegramToken:  os.Getenv("TELEGRAM_TOKEN"),
		SMTP: SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     getEnvOrDefault("SMTP_FROM", "rollcall@localhost"),
		},
	}

	// Required environment variables
	if cfg.DatabaseURL = os.Getenv("DATABASE_URL"); cfg.DatabaseURL == "" && requireDatabase {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	if cfg.SessionSecret = os.Getenv("SESSION_SECRET"); cfg.SessionSecret == "" {
		return nil, fmt.Errorf("SESSION_SECRET environment variable is required")
	}

	var err error
	if cfg.Location, err = time.LoadLocation(getEnvOrDefault("APP_TIMEZONE", "Asia/Tokyo")); err != nil {
		return nil, fmt.Errorf("invalid APP_TIMEZONE: %w", err)
	}

	if cfg.SessionTTL, err = getDurationOrDefault("SESSION_TTL", 7*24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.ReminderInterval, err = getDurationOrDefault("REMINDER_INTERVAL", time.Minute); err != nil {
		return nil, err
	}
	if cfg.ReminderLead, err = getDurationOrDefault("REMINDER_LEAD", 3*time.Hour); err != nil {
		return nil, err
	}

	if cfg.SMTP.Port, err = strconv.Atoi(getEnvOrDefault("SMTP_PORT", "587")); err != nil {
		return nil, fmt.Errorf("invalid SMTP_PORT: %w", err)
	}

	return cfg, nil
}

// getEnvOrDefault returns environment variable value or default if not set
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return d, nil
}

// SecureCookies reports whether the board is served over HTTPS
func (c *Config) SecureCookies() bool {
	return strings.HasPrefix(c.BaseURL, "https://")
}
