package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// API Configuration (the reservation backend)
	API APIConfig

	// UI Configuration (guard delays, notification lifetime)
	UI UIConfig

	// Logging Configuration
	Logging LoggingConfig

	// Development backend configuration
	DevServer DevServerConfig
}

// APIConfig holds backend connection settings
type APIConfig struct {
	URL         string // Overrides the server selected from reservas.yaml when set
	Timeout     time.Duration
	InsecureTLS bool
}

// UIConfig holds presentation timings
type UIConfig struct {
	AdminRedirectDelay time.Duration
	NotifyTTL          time.Duration
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level   string
	Format  string // json, console
	Enabled bool
}

// DevServerConfig holds settings for the development backend
type DevServerConfig struct {
	Addr          string
	DatabaseURL   string
	JWTSecret     string
	TokenLifetime time.Duration
	AdminEmail    string
	AdminPassword string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env files (fails silently if files don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	timeout, err := durationEnv("RESERVAS_TIMEOUT", 15*time.Second)
	if err != nil {
		return nil, err
	}

	adminDelay, err := durationEnv("RESERVAS_ADMIN_REDIRECT_DELAY", 2*time.Second)
	if err != nil {
		return nil, err
	}

	notifyTTL, err := durationEnv("RESERVAS_NOTIFY_TTL", 5*time.Second)
	if err != nil {
		return nil, err
	}

	tokenLifetime, err := durationEnv("DEVSERVER_TOKEN_LIFETIME", 24*time.Hour)
	if err != nil {
		return nil, err
	}

	insecureTLS, err := boolEnv("RESERVAS_INSECURE_TLS", false)
	if err != nil {
		return nil, err
	}

	logEnabled, err := boolEnv("RESERVAS_LOG_ENABLED", true)
	if err != nil {
		return nil, err
	}

	// Logging configuration - the CLI is quiet unless asked otherwise
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "warn"
	}

	logFormat := os.Getenv("LOG_FORMAT")
	if logFormat == "" {
		logFormat = "console"
	}

	return &Config{
		API: APIConfig{
			URL:         os.Getenv("RESERVAS_API_URL"),
			Timeout:     timeout,
			InsecureTLS: insecureTLS,
		},
		UI: UIConfig{
			AdminRedirectDelay: adminDelay,
			NotifyTTL:          notifyTTL,
		},
		Logging: LoggingConfig{
			Level:   logLevel,
			Format:  logFormat,
			Enabled: logEnabled,
		},
		DevServer: DevServerConfig{
			Addr:          stringEnv("DEVSERVER_ADDR", ":8000"),
			DatabaseURL:   stringEnv("DATABASE_URL", "reservas-dev.sqlite"),
			JWTSecret:     os.Getenv("DEVSERVER_JWT_SECRET"),
			TokenLifetime: tokenLifetime,
			AdminEmail:    stringEnv("DEVSERVER_ADMIN_EMAIL", "admin@reservas.local"),
			AdminPassword: os.Getenv("DEVSERVER_ADMIN_PASSWORD"),
		},
	}, nil
}

func stringEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s %q: must not be negative", key, raw)
	}
	return d, nil
}

func boolEnv(key string, fallback bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}
