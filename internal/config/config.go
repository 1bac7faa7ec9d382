package config

import (
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"medstat/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	StatsAPI StatsAPIConfig
	Server   ServerConfig
	Preview  PreviewConfig
	Session  SessionConfig
	Charts   ChartConfig
	LogLevel string
}

// StatsAPIConfig holds the remote statistics service settings
type StatsAPIConfig struct {
	BaseURL        string
	RequestTimeout time.Duration
	MaxUploadBytes int64
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port    string
	GinMode string
}

// PreviewConfig holds the dataset preview settings
type PreviewConfig struct {
	RowLimit int
}

// SessionConfig holds browser session settings
type SessionConfig struct {
	TTL           time.Duration
	SweepInterval time.Duration
}

// ChartConfig holds rendered chart dimensions
type ChartConfig struct {
	Width  int
	Height int
}

const defaultStatsAPIURL = "http://localhost:8100"

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		StatsAPI: loadStatsAPIConfig(),
		Server:   loadServerConfig(),
		Preview: PreviewConfig{
			RowLimit: getEnvIntOrDefault("PREVIEW_ROW_LIMIT", 100),
		},
		Session: SessionConfig{
			TTL:           getEnvDurationOrDefault("SESSION_TTL", 2*time.Hour),
			SweepInterval: getEnvDurationOrDefault("SESSION_SWEEP_INTERVAL", 5*time.Minute),
		},
		Charts: ChartConfig{
			Width:  getEnvIntOrDefault("CHART_WIDTH", 800),
			Height: getEnvIntOrDefault("CHART_HEIGHT", 480),
		},
		LogLevel: getEnvOrDefault("LOG_LEVEL", "INFO"),
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func loadStatsAPIConfig() StatsAPIConfig {
	return StatsAPIConfig{
		BaseURL:        strings.TrimRight(getEnvOrDefault("STATS_API_URL", defaultStatsAPIURL), "/"),
		RequestTimeout: getEnvDurationOrDefault("REQUEST_TIMEOUT", 60*time.Second),
		MaxUploadBytes: int64(getEnvIntOrDefault("MAX_UPLOAD_MB", 50)) << 20,
	}
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Port:    getEnvOrDefault("PORT", "8080"),
		GinMode: getEnvOrDefault("GIN_MODE", "debug"),
	}
}

func validateConfig(config *Config) error {
	u, err := url.Parse(config.StatsAPI.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.ConfigInvalid("STATS_API_URL must be an absolute http(s) URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.ConfigInvalid("STATS_API_URL must use http or https")
	}
	if config.StatsAPI.RequestTimeout <= 0 {
		return errors.ConfigInvalid("REQUEST_TIMEOUT must be positive")
	}
	if config.StatsAPI.MaxUploadBytes <= 0 {
		return errors.ConfigInvalid("MAX_UPLOAD_MB must be positive")
	}
	if config.Preview.RowLimit <= 0 {
		return errors.ConfigInvalid("PREVIEW_ROW_LIMIT must be positive")
	}
	if config.Session.TTL <= 0 {
		return errors.ConfigInvalid("SESSION_TTL must be positive")
	}
	if config.Session.SweepInterval <= 0 {
		return errors.ConfigInvalid("SESSION_SWEEP_INTERVAL must be positive")
	}
	if config.Charts.Width < 100 || config.Charts.Height < 100 {
		return errors.ConfigInvalid("CHART_WIDTH and CHART_HEIGHT must be at least 100")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
