package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Upstream modes
const (
	UpstreamAppsScript = "appsscript"
	UpstreamSheets     = "sheets"
)

// Config holds all configuration for the application
type Config struct {
	Port           string
	AllowedOrigins []string
	LogLevel       string

	// Upstream spreadsheet source
	UpstreamMode          string
	AppsScriptURL         string
	SpreadsheetID         string
	GoogleCredentialsFile string
	FetchTimeout          time.Duration

	// Local simulator admin proxy, disabled when empty
	SimURL string

	// Read cache and live refresh
	CacheTTL        time.Duration
	RefreshInterval time.Duration

	// WebSocket
	WSReadTimeout  time.Duration
	WSWriteTimeout time.Duration
	PingPeriod     time.Duration
	PongWait       time.Duration
	WriteWait      time.Duration
	MaxMessageSize int64
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	config := &Config{
		Port:                  getEnv("PORT", "8080"),
		AllowedOrigins:        strings.Split(getEnv("ALLOWED_ORIGINS", "http://localhost:5173"), ","),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		UpstreamMode:          strings.ToLower(getEnv("UPSTREAM_MODE", UpstreamAppsScript)),
		AppsScriptURL:         getEnv("APPS_SCRIPT_URL", "http://localhost:8081/exec"),
		SpreadsheetID:         strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID")),
		GoogleCredentialsFile: strings.TrimSpace(os.Getenv("GOOGLE_CREDENTIALS_FILE")),
		SimURL:                strings.TrimRight(os.Getenv("SHEETSIM_URL"), "/"),
	}

	switch config.UpstreamMode {
	case UpstreamAppsScript:
		if config.AppsScriptURL == "" {
			return nil, fmt.Errorf("APPS_SCRIPT_URL is required for upstream mode %s", UpstreamAppsScript)
		}
	case UpstreamSheets:
		if config.SpreadsheetID == "" {
			return nil, fmt.Errorf("GOOGLE_SPREADSHEET_ID is required for upstream mode %s", UpstreamSheets)
		}
	default:
		return nil, fmt.Errorf("invalid UPSTREAM_MODE: %q", config.UpstreamMode)
	}

	var err error
	if config.FetchTimeout, err = positiveSeconds("FETCH_TIMEOUT", "15"); err != nil {
		return nil, err
	}
	if config.CacheTTL, err = seconds("CACHE_TTL", "300"); err != nil {
		return nil, err
	}
	if config.RefreshInterval, err = seconds("REFRESH_INTERVAL", "60"); err != nil {
		return nil, err
	}
	if config.WSReadTimeout, err = positiveSeconds("WS_READ_TIMEOUT", "60"); err != nil {
		return nil, err
	}
	if config.WSWriteTimeout, err = positiveSeconds("WS_WRITE_TIMEOUT", "10"); err != nil {
		return nil, err
	}

	// Calculate WebSocket constants
	config.PongWait = config.WSReadTimeout
	config.PingPeriod = (config.PongWait * 9) / 10 // Must be less than pongWait
	config.WriteWait = config.WSWriteTimeout
	config.MaxMessageSize = 512

	// Trim spaces from allowed origins
	for i, origin := range config.AllowedOrigins {
		config.AllowedOrigins[i] = strings.TrimSpace(origin)
	}

	return config, nil
}

// seconds parses a non-negative whole number of seconds
func seconds(key, defaultValue string) (time.Duration, error) {
	n, err := strconv.Atoi(getEnv(key, defaultValue))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("invalid %s: must not be negative", key)
	}
	return time.Duration(n) * time.Second, nil
}

// positiveSeconds is seconds for values that must be greater than zero
func positiveSeconds(key, defaultValue string) (time.Duration, error) {
	d, err := seconds(key, defaultValue)
	if err != nil {
		return 0, err
	}
	if d == 0 {
		return 0, fmt.Errorf("invalid %s: must be greater than zero", key)
	}
	return d, nil
}

// getEnv gets an environment variable with a fallback default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
