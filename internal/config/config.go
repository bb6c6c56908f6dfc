// Package config loads and validates application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration values for the booking API server.
// Values are populated by Load from environment variables.
type Config struct {
	// Port is the TCP port the HTTP server listens on. Defaults to "8080".
	Port string

	// DatabaseURL is the Postgres connection string. Required.
	DatabaseURL string

	// LogLevel controls the minimum log level. Defaults to "info".
	// Valid values: debug, info, warn, error.
	LogLevel string

	// CORSOrigins is the list of allowed cross-origin request origins.
	// Defaults to ["http://localhost:3000"] (Next.js dev server).
	// Set CORS_ORIGINS to a comma-separated list to override.
	CORSOrigins []string

	// FeedTimeout bounds each calendar feed fetch. Defaults to 15s.
	// Set FEED_TIMEOUT_SECONDS to override.
	FeedTimeout time.Duration

	// SyncSchedule is the cron spec for the background calendar sync.
	// Defaults to every 6 hours. Empty string disables the schedule
	// (sync then only runs via the HTTP trigger).
	SyncSchedule string

	// SyncAuthToken, when set, is required as a bearer token on the manual
	// sync trigger and admin booking transitions.
	SyncAuthToken string

	// Sanity CMS connection for reading rental units.
	SanityProjectID string
	SanityDataset   string
	SanityAPIToken  string

	// Square payment credentials.
	SquareAccessToken string
	SquareLocationID  string
	// SquareEnvironment selects "production" or "sandbox" (default).
	SquareEnvironment string

	// Resend email settings for booking confirmations.
	ResendAPIKey     string
	BookingFromEmail string
	AdminEmail       string
}

// Load reads configuration from environment variables and returns a Config.
// Returns an error listing any required variables that are not set.
func Load() (Config, error) {
	cfg := Config{
		Port:        getEnv("PORT", "8080"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		CORSOrigins: splitCSV(getEnv("CORS_ORIGINS", "http://localhost:3000")),

		FeedTimeout:   time.Duration(getEnvInt("FEED_TIMEOUT_SECONDS", 15)) * time.Second,
		SyncSchedule:  getEnv("SYNC_SCHEDULE", "0 */6 * * *"),
		SyncAuthToken: os.Getenv("SYNC_AUTH_TOKEN"),

		SanityProjectID: os.Getenv("SANITY_PROJECT_ID"),
		SanityDataset:   getEnv("SANITY_DATASET", "production"),
		SanityAPIToken:  os.Getenv("SANITY_API_TOKEN"),

		SquareAccessToken: os.Getenv("SQUARE_ACCESS_TOKEN"),
		SquareLocationID:  os.Getenv("SQUARE_LOCATION_ID"),
		SquareEnvironment: getEnv("SQUARE_ENVIRONMENT", "sandbox"),

		ResendAPIKey:     os.Getenv("RESEND_API_KEY"),
		BookingFromEmail: getEnv("BOOKING_FROM_EMAIL", "Pine Valley <bookings@dillardmill.com>"),
		AdminEmail:       getEnv("ADMIN_EMAIL", "pinevalley@dillardmill.com"),
	}

	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables not set: %s", strings.Join(missing, ", "))
	}

	return cfg, nil
}

// getEnv returns the value of the environment variable named by key,
// or fallback if the variable is not set or is empty.
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt parses the named variable as an integer, falling back on absence
// or a parse failure.
func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// splitCSV splits a comma-separated string into a trimmed slice, ignoring empty entries.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}
