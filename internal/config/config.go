package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config contains all runtime settings for the concierge chat service.
type Config struct {
	BindAddr                 string
	ShutdownTimeout          time.Duration
	SessionInactivityTimeout time.Duration
	MetricsNamespace         string

	AllowAnyOrigin bool

	// TimeZone is the zone used to compute day-bucket keys and display
	// times. Location is its resolved form.
	TimeZone string
	Location *time.Location

	ResponderMode    string
	ResponderURL     string
	ResponderTimeout time.Duration

	DatabaseURL string
	RedisURL    string

	QueryLogCacheTTL time.Duration
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:                 envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace:         envOrDefault("APP_METRICS_NAMESPACE", "concierge"),
		AllowAnyOrigin:           false,
		TimeZone:                 envOrDefault("APP_TIMEZONE", "UTC"),
		ResponderMode:            envOrDefault("AI_RESPONDER_MODE", "auto"),
		ResponderURL:             trimmedEnv("AI_RESPONDER_URL"),
		DatabaseURL:              trimmedEnv("DATABASE_URL"),
		RedisURL:                 trimmedEnv("REDIS_URL"),
		ShutdownTimeout:          15 * time.Second,
		SessionInactivityTimeout: 30 * time.Minute,
		ResponderTimeout:         30 * time.Second,
		QueryLogCacheTTL:         30 * time.Second,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.SessionInactivityTimeout, err = durationFromEnv("APP_SESSION_INACTIVITY_TIMEOUT", cfg.SessionInactivityTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.ResponderTimeout, err = durationFromEnv("AI_RESPONDER_TIMEOUT", cfg.ResponderTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.QueryLogCacheTTL, err = durationFromEnv("APP_QUERYLOG_CACHE_TTL", cfg.QueryLogCacheTTL)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}

	cfg.Location, err = time.LoadLocation(cfg.TimeZone)
	if err != nil {
		return Config{}, fmt.Errorf("APP_TIMEZONE parse error: %w", err)
	}

	if cfg.SessionInactivityTimeout < 5*time.Second {
		return Config{}, fmt.Errorf("APP_SESSION_INACTIVITY_TIMEOUT must be at least 5s")
	}
	if cfg.ResponderTimeout <= 0 {
		return Config{}, fmt.Errorf("AI_RESPONDER_TIMEOUT must be positive")
	}
	if cfg.QueryLogCacheTTL < 0 {
		return Config{}, fmt.Errorf("APP_QUERYLOG_CACHE_TTL must not be negative")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func trimmedEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(trimmedEnv(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
