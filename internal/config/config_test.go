package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	setCoreEnvEmpty(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.BindAddr != ":8080" {
		t.Fatalf("BindAddr = %q, want %q", cfg.BindAddr, ":8080")
	}
	if cfg.ResponderMode != "auto" {
		t.Fatalf("ResponderMode = %q, want %q", cfg.ResponderMode, "auto")
	}
	if cfg.ResponderURL != "" {
		t.Fatalf("ResponderURL = %q, want empty default", cfg.ResponderURL)
	}
	if cfg.Location != time.UTC {
		t.Fatalf("Location = %v, want UTC", cfg.Location)
	}
	if cfg.ResponderTimeout != 30*time.Second {
		t.Fatalf("ResponderTimeout = %v, want 30s", cfg.ResponderTimeout)
	}
}

func TestLoadUsesExplicitResponderURL(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("AI_RESPONDER_URL", "http://localhost:5001/chat")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ResponderURL != "http://localhost:5001/chat" {
		t.Fatalf("ResponderURL = %q, want explicit value", cfg.ResponderURL)
	}
}

func TestLoadParsesTimeZone(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("APP_TIMEZONE", "Europe/Rome")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Location.String() != "Europe/Rome" {
		t.Fatalf("Location = %v, want Europe/Rome", cfg.Location)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("APP_TIMEZONE", "Mars/Olympus")
	if _, err := Load(); err == nil {
		t.Fatalf("Load() error = nil, want timezone parse error")
	}

	setCoreEnvEmpty(t)
	t.Setenv("APP_SESSION_INACTIVITY_TIMEOUT", "1s")
	if _, err := Load(); err == nil {
		t.Fatalf("Load() error = nil, want inactivity validation error")
	}

	setCoreEnvEmpty(t)
	t.Setenv("APP_ALLOW_ANY_ORIGIN", "maybe")
	if _, err := Load(); err == nil {
		t.Fatalf("Load() error = nil, want bool parse error")
	}
}

func setCoreEnvEmpty(t *testing.T) {
	t.Helper()
	keys := []string{
		"APP_BIND_ADDR",
		"APP_SHUTDOWN_TIMEOUT",
		"APP_SESSION_INACTIVITY_TIMEOUT",
		"APP_METRICS_NAMESPACE",
		"APP_ALLOW_ANY_ORIGIN",
		"APP_TIMEZONE",
		"APP_QUERYLOG_CACHE_TTL",
		"AI_RESPONDER_MODE",
		"AI_RESPONDER_URL",
		"AI_RESPONDER_TIMEOUT",
		"DATABASE_URL",
		"REDIS_URL",
	}
	for _, k := range keys {
		t.Setenv(k, "")
	}
}
