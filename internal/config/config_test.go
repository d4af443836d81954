package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "ENV", "LOG_LEVEL", "STORE_BACKEND", "ADMIN_TOKEN", "CORS_ORIGINS", "BOOKING_IDLE_TTL", "CLINIC_TIMEZONE"} {
		t.Setenv(key, "")
	}
	cfg := Load()
	if cfg.Port != "3001" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.StoreBackend != StoreMemory {
		t.Fatalf("expected memory backend, got %s", cfg.StoreBackend)
	}
	if cfg.AdminToken != "" {
		t.Fatalf("expected admin token to be unset")
	}
	if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "*" {
		t.Fatalf("expected wildcard cors, got %v", cfg.CORSAllowedOrigins)
	}
	if cfg.RateLimitPerMinute != 60 {
		t.Fatalf("expected 60 requests per minute, got %d", cfg.RateLimitPerMinute)
	}
	if cfg.BookingIdleTTL != 24*time.Hour {
		t.Fatalf("expected 24h idle ttl, got %s", cfg.BookingIdleTTL)
	}
	if cfg.Location() != time.UTC {
		t.Fatalf("expected UTC location")
	}
	if cfg.IsProduction() {
		t.Fatalf("expected non-production default")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("STORE_BACKEND", " Postgres ")
	t.Setenv("DATABASE_URL", "postgres://user@host/db")
	t.Setenv("ADMIN_TOKEN", " secret ")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("BOOKING_IDLE_TTL", "30m")
	t.Setenv("LLM_HISTORY_WINDOW", "6")
	t.Setenv("CLINIC_TIMEZONE", "America/New_York")
	t.Setenv("EMAIL_PROVIDER", "SES")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if !cfg.IsProduction() {
		t.Fatalf("expected production env")
	}
	if cfg.StoreBackend != StorePostgres {
		t.Fatalf("expected postgres backend, got %q", cfg.StoreBackend)
	}
	if cfg.DatabaseURL != "postgres://user@host/db" {
		t.Fatalf("expected db override, got %s", cfg.DatabaseURL)
	}
	if cfg.AdminToken != "secret" {
		t.Fatalf("expected trimmed admin token, got %q", cfg.AdminToken)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected cors origins %v", cfg.CORSAllowedOrigins)
	}
	if cfg.BookingIdleTTL != 30*time.Minute {
		t.Fatalf("expected idle ttl override, got %s", cfg.BookingIdleTTL)
	}
	if cfg.LLMHistoryWindow != 6 {
		t.Fatalf("expected history window override, got %d", cfg.LLMHistoryWindow)
	}
	if cfg.Location().String() != "America/New_York" {
		t.Fatalf("expected clinic timezone, got %s", cfg.Location())
	}
	if cfg.EmailProvider != "ses" {
		t.Fatalf("expected lowercase email provider, got %s", cfg.EmailProvider)
	}
}

func TestLocationFallsBackToUTC(t *testing.T) {
	cfg := &Config{Timezone: "Not/AZone"}
	if cfg.Location() != time.UTC {
		t.Fatalf("expected UTC fallback")
	}
}

func TestSessionLockOutlivesLLMTimeout(t *testing.T) {
	t.Setenv("SESSION_LOCK_TTL", "")
	t.Setenv("LLM_TIMEOUT", "")
	cfg := Load()
	if cfg.SessionLockTTL != 45*time.Second {
		t.Fatalf("expected 45s lock ttl, got %s", cfg.SessionLockTTL)
	}
	if cfg.SessionLockTTL <= cfg.LLMTimeout {
		t.Fatalf("lock ttl %s must exceed llm timeout %s", cfg.SessionLockTTL, cfg.LLMTimeout)
	}

	t.Setenv("SESSION_LOCK_TTL", "10s")
	t.Setenv("LLM_TIMEOUT", "40s")
	cfg = Load()
	if cfg.SessionLockTTL != 55*time.Second {
		t.Fatalf("expected lock ttl raised to 55s, got %s", cfg.SessionLockTTL)
	}

	t.Setenv("SESSION_LOCK_TTL", "2m")
	cfg = Load()
	if cfg.SessionLockTTL != 2*time.Minute {
		t.Fatalf("expected explicit lock ttl kept, got %s", cfg.SessionLockTTL)
	}
}
