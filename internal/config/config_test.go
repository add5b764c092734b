package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ENV", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("RATE_LIMIT_MAX", "")
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.RateLimitBackend != "memory" {
		t.Fatalf("expected default rate limit backend, got %s", cfg.RateLimitBackend)
	}
	if cfg.RateLimitMax != 10 {
		t.Fatalf("expected default rate limit max, got %d", cfg.RateLimitMax)
	}
	if cfg.RateLimitWindow != time.Minute {
		t.Fatalf("expected default rate limit window, got %s", cfg.RateLimitWindow)
	}
	if cfg.ImportMaxRows != 200 {
		t.Fatalf("expected default import cap, got %d", cfg.ImportMaxRows)
	}
	if len(cfg.CORSAllowedOrigins) != 0 {
		t.Fatalf("expected no CORS origins by default, got %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DATABASE_URL", "postgres://user@host/db")
	t.Setenv("SESSION_SECRET", "shh")
	t.Setenv("SESSION_TTL", "2h")
	t.Setenv("RATE_LIMIT_BACKEND", "Redis")
	t.Setenv("RATE_LIMIT_MAX", "5")
	t.Setenv("RATE_LIMIT_WINDOW", "30s")
	t.Setenv("IMPORT_MAX_ROWS", "50")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.example.com, https://staging.example.com")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if cfg.DatabaseURL != "postgres://user@host/db" {
		t.Fatalf("expected db override, got %s", cfg.DatabaseURL)
	}
	if cfg.SessionSecret != "shh" {
		t.Fatalf("expected session secret override")
	}
	if cfg.SessionTTL != 2*time.Hour {
		t.Fatalf("expected session TTL override, got %s", cfg.SessionTTL)
	}
	if cfg.RateLimitBackend != "redis" {
		t.Fatalf("expected normalized backend, got %s", cfg.RateLimitBackend)
	}
	if cfg.RateLimitMax != 5 || cfg.RateLimitWindow != 30*time.Second {
		t.Fatalf("expected rate limit overrides, got %d/%s", cfg.RateLimitMax, cfg.RateLimitWindow)
	}
	if cfg.ImportMaxRows != 50 {
		t.Fatalf("expected import cap override, got %d", cfg.ImportMaxRows)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://staging.example.com" {
		t.Fatalf("expected parsed CORS origins, got %v", cfg.CORSAllowedOrigins)
	}
}
