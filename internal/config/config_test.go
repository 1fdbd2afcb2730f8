package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("MEDBOOK_DATABASE_URL", "postgres://localhost:5432/medbook")
	t.Setenv("MEDBOOK_JWT_SECRET", "test-secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":8080")
	}
	if cfg.TokenTTL != 24*time.Hour {
		t.Fatalf("TokenTTL = %s, want 24h", cfg.TokenTTL)
	}
	if cfg.RequestTimeout != 15*time.Second {
		t.Fatalf("RequestTimeout = %s, want 15s", cfg.RequestTimeout)
	}
	if cfg.DBMaxOpenConns != 10 {
		t.Fatalf("DBMaxOpenConns = %d, want 10", cfg.DBMaxOpenConns)
	}
	if cfg.SummaryCacheTTL != time.Minute {
		t.Fatalf("SummaryCacheTTL = %s, want 1m", cfg.SummaryCacheTTL)
	}
}

func TestLoadOverridesAndAliases(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://db:5432/medbook")
	t.Setenv("JWT_SECRET", "alias-secret")
	t.Setenv("MEDBOOK_HTTP_ADDR", ":9090")
	t.Setenv("MEDBOOK_TOKEN_TTL", "1h")
	t.Setenv("MEDBOOK_REDIS_ADDR", "redis:6379")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DatabaseURL != "postgres://db:5432/medbook" {
		t.Fatalf("DatabaseURL = %q, want alias value", cfg.DatabaseURL)
	}
	if cfg.JWTSecret != "alias-secret" {
		t.Fatalf("JWTSecret = %q, want alias value", cfg.JWTSecret)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Fatalf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":9090")
	}
	if cfg.TokenTTL != time.Hour {
		t.Fatalf("TokenTTL = %s, want 1h", cfg.TokenTTL)
	}
	if cfg.RedisAddr != "redis:6379" {
		t.Fatalf("RedisAddr = %q, want %q", cfg.RedisAddr, "redis:6379")
	}
}

func TestLoadRequiresSecrets(t *testing.T) {
	t.Setenv("MEDBOOK_DATABASE_URL", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("MEDBOOK_JWT_SECRET", "s")
	t.Setenv("JWT_SECRET", "")
	if _, err := Load(); err == nil {
		t.Fatal("Load() without database url: error = nil, want error")
	}

	t.Setenv("MEDBOOK_DATABASE_URL", "postgres://localhost/medbook")
	t.Setenv("MEDBOOK_JWT_SECRET", "")
	if _, err := Load(); err == nil {
		t.Fatal("Load() without jwt secret: error = nil, want error")
	}
}
