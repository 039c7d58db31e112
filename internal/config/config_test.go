package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"MODE", "HTTP_ADDR", "PORT", "DB_DRIVER", "TOKEN_TTL", "ADMIN_USERNAME", "LOG_FORMAT"} {
		t.Setenv(k, "")
	}
	cfg := FromEnv()
	if cfg.Mode != ModeOffline {
		t.Errorf("mode=%q", cfg.Mode)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("addr=%q", cfg.HTTPAddr)
	}
	if cfg.DBDriver != "sqlite" {
		t.Errorf("driver=%q", cfg.DBDriver)
	}
	if cfg.TokenTTL != 8*time.Hour {
		t.Errorf("ttl=%v", cfg.TokenTTL)
	}
	if cfg.AdminUser != "admin" {
		t.Errorf("admin=%q", cfg.AdminUser)
	}
	if cfg.LogFormat != "console" {
		t.Errorf("log format=%q", cfg.LogFormat)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("MODE", "online")
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("PORT", "3000")
	t.Setenv("TOKEN_TTL", "90m")
	t.Setenv("CORS_ORIGINS_ONLINE", " https://a.example , ,https://b.example")
	t.Setenv("ENABLE_METRICS", "no")
	t.Setenv("LOG_FORMAT", "")

	cfg := FromEnv()
	if cfg.HTTPAddr != ":3000" {
		t.Errorf("addr=%q", cfg.HTTPAddr)
	}
	if cfg.TokenTTL != 90*time.Minute {
		t.Errorf("ttl=%v", cfg.TokenTTL)
	}
	got := cfg.CORSOrigins()
	if len(got) != 2 || got[0] != "https://a.example" || got[1] != "https://b.example" {
		t.Errorf("origins=%v", got)
	}
	if cfg.EnableMetrics {
		t.Errorf("metrics should be disabled")
	}
	if cfg.LogFormat != "json" {
		t.Errorf("online mode defaults to json logs, got %q", cfg.LogFormat)
	}
}

func TestLoadReadsDotEnvWithoutOverriding(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("ADMIN_USERNAME=proctor\nJWT_SECRET=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("ADMIN_USERNAME", "")
	os.Unsetenv("ADMIN_USERNAME")

	cfg := Load(path)
	if cfg.AdminUser != "proctor" {
		t.Errorf("admin=%q", cfg.AdminUser)
	}
	if cfg.JWTSecret != "from-env" {
		t.Errorf("secret=%q", cfg.JWTSecret)
	}
}
