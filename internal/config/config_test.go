package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tipfolio/history-engine/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.HTTP.Port != "8080" {
		t.Errorf("port = %s, want 8080", cfg.HTTP.Port)
	}
	if cfg.HTTP.RequestTimeout != 30*time.Second {
		t.Errorf("request timeout = %s, want 30s", cfg.HTTP.RequestTimeout)
	}
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("http:\n  port: \"9090\"\nredis:\n  url: redis://localhost:6379/0\ntimezone: Europe/Madrid\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.HTTP.Port != "9090" {
		t.Errorf("port = %s, want 9090", cfg.HTTP.Port)
	}
	if cfg.Redis.URL != "redis://localhost:6379/0" {
		t.Errorf("redis url = %s", cfg.Redis.URL)
	}
	if cfg.Timezone != "Europe/Madrid" {
		t.Errorf("timezone = %s", cfg.Timezone)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "7070")
	t.Setenv("REDIS_URL", "redis://example:6379")
	t.Setenv("DATABASE_URL", "postgres://example/history")

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.HTTP.Port != "7070" {
		t.Errorf("port = %s, want 7070", cfg.HTTP.Port)
	}
	if cfg.Redis.URL != "redis://example:6379" {
		t.Errorf("redis url = %s", cfg.Redis.URL)
	}
	if cfg.Postgres.DSN != "postgres://example/history" {
		t.Errorf("dsn = %s", cfg.Postgres.DSN)
	}
}

func TestLoad_MissingFileIgnored(t *testing.T) {
	if _, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml")); err != nil {
		t.Errorf("missing file should not fail: %v", err)
	}
}

func TestLocation(t *testing.T) {
	cfg := config.Config{}
	loc, err := cfg.Location()
	if err != nil || loc != time.UTC {
		t.Errorf("default location = %v (%v), want UTC", loc, err)
	}

	cfg.Timezone = "not/a/zone"
	if _, err := cfg.Location(); err == nil {
		t.Error("expected error for bad timezone")
	}
}
