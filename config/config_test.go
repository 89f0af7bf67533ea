package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "file:test.db")
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("SERPAPI_KEY", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Sweep.Schedule != "0 0 0,12 * * *" {
		t.Errorf("unexpected schedule %q", cfg.Sweep.Schedule)
	}
	if cfg.Search.AmazonDomain != "amazon.in" {
		t.Errorf("unexpected amazon domain %q", cfg.Search.AmazonDomain)
	}
	if cfg.Search.Timeout != 10*time.Second {
		t.Errorf("expected 10s search timeout, got %v", cfg.Search.Timeout)
	}
	if cfg.Search.IsValid() {
		t.Error("search config without key should be invalid")
	}
	if cfg.Mail.IsValid() {
		t.Error("mail config without credentials should be invalid")
	}
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DATABASE_DRIVER", "postgres")
	if _, err := Load(); err == nil {
		t.Fatal("expected error without DATABASE_URL")
	}
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("DATABASE_URL", "x")
	t.Setenv("DATABASE_DRIVER", "mysql")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/vs")
	t.Setenv("SWEEP_WORKERS", "8")
	t.Setenv("SEARCH_TIMEOUT", "3s")
	t.Setenv("SERPAPI_KEY", "secret")
	t.Setenv("EMAIL_USER", "alerts@example.com")
	t.Setenv("EMAIL_PASSWORD", "pw")
	t.Setenv("EMAIL_FROM", "")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, http://b.test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Sweep.Workers != 8 {
		t.Errorf("expected 8 workers, got %d", cfg.Sweep.Workers)
	}
	if cfg.Search.Timeout != 3*time.Second {
		t.Errorf("expected 3s, got %v", cfg.Search.Timeout)
	}
	if !cfg.Search.IsValid() || !cfg.Mail.IsValid() {
		t.Error("expected search and mail config to be valid")
	}
	if cfg.Mail.From != "ValueScout <alerts@example.com>" {
		t.Errorf("unexpected from %q", cfg.Mail.From)
	}
	if len(cfg.Server.AllowedOrigins) != 2 || cfg.Server.AllowedOrigins[1] != "http://b.test" {
		t.Errorf("unexpected origins %v", cfg.Server.AllowedOrigins)
	}
}
