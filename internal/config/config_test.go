package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("DB_MAX_CONNS", "")
	t.Setenv("DB_CONNECT_TIMEOUT", "")
	t.Setenv("ALLOWED_ORIGINS", "")

	cfg := Load()

	if cfg.Port != "3001" {
		t.Errorf("Port: got %q, want 3001", cfg.Port)
	}
	if cfg.DBMaxConns != 10 {
		t.Errorf("DBMaxConns: got %d, want 10", cfg.DBMaxConns)
	}
	if cfg.DBConnectTimeout != 10*time.Second {
		t.Errorf("DBConnectTimeout: got %v, want 10s", cfg.DBConnectTimeout)
	}
	if len(cfg.AllowedOrigins) != 3 {
		t.Errorf("AllowedOrigins: got %v, want 3 defaults", cfg.AllowedOrigins)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("DB_MAX_CONNS", "4")
	t.Setenv("DB_CONNECT_TIMEOUT", "2s")
	t.Setenv("ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("CATALOG_BASE_URL", "http://catalog.local/api/")

	cfg := Load()

	if cfg.Port != "9000" {
		t.Errorf("Port: got %q, want 9000", cfg.Port)
	}
	if cfg.DBMaxConns != 4 {
		t.Errorf("DBMaxConns: got %d, want 4", cfg.DBMaxConns)
	}
	if cfg.DBConnectTimeout != 2*time.Second {
		t.Errorf("DBConnectTimeout: got %v, want 2s", cfg.DBConnectTimeout)
	}
	want := []string{"https://a.example", "https://b.example"}
	if len(cfg.AllowedOrigins) != len(want) {
		t.Fatalf("AllowedOrigins: got %v, want %v", cfg.AllowedOrigins, want)
	}
	for i := range want {
		if cfg.AllowedOrigins[i] != want[i] {
			t.Errorf("AllowedOrigins[%d]: got %q, want %q", i, cfg.AllowedOrigins[i], want[i])
		}
	}
	if cfg.CatalogBaseURL != "http://catalog.local/api" {
		t.Errorf("CatalogBaseURL: got %q, want trailing slash trimmed", cfg.CatalogBaseURL)
	}
}

func TestLoad_InvalidNumbersFallBack(t *testing.T) {
	t.Setenv("DB_MAX_CONNS", "lots")
	t.Setenv("DB_IDLE_TIMEOUT", "-5s")

	cfg := Load()

	if cfg.DBMaxConns != 10 {
		t.Errorf("DBMaxConns: got %d, want fallback 10", cfg.DBMaxConns)
	}
	if cfg.DBIdleTimeout != 30*time.Second {
		t.Errorf("DBIdleTimeout: got %v, want fallback 30s", cfg.DBIdleTimeout)
	}
}
