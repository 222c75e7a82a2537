package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 8000 {
		t.Errorf("expected default port 8000, got %d", cfg.Server.Port)
	}
	if cfg.Scrape.TargetURL != "https://grokipedia.com" {
		t.Errorf("unexpected default target: %q", cfg.Scrape.TargetURL)
	}
	if cfg.Scrape.SettleDelay != 2*time.Second {
		t.Errorf("expected 2s settle delay, got %v", cfg.Scrape.SettleDelay)
	}
	if cfg.Scrape.InputTimeout != 10*time.Second {
		t.Errorf("expected 10s input timeout, got %v", cfg.Scrape.InputTimeout)
	}
	if cfg.Audit.Backend != "sqlite" {
		t.Errorf("expected sqlite audit backend, got %q", cfg.Audit.Backend)
	}
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "finch.yaml")
	data := `
server:
  port: 9001
scrape:
  target_url: https://example.com
  fallback_limit: 5
audit:
  backend: jsonl
  path: audit.ndjson
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 9001 {
		t.Errorf("expected port 9001, got %d", cfg.Server.Port)
	}
	if cfg.Scrape.FallbackLimit != 5 {
		t.Errorf("expected fallback limit 5, got %d", cfg.Scrape.FallbackLimit)
	}
	if cfg.Audit.Backend != "jsonl" || cfg.Audit.Path != "audit.ndjson" {
		t.Errorf("unexpected audit config: %+v", cfg.Audit)
	}
	// Untouched keys keep their defaults.
	if cfg.Metrics.Port != 9090 {
		t.Errorf("expected default metrics port, got %d", cfg.Metrics.Port)
	}
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("FINCH_SERVER_PORT", "7777")
	t.Setenv("FINCH_AUDIT_BACKEND", "csv")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 7777 {
		t.Errorf("expected env port 7777, got %d", cfg.Server.Port)
	}
	if cfg.Audit.Backend != "csv" {
		t.Errorf("expected env audit backend csv, got %q", cfg.Audit.Backend)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad server port", func(c *Config) { c.Server.Port = -1 }},
		{"bad metrics port", func(c *Config) { c.Metrics.Port = 0 }},
		{"empty target", func(c *Config) { c.Scrape.TargetURL = "" }},
		{"unknown backend", func(c *Config) { c.Audit.Backend = "redis" }},
		{"postgres without dsn", func(c *Config) { c.Audit.Backend = "postgres"; c.Audit.DSN = "" }},
		{"unknown probe profile", func(c *Config) { c.Probe.Profile = "firefox" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := Load("")
			if err != nil {
				t.Fatalf("load defaults: %v", err)
			}
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected a validation error")
			}
		})
	}
}
