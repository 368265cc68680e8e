package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaultsAndEnvOverrides(t *testing.T) {
	t.Setenv("SMTP_HOST", "smtp.override.example")
	t.Setenv("SMTP_PORT", "587")
	t.Setenv("SMTP_USER", "bot@example.com")
	t.Setenv("SITEWATCH_RECIPIENT", "ops@example.com")

	cfg := Load()

	if cfg.Sources.Path != "sources.txt" || cfg.State.Backend != "json" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Fetch.Concurrency != 6 {
		t.Fatalf("expected default concurrency 6, got %d", cfg.Fetch.Concurrency)
	}
	if cfg.Mail.Host != "smtp.override.example" || cfg.Mail.Port != 587 {
		t.Fatalf("env overrides not applied: %+v", cfg.Mail)
	}
	if cfg.Mail.Recipient != "ops@example.com" {
		t.Fatalf("recipient override not applied: %+v", cfg.Mail)
	}
}

func TestLoadMergesYAMLFile(t *testing.T) {
	raw := `
sources:
  path: /etc/sitewatch/sources.txt
state:
  backend: sqlite
  path: /var/lib/sitewatch/state.db
fetch:
  concurrency: 3
  timeoutSeconds: 10
mail:
  mode: subscribers
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("SITEWATCH_CONFIG", path)

	cfg := Load()

	if cfg.Sources.Path != "/etc/sitewatch/sources.txt" {
		t.Fatalf("file sources path not merged: %+v", cfg.Sources)
	}
	if cfg.State.Backend != "sqlite" || cfg.State.Path != "/var/lib/sitewatch/state.db" {
		t.Fatalf("file state config not merged: %+v", cfg.State)
	}
	if cfg.Fetch.Concurrency != 3 || cfg.Fetch.Timeout().Seconds() != 10 {
		t.Fatalf("file fetch config not merged: %+v", cfg.Fetch)
	}
	if cfg.Mail.Mode != ModeSubscribers {
		t.Fatalf("file mail mode not merged: %+v", cfg.Mail)
	}
	// Untouched fields keep their defaults.
	if cfg.Mail.Port != 465 {
		t.Fatalf("default mail port lost in merge: %+v", cfg.Mail)
	}
}
