package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Storage.Driver != "memory" {
		t.Errorf("driver = %q, want memory", cfg.Storage.Driver)
	}
	if cfg.Geocode.BaseURL == "" {
		t.Error("geocode base URL should have a default")
	}
	if cfg.Dialogue.FuzzyThreshold != 0.6 {
		t.Errorf("threshold = %v, want 0.6", cfg.Dialogue.FuzzyThreshold)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("INTAKE_SERVER__PORT", "9000")
	t.Setenv("INTAKE_SUBMIT__BASE_URL", "http://backend:4000")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Submit.BaseURL != "http://backend:4000" {
		t.Errorf("submit base URL = %q", cfg.Submit.BaseURL)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "intake.yaml")
	yaml := []byte("server:\n  port: 7070\nstorage:\n  driver: sqlite\n  path: /var/lib/intake.db\n")
	if err := os.WriteFile(path, yaml, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 7070 {
		t.Errorf("port = %d, want 7070", cfg.Server.Port)
	}
	if cfg.Storage.Driver != "sqlite" || cfg.Storage.Path != "/var/lib/intake.db" {
		t.Errorf("storage = %+v", cfg.Storage)
	}
}

func TestLoadEnvBeatsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "intake.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 7070\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("INTAKE_SERVER__PORT", "9001")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 9001 {
		t.Errorf("port = %d, want 9001", cfg.Server.Port)
	}
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("INTAKE_STORAGE__DRIVER", "postgres")

	if _, err := Load(""); err == nil {
		t.Fatal("expected an error for an unknown storage driver")
	}
}

func TestLoadMissingFileIsFine(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err != nil {
		t.Fatalf("missing file should fall back to defaults, got %v", err)
	}
}
