// Package config loads engine settings from an optional YAML file with
// INTAKE_-prefixed environment overrides on top.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Gazetteer GazetteerConfig `koanf:"gazetteer"`
	Geocode   GeocodeConfig   `koanf:"geocode"`
	Submit    SubmitConfig    `koanf:"submit"`
	Storage   StorageConfig   `koanf:"storage"`
	Dialogue  DialogueConfig  `koanf:"dialogue"`
}

type ServerConfig struct {
	Port           int      `koanf:"port"`
	AllowedOrigins []string `koanf:"allowed_origins"`
}

// GazetteerConfig points at the states/cities reference API. An empty
// base URL leaves free-text location extraction disabled.
type GazetteerConfig struct {
	BaseURL string `koanf:"base_url"`
}

type GeocodeConfig struct {
	BaseURL string `koanf:"base_url"`
}

// SubmitConfig points at the intake backend the finished payload posts to.
type SubmitConfig struct {
	BaseURL string `koanf:"base_url"`
}

// StorageConfig selects the transcript audit store: "memory" or "sqlite".
type StorageConfig struct {
	Driver string `koanf:"driver"`
	Path   string `koanf:"path"`
}

type DialogueConfig struct {
	// FuzzyThreshold is the similarity floor for command matching.
	FuzzyThreshold float64 `koanf:"fuzzy_threshold"`
	// NavigateDelaySeconds is how long a finished session lingers before
	// the client is sent home.
	NavigateDelaySeconds int `koanf:"navigate_delay_seconds"`
}

// Load reads the optional YAML file at path, then applies INTAKE_
// environment overrides (INTAKE_SERVER__PORT and the like), then fills
// defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("load config file %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("stat config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("INTAKE_", ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, "INTAKE_"))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}

	defaults := map[string]any{
		"server.port":                     8080,
		"geocode.base_url":                "https://nominatim.openstreetmap.org",
		"storage.driver":                  "memory",
		"storage.path":                    "intake.db",
		"dialogue.fuzzy_threshold":        0.6,
		"dialogue.navigate_delay_seconds": 2,
	}
	for key, value := range defaults {
		if !k.Exists(key) {
			k.Set(key, value)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	if cfg.Storage.Driver != "memory" && cfg.Storage.Driver != "sqlite" {
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}

	return &cfg, nil
}
