// Copyright 2026 Chava Systems
//
// YAML deployment-profile overlay on top of Config

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Profile is an optional deployment overlay loaded from YAML, scoped to
// the settings a Chava deployment actually varies by environment.
type Profile struct {
	Environment string        `yaml:"environment"`
	Store       ProfileStore  `yaml:"store"`
	Server      ProfileServer `yaml:"server"`
}

// ProfileStore overlays storage-related Config fields.
type ProfileStore struct {
	Backend     string `yaml:"backend"`
	DatabaseURL string `yaml:"database_url"`
}

// ProfileServer overlays server-related Config fields.
type ProfileServer struct {
	ListenAddr  string `yaml:"listen_addr"`
	MetricsAddr string `yaml:"metrics_addr"`
}

// LoadProfile reads and parses a YAML profile file.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read profile %s: %w", path, err)
	}
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("config: parse profile %s: %w", path, err)
	}
	return &p, nil
}

// Apply overlays non-empty profile fields onto cfg, giving an explicit
// profile file priority over the environment defaults Load already
// applied.
func (p *Profile) Apply(cfg *Config) {
	if p.Store.Backend != "" {
		cfg.StoreBackend = p.Store.Backend
	}
	if p.Store.DatabaseURL != "" {
		cfg.DatabaseURL = p.Store.DatabaseURL
	}
	if p.Server.ListenAddr != "" {
		cfg.ListenAddr = p.Server.ListenAddr
	}
	if p.Server.MetricsAddr != "" {
		cfg.MetricsAddr = p.Server.MetricsAddr
	}
}
