package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the reference daemon's settings: just the one TCP listener
// this daemon runs.
type Config struct {
	Server ServerConfig `yaml:"server"`
}

// ServerConfig holds the TCP listener's settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// Load reads and parses the YAML config file at path. A field the file
// omits keeps its default (currently just Server.Port); a missing file is
// an error, not a fallback to all-defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := &Config{
		Server: ServerConfig{Port: 2323},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	return cfg, nil
}
