// Package config loads declutter's YAML configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Scan      ScanConfig      `yaml:"scan"`
	Logging   LoggingConfig   `yaml:"logging"`
	Server    ServerConfig    `yaml:"server"`
	Assistant AssistantConfig `yaml:"assistant"`
}

// DatabaseConfig contains database settings.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// ScanConfig controls the simulated scan/clean pipeline.
type ScanConfig struct {
	// TickInterval is the cadence of the progress timer.
	TickInterval time.Duration `yaml:"tickInterval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// AssistantConfig points at a hosted model endpoint. The assistant stays
// disabled while the endpoint is empty.
type AssistantConfig struct {
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"apiKey"`
}

// Default returns a config with default values. The DECLUTTER_DB
// environment variable overrides the database path.
func Default() *Config {
	cfg := &Config{
		Database: DatabaseConfig{
			Path: "declutter.db",
		},
		Scan: ScanConfig{
			TickInterval: 50 * time.Millisecond,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Server: ServerConfig{
			Port: 3000,
			Host: "localhost",
		},
	}

	if path := os.Getenv("DECLUTTER_DB"); path != "" {
		cfg.Database.Path = path
	}
	if endpoint := os.Getenv("DECLUTTER_AI_ENDPOINT"); endpoint != "" {
		cfg.Assistant.Endpoint = endpoint
	}
	if key := os.Getenv("DECLUTTER_AI_KEY"); key != "" {
		cfg.Assistant.APIKey = key
	}

	return cfg
}

// Load reads a YAML config file, applying defaults for unset fields.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.Scan.TickInterval <= 0 {
		cfg.Scan.TickInterval = 50 * time.Millisecond
	}

	return cfg, nil
}

// Save writes the configuration as YAML.
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}
