// Package main provides the pushmon monitor daemon CLI.
package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the monitor daemon configuration.
type Config struct {
	API       APIConfig       `yaml:"api"`
	Dashboard DashboardConfig `yaml:"dashboard"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Feeds     FeedsConfig     `yaml:"feeds"`
	Verbose   bool            `yaml:"-"` // set via CLI flag
}

// APIConfig contains backend API settings.
type APIConfig struct {
	URL   string `yaml:"url"`   // backend base URL (default: https://api.gitpusher.ai)
	Token string `yaml:"token"` // bearer token, overridable via PUSHKIT_TOKEN
}

// DashboardConfig contains dashboard HTTP settings.
type DashboardConfig struct {
	Address string `yaml:"address"` // HTTP listen address (default: :8090)
}

// MetricsConfig contains Prometheus metrics settings. Metrics are on by
// default; the zero value of Disabled keeps them on when the section is
// omitted.
type MetricsConfig struct {
	Disabled bool   `yaml:"disabled"` // suppress the /metrics listener
	Address  string `yaml:"address"`  // metrics listen address (default: :9091)
}

// FeedsConfig tunes the telemetry aggregator.
type FeedsConfig struct {
	StatsInterval    time.Duration `yaml:"stats_interval"`    // aggregates poll (default: 5s)
	PresenceInterval time.Duration `yaml:"presence_interval"` // presence poll (default: 3s)
	MaxStreamRetries int           `yaml:"max_stream_retries"`
}

// LoadConfig loads configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

// setDefaults sets default values for missing config fields.
func (c *Config) setDefaults() {
	if c.API.URL == "" {
		c.API.URL = "https://api.gitpusher.ai"
	}
	if c.Dashboard.Address == "" {
		c.Dashboard.Address = ":8090"
	}
	if c.Metrics.Address == "" {
		c.Metrics.Address = ":9091"
	}
	if v := os.Getenv("PUSHKIT_TOKEN"); v != "" {
		c.API.Token = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.API.URL == "" {
		return fmt.Errorf("api.url is required")
	}
	if c.API.Token == "" {
		return fmt.Errorf("api.token is required (or set PUSHKIT_TOKEN)")
	}
	return nil
}
