package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ClientConfig is the pushctl configuration, stored in
// ~/.pushkit/config.yaml and overridable via environment variables.
type ClientConfig struct {
	APIURL      string `yaml:"api_url"`
	Token       string `yaml:"token"`
	HistoryPath string `yaml:"history_path"`
}

// DefaultClientPath returns the default client config location.
func DefaultClientPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "pushkit.yaml"
	}
	return filepath.Join(home, ".pushkit", "config.yaml")
}

// SetDefaults applies default values for missing configuration.
func (c *ClientConfig) SetDefaults() {
	if c.APIURL == "" {
		c.APIURL = "https://api.gitpusher.ai"
	}
}

// Validate checks the configuration for errors.
func (c *ClientConfig) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil {
		return fmt.Errorf("invalid api_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("api_url must be http or https, got %q", u.Scheme)
	}
	return nil
}

// LoadClient reads the client config from path. A missing file is not an
// error: defaults apply. PUSHKIT_API_URL and PUSHKIT_TOKEN override the
// file values.
func LoadClient(path string) (*ClientConfig, error) {
	cfg := &ClientConfig{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if v := os.Getenv("PUSHKIT_API_URL"); v != "" {
		cfg.APIURL = v
	}
	if v := os.Getenv("PUSHKIT_TOKEN"); v != "" {
		cfg.Token = v
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the client config to path, creating the directory if needed.
// The file holds the session token, so permissions are restricted.
func (c *ClientConfig) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
