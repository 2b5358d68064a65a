package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

var (
	ErrInvalidRegistryURL = errors.New("registry URL must start with http:// or https://")
)

// DefaultRegistryURL is the npm registry queried for latest versions
const DefaultRegistryURL = "https://registry.npmjs.org"

// Config represents the application configuration
type Config struct {
	DefaultTool string         `yaml:"default_tool,omitempty"`
	Registry    RegistryConfig `yaml:"registry"`
	Npm         NpmConfig      `yaml:"npm"`
	Output      OutputConfig   `yaml:"output"`
}

// RegistryConfig holds npm registry settings
type RegistryConfig struct {
	URL string `yaml:"url"`
}

// NpmConfig holds settings for invoking the npm package manager
type NpmConfig struct {
	Binary string `yaml:"binary"` // Path or name of the npm executable (default: "npm")
}

// OutputConfig holds console output preferences
type OutputConfig struct {
	NoColor bool `yaml:"no_color,omitempty"`
}

// Default returns a Config populated with default values
func Default() *Config {
	return &Config{
		Registry: RegistryConfig{URL: DefaultRegistryURL},
		Npm:      NpmConfig{Binary: "npm"},
	}
}

// ConfigDir returns the gup configuration directory (XDG standard)
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	// Check XDG_CONFIG_HOME first, fallback to ~/.config
	xdgConfig := os.Getenv("XDG_CONFIG_HOME")
	if xdgConfig == "" {
		xdgConfig = filepath.Join(home, ".config")
	}

	return filepath.Join(xdgConfig, "gup"), nil
}

// DefaultConfigPath returns the default config file path
func DefaultConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads configuration from the default config file.
// A missing file yields the default configuration without error.
func Load() (*Config, error) {
	path, err := DefaultConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom reads configuration from a specific file path
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Re-fill fields an explicit empty value would blank out
	if cfg.Registry.URL == "" {
		cfg.Registry.URL = DefaultRegistryURL
	}
	if cfg.Npm.Binary == "" {
		cfg.Npm.Binary = "npm"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration for invalid values
func (c *Config) Validate() error {
	url := c.Registry.URL
	if len(url) < 8 || (url[:7] != "http://" && url[:8] != "https://") {
		return fmt.Errorf("%w: got %q", ErrInvalidRegistryURL, url)
	}
	return nil
}

// Save writes the configuration to the default config file
func (c *Config) Save() error {
	path, err := DefaultConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes the configuration to a specific file path
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}
