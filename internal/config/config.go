// Package config holds the tasoctpf configuration tree, stored as yaml
// in the tool's home directory (~/.tasoctpf/config.yaml by default).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all tasoctpf configuration.
type Config struct {
	// Archive configures the MAST portal client.
	Archive ArchiveConfig `yaml:"archive"`

	// Cutout configures the TESSCut client.
	Cutout CutoutConfig `yaml:"cutout"`

	// Cache configures the local product cache.
	Cache CacheConfig `yaml:"cache"`

	// Logging configures debug file logging.
	Logging LoggingConfig `yaml:"logging"`
}

// ArchiveConfig configures the MAST portal client.
type ArchiveConfig struct {
	BaseURL string `yaml:"base_url"`
	Timeout string `yaml:"timeout"` // Go duration string
}

// CutoutConfig configures the TESSCut client.
type CutoutConfig struct {
	BaseURL string `yaml:"base_url"`
	Timeout string `yaml:"timeout"`
}

// CacheConfig configures the product cache.
type CacheConfig struct {
	Dir     string `yaml:"dir"`
	Enabled bool   `yaml:"enabled"`
}

// LoggingConfig configures debug file logging.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Level      string          `yaml:"level"`
	Categories map[string]bool `yaml:"categories,omitempty"`
}

// Home returns the tool's home directory (~/.tasoctpf), creatable lazily.
func Home() string {
	if h := os.Getenv("TASOCTPF_HOME"); h != "" {
		return h
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".tasoctpf"
	}
	return filepath.Join(home, ".tasoctpf")
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(Home(), "config.yaml")
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Archive: ArchiveConfig{
			BaseURL: "https://mast.stsci.edu",
			Timeout: "120s",
		},
		Cutout: CutoutConfig{
			BaseURL: "https://mast.stsci.edu/tesscut/api/v0.1",
			Timeout: "300s",
		},
		Cache: CacheConfig{
			Dir:     filepath.Join(Home(), "cache"),
			Enabled: true,
		},
		Logging: LoggingConfig{
			DebugMode: false,
			Level:     "info",
		},
	}
}

// Load reads a config file, fills unset fields from defaults, and
// applies environment overrides. A missing file is not an error: the
// defaults (plus env) are returned.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// defaults only
	case err != nil:
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config as yaml, creating parent directories.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

func (c *Config) validate() error {
	if _, err := c.ArchiveTimeout(); err != nil {
		return fmt.Errorf("config: archive.timeout: %w", err)
	}
	if _, err := c.CutoutTimeout(); err != nil {
		return fmt.Errorf("config: cutout.timeout: %w", err)
	}
	return nil
}

// ArchiveTimeout parses the archive timeout duration.
func (c *Config) ArchiveTimeout() (time.Duration, error) {
	return time.ParseDuration(c.Archive.Timeout)
}

// CutoutTimeout parses the cutout timeout duration.
func (c *Config) CutoutTimeout() (time.Duration, error) {
	return time.ParseDuration(c.Cutout.Timeout)
}
