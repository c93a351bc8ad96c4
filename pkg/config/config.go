// Package config provides configuration loading and management for volumeio.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"volumeio/internal/models"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Decode parameters
	Decode struct {
		// DataType is the storage type of decoded volumes. Empty keeps the
		// file's own sample type; anything else rescales on input.
		DataType string `yaml:"dataType"`

		// UseOffsets places MGH volumes at their stored centre instead of
		// centring the voxel grid on the origin
		UseOffsets bool `yaml:"useOffsets"`

		// Workers is how many volumes are decoded concurrently
		Workers int `yaml:"workers"`
	} `yaml:"decode"`

	// Output parameters
	Output struct {
		// Verbose enables debug logging
		Verbose bool `yaml:"verbose"`

		// Progress prints the fraction decoded after each slice
		Progress bool `yaml:"progress"`

		// Stats prints summary statistics of each decoded volume
		Stats bool `yaml:"stats"`

		// SlicesDir, when set, receives JPEG slices along every axis
		SlicesDir string `yaml:"slicesDir"`
	} `yaml:"output"`

	// Metrics parameters
	Metrics struct {
		// ListenAddress serves Prometheus metrics at /metrics when set
		ListenAddress string `yaml:"listenAddress"`
	} `yaml:"metrics"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Decode.DataType = ""
	cfg.Decode.UseOffsets = false
	cfg.Decode.Workers = runtime.NumCPU()

	cfg.Output.Verbose = false
	cfg.Output.Progress = true
	cfg.Output.Stats = true

	return cfg
}

// Validate checks values that cannot be represented by the YAML types alone.
func (c *Config) Validate() error {
	if _, err := models.ParseDataType(c.Decode.DataType); err != nil {
		return fmt.Errorf("decode.dataType: %w", err)
	}
	if c.Decode.Workers < 1 {
		return fmt.Errorf("decode.workers must be at least 1, got %d", c.Decode.Workers)
	}
	return nil
}

// DataType returns the parsed decode.dataType.
func (c *Config) DataType() models.DataType {
	t, _ := models.ParseDataType(c.Decode.DataType)
	return t
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	return SaveConfig(DefaultConfig(), configPath)
}
