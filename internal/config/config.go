package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Service struct {
		BaseURL           string   `yaml:"baseURL"`
		Tenant            string   `yaml:"tenant"`
		TokenURL          string   `yaml:"tokenURL"`
		ClientID          string   `yaml:"clientID"`
		ClientSecret      string   `yaml:"clientSecret"`
		Scopes            []string `yaml:"scopes"`
		RequestsPerSecond float64  `yaml:"requestsPerSecond"`
		TimeoutSeconds    int      `yaml:"timeoutSeconds"`
	} `yaml:"service"`

	// WarningDays is the password-age warning window.
	WarningDays int `yaml:"warningDays"`

	// OutputPath is the directory generated reports are written to.
	OutputPath string `yaml:"outputPath"`

	Thresholds struct {
		StorageWarningPercent  float64 `yaml:"storageWarningPercent"`
		StorageCriticalPercent float64 `yaml:"storageCriticalPercent"`
	} `yaml:"thresholds"`

	// Concurrency bounds the per-entity enrichment worker pool.
	Concurrency int `yaml:"concurrency"`

	// ProgressEvery emits a progress notification every N records.
	ProgressEvery int `yaml:"progressEvery"`
}

// Default returns a config with the stock thresholds applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads a YAML config file and applies defaults for absent keys.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.WarningDays <= 0 {
		c.WarningDays = 30
	}
	if c.OutputPath == "" {
		c.OutputPath = "."
	}
	if c.Thresholds.StorageWarningPercent <= 0 {
		c.Thresholds.StorageWarningPercent = 80
	}
	if c.Thresholds.StorageCriticalPercent <= 0 {
		c.Thresholds.StorageCriticalPercent = 90
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}
	if c.ProgressEvery <= 0 {
		c.ProgressEvery = 50
	}
	if c.Service.RequestsPerSecond <= 0 {
		c.Service.RequestsPerSecond = 10
	}
	if c.Service.TimeoutSeconds <= 0 {
		c.Service.TimeoutSeconds = 300
	}
}
