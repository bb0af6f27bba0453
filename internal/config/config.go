// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads pipeline-wide settings (parse concurrency, agent
// batch size/delay, backend selection) from an optional YAML file, with
// environment variable overrides for secrets that shouldn't live on disk.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds settings shared across analyze and combine runs that a
// user would otherwise have to repeat as flags on every invocation.
type Config struct {
	Agent   AgentConfig   `yaml:"agent"`
	Parse   ParseConfig   `yaml:"parse"`
	Logging LoggingConfig `yaml:"logging"`
}

type AgentConfig struct {
	Backend    string `yaml:"backend"`
	BaseURL    string `yaml:"base_url"`
	APIKey     string `yaml:"api_key"`
	Model      string `yaml:"model"`
	BatchSize  int    `yaml:"batch_size"`
	MaxRetries int    `yaml:"max_retries"`
}

type ParseConfig struct {
	Concurrency int `yaml:"concurrency"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no --config file is given.
func Default() *Config {
	return &Config{
		Agent: AgentConfig{
			Backend:    "mock",
			BatchSize:  10,
			MaxRetries: 3,
		},
		Parse: ParseConfig{
			Concurrency: 0, // 0 means runtime.NumCPU() at the call site
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a YAML config file at path, falling back to Default() when
// the file doesn't exist. Environment variables always win over file
// values so secrets never need to be checked into a config file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		cfg.applyEnvOverrides()
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	cfg.applyEnvOverrides()
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("CARRICK_BACKEND_API_KEY"); key != "" {
		c.Agent.APIKey = key
	}
	if url := os.Getenv("CARRICK_BACKEND_URL"); url != "" {
		c.Agent.BaseURL = url
	}
	if backend := os.Getenv("CARRICK_BACKEND"); backend != "" {
		c.Agent.Backend = backend
	}
}
