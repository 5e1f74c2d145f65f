// Package config loads the optional addressinfo configuration file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the tunable settings of an invocation. CLI flags override any
// value loaded from a file.
type Config struct {
	// InfoURL is the IP-intelligence service base URL
	InfoURL string `yaml:"info_url"`

	// WeatherURL is the weather service base URL
	WeatherURL string `yaml:"weather_url"`

	// EchoCount is the number of echo requests per latency measurement
	EchoCount int `yaml:"echo_count"`

	// TimeoutMS is the per-call timeout for probes, traces and lookups
	TimeoutMS int `yaml:"timeout_ms"`

	// Workers bounds the number of concurrent address pipelines
	Workers int `yaml:"workers"`

	// LogLevel is one of debug, info, warning, error
	LogLevel string `yaml:"log_level"`
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		EchoCount: 10,
		TimeoutMS: 2000,
		Workers:   4,
		LogLevel:  "error",
	}
}

// Load reads the configuration file at path over the defaults. An empty path
// returns the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if cfg.EchoCount < 1 {
		return cfg, fmt.Errorf("echo_count must be positive, got %d", cfg.EchoCount)
	}
	if cfg.TimeoutMS < 100 || cfg.TimeoutMS > 30000 {
		return cfg, fmt.Errorf("timeout_ms must be between 100 and 30000, got %d", cfg.TimeoutMS)
	}
	if cfg.Workers < 1 || cfg.Workers > 64 {
		return cfg, fmt.Errorf("workers must be between 1 and 64, got %d", cfg.Workers)
	}
	return cfg, nil
}
