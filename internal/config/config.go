// Package config loads versionstore server configuration
package config

import (
	"fmt"
	"os"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"
)

// Config is the full server configuration
type Config struct {
	GRPC          GRPCConfig          `yaml:"grpc"`
	Observability ObservabilityConfig `yaml:"observability"`
	Log           LogConfig           `yaml:"log"`
}

// GRPCConfig configures the gRPC listener
type GRPCConfig struct {
	Port            int  `yaml:"port"`
	MaxMessageBytes int  `yaml:"max_message_bytes"`
	Reflection      bool `yaml:"reflection"`
}

// ObservabilityConfig configures the metrics/health HTTP server
type ObservabilityConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// LogConfig configures structured logging
type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
	Caller bool   `yaml:"caller"`
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		GRPC: GRPCConfig{
			Port:            50051,
			MaxMessageBytes: 4 << 20,
			Reflection:      true,
		},
		Observability: ObservabilityConfig{
			Enabled: true,
			Port:    9090,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads a YAML file over the defaults and validates the result.
// An empty path returns the validated defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.GRPC),
		validation.Field(&c.Observability),
		validation.Field(&c.Log),
	)
}

func (c GRPCConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.MaxMessageBytes, validation.Required, validation.Min(1024)),
	)
}

func (c ObservabilityConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Port,
			validation.When(c.Enabled, validation.Required, validation.Min(1), validation.Max(65535))),
	)
}

func (c LogConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Level, validation.Required, validation.In("debug", "info", "warn", "error")),
	)
}
