// Package config loads the application configuration from a TOML file with
// environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"

	"github.com/contactkeval/option-screener/internal/screener"
)

// Config represents the application configuration.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Screener ScreenerConfig `toml:"screener"`
	Provider ProviderConfig `toml:"provider"`
	Logging  LoggingConfig  `toml:"logging"`
}

type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port" validate:"min=1,max=65535"`
}

type ScreenerConfig struct {
	// Concurrency bounds the per-expiration worker pool; 0 means one
	// worker per expiration date.
	Concurrency     int     `toml:"concurrency" validate:"min=0"`
	ReturnThreshold float64 `toml:"return_threshold" validate:"min=0"`

	// Where is an optional row filter expression applied to every scan.
	Where string `toml:"where"`
}

type ProviderConfig struct {
	// Source selects the market data backend.
	Source         string `toml:"source" validate:"oneof=yahoo synthetic"`
	BaseURL        string `toml:"base_url" validate:"omitempty,url"`
	TimeoutSeconds int    `toml:"timeout_seconds" validate:"min=0"`
	RateLimit      int    `toml:"rate_limit" validate:"min=0"`
}

type LoggingConfig struct {
	Level string `toml:"level" validate:"oneof=trace debug info warn error"`
}

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Screener: ScreenerConfig{
			Concurrency:     screener.DefaultConcurrency,
			ReturnThreshold: screener.DefaultReturnThreshold,
		},
		Provider: ProviderConfig{
			Source:    "yahoo",
			RateLimit: 5,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads the TOML file at path (optional), applies environment
// overrides, and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
		if err := toml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv lets the environment override the listen port and provider
// selection, the two settings that differ between deployments.
func (c *Config) applyEnv() {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}
	if source := os.Getenv("OPTION_SCREENER_SOURCE"); source != "" {
		c.Provider.Source = source
	}
	if base := os.Getenv("OPTION_SCREENER_BASE_URL"); base != "" {
		c.Provider.BaseURL = base
	}
	if level := os.Getenv("OPTION_SCREENER_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

// Validate checks the configuration against its struct tags.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
