// Package config loads process configuration for the regionmap executables
// from the environment and optional dotenv files.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/signalsfoundry/regionmap/internal/logging"
	"github.com/signalsfoundry/regionmap/internal/mapbridge"
	"github.com/signalsfoundry/regionmap/internal/observability"
)

// Config is the shared configuration of cmd/mapd and cmd/replay.
type Config struct {
	DatasetPath   string        `env:"REGIONMAP_DATASET" envDefault:"data/map.json"`
	GRPCAddr      string        `env:"REGIONMAP_GRPC_ADDR" envDefault:":50051"`
	MetricsAddr   string        `env:"REGIONMAP_METRICS_ADDR" envDefault:":9090"`
	FrameInterval time.Duration `env:"REGIONMAP_FRAME_INTERVAL" envDefault:"16ms"`
	HoverMode     string        `env:"REGIONMAP_HOVER_MODE" envDefault:"explicit"`

	Log     logging.Config              `envPrefix:"LOG_"`
	Tracing observability.TracingConfig `envPrefix:"REGIONMAP_TRACING_"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// LoadDotEnv merges dotenv files into the process environment. Missing
// files are skipped; variables already set are never overridden.
func LoadDotEnv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Load reads dotenv files, then parses and validates the environment.
func Load(files ...string) (Config, error) {
	if err := LoadDotEnv(files...); err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values the environment parser cannot.
func (c Config) Validate() error {
	if c.FrameInterval < 0 {
		return fmt.Errorf("REGIONMAP_FRAME_INTERVAL must not be negative, got %s", c.FrameInterval)
	}
	if _, err := c.ParsedHoverMode(); err != nil {
		return fmt.Errorf("REGIONMAP_HOVER_MODE: %w", err)
	}
	return nil
}

// ParsedHoverMode returns HoverMode as a mapbridge.HoverMode.
func (c Config) ParsedHoverMode() (mapbridge.HoverMode, error) {
	return mapbridge.ParseHoverMode(c.HoverMode)
}
