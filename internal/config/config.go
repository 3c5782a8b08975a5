// Package config reads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/japaniel/narrator/internal/logging"
)

// Config holds the settings read once at process start.
type Config struct {
	DefaultLanguage string        `env:"NARRATOR_DEFAULT_LANGUAGE" envDefault:"en"`
	HarvestEnabled  bool          `env:"NARRATOR_HARVEST_ENABLED" envDefault:"false"`
	DBPath          string        `env:"NARRATOR_DB_PATH" envDefault:"narrator.db"`
	ThesaurusPath   string        `env:"NARRATOR_THESAURUS_PATH"`
	ThesaurusURL    string        `env:"NARRATOR_THESAURUS_URL"`
	HarvestTimeout  time.Duration `env:"NARRATOR_HARVEST_TIMEOUT" envDefault:"5s"`
	HarvestWorkers  int           `env:"NARRATOR_HARVEST_WORKERS" envDefault:"4"`
	HarvestDepth    int           `env:"NARRATOR_HARVEST_DEPTH" envDefault:"1"`
	LogLevel        string        `env:"NARRATOR_LOG_LEVEL" envDefault:"info"`
	LogJSON         bool          `env:"NARRATOR_LOG_JSON" envDefault:"false"`
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.DefaultLanguage = strings.ToLower(strings.TrimSpace(cfg.DefaultLanguage))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the narrator can not run with.
func (c Config) Validate() error {
	var errs []error
	if c.DefaultLanguage == "" {
		errs = append(errs, errors.New("NARRATOR_DEFAULT_LANGUAGE must not be empty"))
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("NARRATOR_DB_PATH must not be empty"))
	}
	if c.HarvestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("NARRATOR_HARVEST_TIMEOUT must be positive, got %s", c.HarvestTimeout))
	}
	if c.HarvestWorkers < 1 {
		errs = append(errs, fmt.Errorf("NARRATOR_HARVEST_WORKERS must be at least 1, got %d", c.HarvestWorkers))
	}
	if c.HarvestDepth < 1 {
		errs = append(errs, fmt.Errorf("NARRATOR_HARVEST_DEPTH must be at least 1, got %d", c.HarvestDepth))
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("NARRATOR_LOG_LEVEL: %w", err))
	}
	return errors.Join(errs...)
}
