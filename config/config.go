// Package config loads jsonextract run configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config describes one generation run.
type Config struct {
	Source SourceConfig `yaml:"source"`

	// Filter is an optional CEL predicate selecting the emitted columns.
	Filter string `yaml:"filter"`

	// StrictNames rejects column names with empty dot segments.
	StrictNames bool `yaml:"strict_names"`

	// Output is the file the fragments are written to. Empty means stdout.
	Output string `yaml:"output"`

	// LogLevel is one of debug, info, warn or error.
	LogLevel string `yaml:"log_level"`
}

// SourceConfig selects where the schema export is read from. Exactly one of CSV and
// Postgres must be set.
type SourceConfig struct {
	CSV      string          `yaml:"csv"`
	Postgres *PostgresConfig `yaml:"postgres"`
}

// PostgresConfig points at a table holding the export.
type PostgresConfig struct {
	DSN     string `yaml:"dsn"`
	Table   string `yaml:"table"`
	OrderBy string `yaml:"order_by"`
}

// Load reads and validates the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	hasCSV := c.Source.CSV != ""
	hasPG := c.Source.Postgres != nil
	switch {
	case hasCSV && hasPG:
		return errors.New("source: csv and postgres are mutually exclusive")
	case !hasCSV && !hasPG:
		return errors.New("source: one of csv or postgres is required")
	}
	if hasPG {
		if c.Source.Postgres.DSN == "" {
			return errors.New("source.postgres.dsn is required")
		}
		if c.Source.Postgres.Table == "" {
			return errors.New("source.postgres.table is required")
		}
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level returns the slog level named by LogLevel, defaulting to info.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if c.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(strings.ToLower(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return level, nil
}
