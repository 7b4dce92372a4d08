// Package config loads tm's YAML configuration.
//
// Precedence, lowest first: built-in defaults, the YAML file, environment
// variables (TRIALMEM_JOURNAL, TRIALMEM_LOG_LEVEL, TRIALMEM_LOG_FORMAT).
// Command-line flags are applied by the CLI on top of the result.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where tm looks for a config file when none is given.
const DefaultPath = ".trialmem/config.yaml"

type Config struct {
	Journal JournalConfig `yaml:"journal"`
	Log     LogConfig     `yaml:"log"`
}

type JournalConfig struct {
	// Path of the SQLite audit journal. Empty disables journaling.
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads path on top of the defaults and applies environment overrides.
// A missing file is not an error when missingOK is set.
func Load(path string, missingOK bool) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && missingOK:
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg.Journal.Path = envOr("TRIALMEM_JOURNAL", cfg.Journal.Path)
	cfg.Log.Level = envOr("TRIALMEM_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = envOr("TRIALMEM_LOG_FORMAT", cfg.Log.Format)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks enumerated fields.
func (c *Config) Validate() error {
	if _, err := c.Log.slogLevel(); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("config: log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

// NewLogger builds a slog.Logger writing to w.
func (c LogConfig) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := c.slogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

func (c LogConfig) slogLevel() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.Level)); err != nil {
		return 0, fmt.Errorf("config: log.level: %w", err)
	}
	return l, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
