// Package config loads tool configuration from a YAML file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ocarinaa/formweaver/observability"
)

// Config is everything adjustable without rebuilding: font resolution,
// baseline tuning, dataset parsing, and logging.
type Config struct {
	// FontDir is scanned for {Family}.ttf/.otf files.
	FontDir string `yaml:"fontDir"`
	// Fonts maps a family name to an explicit font file, overriding FontDir.
	Fonts map[string]string `yaml:"fonts"`

	// BaselineFactor tunes how much of the font ascent the anchor-to-
	// baseline conversion uses. Zero means the built-in default.
	BaselineFactor float64 `yaml:"baselineFactor"`

	// CSVDelimiter is a single-character field separator; empty means comma.
	CSVDelimiter string `yaml:"csvDelimiter"`

	// Strict aborts a batch on the first failure instead of skipping.
	Strict bool `yaml:"strict"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"logLevel"`
}

// Default is the configuration used when no file exists.
func Default() Config {
	return Config{LogLevel: "info"}
}

// Load reads a YAML config. A missing file is not an error: the defaults
// apply. A present but malformed file is.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	if len(c.CSVDelimiter) > 1 {
		return fmt.Errorf("csvDelimiter %q must be a single character", c.CSVDelimiter)
	}
	if c.BaselineFactor < 0 || c.BaselineFactor > 2 {
		return fmt.Errorf("baselineFactor %v out of range", c.BaselineFactor)
	}
	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown logLevel %q", c.LogLevel)
	}
	return nil
}

// Level maps the configured name to a console log level.
func (c Config) Level() observability.Level {
	switch c.LogLevel {
	case "debug":
		return observability.LevelDebug
	case "warn":
		return observability.LevelWarn
	case "error":
		return observability.LevelError
	default:
		return observability.LevelInfo
	}
}

// Delimiter returns the CSV separator rune.
func (c Config) Delimiter() rune {
	if c.CSVDelimiter == "" {
		return ','
	}
	return rune(c.CSVDelimiter[0])
}
