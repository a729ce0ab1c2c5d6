// Package config loads engine settings from a YAML file, a .env file and
// MEMORI_* environment variables, in that order of increasing precedence.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig indicates a setting outside its allowed range.
var ErrInvalidConfig = errors.New("invalid config")

// Config is built once at startup and passed by value.
type Config struct {
	// Database is the store descriptor, e.g. sqlite:///var/lib/memori.db
	// or badger:///var/lib/memori?sync_writes=true.
	Database string `yaml:"database"`

	// Namespace is the default namespace for callers that don't pick one.
	Namespace string `yaml:"namespace"`

	SchemaInit       bool          `yaml:"schema_init"`
	ConnectTimeout   time.Duration `yaml:"connect_timeout"`
	OperationTimeout time.Duration `yaml:"operation_timeout"`

	// SearchWorkers sizes the pool that searches collections in parallel.
	SearchWorkers int `yaml:"search_workers"`

	LogLevel string `yaml:"log_level"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Database:         "sqlite://" + filepath.ToSlash(defaultDBPath()),
		Namespace:        "default",
		SchemaInit:       true,
		ConnectTimeout:   5 * time.Second,
		OperationTimeout: 30 * time.Second,
		SearchWorkers:    4,
		LogLevel:         "info",
	}
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".memori", "memori.db")
	}
	return filepath.Join(home, ".memori", "memori.db")
}

// Load builds a Config from the defaults, the optional YAML file at path,
// a .env file in the working directory and the environment.
func Load(path string) (Config, error) {
	cfg := Default()

	// A missing .env is not an error.
	_ = godotenv.Load()

	if path != "" {
		if err := parseFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("config %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func parseFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	data = []byte(os.ExpandEnv(string(data)))

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	// An empty file decodes as io.EOF and leaves the defaults alone.
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("MEMORI_DATABASE"); v != "" {
		cfg.Database = v
	}
	if v := os.Getenv("MEMORI_NAMESPACE"); v != "" {
		cfg.Namespace = v
	}
	if v := os.Getenv("MEMORI_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("MEMORI_SCHEMA_INIT"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: MEMORI_SCHEMA_INIT=%q", ErrInvalidConfig, v)
		}
		cfg.SchemaInit = b
	}
	if v := os.Getenv("MEMORI_SEARCH_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: MEMORI_SEARCH_WORKERS=%q", ErrInvalidConfig, v)
		}
		cfg.SearchWorkers = n
	}
	for name, dst := range map[string]*time.Duration{
		"MEMORI_CONNECT_TIMEOUT":   &cfg.ConnectTimeout,
		"MEMORI_OPERATION_TIMEOUT": &cfg.OperationTimeout,
	} {
		v := os.Getenv(name)
		if v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q", ErrInvalidConfig, name, v)
		}
		*dst = d
	}
	return nil
}

// Validate checks that every setting is usable.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Database) == "" {
		return fmt.Errorf("%w: database is required", ErrInvalidConfig)
	}
	if c.ConnectTimeout < 0 || c.OperationTimeout < 0 {
		return fmt.Errorf("%w: timeouts must not be negative", ErrInvalidConfig)
	}
	if c.SearchWorkers < 1 {
		return fmt.Errorf("%w: search_workers must be at least 1", ErrInvalidConfig)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// SlogLevel returns the configured log level, or info when unset.
func (c Config) SlogLevel() slog.Level {
	l, err := parseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return l
}

func parseLevel(s string) (slog.Level, error) {
	if s == "" {
		return slog.LevelInfo, nil
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("%w: log_level %q", ErrInvalidConfig, s)
	}
	return l, nil
}
