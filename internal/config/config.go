// Package config implements layered configuration: built-in defaults,
// overridden by an optional JSON file, overridden by environment
// variables, overridden by CLI flags. Grounded on dmmcquay-katago-mcp's
// internal/config (Load/applyEnvOverrides/validate), trimmed to the
// settings the engine and its GTP front end actually consume.
package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/Sir-Teo/tenuki/internal/logging"
)

// Config is the engine's full runtime configuration.
type Config struct {
	Engine  EngineConfig  `json:"engine"`
	Logging LoggingConfig `json:"logging"`
}

// EngineConfig sets the initial board size and komi and tunes the move
// generator (Samples, Workers and Seed map onto internal/genmove.Config).
type EngineConfig struct {
	BoardSize int     `json:"boardSize"`
	Komi      float64 `json:"komi"`
	Samples   int     `json:"samples"`
	Workers   int     `json:"workers"`
	Seed      int64   `json:"seed"`
}

// LoggingConfig controls the structured stderr logger.
type LoggingConfig struct {
	Level string `json:"level"`
}

func defaults() *Config {
	return &Config{
		Engine: EngineConfig{
			BoardSize: 19,
			Komi:      6.5,
			Samples:   48,
			Workers:   4,
			Seed:      1,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load builds the effective configuration: defaults, then configPath (if
// non-empty), then environment variables, then flagArgs parsed with Go's
// flag package. flagArgs is typically os.Args[1:]; a nil/empty slice
// skips the flag layer, which test callers rely on.
func Load(configPath string, flagArgs []string) (*Config, error) {
	cfg := defaults()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.applyFlags(flagArgs); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("TENUKI_BOARD_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Engine.BoardSize = n
		}
	}
	if v := os.Getenv("TENUKI_KOMI"); v != "" {
		if k, err := strconv.ParseFloat(v, 64); err == nil {
			c.Engine.Komi = k
		}
	}
	if v := os.Getenv("TENUKI_SAMPLES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Engine.Samples = n
		}
	}
	if v := os.Getenv("TENUKI_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Engine.Workers = n
		}
	}
	if v := os.Getenv("TENUKI_SEED"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Engine.Seed = n
		}
	}
	if v := os.Getenv("TENUKI_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

func (c *Config) applyFlags(args []string) error {
	if len(args) == 0 {
		return nil
	}
	fs := flag.NewFlagSet("tenuki", flag.ContinueOnError)
	boardSize := fs.Int("boardsize", c.Engine.BoardSize, "initial board size")
	komi := fs.Float64("komi", c.Engine.Komi, "initial komi")
	samples := fs.Int("samples", c.Engine.Samples, "playouts per genmove")
	workers := fs.Int("workers", c.Engine.Workers, "max concurrent playout workers")
	seed := fs.Int64("seed", c.Engine.Seed, "RNG seed")
	logLevel := fs.String("log-level", c.Logging.Level, "log level: debug, info, warn, error")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	c.Engine.BoardSize = *boardSize
	c.Engine.Komi = *komi
	c.Engine.Samples = *samples
	c.Engine.Workers = *workers
	c.Engine.Seed = *seed
	c.Logging.Level = *logLevel
	return nil
}

func (c *Config) validate() error {
	if c.Engine.BoardSize < 1 || c.Engine.BoardSize > 25 {
		return fmt.Errorf("engine.boardSize must be in [1, 25], got %d", c.Engine.BoardSize)
	}
	if c.Engine.Samples < 1 {
		c.Engine.Samples = 1
	}
	if c.Engine.Workers < 1 {
		c.Engine.Workers = 1
	}
	return nil
}

// LogLevel parses the configured logging level.
func (c *Config) LogLevel() logging.Level {
	return logging.ParseLevel(c.Logging.Level)
}

// ConfigPathFromEnv resolves the config file path the same way
// dmmcquay-katago-mcp's GetConfigPath does: an explicit env var first,
// falling back to a config.json in the working directory.
func ConfigPathFromEnv() string {
	if path := os.Getenv("TENUKI_CONFIG"); path != "" {
		return path
	}
	if _, err := os.Stat("config.json"); err == nil {
		return "config.json"
	}
	return ""
}
