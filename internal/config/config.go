package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"
)

const (
	defaultTop       = 10
	defaultWorkers   = 1
	defaultBatchSize = 1024
	defaultLogLevel  = "info"
)

// Config controls a run. It can be read from a TOML file; command line
// flags override file values.
type Config struct {
	Top       int    `toml:"top"`
	Workers   int    `toml:"workers"`
	BatchSize int    `toml:"batch_size"`
	Strict    bool   `toml:"strict"`
	Notional  bool   `toml:"notional"`
	LogLevel  string `toml:"log_level"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Top:       defaultTop,
		Workers:   defaultWorkers,
		BatchSize: defaultBatchSize,
		LogLevel:  defaultLogLevel,
	}
}

// Load reads a TOML file on top of the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("load config %s: unknown key %q", path, undecoded[0].String())
	}
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) withDefaults() Config {
	if c.Top == 0 {
		c.Top = defaultTop
	}
	if c.Workers == 0 {
		c.Workers = defaultWorkers
	}
	if c.BatchSize == 0 {
		c.BatchSize = defaultBatchSize
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	return c
}

// Validate checks if the configuration is usable.
func (c Config) Validate() error {
	if c.Top <= 0 {
		return fmt.Errorf("invalid config: top must be > 0")
	}
	if c.Workers <= 0 {
		return fmt.Errorf("invalid config: workers must be > 0")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("invalid config: batch_size must be > 0")
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel.
func (c Config) Level() (zerolog.Level, error) {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid config: log_level: %w", err)
	}
	return level, nil
}
