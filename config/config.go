package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"

	hostbridge "github.com/wippyai/hostbridge"
	"github.com/wippyai/hostbridge/errors"
)

// Prefix is prepended to every environment variable name.
const Prefix = "HOSTBRIDGE"

// Config holds host configuration. Every field maps to HOSTBRIDGE_<tag>.
type Config struct {
	LogLevel       string        `envconfig:"LOG_LEVEL" default:"info"`
	LogDevelopment bool          `envconfig:"LOG_DEV" default:"false"`
	MemoryPages    uint32        `envconfig:"MEMORY_PAGES" default:"1"`
	MemoryLimit    uint32        `envconfig:"MEMORY_LIMIT_PAGES" default:"256"`
	TickInterval   time.Duration `envconfig:"TICK_INTERVAL" default:"16ms"`
	OriginX        int32         `envconfig:"INPUT_ORIGIN_X" default:"0"`
	OriginY        int32         `envconfig:"INPUT_ORIGIN_Y" default:"0"`
	FormatsFile    string        `envconfig:"FORMATS_FILE"`
	StrictUTF8     bool          `envconfig:"STRICT_UTF8" default:"false"`
	MetricsAddr    string        `envconfig:"METRICS_ADDR"`
}

// Load reads configuration from the environment and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "load environment")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from the environment or returns Default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel:     "info",
		MemoryPages:  1,
		MemoryLimit:  256,
		TickInterval: 16 * time.Millisecond,
	}
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	const maxPages = 1 << 32 / hostbridge.PageSize
	if c.MemoryLimit == 0 || c.MemoryLimit > maxPages {
		return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Path("MEMORY_LIMIT_PAGES").
			Value(c.MemoryLimit).
			Detail("must be between 1 and %d", maxPages).
			Build()
	}
	if c.MemoryPages == 0 || c.MemoryPages > c.MemoryLimit {
		return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Path("MEMORY_PAGES").
			Value(c.MemoryPages).
			Detail("must be between 1 and the limit %d", c.MemoryLimit).
			Build()
	}
	if c.TickInterval <= 0 {
		return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Path("TICK_INTERVAL").
			Value(c.TickInterval).
			Detail("must be positive").
			Build()
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}
