package config

import (
	"fmt"
	"time"

	"github.com/cartable-app/cartable/pkg/constants"
)

// Config holds the client configuration.
type Config struct {
	API     APIConfig     `mapstructure:"api"`
	Gate    GateConfig    `mapstructure:"gate"`
	Store   StoreConfig   `mapstructure:"store"`
	Roster  RosterConfig  `mapstructure:"roster"`
	Log     LogConfig     `mapstructure:"log"`
	Tracing TracingConfig `mapstructure:"tracing"`
}

type APIConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	Version        string        `mapstructure:"version"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
}

type GateConfig struct {
	Concurrency int64         `mapstructure:"concurrency"`
	Delay       time.Duration `mapstructure:"delay"`
}

type StoreConfig struct {
	// Driver selects the persistent state backend: memory, sqlite or redis.
	Driver string `mapstructure:"driver"`
	// Path is the database file location for the sqlite driver.
	Path string `mapstructure:"path"`

	Redis RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Address      string `mapstructure:"address"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
}

type RosterConfig struct {
	// Path is the snapshot database file; empty keeps snapshots in memory only.
	Path          string        `mapstructure:"path"`
	MaxAge        time.Duration `mapstructure:"max_age"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	ServiceName string `mapstructure:"service_name"`
}

// Validate checks for essential configuration values.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url must not be empty")
	}
	if c.Gate.Concurrency < 1 {
		return fmt.Errorf("gate.concurrency must be at least 1, got %d", c.Gate.Concurrency)
	}
	if c.Gate.Delay < 0 {
		return fmt.Errorf("gate.delay must not be negative")
	}
	switch c.Store.Driver {
	case "memory", "sqlite", "redis":
	default:
		return fmt.Errorf("store.driver must be one of memory, sqlite, redis; got %q", c.Store.Driver)
	}
	if c.Store.Driver == "sqlite" && c.Store.Path == "" {
		return fmt.Errorf("store.path is required for the sqlite driver")
	}
	if c.Store.Driver == "redis" && c.Store.Redis.Address == "" {
		return fmt.Errorf("store.redis.address is required for the redis driver")
	}
	return nil
}

// Default returns a configuration usable without any file or environment.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:        constants.DefaultBaseURL,
			Version:        constants.APIVersion,
			RequestTimeout: 30 * time.Second,
		},
		Gate: GateConfig{
			Concurrency: constants.DefaultGateConcurrency,
			Delay:       constants.DefaultGateDelay,
		},
		Store: StoreConfig{
			Driver: "memory",
		},
		Roster: RosterConfig{
			MaxAge:        constants.RosterSnapshotMaxAge,
			SweepInterval: constants.RosterCacheSweepInterval,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			ServiceName: "cartable",
		},
	}
}
