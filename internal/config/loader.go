package config

import (
	"context"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/cartable-app/cartable/pkg/constants"
	"github.com/cartable-app/cartable/pkg/errors"
	"github.com/cartable-app/cartable/pkg/logger"
)

// LoadConfig loads the configuration from file and environment variables.
// A missing config file is not an error; defaults and environment apply.
// The returned viper handle feeds Watch for hot reloads.
func LoadConfig(log logger.Logger) (*Config, *viper.Viper, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("cartable")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/cartable/")
	v.AddConfigPath("$HOME/.config/cartable")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, nil, errors.ErrUsage("configuration file is unreadable").WithCause(err)
		}
	}

	v.SetEnvPrefix("CARTABLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg, err := unmarshal(v)
	if err != nil {
		return nil, nil, err
	}
	return cfg, v, nil
}

// Watch re-reads the configuration whenever the backing file changes and
// hands the fresh copy to onChange. Invalid edits are logged and skipped.
func Watch(v *viper.Viper, log logger.Logger, onChange func(*Config)) {
	v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := unmarshal(v)
		if err != nil {
			log.Warn(context.Background(), "ignoring invalid configuration change", logger.Fields{
				"file":  e.Name,
				"error": err.Error(),
			})
			return
		}
		log.Info(context.Background(), "configuration reloaded", logger.Fields{"file": e.Name})
		onChange(cfg)
	})
	v.WatchConfig()
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.ErrUsage("failed to unmarshal configuration").WithCause(err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.ErrUsage(err.Error())
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", constants.DefaultBaseURL)
	v.SetDefault("api.version", constants.APIVersion)
	v.SetDefault("api.request_timeout", "30s")
	v.SetDefault("gate.concurrency", constants.DefaultGateConcurrency)
	v.SetDefault("gate.delay", constants.DefaultGateDelay)
	v.SetDefault("store.driver", "memory")
	v.SetDefault("roster.max_age", constants.RosterSnapshotMaxAge)
	v.SetDefault("roster.sweep_interval", constants.RosterCacheSweepInterval)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "cartable")
}
