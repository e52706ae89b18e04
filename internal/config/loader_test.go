package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cartable-app/cartable/pkg/constants"
	"github.com/cartable-app/cartable/pkg/logger"
)

func writeConfigFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
}

// watchedViper builds a viper bound to one explicit config file, the way
// LoadConfig does minus the search paths.
func watchedViper(t *testing.T, path string) *viper.Viper {
	t.Helper()
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())
	return v
}

func TestLoadConfig_DefaultsWithoutFile(t *testing.T) {
	oldWD, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { require.NoError(t, os.Chdir(oldWD)) })

	cfg, v, err := LoadConfig(logger.NewNoopLogger())
	require.NoError(t, err)
	require.NotNil(t, v)

	assert.Equal(t, constants.DefaultBaseURL, cfg.API.BaseURL)
	assert.Equal(t, constants.APIVersion, cfg.API.Version)
	assert.Equal(t, "memory", cfg.Store.Driver)
}

func TestWatch_ReloadsOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cartable.yaml")
	writeConfigFile(t, path, "gate:\n  delay: 700ms\n")

	v := watchedViper(t, path)
	cfg, err := unmarshal(v)
	require.NoError(t, err)
	require.Equal(t, 700*time.Millisecond, cfg.Gate.Delay)

	var mu sync.Mutex
	var got *Config
	Watch(v, logger.NewNoopLogger(), func(fresh *Config) {
		mu.Lock()
		got = fresh
		mu.Unlock()
	})

	writeConfigFile(t, path, "gate:\n  delay: 50ms\n")
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return got != nil && got.Gate.Delay == 50*time.Millisecond
	}, 3*time.Second, 20*time.Millisecond)
}

func TestWatch_SkipsInvalidEdit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cartable.yaml")
	writeConfigFile(t, path, "gate:\n  concurrency: 3\n")

	v := watchedViper(t, path)

	var mu sync.Mutex
	applied := 0
	Watch(v, logger.NewNoopLogger(), func(*Config) {
		mu.Lock()
		applied++
		mu.Unlock()
	})

	// concurrency below 1 fails validation, so the edit must never apply.
	writeConfigFile(t, path, "gate:\n  concurrency: 0\n")
	assert.Never(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return applied != 0
	}, time.Second, 50*time.Millisecond)
}
