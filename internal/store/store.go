// Package store provides the persistent key-value state backing the client:
// device identifier, renewal token, challenge bypass pair and the time-boxed
// credential fallback. Three drivers exist; the client treats them uniformly
// through the StateStore interface.
package store

import (
	"context"

	"github.com/cartable-app/cartable/internal/config"
	"github.com/cartable-app/cartable/pkg/constants"
)

// StateStore is a small persistent key-value surface. Absent keys are
// reported through the bool, never through an error.
type StateStore interface {
	// Get returns the value for key, with false when the key is absent.
	Get(ctx context.Context, key constants.StateKey) (string, bool, error)

	// Set writes the value for key, overwriting any previous value.
	Set(ctx context.Context, key constants.StateKey, value string) error

	// Delete removes the given keys. Absent keys are not an error.
	Delete(ctx context.Context, keys ...constants.StateKey) error

	// Close releases the backing resources.
	Close() error
}

// Open builds the StateStore selected by the configuration.
func Open(cfg config.StoreConfig) (StateStore, error) {
	switch cfg.Driver {
	case "sqlite":
		return NewSQLiteStore(cfg.Path)
	case "redis":
		return NewRedisStore(cfg.Redis), nil
	default:
		return NewMemoryStore(), nil
	}
}

// AllStateKeys lists every key the client persists, for a full wipe on logout.
func AllStateKeys() []constants.StateKey {
	return []constants.StateKey{
		constants.StateKeyDeviceID,
		constants.StateKeyRenewalToken,
		constants.StateKeyUsername,
		constants.StateKeyChallengeBypass,
		constants.StateKeyCredentials,
	}
}
