package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/cartable-app/cartable/internal/config"
	"github.com/cartable-app/cartable/pkg/constants"
)

const stateKeyPrefix = "cartable:state:"

// redisStore is a Redis-backed StateStore, for deployments sharing client
// state across processes (a bot or a fronting proxy farm).
type redisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Redis-backed StateStore.
func NewRedisStore(cfg config.RedisConfig) StateStore {
	return &redisStore{client: redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	})}
}

// NewRedisStoreWithClient wraps an existing client; tests use this with a
// miniredis address.
func NewRedisStoreWithClient(client *redis.Client) StateStore {
	return &redisStore{client: client}
}

func (s *redisStore) Get(ctx context.Context, key constants.StateKey) (string, bool, error) {
	v, err := s.client.Get(ctx, stateKeyPrefix+string(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read state key %q: %w", key, err)
	}
	return v, true, nil
}

func (s *redisStore) Set(ctx context.Context, key constants.StateKey, value string) error {
	if err := s.client.Set(ctx, stateKeyPrefix+string(key), value, 0).Err(); err != nil {
		return fmt.Errorf("failed to write state key %q: %w", key, err)
	}
	return nil
}

func (s *redisStore) Delete(ctx context.Context, keys ...constants.StateKey) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, 0, len(keys))
	for _, key := range keys {
		full = append(full, stateKeyPrefix+string(key))
	}
	if err := s.client.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("failed to delete state keys: %w", err)
	}
	return nil
}

func (s *redisStore) Close() error { return s.client.Close() }
