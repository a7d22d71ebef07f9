// Package cache stores provider records so repeated availability checks do not hit the backend.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"homecare-portal/internal/models"
)

// ErrMiss is returned when the provider is not cached.
var ErrMiss = errors.New("cache miss")

// ProviderCache reads and writes provider records.
type ProviderCache interface {
	GetProvider(ctx context.Context, id models.ID) (models.Provider, error)
	SetProvider(ctx context.Context, p models.Provider) error
}

// RedisProviderCache keeps providers as JSON under provider:<id>.
type RedisProviderCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisProviderCache wraps a redis client.
func NewRedisProviderCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisProviderCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisProviderCache{client: client, ttl: ttl, logger: logger}
}

// NewRedisClient dials redis and verifies the connection.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

func providerKey(id models.ID) string {
	return "provider:" + id.String()
}

// GetProvider returns the cached provider or ErrMiss.
func (c *RedisProviderCache) GetProvider(ctx context.Context, id models.ID) (models.Provider, error) {
	raw, err := c.client.Get(ctx, providerKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.Provider{}, ErrMiss
	}
	if err != nil {
		return models.Provider{}, fmt.Errorf("redis get: %w", err)
	}
	var p models.Provider
	if err := json.Unmarshal(raw, &p); err != nil {
		c.logger.Warn("dropping corrupt provider cache entry", zap.String("provider_id", id.String()), zap.Error(err))
		_ = c.client.Del(ctx, providerKey(id)).Err()
		return models.Provider{}, ErrMiss
	}
	return p, nil
}

// SetProvider caches p for the configured ttl.
func (c *RedisProviderCache) SetProvider(ctx context.Context, p models.Provider) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, providerKey(p.ID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// NoopProviderCache never stores anything.
type NoopProviderCache struct{}

func (NoopProviderCache) GetProvider(context.Context, models.ID) (models.Provider, error) {
	return models.Provider{}, ErrMiss
}

func (NoopProviderCache) SetProvider(context.Context, models.Provider) error { return nil }
