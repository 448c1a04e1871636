package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// ResponseCache holds raw upstream bodies for a limited time so repeated
// searches and detail views within the staleness window skip the network.
type ResponseCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, body []byte, ttl time.Duration)
}

type noCache struct{}

func (noCache) Get(context.Context, string) ([]byte, bool)         { return nil, false }
func (noCache) Set(context.Context, string, []byte, time.Duration) {}

// RedisResponseCache shares cached responses between processes.
type RedisResponseCache struct {
	client *redis.Client
	logger *logrus.Logger
}

func NewRedisResponseCache(client *redis.Client, logger *logrus.Logger) *RedisResponseCache {
	return &RedisResponseCache{client: client, logger: logger}
}

func (c *RedisResponseCache) Get(ctx context.Context, key string) ([]byte, bool) {
	cached, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.WithError(err).Warn("Failed to read from Redis")
		}
		return nil, false
	}
	return cached, true
}

func (c *RedisResponseCache) Set(ctx context.Context, key string, body []byte, ttl time.Duration) {
	if err := c.client.Set(ctx, key, body, ttl).Err(); err != nil {
		c.logger.WithError(err).Warn("Failed to write response to cache")
		return
	}
	c.logger.WithField("key", key).Debug("Response cached successfully")
}

type cacheItem struct {
	body      []byte
	expiresAt time.Time
}

// MemoryResponseCache is a process-local ResponseCache with per-entry expiry.
type MemoryResponseCache struct {
	mu    sync.RWMutex
	items map[string]cacheItem
	now   func() time.Time
}

func NewMemoryResponseCache() *MemoryResponseCache {
	return &MemoryResponseCache{items: make(map[string]cacheItem), now: time.Now}
}

func (c *MemoryResponseCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.RLock()
	it, ok := c.items[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.now().After(it.expiresAt) {
		c.mu.Lock()
		if cur, ok := c.items[key]; ok && c.now().After(cur.expiresAt) {
			delete(c.items, key)
		}
		c.mu.Unlock()
		return nil, false
	}
	return it.body, true
}

func (c *MemoryResponseCache) Set(_ context.Context, key string, body []byte, ttl time.Duration) {
	c.mu.Lock()
	c.items[key] = cacheItem{body: body, expiresAt: c.now().Add(ttl)}
	c.mu.Unlock()
}
