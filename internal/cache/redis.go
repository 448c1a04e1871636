package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"tvscout/internal/config"
	"tvscout/internal/logger"
)

// New connects to the Redis server named by R_HOST, R_PORT and R_PASS.
// The same client backs the redis store, the redis change feed and the
// catalog response cache.
func New(ctx context.Context) (*redis.Client, error) {
	host, port, password := config.RedisConfig()

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", host, port),
		Password: password,
		DB:       0,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Get().Info("Connection to Redis successful")
	return client, nil
}
