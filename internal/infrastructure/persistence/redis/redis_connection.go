// Package redis provides Redis connection management and client initialization.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/turtacn/statusservice/internal/config"
	"github.com/turtacn/statusservice/pkg/logger"
)

// RedisConnection manages the Redis client lifecycle.
type RedisConnection struct {
	client redis.UniversalClient
	logger logger.Logger
}

// NewRedisConnection connects to the configured addresses and verifies the
// connection with a ping. A single address yields a standalone client,
// several addresses a cluster client.
func NewRedisConnection(ctx context.Context, cfg *config.RedisConfig, log logger.Logger) (*RedisConnection, error) {
	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:        cfg.Addresses,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		log.Error(ctx, "Redis ping failed", err, logger.Any("addresses", cfg.Addresses))
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	log.Info(ctx, "Redis connection established", logger.Any("addresses", cfg.Addresses))
	return &RedisConnection{client: client, logger: log}, nil
}

// NewRedisConnectionFromClient wraps an existing client.
func NewRedisConnectionFromClient(client redis.UniversalClient, log logger.Logger) *RedisConnection {
	return &RedisConnection{client: client, logger: log}
}

// Client returns the underlying client.
func (rc *RedisConnection) Client() redis.UniversalClient {
	return rc.client
}

// Ping checks that Redis answers.
func (rc *RedisConnection) Ping(ctx context.Context) error {
	return rc.client.Ping(ctx).Err()
}

// Close closes the client.
func (rc *RedisConnection) Close() error {
	rc.logger.Info(context.Background(), "Closing Redis connection")
	return rc.client.Close()
}
