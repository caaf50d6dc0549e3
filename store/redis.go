package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"warden/config"
	"warden/metrics"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultKeyPrefix = "warden:csrf:"

// RedisStore keeps tokens in redis so several warden instances can share sessions.
// Expiry is delegated to redis key TTLs.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *zap.SugaredLogger
}

// NewRedisStore creates a RedisStore. It does not dial; call Ping to check the connection.
func NewRedisStore(cfg config.RedisConfig, ttl time.Duration, logger *zap.SugaredLogger) *RedisStore {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
	return &RedisStore{client: client, prefix: prefix, ttl: ttl, logger: logger}
}

// Ping tests the Redis connection
func (rs *RedisStore) Ping(ctx context.Context) error {
	return rs.client.Ping(ctx).Err()
}

func (rs *RedisStore) key(sessionID string) string {
	return rs.prefix + sessionID
}

func (rs *RedisStore) Get(ctx context.Context, sessionID string) (string, error) {
	token, err := rs.client.Get(ctx, rs.key(sessionID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		rs.logger.Errorf("Failed to get token for session %s: %v", sessionID, err)
		metrics.RecordStoreError(rs.Backend(), "get")
		return "", fmt.Errorf("redis get: %w", err)
	}
	return token, nil
}

func (rs *RedisStore) Put(ctx context.Context, sessionID, token string) error {
	if err := rs.client.Set(ctx, rs.key(sessionID), token, rs.ttl).Err(); err != nil {
		rs.logger.Errorf("Failed to store token for session %s: %v", sessionID, err)
		metrics.RecordStoreError(rs.Backend(), "put")
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (rs *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := rs.client.Del(ctx, rs.key(sessionID)).Err(); err != nil {
		metrics.RecordStoreError(rs.Backend(), "delete")
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (rs *RedisStore) Backend() string { return "redis" }

// Close closes the Redis connection
func (rs *RedisStore) Close() error {
	return rs.client.Close()
}
