package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const leaseKeyPrefix = "article-optimizer:lease:"

// Deletes the key only while it still holds the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker grants per-key leases shared by every instance pointed at
// the same Redis
type RedisLocker struct {
	client *redis.Client
}

// NewRedisLocker connects to Redis and verifies the connection
func NewRedisLocker(ctx context.Context, addr, password string) (*RedisLocker, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           0,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	slog.Info("Connected to Redis", "addr", addr)

	return &RedisLocker{client: client}, nil
}

// Acquire sets the lease key with NX so only one holder wins
func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, LeaseKey(key), token, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("failed to acquire lease %s: %w", key, err)
	}
	if !ok {
		return "", false, nil
	}

	return token, true, nil
}

// Release removes the lease if token still owns it
func (l *RedisLocker) Release(ctx context.Context, key, token string) error {
	err := releaseScript.Run(ctx, l.client, []string{LeaseKey(key)}, token).Err()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("failed to release lease %s: %w", key, err)
	}
	return nil
}

// Health reports whether Redis answers a ping
func (l *RedisLocker) Health(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

func (l *RedisLocker) Close() error {
	return l.client.Close()
}

// LeaseKey namespaces a lease key
func LeaseKey(key string) string {
	return leaseKeyPrefix + key
}
