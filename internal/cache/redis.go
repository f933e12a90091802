package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/VangaRenuka/SocialConnect/internal/logger"
	"github.com/redis/go-redis/v9"
)

var logg = logger.New()

// NotificationsChannel is the pub/sub channel carrying freshly created
// notifications from the worker to the API server's WebSocket hub.
const NotificationsChannel = "socialconnect:notifications"

// Cache is the Redis surface the rest of the application depends on.
type Cache interface {
	Ping(ctx context.Context) error
	Close() error

	// Unread notification counters.
	IncrUnread(ctx context.Context, userID string) (int64, error)
	DecrUnread(ctx context.Context, userID string) error
	GetUnread(ctx context.Context, userID string) (int64, error)
	ResetUnread(ctx context.Context, userID string) error

	// Token revocation (logout).
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)

	// Generic JSON value cache (trending feed).
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Delete(ctx context.Context, key string) error

	// Cross-process notification delivery.
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, func() error)
}

// RedisCache provides a Redis-backed implementation of Cache.
type RedisCache struct {
	client *redis.Client
}

// New creates a new Redis cache instance.
func New(addr, password string, db int) *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisCache{client: client}
}

// Ping tests the Redis connection.
func (rc *RedisCache) Ping(ctx context.Context) error {
	return rc.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (rc *RedisCache) Close() error {
	return rc.client.Close()
}

func unreadKey(userID string) string { return "unread:" + userID }
func revokedKey(jti string) string   { return "revoked:" + jti }

func (rc *RedisCache) IncrUnread(ctx context.Context, userID string) (int64, error) {
	return rc.client.Incr(ctx, unreadKey(userID)).Result()
}

// DecrUnread lowers the unread counter, clamping at zero.
func (rc *RedisCache) DecrUnread(ctx context.Context, userID string) error {
	n, err := rc.client.Decr(ctx, unreadKey(userID)).Result()
	if err != nil {
		return err
	}
	if n < 0 {
		return rc.client.Set(ctx, unreadKey(userID), 0, 0).Err()
	}
	return nil
}

func (rc *RedisCache) GetUnread(ctx context.Context, userID string) (int64, error) {
	n, err := rc.client.Get(ctx, unreadKey(userID)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return n, err
}

func (rc *RedisCache) ResetUnread(ctx context.Context, userID string) error {
	return rc.client.Set(ctx, unreadKey(userID), 0, 0).Err()
}

// RevokeToken marks a JWT ID as revoked until the token would have expired.
func (rc *RedisCache) RevokeToken(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return rc.client.Set(ctx, revokedKey(jti), 1, ttl).Err()
}

func (rc *RedisCache) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := rc.client.Exists(ctx, revokedKey(jti)).Result()
	return n > 0, err
}

// Set stores a JSON-encoded value with expiration.
func (rc *RedisCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	return rc.client.Set(ctx, key, data, expiration).Err()
}

// Get retrieves a JSON-encoded value. The bool result reports a cache hit.
func (rc *RedisCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := rc.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal([]byte(data), dest); err != nil {
		return false, err
	}
	return true, nil
}

func (rc *RedisCache) Delete(ctx context.Context, key string) error {
	return rc.client.Del(ctx, key).Err()
}

func (rc *RedisCache) Publish(ctx context.Context, channel string, payload []byte) error {
	return rc.client.Publish(ctx, channel, payload).Err()
}

// Subscribe returns a channel of raw payloads and a close function.
// The channel closes when the subscription is closed or ctx is cancelled.
func (rc *RedisCache) Subscribe(ctx context.Context, channel string) (<-chan []byte, func() error) {
	sub := rc.client.Subscribe(ctx, channel)
	out := make(chan []byte, 64)

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-sub.Channel():
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				default:
					logg.Info("cache", "Notification subscriber buffer full, dropping message")
				}
			}
		}
	}()

	return out, sub.Close
}
