package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// AcquireLock takes the checkout lock for a user+reference pair. Only one
// finalize saga may hold it at a time; the TTL bounds how long a crashed
// saga can block retries.
func (c *Client) AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, fmt.Sprintf("lock:checkout:%s", lockKey), "1", ttl).Result()
}

// ReleaseLock releases the checkout lock.
func (c *Client) ReleaseLock(ctx context.Context, lockKey string) error {
	return c.rdb.Del(ctx, fmt.Sprintf("lock:checkout:%s", lockKey)).Err()
}

// MarkReferenceSeen caches a settled reference with its order id so repeated
// submissions can be answered without touching the database.
func (c *Client) MarkReferenceSeen(ctx context.Context, reference, orderID string, ttl time.Duration) error {
	return c.rdb.Set(ctx, fmt.Sprintf("reference:%s", reference), orderID, ttl).Err()
}

// GetSeenReference returns the cached order id for a reference, or empty
// string when the reference has not been seen.
func (c *Client) GetSeenReference(ctx context.Context, reference string) (string, error) {
	val, err := c.rdb.Get(ctx, fmt.Sprintf("reference:%s", reference)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return val, nil
}
