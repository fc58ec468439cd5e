package redisclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Client wraps the redis connection used for session storage and the
// daily analytics counters
type Client struct {
	rdb *redis.Client
}

// NewClient creates a new redis client and verifies connectivity
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Close closes the underlying connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// GetJSON loads a JSON value into dest. Returns (false, nil) when the key
// does not exist.
func (c *Client) GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	raw, err := c.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return false, fmt.Errorf("failed to decode session value %s: %w", key, err)
	}
	return true, nil
}

// SetJSON stores a JSON-encoded value with a TTL
func (c *Client) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode session value %s: %w", key, err)
	}
	return c.rdb.Set(ctx, key, raw, ttl).Err()
}

// Delete removes one or more keys. Missing keys are not an error.
func (c *Client) Delete(ctx context.Context, keys ...string) error {
	return c.rdb.Del(ctx, keys...).Err()
}

// IncrCounter increments a daily analytics counter and keeps it around
// for 90 days
func (c *Client) IncrCounter(ctx context.Context, name string, day time.Time) error {
	key := fmt.Sprintf("analytics:%s:%s", name, day.Format("2006-01-02"))
	pipe := c.rdb.Pipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, 90*24*time.Hour)
	_, err := pipe.Exec(ctx)
	return err
}

// IncrCounterBy adds n to a daily analytics counter. Used for revenue
// totals, tracked in paise so the counter stays integral.
func (c *Client) IncrCounterBy(ctx context.Context, name string, day time.Time, n int64) error {
	key := fmt.Sprintf("analytics:%s:%s", name, day.Format("2006-01-02"))
	pipe := c.rdb.Pipeline()
	pipe.IncrBy(ctx, key, n)
	pipe.Expire(ctx, key, 90*24*time.Hour)
	_, err := pipe.Exec(ctx)
	return err
}

// GetCounter reads a daily analytics counter, zero when absent
func (c *Client) GetCounter(ctx context.Context, name string, day time.Time) (int64, error) {
	key := fmt.Sprintf("analytics:%s:%s", name, day.Format("2006-01-02"))
	n, err := c.rdb.Get(ctx, key).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return n, err
}
