package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrDisabled = errors.New("cache disabled")

// Client wraps an optional Redis connection. A nil or disabled Client is valid:
// reads miss, writes are dropped and Allow always admits.
type Client struct {
	rdb *redis.Client
	ttl time.Duration
}

// Connect returns a disabled client when addr is empty or Redis does not answer.
func Connect(ctx context.Context, addr, password string, ttl time.Duration) *Client {
	if addr == "" {
		log.Println("⚠️ REDIS_ADDR not set, caching and login rate limiting disabled")
		return &Client{ttl: ttl}
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.Printf("❌ Redis ping failed (%s): %v, caching disabled", addr, err)
		rdb.Close()
		return &Client{ttl: ttl}
	}

	log.Printf("✅ Connected to Redis at %s", addr)
	return &Client{rdb: rdb, ttl: ttl}
}

func (c *Client) Enabled() bool {
	return c != nil && c.rdb != nil
}

func (c *Client) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.rdb.Close()
}

// SetJSON stores v under key. ttl <= 0 uses the client default.
func (c *Client) SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) error {
	if !c.Enabled() {
		return ErrDisabled
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if ttl <= 0 {
		ttl = c.ttl
	}
	return c.rdb.Set(ctx, key, data, ttl).Err()
}

// GetJSON decodes key into dst. found is false on a miss.
func (c *Client) GetJSON(ctx context.Context, key string, dst interface{}) (bool, error) {
	if !c.Enabled() {
		return false, nil
	}
	value, err := c.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(value, dst); err != nil {
		return false, fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return true, nil
}

func (c *Client) Delete(ctx context.Context, keys ...string) error {
	if !c.Enabled() || len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err()
}

// Allow is a fixed-window counter: the first hit in a window sets its expiry.
// It returns how many hits remain in the window.
func (c *Client) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, int, error) {
	if !c.Enabled() || limit <= 0 {
		return true, limit, nil
	}

	n, err := c.rdb.Incr(ctx, key).Result()
	if err != nil {
		return true, limit, err
	}
	if n == 1 {
		if err := c.rdb.Expire(ctx, key, window).Err(); err != nil {
			return true, limit, err
		}
	}

	count := int(n)
	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}
	return count <= limit, remaining, nil
}
