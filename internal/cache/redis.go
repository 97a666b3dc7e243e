package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"codeberg.org/snonux/imageserver/internal/image"
)

const keyPrefix = "imageserver:"

// Redis stores result pages as JSON strings in Redis
type Redis struct {
	client *redis.Client
}

// NewRedis creates a cache on top of an existing client
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

// Dial connects to the Redis server at addr and verifies the connection
func Dial(ctx context.Context, addr, password string, db int) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return NewRedis(client), nil
}

// Get retrieves a page. A missing key is a miss, not an error.
func (r *Redis) Get(ctx context.Context, key string) (*image.Page, bool, error) {
	data, err := r.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache key %s: %w", key, err)
	}

	var page image.Page
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, false, fmt.Errorf("failed to decode cache key %s: %w", key, err)
	}
	return &page, true, nil
}

// Set stores a page with an expiry. A ttl of 0 never expires.
func (r *Redis) Set(ctx context.Context, key string, page *image.Page, ttl time.Duration) error {
	data, err := json.Marshal(page)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}
	if err := r.client.Set(ctx, keyPrefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cache key %s: %w", key, err)
	}
	return nil
}

// Close closes the underlying client
func (r *Redis) Close() error {
	return r.client.Close()
}
