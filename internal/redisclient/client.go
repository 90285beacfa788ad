// Package redisclient caches recommendation responses. Cache keys carry a
// data-version counter that is bumped whenever the store or the model
// artifact changes, so a response computed against stale data can never be
// served after new data lands.
package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const versionKey = "forecast:data_version"

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

// DataVersion returns the current data-version counter.
func (c *Client) DataVersion(ctx context.Context) (int64, error) {
	v, err := c.rdb.Get(ctx, versionKey).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return v, err
}

// BumpDataVersion invalidates all cached responses by advancing the counter.
// Called after every successful ingest and training run.
func (c *Client) BumpDataVersion(ctx context.Context) error {
	return c.rdb.Incr(ctx, versionKey).Err()
}

func responseKey(version int64, digest string) string {
	return fmt.Sprintf("forecast:recs:v%d:%s", version, digest)
}

// GetRecommendations fetches a cached response body by request digest.
// Returns nil with no error on a miss.
func (c *Client) GetRecommendations(ctx context.Context, digest string) ([]byte, error) {
	version, err := c.DataVersion(ctx)
	if err != nil {
		return nil, err
	}
	body, err := c.rdb.Get(ctx, responseKey(version, digest)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return body, nil
}

// SetRecommendations stores a response body under the current data version.
func (c *Client) SetRecommendations(ctx context.Context, digest string, body []byte, ttl time.Duration) error {
	version, err := c.DataVersion(ctx)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, responseKey(version, digest), body, ttl).Err()
}
