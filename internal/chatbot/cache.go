package chatbot

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// SearchCache stores search results by normalized query.
type SearchCache interface {
	Get(ctx context.Context, query string) ([]SearchResult, bool, error)
	Set(ctx context.Context, query string, results []SearchResult) error
}

// RedisCache keeps search results in Redis with a fixed TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

// NewRedisClient parses url and pings the server.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

func cacheKey(query string) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(query), " "))
	sum := sha256.Sum256([]byte(normalized))
	return "chatbot:search:" + hex.EncodeToString(sum[:])
}

func (c *RedisCache) Get(ctx context.Context, query string) ([]SearchResult, bool, error) {
	key := cacheKey(query)
	val, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read search cache: %w", err)
	}

	var results []SearchResult
	if err := json.Unmarshal(val, &results); err != nil {
		c.client.Del(ctx, key)
		return nil, false, nil
	}
	return results, true, nil
}

func (c *RedisCache) Set(ctx context.Context, query string, results []SearchResult) error {
	data, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("failed to encode search cache entry: %w", err)
	}
	return c.client.Set(ctx, cacheKey(query), data, c.ttl).Err()
}

// NoopCache never hits.
type NoopCache struct{}

func (NoopCache) Get(context.Context, string) ([]SearchResult, bool, error) { return nil, false, nil }
func (NoopCache) Set(context.Context, string, []SearchResult) error         { return nil }
