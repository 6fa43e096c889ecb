package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache provides typed caching utilities
// ⭐ SSOT: 캐시 헬퍼는 여기서만
type Cache struct {
	client *Client
	prefix string
}

// NewCache creates a new cache helper
func NewCache(client *Client, prefix string) *Cache {
	return &Cache{
		client: client,
		prefix: prefix,
	}
}

func (c *Cache) key(key string) string {
	return fmt.Sprintf("%s:cache:%s", c.prefix, key)
}

// Get retrieves a cached value. A missing key is a miss, not an error.
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !c.client.Enabled() {
		return false, nil
	}

	data, err := c.client.Redis().Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache get %s: %w", key, err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("cache unmarshal failed: %w", err)
	}

	return true, nil
}

// Set stores a value in cache with TTL
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !c.client.Enabled() {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal failed: %w", err)
	}

	return c.client.Redis().Set(ctx, c.key(key), data, ttl).Err()
}

// Delete removes a cached value
func (c *Cache) Delete(ctx context.Context, key string) error {
	if !c.client.Enabled() {
		return nil
	}

	return c.client.Redis().Del(ctx, c.key(key)).Err()
}

// GetOrSet retrieves from cache or calls fn to populate it.
// Redis failures fall through to fn so a flaky cache never blocks a fetch.
func (c *Cache) GetOrSet(ctx context.Context, key string, dest interface{}, ttl time.Duration, fn func() (interface{}, error)) error {
	if found, err := c.Get(ctx, key, dest); err == nil && found {
		return nil
	}

	value, err := fn()
	if err != nil {
		return err
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal failed: %w", err)
	}

	if c.client.Enabled() {
		_ = c.client.Redis().Set(ctx, c.key(key), data, ttl).Err()
	}

	return json.Unmarshal(data, dest)
}

// Predefined TTLs
const (
	TTLIntraday = 1 * time.Minute  // 장중 분봉
	TTLOptions  = 15 * time.Minute // 옵션 체인
	TTLDaily    = 1 * time.Hour    // 일봉, 보조 지표 시리즈
)

// SeriesKey identifies a cached price series
func SeriesKey(symbol, resolution string, lookback int) string {
	return fmt.Sprintf("series:%s:%s:%d", strings.ToUpper(symbol), resolution, lookback)
}

// ChainKey identifies a cached options chain snapshot
func ChainKey(symbol, date string) string {
	return fmt.Sprintf("options:%s:%s", strings.ToUpper(symbol), date)
}

// BaselineKey identifies a cached option volume baseline
func BaselineKey(symbol, date string, sessions int) string {
	return fmt.Sprintf("baseline:%s:%s:%d", strings.ToUpper(symbol), date, sessions)
}
