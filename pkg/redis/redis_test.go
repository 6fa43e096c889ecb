package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wonny/aegis-edge/pkg/config"
)

func disabledClient(t *testing.T) *Client {
	t.Helper()
	client, err := New(&config.Config{Redis: config.RedisConfig{Enabled: false}})
	require.NoError(t, err)
	return client
}

func TestNewClient_Disabled(t *testing.T) {
	client := disabledClient(t)
	assert.False(t, client.Enabled())
	assert.NoError(t, client.Close())
}

func TestRateLimiter_Disabled(t *testing.T) {
	limiter := NewRateLimiter(disabledClient(t), "test")
	limit := AlphaVantageRateLimit(75)

	allowed, remaining, err := limiter.Allow(context.Background(), limit)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, 75, remaining)
	assert.NoError(t, limiter.Wait(context.Background(), limit))
}

func TestCache_Disabled(t *testing.T) {
	cache := NewCache(disabledClient(t), "test")

	var result string
	found, err := cache.Get(context.Background(), "key", &result)
	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, cache.Set(context.Background(), "key", "v", time.Minute))
}

func TestCache_GetOrSetFallsThroughWhenDisabled(t *testing.T) {
	cache := NewCache(disabledClient(t), "test")

	calls := 0
	var got []float64
	err := cache.GetOrSet(context.Background(), "k", &got, time.Minute, func() (interface{}, error) {
		calls++
		return []float64{1.5, 2.5}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, 2.5}, got)
	assert.Equal(t, 1, calls)
}

func TestCacheKeys(t *testing.T) {
	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{"SeriesKey", SeriesKey("aapl", "daily", 300), "series:AAPL:daily:300"},
		{"ChainKey", ChainKey("spy", "2024-03-15"), "options:SPY:2024-03-15"},
		{"BaselineKey", BaselineKey("msft", "2024-03-15", 20), "baseline:MSFT:2024-03-15:20"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.got)
		})
	}
}

func TestCache_Integration(t *testing.T) {
	if testing.Short() || os.Getenv("REDIS_HOST") == "" {
		t.Skip("REDIS_HOST not set, skipping integration test")
	}

	client, err := New(&config.Config{Redis: config.RedisConfig{
		Enabled: true,
		Host:    os.Getenv("REDIS_HOST"),
		Port:    "6379",
	}})
	require.NoError(t, err)
	defer client.Close()

	cache := NewCache(client, "edge-test")
	ctx := context.Background()
	require.NoError(t, cache.Set(ctx, "answer", 42, time.Minute))

	var v int
	found, err := cache.Get(ctx, "answer", &v)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 42, v)
	require.NoError(t, cache.Delete(ctx, "answer"))
}
