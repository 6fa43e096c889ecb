package s0_data

import (
	"context"
	"time"

	"github.com/wonny/aegis-edge/internal/contracts"
	"github.com/wonny/aegis-edge/pkg/redis"
)

// CachedSource decorates a SeriesSource with the redis cache.
// A disabled redis client makes it a pass-through.
type CachedSource struct {
	next  SeriesSource
	cache *redis.Cache
}

// NewCachedSource creates a new caching decorator
func NewCachedSource(next SeriesSource, cache *redis.Cache) *CachedSource {
	return &CachedSource{
		next:  next,
		cache: cache,
	}
}

// NewCachedProvider is the full provider over a cached source
func NewCachedProvider(next SeriesSource, cache *redis.Cache, aux AuxSymbols) *Provider {
	return NewProvider(NewCachedSource(next, cache), aux)
}

// PriceSeries implements SeriesSource
func (c *CachedSource) PriceSeries(ctx context.Context, symbol string, res contracts.Resolution, lookback int) (*contracts.PriceSeries, error) {
	ttl := redis.TTLDaily
	if res.Intraday() {
		ttl = redis.TTLIntraday
	}

	var series contracts.PriceSeries
	err := c.cache.GetOrSet(ctx, redis.SeriesKey(symbol, string(res), lookback), &series, ttl, func() (interface{}, error) {
		return c.next.PriceSeries(ctx, symbol, res, lookback)
	})
	if err != nil {
		return nil, err
	}
	return &series, nil
}

// OptionsChain implements SeriesSource
func (c *CachedSource) OptionsChain(ctx context.Context, symbol string, date time.Time) (*contracts.OptionsChainSnapshot, error) {
	var chain contracts.OptionsChainSnapshot
	key := redis.ChainKey(symbol, contracts.SessionDate(date).Format("2006-01-02"))
	err := c.cache.GetOrSet(ctx, key, &chain, redis.TTLOptions, func() (interface{}, error) {
		return c.next.OptionsChain(ctx, symbol, date)
	})
	if err != nil {
		return nil, err
	}
	return &chain, nil
}

// OptionVolumeBaseline implements SeriesSource.
// The baseline only covers closed sessions, so it keeps for the daily TTL.
func (c *CachedSource) OptionVolumeBaseline(ctx context.Context, symbol string, date time.Time, sessions int) (*contracts.OptionVolumeBaseline, error) {
	var baseline contracts.OptionVolumeBaseline
	key := redis.BaselineKey(symbol, contracts.SessionDate(date).Format("2006-01-02"), sessions)
	err := c.cache.GetOrSet(ctx, key, &baseline, redis.TTLDaily, func() (interface{}, error) {
		return c.next.OptionVolumeBaseline(ctx, symbol, date, sessions)
	})
	if err != nil {
		return nil, err
	}
	return &baseline, nil
}
