package strategyconfig

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/aegis-edge/internal/contracts"
)

func TestLoad(t *testing.T) {
	// 저장소에 포함된 기본 전략 파일
	path := "../../config/strategy/edge_v1.yaml"
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Skip("config file not found")
	}

	cfg, yamlData, err := Load(path)
	require.NoError(t, err)
	assert.NotEmpty(t, yamlData)

	assert.Equal(t, "edge_v1", cfg.Meta.StrategyID)
	assert.Contains(t, cfg.Universe.Watchlist, "AAPL")
	assert.Equal(t, "XLE", cfg.AuxSymbols().SectorFor("XOM"))
	assert.Equal(t, 5*time.Minute, cfg.Batch.Timeout)

	hash, err := Hash(cfg)
	require.NoError(t, err)
	assert.Len(t, hash, 64)

	// 동일 설정 → 동일 해시
	hash2, _ := Hash(cfg)
	assert.Equal(t, hash, hash2)
}

func TestParse_AppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
meta:
  strategy_id: minimal
universe:
  watchlist: [aapl, " msft "]
  sectors:
    aapl: xlk
`))
	require.NoError(t, err)

	assert.Equal(t, []string{"AAPL", "MSFT"}, cfg.Universe.Watchlist)
	assert.Equal(t, "America/New_York", cfg.Meta.Timezone)
	assert.Equal(t, "VIXY", cfg.Universe.VolatilitySymbol)
	assert.Equal(t, 300, cfg.Data.DailyLookback)
	assert.Equal(t, 20, cfg.Data.BaselineSessions)
	assert.Equal(t, 100000.0, cfg.Account.Value)
	assert.Equal(t, 1.0, cfg.Account.Leverage)
	assert.Equal(t, 4, cfg.Batch.Workers)
	assert.Equal(t, 0.5, cfg.Quality.MinScore)
	assert.Equal(t, 21, cfg.Quality.MinDailyBars)

	aux := cfg.AuxSymbols()
	assert.Equal(t, "XLK", aux.SectorFor("AAPL"))
	assert.Equal(t, "SPY", aux.SectorFor("MSFT"))

	opts := cfg.GatherOptions()
	assert.Equal(t, contracts.Resolution5Min, opts.IntradayResolution)
	assert.Equal(t, 60, opts.AuxLookback)
}

func TestParse_UnknownFieldFails(t *testing.T) {
	_, err := Parse([]byte(`
meta:
  strategy_id: typo
  strategy_idd: oops
`))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		field  string
	}{
		{"missing strategy id", func(c *Config) { c.Meta.StrategyID = "" }, "meta.strategy_id"},
		{"bad timezone", func(c *Config) { c.Meta.Timezone = "Mars/Olympus" }, "meta.timezone"},
		{"duplicate symbol", func(c *Config) { c.Universe.Watchlist = []string{"AAPL", "AAPL"} }, "universe.watchlist[1]"},
		{"daily resolution for intraday", func(c *Config) { c.Data.IntradayResolution = "daily" }, "data.intraday_resolution"},
		{"lookback below minimum", func(c *Config) { c.Data.DailyLookback = 10 }, "data.daily_lookback"},
		{"zero account", func(c *Config) { c.Account.Value = 0 }, "account.value"},
		{"leverage too high", func(c *Config) { c.Account.Leverage = 25 }, "account.leverage"},
		{"no workers", func(c *Config) { c.Batch.Workers = 0 }, "batch.workers"},
		{"bad cron", func(c *Config) { c.Schedule.ScanCron = "every minute" }, "schedule.scan_cron"},
		{"quality score out of range", func(c *Config) { c.Quality.MinScore = 1.5 }, "quality.min_score"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			errs := Validate(cfg)
			require.Len(t, errs, 1, "errors: %v", errs)
			assert.Equal(t, tt.field, errs[0].Field)
		})
	}
}

func TestValidate_CollectsAll(t *testing.T) {
	cfg := Default()
	cfg.Meta.StrategyID = ""
	cfg.Account.Value = -1
	cfg.Batch.Workers = 0

	errs := Validate(cfg)
	require.Len(t, errs, 3)
	assert.Contains(t, errs.Error(), "meta.strategy_id")
	assert.Contains(t, errs.Error(), "batch.workers")
}

func TestDefaultIsValid(t *testing.T) {
	assert.Empty(t, Validate(Default()))
}

func TestWarn(t *testing.T) {
	cfg := Default()
	cfg.Data.DailyLookback = 100
	cfg.Account.Leverage = 15
	cfg.Universe.Watchlist = []string{"TSLA"}

	codes := map[string]bool{}
	for _, w := range Warn(cfg) {
		codes[w.Code] = true
	}
	assert.True(t, codes["SHORT_HISTORY"])
	assert.True(t, codes["HIGH_LEVERAGE"])
	assert.True(t, codes["DEFAULT_SECTOR"])
	assert.False(t, codes["EMPTY_WATCHLIST"])
}

func TestHash_ChangesWithConfig(t *testing.T) {
	a := Default()
	b := Default()
	b.Account.Leverage = 2

	ha, err := Hash(a)
	require.NoError(t, err)
	hb, err := Hash(b)
	require.NoError(t, err)
	assert.NotEqual(t, ha, hb)

	snap, err := NewDecisionSnapshot(a, "snap-1")
	require.NoError(t, err)
	assert.Equal(t, ha, snap.ConfigHash)
	assert.Equal(t, "edge_default", snap.StrategyID)
}
