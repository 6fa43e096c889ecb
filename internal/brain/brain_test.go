package brain

import (
	"context"
	"errors"
	"math"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/aegis-edge/internal/contracts"
	"github.com/wonny/aegis-edge/pkg/logger"
)

var asOf = time.Date(2026, 10, 20, 11, 0, 0, 0, contracts.ExchangeLocation())

// wave builds n daily bars ending the day before asOf
func wave(symbol string, n int, base float64) *contracts.PriceSeries {
	s := &contracts.PriceSeries{Symbol: symbol, Resolution: contracts.ResolutionDaily}
	start := asOf.AddDate(0, 0, -n)
	for i := 0; i < n; i++ {
		c := base + 5*math.Sin(float64(i)/3) + 0.05*float64(i)
		s.Bars = append(s.Bars, contracts.PriceBar{
			Date:   start.AddDate(0, 0, i),
			Open:   c - 0.2,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: int64(1_000_000 + 10_000*(i%7)),
		})
	}
	return s
}

func chain(symbol string) *contracts.OptionsChainSnapshot {
	exp := contracts.SessionDate(asOf).AddDate(0, 0, 10)
	iv := contracts.Float
	return &contracts.OptionsChainSnapshot{
		Symbol:          symbol,
		Date:            contracts.SessionDate(asOf),
		UnderlyingPrice: 100,
		Contracts: []contracts.OptionContract{
			{ContractID: "C105", Type: contracts.OptionCall, Strike: 105, Expiration: exp, Volume: 145232, OpenInterest: 90000, ImpliedVolatility: iv(0.22)},
			{ContractID: "P95", Type: contracts.OptionPut, Strike: 95, Expiration: exp, Volume: 59278, OpenInterest: 80000, ImpliedVolatility: iv(0.20)},
		},
	}
}

func inputs(symbol string, n int) contracts.EvaluationInputs {
	return contracts.EvaluationInputs{
		AsOf:       asOf,
		Daily:      wave(symbol, n, 100),
		Options:    chain(symbol),
		Baseline:   &contracts.OptionVolumeBaseline{CallAverage: 40000, PutAverage: 30000, Sessions: 20},
		Volatility: wave("VIX", 30, 18),
		Sector:     wave("XLK", 30, 200),
		Index:      wave("SPY", 30, 500),
	}
}

func TestEvaluateIsIdempotent(t *testing.T) {
	o := NewDefaultOrchestrator(logger.NewNop())
	in := inputs("AAPL", 300)

	first, err := o.Evaluate(context.Background(), "AAPL", in)
	require.NoError(t, err)
	second, err := o.Evaluate(context.Background(), "AAPL", in)
	require.NoError(t, err)

	assert.True(t, reflect.DeepEqual(first, second))
	assert.Equal(t, "AAPL", first.Symbol)
	assert.Equal(t, contracts.TotalCriteria, first.TotalCount)
	assert.LessOrEqual(t, first.ConfirmedCount, first.TotalCount)
	assert.Equal(t, first.ConfirmedCount >= contracts.ReadyThreshold, first.ReadyToTrade)
	assert.True(t, first.ATR.Known)
	assert.True(t, first.Institutional.Available)
	assert.InDelta(t, 2.45, first.Institutional.CallPutRatio.Value, 0.01)
}

func TestEvaluateShortSeriesDegrades(t *testing.T) {
	o := NewDefaultOrchestrator(logger.NewNop())

	// without a chain nothing votes: z-score needs 20 bars, so technical bias is NONE
	in := inputs("AAPL", 10)
	in.Options = nil

	rec, err := o.Evaluate(context.Background(), "AAPL", in)
	require.NoError(t, err)

	assert.Equal(t, contracts.DirectionNone, rec.Technical.Bias)
	assert.Equal(t, contracts.DirectionNone, rec.Direction)
	assert.False(t, rec.ReadyToTrade)
	assert.False(t, rec.ATR.Known)
	for _, c := range []contracts.Criterion{
		contracts.CriterionMeanReversion,
		contracts.CriterionRSI2Extreme,
		contracts.CriterionBollingerTouch,
	} {
		assert.False(t, rec.Checklist.Get(c).Confirmed, c.String())
	}

	_, err = o.Size(rec, 100000, 10)
	assert.True(t, errors.Is(err, contracts.ErrInvalidParameter) || errors.Is(err, contracts.ErrInsufficientData))
}

func TestEvaluateShortSeriesWithChain(t *testing.T) {
	o := NewDefaultOrchestrator(logger.NewNop())

	// the chain votes LONG (ratio 2.45); RSI(2) is defined on 10 bars, SMA20 items are not
	rec, err := o.Evaluate(context.Background(), "AAPL", inputs("AAPL", 10))
	require.NoError(t, err)

	assert.Equal(t, contracts.DirectionLong, rec.Direction)
	assert.True(t, rec.Checklist.Get(contracts.CriterionRSI2Extreme).Value.Known)
	for _, c := range []contracts.Criterion{
		contracts.CriterionMeanReversion,
		contracts.CriterionBollingerTouch,
	} {
		assert.False(t, rec.Checklist.Get(c).Confirmed, c.String())
	}
}

func TestEvaluateRejectsBadInputs(t *testing.T) {
	o := NewDefaultOrchestrator(logger.NewNop())

	_, err := o.Evaluate(context.Background(), "AAPL", contracts.EvaluationInputs{AsOf: asOf})
	assert.True(t, errors.Is(err, contracts.ErrInvalidParameter))

	empty := contracts.EvaluationInputs{AsOf: asOf, Daily: &contracts.PriceSeries{Symbol: "AAPL"}}
	_, err = o.Evaluate(context.Background(), "AAPL", empty)
	assert.True(t, errors.Is(err, contracts.ErrInsufficientData))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = o.Evaluate(ctx, "AAPL", inputs("AAPL", 50))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSizeDelegates(t *testing.T) {
	o := NewDefaultOrchestrator(logger.NewNop())
	rec := &contracts.Recommendation{
		Symbol:     "AAPL",
		Direction:  contracts.DirectionLong,
		EntryPrice: 198.5,
		ATR:        contracts.KnownMeasure(2),
	}
	plan, err := o.Size(rec, 100000, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1500), plan.TotalContracts)
}

func TestEvaluateBatch(t *testing.T) {
	o := NewDefaultOrchestrator(logger.NewNop())
	snapshots := map[string]contracts.EvaluationInputs{
		"AAPL": inputs("AAPL", 120),
		"MSFT": inputs("MSFT", 120),
		"BAD":  {AsOf: asOf},
	}

	var mu sync.Mutex
	seen := map[string]bool{}
	res := o.EvaluateBatch(context.Background(), snapshots, BatchOptions{
		Workers: 2,
		OnResult: func(symbol string, _ *contracts.Recommendation, _ error) {
			mu.Lock()
			seen[symbol] = true
			mu.Unlock()
		},
	})

	assert.NotEmpty(t, res.RunID)
	assert.Len(t, res.Recommendations, 2)
	assert.Len(t, res.Failures, 1)
	assert.Contains(t, res.Failures, "BAD")
	assert.Empty(t, res.Skipped)
	assert.Len(t, seen, 3)
	assert.Contains(t, res.FailureSummary()["BAD"], string(contracts.KindInvalidParameter))
}

func TestEvaluateBatchCancelledBeforeStart(t *testing.T) {
	o := NewDefaultOrchestrator(logger.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := o.EvaluateBatch(ctx, map[string]contracts.EvaluationInputs{
		"AAPL": inputs("AAPL", 60),
		"MSFT": inputs("MSFT", 60),
	}, BatchOptions{})

	assert.Empty(t, res.Recommendations)
	assert.Equal(t, []string{"AAPL", "MSFT"}, res.Skipped)
}

// ---- gatherer ----

type fakeProvider struct {
	daily    *contracts.PriceSeries
	dailyErr error
	chainErr error
}

func (f *fakeProvider) PriceSeries(_ context.Context, symbol string, res contracts.Resolution, _ int) (*contracts.PriceSeries, error) {
	if res == contracts.ResolutionDaily {
		return f.daily, f.dailyErr
	}
	return nil, contracts.UpstreamDataGap("intraday", "not available")
}

func (f *fakeProvider) OptionsChain(context.Context, string, time.Time) (*contracts.OptionsChainSnapshot, error) {
	if f.chainErr != nil {
		return nil, f.chainErr
	}
	return chain("AAPL"), nil
}

func (f *fakeProvider) OptionVolumeBaseline(context.Context, string, time.Time, int) (*contracts.OptionVolumeBaseline, error) {
	return &contracts.OptionVolumeBaseline{CallAverage: 1, PutAverage: 1, Sessions: 20}, nil
}

func (f *fakeProvider) VolatilityIndex(context.Context, int) (*contracts.PriceSeries, error) {
	return wave("VIX", 30, 18), nil
}

func (f *fakeProvider) SectorProxy(context.Context, string, int) (*contracts.PriceSeries, error) {
	return wave("XLK", 30, 200), nil
}

func (f *fakeProvider) BroadIndex(context.Context, int) (*contracts.PriceSeries, error) {
	return wave("SPY", 30, 500), nil
}

func TestGatherDegradesOptionalInputs(t *testing.T) {
	p := &fakeProvider{daily: wave("AAPL", 60, 100), chainErr: errors.New("options endpoint down")}
	g := NewGatherer(p, DefaultGatherOptions(), logger.NewNop())

	in, err := g.Gather(context.Background(), "AAPL", asOf)
	require.NoError(t, err)

	assert.NotNil(t, in.Daily)
	assert.Nil(t, in.Options)
	assert.Nil(t, in.Intraday)
	assert.NotNil(t, in.Baseline)
	assert.NotNil(t, in.Volatility)
	assert.Equal(t, asOf, in.AsOf)
	require.NoError(t, in.Validate())
}

func TestGatherRequiresDaily(t *testing.T) {
	p := &fakeProvider{dailyErr: errors.New("unknown symbol")}
	g := NewGatherer(p, DefaultGatherOptions(), logger.NewNop())

	_, err := g.Gather(context.Background(), "NOPE", asOf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "daily series for NOPE")
}

func TestGatherCutsSeriesAtAsOf(t *testing.T) {
	// the provider holds three sessions past asOf
	daily := wave("AAPL", 60, 100)
	for i := 0; i < 3; i++ {
		last, _ := daily.Last()
		bar := last
		bar.Date = last.Date.AddDate(0, 0, 1)
		daily.Bars = append(daily.Bars, bar)
	}
	g := NewGatherer(&fakeProvider{daily: daily}, DefaultGatherOptions(), logger.NewNop())

	tests := []struct {
		name string
		at   time.Time
		want int
	}{
		{"as of now", asOf, 60},
		{"twenty days back", asOf.AddDate(0, 0, -20), 40},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := g.Gather(context.Background(), "AAPL", tt.at)
			require.NoError(t, err)

			assert.Equal(t, tt.want, in.Daily.Len())
			last, _ := in.Daily.Last()
			assert.False(t, contracts.SessionClose(last.Date).After(tt.at))
			for _, aux := range []*contracts.PriceSeries{in.Volatility, in.Sector, in.Index} {
				require.NotNil(t, aux)
				bar, _ := aux.Last()
				assert.False(t, contracts.SessionClose(bar.Date).After(tt.at))
			}
		})
	}

	// nothing known yet
	_, err := g.Gather(context.Background(), "AAPL", asOf.AddDate(0, 0, -90))
	assert.True(t, errors.Is(err, contracts.ErrUpstreamDataGap))
}

// ---- scanner ----

// mapProvider serves a fixed daily series per symbol; anything else is a gap
type mapProvider struct {
	fakeProvider
	series map[string]*contracts.PriceSeries
}

func (m *mapProvider) PriceSeries(_ context.Context, symbol string, res contracts.Resolution, _ int) (*contracts.PriceSeries, error) {
	if s, ok := m.series[symbol]; ok && res == contracts.ResolutionDaily {
		return s, nil
	}
	return nil, contracts.UpstreamDataGap("map", "no series for "+symbol)
}

func TestScanMergesGatherFailures(t *testing.T) {
	log := logger.NewNop()
	p := &mapProvider{series: map[string]*contracts.PriceSeries{
		"AAPL": wave("AAPL", 300, 100),
		"MSFT": wave("MSFT", 300, 300),
	}}
	scanner := NewScanner(NewGatherer(p, DefaultGatherOptions(), log), NewDefaultOrchestrator(log), log)

	var mu sync.Mutex
	seen := map[string]bool{}
	result := scanner.Scan(context.Background(), []string{"MSFT", "AAPL", "GONE", "AAPL"}, asOf, BatchOptions{
		Workers: 2,
		OnResult: func(sym string, _ *contracts.Recommendation, _ error) {
			mu.Lock()
			defer mu.Unlock()
			seen[sym] = true
		},
	})

	assert.Len(t, result.Recommendations, 2)
	require.Contains(t, result.Failures, "GONE")
	assert.True(t, errors.Is(result.Failures["GONE"], contracts.ErrUpstreamDataGap))
	assert.Len(t, seen, 3)
	assert.Equal(t, "MSFT", result.Recommendations["MSFT"].Symbol)
}
