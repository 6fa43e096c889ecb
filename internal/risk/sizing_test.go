package risk

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/aegis-edge/internal/contracts"
)

func longParams() TradeParams {
	return TradeParams{
		Symbol:       "SPY",
		Direction:    contracts.DirectionLong,
		AccountValue: 100000,
		Leverage:     10,
		EntryPrice:   198.5,
		ATR:          2,
	}
}

func TestSizeTradeWorkedExample(t *testing.T) {
	ps, err := NewCalculator().SizeTrade(longParams())
	require.NoError(t, err)

	assert.Equal(t, 3000.0, ps.RiskAmount)
	assert.Equal(t, 3.0, ps.RiskPct)
	assert.Equal(t, 2.0, ps.StopDistance)
	assert.Equal(t, 196.5, ps.StopPrice)
	assert.Equal(t, 201.3, ps.TargetPrice)
	assert.Equal(t, 1.4, ps.RiskRewardRatio)
	assert.Equal(t, int64(1500), ps.TotalContracts)
	assert.Equal(t, int64(1050), ps.InitialContracts)
	assert.Equal(t, int64(450), ps.SecondaryContracts)
	assert.Equal(t, 3000.0, ps.MaxLossAtStop)
	assert.Equal(t, 297750.0, ps.Notional)
	assert.False(t, ps.LimitedByLeverage)
}

func TestSizeTradeShortOrdering(t *testing.T) {
	p := longParams()
	p.Direction = contracts.DirectionShort

	ps, err := NewCalculator().SizeTrade(p)
	require.NoError(t, err)

	assert.Equal(t, 200.5, ps.StopPrice)
	assert.Equal(t, 195.7, ps.TargetPrice)
	assert.Less(t, ps.TargetPrice, ps.EntryPrice)
	assert.Greater(t, ps.StopPrice, ps.EntryPrice)
	assert.Equal(t, 1.4, ps.RiskRewardRatio)
}

func TestSizeTradeLeverageCap(t *testing.T) {
	p := longParams()
	p.Leverage = 1
	p.ATR = 0.5

	ps, err := NewCalculator().SizeTrade(p)
	require.NoError(t, err)

	// risk allows 6000, margin allows floor(100000/198.5) = 503
	assert.True(t, ps.LimitedByLeverage)
	assert.Equal(t, int64(503), ps.TotalContracts)
	assert.LessOrEqual(t, ps.MaxLossAtStop, ps.RiskAmount)
}

func TestSizeTradeZeroContracts(t *testing.T) {
	p := longParams()
	p.AccountValue = 50
	p.ATR = 5

	ps, err := NewCalculator().SizeTrade(p)
	require.NoError(t, err)
	assert.Zero(t, ps.TotalContracts)
	assert.Zero(t, ps.MaxLossAtStop)
}

func TestSizeTradeMaxLossNeverExceedsRisk(t *testing.T) {
	calc := NewCalculator()
	for _, account := range []float64{1000, 25000, 100000, 2500000} {
		for _, lev := range []float64{1, 3, 10, 20} {
			for _, atr := range []float64{0.07, 0.5, 2, 13.3} {
				for _, dir := range []contracts.Direction{contracts.DirectionLong, contracts.DirectionShort} {
					p := TradeParams{Direction: dir, AccountValue: account, Leverage: lev, EntryPrice: 57.25, ATR: atr}
					ps, err := calc.SizeTrade(p)
					require.NoError(t, err)
					assert.LessOrEqual(t, ps.MaxLossAtStop, ps.RiskAmount+1e-9)
					assert.Equal(t, ps.TotalContracts, ps.InitialContracts+ps.SecondaryContracts)
					assert.GreaterOrEqual(t, ps.TotalContracts, int64(0))
				}
			}
		}
	}
}

func TestSizeTradeSplitAddsUp(t *testing.T) {
	// risk budget 3000; each ATR leaves a small total
	tests := []struct {
		atr                       float64
		total, initial, secondary int64
	}{
		{2000, 1, 0, 1},
		{1000, 3, 2, 1},
		{700, 4, 2, 2},
		{500, 6, 4, 2},
		{300, 10, 7, 3},
	}
	for _, tt := range tests {
		p := longParams()
		p.EntryPrice = 5000
		p.ATR = tt.atr

		ps, err := NewCalculator().SizeTrade(p)
		require.NoError(t, err, "atr=%v", tt.atr)
		assert.Equal(t, tt.total, ps.TotalContracts, "atr=%v", tt.atr)
		assert.Equal(t, tt.initial, ps.InitialContracts, "atr=%v", tt.atr)
		assert.Equal(t, tt.secondary, ps.SecondaryContracts, "atr=%v", tt.atr)
		assert.Equal(t, ps.TotalContracts, ps.InitialContracts+ps.SecondaryContracts)
		assert.InDelta(t, float64(ps.TotalContracts)*SecondaryFraction, float64(ps.SecondaryContracts), 1)
	}
}

func TestSizeTradeValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*TradeParams)
		field  string
	}{
		{"leverage below one", func(p *TradeParams) { p.Leverage = 0.5 }, "leverage"},
		{"leverage above cap", func(p *TradeParams) { p.Leverage = 25 }, "leverage"},
		{"zero account", func(p *TradeParams) { p.AccountValue = 0 }, "account_value"},
		{"negative account", func(p *TradeParams) { p.AccountValue = -10 }, "account_value"},
		{"no direction", func(p *TradeParams) { p.Direction = contracts.DirectionNone }, "direction"},
		{"zero entry", func(p *TradeParams) { p.EntryPrice = 0 }, "entry_price"},
		{"zero atr", func(p *TradeParams) { p.ATR = 0 }, "atr"},
		{"nan atr", func(p *TradeParams) { p.ATR = math.NaN() }, "atr"},
		{"long stop at zero", func(p *TradeParams) {
			p.EntryPrice = 2
			p.ATR = 2
		}, "stop_price"},
		{"long stop below zero", func(p *TradeParams) {
			p.EntryPrice = 2
			p.ATR = 2.5
		}, "stop_price"},
		{"short target below zero", func(p *TradeParams) {
			p.Direction = contracts.DirectionShort
			p.EntryPrice = 2
			p.ATR = 1.5
		}, "target_price"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := longParams()
			tt.mutate(&p)

			ps, err := NewCalculator().SizeTrade(p)
			require.Error(t, err)
			assert.Nil(t, ps)
			assert.True(t, errors.Is(err, contracts.ErrInvalidParameter))

			var e *contracts.Error
			require.True(t, errors.As(err, &e))
			assert.Equal(t, tt.field, e.Field)
		})
	}
}

func TestSizeRecommendation(t *testing.T) {
	rec := &contracts.Recommendation{
		Symbol:     "SPY",
		Direction:  contracts.DirectionLong,
		EntryPrice: 198.5,
		ATR:        contracts.KnownMeasure(2),
	}

	ps, err := NewCalculator().Size(rec, 100000, 10)
	require.NoError(t, err)
	assert.Equal(t, "SPY", ps.Symbol)
	assert.Equal(t, int64(1500), ps.TotalContracts)
}

func TestSizeRecommendationErrors(t *testing.T) {
	calc := NewCalculator()

	_, err := calc.Size(nil, 100000, 10)
	assert.True(t, errors.Is(err, contracts.ErrInvalidParameter))

	unknownATR := &contracts.Recommendation{
		Direction:  contracts.DirectionLong,
		EntryPrice: 100,
		ATR:        contracts.Measure{Reason: "atr: need 21 bars, have 5"},
	}
	_, err = calc.Size(unknownATR, 100000, 10)
	assert.True(t, errors.Is(err, contracts.ErrInsufficientData))

	// bad leverage is reported before the missing ATR
	_, err = calc.Size(unknownATR, 100000, 50)
	assert.True(t, errors.Is(err, contracts.ErrInvalidParameter))

	none := &contracts.Recommendation{Direction: contracts.DirectionNone, EntryPrice: 100, ATR: contracts.KnownMeasure(1)}
	_, err = calc.Size(none, 100000, 10)
	assert.True(t, errors.Is(err, contracts.ErrInvalidParameter))
}
