package indicators

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/aegis-edge/internal/contracts"
)

// series builds daily bars with a fixed ±1 range around each close
func series(closes []float64) *contracts.PriceSeries {
	start := time.Date(2024, 1, 2, 21, 0, 0, 0, time.UTC)
	s := &contracts.PriceSeries{Symbol: "TEST", Resolution: contracts.ResolutionDaily}
	for i, c := range closes {
		s.Bars = append(s.Bars, contracts.PriceBar{
			Date:   start.AddDate(0, 0, i),
			Open:   c,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: 1000,
		})
	}
	return s
}

func constant(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func ramp(n int, from, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = from + float64(i)*step
	}
	return out
}

func TestSMA(t *testing.T) {
	v, err := SMA([]float64{1, 2, 3, 4, 5}, 3)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, v, 1e-12)

	_, err = SMA([]float64{1, 2}, 3)
	assert.ErrorIs(t, err, contracts.ErrInsufficientData)

	_, err = SMA([]float64{1, 2}, 0)
	assert.ErrorIs(t, err, contracts.ErrInvalidParameter)
}

func TestRSI(t *testing.T) {
	t.Run("hand computed", func(t *testing.T) {
		// changes +1 +1 -1: seed gain 1 loss 0, then gain 0.5 loss 0.5
		v, err := RSI([]float64{1, 2, 3, 2}, 2)
		require.NoError(t, err)
		assert.InDelta(t, 50.0, v, 1e-12)
	})

	t.Run("flat series reads 50", func(t *testing.T) {
		for _, p := range []int{2, 14} {
			v, err := RSI(constant(40, 100), p)
			require.NoError(t, err)
			assert.Equal(t, 50.0, v)
		}
	})

	t.Run("monotonic extremes", func(t *testing.T) {
		up, err := RSI(ramp(10, 10, 1), 2)
		require.NoError(t, err)
		assert.Equal(t, 100.0, up)

		down, err := RSI(ramp(10, 50, -1), 2)
		require.NoError(t, err)
		assert.Equal(t, 0.0, down)
	})

	t.Run("bounded", func(t *testing.T) {
		closes := make([]float64, 200)
		for i := range closes {
			closes[i] = 100 + 10*math.Sin(float64(i)/3) + float64(i%7)
		}
		for _, p := range []int{2, 5, 14} {
			for end := p + 1; end <= len(closes); end += 13 {
				v, err := RSI(closes[:end], p)
				require.NoError(t, err)
				assert.GreaterOrEqual(t, v, 0.0)
				assert.LessOrEqual(t, v, 100.0)
			}
		}
	})

	t.Run("insufficient", func(t *testing.T) {
		_, err := RSI([]float64{1, 2}, 2)
		assert.ErrorIs(t, err, contracts.ErrInsufficientData)
	})
}

func TestBollinger(t *testing.T) {
	t.Run("known values", func(t *testing.T) {
		// 1..20: mean 10.5, population σ = sqrt(399/12)
		b, err := Bollinger(ramp(20, 1, 1), 20, 2)
		require.NoError(t, err)

		sigma := math.Sqrt(399.0 / 12.0)
		assert.InDelta(t, 10.5, b.Middle, 1e-9)
		assert.InDelta(t, 10.5+2*sigma, b.Upper, 1e-6)
		assert.InDelta(t, 10.5-2*sigma, b.Lower, 1e-6)
		assert.InDelta(t, 4*sigma, b.Width, 1e-6)
		assert.InDelta(t, (20-b.Lower)/b.Width, b.PercentB, 1e-9)
	})

	t.Run("flat series has zero width", func(t *testing.T) {
		b, err := Bollinger(constant(30, 123.45), 20, 2)
		require.NoError(t, err)
		assert.Equal(t, 0.0, b.Width)
		assert.Equal(t, 0.5, b.PercentB)
		assert.False(t, b.AtLower(123.45))
		assert.False(t, b.AtUpper(123.45))
	})

	t.Run("touches", func(t *testing.T) {
		b := Bands{Upper: 110, Middle: 100, Lower: 90, Width: 20}
		assert.True(t, b.AtLower(90))
		assert.True(t, b.AtLower(85))
		assert.False(t, b.AtLower(90.01))
		assert.True(t, b.AtUpper(110))
		assert.False(t, b.AtUpper(109.99))
	})

	t.Run("insufficient", func(t *testing.T) {
		_, err := Bollinger(ramp(19, 1, 1), 20, 2)
		assert.ErrorIs(t, err, contracts.ErrInsufficientData)
	})
}

func TestZScore(t *testing.T) {
	z, err := ZScore(ramp(20, 1, 1), 20)
	require.NoError(t, err)
	assert.InDelta(t, 9.5/math.Sqrt(399.0/12.0), z, 1e-9)

	_, err = ZScore(constant(20, 5), 20)
	assert.ErrorIs(t, err, contracts.ErrUndefinedRatio)
}

func TestATR(t *testing.T) {
	// constant ±1 range: every true range is 2
	s := series(constant(45, 50))

	atr, err := ATR(s, 20)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, atr, 1e-9)

	ratio, err := ATRRatio(s, 20, 20)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, ratio, 1e-9)

	_, err = ATR(series(constant(20, 50)), 20)
	assert.ErrorIs(t, err, contracts.ErrInsufficientData)

	_, err = ATRRatio(series(constant(40, 50)), 20, 20)
	assert.ErrorIs(t, err, contracts.ErrInsufficientData)
}

func TestATRRatioExpansion(t *testing.T) {
	s := series(constant(45, 50))
	// widen the final bar's range: TR jumps from 2 to 12
	s.Bars[44].High = 56
	s.Bars[44].Low = 44

	ratio, err := ATRRatio(s, 20, 20)
	require.NoError(t, err)
	// ATR = (2*19 + 12)/20 = 2.5 vs trailing 2.0
	assert.InDelta(t, 1.25, ratio, 1e-9)
	assert.Greater(t, ratio, HighATRMultiple)
}

func TestROC(t *testing.T) {
	v, err := ROC([]float64{100, 101, 102, 110}, 3)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, v, 1e-9)

	_, err = ROC([]float64{100, 101, 102}, 3)
	assert.ErrorIs(t, err, contracts.ErrInsufficientData)
}

func TestROCPercentile(t *testing.T) {
	closes := ramp(60, 100, 0.5)
	closes = append(closes, closes[len(closes)-1]*1.2)

	roc, pct, err := ROCPercentile(closes, 3, 252)
	require.NoError(t, err)
	assert.Greater(t, roc, 15.0)
	assert.Equal(t, 100.0, pct)
	assert.True(t, ExtremePercentile(pct))

	closes[len(closes)-1] = closes[len(closes)-2] * 0.8
	_, pct, err = ROCPercentile(closes, 3, 252)
	require.NoError(t, err)
	assert.LessOrEqual(t, pct, ROCExtremeLow)

	_, _, err = ROCPercentile(ramp(22, 100, 1), 3, 252)
	assert.ErrorIs(t, err, contracts.ErrInsufficientData)

	assert.False(t, ExtremePercentile(50))
}

func TestADX(t *testing.T) {
	trend, err := ADX(series(ramp(60, 20, 1)), 14)
	require.NoError(t, err)
	assert.Greater(t, trend, RangeBoundADX)
	assert.LessOrEqual(t, trend, 100.0)

	quiet, err := ADX(series(constant(60, 20)), 14)
	require.NoError(t, err)
	assert.Equal(t, 0.0, quiet)

	_, err = ADX(series(ramp(28, 20, 1)), 14)
	assert.ErrorIs(t, err, contracts.ErrInsufficientData)
}

func TestVWAP(t *testing.T) {
	s := &contracts.PriceSeries{Symbol: "T", Bars: []contracts.PriceBar{
		{High: 11, Low: 9, Close: 10, Open: 10, Volume: 100},
		{High: 21, Low: 19, Close: 20, Open: 20, Volume: 300},
	}}
	v, err := VWAP(s)
	require.NoError(t, err)
	assert.InDelta(t, 17.5, v, 1e-12)

	s.Bars[0].Volume, s.Bars[1].Volume = 0, 0
	_, err = VWAP(s)
	assert.ErrorIs(t, err, contracts.ErrUndefinedRatio)

	_, err = VWAP(&contracts.PriceSeries{})
	assert.ErrorIs(t, err, contracts.ErrInsufficientData)

	assert.True(t, NearVWAP(100, 100.5))
	assert.False(t, NearVWAP(100, 101.5))
}

func TestVolumeClimax(t *testing.T) {
	vols := append(constant(10, 100), 200)
	climax, ratio, err := VolumeClimax(vols, 10)
	require.NoError(t, err)
	assert.True(t, climax)
	assert.InDelta(t, 2.0, ratio, 1e-12)

	vols[10] = 150
	climax, _, err = VolumeClimax(vols, 10)
	require.NoError(t, err)
	assert.False(t, climax, "exactly 1.5x is not a climax")

	_, _, err = VolumeClimax(constant(10, 100), 10)
	assert.ErrorIs(t, err, contracts.ErrInsufficientData)

	_, _, err = VolumeClimax(append(constant(10, 0), 10), 10)
	assert.ErrorIs(t, err, contracts.ErrUndefinedRatio)
}

func TestComputeShortSeriesDegrades(t *testing.T) {
	s := series(ramp(10, 50, 1))
	set := Compute(s, nil, s.Bars[9].Date)

	for _, name := range []string{
		contracts.IndSMA20, contracts.IndBBUpper, contracts.IndBBWidth,
		contracts.IndATR20, contracts.IndADX14, contracts.IndROC3Pctl, contracts.IndVWAP,
	} {
		m := set.Get(name)
		assert.False(t, m.Known, name)
		assert.NotEmpty(t, m.Reason, name)
	}

	assert.True(t, set.Get(contracts.IndRSI2).Known)
	assert.True(t, set.Get(contracts.IndROC3).Known)
}

func TestComputeFlatSeries(t *testing.T) {
	s := series(constant(80, 100))
	set := Compute(s, nil, s.Bars[79].Date)

	assert.Equal(t, 50.0, set.Get(contracts.IndRSI2).Value)
	assert.Equal(t, 0.0, set.Get(contracts.IndBBWidth).Value)
	assert.True(t, set.Get(contracts.IndBBWidth).Known)
	assert.False(t, set.Get(contracts.IndZScore20).Known)
	assert.InDelta(t, 1.0, set.Get(contracts.IndVolumeRatio).Value, 1e-12)
}
