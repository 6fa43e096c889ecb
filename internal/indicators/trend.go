package indicators

import (
	"math"

	"github.com/markcheno/go-talib"

	"github.com/wonny/aegis-edge/internal/contracts"
)

// SMA returns the arithmetic mean of the last n values
func SMA(values []float64, n int) (float64, error) {
	if err := requirePeriod("sma", n); err != nil {
		return 0, err
	}
	if err := requireLen("sma", len(values), n); err != nil {
		return 0, err
	}
	return last(talib.Sma(values, n)), nil
}

// ADX returns the Wilder average directional index, clamped to [0,100].
// talib's first ADX output sits at index 2n-1; one extra bar gives a smoothed reading.
func ADX(bars *contracts.PriceSeries, n int) (float64, error) {
	if err := requirePeriod("adx", n); err != nil {
		return 0, err
	}
	if err := requireLen("adx", bars.Len(), 2*n+1); err != nil {
		return 0, err
	}

	adx := last(talib.Adx(bars.Highs(), bars.Lows(), bars.Closes(), n))
	if !finite(adx) {
		return 0, contracts.UndefinedRatio("adx", "no directional movement")
	}
	return math.Max(0, math.Min(100, adx)), nil
}
