package indicators

import (
	"github.com/markcheno/go-talib"
	"gonum.org/v1/gonum/stat"

	"github.com/wonny/aegis-edge/internal/contracts"
)

// Bands is a Bollinger band snapshot at the last bar
type Bands struct {
	Upper    float64 `json:"upper"`
	Middle   float64 `json:"middle"`
	Lower    float64 `json:"lower"`
	Width    float64 `json:"width"`
	PercentB float64 `json:"percent_b"`
}

// AtLower reports a lower-band touch; degenerate bands never touch
func (b Bands) AtLower(price float64) bool {
	return b.Width > 0 && price <= b.Lower
}

// AtUpper reports an upper-band touch; degenerate bands never touch
func (b Bands) AtUpper(price float64) bool {
	return b.Width > 0 && price >= b.Upper
}

// Bollinger returns SMA(n) ± k population standard deviations of the last n closes
func Bollinger(closes []float64, n int, k float64) (Bands, error) {
	if err := requirePeriod("bollinger", n); err != nil {
		return Bands{}, err
	}
	if err := requireLen("bollinger", len(closes), n); err != nil {
		return Bands{}, err
	}

	price := last(closes)

	// talib's one-pass variance leaves rounding residue on constant input
	if flat(closes[len(closes)-n:]) {
		return Bands{Upper: price, Middle: price, Lower: price, PercentB: 0.5}, nil
	}

	upper, middle, lower := talib.BBands(closes, n, k, k, talib.SMA)
	b := Bands{
		Upper:  last(upper),
		Middle: last(middle),
		Lower:  last(lower),
	}
	b.Width = b.Upper - b.Lower
	b.PercentB = 0.5
	if b.Width > 0 {
		b.PercentB = (price - b.Lower) / b.Width
	}
	return b, nil
}

// ZScore returns (close - mean) / population σ over the last n closes
func ZScore(closes []float64, n int) (float64, error) {
	if err := requirePeriod("zscore", n); err != nil {
		return 0, err
	}
	if err := requireLen("zscore", len(closes), n); err != nil {
		return 0, err
	}

	window := closes[len(closes)-n:]
	if flat(window) {
		return 0, contracts.UndefinedRatio("zscore", "zero standard deviation")
	}
	mean, std := stat.PopMeanStdDev(window, nil)
	if std == 0 {
		return 0, contracts.UndefinedRatio("zscore", "zero standard deviation")
	}
	return (last(window) - mean) / std, nil
}

// atrSeries returns the defined part of talib's Wilder ATR (index n onwards)
func atrSeries(bars *contracts.PriceSeries, n int) []float64 {
	return talib.Atr(bars.Highs(), bars.Lows(), bars.Closes(), n)[n:]
}

// ATR returns the Wilder-smoothed average true range
func ATR(bars *contracts.PriceSeries, n int) (float64, error) {
	if err := requirePeriod("atr", n); err != nil {
		return 0, err
	}
	if err := requireLen("atr", bars.Len(), n+1); err != nil {
		return 0, err
	}
	return last(atrSeries(bars, n)), nil
}

// ATRRatio compares the current ATR(n) with the mean of the avg readings before it
func ATRRatio(bars *contracts.PriceSeries, n, avg int) (float64, error) {
	if err := requirePeriod("atr_ratio", n); err != nil {
		return 0, err
	}
	if err := requirePeriod("atr_ratio", avg); err != nil {
		return 0, err
	}
	if err := requireLen("atr_ratio", bars.Len(), n+avg+1); err != nil {
		return 0, err
	}

	series := atrSeries(bars, n)
	current := last(series)
	trailing := stat.Mean(series[len(series)-1-avg:len(series)-1], nil)
	if trailing == 0 {
		return 0, contracts.UndefinedRatio("atr_ratio", "zero trailing ATR")
	}
	return current / trailing, nil
}
