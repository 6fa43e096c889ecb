package indicators

import (
	"sort"

	"github.com/markcheno/go-talib"
	"gonum.org/v1/gonum/stat"

	"github.com/wonny/aegis-edge/internal/contracts"
)

// RSI returns Wilder's relative strength index over period bars.
//
// Seeded with the simple average of the first period changes, then smoothed
// avg = (prev*(p-1) + cur) / p. A window without any movement reads exactly 50.
// Implemented directly because talib.Rsi returns 0 for a motionless window,
// which would read as deeply oversold.
func RSI(closes []float64, period int) (float64, error) {
	if err := requirePeriod("rsi", period); err != nil {
		return 0, err
	}
	if err := requireLen("rsi", len(closes), period+1); err != nil {
		return 0, err
	}

	p := float64(period)
	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		gain, loss := change(closes[i-1], closes[i])
		avgGain += gain
		avgLoss += loss
	}
	avgGain /= p
	avgLoss /= p

	for i := period + 1; i < len(closes); i++ {
		gain, loss := change(closes[i-1], closes[i])
		avgGain = (avgGain*(p-1) + gain) / p
		avgLoss = (avgLoss*(p-1) + loss) / p
	}

	total := avgGain + avgLoss
	if total == 0 {
		return 50, nil
	}
	return 100 * avgGain / total, nil
}

func change(prev, cur float64) (gain, loss float64) {
	d := cur - prev
	if d > 0 {
		return d, 0
	}
	return 0, -d
}

// ROC returns the percent change of the last value vs n bars earlier
func ROC(closes []float64, n int) (float64, error) {
	if err := requirePeriod("roc", n); err != nil {
		return 0, err
	}
	if err := requireLen("roc", len(closes), n+1); err != nil {
		return 0, err
	}
	if closes[len(closes)-1-n] == 0 {
		return 0, contracts.UndefinedRatio("roc", "base close is zero")
	}
	return last(talib.Roc(closes, n)), nil
}

// ROCPercentile ranks the current ROC(n) against the trailing window of up to
// lookback ROC readings (current included). The percentile is the share of
// readings <= current, times 100.
func ROCPercentile(closes []float64, n, lookback int) (roc, pct float64, err error) {
	if err := requirePeriod("roc_percentile", n); err != nil {
		return 0, 0, err
	}
	if lookback < minROCDistribution {
		return 0, 0, contracts.InvalidParameter("roc_percentile", "lookback below minimum distribution size")
	}
	if err := requireLen("roc_percentile", len(closes), n+minROCDistribution); err != nil {
		return 0, 0, err
	}

	series := talib.Roc(closes, n)[n:]
	if len(series) > lookback {
		series = series[len(series)-lookback:]
	}
	roc = last(series)

	sorted := append([]float64(nil), series...)
	sort.Float64s(sorted)
	pct = stat.CDF(roc, stat.Empirical, sorted, nil) * 100

	return roc, pct, nil
}

// ExtremePercentile reports a tail move (<= 5th or >= 95th percentile)
func ExtremePercentile(pct float64) bool {
	return pct <= ROCExtremeLow || pct >= ROCExtremeHigh
}
