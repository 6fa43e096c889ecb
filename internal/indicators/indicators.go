// Package indicators implements the technical indicators the engine scores on.
//
// Every function is pure and reports insufficient history as a
// contracts.KindInsufficientData error instead of extrapolating. go-talib
// indexes past the end of short inputs, so each wrapper checks length first.
package indicators

import (
	"math"

	"github.com/wonny/aegis-edge/internal/contracts"
)

// Default periods
const (
	SMAPeriod        = 20
	RSIShortPeriod   = 2
	RSILongPeriod    = 14
	BandPeriod       = 20
	BandWidthK       = 2.0
	ATRPeriod        = 20
	ATRAveragePeriod = 20
	ROCPeriod        = 3
	ROCLookback      = 252
	ADXPeriod        = 14
	ClimaxWindow     = 10
)

// Thresholds
const (
	RSIOversold       = 10.0
	RSIOverbought     = 90.0
	HighATRMultiple   = 1.2
	ROCExtremeLow     = 5.0
	ROCExtremeHigh    = 95.0
	NearVWAPTolerance = 0.01
	RangeBoundADX     = 20.0
	ClimaxMultiple    = 1.5

	// minimum ROC readings before a percentile means anything
	minROCDistribution = 20
)

func requireLen(op string, have, need int) error {
	if have < need {
		return contracts.InsufficientData(op, need, have)
	}
	return nil
}

func requirePeriod(op string, n int) error {
	if n < 1 {
		return contracts.InvalidParameter(op, "period must be >= 1")
	}
	return nil
}

func last(values []float64) float64 {
	return values[len(values)-1]
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// flat reports whether every value is identical
func flat(values []float64) bool {
	for _, v := range values[1:] {
		if v != values[0] {
			return false
		}
	}
	return true
}
