package indicators

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/wonny/aegis-edge/internal/contracts"
)

// VWAP returns Σ(typical price × volume) / Σ volume over the session's bars
func VWAP(session *contracts.PriceSeries) (float64, error) {
	if err := requireLen("vwap", session.Len(), 1); err != nil {
		return 0, err
	}

	var pv, vol float64
	for _, b := range session.Bars {
		pv += b.TypicalPrice() * float64(b.Volume)
		vol += float64(b.Volume)
	}
	if vol == 0 {
		return 0, contracts.UndefinedRatio("vwap", "session volume is zero")
	}
	return pv / vol, nil
}

// NearVWAP reports |price - vwap| / price below the fixed tolerance
func NearVWAP(price, vwap float64) bool {
	if price <= 0 {
		return false
	}
	return NearVWAPDistance((price - vwap) / price * 100)
}

// NearVWAPDistance is NearVWAP for a distance already in percent of price
func NearVWAPDistance(distPct float64) bool {
	return math.Abs(distPct) < NearVWAPTolerance*100
}

// VolumeRatio compares the last volume with the mean of the window bars before it
func VolumeRatio(volumes []float64, window int) (float64, error) {
	if err := requirePeriod("volume_ratio", window); err != nil {
		return 0, err
	}
	if err := requireLen("volume_ratio", len(volumes), window+1); err != nil {
		return 0, err
	}

	n := len(volumes)
	avg := stat.Mean(volumes[n-1-window:n-1], nil)
	if avg == 0 {
		return 0, contracts.UndefinedRatio("volume_ratio", "zero average volume")
	}
	return volumes[n-1] / avg, nil
}

// VolumeClimax reports current volume above ClimaxMultiple × the trailing average
func VolumeClimax(volumes []float64, window int) (bool, float64, error) {
	ratio, err := VolumeRatio(volumes, window)
	if err != nil {
		return false, 0, err
	}
	return ratio > ClimaxMultiple, ratio, nil
}
