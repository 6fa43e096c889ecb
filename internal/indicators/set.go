package indicators

import (
	"time"

	"github.com/wonny/aegis-edge/internal/contracts"
)

// Compute builds the IndicatorSet for one symbol.
// Failures become unknown measures carrying the reason; nothing here aborts.
func Compute(daily, intraday *contracts.PriceSeries, asOf time.Time) contracts.IndicatorSet {
	set := contracts.IndicatorSet{
		Symbol: daily.Symbol,
		AsOf:   asOf,
		Values: make(map[string]contracts.Measure, 17),
	}
	put := func(name string, v float64, err error) {
		set.Values[name] = contracts.MeasureOf(v, err)
	}

	closes := daily.Closes()

	v, err := SMA(closes, SMAPeriod)
	put(contracts.IndSMA20, v, err)

	v, err = ZScore(closes, SMAPeriod)
	put(contracts.IndZScore20, v, err)

	v, err = RSI(closes, RSIShortPeriod)
	put(contracts.IndRSI2, v, err)

	v, err = RSI(closes, RSILongPeriod)
	put(contracts.IndRSI14, v, err)

	bands, err := Bollinger(closes, BandPeriod, BandWidthK)
	put(contracts.IndBBUpper, bands.Upper, err)
	put(contracts.IndBBMiddle, bands.Middle, err)
	put(contracts.IndBBLower, bands.Lower, err)
	put(contracts.IndBBWidth, bands.Width, err)
	put(contracts.IndBBPercentB, bands.PercentB, err)

	v, err = ATR(daily, ATRPeriod)
	put(contracts.IndATR20, v, err)

	v, err = ATRRatio(daily, ATRPeriod, ATRAveragePeriod)
	put(contracts.IndATRRatio, v, err)

	roc, pct, err := ROCPercentile(closes, ROCPeriod, ROCLookback)
	if err != nil {
		// the plain ROC may still be defined on a short series
		plain, rocErr := ROC(closes, ROCPeriod)
		put(contracts.IndROC3, plain, rocErr)
	} else {
		put(contracts.IndROC3, roc, nil)
	}
	put(contracts.IndROC3Pctl, pct, err)

	v, err = ADX(daily, ADXPeriod)
	put(contracts.IndADX14, v, err)

	v, err = VolumeRatio(daily.Volumes(), ClimaxWindow)
	put(contracts.IndVolumeRatio, v, err)

	if intraday.Len() == 0 {
		gap := contracts.UpstreamDataGap("vwap", "no intraday bars")
		put(contracts.IndVWAP, 0, gap)
		put(contracts.IndVWAPDistance, 0, gap)
	} else {
		session := contracts.SessionBars(intraday)
		vwap, err := VWAP(session)
		put(contracts.IndVWAP, vwap, err)
		if err == nil {
			price := session.Bars[len(session.Bars)-1].Close
			put(contracts.IndVWAPDistance, (price-vwap)/price*100, nil)
		} else {
			put(contracts.IndVWAPDistance, 0, err)
		}
	}

	return set
}
