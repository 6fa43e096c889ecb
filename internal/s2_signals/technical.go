package s2_signals

import (
	"fmt"

	"github.com/wonny/aegis-edge/internal/contracts"
	"github.com/wonny/aegis-edge/internal/indicators"
	"github.com/wonny/aegis-edge/pkg/logger"
)

// Mean-reversion score weights and scales.
// distance: -z/2 so a 2σ stretch scores 1; extremity: (50-RSI2)/40 so RSI2 10 scores 1.
const (
	DistanceWeight  = 0.6
	ExtremityWeight = 0.4
	distanceScale   = 2.0
	extremityScale  = 40.0

	// |z| needed for a directional bias, and for the opportunity item
	BiasZScore        = 1.0
	OpportunityZScore = 2.0
)

// TechnicalCalculator scores the symbol's own series for mean reversion
// ⭐ SSOT: 기술적 셋업 판단은 여기서만
type TechnicalCalculator struct {
	logger *logger.Logger
}

// NewTechnicalCalculator creates a new technical calculator
func NewTechnicalCalculator(log *logger.Logger) *TechnicalCalculator {
	return &TechnicalCalculator{
		logger: log,
	}
}

// Calculate builds the technical snapshot from the daily series and its indicators
func (c *TechnicalCalculator) Calculate(daily *contracts.PriceSeries, set *contracts.IndicatorSet) contracts.TechnicalSetup {
	lastBar, _ := daily.Last()

	setup := contracts.TechnicalSetup{
		Close:       lastBar.Close,
		SMA20:       set.Get(contracts.IndSMA20),
		ZScore:      set.Get(contracts.IndZScore20),
		RSI2:        set.Get(contracts.IndRSI2),
		BandUpper:   set.Get(contracts.IndBBUpper),
		BandLower:   set.Get(contracts.IndBBLower),
		BandWidth:   set.Get(contracts.IndBBWidth),
		VolumeRatio: set.Get(contracts.IndVolumeRatio),
	}

	setup.MeanReversionScore = MeanReversionScore(setup.ZScore, setup.RSI2)
	setup.Bias = technicalBias(setup.ZScore, setup.RSI2)

	pct := set.Get(contracts.IndROC3Pctl)
	setup.ExtremeROC = flagFrom(pct, indicators.ExtremePercentile(pct.Value))

	// measured from the last intraday print, the same session the VWAP covers
	dist := set.Get(contracts.IndVWAPDistance)
	setup.NearVWAP = flagFrom(dist, indicators.NearVWAPDistance(dist.Value))

	atrRatio := set.Get(contracts.IndATRRatio)
	setup.HighATR = flagFrom(atrRatio, atrRatio.Value > indicators.HighATRMultiple)

	adx := set.Get(contracts.IndADX14)
	setup.RangeBound = flagFrom(adx, adx.Value < indicators.RangeBoundADX)

	c.logger.WithFields(map[string]interface{}{
		"symbol":      daily.Symbol,
		"zscore":      setup.ZScore.Value,
		"rsi2":        setup.RSI2.Value,
		"mr_score":    setup.MeanReversionScore.Value,
		"mr_known":    setup.MeanReversionScore.Known,
		"bias":        setup.Bias,
		"high_atr":    setup.HighATR.True(),
		"range_bound": setup.RangeBound.True(),
	}).Debug("Calculated technical setup")

	return setup
}

// MeanReversionScore = 0.6·(−z/2) + 0.4·((50 − RSI2)/40).
// Positive favors LONG. Strictly decreasing in both z and RSI2; unknown if either is.
func MeanReversionScore(z, rsi contracts.Measure) contracts.Measure {
	if !z.Known {
		return contracts.Measure{Reason: "zscore: " + z.Reason}
	}
	if !rsi.Known {
		return contracts.Measure{Reason: "rsi2: " + rsi.Reason}
	}
	distance := -z.Value / distanceScale
	extremity := (50 - rsi.Value) / extremityScale
	return contracts.KnownMeasure(DistanceWeight*distance + ExtremityWeight*extremity)
}

// technicalBias reads direction from the sign of the deviation, confirmed by RSI2 when known
func technicalBias(z, rsi contracts.Measure) contracts.Direction {
	if !z.Known {
		return contracts.DirectionNone
	}
	switch {
	case z.Value <= -BiasZScore && (!rsi.Known || rsi.Value < 50):
		return contracts.DirectionLong
	case z.Value >= BiasZScore && (!rsi.Known || rsi.Value > 50):
		return contracts.DirectionShort
	}
	return contracts.DirectionNone
}

func flagFrom(m contracts.Measure, value bool) contracts.Flag {
	if !m.Known {
		return contracts.Flag{Reason: m.Reason}
	}
	return contracts.Flag{Value: value, Known: true}
}

// TechnicalContribution exposes the technical setup as checklist items
type TechnicalContribution struct {
	Setup contracts.TechnicalSetup
}

// Source implements contracts.ChecklistContribution
func (t TechnicalContribution) Source() contracts.Source { return contracts.SourceTechnical }

// Bias implements contracts.ChecklistContribution
func (t TechnicalContribution) Bias() contracts.Direction { return t.Setup.Bias }

// Criteria implements contracts.ChecklistContribution
func (t TechnicalContribution) Criteria(dir contracts.Direction) []contracts.CriterionResult {
	s := t.Setup
	z, rsi, vol := s.ZScore, s.RSI2, s.VolumeRatio

	var opportunity, extreme, touch bool
	switch dir {
	case contracts.DirectionLong:
		opportunity = z.Known && z.Value <= -OpportunityZScore
		extreme = rsi.Known && rsi.Value < indicators.RSIOversold
		touch = s.BandLower.Known && s.BandWidth.Value > 0 && s.Close <= s.BandLower.Value
	case contracts.DirectionShort:
		opportunity = z.Known && z.Value >= OpportunityZScore
		extreme = rsi.Known && rsi.Value > indicators.RSIOverbought
		touch = s.BandUpper.Known && s.BandWidth.Value > 0 && s.Close >= s.BandUpper.Value
	}

	bandValue := s.BandLower
	if dir == contracts.DirectionShort {
		bandValue = s.BandUpper
	}

	return []contracts.CriterionResult{
		{
			Criterion: contracts.CriterionMeanReversion,
			Source:    contracts.SourceTechnical,
			Confirmed: opportunity,
			Value:     z,
			Note:      measureNote(z, "z-score %+.2f"),
		},
		{
			Criterion: contracts.CriterionVolumeClimax,
			Source:    contracts.SourceTechnical,
			Confirmed: vol.Known && vol.Value > indicators.ClimaxMultiple,
			Value:     vol,
			Note:      measureNote(vol, "volume %.2fx 10-bar average"),
		},
		{
			Criterion: contracts.CriterionRSI2Extreme,
			Source:    contracts.SourceTechnical,
			Confirmed: extreme,
			Value:     rsi,
			Note:      measureNote(rsi, "RSI(2) %.1f"),
		},
		{
			Criterion: contracts.CriterionBollingerTouch,
			Source:    contracts.SourceTechnical,
			Confirmed: touch,
			Value:     bandValue,
			Note:      measureNote(bandValue, fmt.Sprintf("close %.2f vs band %%.2f", s.Close)),
		},
	}
}

func measureNote(m contracts.Measure, format string) string {
	if !m.Known {
		return m.Reason
	}
	return fmt.Sprintf(format, m.Value)
}
