package s1_market

import (
	"fmt"

	"github.com/wonny/aegis-edge/internal/contracts"
	"github.com/wonny/aegis-edge/internal/indicators"
	"github.com/wonny/aegis-edge/pkg/logger"
)

// SectorWindow is the return window (sessions) for sector relative strength
const SectorWindow = 5

// Evaluator classifies the broad-market backdrop
// ⭐ SSOT: 시장 환경 판단은 여기서만
type Evaluator struct {
	logger *logger.Logger
}

// NewEvaluator creates a market condition evaluator
func NewEvaluator(log *logger.Logger) *Evaluator {
	return &Evaluator{logger: log}
}

// Evaluate computes the MarketContext. Missing or short auxiliary series
// degrade only their own field to unknown.
func (e *Evaluator) Evaluate(vix, sector, index *contracts.PriceSeries) contracts.MarketContext {
	mc := contracts.MarketContext{
		VIX2DayTrendPct:           contracts.MeasureOf(VIXTrend(vix)),
		SectorRelativeStrengthPct: contracts.MeasureOf(RelativeStrength(sector, index, SectorWindow)),
		IndexAbove20DMA:           IndexAboveSMA(index, indicators.SMAPeriod),
	}
	if sector != nil {
		mc.SectorSymbol = sector.Symbol
	}

	e.logger.WithFields(map[string]interface{}{
		"vix_trend_known":   mc.VIX2DayTrendPct.Known,
		"vix_trend_pct":     mc.VIX2DayTrendPct.Value,
		"sector_rs_known":   mc.SectorRelativeStrengthPct.Known,
		"sector_rs_pct":     mc.SectorRelativeStrengthPct.Value,
		"index_above_known": mc.IndexAbove20DMA.Known,
		"index_above":       mc.IndexAbove20DMA.Value,
	}).Debug("Market context evaluated")

	return mc
}

// VIXTrend returns the volatility index's 2-session percent change
func VIXTrend(vix *contracts.PriceSeries) (float64, error) {
	if vix == nil {
		return 0, contracts.UpstreamDataGap("vix_trend", "volatility series unavailable")
	}
	return indicators.ROC(vix.Closes(), 2)
}

// RelativeStrength returns sector ROC minus index ROC over window sessions
func RelativeStrength(sector, index *contracts.PriceSeries, window int) (float64, error) {
	if sector == nil {
		return 0, contracts.UpstreamDataGap("sector_strength", "sector series unavailable")
	}
	if index == nil {
		return 0, contracts.UpstreamDataGap("sector_strength", "index series unavailable")
	}
	s, err := indicators.ROC(sector.Closes(), window)
	if err != nil {
		return 0, err
	}
	i, err := indicators.ROC(index.Closes(), window)
	if err != nil {
		return 0, err
	}
	return s - i, nil
}

// IndexAboveSMA reports whether the index closed above its SMA(n)
func IndexAboveSMA(index *contracts.PriceSeries, n int) contracts.Flag {
	if index == nil {
		return contracts.Flag{Reason: contracts.UpstreamDataGap("index_trend", "index series unavailable").Error()}
	}
	closes := index.Closes()
	sma, err := indicators.SMA(closes, n)
	if err != nil {
		return contracts.Flag{Reason: err.Error()}
	}
	return contracts.Flag{Value: closes[len(closes)-1] > sma, Known: true}
}

// Contribution exposes the market context as checklist items
type Contribution struct {
	Context contracts.MarketContext
}

// Source implements contracts.ChecklistContribution
func (c Contribution) Source() contracts.Source { return contracts.SourceMarket }

// Bias implements contracts.ChecklistContribution; the backdrop does not vote
func (c Contribution) Bias() contracts.Direction { return contracts.DirectionNone }

// Criteria implements contracts.ChecklistContribution.
// Volatility easing helps both sides; sector and index items follow the direction.
func (c Contribution) Criteria(dir contracts.Direction) []contracts.CriterionResult {
	vix := c.Context.VIX2DayTrendPct
	rs := c.Context.SectorRelativeStrengthPct
	idx := c.Context.IndexAbove20DMA

	idxValue := contracts.Measure{Known: idx.Known, Reason: idx.Reason}
	if idx.Value {
		idxValue.Value = 1
	}

	return []contracts.CriterionResult{
		{
			Criterion: contracts.CriterionVIXDeclining,
			Source:    contracts.SourceMarket,
			Confirmed: vix.Known && vix.Value < 0,
			Value:     vix,
			Note:      note(vix.Known, fmt.Sprintf("VIX 2d %+.2f%%", vix.Value), vix.Reason),
		},
		{
			Criterion: contracts.CriterionSectorStrength,
			Source:    contracts.SourceMarket,
			Confirmed: rs.Known && rs.Value*dir.Sign() > 0,
			Value:     rs,
			Note:      note(rs.Known, fmt.Sprintf("sector vs index %+.2f%%", rs.Value), rs.Reason),
		},
		{
			Criterion: contracts.CriterionIndexTrend,
			Source:    contracts.SourceMarket,
			Confirmed: (dir == contracts.DirectionLong && idx.True()) || (dir == contracts.DirectionShort && idx.False()),
			Value:     idxValue,
			Note:      note(idx.Known, fmt.Sprintf("index above 20DMA: %t", idx.Value), idx.Reason),
		},
	}
}

func note(known bool, text, reason string) string {
	if known {
		return text
	}
	return reason
}
