package s2_signals

import (
	"fmt"
	"math"
	"time"

	"github.com/wonny/aegis-edge/internal/contracts"
	"github.com/wonny/aegis-edge/pkg/logger"
)

// Optimal entry window, minutes after midnight exchange time
const (
	OptimalWindowStart = 10 * 60
	OptimalWindowEnd   = 15 * 60

	pullbackTrendBars = 5
)

// dayMultipliers holds the historical day-of-week edge; weekends never trade
var dayMultipliers = map[time.Weekday]float64{
	time.Monday:    0.9,
	time.Tuesday:   1.2,
	time.Wednesday: 1.2,
	time.Thursday:  1.0,
	time.Friday:    0.8,
}

// DayMultiplier returns the day-of-week edge multiplier
func DayMultiplier(d time.Weekday) float64 {
	return dayMultipliers[d]
}

// TimingCalculator judges whether now is a good moment to enter
// ⭐ SSOT: 진입 타이밍 판단은 여기서만
type TimingCalculator struct {
	logger *logger.Logger
}

// NewTimingCalculator creates a new timing calculator
func NewTimingCalculator(log *logger.Logger) *TimingCalculator {
	return &TimingCalculator{
		logger: log,
	}
}

// Calculate evaluates the clock at asOf and looks for a pullback.
// Pullbacks are read from intraday bars when present, else daily bars.
func (c *TimingCalculator) Calculate(asOf time.Time, daily, intraday *contracts.PriceSeries) contracts.TimingEdge {
	local := asOf.In(contracts.ExchangeLocation())
	minute := local.Hour()*60 + local.Minute()

	edge := contracts.TimingEdge{
		DayOfWeek:          local.Weekday(),
		DayEdgeMultiplier:  DayMultiplier(local.Weekday()),
		OptimalWindow:      InOptimalWindow(local),
		MinutesIntoSession: minute - contracts.SessionOpenMinute,
		PullbackTrend:      contracts.DirectionNone,
	}

	source := daily
	if intraday.Len() > 0 {
		source = intraday
	}
	edge.PullbackTrend, edge.PullbackBars = DetectPullback(source.Closes())
	edge.PullbackDetected = edge.PullbackBars > 0

	c.logger.WithFields(map[string]interface{}{
		"weekday":        edge.DayOfWeek.String(),
		"day_multiplier": edge.DayEdgeMultiplier,
		"optimal_window": edge.OptimalWindow,
		"pullback":       edge.PullbackDetected,
		"pullback_trend": edge.PullbackTrend,
	}).Debug("Calculated timing edge")

	return edge
}

// InOptimalWindow reports whether t falls in [10:00, 15:00) on a trading weekday
func InOptimalWindow(t time.Time) bool {
	local := t.In(contracts.ExchangeLocation())
	if DayMultiplier(local.Weekday()) == 0 {
		return false
	}
	minute := local.Hour()*60 + local.Minute()
	return minute >= OptimalWindowStart && minute < OptimalWindowEnd
}

// DetectPullback looks for a 2 or 3 bar counter-move against the 5-bar trend ending at the pivot.
// It returns the trend being pulled back from and the counter-move length, or NONE and 0.
func DetectPullback(closes []float64) (contracts.Direction, int) {
	for _, r := range []int{2, 3} {
		if len(closes) < r+pullbackTrendBars+1 {
			break
		}
		pivot := len(closes) - 1 - r
		move := closes[pivot] - closes[pivot-pullbackTrendBars]
		if move == 0 {
			continue
		}

		against := true
		for i := pivot + 1; i < len(closes); i++ {
			step := closes[i] - closes[i-1]
			if (move > 0 && step >= 0) || (move < 0 && step <= 0) {
				against = false
				break
			}
		}
		if !against {
			continue
		}

		// 되돌림이 직전 추세폭을 넘으면 추세 전환으로 본다
		depth := math.Abs(closes[pivot] - closes[len(closes)-1])
		if depth >= math.Abs(move) {
			continue
		}

		if move > 0 {
			return contracts.DirectionLong, r
		}
		return contracts.DirectionShort, r
	}
	return contracts.DirectionNone, 0
}

// TimingContribution exposes the timing edge as checklist items
type TimingContribution struct {
	Edge contracts.TimingEdge
}

// Source implements contracts.ChecklistContribution
func (t TimingContribution) Source() contracts.Source { return contracts.SourceTiming }

// Bias implements contracts.ChecklistContribution; timing does not vote
func (t TimingContribution) Bias() contracts.Direction { return contracts.DirectionNone }

// Criteria implements contracts.ChecklistContribution
func (t TimingContribution) Criteria(contracts.Direction) []contracts.CriterionResult {
	e := t.Edge

	window := 0.0
	if e.OptimalWindow {
		window = 1
	}
	pullback := 0.0
	if e.PullbackDetected {
		pullback = float64(e.PullbackBars)
	}

	return []contracts.CriterionResult{
		{
			Criterion: contracts.CriterionFavorableDay,
			Source:    contracts.SourceTiming,
			Confirmed: e.DayEdgeMultiplier > 1.0,
			Value:     contracts.KnownMeasure(e.DayEdgeMultiplier),
			Note:      fmt.Sprintf("%s multiplier %.1f", e.DayOfWeek, e.DayEdgeMultiplier),
		},
		{
			Criterion: contracts.CriterionOptimalWindow,
			Source:    contracts.SourceTiming,
			Confirmed: e.OptimalWindow,
			Value:     contracts.KnownMeasure(window),
			Note:      fmt.Sprintf("%d minutes into session", e.MinutesIntoSession),
		},
		{
			Criterion: contracts.CriterionPullbackEntry,
			Source:    contracts.SourceTiming,
			Confirmed: e.PullbackDetected,
			Value:     contracts.KnownMeasure(pullback),
			Note:      fmt.Sprintf("pullback %d bars against %s trend", e.PullbackBars, e.PullbackTrend),
		},
	}
}
