package s3_decision

import (
	"time"

	"github.com/wonny/aegis-edge/internal/contracts"
	"github.com/wonny/aegis-edge/pkg/logger"
)

// Engine folds analyzer contributions into one recommendation
// ⭐ SSOT: 방향 결정과 체크리스트 집계는 여기서만
type Engine struct {
	logger *logger.Logger
}

// NewEngine creates a new decision engine
func NewEngine(log *logger.Logger) *Engine {
	return &Engine{logger: log}
}

// Snapshot carries the analyzer outputs that end up on the recommendation
type Snapshot struct {
	Symbol        string
	AsOf          time.Time
	EntryPrice    float64
	Indicators    contracts.IndicatorSet
	Market        contracts.MarketContext
	Technical     contracts.TechnicalSetup
	Institutional contracts.InstitutionalActivity
	Timing        contracts.TimingEdge
}

// Decide resolves the direction by majority vote, then evaluates every contribution's
// criteria against it. Items no contribution produced stay "not evaluated".
func (e *Engine) Decide(snap Snapshot, contributions []contracts.ChecklistContribution) *contracts.Recommendation {
	dir := Vote(contributions)

	checklist := contracts.NewChecklist()
	for _, c := range contributions {
		for _, r := range c.Criteria(dir) {
			if !r.Criterion.Valid() {
				continue
			}
			r.Source = r.Criterion.Source()
			checklist[r.Criterion] = r
		}
	}

	confirmed := checklist.ConfirmedCount()
	rec := &contracts.Recommendation{
		Symbol:         snap.Symbol,
		AsOf:           snap.AsOf,
		Direction:      dir,
		ConfirmedCount: confirmed,
		TotalCount:     checklist.TotalCount(),
		ReadyToTrade:   confirmed >= contracts.ReadyThreshold,
		EntryPrice:     snap.EntryPrice,
		ATR:            snap.Indicators.Get(contracts.IndATR20),
		Checklist:      checklist,
		Market:         snap.Market,
		Technical:      snap.Technical,
		Institutional:  snap.Institutional,
		Timing:         snap.Timing,
		Indicators:     snap.Indicators,
	}

	e.logger.WithFields(map[string]interface{}{
		"symbol":    rec.Symbol,
		"direction": rec.Direction,
		"confirmed": rec.ConfirmedCount,
		"total":     rec.TotalCount,
		"ready":     rec.ReadyToTrade,
	}).Info("Recommendation built")

	return rec
}

// Vote counts LONG and SHORT biases. The majority wins; a tie, including no votes, is NONE.
func Vote(contributions []contracts.ChecklistContribution) contracts.Direction {
	var long, short int
	for _, c := range contributions {
		switch c.Bias() {
		case contracts.DirectionLong:
			long++
		case contracts.DirectionShort:
			short++
		}
	}
	switch {
	case long > short:
		return contracts.DirectionLong
	case short > long:
		return contracts.DirectionShort
	}
	return contracts.DirectionNone
}
