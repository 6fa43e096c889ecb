package s2_signals

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/wonny/aegis-edge/internal/contracts"
	"github.com/wonny/aegis-edge/pkg/logger"
)

// Institutional thresholds
const (
	LargeFlowMultiple   = 3.0  // side volume vs baseline average
	UnusualOIMultiple   = 1.0  // contract volume vs open interest
	BlockVolumeMultiple = 5.0  // bar volume vs window mean
	BlockWindowSessions = 5    // trailing sessions of intraday bars behind the mean
	BlockMinImpactPct   = 0.2  // |close-to-close move| a block must cause
	SkewMinDTE          = 7    // nearest expiry at least this many days out
	SkewMaxMoneyness    = 0.10 // OTM band |K-S|/S
	SkewPairTolerance   = 0.02 // max moneyness gap between a matched put and call
	SkewScale           = 0.25 // (1 - ratio) at which the skew sub-score saturates
	BiasScoreThreshold  = 0.2
)

// Sub-score weights; only defined components enter the average
const (
	FlowWeight  = 0.5
	BlockWeight = 0.3
	SkewWeight  = 0.2
)

// InstitutionalCalculator reads large-participant footprints from options and intraday prints
// ⭐ SSOT: 기관 수급 판단은 여기서만
type InstitutionalCalculator struct {
	logger *logger.Logger
}

// NewInstitutionalCalculator creates a new institutional calculator
func NewInstitutionalCalculator(log *logger.Logger) *InstitutionalCalculator {
	return &InstitutionalCalculator{
		logger: log,
	}
}

// Calculate builds the institutional snapshot.
// A nil chain leaves Available=false; block detection still runs on intraday bars.
func (c *InstitutionalCalculator) Calculate(
	chain *contracts.OptionsChainSnapshot,
	baseline *contracts.OptionVolumeBaseline,
	intraday *contracts.PriceSeries,
	refPrice float64,
) contracts.InstitutionalActivity {
	act := contracts.InstitutionalActivity{
		SkewDirection: contracts.SkewNeutral,
		Bias:          contracts.DirectionNone,
	}

	if intraday.Len() > 0 {
		window := contracts.TrailingSessions(intraday, BlockWindowSessions)
		act.BlockTrades = DetectBlockTrades(window, BlockVolumeMultiple)
	}

	if chain == nil {
		act.Reason = contracts.UpstreamDataGap("institutional", "options chain unavailable").Error()
		act.CallPutRatio = contracts.Measure{Reason: act.Reason}
		act.SkewRatio = contracts.Measure{Reason: act.Reason}
		act.ATMImpliedVol = contracts.Measure{Reason: act.Reason}
		act.ImpliedMovePct = contracts.Measure{Reason: act.Reason}
		c.logger.Debug("Options chain unavailable, institutional flow skipped")
		return act
	}
	act.Available = true

	act.CallVolume, act.PutVolume = chainVolumes(chain)
	act.CallPutRatio = contracts.MeasureOf(CallPutRatio(act.CallVolume, act.PutVolume))
	act.LargeCallFlag, act.LargePutFlag = largeFlags(act.CallVolume, act.PutVolume, baseline)
	act.UnusualContractCount = CountUnusual(chain.Contracts, UnusualOIMultiple)

	skew := AnalyzeSkew(chain, refPrice)
	act.SkewRatio = skew.Ratio
	act.SkewDirection = skew.Direction
	act.SkewExpiration = skew.Expiration
	act.DaysToExpiry = skew.DaysToExpiry
	act.ATMImpliedVol = skew.ATMImpliedVol
	act.ImpliedMovePct = skew.ImpliedMovePct

	act.Score, act.Confidence = InstitutionalScore(act.CallPutRatio, act.BlockTrades, act.SkewRatio)
	switch {
	case act.Score > BiasScoreThreshold:
		act.Bias = contracts.DirectionLong
	case act.Score < -BiasScoreThreshold:
		act.Bias = contracts.DirectionShort
	}

	c.logger.WithFields(map[string]interface{}{
		"symbol":       chain.Symbol,
		"call_volume":  act.CallVolume,
		"put_volume":   act.PutVolume,
		"unusual":      act.UnusualContractCount,
		"blocks":       len(act.BlockTrades),
		"skew":         act.SkewDirection,
		"score":        act.Score,
		"confidence":   act.Confidence,
		"bias":         act.Bias,
		"large_call":   act.LargeCallFlag,
		"large_put":    act.LargePutFlag,
		"skew_known":   act.SkewRatio.Known,
		"ratio_known":  act.CallPutRatio.Known,
		"dte":          act.DaysToExpiry,
		"reference_px": refPrice,
	}).Debug("Calculated institutional activity")

	return act
}

func chainVolumes(chain *contracts.OptionsChainSnapshot) (calls, puts int64) {
	for _, oc := range chain.Contracts {
		switch oc.Type {
		case contracts.OptionCall:
			calls += oc.Volume
		case contracts.OptionPut:
			puts += oc.Volume
		}
	}
	return calls, puts
}

// CallPutRatio returns calls/puts; undefined when no puts traded
func CallPutRatio(calls, puts int64) (float64, error) {
	if puts == 0 {
		return 0, contracts.UndefinedRatio("call_put_ratio", "put volume is zero")
	}
	return float64(calls) / float64(puts), nil
}

func largeFlags(calls, puts int64, baseline *contracts.OptionVolumeBaseline) (bool, bool) {
	if baseline == nil {
		return false, false
	}
	large := func(v int64, avg float64) bool {
		return avg > 0 && float64(v) > LargeFlowMultiple*avg
	}
	return large(calls, baseline.CallAverage), large(puts, baseline.PutAverage)
}

// CountUnusual counts contracts trading more than multiple × open interest
func CountUnusual(chain []contracts.OptionContract, multiple float64) int {
	n := 0
	for _, oc := range chain {
		if oc.Volume > 0 && float64(oc.Volume) > multiple*float64(oc.OpenInterest) {
			n++
		}
	}
	return n
}

// DetectBlockTrades flags bars whose volume exceeds multiple × the window's mean bar volume
// and whose close moved more than BlockMinImpactPct from the bar before.
// The first bar has no prior close and is never a block.
func DetectBlockTrades(bars *contracts.PriceSeries, multiple float64) []contracts.BlockTrade {
	if bars.Len() < 2 {
		return nil
	}
	mean := stat.Mean(bars.Volumes(), nil)
	if mean <= 0 {
		return nil
	}

	var blocks []contracts.BlockTrade
	for i := 1; i < len(bars.Bars); i++ {
		b := bars.Bars[i]
		if float64(b.Volume) <= multiple*mean {
			continue
		}
		prev := bars.Bars[i-1].Close
		impact := (b.Close - prev) / prev * 100
		if math.Abs(impact) <= BlockMinImpactPct {
			continue
		}
		blocks = append(blocks, contracts.BlockTrade{
			Timestamp:      b.Date,
			Volume:         b.Volume,
			Price:          b.Close,
			VolumeMultiple: float64(b.Volume) / mean,
			PriceImpactPct: impact,
		})
	}
	return blocks
}

// SkewReading is the options-skew result for the target expiration
type SkewReading struct {
	Ratio          contracts.Measure
	Direction      contracts.SkewDirection
	Expiration     time.Time
	DaysToExpiry   int
	Underlying     float64
	ATMImpliedVol  contracts.Measure
	ImpliedMovePct contracts.Measure
}

// AnalyzeSkew compares OTM put IV against OTM call IV at matched moneyness
func AnalyzeSkew(chain *contracts.OptionsChainSnapshot, refPrice float64) SkewReading {
	out := SkewReading{Direction: contracts.SkewNeutral}
	unknown := func(err error) SkewReading {
		m := contracts.UnknownMeasure(err)
		out.Ratio, out.ATMImpliedVol, out.ImpliedMovePct = m, m, m
		return out
	}

	if chain == nil || len(chain.Contracts) == 0 {
		return unknown(contracts.UpstreamDataGap("skew", "empty options chain"))
	}

	out.Expiration, out.DaysToExpiry = targetExpiration(chain)
	out.Underlying = underlyingPrice(chain, refPrice)
	s := out.Underlying

	var calls, puts []contracts.OptionContract
	for _, oc := range chain.Contracts {
		if !sameDay(oc.Expiration, out.Expiration) || !oc.HasIV() {
			continue
		}
		if oc.Type == contracts.OptionCall {
			calls = append(calls, oc)
		} else {
			puts = append(puts, oc)
		}
	}
	// contract order is arbitrary; sort so nearest-strike ties resolve the same way every time
	byStrike := func(a, b contracts.OptionContract) int {
		if c := cmp.Compare(a.Strike, b.Strike); c != 0 {
			return c
		}
		return cmp.Compare(a.ContractID, b.ContractID)
	}
	slices.SortFunc(calls, byStrike)
	slices.SortFunc(puts, byStrike)

	if len(calls) == 0 && len(puts) == 0 {
		return unknown(contracts.UpstreamDataGap("skew", "no implied volatility at target expiration"))
	}

	out.Ratio = skewRatio(calls, puts, s)
	if out.Ratio.Known {
		if out.Ratio.Value < 1 {
			out.Direction = contracts.SkewBullish
		} else {
			out.Direction = contracts.SkewBearish
		}
	}

	out.ATMImpliedVol = atmIV(calls, puts, s)
	if out.ATMImpliedVol.Known {
		dte := math.Max(float64(out.DaysToExpiry), 0)
		out.ImpliedMovePct = contracts.KnownMeasure(out.ATMImpliedVol.Value * math.Sqrt(dte/365) * 100)
	} else {
		out.ImpliedMovePct = contracts.Measure{Reason: out.ATMImpliedVol.Reason}
	}

	return out
}

func skewRatio(calls, puts []contracts.OptionContract, s float64) contracts.Measure {
	var putIVs, callIVs []float64
	for _, p := range puts {
		mp := (s - p.Strike) / s
		if mp <= 0 || mp > SkewMaxMoneyness {
			continue
		}
		best, bestGap := -1, math.Inf(1)
		for i, c := range calls {
			mc := (c.Strike - s) / s
			if mc <= 0 || mc > SkewMaxMoneyness {
				continue
			}
			if gap := math.Abs(mp - mc); gap < bestGap {
				best, bestGap = i, gap
			}
		}
		if best < 0 || bestGap > SkewPairTolerance {
			continue
		}
		putIVs = append(putIVs, *p.ImpliedVolatility)
		callIVs = append(callIVs, *calls[best].ImpliedVolatility)
	}

	if len(putIVs) == 0 {
		return contracts.UnknownMeasure(contracts.UndefinedRatio("skew", "no matched OTM put/call pairs"))
	}
	return contracts.KnownMeasure(stat.Mean(putIVs, nil) / stat.Mean(callIVs, nil))
}

func atmIV(calls, puts []contracts.OptionContract, s float64) contracts.Measure {
	var ivs []float64
	for _, side := range [][]contracts.OptionContract{calls, puts} {
		if oc, ok := nearestStrike(side, s); ok {
			ivs = append(ivs, *oc.ImpliedVolatility)
		}
	}
	if len(ivs) == 0 {
		return contracts.UnknownMeasure(contracts.UpstreamDataGap("atm_iv", "no contract with implied volatility"))
	}
	return contracts.KnownMeasure(stat.Mean(ivs, nil))
}

func nearestStrike(side []contracts.OptionContract, s float64) (contracts.OptionContract, bool) {
	if len(side) == 0 {
		return contracts.OptionContract{}, false
	}
	best := side[0]
	for _, oc := range side[1:] {
		if math.Abs(oc.Strike-s) < math.Abs(best.Strike-s) {
			best = oc
		}
	}
	return best, true
}

// targetExpiration picks the nearest expiry at least SkewMinDTE out, else the furthest listed
func targetExpiration(chain *contracts.OptionsChainSnapshot) (time.Time, int) {
	var (
		nearest, furthest       time.Time
		nearestDTE, furthestDTE int
		found                   bool
	)
	for i, oc := range chain.Contracts {
		dte := daysBetween(chain.Date, oc.Expiration)
		if i == 0 || dte > furthestDTE {
			furthest, furthestDTE = oc.Expiration, dte
		}
		if dte >= SkewMinDTE && (!found || dte < nearestDTE) {
			nearest, nearestDTE, found = oc.Expiration, dte, true
		}
	}
	if found {
		return nearest, nearestDTE
	}
	return furthest, furthestDTE
}

func underlyingPrice(chain *contracts.OptionsChainSnapshot, refPrice float64) float64 {
	if chain.UnderlyingPrice > 0 {
		return chain.UnderlyingPrice
	}
	if refPrice > 0 {
		return refPrice
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, oc := range chain.Contracts {
		lo = math.Min(lo, oc.Strike)
		hi = math.Max(hi, oc.Strike)
	}
	return (lo + hi) / 2
}

// daysBetween counts calendar days between two dates, ignoring time of day
func daysBetween(from, to time.Time) int {
	civil := func(t time.Time) time.Time {
		y, m, d := t.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}
	return int(civil(to).Sub(civil(from)).Hours() / 24)
}

func sameDay(a, b time.Time) bool {
	return daysBetween(a, b) == 0
}

// InstitutionalScore blends flow, block and skew sub-scores, each in [-1, 1].
// Confidence scales |score| by the weight that was actually defined.
func InstitutionalScore(ratio contracts.Measure, blocks []contracts.BlockTrade, skew contracts.Measure) (score, confidence float64) {
	var sum, weight float64

	if ratio.Known {
		sum += FlowWeight * (ratio.Value - 1) / (ratio.Value + 1)
		weight += FlowWeight
	}

	var signed, total float64
	for _, b := range blocks {
		v := float64(b.Volume)
		total += v
		switch {
		case b.PriceImpactPct > 0:
			signed += v
		case b.PriceImpactPct < 0:
			signed -= v
		}
	}
	if total > 0 {
		sum += BlockWeight * signed / total
		weight += BlockWeight
	}

	if skew.Known {
		s := math.Max(-1, math.Min(1, (1-skew.Value)/SkewScale))
		sum += SkewWeight * s
		weight += SkewWeight
	}

	if weight == 0 {
		return 0, 0
	}
	score = sum / weight
	return score, math.Abs(score) * weight
}

// InstitutionalContribution exposes institutional activity as checklist items
type InstitutionalContribution struct {
	Activity contracts.InstitutionalActivity
}

// Source implements contracts.ChecklistContribution
func (c InstitutionalContribution) Source() contracts.Source {
	return contracts.SourceInstitutional
}

// Bias implements contracts.ChecklistContribution; no vote without a chain
func (c InstitutionalContribution) Bias() contracts.Direction {
	if !c.Activity.Available {
		return contracts.DirectionNone
	}
	return c.Activity.Bias
}

// Criteria implements contracts.ChecklistContribution
func (c InstitutionalContribution) Criteria(dir contracts.Direction) []contracts.CriterionResult {
	a := &c.Activity

	flow := contracts.CriterionResult{
		Criterion: contracts.CriterionInstitutionalFlow,
		Source:    contracts.SourceInstitutional,
	}
	activity := contracts.CriterionResult{
		Criterion: contracts.CriterionInstitutionalActivity,
		Source:    contracts.SourceInstitutional,
	}

	if !a.Available {
		flow.Value = contracts.Measure{Reason: a.Reason}
		flow.Note = a.Reason
		activity.Value = contracts.Measure{Reason: a.Reason}
		activity.Note = a.Reason
		return []contracts.CriterionResult{flow, activity}
	}

	flow.Confirmed = dir != contracts.DirectionNone && a.Bias == dir
	flow.Value = contracts.KnownMeasure(a.Score)
	flow.Note = fmt.Sprintf("institutional bias %s (score %+.2f, confidence %.2f)", a.Bias, a.Score, a.Confidence)

	activity.Confirmed = a.ActivityDetected()
	activity.Value = contracts.KnownMeasure(float64(a.UnusualContractCount + len(a.BlockTrades)))
	activity.Note = fmt.Sprintf("large call %t, large put %t, unusual %d, blocks %d",
		a.LargeCallFlag, a.LargePutFlag, a.UnusualContractCount, len(a.BlockTrades))

	return []contracts.CriterionResult{flow, activity}
}
