package contracts

import "time"

// Indicator names used as IndicatorSet keys
const (
	IndSMA20        = "sma_20"
	IndZScore20     = "zscore_20"
	IndRSI2         = "rsi_2"
	IndRSI14        = "rsi_14"
	IndBBUpper      = "bb_upper"
	IndBBMiddle     = "bb_middle"
	IndBBLower      = "bb_lower"
	IndBBWidth      = "bb_width"
	IndBBPercentB   = "bb_percent_b"
	IndATR20        = "atr_20"
	IndATRRatio     = "atr_ratio"
	IndROC3         = "roc_3"
	IndROC3Pctl     = "roc_3_percentile"
	IndVWAP         = "vwap"
	IndVWAPDistance = "vwap_distance_pct"
	IndADX14        = "adx_14"
	IndVolumeRatio  = "volume_ratio"
)

// IndicatorSet is the per-request indicator snapshot for one symbol.
// Values that could not be computed are present with Known=false.
type IndicatorSet struct {
	Symbol string             `json:"symbol"`
	AsOf   time.Time          `json:"as_of"`
	Values map[string]Measure `json:"values"`
}

// Get returns a named indicator; absent names are unknown
func (s *IndicatorSet) Get(name string) Measure {
	if s == nil || s.Values == nil {
		return Measure{Reason: "not computed"}
	}
	m, ok := s.Values[name]
	if !ok {
		return Measure{Reason: "not computed"}
	}
	return m
}

// TechnicalSetup is the technical scorer's snapshot
type TechnicalSetup struct {
	Close              float64   `json:"close"`
	SMA20              Measure   `json:"sma_20"`
	ZScore             Measure   `json:"zscore"`
	RSI2               Measure   `json:"rsi_2"`
	MeanReversionScore Measure   `json:"mean_reversion_score"`
	Bias               Direction `json:"bias"`

	BandUpper Measure `json:"band_upper"`
	BandLower Measure `json:"band_lower"`
	BandWidth Measure `json:"band_width"`

	VolumeRatio Measure `json:"volume_ratio"`

	// 체크리스트 외 보조 확인 지표
	ExtremeROC Flag `json:"extreme_roc"`
	NearVWAP   Flag `json:"near_vwap"`
	HighATR    Flag `json:"high_atr"`
	RangeBound Flag `json:"range_bound"`
}

// BlockTrade is a single outsized intraday print
type BlockTrade struct {
	Timestamp      time.Time `json:"timestamp"`
	Volume         int64     `json:"volume"`
	Price          float64   `json:"price"`
	VolumeMultiple float64   `json:"volume_multiple"`
	PriceImpactPct float64   `json:"price_impact_pct"`
}

// SkewDirection is the options-skew read
type SkewDirection string

const (
	SkewBullish SkewDirection = "BULLISH"
	SkewBearish SkewDirection = "BEARISH"
	SkewNeutral SkewDirection = "NEUTRAL"
)

// InstitutionalActivity is the institutional analyzer's snapshot
type InstitutionalActivity struct {
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`

	CallPutRatio         Measure `json:"call_put_ratio"`
	CallVolume           int64   `json:"call_volume"`
	PutVolume            int64   `json:"put_volume"`
	LargeCallFlag        bool    `json:"large_call_flag"`
	LargePutFlag         bool    `json:"large_put_flag"`
	UnusualContractCount int     `json:"unusual_contract_count"`

	BlockTrades []BlockTrade `json:"block_trades"`

	SkewRatio      Measure       `json:"skew_ratio"`
	SkewDirection  SkewDirection `json:"skew_direction"`
	SkewExpiration time.Time     `json:"skew_expiration,omitempty"`
	DaysToExpiry   int           `json:"days_to_expiry,omitempty"`
	ATMImpliedVol  Measure       `json:"atm_implied_vol"`
	ImpliedMovePct Measure       `json:"implied_move_pct"`

	Bias       Direction `json:"bias"`
	Score      float64   `json:"score"`
	Confidence float64   `json:"confidence"`
}

// ActivityDetected reports any institutional footprint
func (a *InstitutionalActivity) ActivityDetected() bool {
	return a.LargeCallFlag || a.LargePutFlag || a.UnusualContractCount > 0 || len(a.BlockTrades) > 0
}

// TimingEdge is the timing analyzer's snapshot
type TimingEdge struct {
	DayOfWeek          time.Weekday `json:"day_of_week"`
	DayEdgeMultiplier  float64      `json:"day_edge_multiplier"`
	OptimalWindow      bool         `json:"optimal_window"`
	MinutesIntoSession int          `json:"minutes_into_session"`
	PullbackDetected   bool         `json:"pullback_detected"`
	PullbackTrend      Direction    `json:"pullback_trend"`
	PullbackBars       int          `json:"pullback_bars,omitempty"`
}
