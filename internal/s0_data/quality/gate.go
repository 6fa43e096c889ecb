package quality

import (
	"sort"
	"time"

	"github.com/wonny/aegis-edge/internal/contracts"
	"github.com/wonny/aegis-edge/internal/indicators"
)

// FullDailyHistory is the bar count at which every daily indicator has its full window
const FullDailyHistory = indicators.ROCLookback + indicators.ROCPeriod

// Config holds quality gate thresholds
type Config struct {
	MinScore       float64 `yaml:"min_score" json:"min_score" default:"0.5"`
	MinDailyBars   int     `yaml:"min_daily_bars" json:"min_daily_bars" default:"21"` // SMA20 + 1
	MinIVCoverage  float64 `yaml:"min_iv_coverage" json:"min_iv_coverage" default:"0.5"`
	MinAuxBars     int     `yaml:"min_aux_bars" json:"min_aux_bars" default:"21"`
	MinSessionBars int     `yaml:"min_session_bars" json:"min_session_bars" default:"2"`
}

// DefaultConfig returns the default thresholds
func DefaultConfig() Config {
	return Config{
		MinScore:       0.5,
		MinDailyBars:   indicators.SMAPeriod + 1,
		MinIVCoverage:  0.5,
		MinAuxBars:     indicators.SMAPeriod + 1,
		MinSessionBars: 2,
	}
}

// Report describes how complete one evaluation snapshot is
type Report struct {
	Symbol   string             `json:"symbol"`
	AsOf     time.Time          `json:"as_of"`
	Coverage map[string]float64 `json:"coverage"`
	Score    float64            `json:"score"`
	Passed   bool               `json:"passed"`
	Missing  []string           `json:"missing,omitempty"`
}

// Gate scores the completeness of gathered inputs.
// It never blocks an evaluation; missing inputs already degrade their checklist items.
// ⭐ SSOT: S0 → S1 입력 품질 검증
type Gate struct {
	config Config
}

// NewGate creates a new quality gate
func NewGate(config Config) *Gate {
	return &Gate{config: config}
}

// 가중치 (합계 = 1.0), 합산 순서 고정
var weights = []struct {
	input  string
	weight float64
}{
	{"daily", 0.30},
	{"intraday", 0.15},
	{"options", 0.20},
	{"baseline", 0.10},
	{"volatility", 0.10},
	{"sector", 0.075},
	{"index", 0.075},
}

// Check scores the completeness of one gathered snapshot
func (g *Gate) Check(in *contracts.EvaluationInputs) *Report {
	r := &Report{
		AsOf:     in.AsOf,
		Coverage: make(map[string]float64, len(weights)),
	}
	if in.Daily != nil {
		r.Symbol = in.Daily.Symbol
	}

	r.Coverage["daily"] = g.dailyCoverage(in.Daily)
	r.Coverage["intraday"] = g.intradayCoverage(in.Intraday)
	r.Coverage["options"] = g.optionsCoverage(in.Options)
	r.Coverage["baseline"] = 0
	if in.Baseline != nil && in.Baseline.Sessions > 0 {
		r.Coverage["baseline"] = 1
	}
	r.Coverage["volatility"] = g.auxCoverage(in.Volatility)
	r.Coverage["sector"] = g.auxCoverage(in.Sector)
	r.Coverage["index"] = g.auxCoverage(in.Index)

	for _, w := range weights {
		cov := r.Coverage[w.input]
		r.Score += cov * w.weight
		if cov == 0 {
			r.Missing = append(r.Missing, w.input)
		}
	}
	sort.Strings(r.Missing)

	r.Passed = r.Score >= g.config.MinScore && r.Coverage["daily"] > 0
	return r
}

// dailyCoverage is 0 below the minimum, then scales to 1 at full history
func (g *Gate) dailyCoverage(s *contracts.PriceSeries) float64 {
	n := s.Len()
	if n < g.config.MinDailyBars {
		return 0
	}
	if n >= FullDailyHistory {
		return 1
	}
	return float64(n) / float64(FullDailyHistory)
}

func (g *Gate) intradayCoverage(s *contracts.PriceSeries) float64 {
	if s.Len() == 0 {
		return 0
	}
	if contracts.SessionBars(s).Len() < g.config.MinSessionBars {
		return 0
	}
	return 1
}

// optionsCoverage is the share of contracts with a usable IV
func (g *Gate) optionsCoverage(chain *contracts.OptionsChainSnapshot) float64 {
	if chain == nil || len(chain.Contracts) == 0 {
		return 0
	}
	withIV := 0
	for _, c := range chain.Contracts {
		if c.HasIV() {
			withIV++
		}
	}
	share := float64(withIV) / float64(len(chain.Contracts))
	if share < g.config.MinIVCoverage {
		return share
	}
	return 1
}

func (g *Gate) auxCoverage(s *contracts.PriceSeries) float64 {
	if s.Len() >= g.config.MinAuxBars {
		return 1
	}
	return 0
}
