package contracts

import (
	"context"
	"time"
)

// EvaluationInputs is the frozen snapshot one evaluation runs on.
// Only Daily is required; nil auxiliary inputs degrade their dependent items.
type EvaluationInputs struct {
	AsOf time.Time `json:"as_of"`

	Daily    *PriceSeries          `json:"daily"`
	Intraday *PriceSeries          `json:"intraday,omitempty"`
	Options  *OptionsChainSnapshot `json:"options,omitempty"`
	Baseline *OptionVolumeBaseline `json:"baseline,omitempty"`

	Volatility *PriceSeries `json:"volatility,omitempty"`
	Sector     *PriceSeries `json:"sector,omitempty"`
	Index      *PriceSeries `json:"index,omitempty"`
}

// Validate fails fast on malformed inputs before any computation
func (in *EvaluationInputs) Validate() error {
	if in == nil || in.Daily == nil {
		return InvalidParameter("daily", "daily series is required")
	}
	if in.AsOf.IsZero() {
		return InvalidParameter("as_of", "missing evaluation time")
	}
	for _, s := range []*PriceSeries{in.Daily, in.Intraday, in.Volatility, in.Sector, in.Index} {
		if s == nil {
			continue
		}
		if err := s.Validate(); err != nil {
			return err
		}
	}
	return in.Options.Validate()
}

// MarketDataProvider supplies raw series to the gatherer
// ⭐ SSOT: 엔진이 소비하는 외부 데이터 계약
type MarketDataProvider interface {
	PriceSeries(ctx context.Context, symbol string, res Resolution, lookback int) (*PriceSeries, error)
	OptionsChain(ctx context.Context, symbol string, date time.Time) (*OptionsChainSnapshot, error)
	OptionVolumeBaseline(ctx context.Context, symbol string, date time.Time, sessions int) (*OptionVolumeBaseline, error)
	VolatilityIndex(ctx context.Context, lookback int) (*PriceSeries, error)
	SectorProxy(ctx context.Context, symbol string, lookback int) (*PriceSeries, error)
	BroadIndex(ctx context.Context, lookback int) (*PriceSeries, error)
}

// SnapshotWriter persists provider inputs so later evaluations can be replayed
type SnapshotWriter interface {
	WriteSeries(ctx context.Context, series *PriceSeries) error
	WriteChain(ctx context.Context, chain *OptionsChainSnapshot) error
}
