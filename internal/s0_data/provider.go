package s0_data

import (
	"context"
	"strings"
	"time"

	"github.com/wonny/aegis-edge/internal/contracts"
)

// SeriesSource is the symbol-level half of a market data provider.
// Every backend (Alpha Vantage, Postgres, snapshot files) implements it.
type SeriesSource interface {
	PriceSeries(ctx context.Context, symbol string, res contracts.Resolution, lookback int) (*contracts.PriceSeries, error)
	OptionsChain(ctx context.Context, symbol string, date time.Time) (*contracts.OptionsChainSnapshot, error)
	OptionVolumeBaseline(ctx context.Context, symbol string, date time.Time, sessions int) (*contracts.OptionVolumeBaseline, error)
}

// AuxSymbols names the market-condition proxies
type AuxSymbols struct {
	Volatility    string            // VIX proxy
	Index         string            // broad index ETF
	Sectors       map[string]string // symbol → sector ETF
	DefaultSector string
}

// SectorFor returns the sector proxy for symbol, or the default
func (a AuxSymbols) SectorFor(symbol string) string {
	if s, ok := a.Sectors[strings.ToUpper(symbol)]; ok && s != "" {
		return s
	}
	return a.DefaultSector
}

// Provider routes the market-condition series through a SeriesSource.
// ⭐ SSOT: 보조 지표 심볼 해석은 여기서만
type Provider struct {
	SeriesSource
	aux AuxSymbols
}

var _ contracts.MarketDataProvider = (*Provider)(nil)

// NewProvider wraps src as a full contracts.MarketDataProvider
func NewProvider(src SeriesSource, aux AuxSymbols) *Provider {
	return &Provider{SeriesSource: src, aux: aux}
}

// VolatilityIndex returns daily bars of the volatility proxy
func (p *Provider) VolatilityIndex(ctx context.Context, lookback int) (*contracts.PriceSeries, error) {
	return p.aux.daily(ctx, p.SeriesSource, "volatility", p.aux.Volatility, lookback)
}

// SectorProxy returns daily bars of the symbol's sector proxy
func (p *Provider) SectorProxy(ctx context.Context, symbol string, lookback int) (*contracts.PriceSeries, error) {
	return p.aux.daily(ctx, p.SeriesSource, "sector", p.aux.SectorFor(symbol), lookback)
}

// BroadIndex returns daily bars of the broad index proxy
func (p *Provider) BroadIndex(ctx context.Context, lookback int) (*contracts.PriceSeries, error) {
	return p.aux.daily(ctx, p.SeriesSource, "index", p.aux.Index, lookback)
}

func (a AuxSymbols) daily(ctx context.Context, src SeriesSource, role, symbol string, lookback int) (*contracts.PriceSeries, error) {
	if symbol == "" {
		return nil, contracts.UpstreamDataGap(role, "no "+role+" symbol configured")
	}
	return src.PriceSeries(ctx, symbol, contracts.ResolutionDaily, lookback)
}

// AverageVolume builds a baseline from per-session chains.
// Nil chains are ignored; no usable chain is an upstream gap.
func AverageVolume(chains []*contracts.OptionsChainSnapshot) (*contracts.OptionVolumeBaseline, error) {
	var calls, puts float64
	n := 0
	for _, chain := range chains {
		if chain == nil {
			continue
		}
		for _, c := range chain.Contracts {
			if c.Type == contracts.OptionCall {
				calls += float64(c.Volume)
			} else {
				puts += float64(c.Volume)
			}
		}
		n++
	}
	if n == 0 {
		return nil, contracts.UpstreamDataGap("baseline", "no prior option sessions")
	}
	return &contracts.OptionVolumeBaseline{
		CallAverage: calls / float64(n),
		PutAverage:  puts / float64(n),
		Sessions:    n,
	}, nil
}

// PreviousWeekdays returns the n weekdays before date, most recent first.
// Exchange holidays are not known here; callers skip sessions with no data.
func PreviousWeekdays(date time.Time, n int) []time.Time {
	out := make([]time.Time, 0, n)
	d := contracts.SessionDate(date)
	for len(out) < n {
		d = d.AddDate(0, 0, -1)
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		out = append(out, d)
	}
	return out
}
