package brain

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wonny/aegis-edge/internal/contracts"
	"github.com/wonny/aegis-edge/pkg/logger"
)

// GatherOptions sets how much history the gatherer requests
type GatherOptions struct {
	DailyLookback      int
	IntradayResolution contracts.Resolution
	IntradayLookback   int // 0 = everything the provider returns
	AuxLookback        int
	BaselineSessions   int
}

// DefaultGatherOptions covers the longest indicator window (252 ROC readings)
func DefaultGatherOptions() GatherOptions {
	return GatherOptions{
		DailyLookback:      300,
		IntradayResolution: contracts.Resolution5Min,
		IntradayLookback:   0,
		AuxLookback:        60,
		BaselineSessions:   20,
	}
}

// Gatherer assembles an EvaluationInputs snapshot from a provider.
// This is the only stage that performs I/O.
type Gatherer struct {
	provider contracts.MarketDataProvider
	opts     GatherOptions
	logger   *logger.Logger
}

// NewGatherer creates a new gatherer
func NewGatherer(provider contracts.MarketDataProvider, opts GatherOptions, log *logger.Logger) *Gatherer {
	return &Gatherer{
		provider: provider,
		opts:     opts,
		logger:   log,
	}
}

// Gather fetches every input in parallel and cuts each series at asOf.
// The daily series is required; any other input that fails is left nil and
// logged as an upstream gap.
func (g *Gatherer) Gather(ctx context.Context, symbol string, asOf time.Time) (*contracts.EvaluationInputs, error) {
	in := &contracts.EvaluationInputs{AsOf: asOf}
	date := contracts.SessionDate(asOf)
	log := g.logger.WithSymbol(symbol)

	optional := func(name string, fetch func(context.Context) error) func() error {
		return func() error {
			if err := fetch(ctx); err != nil {
				log.WithError(err).WithField("input", name).Warn("Input unavailable, dependent criteria degrade")
			}
			return nil
		}
	}

	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		daily, err := g.provider.PriceSeries(ctx, symbol, contracts.ResolutionDaily, g.opts.DailyLookback)
		if err != nil {
			return fmt.Errorf("daily series for %s: %w", symbol, err)
		}
		in.Daily = daily
		return nil
	})
	eg.Go(optional("intraday", func(ctx context.Context) (err error) {
		in.Intraday, err = g.provider.PriceSeries(ctx, symbol, g.opts.IntradayResolution, g.opts.IntradayLookback)
		return err
	}))
	eg.Go(optional("options", func(ctx context.Context) (err error) {
		in.Options, err = g.provider.OptionsChain(ctx, symbol, date)
		return err
	}))
	eg.Go(optional("baseline", func(ctx context.Context) (err error) {
		in.Baseline, err = g.provider.OptionVolumeBaseline(ctx, symbol, date, g.opts.BaselineSessions)
		return err
	}))
	eg.Go(optional("volatility", func(ctx context.Context) (err error) {
		in.Volatility, err = g.provider.VolatilityIndex(ctx, g.opts.AuxLookback)
		return err
	}))
	eg.Go(optional("sector", func(ctx context.Context) (err error) {
		in.Sector, err = g.provider.SectorProxy(ctx, symbol, g.opts.AuxLookback)
		return err
	}))
	eg.Go(optional("index", func(ctx context.Context) (err error) {
		in.Index, err = g.provider.BroadIndex(ctx, g.opts.AuxLookback)
		return err
	}))

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if in.Daily == nil {
		return nil, contracts.UpstreamDataGap("gather", "provider returned no daily series for "+symbol)
	}

	// providers may hold bars past asOf; a replay must only see what was known then
	in.Daily = in.Daily.Until(asOf)
	if in.Daily.Len() == 0 {
		return nil, contracts.UpstreamDataGap("gather", "no daily bars for "+symbol+" at or before "+asOf.Format(time.RFC3339))
	}
	for _, opt := range []struct {
		name   string
		series **contracts.PriceSeries
	}{
		{"intraday", &in.Intraday},
		{"volatility", &in.Volatility},
		{"sector", &in.Sector},
		{"index", &in.Index},
	} {
		if *opt.series == nil {
			continue
		}
		if *opt.series = (*opt.series).Until(asOf); (*opt.series).Len() == 0 {
			log.WithField("input", opt.name).Warn("No bars at or before as-of, dependent criteria degrade")
			*opt.series = nil
		}
	}
	return in, nil
}
