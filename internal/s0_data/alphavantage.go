package s0_data

import (
	"context"
	"errors"
	"time"

	"github.com/wonny/aegis-edge/internal/contracts"
	"github.com/wonny/aegis-edge/internal/external/alphavantage"
	"github.com/wonny/aegis-edge/pkg/logger"
)

// Fetcher is the subset of the Alpha Vantage client the source needs
type Fetcher interface {
	FetchDaily(ctx context.Context, symbol string, lookback int) (*contracts.PriceSeries, error)
	FetchIntraday(ctx context.Context, symbol string, res contracts.Resolution, lookback int) (*contracts.PriceSeries, error)
	FetchOptions(ctx context.Context, symbol string, date time.Time) (*contracts.OptionsChainSnapshot, error)
}

var _ Fetcher = (*alphavantage.Client)(nil)

// AlphaVantageSource reads live data from Alpha Vantage
type AlphaVantageSource struct {
	client Fetcher
	logger *logger.Logger
}

// NewAlphaVantageSource creates a new Alpha Vantage backed source
func NewAlphaVantageSource(client Fetcher, log *logger.Logger) *AlphaVantageSource {
	return &AlphaVantageSource{
		client: client,
		logger: log,
	}
}

// NewAlphaVantageProvider is the full provider over Alpha Vantage
func NewAlphaVantageProvider(client Fetcher, aux AuxSymbols, log *logger.Logger) *Provider {
	return NewProvider(NewAlphaVantageSource(client, log), aux)
}

// PriceSeries implements SeriesSource
func (s *AlphaVantageSource) PriceSeries(ctx context.Context, symbol string, res contracts.Resolution, lookback int) (*contracts.PriceSeries, error) {
	if res == contracts.ResolutionDaily {
		return s.client.FetchDaily(ctx, symbol, lookback)
	}
	return s.client.FetchIntraday(ctx, symbol, res, lookback)
}

// OptionsChain implements SeriesSource
func (s *AlphaVantageSource) OptionsChain(ctx context.Context, symbol string, date time.Time) (*contracts.OptionsChainSnapshot, error) {
	return s.client.FetchOptions(ctx, symbol, date)
}

// OptionVolumeBaseline averages the previous sessions' chains.
// Days with no chain (holidays) are skipped; throttling and cancellation abort.
func (s *AlphaVantageSource) OptionVolumeBaseline(ctx context.Context, symbol string, date time.Time, sessions int) (*contracts.OptionVolumeBaseline, error) {
	if sessions <= 0 {
		return nil, contracts.InvalidParameter("sessions", "must be positive")
	}

	chains := make([]*contracts.OptionsChainSnapshot, 0, sessions)
	// 휴장일 대비 여유분을 두고 조회
	for _, day := range PreviousWeekdays(date, sessions+sessions/4+1) {
		if len(chains) == sessions {
			break
		}
		chain, err := s.client.FetchOptions(ctx, symbol, day)
		if err != nil {
			if errors.Is(err, contracts.ErrUpstreamDataGap) {
				s.logger.WithSymbol(symbol).WithField("date", day.Format("2006-01-02")).Debug("No chain for session, skipping")
				continue
			}
			return nil, err
		}
		chains = append(chains, chain)
	}

	return AverageVolume(chains)
}
