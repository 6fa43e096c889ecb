package collector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/wonny/aegis-edge/internal/brain"
	"github.com/wonny/aegis-edge/internal/contracts"
	"github.com/wonny/aegis-edge/pkg/logger"
)

// BaselineWriter is implemented by sinks that can freeze a volume baseline
type BaselineWriter interface {
	WriteBaseline(symbol string, date time.Time, baseline *contracts.OptionVolumeBaseline) error
}

// Collector freezes provider data into a snapshot sink
// ⭐ SSOT: 데이터 수집 오케스트레이션은 이 패키지에서만
type Collector struct {
	gatherer *brain.Gatherer
	sink     contracts.SnapshotWriter
	logger   *logger.Logger
}

// Config holds collector configuration
type Config struct {
	Workers int // Number of concurrent workers
}

// NewCollector creates a new Collector instance
func NewCollector(gatherer *brain.Gatherer, sink contracts.SnapshotWriter, log *logger.Logger) *Collector {
	return &Collector{
		gatherer: gatherer,
		sink:     sink,
		logger:   log.WithField("module", "collector"),
	}
}

// FetchResult represents the result of one symbol's collection
type FetchResult struct {
	Symbol    string
	Series    int // series written, aux proxies included
	Contracts int
	Missing   []string
	Error     error
}

// Collect gathers every symbol as of asOf and writes what was found.
// Aux proxies shared between symbols are written once.
func (c *Collector) Collect(ctx context.Context, symbols []string, asOf time.Time, cfg Config) []FetchResult {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}

	c.logger.WithFields(map[string]interface{}{
		"symbols": len(symbols),
		"as_of":   asOf.Format(time.RFC3339),
		"workers": cfg.Workers,
	}).Info("Starting snapshot collection")

	results := make([]FetchResult, 0, len(symbols))
	resultCh := make(chan FetchResult, len(symbols))
	symbolCh := make(chan string, len(symbols))

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		written = make(map[string]bool)
	)
	// 같은 보조 지표 시리즈는 한 번만 기록
	claim := func(key string) bool {
		mu.Lock()
		defer mu.Unlock()
		if written[key] {
			return false
		}
		written[key] = true
		return true
	}

	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			c.worker(ctx, workerID, symbolCh, resultCh, asOf, claim)
		}(i)
	}

	for _, sym := range symbols {
		symbolCh <- sym
	}
	close(symbolCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	successCount := 0
	failCount := 0
	for result := range resultCh {
		results = append(results, result)
		if result.Error != nil {
			failCount++
		} else {
			successCount++
		}
	}

	c.logger.WithFields(map[string]interface{}{
		"success": successCount,
		"failed":  failCount,
		"total":   len(results),
	}).Info("Snapshot collection completed")

	return results
}

// worker processes symbols until the channel closes
func (c *Collector) worker(
	ctx context.Context,
	workerID int,
	symbolCh <-chan string,
	resultCh chan<- FetchResult,
	asOf time.Time,
	claim func(string) bool,
) {
	for sym := range symbolCh {
		select {
		case <-ctx.Done():
			resultCh <- FetchResult{Symbol: sym, Error: ctx.Err()}
			continue
		default:
		}

		result, err := c.collectOne(ctx, sym, asOf, claim)
		if err != nil {
			c.logger.WithError(err).WithFields(map[string]interface{}{
				"worker": workerID,
				"symbol": sym,
			}).Error("Failed to collect snapshot")
			result.Error = err
		}
		resultCh <- result
	}
}

func (c *Collector) collectOne(ctx context.Context, symbol string, asOf time.Time, claim func(string) bool) (FetchResult, error) {
	result := FetchResult{Symbol: symbol}

	in, err := c.gatherer.Gather(ctx, symbol, asOf)
	if err != nil {
		return result, err
	}

	for _, s := range []struct {
		name   string
		series *contracts.PriceSeries
		shared bool
	}{
		{"daily", in.Daily, false},
		{"intraday", in.Intraday, false},
		{"volatility", in.Volatility, true},
		{"sector", in.Sector, true},
		{"index", in.Index, true},
	} {
		if s.series == nil {
			result.Missing = append(result.Missing, s.name)
			continue
		}
		if s.shared && !claim(s.series.Symbol+"/"+string(s.series.Resolution)) {
			continue
		}
		if err := c.sink.WriteSeries(ctx, s.series); err != nil {
			return result, fmt.Errorf("write %s series: %w", s.name, err)
		}
		result.Series++
	}

	if in.Options == nil {
		result.Missing = append(result.Missing, "options")
	} else {
		if err := c.sink.WriteChain(ctx, in.Options); err != nil {
			return result, fmt.Errorf("write options chain: %w", err)
		}
		result.Contracts = len(in.Options.Contracts)
	}

	if in.Baseline == nil {
		result.Missing = append(result.Missing, "baseline")
	} else if bw, ok := c.sink.(BaselineWriter); ok {
		if err := bw.WriteBaseline(symbol, asOf, in.Baseline); err != nil {
			return result, fmt.Errorf("write baseline: %w", err)
		}
	}

	return result, nil
}
