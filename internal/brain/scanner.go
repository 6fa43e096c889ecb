package brain

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wonny/aegis-edge/internal/contracts"
	"github.com/wonny/aegis-edge/pkg/logger"
)

// Scanner gathers and evaluates a watchlist in two phases:
// all I/O first, then the pure batch evaluation over the frozen snapshots.
type Scanner struct {
	gatherer     *Gatherer
	orchestrator *Orchestrator
	logger       *logger.Logger
}

// NewScanner creates a new scanner
func NewScanner(gatherer *Gatherer, orchestrator *Orchestrator, log *logger.Logger) *Scanner {
	return &Scanner{
		gatherer:     gatherer,
		orchestrator: orchestrator,
		logger:       log,
	}
}

// Scan evaluates symbols as of asOf. Symbols whose gather fails are
// reported as failures alongside evaluation failures.
func (s *Scanner) Scan(ctx context.Context, symbols []string, asOf time.Time, opts BatchOptions) *BatchResult {
	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	symbols = dedupe(symbols)
	snapshots := make(map[string]contracts.EvaluationInputs, len(symbols))
	gatherFailures := make(map[string]error)

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(workers)

	for _, sym := range symbols {
		g.Go(func() error {
			in, err := s.gatherer.Gather(ctx, sym, asOf)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				gatherFailures[sym] = err
				if opts.OnResult != nil {
					opts.OnResult(sym, nil, err)
				}
				return nil
			}
			snapshots[sym] = *in
			return nil
		})
	}
	_ = g.Wait()

	if len(gatherFailures) > 0 {
		s.logger.WithFields(map[string]interface{}{
			"failed": len(gatherFailures),
			"total":  len(symbols),
			"as_of":  asOf.Format(time.RFC3339),
		}).Warn("Some symbols could not be gathered")
	}

	result := s.orchestrator.EvaluateBatch(ctx, snapshots, opts)
	for sym, err := range gatherFailures {
		result.Failures[sym] = err
	}
	return result
}

func dedupe(symbols []string) []string {
	seen := make(map[string]bool, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
