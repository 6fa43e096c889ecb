package brain

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/wonny/aegis-edge/internal/contracts"
	"github.com/wonny/aegis-edge/internal/indicators"
	"github.com/wonny/aegis-edge/internal/risk"
	"github.com/wonny/aegis-edge/internal/s1_market"
	"github.com/wonny/aegis-edge/internal/s2_signals"
	"github.com/wonny/aegis-edge/internal/s3_decision"
	"github.com/wonny/aegis-edge/pkg/logger"
	"github.com/wonny/aegis-edge/pkg/metrics"
)

// DefaultWorkers bounds batch fan-out when the caller does not say
const DefaultWorkers = 4

// Orchestrator runs one evaluation end to end
// indicators → S1 market → S2 signals → S3 decision
// ⭐ SSOT: 평가 파이프라인 조율은 여기서만
type Orchestrator struct {
	market   *s1_market.Evaluator
	signals  *s2_signals.Builder
	decision *s3_decision.Engine
	sizer    *risk.Calculator

	logger *logger.Logger
}

// NewOrchestrator creates a new orchestrator
func NewOrchestrator(
	market *s1_market.Evaluator,
	signals *s2_signals.Builder,
	decision *s3_decision.Engine,
	sizer *risk.Calculator,
	logger *logger.Logger,
) *Orchestrator {
	return &Orchestrator{
		market:   market,
		signals:  signals,
		decision: decision,
		sizer:    sizer,
		logger:   logger,
	}
}

// NewDefaultOrchestrator wires every stage with the same logger
func NewDefaultOrchestrator(log *logger.Logger) *Orchestrator {
	return NewOrchestrator(
		s1_market.NewEvaluator(log),
		s2_signals.NewDefaultBuilder(log),
		s3_decision.NewEngine(log),
		risk.NewCalculator(),
		log,
	)
}

// Evaluate produces the recommendation for one frozen input snapshot.
// It performs no I/O; the same inputs always give an identical recommendation.
func (o *Orchestrator) Evaluate(ctx context.Context, symbol string, in contracts.EvaluationInputs) (*contracts.Recommendation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		o.countError(err)
		return nil, err
	}
	if in.Daily.Len() == 0 {
		err := contracts.InsufficientData("evaluate", 1, 0)
		o.countError(err)
		return nil, err
	}
	if symbol == "" {
		symbol = in.Daily.Symbol
	}

	started := time.Now()
	set := indicators.Compute(in.Daily, in.Intraday, in.AsOf)
	set.Symbol = symbol
	metrics.ObserveStage("indicators", started)

	started = time.Now()
	mc := o.market.Evaluate(in.Volatility, in.Sector, in.Index)
	sig := o.signals.Build(&in, &set)
	metrics.ObserveStage("signals", started)

	started = time.Now()
	lastBar, _ := in.Daily.Last()
	contributions := append(
		[]contracts.ChecklistContribution{s1_market.Contribution{Context: mc}},
		sig.Contributions()...,
	)
	rec := o.decision.Decide(s3_decision.Snapshot{
		Symbol:        symbol,
		AsOf:          in.AsOf,
		EntryPrice:    lastBar.Close,
		Indicators:    set,
		Market:        mc,
		Technical:     sig.Technical,
		Institutional: sig.Institutional,
		Timing:        sig.Timing,
	}, contributions)
	metrics.ObserveStage("decision", started)

	metrics.ObserveEvaluation(string(rec.Direction), rec.ReadyToTrade, rec.ConfirmedCount)
	return rec, nil
}

// Size turns a recommendation into a trade plan
func (o *Orchestrator) Size(rec *contracts.Recommendation, accountValue, leverage float64) (*contracts.PositionSizing, error) {
	plan, err := o.sizer.Size(rec, accountValue, leverage)
	if err != nil {
		o.countError(err)
		return nil, err
	}
	return plan, nil
}

func (o *Orchestrator) countError(err error) {
	kind := string(contracts.KindOf(err))
	if kind == "" {
		kind = "internal"
	}
	metrics.EvaluationErrors.WithLabelValues(kind).Inc()
}

// =============================================================================
// Batch
// =============================================================================

// BatchOptions controls EvaluateBatch
type BatchOptions struct {
	Workers int
	// OnResult, if set, is called once per finished symbol; calls are serialized
	OnResult func(symbol string, rec *contracts.Recommendation, err error)
}

// BatchResult holds the results of one batch scan
type BatchResult struct {
	RunID           string                               `json:"run_id"`
	StartedAt       time.Time                            `json:"started_at"`
	Duration        time.Duration                        `json:"duration"`
	Recommendations map[string]*contracts.Recommendation `json:"recommendations"`
	Failures        map[string]error                     `json:"-"`
	Skipped         []string                             `json:"skipped,omitempty"`
}

// Ready returns the symbols whose recommendation is ready to trade, sorted
func (r *BatchResult) Ready() []string {
	var out []string
	for sym, rec := range r.Recommendations {
		if rec.ReadyToTrade {
			out = append(out, sym)
		}
	}
	sort.Strings(out)
	return out
}

// EvaluateBatch evaluates many symbols concurrently.
// Per-symbol failures are collected, not fatal. Once ctx is cancelled no new
// symbol is started; in-flight symbols finish and the rest are reported as skipped.
func (o *Orchestrator) EvaluateBatch(ctx context.Context, snapshots map[string]contracts.EvaluationInputs, opts BatchOptions) *BatchResult {
	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	result := &BatchResult{
		RunID:           uuid.NewString(),
		StartedAt:       time.Now(),
		Recommendations: make(map[string]*contracts.Recommendation, len(snapshots)),
		Failures:        make(map[string]error),
	}

	symbols := make([]string, 0, len(snapshots))
	for sym := range snapshots {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	log := o.logger.WithField("run_id", result.RunID)
	log.WithFields(map[string]interface{}{
		"symbols": len(symbols),
		"workers": workers,
	}).Info("Starting batch evaluation")

	var mu sync.Mutex
	record := func(sym string, rec *contracts.Recommendation, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			result.Failures[sym] = err
		} else {
			result.Recommendations[sym] = rec
		}
		if opts.OnResult != nil {
			opts.OnResult(sym, rec, err)
		}
	}

	var g errgroup.Group
	g.SetLimit(workers)

	for i, sym := range symbols {
		if ctx.Err() != nil {
			result.Skipped = append(result.Skipped, symbols[i:]...)
			break
		}
		in := snapshots[sym]
		g.Go(func() error {
			// in-flight symbols run to completion even if ctx is cancelled meanwhile
			rec, err := o.Evaluate(context.WithoutCancel(ctx), sym, in)
			if err != nil {
				log.WithSymbol(sym).WithError(err).Warn("Evaluation failed")
			}
			record(sym, rec, err)
			return nil
		})
	}
	_ = g.Wait()

	result.Duration = time.Since(result.StartedAt)

	log.WithFields(map[string]interface{}{
		"evaluated": len(result.Recommendations),
		"failed":    len(result.Failures),
		"skipped":   len(result.Skipped),
		"ready":     len(result.Ready()),
		"duration":  result.Duration.Seconds(),
	}).Info("Batch evaluation completed")

	return result
}

// FailureSummary renders failures as symbol → message, for logs and API output
func (r *BatchResult) FailureSummary() map[string]string {
	out := make(map[string]string, len(r.Failures))
	for sym, err := range r.Failures {
		out[sym] = err.Error()
	}
	return out
}
