package s2_signals

import (
	"github.com/wonny/aegis-edge/internal/contracts"
	"github.com/wonny/aegis-edge/pkg/logger"
)

// Signals is the per-symbol output of the three symbol-level analyzers
type Signals struct {
	Technical     contracts.TechnicalSetup
	Institutional contracts.InstitutionalActivity
	Timing        contracts.TimingEdge
}

// Contributions returns the checklist contributions in checklist order
func (s *Signals) Contributions() []contracts.ChecklistContribution {
	return []contracts.ChecklistContribution{
		TechnicalContribution{Setup: s.Technical},
		InstitutionalContribution{Activity: s.Institutional},
		TimingContribution{Edge: s.Timing},
	}
}

// Builder runs the symbol-level analyzers over one evaluation snapshot
// ⭐ SSOT: 시그널 생성 오케스트레이션은 여기서만
type Builder struct {
	technical     *TechnicalCalculator
	institutional *InstitutionalCalculator
	timing        *TimingCalculator

	logger *logger.Logger
}

// NewBuilder creates a new signal builder
func NewBuilder(
	technical *TechnicalCalculator,
	institutional *InstitutionalCalculator,
	timing *TimingCalculator,
	logger *logger.Logger,
) *Builder {
	return &Builder{
		technical:     technical,
		institutional: institutional,
		timing:        timing,
		logger:        logger,
	}
}

// NewDefaultBuilder wires every calculator to the same logger
func NewDefaultBuilder(log *logger.Logger) *Builder {
	return NewBuilder(
		NewTechnicalCalculator(log),
		NewInstitutionalCalculator(log),
		NewTimingCalculator(log),
		log,
	)
}

// Build computes all symbol-level signals. Inputs must already be validated.
func (b *Builder) Build(in *contracts.EvaluationInputs, set *contracts.IndicatorSet) *Signals {
	lastBar, _ := in.Daily.Last()

	signals := &Signals{
		Technical:     b.technical.Calculate(in.Daily, set),
		Institutional: b.institutional.Calculate(in.Options, in.Baseline, in.Intraday, lastBar.Close),
		Timing:        b.timing.Calculate(in.AsOf, in.Daily, in.Intraday),
	}

	b.logger.WithFields(map[string]interface{}{
		"symbol":             in.Daily.Symbol,
		"technical_bias":     signals.Technical.Bias,
		"institutional_bias": signals.Institutional.Bias,
		"options_available":  signals.Institutional.Available,
		"pullback":           signals.Timing.PullbackDetected,
	}).Debug("Signals built")

	return signals
}
