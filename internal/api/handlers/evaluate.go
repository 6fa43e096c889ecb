package handlers

import (
	"net/http"
	"time"

	"github.com/wonny/aegis-edge/internal/brain"
	"github.com/wonny/aegis-edge/internal/contracts"
	"github.com/wonny/aegis-edge/internal/s0_data/quality"
	"github.com/wonny/aegis-edge/internal/strategyconfig"
	"github.com/wonny/aegis-edge/pkg/logger"
)

// EvaluateHandler handles single-symbol evaluation requests
type EvaluateHandler struct {
	gatherer     *brain.Gatherer
	orchestrator *brain.Orchestrator
	gate         *quality.Gate
	strategy     *strategyconfig.Config
	configHash   string
	logger       *logger.Logger
	now          func() time.Time
}

// NewEvaluateHandler creates a new evaluate handler
func NewEvaluateHandler(
	gatherer *brain.Gatherer,
	orchestrator *brain.Orchestrator,
	strategy *strategyconfig.Config,
	log *logger.Logger,
) *EvaluateHandler {
	hash, err := strategyconfig.Hash(strategy)
	if err != nil {
		log.WithError(err).Warn("Strategy config hash unavailable")
	}
	return &EvaluateHandler{
		gatherer:     gatherer,
		orchestrator: orchestrator,
		gate:         quality.NewGate(strategy.Quality),
		strategy:     strategy,
		configHash:   hash,
		logger:       log,
		now:          time.Now,
	}
}

// EvaluateRequest is the body of POST /api/evaluate
// account_value and leverage fall back to the strategy account section
type EvaluateRequest struct {
	Symbol       string  `json:"symbol" validate:"required,max=12"`
	AsOf         string  `json:"as_of,omitempty"`
	AccountValue float64 `json:"account_value,omitempty" validate:"omitempty,gt=0"`
	Leverage     float64 `json:"leverage,omitempty" validate:"omitempty,gte=1,lte=20"`
	Size         *bool   `json:"size,omitempty" default:"true"`
}

// EvaluateResponse carries the verdict, the trade plan when one applies,
// and how complete the gathered inputs were
type EvaluateResponse struct {
	Recommendation *contracts.Recommendation `json:"recommendation"`
	Confirmed      []contracts.Criterion     `json:"confirmed"`
	Sizing         *contracts.PositionSizing `json:"sizing,omitempty"`
	SizingError    string                    `json:"sizing_error,omitempty"`
	Quality        *quality.Report           `json:"quality"`
	ConfigHash     string                    `json:"config_hash,omitempty"`
}

// Evaluate handles POST /api/evaluate
func (h *EvaluateHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if errs := decodeAndValidate(r, &req); errs != nil {
		respondInvalid(w, errs)
		return
	}

	asOf, err := contracts.ParseAsOf(req.AsOf, h.now())
	if err != nil {
		respondEngineError(w, err)
		return
	}
	symbol := normalizeSymbol(req.Symbol)
	log := h.logger.WithSymbol(symbol)

	in, err := h.gatherer.Gather(r.Context(), symbol, asOf)
	if err != nil {
		log.WithError(err).Warn("Gather failed")
		respondEngineError(w, err)
		return
	}

	report := h.gate.Check(in)
	report.Symbol = symbol

	rec, err := h.orchestrator.Evaluate(r.Context(), symbol, *in)
	if err != nil {
		log.WithError(err).Warn("Evaluation rejected")
		respondEngineError(w, err)
		return
	}

	resp := EvaluateResponse{
		Recommendation: rec,
		Confirmed:      rec.Confirmed(),
		Quality:        report,
		ConfigHash:     h.configHash,
	}

	if *req.Size && rec.Direction != contracts.DirectionNone {
		account := req.AccountValue
		if account == 0 {
			account = h.strategy.Account.Value
		}
		leverage := req.Leverage
		if leverage == 0 {
			leverage = h.strategy.Account.Leverage
		}
		plan, err := h.orchestrator.Size(rec, account, leverage)
		if err != nil {
			resp.SizingError = err.Error()
		} else {
			resp.Sizing = plan
		}
	}

	log.WithFields(map[string]interface{}{
		"direction":     rec.Direction,
		"confirmed":     rec.ConfirmedCount,
		"ready":         rec.ReadyToTrade,
		"quality_score": report.Score,
	}).Info("Evaluated")

	respondJSON(w, http.StatusOK, resp)
}
