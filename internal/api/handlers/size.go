package handlers

import (
	"net/http"

	"github.com/wonny/aegis-edge/internal/contracts"
	"github.com/wonny/aegis-edge/internal/risk"
)

// SizeHandler handles raw position sizing requests
type SizeHandler struct {
	sizer *risk.Calculator
}

// NewSizeHandler creates a new size handler
func NewSizeHandler(sizer *risk.Calculator) *SizeHandler {
	return &SizeHandler{sizer: sizer}
}

// SizeRequest is the body of POST /api/size
type SizeRequest struct {
	Symbol       string  `json:"symbol,omitempty" validate:"max=12"`
	Direction    string  `json:"direction" validate:"required,oneof=LONG SHORT"`
	AccountValue float64 `json:"account_value" validate:"required,gt=0"`
	Leverage     float64 `json:"leverage" default:"1" validate:"gte=1,lte=20"`
	EntryPrice   float64 `json:"entry_price" validate:"required,gt=0"`
	ATR          float64 `json:"atr" validate:"required,gt=0"`
}

// Size handles POST /api/size
func (h *SizeHandler) Size(w http.ResponseWriter, r *http.Request) {
	var req SizeRequest
	if errs := decodeAndValidate(r, &req); errs != nil {
		respondInvalid(w, errs)
		return
	}

	plan, err := h.sizer.SizeTrade(risk.TradeParams{
		Symbol:       normalizeSymbol(req.Symbol),
		Direction:    contracts.Direction(req.Direction),
		AccountValue: req.AccountValue,
		Leverage:     req.Leverage,
		EntryPrice:   req.EntryPrice,
		ATR:          req.ATR,
	})
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, plan)
}
