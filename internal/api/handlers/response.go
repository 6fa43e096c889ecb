package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/wonny/aegis-edge/internal/contracts"
)

// ErrorResponse is the body of every non-2xx reply
type ErrorResponse struct {
	Error  string            `json:"error"`
	Kind   string            `json:"kind,omitempty"`
	Fields []ValidationError `json:"fields,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{Error: message})
}

// respondEngineError maps a structured engine error onto an HTTP status
// invalid_parameter → 400, insufficient_data/undefined_ratio → 422, upstream gap → 502
func respondEngineError(w http.ResponseWriter, err error) {
	var e *contracts.Error
	if !errors.As(err, &e) {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	status := http.StatusInternalServerError
	switch e.Kind {
	case contracts.KindInvalidParameter:
		status = http.StatusBadRequest
	case contracts.KindInsufficientData, contracts.KindUndefinedRatio:
		status = http.StatusUnprocessableEntity
	case contracts.KindUpstreamDataGap:
		status = http.StatusBadGateway
	}
	respondJSON(w, status, ErrorResponse{Error: err.Error(), Kind: string(e.Kind)})
}

func normalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
