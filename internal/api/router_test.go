package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/aegis-edge/internal/api/handlers"
	"github.com/wonny/aegis-edge/internal/brain"
	"github.com/wonny/aegis-edge/internal/risk"
	"github.com/wonny/aegis-edge/internal/s0_data"
	"github.com/wonny/aegis-edge/internal/s0_data/snapshot"
	"github.com/wonny/aegis-edge/internal/strategyconfig"
	"github.com/wonny/aegis-edge/pkg/logger"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	log := logger.NewNop()
	cfg := strategyconfig.Default()

	store, err := snapshot.Open(t.TempDir())
	require.NoError(t, err)
	gatherer := brain.NewGatherer(s0_data.NewProvider(store, cfg.AuxSymbols()), cfg.GatherOptions(), log)
	orchestrator := brain.NewDefaultOrchestrator(log)

	return NewRouter(Handlers{
		Evaluate: handlers.NewEvaluateHandler(gatherer, orchestrator, cfg, log),
		Size:     handlers.NewSizeHandler(risk.NewCalculator()),
		Scan:     handlers.NewScanHandler(brain.NewScanner(gatherer, orchestrator, log), cfg, log),
	}, log, true)
}

func TestRouter(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"health", http.MethodGet, "/health", "", http.StatusOK},
		{"size", http.MethodPost, "/api/size", `{"direction":"LONG","account_value":100000,"leverage":10,"entry_price":198.5,"atr":2}`, http.StatusOK},
		{"size wrong method", http.MethodGet, "/api/size", "", http.StatusMethodNotAllowed},
		{"evaluate empty snapshot", http.MethodPost, "/api/evaluate", `{"symbol":"AAPL"}`, http.StatusBadGateway},
		{"unknown route", http.MethodGet, "/api/nope", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/size", strings.NewReader(`{"direction":"LONG","account_value":1000,"entry_price":10,"atr":1}`))
	router.ServeHTTP(httptest.NewRecorder(), req)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `aegis_edge_http_requests_total{method="POST",route="/api/size",status="200"}`)
}

func TestRecoveryMiddleware(t *testing.T) {
	h := recoveryMiddleware(logger.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Internal server error")
}
