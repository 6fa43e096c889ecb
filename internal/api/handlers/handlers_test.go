package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/aegis-edge/internal/brain"
	"github.com/wonny/aegis-edge/internal/contracts"
	"github.com/wonny/aegis-edge/internal/risk"
	"github.com/wonny/aegis-edge/internal/strategyconfig"
	"github.com/wonny/aegis-edge/pkg/logger"
)

var asOf = time.Date(2026, 10, 16, 16, 0, 0, 0, contracts.ExchangeLocation())

func wave(symbol string, n int, base float64) *contracts.PriceSeries {
	s := &contracts.PriceSeries{Symbol: symbol, Resolution: contracts.ResolutionDaily}
	start := asOf.AddDate(0, 0, -n)
	for i := 0; i < n; i++ {
		c := base + 5*math.Sin(float64(i)/3) + 0.05*float64(i)
		s.Bars = append(s.Bars, contracts.PriceBar{
			Date:   start.AddDate(0, 0, i),
			Open:   c - 0.2,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: 1_000_000,
		})
	}
	return s
}

// stubProvider serves daily bars for every symbol except GONE; everything optional is a gap
type stubProvider struct{}

func (stubProvider) PriceSeries(_ context.Context, symbol string, res contracts.Resolution, _ int) (*contracts.PriceSeries, error) {
	if symbol == "GONE" || res != contracts.ResolutionDaily {
		return nil, contracts.UpstreamDataGap("stub", "no "+string(res)+" series for "+symbol)
	}
	return wave(symbol, 300, 100), nil
}

func (stubProvider) OptionsChain(context.Context, string, time.Time) (*contracts.OptionsChainSnapshot, error) {
	return nil, contracts.UpstreamDataGap("stub", "no chain")
}

func (stubProvider) OptionVolumeBaseline(context.Context, string, time.Time, int) (*contracts.OptionVolumeBaseline, error) {
	return nil, contracts.UpstreamDataGap("stub", "no baseline")
}

func (stubProvider) VolatilityIndex(context.Context, int) (*contracts.PriceSeries, error) {
	return wave("VIXY", 30, 18), nil
}

func (stubProvider) SectorProxy(context.Context, string, int) (*contracts.PriceSeries, error) {
	return wave("XLK", 30, 200), nil
}

func (stubProvider) BroadIndex(context.Context, int) (*contracts.PriceSeries, error) {
	return wave("SPY", 30, 500), nil
}

func newEvaluateHandler() *EvaluateHandler {
	log := logger.NewNop()
	cfg := strategyconfig.Default()
	h := NewEvaluateHandler(
		brain.NewGatherer(stubProvider{}, cfg.GatherOptions(), log),
		brain.NewDefaultOrchestrator(log),
		cfg,
		log,
	)
	h.now = func() time.Time { return asOf }
	return h
}

func post(t *testing.T, handler http.HandlerFunc, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler(rec, req)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec, out
}

func TestEvaluate(t *testing.T) {
	h := newEvaluateHandler()

	rec, out := post(t, h.Evaluate, `{"symbol":" aapl ","as_of":"2026-10-16","size":false}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	recommendation := out["recommendation"].(map[string]interface{})
	assert.Equal(t, "AAPL", recommendation["symbol"])
	assert.EqualValues(t, contracts.TotalCriteria, recommendation["total_count"])
	assert.NotContains(t, out, "sizing")
	assert.NotEmpty(t, out["config_hash"])

	quality := out["quality"].(map[string]interface{})
	assert.Equal(t, "AAPL", quality["symbol"])
	assert.InDelta(t, 0.55, quality["score"], 1e-9)
	assert.Equal(t, true, quality["passed"])
	assert.ElementsMatch(t, []interface{}{"baseline", "intraday", "options"}, quality["missing"])
}

func TestEvaluateIsRepeatable(t *testing.T) {
	h := newEvaluateHandler()
	body := `{"symbol":"MSFT","as_of":"2026-10-16T14:00:00-04:00"}`

	_, first := post(t, h.Evaluate, body)
	_, second := post(t, h.Evaluate, body)
	assert.Equal(t, first, second)
}

func TestEvaluateRejects(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
		code   string
		field  string
	}{
		{"missing symbol", `{}`, http.StatusBadRequest, "ERR_REQUIRED", "symbol"},
		{"leverage above cap", `{"symbol":"AAPL","leverage":50}`, http.StatusBadRequest, "ERR_LTE", "leverage"},
		{"negative account", `{"symbol":"AAPL","account_value":-5}`, http.StatusBadRequest, "ERR_GT", "account_value"},
		{"unknown field", `{"symbol":"AAPL","colour":"red"}`, http.StatusBadRequest, "ERR_DECODE", ""},
	}

	h := newEvaluateHandler()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, out := post(t, h.Evaluate, tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "invalid_parameter", out["kind"])

			fields := out["fields"].([]interface{})
			require.Len(t, fields, 1)
			first := fields[0].(map[string]interface{})
			assert.Equal(t, tt.code, first["code"])
			if tt.field != "" {
				assert.Equal(t, tt.field, first["field"])
			}
		})
	}
}

func TestEvaluateEngineErrors(t *testing.T) {
	h := newEvaluateHandler()

	rec, out := post(t, h.Evaluate, `{"symbol":"GONE"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "upstream_data_gap", out["kind"])

	rec, out = post(t, h.Evaluate, `{"symbol":"AAPL","as_of":"last friday"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_parameter", out["kind"])
}

func TestSize(t *testing.T) {
	h := NewSizeHandler(risk.NewCalculator())

	rec, out := post(t, h.Size, `{"symbol":"aapl","direction":"LONG","account_value":100000,"leverage":10,"entry_price":198.5,"atr":2}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "AAPL", out["symbol"])
	assert.EqualValues(t, 1500, out["total_contracts"])
	assert.EqualValues(t, 1050, out["initial_contracts"])
	assert.EqualValues(t, 450, out["secondary_contracts"])
	assert.InDelta(t, 196.5, out["stop_price"], 1e-9)
	assert.InDelta(t, 201.3, out["target_price"], 1e-9)

	// leverage defaults to 1, so margin caps the count at floor(100000 / 198.5)
	rec, out = post(t, h.Size, `{"direction":"LONG","account_value":100000,"entry_price":198.5,"atr":2}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 503, out["total_contracts"])
	assert.Equal(t, true, out["limited_by_leverage"])
}

func TestSizeRejects(t *testing.T) {
	h := NewSizeHandler(risk.NewCalculator())

	rec, out := post(t, h.Size, `{"direction":"NONE","account_value":100000,"entry_price":198.5,"atr":2}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	fields := out["fields"].([]interface{})
	assert.Equal(t, "ERR_ONEOF", fields[0].(map[string]interface{})["code"])

	// passes request validation, rejected by the sizer: the short target would be negative
	rec, out = post(t, h.Size, `{"direction":"SHORT","account_value":100000,"entry_price":2,"atr":2}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_parameter", out["kind"])
}

func TestScanStream(t *testing.T) {
	log := logger.NewNop()
	cfg := strategyconfig.Default()
	scanner := brain.NewScanner(
		brain.NewGatherer(stubProvider{}, cfg.GatherOptions(), log),
		brain.NewDefaultOrchestrator(log),
		log,
	)
	h := NewScanHandler(scanner, cfg, log)
	h.now = func() time.Time { return asOf }

	srv := httptest.NewServer(http.HandlerFunc(h.Stream))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?symbols=aapl,GONE,msft&workers=2"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	var results, failures []string
	var summary *ScanSummary
	for summary == nil {
		conn.SetReadDeadline(time.Now().Add(10 * time.Second))
		var msg ScanMessage
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		require.NoError(t, json.NewDecoder(bytes.NewReader(data)).Decode(&msg))

		switch msg.Type {
		case MessageResult:
			results = append(results, msg.Symbol)
		case MessageFailure:
			failures = append(failures, msg.Symbol)
			assert.Equal(t, string(contracts.KindUpstreamDataGap), msg.Kind)
		case MessageSummary:
			summary = msg.Summary
		}
	}

	assert.ElementsMatch(t, []string{"AAPL", "MSFT"}, results)
	assert.Equal(t, []string{"GONE"}, failures)
	assert.Equal(t, 2, summary.Evaluated)
	assert.Equal(t, 1, summary.Failed)
	assert.NotEmpty(t, summary.RunID)
	assert.True(t, summary.AsOf.Equal(asOf))

	// the server closes the stream after the summary
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure))
}

func TestScanRejectsBadQuery(t *testing.T) {
	cfg := strategyconfig.Default()
	h := NewScanHandler(nil, cfg, logger.NewNop())

	rec := httptest.NewRecorder()
	h.Stream(rec, httptest.NewRequest(http.MethodGet, "/?symbols=AAPL&workers=500", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "ERR_LTE")

	cfg.Universe.Watchlist = nil
	rec = httptest.NewRecorder()
	h.Stream(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
