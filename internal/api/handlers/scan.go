package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wonny/aegis-edge/internal/brain"
	"github.com/wonny/aegis-edge/internal/contracts"
	"github.com/wonny/aegis-edge/internal/strategyconfig"
	"github.com/wonny/aegis-edge/pkg/logger"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

// Scan stream message types
const (
	MessageResult  = "result"
	MessageFailure = "failure"
	MessageSummary = "summary"
)

// ScanMessage is one frame of the scan stream.
// Exactly one summary frame closes every stream.
type ScanMessage struct {
	Type           string                    `json:"type"`
	Symbol         string                    `json:"symbol,omitempty"`
	Recommendation *contracts.Recommendation `json:"recommendation,omitempty"`
	Error          string                    `json:"error,omitempty"`
	Kind           string                    `json:"kind,omitempty"`
	Summary        *ScanSummary              `json:"summary,omitempty"`
}

// ScanSummary closes a scan stream
type ScanSummary struct {
	RunID      string    `json:"run_id"`
	AsOf       time.Time `json:"as_of"`
	ConfigHash string    `json:"config_hash,omitempty"`
	Evaluated  int       `json:"evaluated"`
	Failed     int       `json:"failed"`
	Skipped    []string  `json:"skipped,omitempty"`
	Ready      []string  `json:"ready"`
	DurationMS int64     `json:"duration_ms"`
}

// ScanQuery is the query string of GET /api/scan/ws
type ScanQuery struct {
	Symbols []string `json:"symbols" validate:"dive,required,max=12"`
	AsOf    string   `json:"as_of"`
	Workers int      `json:"workers" validate:"omitempty,gte=1,lte=64"`
}

// ScanHandler streams batch scans over a websocket
type ScanHandler struct {
	scanner    *brain.Scanner
	strategy   *strategyconfig.Config
	configHash string
	upgrader   websocket.Upgrader
	logger     *logger.Logger
	now        func() time.Time
}

// NewScanHandler creates a new scan handler
func NewScanHandler(scanner *brain.Scanner, strategy *strategyconfig.Config, log *logger.Logger) *ScanHandler {
	hash, _ := strategyconfig.Hash(strategy)
	return &ScanHandler{
		scanner:    scanner,
		strategy:   strategy,
		configHash: hash,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		logger: log,
		now:    time.Now,
	}
}

// Stream handles GET /api/scan/ws?symbols=AAPL,MSFT&as_of=2026-10-16&workers=4
// Without symbols the strategy watchlist is scanned.
func (h *ScanHandler) Stream(w http.ResponseWriter, r *http.Request) {
	q := ScanQuery{AsOf: r.URL.Query().Get("as_of")}
	if raw := r.URL.Query().Get("symbols"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			q.Symbols = append(q.Symbols, normalizeSymbol(s))
		}
	} else {
		q.Symbols = h.strategy.Universe.Watchlist
	}
	if raw := r.URL.Query().Get("workers"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			respondInvalid(w, []ValidationError{{Code: "ERR_DECODE", Field: "workers", Message: err.Error()}})
			return
		}
		q.Workers = n
	}
	if errs := validateRequest(r.Context(), &q); errs != nil {
		respondInvalid(w, errs)
		return
	}
	if len(q.Symbols) == 0 {
		respondError(w, http.StatusBadRequest, "no symbols given and the watchlist is empty")
		return
	}
	asOf, err := contracts.ParseAsOf(q.AsOf, h.now())
	if err != nil {
		respondEngineError(w, err)
		return
	}
	if q.Workers == 0 {
		q.Workers = h.strategy.Batch.Workers
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied with an HTTP error
		h.logger.WithError(err).Warn("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), h.strategy.Batch.Timeout)
	defer cancel()

	// the client never sends frames; a read error means it went away
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	var mu sync.Mutex
	send := func(msg ScanMessage) error {
		mu.Lock()
		defer mu.Unlock()
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(msg)
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
					cancel()
					return
				}
			}
		}
	}()

	log := h.logger.WithFields(map[string]interface{}{
		"symbols": len(q.Symbols),
		"as_of":   asOf.Format(time.RFC3339),
	})
	log.Info("Streaming scan started")

	result := h.scanner.Scan(ctx, q.Symbols, asOf, brain.BatchOptions{
		Workers: q.Workers,
		OnResult: func(symbol string, rec *contracts.Recommendation, err error) {
			msg := ScanMessage{Type: MessageResult, Symbol: symbol, Recommendation: rec}
			if err != nil {
				msg = ScanMessage{
					Type:   MessageFailure,
					Symbol: symbol,
					Error:  err.Error(),
					Kind:   string(contracts.KindOf(err)),
				}
			}
			if werr := send(msg); werr != nil {
				cancel()
			}
		},
	})

	ready := result.Ready()
	if ready == nil {
		ready = []string{}
	}
	summary := ScanMessage{Type: MessageSummary, Summary: &ScanSummary{
		RunID:      result.RunID,
		AsOf:       asOf,
		ConfigHash: h.configHash,
		Evaluated:  len(result.Recommendations),
		Failed:     len(result.Failures),
		Skipped:    result.Skipped,
		Ready:      ready,
		DurationMS: result.Duration.Milliseconds(),
	}}
	if err := send(summary); err != nil {
		log.WithError(err).Warn("Client left before the summary")
		return
	}

	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "scan complete"),
		time.Now().Add(writeWait))

	log.WithFields(map[string]interface{}{
		"run_id":    result.RunID,
		"evaluated": len(result.Recommendations),
		"failed":    len(result.Failures),
		"ready":     len(ready),
	}).Info("Streaming scan completed")
}
