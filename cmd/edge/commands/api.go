package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/aegis-edge/internal/api"
	"github.com/wonny/aegis-edge/internal/api/handlers"
	"github.com/wonny/aegis-edge/internal/brain"
	"github.com/wonny/aegis-edge/internal/risk"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

Endpoints:
  GET  /health        - Health check
  POST /api/evaluate  - 종목 평가 (+ 포지션 크기)
  POST /api/size      - 포지션 크기 계산
  GET  /api/scan/ws   - 일괄 평가 스트리밍 (websocket)
  GET  /metrics       - Prometheus metrics

Example:
  go run ./cmd/edge api
  go run ./cmd/edge api --port 8080 --snapshot data/snapshots/2026-10-16`,
	RunE: runAPIServer,
}

var (
	apiPort string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (default is PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Aegis Edge API Server ===")

	// 1. Load config, strategy, data source
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	// Override port if flag is set
	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	a.log.WithFields(map[string]interface{}{
		"port":        a.cfg.Port,
		"env":         a.cfg.Env,
		"source":      a.cfg.DataSource,
		"strategy_id": a.strategy.Meta.StrategyID,
	}).Info("Initializing API server")

	// 2. Create engine
	gatherer := a.gatherer()
	orchestrator := brain.NewDefaultOrchestrator(a.log)

	// 3. Create handlers and router
	router := api.NewRouter(api.Handlers{
		Evaluate: handlers.NewEvaluateHandler(gatherer, orchestrator, a.strategy, a.log),
		Size:     handlers.NewSizeHandler(risk.NewCalculator()),
		Scan:     handlers.NewScanHandler(brain.NewScanner(gatherer, orchestrator, a.log), a.strategy, a.log),
	}, a.log, a.cfg.MetricsEnabled)

	// 4. Create server
	server := api.New(a.cfg, a.log, router)

	// 5. Start server with graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	fmt.Printf("\n✅ Server running on http://localhost:%s\n", a.cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	a.log.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	a.log.Info("Server stopped")
	return nil
}
