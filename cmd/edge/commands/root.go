package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	strategyFile string
	dataSource   string
	snapshotDir  string
	verbose      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "edge",
	Short: "Aegis Edge - 통계 기반 트레이딩 시그널 엔진",
	Long: `Aegis Edge Unified CLI

12개 체크리스트 항목(시장 상황, 기술적 셋업, 기관 수급, 타이밍)으로
종목별 매매 준비 상태를 판정하고 포지션 크기를 계산합니다.

Data sources (DATA_SOURCE or --source):
  file          frozen snapshot directory (DATA_DIR or --snapshot)
  postgres      market.price_bars / market.option_contracts
  alphavantage  live Alpha Vantage API

Usage:
  go run ./cmd/edge [command]

Examples:
  go run ./cmd/edge evaluate AAPL --snapshot data/snapshots/2026-10-16
  go run ./cmd/edge size --direction LONG --account 100000 --leverage 10 --entry 198.5 --atr 2
  go run ./cmd/edge fetch AAPL MSFT --source alphavantage --out data/snapshots/today
  go run ./cmd/edge scan
  go run ./cmd/edge api`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&strategyFile, "strategy", "", "strategy YAML (default is STRATEGY_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&dataSource, "source", "", "data source: file|postgres|alphavantage (default is DATA_SOURCE)")
	rootCmd.PersistentFlags().StringVar(&snapshotDir, "snapshot", "", "read a frozen snapshot directory (implies --source file)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
