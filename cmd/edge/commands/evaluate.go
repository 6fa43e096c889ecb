package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wonny/aegis-edge/internal/brain"
	"github.com/wonny/aegis-edge/internal/contracts"
	"github.com/wonny/aegis-edge/internal/s0_data/quality"
)

// evaluateCmd represents the evaluate command
var evaluateCmd = &cobra.Command{
	Use:   "evaluate <SYMBOL>",
	Short: "종목 평가 (12개 체크리스트)",
	Long: `한 종목의 입력을 수집하고 체크리스트를 평가합니다.

이 명령어는:
- 일봉/분봉/옵션 체인/보조 지수 수집
- 입력 품질 점수 계산
- 12개 항목 평가 및 방향 판정
- 방향이 있으면 포지션 크기 계산

Example:
  go run ./cmd/edge evaluate AAPL
  go run ./cmd/edge evaluate AAPL --snapshot data/snapshots/2026-10-16 --json
  go run ./cmd/edge evaluate NVDA --account 50000 --leverage 5 --as-of 2026-10-16`,
	Args: cobra.ExactArgs(1),
	RunE: runEvaluate,
}

var (
	evalAsOf     string
	evalAccount  float64
	evalLeverage float64
	evalNoSize   bool
	evalJSON     bool
)

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().StringVar(&evalAsOf, "as-of", "", "evaluation time (YYYY-MM-DD = session close, or RFC 3339)")
	evaluateCmd.Flags().Float64Var(&evalAccount, "account", 0, "account value (default is strategy account.value)")
	evaluateCmd.Flags().Float64Var(&evalLeverage, "leverage", 0, "leverage (default is strategy account.leverage)")
	evaluateCmd.Flags().BoolVar(&evalNoSize, "no-size", false, "skip position sizing")
	evaluateCmd.Flags().BoolVar(&evalJSON, "json", false, "print JSON instead of text")
}

// evaluationReport is the JSON form of evaluate
type evaluationReport struct {
	Recommendation *contracts.Recommendation `json:"recommendation"`
	Sizing         *contracts.PositionSizing `json:"sizing,omitempty"`
	SizingError    string                    `json:"sizing_error,omitempty"`
	Quality        *quality.Report           `json:"quality"`
	ConfigHash     string                    `json:"config_hash"`
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	symbol := strings.ToUpper(strings.TrimSpace(args[0]))
	asOf, err := a.asOf(evalAsOf)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), a.strategy.Batch.Timeout)
	defer cancel()

	// 1. Gather
	in, err := a.gatherer().Gather(ctx, symbol, asOf)
	if err != nil {
		return fmt.Errorf("gather %s: %w", symbol, err)
	}
	report := quality.NewGate(a.strategy.Quality).Check(in)
	report.Symbol = symbol

	// 2. Evaluate
	orchestrator := brain.NewDefaultOrchestrator(a.log)
	rec, err := orchestrator.Evaluate(ctx, symbol, *in)
	if err != nil {
		return fmt.Errorf("evaluate %s: %w", symbol, err)
	}

	out := evaluationReport{Recommendation: rec, Quality: report, ConfigHash: a.configHash}

	// 3. Size
	if !evalNoSize && rec.Direction != contracts.DirectionNone {
		account, leverage := evalAccount, evalLeverage
		if account == 0 {
			account = a.strategy.Account.Value
		}
		if leverage == 0 {
			leverage = a.strategy.Account.Leverage
		}
		plan, err := orchestrator.Size(rec, account, leverage)
		if err != nil {
			out.SizingError = err.Error()
		} else {
			out.Sizing = plan
		}
	}

	if evalJSON {
		return printJSON(out)
	}

	PrintRecommendation(rec)
	if out.Sizing != nil {
		PrintSizing(out.Sizing)
	} else if out.SizingError != "" {
		PrintWarning("sizing skipped: " + out.SizingError)
	}
	PrintQuality(report)
	PrintDoubleSeparator()
	return nil
}
