package commands

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/wonny/aegis-edge/internal/contracts"
	"github.com/wonny/aegis-edge/internal/risk"
)

// sizeCmd represents the size command
var sizeCmd = &cobra.Command{
	Use:   "size",
	Short: "포지션 크기 계산",
	Long: `진입가와 ATR로 리스크 한도 내 계약 수를 계산합니다.

- 거래당 최대 손실 = 계좌의 3%
- 손절 = 진입가 ∓ ATR, 목표 = 손절 거리 × 1.4
- 1차 70% 진입, 눌림목 확인 후 30% 추가

Example:
  go run ./cmd/edge size --direction LONG --account 100000 --leverage 10 --entry 198.5 --atr 2`,
	RunE: runSize,
}

var (
	sizeSymbol    string
	sizeDirection string
	sizeAccount   float64
	sizeLeverage  float64
	sizeEntry     float64
	sizeATR       float64
	sizeJSON      bool
)

func init() {
	rootCmd.AddCommand(sizeCmd)

	sizeCmd.Flags().StringVar(&sizeSymbol, "symbol", "", "symbol (label only)")
	sizeCmd.Flags().StringVar(&sizeDirection, "direction", "LONG", "LONG or SHORT")
	sizeCmd.Flags().Float64Var(&sizeAccount, "account", 100000, "account value")
	sizeCmd.Flags().Float64Var(&sizeLeverage, "leverage", 1, "leverage (1-20)")
	sizeCmd.Flags().Float64Var(&sizeEntry, "entry", 0, "entry price")
	sizeCmd.Flags().Float64Var(&sizeATR, "atr", 0, "ATR(20) at entry")
	sizeCmd.Flags().BoolVar(&sizeJSON, "json", false, "print JSON instead of text")

	sizeCmd.MarkFlagRequired("entry")
	sizeCmd.MarkFlagRequired("atr")
}

func runSize(cmd *cobra.Command, args []string) error {
	plan, err := risk.NewCalculator().SizeTrade(risk.TradeParams{
		Symbol:       strings.ToUpper(sizeSymbol),
		Direction:    contracts.Direction(strings.ToUpper(sizeDirection)),
		AccountValue: sizeAccount,
		Leverage:     sizeLeverage,
		EntryPrice:   sizeEntry,
		ATR:          sizeATR,
	})
	if err != nil {
		return err
	}

	if sizeJSON {
		return printJSON(plan)
	}
	PrintSizing(plan)
	PrintDoubleSeparator()
	return nil
}
