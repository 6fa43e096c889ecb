package commands

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/aegis-edge/internal/brain"
	"github.com/wonny/aegis-edge/internal/contracts"
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan [SYMBOL...]",
	Short: "감시 종목 일괄 평가",
	Long: `여러 종목을 동시에 평가합니다. 인자가 없으면 전략의 watchlist를 사용합니다.

종목별 실패는 배치를 멈추지 않고 결과에 함께 보고됩니다.

Example:
  go run ./cmd/edge scan
  go run ./cmd/edge scan AAPL MSFT NVDA --workers 8
  go run ./cmd/edge scan --snapshot data/snapshots/2026-10-16 --ready`,
	RunE: runScan,
}

var (
	scanAsOf      string
	scanWorkers   int
	scanReadyOnly bool
	scanJSON      bool
)

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringVar(&scanAsOf, "as-of", "", "evaluation time (YYYY-MM-DD = session close, or RFC 3339)")
	scanCmd.Flags().IntVar(&scanWorkers, "workers", 0, "concurrent evaluations (default is strategy batch.workers)")
	scanCmd.Flags().BoolVar(&scanReadyOnly, "ready", false, "only list symbols that are ready to trade")
	scanCmd.Flags().BoolVar(&scanJSON, "json", false, "print JSON instead of text")
}

func runScan(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	symbols := a.strategy.Universe.Watchlist
	if len(args) > 0 {
		symbols = make([]string, len(args))
		for i, s := range args {
			symbols[i] = strings.ToUpper(strings.TrimSpace(s))
		}
	}
	if len(symbols) == 0 {
		return fmt.Errorf("no symbols: pass them as arguments or set universe.watchlist")
	}

	asOf, err := a.asOf(scanAsOf)
	if err != nil {
		return err
	}
	workers := scanWorkers
	if workers <= 0 {
		workers = a.strategy.Batch.Workers
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), a.strategy.Batch.Timeout)
	defer cancel()

	scanner := brain.NewScanner(a.gatherer(), brain.NewDefaultOrchestrator(a.log), a.log)
	result := scanner.Scan(ctx, symbols, asOf, brain.BatchOptions{Workers: workers})

	if scanJSON {
		return printJSON(struct {
			*brain.BatchResult
			Failures   map[string]string `json:"failures,omitempty"`
			ConfigHash string            `json:"config_hash"`
		}{result, result.FailureSummary(), a.configHash})
	}

	printScan(result, asOf.In(contracts.ExchangeLocation()).Format("2006-01-02 15:04 MST"))
	return nil
}

func printScan(result *brain.BatchResult, asOf string) {
	fmt.Println()
	PrintDoubleSeparator()
	fmt.Printf("  Scan %s  as of %s\n", result.RunID[:8], asOf)
	PrintDoubleSeparator()

	recs := make([]*contracts.Recommendation, 0, len(result.Recommendations))
	for _, rec := range result.Recommendations {
		if scanReadyOnly && !rec.ReadyToTrade {
			continue
		}
		recs = append(recs, rec)
	}
	// most confirmed first, then by symbol
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].ConfirmedCount != recs[j].ConfirmedCount {
			return recs[i].ConfirmedCount > recs[j].ConfirmedCount
		}
		return recs[i].Symbol < recs[j].Symbol
	})

	widths := []int{8, 6, 9, 10, 10}
	PrintTableHeader([]string{"SYMBOL", "DIR", "CONFIRMED", "ENTRY", "READY"}, widths)
	for _, rec := range recs {
		PrintTableRow([]string{
			rec.Symbol,
			string(rec.Direction),
			fmt.Sprintf("%d/%d", rec.ConfirmedCount, rec.TotalCount),
			price(rec.EntryPrice),
			mark(rec.ReadyToTrade),
		}, widths)
	}

	if len(result.Failures) > 0 {
		fmt.Println()
		failed := make([]string, 0, len(result.Failures))
		for sym := range result.Failures {
			failed = append(failed, sym)
		}
		sort.Strings(failed)
		for _, sym := range failed {
			PrintError(fmt.Sprintf("%-8s %s", sym, result.Failures[sym]))
		}
	}
	if len(result.Skipped) > 0 {
		PrintWarning("skipped (cancelled): " + strings.Join(result.Skipped, ", "))
	}

	fmt.Println()
	PrintSuccess(fmt.Sprintf("%d evaluated, %d ready, %d failed in %s",
		len(result.Recommendations), len(result.Ready()), len(result.Failures), result.Duration.Round(time.Millisecond)))
}
