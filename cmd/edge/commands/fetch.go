package commands

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/wonny/aegis-edge/internal/contracts"
	"github.com/wonny/aegis-edge/internal/s0_data"
	"github.com/wonny/aegis-edge/internal/s0_data/collector"
	"github.com/wonny/aegis-edge/internal/s0_data/snapshot"
)

// fetchCmd represents the fetch command
var fetchCmd = &cobra.Command{
	Use:   "fetch [SYMBOL...]",
	Short: "평가 입력 고정 (스냅샷 저장)",
	Long: `데이터 소스에서 평가 입력을 수집해 스냅샷 디렉토리나 DB에 저장합니다.
저장된 스냅샷으로 같은 평가를 언제든 재현할 수 있습니다.

인자가 없으면 전략의 watchlist를 사용합니다.

Example:
  go run ./cmd/edge fetch AAPL MSFT --source alphavantage
  go run ./cmd/edge fetch --source alphavantage --out data/snapshots/2026-10-16
  go run ./cmd/edge fetch AAPL --source alphavantage --to-db`,
	RunE: runFetch,
}

var (
	fetchAsOf    string
	fetchOut     string
	fetchToDB    bool
	fetchWorkers int
)

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().StringVar(&fetchAsOf, "as-of", "", "snapshot time (YYYY-MM-DD = session close, or RFC 3339)")
	fetchCmd.Flags().StringVar(&fetchOut, "out", "", "snapshot directory (default is DATA_DIR/<session date>)")
	fetchCmd.Flags().BoolVar(&fetchToDB, "to-db", false, "write into postgres instead of a snapshot directory")
	fetchCmd.Flags().IntVar(&fetchWorkers, "workers", 0, "concurrent symbols (default is strategy batch.workers)")
}

func runFetch(cmd *cobra.Command, args []string) error {
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

	asOf, err := a.asOf(fetchAsOf)
	if err != nil {
		return err
	}
	workers := fetchWorkers
	if workers <= 0 {
		workers = a.strategy.Batch.Workers
	}

	// 1. Pick the sink
	var sink contracts.SnapshotWriter
	var store *snapshot.Store
	target := ""
	if fetchToDB {
		db, err := a.connectDB()
		if err != nil {
			return err
		}
		sink = s0_data.NewRepository(db.Pool)
		target = "postgres"
	} else {
		dir := fetchOut
		if dir == "" {
			dir = filepath.Join(a.cfg.DataDir, contracts.SessionDate(asOf).Format("2006-01-02"))
		}
		store, err = snapshot.Open(dir)
		if err != nil {
			return fmt.Errorf("open snapshot: %w", err)
		}
		sink = store
		target = dir
	}

	fmt.Println()
	PrintDoubleSeparator()
	fmt.Printf("  Fetch %d symbols from %s\n", len(symbols), a.cfg.DataSource)
	PrintSeparator()
	PrintKeyValue("As of", asOf.In(contracts.ExchangeLocation()).Format("2006-01-02 15:04 MST"), 8)
	PrintKeyValue("Target", target, 8)
	PrintSeparator()

	ctx, cancel := context.WithTimeout(cmd.Context(), a.strategy.Batch.Timeout)
	defer cancel()

	// 2. Collect
	start := time.Now()
	col := collector.NewCollector(a.gatherer(), sink, a.log)
	results := col.Collect(ctx, symbols, asOf, collector.Config{Workers: workers})

	var collected []string
	series, chains := 0, 0
	for i, r := range results {
		if r.Error != nil {
			PrintError(fmt.Sprintf("%-8s %v [%d/%d]", r.Symbol, r.Error, i+1, len(results)))
			continue
		}
		collected = append(collected, r.Symbol)
		series += r.Series
		chains += r.Contracts
		line := fmt.Sprintf("%-8s %d series, %s contracts", r.Symbol, r.Series, humanize.Comma(int64(r.Contracts)))
		if len(r.Missing) > 0 {
			line += "  (missing: " + strings.Join(r.Missing, ", ") + ")"
		}
		PrintSuccess(fmt.Sprintf("%s [%d/%d]", line, i+1, len(results)))
	}
	if len(collected) == 0 {
		return fmt.Errorf("no symbol could be collected")
	}

	// 3. Manifest
	if store != nil {
		if err := store.WriteManifest(&snapshot.Manifest{
			AsOf:      asOf,
			Symbols:   collected,
			Source:    a.cfg.DataSource,
			CreatedAt: time.Now(),
		}); err != nil {
			return fmt.Errorf("write manifest: %w", err)
		}
	}

	fmt.Println()
	PrintSuccess(fmt.Sprintf("%d/%d symbols, %d series, %s option contracts in %s",
		len(collected), len(results), series, humanize.Comma(int64(chains)), time.Since(start).Round(time.Millisecond)))
	return nil
}
