package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/wonny/aegis-edge/internal/contracts"
	"github.com/wonny/aegis-edge/internal/s0_data/quality"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

// PrintSeparator prints a visual separator
func PrintSeparator() {
	fmt.Println("───────────────────────────────────────────────────────────")
}

// PrintDoubleSeparator prints a double-line separator
func PrintDoubleSeparator() {
	fmt.Println("═══════════════════════════════════════════════════════════")
}

// PrintWarning prints a warning message
func PrintWarning(message string) {
	fmt.Printf("⚠️  %s\n", message)
}

// PrintSuccess prints a success message
func PrintSuccess(message string) {
	fmt.Printf("✅ %s\n", message)
}

// PrintError prints an error message
func PrintError(message string) {
	fmt.Printf("❌ %s\n", message)
}

// PrintKeyValue prints key-value pairs
func PrintKeyValue(key string, value string, keyWidth int) {
	fmt.Printf("   %-*s : %s\n", keyWidth, key, value)
}

// PrintTableHeader prints a table header
func PrintTableHeader(columns []string, widths []int) {
	PrintTableRow(columns, widths)
	total := 0
	for i, w := range widths {
		total += w
		if i < len(widths)-1 {
			total += 2 // spacing
		}
	}
	fmt.Println(strings.Repeat("─", total))
}

// PrintTableRow prints a table row
func PrintTableRow(values []string, widths []int) {
	for i, val := range values {
		fmt.Printf("%-*s", widths[i], val)
		if i < len(values)-1 {
			fmt.Print("  ")
		}
	}
	fmt.Println()
}

// printJSON writes v as indented JSON to stdout
func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// money renders a dollar amount with thousands separators
func money(v float64) string {
	return "$" + humanize.FormatFloat("#,###.##", v)
}

func price(v float64) string {
	return humanize.FormatFloat("#,###.##", v)
}

func contractsCount(n int64) string {
	return humanize.Comma(n)
}

func measure(m contracts.Measure) string {
	if !m.Known {
		return "n/a"
	}
	return humanize.FormatFloat("#,###.####", m.Value)
}

func mark(ok bool) string {
	if ok {
		return "✅"
	}
	return "·"
}

// PrintRecommendation renders one verdict with its checklist
func PrintRecommendation(rec *contracts.Recommendation) {
	fmt.Println()
	PrintDoubleSeparator()
	verdict := "NOT READY"
	if rec.ReadyToTrade {
		verdict = "READY"
	}
	fmt.Printf("  %s  %s  %d/%d  %s\n", rec.Symbol, rec.Direction, rec.ConfirmedCount, rec.TotalCount, verdict)
	fmt.Printf("  as of %s  entry %s  ATR(20) %s\n",
		rec.AsOf.In(contracts.ExchangeLocation()).Format("2006-01-02 15:04 MST"),
		price(rec.EntryPrice), measure(rec.ATR))
	PrintSeparator()

	for _, item := range rec.Checklist {
		note := ""
		if item.Note != "" {
			note = "  " + item.Note
		}
		fmt.Printf("   %s %-28s %-14s %10s%s\n", mark(item.Confirmed), item.Criterion, item.Source, measure(item.Value), note)
	}

	PrintSeparator()
	inst := rec.Institutional
	fmt.Printf("   Technical     bias %-5s  z %s  RSI(2) %s  vol× %s\n",
		rec.Technical.Bias, measure(rec.Technical.ZScore), measure(rec.Technical.RSI2), measure(rec.Technical.VolumeRatio))
	if inst.Available {
		fmt.Printf("   Institutional bias %-5s  C/P %s (%s / %s)  skew %s  blocks %d\n",
			inst.Bias, measure(inst.CallPutRatio), humanize.Comma(inst.CallVolume), humanize.Comma(inst.PutVolume),
			inst.SkewDirection, len(inst.BlockTrades))
	} else {
		fmt.Printf("   Institutional unavailable: %s\n", inst.Reason)
	}
	fmt.Printf("   Timing        %s ×%.2f  window %s  pullback %s\n",
		rec.Timing.DayOfWeek, rec.Timing.DayEdgeMultiplier, mark(rec.Timing.OptimalWindow), mark(rec.Timing.PullbackDetected))
}

// PrintSizing renders a trade plan
func PrintSizing(plan *contracts.PositionSizing) {
	PrintSeparator()
	fmt.Println("   Position plan")
	PrintKeyValue("Direction", string(plan.Direction), 14)
	PrintKeyValue("Entry", price(plan.EntryPrice), 14)
	PrintKeyValue("Stop", fmt.Sprintf("%s (−%s)", price(plan.StopPrice), price(plan.StopDistance)), 14)
	PrintKeyValue("Target", fmt.Sprintf("%s (R:R %.2f)", price(plan.TargetPrice), plan.RiskRewardRatio), 14)
	PrintKeyValue("Contracts", fmt.Sprintf("%s = %s now + %s on pullback",
		contractsCount(plan.TotalContracts), contractsCount(plan.InitialContracts), contractsCount(plan.SecondaryContracts)), 14)
	PrintKeyValue("Risk budget", fmt.Sprintf("%s (%.0f%% of %s)", money(plan.RiskAmount), plan.RiskPct, money(plan.AccountValue)), 14)
	PrintKeyValue("Max loss", money(plan.MaxLossAtStop), 14)
	PrintKeyValue("Notional", fmt.Sprintf("%s at %gx", money(plan.Notional), plan.Leverage), 14)
	if plan.LimitedByLeverage {
		PrintWarning("contract count capped by leverage, not by risk")
	}
}

// PrintQuality renders the input completeness report
func PrintQuality(r *quality.Report) {
	PrintSeparator()
	status := "passed"
	if !r.Passed {
		status = "FAILED"
	}
	fmt.Printf("   Data quality  %.2f %s", r.Score, status)
	if len(r.Missing) > 0 {
		fmt.Printf("  missing: %s", strings.Join(r.Missing, ", "))
	}
	fmt.Println()
}
