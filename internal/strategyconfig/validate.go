package strategyconfig

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/wonny/aegis-edge/internal/contracts"
	"github.com/wonny/aegis-edge/internal/risk"
	"github.com/wonny/aegis-edge/internal/s0_data/quality"
)

// ValidationError 검증 실패 (프로그램 중단)
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects every failed constraint
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, v := range e {
		msgs[i] = v.Error()
	}
	return "invalid strategy config: " + strings.Join(msgs, "; ")
}

// Warning 권장 위반 (경고만)
type Warning struct {
	Code    string
	Message string
}

// cronParser matches the scheduler's cron.WithSeconds() format
var cronParser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Validate checks all required constraints and returns every violation.
// 실패가 하나라도 있으면 프로그램 중단
func Validate(cfg *Config) ValidationErrors {
	var errs ValidationErrors
	fail := func(field, msg string) {
		errs = append(errs, ValidationError{field, msg})
	}

	// === Meta ===
	if cfg.Meta.StrategyID == "" {
		fail("meta.strategy_id", "required")
	}
	if _, err := time.LoadLocation(cfg.Meta.Timezone); err != nil {
		fail("meta.timezone", err.Error())
	}

	// === Universe ===
	seen := make(map[string]bool, len(cfg.Universe.Watchlist))
	for i, sym := range cfg.Universe.Watchlist {
		if sym == "" {
			fail(fmt.Sprintf("universe.watchlist[%d]", i), "empty symbol")
			continue
		}
		if seen[sym] {
			fail(fmt.Sprintf("universe.watchlist[%d]", i), "duplicate symbol "+sym)
		}
		seen[sym] = true
	}
	if cfg.Universe.VolatilitySymbol == "" {
		fail("universe.volatility_symbol", "required")
	}
	if cfg.Universe.IndexSymbol == "" {
		fail("universe.index_symbol", "required")
	}

	// === Data ===
	if cfg.Data.DailyLookback < cfg.Quality.MinDailyBars {
		fail("data.daily_lookback", fmt.Sprintf("must be >= quality.min_daily_bars (%d)", cfg.Quality.MinDailyBars))
	}
	res, err := contracts.ParseResolution(cfg.Data.IntradayResolution)
	if err != nil || !res.Intraday() {
		fail("data.intraday_resolution", "must be one of 1min, 5min, 15min, 30min, 60min")
	}
	if cfg.Data.IntradayLookback < 0 {
		fail("data.intraday_lookback", "must be >= 0")
	}
	if cfg.Data.AuxLookback <= 0 {
		fail("data.aux_lookback", "must be > 0")
	}
	if cfg.Data.BaselineSessions <= 0 {
		fail("data.baseline_sessions", "must be > 0")
	}

	// === Account ===
	if cfg.Account.Value <= 0 {
		fail("account.value", "must be > 0")
	}
	if cfg.Account.Leverage < risk.MinLeverage || cfg.Account.Leverage > risk.MaxLeverage {
		fail("account.leverage", fmt.Sprintf("must be in [%.0f, %.0f]", risk.MinLeverage, risk.MaxLeverage))
	}

	// === Batch ===
	if cfg.Batch.Workers < 1 || cfg.Batch.Workers > 64 {
		fail("batch.workers", "must be in [1, 64]")
	}
	if cfg.Batch.Timeout <= 0 {
		fail("batch.timeout", "must be > 0")
	}

	// === Schedule ===
	if _, err := cronParser.Parse(cfg.Schedule.ScanCron); err != nil {
		fail("schedule.scan_cron", err.Error())
	}

	// === Quality ===
	if err := validatePctRange(cfg.Quality.MinScore, "quality.min_score"); err != nil {
		errs = append(errs, *err)
	}
	if err := validatePctRange(cfg.Quality.MinIVCoverage, "quality.min_iv_coverage"); err != nil {
		errs = append(errs, *err)
	}

	return errs
}

// Warn checks recommended constraints (non-fatal)
func Warn(cfg *Config) []Warning {
	var warnings []Warning

	// ROC 백분위 전체 창(252)보다 짧으면 extreme_roc 판정이 불안정
	if cfg.Data.DailyLookback < quality.FullDailyHistory {
		warnings = append(warnings, Warning{
			Code:    "SHORT_HISTORY",
			Message: fmt.Sprintf("daily_lookback < %d: ROC percentile uses a partial window", quality.FullDailyHistory),
		})
	}

	if cfg.Account.Leverage > 10 {
		warnings = append(warnings, Warning{
			Code:    "HIGH_LEVERAGE",
			Message: "leverage > 10: contract count is usually capped by margin, not risk",
		})
	}

	if len(cfg.Universe.Watchlist) == 0 {
		warnings = append(warnings, Warning{
			Code:    "EMPTY_WATCHLIST",
			Message: "scan has nothing to evaluate",
		})
	}

	for _, sym := range cfg.Universe.Watchlist {
		if _, ok := cfg.Universe.Sectors[sym]; !ok {
			warnings = append(warnings, Warning{
				Code:    "DEFAULT_SECTOR",
				Message: sym + " has no sector mapping, using " + cfg.Universe.DefaultSector,
			})
		}
	}

	return warnings
}

// === Helper Functions ===

// validatePctRange는 비율 값이 0~1 범위인지 검증
func validatePctRange(pct float64, field string) *ValidationError {
	if pct < 0 || pct > 1 {
		return &ValidationError{field, "must be in range [0, 1]"}
	}
	return nil
}
