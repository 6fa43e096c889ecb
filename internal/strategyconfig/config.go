package strategyconfig

import (
	"time"

	"github.com/wonny/aegis-edge/internal/s0_data/quality"
)

// Config는 시그널 엔진 운용 전략의 전체 설정
type Config struct {
	Meta     Meta           `yaml:"meta" json:"meta"`
	Universe Universe       `yaml:"universe" json:"universe"`
	Data     Data           `yaml:"data" json:"data"`
	Account  Account        `yaml:"account" json:"account"`
	Batch    Batch          `yaml:"batch" json:"batch"`
	Schedule Schedule       `yaml:"schedule" json:"schedule"`
	Quality  quality.Config `yaml:"quality" json:"quality"`
}

// Meta 메타 정보
type Meta struct {
	StrategyID string `yaml:"strategy_id" json:"strategy_id"`
	Version    string `yaml:"version" json:"version" default:"1"`
	Timezone   string `yaml:"timezone" json:"timezone" default:"America/New_York"`
}

// Universe 감시 종목과 시장 상황 프록시
type Universe struct {
	Watchlist        []string          `yaml:"watchlist" json:"watchlist"`
	VolatilitySymbol string            `yaml:"volatility_symbol" json:"volatility_symbol" default:"VIXY"`
	IndexSymbol      string            `yaml:"index_symbol" json:"index_symbol" default:"SPY"`
	Sectors          map[string]string `yaml:"sectors" json:"sectors"` // symbol → sector ETF
	DefaultSector    string            `yaml:"default_sector" json:"default_sector" default:"SPY"`
}

// Data 데이터 조회 범위
type Data struct {
	DailyLookback      int    `yaml:"daily_lookback" json:"daily_lookback" default:"300"`
	IntradayResolution string `yaml:"intraday_resolution" json:"intraday_resolution" default:"5min"`
	IntradayLookback   int    `yaml:"intraday_lookback" json:"intraday_lookback"` // 0 = all
	AuxLookback        int    `yaml:"aux_lookback" json:"aux_lookback" default:"60"`
	BaselineSessions   int    `yaml:"baseline_sessions" json:"baseline_sessions" default:"20"`
}

// Account 포지션 사이징 기본값
type Account struct {
	Value    float64 `yaml:"value" json:"value" default:"100000"`
	Leverage float64 `yaml:"leverage" json:"leverage" default:"1"`
}

// Batch 일괄 평가
type Batch struct {
	Workers int           `yaml:"workers" json:"workers" default:"4"`
	Timeout time.Duration `yaml:"timeout" json:"timeout" default:"5m"`
}

// Schedule 정기 스캔 (cron, 초 단위 필드 포함)
type Schedule struct {
	ScanCron string `yaml:"scan_cron" json:"scan_cron" default:"0 */15 10-14 * * MON-FRI"`
}

// DecisionSnapshot 스캔 실행 스냅샷 (재현성용)
type DecisionSnapshot struct {
	ConfigHash     string    `json:"config_hash"`
	StrategyID     string    `json:"strategy_id"`
	DataSnapshotID string    `json:"data_snapshot_id"`
	CreatedAt      time.Time `json:"created_at"`
}
