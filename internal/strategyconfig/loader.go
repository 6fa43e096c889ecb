package strategyconfig

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"

	"github.com/wonny/aegis-edge/internal/brain"
	"github.com/wonny/aegis-edge/internal/contracts"
	"github.com/wonny/aegis-edge/internal/s0_data"
)

// Load reads YAML file and returns Config with raw bytes
// SSOT 핵심: KnownFields(true)로 오타/미사용 필드 즉시 실패
func Load(path string) (*Config, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	cfg, err := Parse(data)
	return cfg, data, err
}

// Parse decodes YAML, applies defaults, and validates
func Parse(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true) // 알 수 없는 필드 발견 시 에러 반환
	if err := dec.Decode(&cfg); err != nil {
		return nil, err
	}

	// 값이 비어 있는 필드만 기본값으로 채움
	if err := defaults.Set(&cfg); err != nil {
		return nil, err
	}
	cfg.normalize()

	if errs := Validate(&cfg); len(errs) > 0 {
		return nil, errs
	}
	return &cfg, nil
}

// Default returns a config with every default applied and an empty watchlist
func Default() *Config {
	cfg := &Config{Meta: Meta{StrategyID: "edge_default"}}
	_ = defaults.Set(cfg)
	cfg.normalize()
	return cfg
}

// normalize upper-cases ticker symbols so lookups are case-insensitive
func (c *Config) normalize() {
	for i, s := range c.Universe.Watchlist {
		c.Universe.Watchlist[i] = strings.ToUpper(strings.TrimSpace(s))
	}
	if len(c.Universe.Sectors) > 0 {
		sectors := make(map[string]string, len(c.Universe.Sectors))
		for sym, etf := range c.Universe.Sectors {
			sectors[strings.ToUpper(sym)] = strings.ToUpper(etf)
		}
		c.Universe.Sectors = sectors
	}
	c.Universe.VolatilitySymbol = strings.ToUpper(c.Universe.VolatilitySymbol)
	c.Universe.IndexSymbol = strings.ToUpper(c.Universe.IndexSymbol)
	c.Universe.DefaultSector = strings.ToUpper(c.Universe.DefaultSector)
}

// AuxSymbols maps the universe section onto the provider's proxy symbols
func (c *Config) AuxSymbols() s0_data.AuxSymbols {
	return s0_data.AuxSymbols{
		Volatility:    c.Universe.VolatilitySymbol,
		Index:         c.Universe.IndexSymbol,
		Sectors:       c.Universe.Sectors,
		DefaultSector: c.Universe.DefaultSector,
	}
}

// GatherOptions maps the data section onto gatherer options
func (c *Config) GatherOptions() brain.GatherOptions {
	// Validate already rejected unknown resolutions
	res, _ := contracts.ParseResolution(c.Data.IntradayResolution)
	return brain.GatherOptions{
		DailyLookback:      c.Data.DailyLookback,
		IntradayResolution: res,
		IntradayLookback:   c.Data.IntradayLookback,
		AuxLookback:        c.Data.AuxLookback,
		BaselineSessions:   c.Data.BaselineSessions,
	}
}

// Hash generates SHA256 hash from Config (canonical JSON)
// encoding/json은 map 키를 정렬하므로 Sectors가 있어도 해시가 재현됨
func Hash(cfg *Config) (string, error) {
	jsonBytes, err := json.Marshal(cfg)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(sum[:]), nil
}

// NewDecisionSnapshot creates a snapshot for the scan log
func NewDecisionSnapshot(cfg *Config, dataSnapshotID string) (*DecisionSnapshot, error) {
	hash, err := Hash(cfg)
	if err != nil {
		return nil, err
	}

	return &DecisionSnapshot{
		ConfigHash:     hash,
		StrategyID:     cfg.Meta.StrategyID,
		DataSnapshotID: dataSnapshotID,
		CreatedAt:      time.Now(),
	}, nil
}
