package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/wonny/aegis-edge/internal/contracts"
	"github.com/wonny/aegis-edge/internal/s0_data"
)

const (
	dateLayout   = "2006-01-02"
	manifestFile = "manifest.json"
)

// barRow is the on-disk bar layout
type barRow struct {
	Timestamp int64   `parquet:"t"` // Unix timestamp in milliseconds
	Open      float64 `parquet:"o"`
	High      float64 `parquet:"h"`
	Low       float64 `parquet:"l"`
	Close     float64 `parquet:"c"`
	Volume    int64   `parquet:"v"`
}

// Manifest describes one frozen snapshot directory
type Manifest struct {
	AsOf      time.Time `json:"as_of"`
	Symbols   []string  `json:"symbols"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is a directory of frozen evaluation inputs.
// Bars live in <SYM>_<resolution>.parquet, chains in <SYM>_options_<date>.json.
// ⭐ SSOT: 스냅샷 파일 포맷은 여기서만
type Store struct {
	dir string
}

var (
	_ s0_data.SeriesSource     = (*Store)(nil)
	_ contracts.SnapshotWriter = (*Store)(nil)
)

// Open returns a store rooted at dir, creating it if needed
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the root directory
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) seriesPath(symbol string, res contracts.Resolution) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s_%s.parquet", strings.ToUpper(symbol), res))
}

func (s *Store) chainPath(symbol string, date time.Time) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s_options_%s.json", strings.ToUpper(symbol), contracts.SessionDate(date).Format(dateLayout)))
}

func (s *Store) baselinePath(symbol string, date time.Time) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s_baseline_%s.json", strings.ToUpper(symbol), contracts.SessionDate(date).Format(dateLayout)))
}

// PriceSeries reads the stored series; lookback > 0 keeps only the last bars
func (s *Store) PriceSeries(_ context.Context, symbol string, res contracts.Resolution, lookback int) (*contracts.PriceSeries, error) {
	path := s.seriesPath(symbol, res)
	rows, err := parquet.ReadFile[barRow](path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, contracts.UpstreamDataGap("snapshot", fmt.Sprintf("no %s series for %s", res, symbol))
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	series := &contracts.PriceSeries{
		Symbol:     strings.ToUpper(symbol),
		Resolution: res,
		Bars:       make([]contracts.PriceBar, len(rows)),
	}
	loc := contracts.ExchangeLocation()
	for i, r := range rows {
		series.Bars[i] = contracts.PriceBar{
			Date:   time.UnixMilli(r.Timestamp).In(loc),
			Open:   r.Open,
			High:   r.High,
			Low:    r.Low,
			Close:  r.Close,
			Volume: r.Volume,
		}
	}
	if lookback > 0 {
		series = series.Tail(lookback)
	}
	return series, nil
}

// WriteSeries replaces the stored series
func (s *Store) WriteSeries(_ context.Context, series *contracts.PriceSeries) error {
	if err := series.Validate(); err != nil {
		return err
	}
	rows := make([]barRow, len(series.Bars))
	for i, b := range series.Bars {
		rows[i] = barRow{
			Timestamp: b.Date.UnixMilli(),
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			Volume:    b.Volume,
		}
	}

	path := s.seriesPath(series.Symbol, series.Resolution)
	return replace(path, func(tmp string) error {
		return parquet.WriteFile(tmp, rows)
	})
}

// OptionsChain reads the chain stored for date
func (s *Store) OptionsChain(_ context.Context, symbol string, date time.Time) (*contracts.OptionsChainSnapshot, error) {
	var chain contracts.OptionsChainSnapshot
	if err := readJSON(s.chainPath(symbol, date), &chain); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, contracts.UpstreamDataGap("snapshot", fmt.Sprintf("no options for %s on %s", symbol, date.Format(dateLayout)))
		}
		return nil, err
	}
	return &chain, nil
}

// WriteChain stores a chain under its snapshot date
func (s *Store) WriteChain(_ context.Context, chain *contracts.OptionsChainSnapshot) error {
	if chain == nil {
		return nil
	}
	if err := chain.Validate(); err != nil {
		return err
	}
	return writeJSON(s.chainPath(chain.Symbol, chain.Date), chain)
}

// OptionVolumeBaseline returns a frozen baseline if one was written for date,
// else averages the stored chains of earlier sessions.
func (s *Store) OptionVolumeBaseline(ctx context.Context, symbol string, date time.Time, sessions int) (*contracts.OptionVolumeBaseline, error) {
	if sessions <= 0 {
		return nil, contracts.InvalidParameter("sessions", "must be positive")
	}

	var frozen contracts.OptionVolumeBaseline
	err := readJSON(s.baselinePath(symbol, date), &frozen)
	if err == nil {
		return &frozen, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	days, err := s.chainDates(symbol)
	if err != nil {
		return nil, err
	}
	cutoff := contracts.SessionDate(date)

	var chains []*contracts.OptionsChainSnapshot
	for i := len(days) - 1; i >= 0 && len(chains) < sessions; i-- {
		if !days[i].Before(cutoff) {
			continue
		}
		chain, err := s.OptionsChain(ctx, symbol, days[i])
		if err != nil {
			return nil, err
		}
		chains = append(chains, chain)
	}
	return s0_data.AverageVolume(chains)
}

// WriteBaseline freezes a baseline for date
func (s *Store) WriteBaseline(symbol string, date time.Time, baseline *contracts.OptionVolumeBaseline) error {
	if baseline == nil {
		return nil
	}
	return writeJSON(s.baselinePath(symbol, date), baseline)
}

// chainDates lists the dates with a stored chain for symbol, ascending
func (s *Store) chainDates(symbol string) ([]time.Time, error) {
	prefix := strings.ToUpper(symbol) + "_options_"
	matches, err := filepath.Glob(filepath.Join(s.dir, prefix+"*.json"))
	if err != nil {
		return nil, err
	}

	days := make([]time.Time, 0, len(matches))
	for _, m := range matches {
		stamp := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(m), prefix), ".json")
		d, err := time.ParseInLocation(dateLayout, stamp, contracts.ExchangeLocation())
		if err != nil {
			continue
		}
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days, nil
}

// ReadManifest loads manifest.json
func (s *Store) ReadManifest() (*Manifest, error) {
	var m Manifest
	if err := readJSON(filepath.Join(s.dir, manifestFile), &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// WriteManifest records what the directory holds
func (s *Store) WriteManifest(m *Manifest) error {
	return writeJSON(filepath.Join(s.dir, manifestFile), m)
}

func readJSON(path string, dest interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return replace(path, func(tmp string) error {
		return os.WriteFile(tmp, data, 0o644)
	})
}

// replace writes through a temp file so readers never see a partial file
func replace(path string, write func(tmp string) error) error {
	tmp := path + ".tmp"
	if err := write(tmp); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return os.Rename(tmp, path)
}
