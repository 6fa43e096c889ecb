package contracts

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// Resolution is the bar interval of a price series
type Resolution string

const (
	ResolutionDaily Resolution = "daily"
	Resolution1Min  Resolution = "1min"
	Resolution5Min  Resolution = "5min"
	Resolution15Min Resolution = "15min"
	Resolution30Min Resolution = "30min"
	Resolution60Min Resolution = "60min"
)

// ParseResolution validates a resolution name
func ParseResolution(s string) (Resolution, error) {
	r := Resolution(strings.ToLower(strings.TrimSpace(s)))
	switch r {
	case ResolutionDaily, Resolution1Min, Resolution5Min, Resolution15Min, Resolution30Min, Resolution60Min:
		return r, nil
	}
	return "", InvalidParameter("resolution", fmt.Sprintf("unknown resolution %q", s))
}

// Intraday reports whether bars are sub-daily
func (r Resolution) Intraday() bool {
	return r != ResolutionDaily
}

// PriceBar is one OHLCV bar
type PriceBar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// Validate checks OHLC consistency
func (b PriceBar) Validate() error {
	for _, v := range []float64{b.Open, b.High, b.Low, b.Close} {
		if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return InvalidParameter("bar", fmt.Sprintf("%s: non-positive or non-finite price", b.Date.Format(time.RFC3339)))
		}
	}
	if b.Volume < 0 {
		return InvalidParameter("bar", fmt.Sprintf("%s: negative volume", b.Date.Format(time.RFC3339)))
	}
	if b.High < math.Max(b.Open, b.Close) || b.Low > math.Min(b.Open, b.Close) {
		return InvalidParameter("bar", fmt.Sprintf("%s: high/low do not bracket open/close", b.Date.Format(time.RFC3339)))
	}
	return nil
}

// TypicalPrice is (H+L+C)/3
func (b PriceBar) TypicalPrice() float64 {
	return (b.High + b.Low + b.Close) / 3
}

// PriceSeries is an ordered bar sequence for one symbol.
// Bars are strictly increasing by date; missing sessions are simply absent.
// A series is immutable once fetched: computations only read it.
type PriceSeries struct {
	Symbol     string     `json:"symbol"`
	Resolution Resolution `json:"resolution"`
	Bars       []PriceBar `json:"bars"`
}

// Validate checks every bar and the strict date ordering
func (s *PriceSeries) Validate() error {
	if s == nil {
		return InvalidParameter("series", "nil series")
	}
	if strings.TrimSpace(s.Symbol) == "" {
		return InvalidParameter("symbol", "empty symbol")
	}
	for i, b := range s.Bars {
		if err := b.Validate(); err != nil {
			return err
		}
		if i > 0 && !b.Date.After(s.Bars[i-1].Date) {
			return InvalidParameter("series", fmt.Sprintf("%s: bar %d not after previous bar", s.Symbol, i))
		}
	}
	return nil
}

// Len returns the number of bars (nil-safe)
func (s *PriceSeries) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Bars)
}

// Last returns the most recent bar
func (s *PriceSeries) Last() (PriceBar, bool) {
	if s.Len() == 0 {
		return PriceBar{}, false
	}
	return s.Bars[len(s.Bars)-1], true
}

// Closes returns a fresh slice of close prices
func (s *PriceSeries) Closes() []float64 {
	out := make([]float64, s.Len())
	for i, b := range s.Bars {
		out[i] = b.Close
	}
	return out
}

// Highs returns a fresh slice of high prices
func (s *PriceSeries) Highs() []float64 {
	out := make([]float64, s.Len())
	for i, b := range s.Bars {
		out[i] = b.High
	}
	return out
}

// Lows returns a fresh slice of low prices
func (s *PriceSeries) Lows() []float64 {
	out := make([]float64, s.Len())
	for i, b := range s.Bars {
		out[i] = b.Low
	}
	return out
}

// Volumes returns volumes as float64 for indicator math
func (s *PriceSeries) Volumes() []float64 {
	out := make([]float64, s.Len())
	for i, b := range s.Bars {
		out[i] = float64(b.Volume)
	}
	return out
}

// Tail returns a view of the last n bars (the whole series if shorter)
func (s *PriceSeries) Tail(n int) *PriceSeries {
	if s == nil {
		return nil
	}
	if n >= len(s.Bars) || n < 0 {
		return s
	}
	return &PriceSeries{Symbol: s.Symbol, Resolution: s.Resolution, Bars: s.Bars[len(s.Bars)-n:]}
}

// Until returns a view of the bars already known at t.
// An intraday bar is known once its timestamp has passed, a daily bar once its session has closed.
func (s *PriceSeries) Until(t time.Time) *PriceSeries {
	if s == nil {
		return nil
	}
	known := func(b PriceBar) bool {
		if s.Resolution.Intraday() {
			return !b.Date.After(t)
		}
		return !SessionClose(b.Date).After(t)
	}
	n := sort.Search(len(s.Bars), func(i int) bool { return !known(s.Bars[i]) })
	if n == len(s.Bars) {
		return s
	}
	return &PriceSeries{Symbol: s.Symbol, Resolution: s.Resolution, Bars: s.Bars[:n]}
}

// Measure is a numeric reading that may be undefined.
// Undefined ratios and insufficient history are Known=false with a reason, never 0 or ±Inf.
type Measure struct {
	Value  float64 `json:"value"`
	Known  bool    `json:"known"`
	Reason string  `json:"reason,omitempty"`
}

// KnownMeasure wraps a defined value
func KnownMeasure(v float64) Measure {
	return Measure{Value: v, Known: true}
}

// UnknownMeasure wraps the error that made a value undefined
func UnknownMeasure(err error) Measure {
	reason := "unknown"
	if err != nil {
		reason = err.Error()
	}
	return Measure{Reason: reason}
}

// MeasureOf converts a (value, error) pair
func MeasureOf(v float64, err error) Measure {
	if err != nil {
		return UnknownMeasure(err)
	}
	return KnownMeasure(v)
}

// Flag is a boolean that may be unknown
type Flag struct {
	Value  bool   `json:"value"`
	Known  bool   `json:"known"`
	Reason string `json:"reason,omitempty"`
}

// True reports a known, set flag; unknown counts as not confirmed
func (f Flag) True() bool {
	return f.Known && f.Value
}

// False reports a known, cleared flag
func (f Flag) False() bool {
	return f.Known && !f.Value
}

// Direction is the trade direction
type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
	DirectionNone  Direction = "NONE"
)

// Sign maps LONG/SHORT/NONE to +1/-1/0
func (d Direction) Sign() float64 {
	switch d {
	case DirectionLong:
		return 1
	case DirectionShort:
		return -1
	}
	return 0
}

// MarketContext is the broad-market backdrop, computed once per evaluation
type MarketContext struct {
	VIX2DayTrendPct           Measure `json:"vix_2day_trend_pct"`
	SectorRelativeStrengthPct Measure `json:"sector_relative_strength_pct"`
	IndexAbove20DMA           Flag    `json:"index_above_20dma"`
	SectorSymbol              string  `json:"sector_symbol,omitempty"`
}
