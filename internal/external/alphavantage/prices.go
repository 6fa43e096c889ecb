package alphavantage

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/aegis-edge/internal/contracts"
)

// compactSize is the number of bars returned with outputsize=compact
const compactSize = 100

type ohlcv struct {
	Open   string `json:"1. open"`
	High   string `json:"2. high"`
	Low    string `json:"3. low"`
	Close  string `json:"4. close"`
	Volume string `json:"5. volume"`
}

// FetchDaily fetches up to lookback daily bars, oldest first.
// Each daily bar is stamped at the 16:00 exchange close of its session.
func (c *Client) FetchDaily(ctx context.Context, symbol string, lookback int) (*contracts.PriceSeries, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("outputsize", outputSize(lookback))

	var raw map[string]json.RawMessage
	if err := c.query(ctx, "TIME_SERIES_DAILY", params, &raw); err != nil {
		return nil, err
	}

	series, err := c.parseSeries(symbol, contracts.ResolutionDaily, raw, parseDailyStamp)
	if err != nil {
		return nil, err
	}
	if lookback > 0 {
		series = series.Tail(lookback)
	}
	return series, nil
}

// FetchIntraday fetches intraday bars at res for the most recent sessions
func (c *Client) FetchIntraday(ctx context.Context, symbol string, res contracts.Resolution, lookback int) (*contracts.PriceSeries, error) {
	if !res.Intraday() {
		return nil, contracts.InvalidParameter("resolution", fmt.Sprintf("%s is not an intraday resolution", res))
	}
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("interval", string(res))
	params.Set("outputsize", "full")
	params.Set("extended_hours", "false")

	var raw map[string]json.RawMessage
	if err := c.query(ctx, "TIME_SERIES_INTRADAY", params, &raw); err != nil {
		return nil, err
	}

	series, err := c.parseSeries(symbol, res, raw, parseIntradayStamp)
	if err != nil {
		return nil, err
	}
	if lookback > 0 {
		series = series.Tail(lookback)
	}
	return series, nil
}

func outputSize(lookback int) string {
	if lookback > 0 && lookback <= compactSize {
		return "compact"
	}
	return "full"
}

// parseSeries finds the "Time Series (...)" object and converts it to ordered bars.
// Rows that fail to parse or validate are dropped.
func (c *Client) parseSeries(
	symbol string,
	res contracts.Resolution,
	raw map[string]json.RawMessage,
	parseStamp func(string) (time.Time, error),
) (*contracts.PriceSeries, error) {
	var body json.RawMessage
	for key, v := range raw {
		if strings.HasPrefix(key, "Time Series") {
			body = v
			break
		}
	}
	if body == nil {
		return nil, contracts.UpstreamDataGap("alphavantage", fmt.Sprintf("no time series in response for %s", symbol))
	}

	var rows map[string]ohlcv
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("parse time series: %w", err)
	}

	series := &contracts.PriceSeries{
		Symbol:     strings.ToUpper(symbol),
		Resolution: res,
		Bars:       make([]contracts.PriceBar, 0, len(rows)),
	}
	dropped := 0
	for stamp, row := range rows {
		bar, err := toBar(stamp, row, parseStamp)
		if err != nil {
			dropped++
			continue
		}
		series.Bars = append(series.Bars, bar)
	}
	sort.Slice(series.Bars, func(i, j int) bool {
		return series.Bars[i].Date.Before(series.Bars[j].Date)
	})

	c.logger.WithFields(map[string]interface{}{
		"symbol":     series.Symbol,
		"resolution": res,
		"count":      len(series.Bars),
		"dropped":    dropped,
	}).Debug("Fetched price series")

	return series, nil
}

func toBar(stamp string, row ohlcv, parseStamp func(string) (time.Time, error)) (contracts.PriceBar, error) {
	ts, err := parseStamp(stamp)
	if err != nil {
		return contracts.PriceBar{}, err
	}
	var bar contracts.PriceBar
	bar.Date = ts
	for _, f := range []struct {
		dst *float64
		src string
	}{
		{&bar.Open, row.Open},
		{&bar.High, row.High},
		{&bar.Low, row.Low},
		{&bar.Close, row.Close},
	} {
		if *f.dst, err = strconv.ParseFloat(f.src, 64); err != nil {
			return contracts.PriceBar{}, err
		}
	}
	if bar.Volume, err = strconv.ParseInt(row.Volume, 10, 64); err != nil {
		return contracts.PriceBar{}, err
	}
	return bar, bar.Validate()
}

func parseDailyStamp(s string) (time.Time, error) {
	d, err := time.ParseInLocation("2006-01-02", s, contracts.ExchangeLocation())
	if err != nil {
		return time.Time{}, err
	}
	return d.Add(16 * time.Hour), nil
}

func parseIntradayStamp(s string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02 15:04:05", s, contracts.ExchangeLocation())
}
