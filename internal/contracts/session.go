package contracts

import (
	"time"
	_ "time/tzdata" // exchange clock must not depend on the host zoneinfo
)

// Regular US equity session, exchange local time
const (
	SessionOpenMinute  = 9*60 + 30
	SessionCloseMinute = 16 * 60
)

var exchangeLocation = mustLoadLocation("America/New_York")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

// ExchangeLocation returns the exchange time zone
func ExchangeLocation() *time.Location {
	return exchangeLocation
}

// SessionDate returns the exchange-local calendar date of t
func SessionDate(t time.Time) time.Time {
	y, m, d := t.In(exchangeLocation).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, exchangeLocation)
}

// SessionClose returns the regular-session close on t's exchange-local date
func SessionClose(t time.Time) time.Time {
	return SessionDate(t).Add(SessionCloseMinute * time.Minute)
}

// SessionBars returns the bars that share the last bar's exchange-local date
func SessionBars(s *PriceSeries) *PriceSeries {
	return TrailingSessions(s, 1)
}

// TrailingSessions returns the bars of the last n exchange-local dates in s
func TrailingSessions(s *PriceSeries, n int) *PriceSeries {
	if s.Len() == 0 || n <= 0 {
		return s
	}
	start := len(s.Bars) - 1
	day := SessionDate(s.Bars[start].Date)
	for seen := 1; start > 0; start-- {
		prev := SessionDate(s.Bars[start-1].Date)
		if !prev.Equal(day) {
			if seen == n {
				break
			}
			seen++
			day = prev
		}
	}
	return &PriceSeries{Symbol: s.Symbol, Resolution: s.Resolution, Bars: s.Bars[start:]}
}

// ParseAsOf reads an evaluation instant. Empty means now; a bare date means
// that session's close; anything else must be RFC 3339.
func ParseAsOf(s string, now time.Time) (time.Time, error) {
	if s == "" {
		return now, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	day, err := time.ParseInLocation(time.DateOnly, s, exchangeLocation)
	if err != nil {
		return time.Time{}, InvalidParameter("as_of", "want YYYY-MM-DD or RFC 3339, got "+s)
	}
	return SessionClose(day), nil
}
