package contracts

import (
	"fmt"
	"strings"
	"time"
)

// OptionType is call or put
type OptionType string

const (
	OptionCall OptionType = "call"
	OptionPut  OptionType = "put"
)

// ParseOptionType accepts "call"/"put" in any case
func ParseOptionType(s string) (OptionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "call", "c":
		return OptionCall, nil
	case "put", "p":
		return OptionPut, nil
	}
	return "", InvalidParameter("option_type", fmt.Sprintf("unknown option type %q", s))
}

// Greeks of a contract; nil fields are undefined (illiquid contracts)
type Greeks struct {
	Delta *float64 `json:"delta,omitempty"`
	Gamma *float64 `json:"gamma,omitempty"`
	Theta *float64 `json:"theta,omitempty"`
	Vega  *float64 `json:"vega,omitempty"`
	Rho   *float64 `json:"rho,omitempty"`
}

// OptionContract is one listed option in a chain snapshot
type OptionContract struct {
	ContractID        string     `json:"contract_id"`
	Type              OptionType `json:"type"`
	Strike            float64    `json:"strike"`
	Expiration        time.Time  `json:"expiration"`
	Last              float64    `json:"last"`
	Bid               float64    `json:"bid"`
	Ask               float64    `json:"ask"`
	Volume            int64      `json:"volume"`
	OpenInterest      int64      `json:"open_interest"`
	ImpliedVolatility *float64   `json:"implied_volatility,omitempty"`
	Greeks            Greeks     `json:"greeks"`
}

// HasIV reports whether implied volatility is defined and positive
func (c OptionContract) HasIV() bool {
	return c.ImpliedVolatility != nil && *c.ImpliedVolatility > 0
}

// OptionsChainSnapshot is the chain for a symbol on one date.
// Contract order is irrelevant; analyzers re-sort as needed.
type OptionsChainSnapshot struct {
	Symbol          string           `json:"symbol"`
	Date            time.Time        `json:"date"`
	UnderlyingPrice float64          `json:"underlying_price,omitempty"` // 0 = unknown
	Contracts       []OptionContract `json:"contracts"`
}

// Validate rejects malformed contracts
func (s *OptionsChainSnapshot) Validate() error {
	if s == nil {
		return nil
	}
	if s.Date.IsZero() {
		return InvalidParameter("options.date", "missing snapshot date")
	}
	for i, c := range s.Contracts {
		if c.Type != OptionCall && c.Type != OptionPut {
			return InvalidParameter("options.type", fmt.Sprintf("contract %d: unknown type %q", i, c.Type))
		}
		if c.Strike <= 0 {
			return InvalidParameter("options.strike", fmt.Sprintf("contract %d: non-positive strike", i))
		}
		if c.Volume < 0 || c.OpenInterest < 0 {
			return InvalidParameter("options.volume", fmt.Sprintf("contract %d: negative volume or open interest", i))
		}
	}
	return nil
}

// OptionVolumeBaseline is the trailing average daily call/put volume
type OptionVolumeBaseline struct {
	CallAverage float64 `json:"call_average"`
	PutAverage  float64 `json:"put_average"`
	Sessions    int     `json:"sessions"`
}

// Float returns a pointer to v (Greeks/IV construction helper)
func Float(v float64) *float64 {
	return &v
}
