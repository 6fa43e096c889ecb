package contracts

import "time"

// ReadyThreshold is the confirmed-item count required to trade.
// It is a design constant, not a per-call parameter.
const ReadyThreshold = 9

// Recommendation is the composite verdict for one symbol.
// It is built once per request and never mutated afterwards.
type Recommendation struct {
	Symbol         string    `json:"symbol"`
	AsOf           time.Time `json:"as_of"`
	Direction      Direction `json:"direction"`
	ConfirmedCount int       `json:"confirmed_count"`
	TotalCount     int       `json:"total_count"`
	ReadyToTrade   bool      `json:"ready_to_trade"`

	// Sizing inputs carried from the technical snapshot
	EntryPrice float64 `json:"entry_price"`
	ATR        Measure `json:"atr_20"`

	Checklist Checklist `json:"checklist"`

	Market        MarketContext         `json:"market"`
	Technical     TechnicalSetup        `json:"technical"`
	Institutional InstitutionalActivity `json:"institutional"`
	Timing        TimingEdge            `json:"timing"`
	Indicators    IndicatorSet          `json:"indicators"`
}

// Confirmed returns the names of confirmed items in checklist order
func (r *Recommendation) Confirmed() []Criterion {
	var out []Criterion
	for _, item := range r.Checklist {
		if item.Confirmed {
			out = append(out, item.Criterion)
		}
	}
	return out
}
