package alphavantage

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/aegis-edge/internal/contracts"
)

type optionsResponse struct {
	Message string       `json:"message"`
	Data    []optionsRow `json:"data"`
}

type optionsRow struct {
	ContractID        string `json:"contractID"`
	Symbol            string `json:"symbol"`
	Expiration        string `json:"expiration"`
	Strike            string `json:"strike"`
	Type              string `json:"type"`
	Last              string `json:"last"`
	Bid               string `json:"bid"`
	Ask               string `json:"ask"`
	Volume            string `json:"volume"`
	OpenInterest      string `json:"open_interest"`
	Date              string `json:"date"`
	ImpliedVolatility string `json:"implied_volatility"`
	Delta             string `json:"delta"`
	Gamma             string `json:"gamma"`
	Theta             string `json:"theta"`
	Vega              string `json:"vega"`
	Rho               string `json:"rho"`
}

// FetchOptions fetches the end-of-day options chain for symbol on date
func (c *Client) FetchOptions(ctx context.Context, symbol string, date time.Time) (*contracts.OptionsChainSnapshot, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("date", date.Format("2006-01-02"))

	var resp optionsResponse
	if err := c.query(ctx, "HISTORICAL_OPTIONS", params, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, contracts.UpstreamDataGap("alphavantage", "empty options chain for "+symbol+" on "+date.Format("2006-01-02"))
	}

	chain := &contracts.OptionsChainSnapshot{
		Symbol:    strings.ToUpper(symbol),
		Date:      contracts.SessionDate(date),
		Contracts: make([]contracts.OptionContract, 0, len(resp.Data)),
	}
	dropped := 0
	for _, row := range resp.Data {
		oc, ok := toContract(row)
		if !ok {
			dropped++
			continue
		}
		chain.Contracts = append(chain.Contracts, oc)
	}

	c.logger.WithFields(map[string]interface{}{
		"symbol":    chain.Symbol,
		"date":      date.Format("2006-01-02"),
		"contracts": len(chain.Contracts),
		"dropped":   dropped,
	}).Debug("Fetched options chain")

	return chain, nil
}

func toContract(row optionsRow) (contracts.OptionContract, bool) {
	typ, err := contracts.ParseOptionType(row.Type)
	if err != nil {
		return contracts.OptionContract{}, false
	}
	strike, err := strconv.ParseFloat(row.Strike, 64)
	if err != nil || strike <= 0 {
		return contracts.OptionContract{}, false
	}
	exp, err := time.ParseInLocation("2006-01-02", row.Expiration, contracts.ExchangeLocation())
	if err != nil {
		return contracts.OptionContract{}, false
	}

	oc := contracts.OptionContract{
		ContractID:   row.ContractID,
		Type:         typ,
		Strike:       strike,
		Expiration:   exp,
		Last:         number(row.Last),
		Bid:          number(row.Bid),
		Ask:          number(row.Ask),
		Volume:       count(row.Volume),
		OpenInterest: count(row.OpenInterest),
		Greeks: contracts.Greeks{
			Delta: optional(row.Delta),
			Gamma: optional(row.Gamma),
			Theta: optional(row.Theta),
			Vega:  optional(row.Vega),
			Rho:   optional(row.Rho),
		},
	}
	// zero IV means the vendor could not solve for it
	if iv := optional(row.ImpliedVolatility); iv != nil && *iv > 0 {
		oc.ImpliedVolatility = iv
	}
	return oc, true
}

func number(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

func count(s string) int64 {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

func optional(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}
