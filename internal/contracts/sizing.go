package contracts

// PositionSizing is the risk-bounded trade plan.
// RiskAmount = AccountValue × RiskPct; the contract counts never lose more than
// RiskAmount at the stop.
type PositionSizing struct {
	Symbol          string    `json:"symbol,omitempty"`
	Direction       Direction `json:"direction"`
	AccountValue    float64   `json:"account_value"`
	RiskPct         float64   `json:"risk_pct"`
	Leverage        float64   `json:"leverage"`
	RiskAmount      float64   `json:"risk_amount"`
	EntryPrice      float64   `json:"entry_price"`
	StopDistance    float64   `json:"stop_distance"`
	StopPrice       float64   `json:"stop_price"`
	TargetPrice     float64   `json:"target_price"`
	RiskRewardRatio float64   `json:"risk_reward_ratio"`

	TotalContracts     int64 `json:"total_contracts"`
	InitialContracts   int64 `json:"initial_contracts"`
	SecondaryContracts int64 `json:"secondary_contracts"` // 눌림목 확인 후에만 추가

	MaxLossAtStop     float64 `json:"max_loss_at_stop"`
	Notional          float64 `json:"notional"`
	LimitedByLeverage bool    `json:"limited_by_leverage"`
}
