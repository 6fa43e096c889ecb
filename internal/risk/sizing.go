package risk

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/wonny/aegis-edge/internal/contracts"
)

// =============================================================================
// Sizing Policy
// =============================================================================

// ⭐ SSOT: 포지션 사이징 상수는 여기서만
const (
	MaxRiskFraction   = 0.03 // 거래당 최대 손실 = 계좌의 3%
	StopATRMultiple   = 1.0  // 손절 거리 = ATR × 1
	RewardRiskRatio   = 1.4  // 목표 거리 = 손절 거리 × 1.4
	InitialFraction   = 0.70 // 1차 진입 비중
	SecondaryFraction = 0.30 // 눌림목 확인 후 2차 진입 비중
	MinLeverage       = 1.0
	MaxLeverage       = 20.0
)

// TradeParams is everything the sizer needs for one trade
type TradeParams struct {
	Symbol       string              `json:"symbol,omitempty"`
	Direction    contracts.Direction `json:"direction"`
	AccountValue float64             `json:"account_value"`
	Leverage     float64             `json:"leverage"`
	EntryPrice   float64             `json:"entry_price"`
	ATR          float64             `json:"atr"`
}

// Validate fails fast on inputs that cannot produce a bounded plan
func (p TradeParams) Validate() error {
	fields := []struct {
		name  string
		value float64
	}{
		{"leverage", p.Leverage},
		{"account_value", p.AccountValue},
		{"entry_price", p.EntryPrice},
		{"atr", p.ATR},
	}
	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return contracts.InvalidParameter(f.name, "not a finite number")
		}
	}
	if p.Leverage < MinLeverage || p.Leverage > MaxLeverage {
		return contracts.InvalidParameter("leverage", fmt.Sprintf("must be within [%g, %g], got %g", MinLeverage, MaxLeverage, p.Leverage))
	}
	if p.AccountValue <= 0 {
		return contracts.InvalidParameter("account_value", "must be positive")
	}
	if p.Direction != contracts.DirectionLong && p.Direction != contracts.DirectionShort {
		return contracts.InvalidParameter("direction", fmt.Sprintf("cannot size direction %q", p.Direction))
	}
	if p.EntryPrice <= 0 {
		return contracts.InvalidParameter("entry_price", "must be positive")
	}
	if p.ATR <= 0 {
		return contracts.InvalidParameter("atr", "stop distance must be positive")
	}
	return nil
}

// =============================================================================
// Calculator - 순수 계산기
// =============================================================================

// Calculator turns a recommendation into a risk-bounded trade plan.
// Prices and counts go through decimal so the stated ratios hold exactly.
type Calculator struct{}

// NewCalculator creates a new position sizing calculator
func NewCalculator() *Calculator {
	return &Calculator{}
}

// Size sizes a recommendation at its entry price and ATR
func (c *Calculator) Size(rec *contracts.Recommendation, accountValue, leverage float64) (*contracts.PositionSizing, error) {
	if rec == nil {
		return nil, contracts.InvalidParameter("recommendation", "missing recommendation")
	}
	// parameter errors win over data gaps so callers see the fixable problem first
	params := TradeParams{
		Symbol:       rec.Symbol,
		Direction:    rec.Direction,
		AccountValue: accountValue,
		Leverage:     leverage,
		EntryPrice:   rec.EntryPrice,
		ATR:          1,
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if !rec.ATR.Known {
		return nil, &contracts.Error{Kind: contracts.KindInsufficientData, Op: "size", Detail: "atr unknown: " + rec.ATR.Reason}
	}
	params.ATR = rec.ATR.Value
	return c.SizeTrade(params)
}

// SizeTrade sizes explicit trade parameters
func (c *Calculator) SizeTrade(p TradeParams) (*contracts.PositionSizing, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	account := decimal.NewFromFloat(p.AccountValue)
	leverage := decimal.NewFromFloat(p.Leverage)
	entry := decimal.NewFromFloat(p.EntryPrice)

	risk := account.Mul(decimal.NewFromFloat(MaxRiskFraction))
	dist := decimal.NewFromFloat(p.ATR).Mul(decimal.NewFromFloat(StopATRMultiple))
	reward := dist.Mul(decimal.NewFromFloat(RewardRiskRatio))
	if dist.IsZero() {
		return nil, contracts.InvalidParameter("atr", "stop distance rounds to zero")
	}

	var stop, target decimal.Decimal
	if p.Direction == contracts.DirectionLong {
		stop, target = entry.Sub(dist), entry.Add(reward)
		if !stop.IsPositive() {
			return nil, contracts.InvalidParameter("stop_price", "long stop would be non-positive")
		}
	} else {
		stop, target = entry.Add(dist), entry.Sub(reward)
		if !target.IsPositive() {
			return nil, contracts.InvalidParameter("target_price", "short target would be non-positive")
		}
	}

	byRisk := risk.Div(dist).Floor()
	byMargin := account.Mul(leverage).Div(entry).Floor()
	total := decimal.Min(byRisk, byMargin)
	initial := total.Mul(decimal.NewFromFloat(InitialFraction)).Floor()
	// the remainder goes to the scale-in so the legs always add up to total
	secondary := total.Sub(initial)

	return &contracts.PositionSizing{
		Symbol:             p.Symbol,
		Direction:          p.Direction,
		AccountValue:       p.AccountValue,
		RiskPct:            MaxRiskFraction * 100,
		Leverage:           p.Leverage,
		RiskAmount:         risk.InexactFloat64(),
		EntryPrice:         p.EntryPrice,
		StopDistance:       dist.InexactFloat64(),
		StopPrice:          stop.InexactFloat64(),
		TargetPrice:        target.InexactFloat64(),
		RiskRewardRatio:    target.Sub(entry).Abs().Div(dist).InexactFloat64(),
		TotalContracts:     total.IntPart(),
		InitialContracts:   initial.IntPart(),
		SecondaryContracts: secondary.IntPart(),
		MaxLossAtStop:      total.Mul(dist).InexactFloat64(),
		Notional:           total.Mul(entry).InexactFloat64(),
		LimitedByLeverage:  byMargin.LessThan(byRisk),
	}, nil
}
