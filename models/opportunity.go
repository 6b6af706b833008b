package models

import (
	"fmt"
	"time"
)

// Confidence is a coarse reliability bucket for a slippage estimate,
// derived from order-book depth and liquidity coverage.
type Confidence int

const (
	ConfidenceVeryLow Confidence = iota
	ConfidenceLow
	ConfidenceMedium
	ConfidenceHigh
	ConfidenceVeryHigh
)

// Value maps the bucket to a [0,1] weight.
func (c Confidence) Value() float64 {
	switch c {
	case ConfidenceVeryLow:
		return 0.2
	case ConfidenceLow:
		return 0.4
	case ConfidenceMedium:
		return 0.6
	case ConfidenceHigh:
		return 0.8
	default:
		return 0.95
	}
}

func (c Confidence) String() string {
	switch c {
	case ConfidenceVeryLow:
		return "very_low"
	case ConfidenceLow:
		return "low"
	case ConfidenceMedium:
		return "medium"
	case ConfidenceHigh:
		return "high"
	default:
		return "very_high"
	}
}

// SlippageEstimate is the result of walking an order book for a given
// order size. Percentage is an additive cost in percent.
type SlippageEstimate struct {
	Percentage     float64    `json:"percentage"`
	EffectivePrice float64    `json:"effective_price"`
	BasePrice      float64    `json:"base_price"`
	OrderSize      float64    `json:"order_size"`
	Confidence     Confidence `json:"confidence"`
	Method         string     `json:"method"`
}

// RiskAssessment scores one opportunity across risk dimensions.
// Every score is in [0,1] with 1 meaning best (least risky).
type RiskAssessment struct {
	OverallRiskScore float64 `json:"overall_risk_score"`
	LiquidityScore   float64 `json:"liquidity_score"`
	VolatilityScore  float64 `json:"volatility_score"`
	SlippageRisk     float64 `json:"slippage_risk"`
	FeeImpact        float64 `json:"fee_impact"`
}

// ArbitrageOpportunity is one scored cross-exchange candidate produced
// by a scan cycle. Opportunities are value objects recreated each
// cycle; Key is only a content key for downstream dedup.
type ArbitrageOpportunity struct {
	Symbol                  Symbol         `json:"symbol"`
	BuyExchange             string         `json:"buy_exchange"`
	SellExchange            string         `json:"sell_exchange"`
	BuyPrice                float64        `json:"buy_price"`
	SellPrice               float64        `json:"sell_price"`
	BuyFeePct               float64        `json:"buy_fee_pct"`
	SellFeePct              float64        `json:"sell_fee_pct"`
	GrossSpreadPct          float64        `json:"gross_spread_pct"`
	NetProfitPct            float64        `json:"net_profit_pct"`
	SlippagePct             float64        `json:"slippage_pct"`
	Risk                    RiskAssessment `json:"risk"`
	RecommendedPositionSize float64        `json:"recommended_position_size"`
	Timestamp               time.Time      `json:"timestamp"`
}

// Key is the content identity used by presentation layers to dedup
// re-emitted opportunities.
func (o ArbitrageOpportunity) Key() string {
	return fmt.Sprintf("%s|%s|%s", o.Symbol, o.BuyExchange, o.SellExchange)
}
