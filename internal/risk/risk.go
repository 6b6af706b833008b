// Package risk scores arbitrage candidates across liquidity,
// volatility, fee and execution dimensions and sizes positions with a
// capped fractional-Kelly rule.
package risk

import (
	"math"

	"tradient/models"
)

// Composite weights. Execution risk is derived from the slippage
// estimate, depth from the combined confidence bucket.
const (
	weightLiquidity  = 0.25
	weightVolatility = 0.25
	weightFee        = 0.20
	weightDepth      = 0.15
	weightExecution  = 0.15
)

// Input carries everything one assessment needs. All percentages are
// in percent, volatility factor in the [0.5, 2.0] range produced by
// the slippage layer.
type Input struct {
	Volume24h        float64
	VolatilityFactor float64
	TotalFeePct      float64
	Slippage         models.SlippageEstimate
}

// Assess produces the composite score. All component scores live in
// [0,1] where 1 is the safest.
func Assess(in Input) models.RiskAssessment {
	liquidity := normalizeVolume(in.Volume24h)
	volatility := volatilityScore(in.VolatilityFactor)
	fee := feeImpact(in.TotalFeePct / 100)
	depth := in.Slippage.Confidence.Value()
	execution := 1 - slippageRisk(in.Slippage)

	overall := weightLiquidity*liquidity +
		weightVolatility*volatility +
		weightFee*fee +
		weightDepth*depth +
		weightExecution*execution

	return models.RiskAssessment{
		OverallRiskScore: clamp01(overall),
		LiquidityScore:   liquidity,
		VolatilityScore:  volatility,
		SlippageRisk:     slippageRisk(in.Slippage),
		FeeImpact:        fee,
	}
}

// normalizeVolume maps a 24h volume onto [0,1] on a log scale; 10^8
// and beyond counts as fully liquid.
func normalizeVolume(v float64) float64 {
	if v <= 1 {
		return 0
	}
	return math.Min(math.Log10(v)/8, 1)
}

// volatilityScore inverts the volatility factor: calm markets score
// high. Clamped so a wildly turbulent market still scores 0.1.
func volatilityScore(factor float64) float64 {
	if factor <= 0 {
		return 1
	}
	s := 1 - (factor-0.5)/1.5
	return math.Max(0.1, math.Min(1, s))
}

// feeImpact maps the round-trip fee rate linearly: 0.05% costs almost
// nothing (score 1.0), 1% is heavily penalized (score 0.2).
func feeImpact(feeRate float64) float64 {
	const (
		lowRate, lowScore   = 0.0005, 1.0
		highRate, highScore = 0.01, 0.2
	)
	switch {
	case feeRate <= lowRate:
		return lowScore
	case feeRate >= highRate:
		return highScore
	default:
		t := (feeRate - lowRate) / (highRate - lowRate)
		return lowScore + t*(highScore-lowScore)
	}
}

// slippageRisk turns a combined round-trip estimate into a [0,1]
// risk, saturating at 2% slippage.
func slippageRisk(est models.SlippageEstimate) float64 {
	return math.Min(est.Percentage/2.0, 1)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
