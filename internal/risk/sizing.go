package risk

import (
	"math"

	"tradient/models"
)

// Sizing caps and floors.
const (
	halfKelly       = 0.5
	minPositionSize = 10.0 // quote units; below this the trade is dust
)

// Sizer converts a scored opportunity into a recommended position
// size in quote-currency units.
type Sizer struct {
	Capital        float64
	MaxPositionPct float64 // fraction of capital, e.g. 0.1
}

func NewSizer(capital, maxPositionPct float64) *Sizer {
	return &Sizer{Capital: capital, MaxPositionPct: maxPositionPct}
}

// Size applies a half-Kelly rule with the overall risk score standing
// in for win probability, then scales down for thin liquidity and
// turbulence. netProfitPct is in percent. Sizes below the dust floor
// come back as exactly 0.
func (s *Sizer) Size(netProfitPct float64, assessment models.RiskAssessment) float64 {
	winProbability := math.Min(0.95, assessment.OverallRiskScore*0.9+0.05)

	potentialProfit := netProfitPct / 100
	potentialLoss := 1 - assessment.SlippageRisk

	kelly := 0.0
	if potentialLoss > 0 {
		kelly = (winProbability*(1+potentialProfit) - 1) / potentialLoss
	}
	kelly *= halfKelly
	if kelly < 0 {
		kelly = 0
	}

	capped := math.Min(kelly, s.MaxPositionPct)
	capped *= math.Pow(assessment.LiquidityScore, 1.5)
	capped *= math.Pow(assessment.VolatilityScore, 1.2)

	size := s.Capital * capped
	if size < minPositionSize {
		return 0
	}
	return size
}
