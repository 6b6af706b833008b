package risk

import (
	"math"
	"testing"

	"tradient/models"
)

func TestNormalizeVolume(t *testing.T) {
	cases := []struct {
		volume, want float64
	}{
		{0, 0},
		{1, 0},
		{10_000, 0.5},
		{100_000_000, 1},
		{10_000_000_000, 1},
	}
	for _, c := range cases {
		if got := normalizeVolume(c.volume); math.Abs(got-c.want) > 1e-9 {
			t.Fatalf("normalizeVolume(%v) = %v, want %v", c.volume, got, c.want)
		}
	}
}

func TestVolatilityScoreBounds(t *testing.T) {
	if got := volatilityScore(0.5); got != 1 {
		t.Fatalf("calm score = %v, want 1", got)
	}
	if got := volatilityScore(2.0); math.Abs(got-0.1) > 1e-9 {
		t.Fatalf("turbulent score = %v, want 0.1", got)
	}
	if got := volatilityScore(0); got != 1 {
		t.Fatalf("zero factor score = %v, want 1", got)
	}
	mid := volatilityScore(1.25)
	if mid <= 0.1 || mid >= 1 {
		t.Fatalf("mid score = %v, want interior", mid)
	}
}

func TestFeeImpactEndpoints(t *testing.T) {
	if got := feeImpact(0.0005); got != 1.0 {
		t.Fatalf("low fee impact = %v, want 1.0", got)
	}
	if got := feeImpact(0.01); got != 0.2 {
		t.Fatalf("high fee impact = %v, want 0.2", got)
	}
	if got := feeImpact(0.02); got != 0.2 {
		t.Fatalf("saturated fee impact = %v, want 0.2", got)
	}
	mid := feeImpact(0.005)
	if mid <= 0.2 || mid >= 1.0 {
		t.Fatalf("mid fee impact = %v, want interior", mid)
	}
}

func TestAssessWeightsSumToOne(t *testing.T) {
	sum := weightLiquidity + weightVolatility + weightFee + weightDepth + weightExecution
	if math.Abs(sum-1) > 1e-12 {
		t.Fatalf("weights sum to %v", sum)
	}
}

func TestAssessBestCase(t *testing.T) {
	a := Assess(Input{
		Volume24h:        1_000_000_000,
		VolatilityFactor: 0.5,
		TotalFeePct:      0.05,
		Slippage: models.SlippageEstimate{
			Percentage: 0,
			Confidence: models.ConfidenceVeryHigh,
		},
	})
	if a.OverallRiskScore < 0.95 {
		t.Fatalf("best-case overall = %v, want >= 0.95", a.OverallRiskScore)
	}
	if a.SlippageRisk != 0 {
		t.Fatalf("slippage risk = %v, want 0", a.SlippageRisk)
	}
}

func TestAssessWorseInputsScoreLower(t *testing.T) {
	good := Assess(Input{
		Volume24h:        500_000_000,
		VolatilityFactor: 0.6,
		TotalFeePct:      0.1,
		Slippage:         models.SlippageEstimate{Percentage: 0.05, Confidence: models.ConfidenceHigh},
	})
	bad := Assess(Input{
		Volume24h:        5_000,
		VolatilityFactor: 1.9,
		TotalFeePct:      0.9,
		Slippage:         models.SlippageEstimate{Percentage: 1.8, Confidence: models.ConfidenceLow},
	})
	if bad.OverallRiskScore >= good.OverallRiskScore {
		t.Fatalf("bad %v >= good %v", bad.OverallRiskScore, good.OverallRiskScore)
	}
}

func TestSizerDustFloor(t *testing.T) {
	s := NewSizer(100, 0.1) // tiny capital, any fraction lands under 10
	a := models.RiskAssessment{
		OverallRiskScore: 0.9,
		LiquidityScore:   1,
		VolatilityScore:  1,
		SlippageRisk:     0.1,
	}
	if got := s.Size(0.5, a); got != 0 {
		t.Fatalf("dust size = %v, want exactly 0", got)
	}
}

func TestSizerCapAndScaling(t *testing.T) {
	s := NewSizer(100_000, 0.1)
	strong := models.RiskAssessment{
		OverallRiskScore: 1,
		LiquidityScore:   1,
		VolatilityScore:  1,
		SlippageRisk:     0,
	}
	size := s.Size(50, strong) // absurd profit forces the cap
	if math.Abs(size-10_000) > 1e-6 {
		t.Fatalf("capped size = %v, want 10000", size)
	}

	thin := strong
	thin.LiquidityScore = 0.5
	if got := s.Size(50, thin); got >= size {
		t.Fatalf("thin liquidity should shrink size: %v >= %v", got, size)
	}
}

func TestSizerNegativeEdgeGivesZero(t *testing.T) {
	s := NewSizer(100_000, 0.1)
	weak := models.RiskAssessment{
		OverallRiskScore: 0.1, // win probability 0.14
		LiquidityScore:   1,
		VolatilityScore:  1,
		SlippageRisk:     0.2,
	}
	if got := s.Size(0.2, weak); got != 0 {
		t.Fatalf("negative-edge size = %v, want 0", got)
	}
}
