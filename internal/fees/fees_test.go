package fees

import (
	"math"
	"testing"
)

func TestNormalizeRate(t *testing.T) {
	cases := []struct {
		in, want float64
	}{
		{0.001, 0.001},
		{0.1, 0.1},
		{0.25, 0.0025},
		{1.5, 0.015},
		{0, 0},
	}
	for _, c := range cases {
		if got := NormalizeRate(c.in); math.Abs(got-c.want) > 1e-12 {
			t.Fatalf("NormalizeRate(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestNormalizeRateIdempotent(t *testing.T) {
	for _, r := range []float64{0.0004, 0.001, 0.15, 0.26, 2.5} {
		once := NormalizeRate(r)
		twice := NormalizeRate(once)
		if once != twice {
			t.Fatalf("normalize not idempotent for %v: %v then %v", r, once, twice)
		}
	}
}

func TestFlatSchedule(t *testing.T) {
	s := NewFlatSchedule(0.25, false, "test") // percent form
	if got := s.Rate(0); got != 0.0025 {
		t.Fatalf("rate = %v, want 0.0025", got)
	}
	if got := s.Fee(10_000); math.Abs(got-25) > 1e-9 {
		t.Fatalf("fee = %v, want 25", got)
	}
	if s.Maker() {
		t.Fatalf("expected taker schedule")
	}
}

func TestTieredScheduleLookup(t *testing.T) {
	s, err := NewTieredSchedule([]Tier{
		{0, 0.0010},
		{1_000_000, 0.0008},
		{5_000_000, 0.0006},
	}, 0, false, "test")
	if err != nil {
		t.Fatalf("NewTieredSchedule: %v", err)
	}
	cases := []struct {
		volume, want float64
	}{
		{0, 0.0010},
		{999_999, 0.0010},
		{1_000_000, 0.0008},
		{4_999_999, 0.0008},
		{5_000_000, 0.0006},
		{50_000_000, 0.0006},
	}
	for _, c := range cases {
		if got := s.Rate(c.volume); got != c.want {
			t.Fatalf("Rate(%v) = %v, want %v", c.volume, got, c.want)
		}
	}
}

func TestTieredScheduleRejectsBadTables(t *testing.T) {
	if _, err := NewTieredSchedule(nil, 0, false, "empty"); err == nil {
		t.Fatalf("expected error for empty table")
	}
	if _, err := NewTieredSchedule([]Tier{{0, 0.001}, {0, 0.002}}, 0, false, "dup"); err == nil {
		t.Fatalf("expected error for duplicate breakpoints")
	}
}

func TestBuiltInTiersMonotonic(t *testing.T) {
	tables := map[string][]Tier{
		"binance taker":  binanceTakerTiers,
		"binance maker":  binanceMakerTiers,
		"coinbase taker": coinbaseTakerTiers,
		"coinbase maker": coinbaseMakerTiers,
		"kraken taker":   krakenTakerTiers,
		"kraken maker":   krakenMakerTiers,
		"bybit taker":    bybitTakerTiers,
		"bybit maker":    bybitMakerTiers,
	}
	for name, tiers := range tables {
		for i := 1; i < len(tiers); i++ {
			if tiers[i].MinVolume <= tiers[i-1].MinVolume {
				t.Fatalf("%s: breakpoints not increasing at %d", name, i)
			}
			if tiers[i].Rate > tiers[i-1].Rate {
				t.Fatalf("%s: rate rises with volume at %d", name, i)
			}
		}
	}
}

func TestModelVolumeChangesTier(t *testing.T) {
	m := NewModel()
	base := m.Rate("binance", false)
	m.SetVolume("binance", 5_000_000)
	high := m.Rate("binance", false)
	if high >= base {
		t.Fatalf("higher volume should not cost more: base %v, high %v", base, high)
	}
}

func TestModelDiscount(t *testing.T) {
	m := NewModel()
	full := m.Rate("binance", false)
	m.RegisterDiscount("binance", false, 0.25)
	discounted := m.Rate("binance", false)
	if math.Abs(discounted-full*0.75) > 1e-12 {
		t.Fatalf("discounted = %v, want %v", discounted, full*0.75)
	}

	// clamped
	m.RegisterDiscount("binance", false, 2.0)
	if got := m.Rate("binance", false); got != 0 {
		t.Fatalf("fully discounted rate = %v, want 0", got)
	}
}

func TestModelMakerCheaperThanTaker(t *testing.T) {
	m := NewModel()
	for _, ex := range []string{"binance", "coinbase", "kraken", "bybit", "okx", "unknown"} {
		maker := m.Rate(ex, true)
		taker := m.Rate(ex, false)
		if maker > taker {
			t.Fatalf("%s: maker %v > taker %v", ex, maker, taker)
		}
	}
}

func TestModelUnknownExchangeFallback(t *testing.T) {
	m := NewModel()
	if got := m.Rate("gemini", false); got != defaultTakerRate {
		t.Fatalf("fallback taker = %v, want %v", got, defaultTakerRate)
	}
	if got := m.Fee("gemini", false, 1000); math.Abs(got-1000*defaultTakerRate) > 1e-9 {
		t.Fatalf("fallback fee = %v", got)
	}
}
