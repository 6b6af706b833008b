// Package fees models exchange trading fees: flat rates, 30-day
// volume tiers, and discount overlays such as loyalty-token payment
// programs.
package fees

import (
	"fmt"
	"sort"
)

// Schedule resolves an effective fee rate and computes fee amounts.
// Rates are decimals (0.001 = 0.1%).
type Schedule interface {
	// Rate returns the effective rate for a 30-day trading volume.
	Rate(volume30d float64) float64
	// Fee returns the fee amount for a trade of the given notional.
	Fee(amount float64) float64
	// Maker reports whether this schedule prices maker orders.
	Maker() bool
	Description() string
}

// NormalizeRate brings a human-entered or externally-sourced rate into
// decimal form. Anything above 0.1 is read as a percentage and divided
// by 100. Applied exactly once, at the boundary where a rate enters
// the system; the function is idempotent so a second application is
// harmless.
func NormalizeRate(rate float64) float64 {
	if rate > 0.1 {
		return rate / 100
	}
	return rate
}

// FlatSchedule charges a single rate regardless of volume.
type FlatSchedule struct {
	rate  float64
	maker bool
	desc  string
}

// NewFlatSchedule builds a flat schedule. The rate is normalized at
// this boundary.
func NewFlatSchedule(rate float64, maker bool, desc string) *FlatSchedule {
	return &FlatSchedule{rate: NormalizeRate(rate), maker: maker, desc: desc}
}

func (f *FlatSchedule) Rate(volume30d float64) float64 { return f.rate }
func (f *FlatSchedule) Fee(amount float64) float64     { return amount * f.rate }
func (f *FlatSchedule) Maker() bool                    { return f.maker }
func (f *FlatSchedule) Description() string            { return f.desc }

// Tier is one breakpoint of a volume-tiered schedule.
type Tier struct {
	MinVolume float64
	Rate      float64
}

// TieredSchedule resolves the rate from the highest tier whose
// breakpoint does not exceed the 30-day volume. Breakpoints are
// strictly increasing.
type TieredSchedule struct {
	tiers     []Tier
	volume30d float64
	maker     bool
	desc      string
}

// NewTieredSchedule builds a tiered schedule from breakpoint/rate
// pairs. Rates are normalized at this boundary and tiers sorted by
// breakpoint. An error is returned for an empty table or duplicate
// breakpoints.
func NewTieredSchedule(tiers []Tier, volume30d float64, maker bool, desc string) (*TieredSchedule, error) {
	if len(tiers) == 0 {
		return nil, fmt.Errorf("tiered schedule requires at least one tier")
	}
	sorted := append([]Tier(nil), tiers...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].MinVolume < sorted[j].MinVolume })
	for i := range sorted {
		sorted[i].Rate = NormalizeRate(sorted[i].Rate)
		if i > 0 && sorted[i].MinVolume == sorted[i-1].MinVolume {
			return nil, fmt.Errorf("duplicate tier breakpoint %f", sorted[i].MinVolume)
		}
	}
	return &TieredSchedule{tiers: sorted, volume30d: volume30d, maker: maker, desc: desc}, nil
}

func (t *TieredSchedule) Rate(volume30d float64) float64 {
	rate := t.tiers[0].Rate
	for _, tier := range t.tiers {
		if volume30d >= tier.MinVolume {
			rate = tier.Rate
		} else {
			break
		}
	}
	return rate
}

func (t *TieredSchedule) Fee(amount float64) float64 {
	return amount * t.Rate(t.volume30d)
}

func (t *TieredSchedule) Maker() bool         { return t.maker }
func (t *TieredSchedule) Description() string { return t.desc }

// Tiers exposes the normalized table, mostly for reporting.
func (t *TieredSchedule) Tiers() []Tier {
	return append([]Tier(nil), t.tiers...)
}
