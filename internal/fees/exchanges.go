package fees

import (
	"strings"
	"sync"
)

// Base-tier taker/maker rates for exchanges without published tier
// tables, plus a conservative default for anything unknown.
const (
	defaultTakerRate = 0.0025
	defaultMakerRate = 0.0015

	okxTakerRate = 0.0010
	okxMakerRate = 0.0008
)

// binanceTiers is the regular (non-BNB) spot fee table. Breakpoints
// are 30-day USD volume.
var binanceTakerTiers = []Tier{
	{0, 0.0010},
	{1_000_000, 0.0009},
	{5_000_000, 0.0008},
	{20_000_000, 0.0007},
	{100_000_000, 0.0006},
}

var binanceMakerTiers = []Tier{
	{0, 0.0010},
	{1_000_000, 0.0009},
	{5_000_000, 0.0007},
	{20_000_000, 0.0005},
	{100_000_000, 0.0004},
}

var coinbaseTakerTiers = []Tier{
	{0, 0.0060},
	{10_000, 0.0040},
	{50_000, 0.0025},
	{100_000, 0.0020},
	{1_000_000, 0.0018},
	{15_000_000, 0.0016},
}

var coinbaseMakerTiers = []Tier{
	{0, 0.0040},
	{10_000, 0.0025},
	{50_000, 0.0015},
	{100_000, 0.0010},
	{1_000_000, 0.0008},
	{15_000_000, 0.0006},
}

var krakenTakerTiers = []Tier{
	{0, 0.0026},
	{50_000, 0.0024},
	{100_000, 0.0022},
	{250_000, 0.0020},
	{500_000, 0.0018},
	{1_000_000, 0.0016},
}

var krakenMakerTiers = []Tier{
	{0, 0.0016},
	{50_000, 0.0014},
	{100_000, 0.0012},
	{250_000, 0.0010},
	{500_000, 0.0008},
	{1_000_000, 0.0006},
}

var bybitTakerTiers = []Tier{
	{0, 0.0010},
	{1_000_000, 0.0008},
	{5_000_000, 0.0006},
	{10_000_000, 0.0005},
}

var bybitMakerTiers = []Tier{
	{0, 0.0010},
	{1_000_000, 0.0006},
	{5_000_000, 0.0004},
	{10_000_000, 0.0002},
}

// Model resolves fee schedules per exchange and carries discount
// overlays. The zero volume (base tier) is assumed unless a 30-day
// volume is registered for an exchange.
type Model struct {
	mu        sync.RWMutex
	volumes   map[string]float64
	discounts map[string]float64 // key: exchange|maker or exchange|taker
}

func NewModel() *Model {
	return &Model{
		volumes:   make(map[string]float64),
		discounts: make(map[string]float64),
	}
}

// SetVolume records a 30-day trading volume used for tier resolution
// on the given exchange.
func (m *Model) SetVolume(exchange string, volume30d float64) {
	m.mu.Lock()
	m.volumes[strings.ToLower(exchange)] = volume30d
	m.mu.Unlock()
}

// RegisterDiscount installs a multiplicative fee discount for one
// side on one exchange, e.g. 0.25 for a 25% token-payment rebate.
// The discount is clamped to [0, 1].
func (m *Model) RegisterDiscount(exchange string, maker bool, discount float64) {
	if discount < 0 {
		discount = 0
	}
	if discount > 1 {
		discount = 1
	}
	m.mu.Lock()
	m.discounts[discountKey(exchange, maker)] = discount
	m.mu.Unlock()
}

func discountKey(exchange string, maker bool) string {
	side := "taker"
	if maker {
		side = "maker"
	}
	return strings.ToLower(exchange) + "|" + side
}

// Schedule returns the fee schedule for the exchange and side,
// falling back to a conservative flat default for unknown exchanges.
func (m *Model) Schedule(exchange string, maker bool) Schedule {
	m.mu.RLock()
	volume := m.volumes[strings.ToLower(exchange)]
	m.mu.RUnlock()

	var sched Schedule
	switch strings.ToLower(exchange) {
	case "binance":
		sched = mustTiered(pick(maker, binanceMakerTiers, binanceTakerTiers), volume, maker, "binance spot")
	case "coinbase":
		sched = mustTiered(pick(maker, coinbaseMakerTiers, coinbaseTakerTiers), volume, maker, "coinbase advanced")
	case "kraken":
		sched = mustTiered(pick(maker, krakenMakerTiers, krakenTakerTiers), volume, maker, "kraken pro")
	case "bybit":
		sched = mustTiered(pick(maker, bybitMakerTiers, bybitTakerTiers), volume, maker, "bybit spot")
	case "okx":
		sched = NewFlatSchedule(pickRate(maker, okxMakerRate, okxTakerRate), maker, "okx spot")
	default:
		sched = NewFlatSchedule(pickRate(maker, defaultMakerRate, defaultTakerRate), maker, "default")
	}
	return sched
}

// Rate is the effective rate for one side on one exchange with any
// registered discount applied.
func (m *Model) Rate(exchange string, maker bool) float64 {
	rate := m.Schedule(exchange, maker).Rate(m.volume(exchange))

	m.mu.RLock()
	discount, ok := m.discounts[discountKey(exchange, maker)]
	m.mu.RUnlock()
	if ok {
		rate *= 1 - discount
	}
	return rate
}

// Fee computes the fee amount for a trade notional, discount applied.
func (m *Model) Fee(exchange string, maker bool, amount float64) float64 {
	return amount * m.Rate(exchange, maker)
}

func (m *Model) volume(exchange string) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.volumes[strings.ToLower(exchange)]
}

func pick(maker bool, m, t []Tier) []Tier {
	if maker {
		return m
	}
	return t
}

func pickRate(maker bool, m, t float64) float64 {
	if maker {
		return m
	}
	return t
}

func mustTiered(tiers []Tier, volume float64, maker bool, desc string) *TieredSchedule {
	s, err := NewTieredSchedule(tiers, volume, maker, desc)
	if err != nil {
		// static tables above are well formed
		panic(err)
	}
	return s
}
