package models

import (
	"strings"
	"time"
)

// Symbol is the canonical trading pair identifier in BASE/QUOTE form,
// uppercase (e.g. "BTC/USDT"). Exchange-native spellings never leave
// their reader package.
type Symbol string

// NewSymbol builds a canonical Symbol from base and quote assets.
func NewSymbol(base, quote string) Symbol {
	return Symbol(strings.ToUpper(base) + "/" + strings.ToUpper(quote))
}

// Base returns the base asset of the pair.
func (s Symbol) Base() string {
	if i := strings.IndexByte(string(s), '/'); i >= 0 {
		return string(s)[:i]
	}
	return string(s)
}

// Quote returns the quote asset of the pair.
func (s Symbol) Quote() string {
	if i := strings.IndexByte(string(s), '/'); i >= 0 {
		return string(s)[i+1:]
	}
	return ""
}

// Ticker is an immutable best-quote snapshot for one symbol on one
// exchange. Consumers never mutate a Ticker; a newer one supersedes it.
type Ticker struct {
	Exchange  string    `json:"exchange"`
	Symbol    Symbol    `json:"symbol"`
	BidPrice  float64   `json:"bid_price"`
	AskPrice  float64   `json:"ask_price"`
	LastPrice float64   `json:"last_price"`
	Volume24h float64   `json:"volume_24h"`
	Timestamp time.Time `json:"timestamp"`
}

// MidPrice returns the quote midpoint, or the last price when one side
// is missing.
func (t Ticker) MidPrice() float64 {
	if t.BidPrice > 0 && t.AskPrice > 0 {
		return (t.BidPrice + t.AskPrice) / 2
	}
	return t.LastPrice
}

// SpreadPct returns the bid/ask spread as a percentage of the midpoint.
func (t Ticker) SpreadPct() float64 {
	mid := t.MidPrice()
	if mid <= 0 || t.BidPrice <= 0 || t.AskPrice <= 0 {
		return 0
	}
	return (t.AskPrice - t.BidPrice) / mid * 100
}

// BookLevel is a single price level of an order book side.
type BookLevel struct {
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
}

// OrderBook holds one exchange's view of a symbol. Bids are ordered by
// descending price, asks by ascending price, and no two levels on the
// same side share a price.
type OrderBook struct {
	Exchange  string      `json:"exchange"`
	Symbol    Symbol      `json:"symbol"`
	Bids      []BookLevel `json:"bids"`
	Asks      []BookLevel `json:"asks"`
	Timestamp time.Time   `json:"timestamp"`
}

// BestBid returns the highest bid, or false when the side is empty.
func (b *OrderBook) BestBid() (BookLevel, bool) {
	if len(b.Bids) == 0 {
		return BookLevel{}, false
	}
	return b.Bids[0], true
}

// BestAsk returns the lowest ask, or false when the side is empty.
func (b *OrderBook) BestAsk() (BookLevel, bool) {
	if len(b.Asks) == 0 {
		return BookLevel{}, false
	}
	return b.Asks[0], true
}

// Clone returns a deep copy so readers can hand books downstream
// without sharing level slices.
func (b *OrderBook) Clone() *OrderBook {
	cp := *b
	cp.Bids = append([]BookLevel(nil), b.Bids...)
	cp.Asks = append([]BookLevel(nil), b.Asks...)
	return &cp
}
