// Package book holds the shared order-book reconciliation logic used
// by every reader: delta application against a sorted side and
// synthesis of single-level books from top-of-book quotes.
package book

import (
	"sort"
	"time"

	"tradient/models"
)

// Side identifies which half of the book a delta targets.
type Side int

const (
	Bid Side = iota
	Ask
)

// ApplyDelta applies one price-level change to a book side and returns
// the updated side. Size zero removes the level, any other size
// replaces it, and an absent price with positive size is inserted with
// the side re-sorted (descending for bids, ascending for asks).
// Applying the same zero-size delta twice is a no-op the second time.
func ApplyDelta(levels []models.BookLevel, side Side, price, size float64) []models.BookLevel {
	for i, lvl := range levels {
		if lvl.Price == price {
			if size == 0 {
				return append(levels[:i], levels[i+1:]...)
			}
			levels[i].Size = size
			return levels
		}
	}
	if size == 0 {
		return levels
	}
	levels = append(levels, models.BookLevel{Price: price, Size: size})
	sortSide(levels, side)
	return levels
}

// ApplyDeltas applies a batch of changes to one side.
func ApplyDeltas(levels []models.BookLevel, side Side, changes []models.BookLevel) []models.BookLevel {
	for _, c := range changes {
		levels = ApplyDelta(levels, side, c.Price, c.Size)
	}
	return levels
}

func sortSide(levels []models.BookLevel, side Side) {
	if side == Bid {
		sort.Slice(levels, func(i, j int) bool { return levels[i].Price > levels[j].Price })
	} else {
		sort.Slice(levels, func(i, j int) bool { return levels[i].Price < levels[j].Price })
	}
}

// Normalize sorts both sides and drops zero-size levels, used when an
// exchange snapshot arrives in no guaranteed order.
func Normalize(b *models.OrderBook) {
	b.Bids = compact(b.Bids)
	b.Asks = compact(b.Asks)
	sortSide(b.Bids, Bid)
	sortSide(b.Asks, Ask)
}

func compact(levels []models.BookLevel) []models.BookLevel {
	out := levels[:0]
	for _, lvl := range levels {
		if lvl.Size > 0 {
			out = append(out, lvl)
		}
	}
	return out
}

// FromTopOfBook synthesizes a single-level book from a best-quote
// ticker. Streams that only deliver best bid/ask use this instead of
// attempting multi-level reconstruction.
func FromTopOfBook(exchange string, symbol models.Symbol, bidPrice, bidSize, askPrice, askSize float64, ts time.Time) *models.OrderBook {
	b := &models.OrderBook{Exchange: exchange, Symbol: symbol, Timestamp: ts}
	if bidPrice > 0 && bidSize > 0 {
		b.Bids = []models.BookLevel{{Price: bidPrice, Size: bidSize}}
	}
	if askPrice > 0 && askSize > 0 {
		b.Asks = []models.BookLevel{{Price: askPrice, Size: askSize}}
	}
	return b
}
