// Package slippage estimates price impact of walking an order book
// and grades how much the estimate can be trusted.
package slippage

import (
	"math"

	"tradient/models"
)

// Estimator predicts relative slippage for a trade of the given
// base-asset size.
type Estimator interface {
	// EstimateBuy walks the ask side, EstimateSell the bid side.
	EstimateBuy(book *models.OrderBook, size float64) models.SlippageEstimate
	EstimateSell(book *models.OrderBook, size float64) models.SlippageEstimate
}

// unfilledPenalty is the extra relative cost assumed for any
// remainder the visible depth cannot absorb, priced 5% beyond the
// worst visible level.
const unfilledPenalty = 0.05

// BookWalker estimates slippage by consuming visible levels in order.
type BookWalker struct{}

func NewBookWalker() *BookWalker { return &BookWalker{} }

func (w *BookWalker) EstimateBuy(book *models.OrderBook, size float64) models.SlippageEstimate {
	if book == nil {
		return empty(size)
	}
	return walk(book.Asks, size, false)
}

func (w *BookWalker) EstimateSell(book *models.OrderBook, size float64) models.SlippageEstimate {
	if book == nil {
		return empty(size)
	}
	return walk(book.Bids, size, true)
}

func empty(size float64) models.SlippageEstimate {
	return models.SlippageEstimate{
		OrderSize:  size,
		Confidence: models.ConfidenceVeryLow,
		Method:     "book_walk",
	}
}

// walk consumes levels until size is filled. The volume-weighted fill
// price is compared against the best level to produce a relative
// slippage. Unfilled remainder is priced at the worst visible level
// moved 5% further against the trade.
func walk(levels []models.BookLevel, size float64, sellSide bool) models.SlippageEstimate {
	if len(levels) == 0 || size <= 0 {
		return empty(size)
	}

	best := levels[0].Price
	remaining := size
	cost := 0.0
	for _, lvl := range levels {
		if remaining <= 0 {
			break
		}
		take := math.Min(remaining, lvl.Size)
		cost += take * lvl.Price
		remaining -= take
	}

	coverage := (size - remaining) / size
	if remaining > 0 {
		worst := levels[len(levels)-1].Price
		penalized := worst * (1 + unfilledPenalty)
		if sellSide {
			penalized = worst * (1 - unfilledPenalty)
		}
		cost += remaining * penalized
	}

	avg := cost / size
	return models.SlippageEstimate{
		Percentage:     math.Abs(avg-best) / best * 100,
		EffectivePrice: avg,
		BasePrice:      best,
		OrderSize:      size,
		Confidence:     grade(len(levels), coverage),
		Method:         "book_walk",
	}
}

// grade buckets an estimate by visible depth and fill coverage.
func grade(depth int, coverage float64) models.Confidence {
	switch {
	case depth < 5 || coverage < 0.5:
		return models.ConfidenceLow
	case depth < 15 || coverage < 0.8:
		return models.ConfidenceMedium
	case depth < 25 || coverage < 1.0:
		return models.ConfidenceHigh
	default:
		return models.ConfidenceVeryHigh
	}
}

// CombineRoundTrip sums the legs of a buy-then-sell round trip and
// keeps the weaker confidence.
func CombineRoundTrip(buy, sell models.SlippageEstimate) models.SlippageEstimate {
	conf := buy.Confidence
	if sell.Confidence.Value() < conf.Value() {
		conf = sell.Confidence
	}
	return models.SlippageEstimate{
		Percentage: buy.Percentage + sell.Percentage,
		OrderSize:  buy.OrderSize,
		Confidence: conf,
		Method:     "round_trip",
	}
}
