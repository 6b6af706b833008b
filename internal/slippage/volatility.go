package slippage

import (
	"math"
	"sync"
	"time"

	"tradient/models"
)

// priceWindow keeps a bounded history of mid prices for one market.
type priceWindow struct {
	samples []float64
	max     int
}

func (w *priceWindow) add(p float64) {
	w.samples = append(w.samples, p)
	if len(w.samples) > w.max {
		w.samples = w.samples[len(w.samples)-w.max:]
	}
}

// realizedVol is the standard deviation of simple returns over the
// last n samples. Returns 0 when the window is too short.
func (w *priceWindow) realizedVol(n int) float64 {
	s := w.samples
	if n < len(s) {
		s = s[len(s)-n:]
	}
	if len(s) < 2 {
		return 0
	}
	returns := make([]float64, 0, len(s)-1)
	for i := 1; i < len(s); i++ {
		if s[i-1] != 0 {
			returns = append(returns, (s[i]-s[i-1])/s[i-1])
		}
	}
	if len(returns) == 0 {
		return 0
	}
	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))
	variance := 0.0
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	return math.Sqrt(variance / float64(len(returns)))
}

// recentWindow is how many trailing samples count as "recent" when
// comparing short-term volatility against the whole window.
const (
	recentWindow = 10
	maxSamples   = 120

	minVolFactor = 0.5
	maxVolFactor = 2.0
)

// VolatilityAdjusted wraps an estimator and scales its output by how
// agitated the market currently is relative to its own recent
// history. Calm markets shrink the estimate toward half, turbulent
// ones double it.
type VolatilityAdjusted struct {
	inner Estimator

	mu      sync.Mutex
	windows map[string]*priceWindow
}

func NewVolatilityAdjusted(inner Estimator) *VolatilityAdjusted {
	return &VolatilityAdjusted{
		inner:   inner,
		windows: make(map[string]*priceWindow),
	}
}

// Observe records a mid-price sample for the market. Callers feed
// this from the ticker stream.
func (v *VolatilityAdjusted) Observe(exchange string, symbol models.Symbol, mid float64, _ time.Time) {
	if mid <= 0 {
		return
	}
	key := exchange + "|" + string(symbol)
	v.mu.Lock()
	w, ok := v.windows[key]
	if !ok {
		w = &priceWindow{max: maxSamples}
		v.windows[key] = w
	}
	w.add(mid)
	v.mu.Unlock()
}

// Factor maps the ratio of recent to average volatility through a
// sigmoid bounded to [0.5, 2.0]. A ratio of 1 gives roughly 1.25;
// markets with no history get a neutral 1.0.
func (v *VolatilityAdjusted) Factor(exchange string, symbol models.Symbol) float64 {
	key := exchange + "|" + string(symbol)
	v.mu.Lock()
	w, ok := v.windows[key]
	if !ok {
		v.mu.Unlock()
		return 1.0
	}
	// Observe appends to the same window, so the reads stay under
	// the lock too.
	recent := w.realizedVol(recentWindow)
	avg := w.realizedVol(len(w.samples))
	v.mu.Unlock()
	if avg == 0 {
		return 1.0
	}
	ratio := recent / avg
	f := 0.5 + 1.5/(1+math.Exp(-2*(ratio-1)))
	return math.Max(minVolFactor, math.Min(maxVolFactor, f))
}

func (v *VolatilityAdjusted) adjust(exchange string, symbol models.Symbol, est models.SlippageEstimate) models.SlippageEstimate {
	f := v.Factor(exchange, symbol)
	est.Percentage *= f
	est.Method = "book_walk_vol_adjusted"
	return est
}

// EstimateBuyFor applies the market's volatility factor on top of the
// inner book walk.
func (v *VolatilityAdjusted) EstimateBuyFor(exchange string, symbol models.Symbol, book *models.OrderBook, size float64) models.SlippageEstimate {
	return v.adjust(exchange, symbol, v.inner.EstimateBuy(book, size))
}

func (v *VolatilityAdjusted) EstimateSellFor(exchange string, symbol models.Symbol, book *models.OrderBook, size float64) models.SlippageEstimate {
	return v.adjust(exchange, symbol, v.inner.EstimateSell(book, size))
}
