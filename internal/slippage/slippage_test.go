package slippage

import (
	"math"
	"sync"
	"testing"
	"time"

	"tradient/models"
)

func askBook(levels ...models.BookLevel) *models.OrderBook {
	return &models.OrderBook{
		Exchange:  "test",
		Symbol:    "BTC/USDT",
		Asks:      levels,
		Bids:      nil,
		Timestamp: time.Now(),
	}
}

func TestBuyWithinBestLevelHasZeroSlippage(t *testing.T) {
	w := NewBookWalker()
	book := askBook(
		models.BookLevel{Price: 100, Size: 5},
		models.BookLevel{Price: 101, Size: 5},
	)
	est := w.EstimateBuy(book, 2)
	if est.Percentage != 0 {
		t.Fatalf("slippage = %v, want 0", est.Percentage)
	}
	if est.EffectivePrice != 100 {
		t.Fatalf("effective price = %v, want 100", est.EffectivePrice)
	}
}

func TestBuyAcrossLevels(t *testing.T) {
	w := NewBookWalker()
	book := askBook(
		models.BookLevel{Price: 100, Size: 1},
		models.BookLevel{Price: 102, Size: 1},
	)
	// 1 at 100, 1 at 102 -> avg 101, 1% over best
	est := w.EstimateBuy(book, 2)
	want := 1.0
	if math.Abs(est.Percentage-want) > 1e-9 {
		t.Fatalf("slippage = %v, want %v", est.Percentage, want)
	}
}

func TestBuyUnfilledRemainderPenalized(t *testing.T) {
	w := NewBookWalker()
	book := askBook(models.BookLevel{Price: 100, Size: 1})
	// 1 filled at 100, 1 unfilled at 100*1.05 -> avg 102.5 -> 2.5%
	est := w.EstimateBuy(book, 2)
	want := 2.5
	if math.Abs(est.Percentage-want) > 1e-9 {
		t.Fatalf("slippage = %v, want %v", est.Percentage, want)
	}
	if est.Confidence != models.ConfidenceLow {
		t.Fatalf("confidence = %v, want low", est.Confidence)
	}
}

func TestSellUnfilledRemainderPenalizedDownward(t *testing.T) {
	w := NewBookWalker()
	book := &models.OrderBook{
		Bids: []models.BookLevel{{Price: 100, Size: 1}},
	}
	// remainder priced at 95 -> avg 97.5 -> 2.5% below best
	est := w.EstimateSell(book, 2)
	if math.Abs(est.Percentage-2.5) > 1e-9 {
		t.Fatalf("slippage = %v, want 2.5", est.Percentage)
	}
}

func TestSlippageMonotonicInSize(t *testing.T) {
	w := NewBookWalker()
	book := askBook(
		models.BookLevel{Price: 100, Size: 1},
		models.BookLevel{Price: 101, Size: 1},
		models.BookLevel{Price: 103, Size: 1},
		models.BookLevel{Price: 106, Size: 1},
	)
	prev := -1.0
	for _, size := range []float64{0.5, 1, 2, 3, 4, 6} {
		est := w.EstimateBuy(book, size)
		if est.Percentage < prev {
			t.Fatalf("slippage decreased at size %v: %v < %v", size, est.Percentage, prev)
		}
		prev = est.Percentage
	}
}

func TestEmptyBookAndZeroSize(t *testing.T) {
	w := NewBookWalker()
	if est := w.EstimateBuy(nil, 1); est.Confidence != models.ConfidenceVeryLow {
		t.Fatalf("nil book confidence = %v", est.Confidence)
	}
	if est := w.EstimateBuy(askBook(), 1); est.Confidence != models.ConfidenceVeryLow {
		t.Fatalf("empty book confidence = %v", est.Confidence)
	}
	book := askBook(models.BookLevel{Price: 100, Size: 1})
	if est := w.EstimateBuy(book, 0); est.Percentage != 0 {
		t.Fatalf("zero size slippage = %v", est.Percentage)
	}
}

func TestConfidenceGrading(t *testing.T) {
	cases := []struct {
		depth    int
		coverage float64
		want     models.Confidence
	}{
		{3, 1.0, models.ConfidenceLow},
		{30, 0.4, models.ConfidenceLow},
		{10, 1.0, models.ConfidenceMedium},
		{30, 0.7, models.ConfidenceMedium},
		{20, 1.0, models.ConfidenceHigh},
		{30, 0.9, models.ConfidenceHigh},
		{30, 1.0, models.ConfidenceVeryHigh},
	}
	for _, c := range cases {
		if got := grade(c.depth, c.coverage); got != c.want {
			t.Fatalf("grade(%d, %v) = %v, want %v", c.depth, c.coverage, got, c.want)
		}
	}
}

func TestCombineRoundTrip(t *testing.T) {
	buy := models.SlippageEstimate{Percentage: 0.3, Confidence: models.ConfidenceHigh}
	sell := models.SlippageEstimate{Percentage: 0.2, Confidence: models.ConfidenceLow}
	got := CombineRoundTrip(buy, sell)
	if math.Abs(got.Percentage-0.5) > 1e-12 {
		t.Fatalf("combined = %v, want 0.5", got.Percentage)
	}
	if got.Confidence != models.ConfidenceLow {
		t.Fatalf("combined confidence = %v, want low", got.Confidence)
	}
}

func TestVolatilityFactorBounds(t *testing.T) {
	v := NewVolatilityAdjusted(NewBookWalker())
	sym := models.Symbol("BTC/USDT")

	// no history -> neutral
	if f := v.Factor("binance", sym); f != 1.0 {
		t.Fatalf("cold factor = %v, want 1.0", f)
	}

	// flat prices -> avg vol 0 -> neutral
	for i := 0; i < 40; i++ {
		v.Observe("binance", sym, 100, time.Now())
	}
	if f := v.Factor("binance", sym); f != 1.0 {
		t.Fatalf("flat factor = %v, want 1.0", f)
	}

	// calm history, turbulent tail -> factor rises, stays bounded
	price := 100.0
	for i := 0; i < 100; i++ {
		price *= 1.0001
		v.Observe("binance", sym, price, time.Now())
	}
	for i := 0; i < 10; i++ {
		if i%2 == 0 {
			price *= 1.05
		} else {
			price *= 0.95
		}
		v.Observe("binance", sym, price, time.Now())
	}
	f := v.Factor("binance", sym)
	if f <= 1.0 || f > maxVolFactor {
		t.Fatalf("turbulent factor = %v, want (1.0, %v]", f, maxVolFactor)
	}
}

func TestVolatilityAdjustedScalesEstimate(t *testing.T) {
	v := NewVolatilityAdjusted(NewBookWalker())
	sym := models.Symbol("ETH/USDT")
	book := askBook(models.BookLevel{Price: 100, Size: 1})

	raw := NewBookWalker().EstimateBuy(book, 2)
	adj := v.EstimateBuyFor("kraken", sym, book, 2)
	if math.Abs(adj.Percentage-raw.Percentage) > 1e-9 {
		t.Fatalf("cold adjustment changed estimate: %v vs %v", adj.Percentage, raw.Percentage)
	}
	if adj.Method != "book_walk_vol_adjusted" {
		t.Fatalf("method = %q", adj.Method)
	}
}

func TestConcurrentObserveAndFactor(t *testing.T) {
	// Observe runs on the event pump while the scanner reads the
	// factor; both must be safe against each other.
	v := NewVolatilityAdjusted(NewBookWalker())
	sym := models.Symbol("BTC/USDT")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			v.Observe("binance", sym, 100+float64(i%7), time.Now())
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			if f := v.Factor("binance", sym); f < 0.5 || f > 2.0 {
				t.Errorf("factor %v out of bounds", f)
				return
			}
		}
	}()
	wg.Wait()
}
