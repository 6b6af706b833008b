package scanner

import (
	"context"
	"math"
	"testing"
	"time"

	"tradient/internal/channel"
	"tradient/internal/fees"
	"tradient/internal/market"
	"tradient/internal/risk"
	"tradient/internal/slippage"
	"tradient/models"
)

func newTestScanner(t *testing.T, cfg Config, feeModel *fees.Model) (*Scanner, *market.Store) {
	t.Helper()
	if cfg.Interval == 0 {
		cfg.Interval = time.Second
	}
	if cfg.MaxDataAge == 0 {
		cfg.MaxDataAge = 5 * time.Second
	}
	if cfg.TradeSize == 0 {
		cfg.TradeSize = 1000
	}
	store := market.NewStore()
	slip := slippage.NewVolatilityAdjusted(slippage.NewBookWalker())
	sizer := risk.NewSizer(10_000, 0.1)
	ch := channel.NewChannels(16, 4)
	return New(cfg, store, feeModel, slip, sizer, ch), store
}

// freeFees zeroes out the fallback schedule for synthetic venues.
func freeFees(exchanges ...string) *fees.Model {
	m := fees.NewModel()
	for _, ex := range exchanges {
		m.RegisterDiscount(ex, true, 1)
		m.RegisterDiscount(ex, false, 1)
	}
	return m
}

func tick(exchange string, symbol models.Symbol, bid, ask float64) *models.Ticker {
	return &models.Ticker{
		Exchange:  exchange,
		Symbol:    symbol,
		BidPrice:  bid,
		AskPrice:  ask,
		LastPrice: (bid + ask) / 2,
		Volume24h: 50_000_000,
		Timestamp: time.Now(),
	}
}

func TestSpreadAboveThresholdDetected(t *testing.T) {
	s, store := newTestScanner(t, Config{MinProfitPct: 0.2}, freeFees("alpha", "beta"))
	sym := models.Symbol("BTC/USDT")

	// 0.3% gross spread with no fees
	store.UpsertTicker(tick("alpha", sym, 99.9, 100.0))
	store.UpsertTicker(tick("beta", sym, 100.3, 100.4))

	ops := s.ScanOnce(context.Background())
	if len(ops) != 1 {
		t.Fatalf("got %d opportunities, want 1", len(ops))
	}
	op := ops[0]
	if op.BuyExchange != "alpha" || op.SellExchange != "beta" {
		t.Fatalf("direction %s->%s, want alpha->beta", op.BuyExchange, op.SellExchange)
	}
	if math.Abs(op.NetProfitPct-0.3) > 1e-9 {
		t.Fatalf("net profit = %v, want 0.3", op.NetProfitPct)
	}
}

func TestFlatMarketProducesNothing(t *testing.T) {
	s, store := newTestScanner(t, Config{MinProfitPct: 0.2}, freeFees("alpha", "beta"))
	sym := models.Symbol("ETH/USDT")

	store.UpsertTicker(tick("alpha", sym, 99.99, 100.0))
	store.UpsertTicker(tick("beta", sym, 99.99, 100.0))

	if ops := s.ScanOnce(context.Background()); len(ops) != 0 {
		t.Fatalf("got %d opportunities, want 0", len(ops))
	}
}

func TestNetProfitAfterRealFees(t *testing.T) {
	// binance and bybit both charge 0.10% taker at the base tier.
	// Buy at 100.0 on binance, sell at 100.4 on bybit:
	// (100.4*0.999 - 100*1.001) / (100*1.001) * 100 = 0.1994%
	sym := models.Symbol("BTC/USDT")

	s, store := newTestScanner(t, Config{MinProfitPct: 0.1}, fees.NewModel())
	store.UpsertTicker(tick("binance", sym, 99.8, 100.0))
	store.UpsertTicker(tick("bybit", sym, 100.4, 100.6))

	ops := s.ScanOnce(context.Background())
	if len(ops) != 1 {
		t.Fatalf("got %d opportunities, want 1", len(ops))
	}
	if math.Abs(ops[0].NetProfitPct-0.1994) > 0.001 {
		t.Fatalf("net profit = %v, want ~0.1994", ops[0].NetProfitPct)
	}
	if ops[0].BuyFeePct != 0.1 || ops[0].SellFeePct != 0.1 {
		t.Fatalf("fees = %v/%v, want 0.1/0.1", ops[0].BuyFeePct, ops[0].SellFeePct)
	}

	// same market against a tighter threshold
	strict, store2 := newTestScanner(t, Config{MinProfitPct: 0.25}, fees.NewModel())
	store2.UpsertTicker(tick("binance", sym, 99.8, 100.0))
	store2.UpsertTicker(tick("bybit", sym, 100.4, 100.6))
	if ops := strict.ScanOnce(context.Background()); len(ops) != 0 {
		t.Fatalf("strict threshold let %d opportunities through", len(ops))
	}
}

func TestStaleQuotesSkipped(t *testing.T) {
	s, store := newTestScanner(t, Config{MinProfitPct: 0.1, MaxDataAge: time.Second}, freeFees("alpha", "beta"))
	sym := models.Symbol("BTC/USDT")

	old := tick("alpha", sym, 99.9, 100.0)
	old.Timestamp = time.Now().Add(-10 * time.Second)
	store.UpsertTicker(old)
	store.UpsertTicker(tick("beta", sym, 101.0, 101.1))

	if ops := s.ScanOnce(context.Background()); len(ops) != 0 {
		t.Fatalf("stale quote produced %d opportunities", len(ops))
	}
}

func TestSingleVenueSymbolIgnored(t *testing.T) {
	s, store := newTestScanner(t, Config{MinProfitPct: 0.0}, freeFees("alpha"))
	store.UpsertTicker(tick("alpha", "SOL/USDT", 99.9, 100.0))

	if ops := s.ScanOnce(context.Background()); len(ops) != 0 {
		t.Fatalf("single-venue symbol produced %d opportunities", len(ops))
	}
}

func TestOpportunitiesRankedByNetProfit(t *testing.T) {
	s, store := newTestScanner(t, Config{MinProfitPct: 0.1}, freeFees("alpha", "beta"))

	store.UpsertTicker(tick("alpha", "BTC/USDT", 99.9, 100.0))
	store.UpsertTicker(tick("beta", "BTC/USDT", 100.3, 100.4))
	store.UpsertTicker(tick("alpha", "ETH/USDT", 99.9, 100.0))
	store.UpsertTicker(tick("beta", "ETH/USDT", 101.0, 101.1))

	ops := s.ScanOnce(context.Background())
	if len(ops) != 2 {
		t.Fatalf("got %d opportunities, want 2", len(ops))
	}
	if ops[0].Symbol != "ETH/USDT" {
		t.Fatalf("first ranked = %s, want ETH/USDT", ops[0].Symbol)
	}
	if ops[0].NetProfitPct < ops[1].NetProfitPct {
		t.Fatalf("ranking not descending: %v < %v", ops[0].NetProfitPct, ops[1].NetProfitPct)
	}
}

func TestBookSlippageReducesNetProfit(t *testing.T) {
	sym := models.Symbol("BTC/USDT")
	cfg := Config{MinProfitPct: 0.0, TradeSize: 200}

	thin, thinStore := newTestScanner(t, cfg, freeFees("alpha", "beta"))
	thinStore.UpsertTicker(tick("alpha", sym, 99.9, 100.0))
	thinStore.UpsertTicker(tick("beta", sym, 100.5, 100.6))
	// half the 2-unit trade walks into the second level on each leg
	thinStore.UpsertOrderBook(&models.OrderBook{
		Exchange: "alpha", Symbol: sym,
		Asks:      []models.BookLevel{{Price: 100.0, Size: 1}, {Price: 100.2, Size: 5}},
		Bids:      []models.BookLevel{{Price: 99.9, Size: 5}},
		Timestamp: time.Now(),
	})
	thinStore.UpsertOrderBook(&models.OrderBook{
		Exchange: "beta", Symbol: sym,
		Asks:      []models.BookLevel{{Price: 100.6, Size: 5}},
		Bids:      []models.BookLevel{{Price: 100.5, Size: 1}, {Price: 100.3, Size: 5}},
		Timestamp: time.Now(),
	})

	deep, deepStore := newTestScanner(t, cfg, freeFees("alpha", "beta"))
	deepStore.UpsertTicker(tick("alpha", sym, 99.9, 100.0))
	deepStore.UpsertTicker(tick("beta", sym, 100.5, 100.6))

	thinOps := thin.ScanOnce(context.Background())
	deepOps := deep.ScanOnce(context.Background())
	if len(thinOps) == 0 || len(deepOps) == 0 {
		t.Fatalf("expected opportunities in both setups: thin %d, deep %d", len(thinOps), len(deepOps))
	}
	if thinOps[0].NetProfitPct >= deepOps[0].NetProfitPct {
		t.Fatalf("thin book should cost more: %v >= %v", thinOps[0].NetProfitPct, deepOps[0].NetProfitPct)
	}
	if thinOps[0].SlippagePct <= 0 {
		t.Fatalf("thin book slippage = %v, want > 0", thinOps[0].SlippagePct)
	}
}

func TestRunEmitsBatches(t *testing.T) {
	sym := models.Symbol("BTC/USDT")
	cfg := Config{Interval: 20 * time.Millisecond, MinProfitPct: 0.1, MaxDataAge: time.Minute}
	s, store := newTestScanner(t, cfg, freeFees("alpha", "beta"))

	store.UpsertTicker(tick("alpha", sym, 99.9, 100.0))
	store.UpsertTicker(tick("beta", sym, 100.3, 100.4))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	select {
	case batch := <-s.ch.Opportunities:
		if len(batch) == 0 {
			t.Fatalf("empty batch emitted")
		}
	case <-time.After(time.Second):
		t.Fatalf("no batch within a second")
	}
	cancel()
	<-done
}

func TestMakerTakerClassification(t *testing.T) {
	quote := &models.Ticker{BidPrice: 99, AskPrice: 101}

	if !isMakerBuy(100, quote) {
		t.Fatal("buy under the best ask should rest as maker")
	}
	if isMakerBuy(101, quote) || isMakerBuy(102, quote) {
		t.Fatal("buy at or through the best ask should pay taker")
	}
	if !isMakerSell(100, quote) {
		t.Fatal("sell over the best bid should rest as maker")
	}
	if isMakerSell(99, quote) || isMakerSell(98, quote) {
		t.Fatal("sell at or through the best bid should pay taker")
	}
}

func TestDustPositionDiscarded(t *testing.T) {
	// 20 capital at 10% caps every position under the 10-unit floor,
	// so sizing rounds to zero and the candidate must not surface
	// even though it clears the profit threshold.
	cfg := Config{Interval: time.Second, MaxDataAge: 5 * time.Second, TradeSize: 1000, MinProfitPct: 0.2}
	store := market.NewStore()
	slip := slippage.NewVolatilityAdjusted(slippage.NewBookWalker())
	s := New(cfg, store, freeFees("alpha", "beta"), slip, risk.NewSizer(20, 0.1), channel.NewChannels(16, 4))

	sym := models.Symbol("BTC/USDT")
	store.UpsertTicker(tick("alpha", sym, 99.9, 100.0))
	store.UpsertTicker(tick("beta", sym, 100.4, 100.5))

	if ops := s.ScanOnce(context.Background()); len(ops) != 0 {
		t.Fatalf("got %d opportunities sized to dust, want 0", len(ops))
	}
}
