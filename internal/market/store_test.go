package market

import (
	"sync"
	"testing"
	"time"

	"tradient/models"
)

func TestStoreLastWriterWins(t *testing.T) {
	s := NewStore()

	first := &models.Ticker{Exchange: "binance", Symbol: "BTC/USDT", BidPrice: 100, AskPrice: 101, Timestamp: time.Now()}
	second := &models.Ticker{Exchange: "binance", Symbol: "BTC/USDT", BidPrice: 102, AskPrice: 103, Timestamp: time.Now()}

	s.UpsertTicker(first)
	s.UpsertTicker(second)

	got, ok := s.Ticker("binance", "BTC/USDT")
	if !ok {
		t.Fatalf("expected ticker")
	}
	if got.BidPrice != 102 {
		t.Fatalf("expected last write to win, got bid %f", got.BidPrice)
	}
}

func TestStoreMissingKey(t *testing.T) {
	s := NewStore()
	if _, ok := s.Ticker("kraken", "BTC/USD"); ok {
		t.Fatalf("expected miss for unknown key")
	}
	if _, ok := s.OrderBook("kraken", "BTC/USD"); ok {
		t.Fatalf("expected miss for unknown key")
	}
}

func TestStoreSymbolTracking(t *testing.T) {
	s := NewStore()
	s.UpsertTicker(&models.Ticker{Exchange: "okx", Symbol: "BTC/USDT"})
	s.UpsertOrderBook(&models.OrderBook{Exchange: "okx", Symbol: "ETH/USDT"})

	syms := s.Symbols("okx")
	if len(syms) != 2 {
		t.Fatalf("expected 2 symbols, got %v", syms)
	}
	if exs := s.Exchanges(); len(exs) != 1 || exs[0] != "okx" {
		t.Fatalf("unexpected exchanges %v", exs)
	}
}

func TestStoreConcurrentAccess(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				s.UpsertOrderBook(&models.OrderBook{
					Exchange: "binance",
					Symbol:   "BTC/USDT",
					Bids:     []models.BookLevel{{Price: float64(100 + n), Size: 1}},
					Asks:     []models.BookLevel{{Price: float64(101 + n), Size: 1}},
				})
				if b, ok := s.OrderBook("binance", "BTC/USDT"); ok {
					// A reader must never observe one side updated
					// without the other.
					if len(b.Bids) != 1 || len(b.Asks) != 1 {
						t.Errorf("partial book observed: %+v", b)
						return
					}
					if b.Asks[0].Price-b.Bids[0].Price != 1 {
						t.Errorf("mismatched sides: %+v", b)
						return
					}
				}
			}
		}(i)
	}
	wg.Wait()
}

func TestIsStale(t *testing.T) {
	if IsStale(time.Now(), time.Minute) {
		t.Fatalf("fresh timestamp reported stale")
	}
	if !IsStale(time.Now().Add(-2*time.Minute), time.Minute) {
		t.Fatalf("old timestamp reported fresh")
	}
}
