// Package market holds the shared market-state store: the latest
// ticker and order book per (exchange, symbol). Readers are the only
// writers, the scanner is the only reader, and every entry swap
// happens under one critical section so a consumer never observes a
// half-updated book.
package market

import (
	"sync"
	"time"

	"tradient/models"
)

type entry struct {
	ticker *models.Ticker
	book   *models.OrderBook
}

// Store keeps last-writer-wins state keyed by (exchange, symbol).
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry
	symbols map[string]map[models.Symbol]struct{}
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		entries: make(map[string]*entry),
		symbols: make(map[string]map[models.Symbol]struct{}),
	}
}

func key(exchange string, symbol models.Symbol) string {
	return exchange + "|" + string(symbol)
}

// UpsertTicker replaces the latest quote for the ticker's key.
func (s *Store) UpsertTicker(t *models.Ticker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.ensure(t.Exchange, t.Symbol)
	e.ticker = t
}

// UpsertOrderBook replaces the latest book for the book's key. Both
// sides swap atomically with respect to readers.
func (s *Store) UpsertOrderBook(b *models.OrderBook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.ensure(b.Exchange, b.Symbol)
	e.book = b
}

func (s *Store) ensure(exchange string, symbol models.Symbol) *entry {
	k := key(exchange, symbol)
	e, ok := s.entries[k]
	if !ok {
		e = &entry{}
		s.entries[k] = e
	}
	set, ok := s.symbols[exchange]
	if !ok {
		set = make(map[models.Symbol]struct{})
		s.symbols[exchange] = set
	}
	set[symbol] = struct{}{}
	return e
}

// Ticker returns the latest quote for the key, or false when none has
// been seen yet.
func (s *Store) Ticker(exchange string, symbol models.Symbol) (*models.Ticker, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key(exchange, symbol)]
	if !ok || e.ticker == nil {
		return nil, false
	}
	return e.ticker, true
}

// OrderBook returns the latest book for the key, or false when none
// has been seen yet.
func (s *Store) OrderBook(exchange string, symbol models.Symbol) (*models.OrderBook, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key(exchange, symbol)]
	if !ok || e.book == nil {
		return nil, false
	}
	return e.book, true
}

// Symbols returns the symbols seen for one exchange.
func (s *Store) Symbols(exchange string) []models.Symbol {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set := s.symbols[exchange]
	out := make([]models.Symbol, 0, len(set))
	for sym := range set {
		out = append(out, sym)
	}
	return out
}

// Exchanges returns every exchange that has reported at least one
// symbol.
func (s *Store) Exchanges() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.symbols))
	for ex := range s.symbols {
		out = append(out, ex)
	}
	return out
}

// IsStale reports whether a timestamp is older than maxAge, measured
// against the wall clock at read time. A read during a feed outage is
// correctly reported stale rather than silently served old.
func IsStale(ts time.Time, maxAge time.Duration) bool {
	return time.Since(ts) > maxAge
}
