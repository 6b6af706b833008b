package models

import "time"

// EventType identifies the kind of stream event a reader emitted.
type EventType string

const (
	EventTicker       EventType = "ticker"
	EventOrderBook    EventType = "orderbook"
	EventConnected    EventType = "connected"
	EventDisconnected EventType = "disconnected"
	EventError        EventType = "error"
)

// Event is the normalized stream event every reader produces. Exactly
// one payload field is set, selected by Type.
type Event struct {
	Type      EventType
	Exchange  string
	Ticker    *Ticker
	Book      *OrderBook
	Code      int    // close code, Disconnected only
	Reason    string // close reason, Disconnected only
	Err       error  // Error only
	Timestamp time.Time
}

// TickerEvent wraps a quote snapshot as a stream event.
func TickerEvent(t *Ticker) Event {
	return Event{Type: EventTicker, Exchange: t.Exchange, Ticker: t, Timestamp: time.Now().UTC()}
}

// BookEvent wraps an order book as a stream event.
func BookEvent(b *OrderBook) Event {
	return Event{Type: EventOrderBook, Exchange: b.Exchange, Book: b, Timestamp: time.Now().UTC()}
}

// ConnectedEvent reports a successfully established stream.
func ConnectedEvent(exchange string) Event {
	return Event{Type: EventConnected, Exchange: exchange, Timestamp: time.Now().UTC()}
}

// DisconnectedEvent reports a closed stream with the transport's code
// and reason. Reconnection is the consumer's concern.
func DisconnectedEvent(exchange string, code int, reason string) Event {
	return Event{Type: EventDisconnected, Exchange: exchange, Code: code, Reason: reason, Timestamp: time.Now().UTC()}
}

// ErrorEvent reports a stream-level failure.
func ErrorEvent(exchange string, err error) Event {
	return Event{Type: EventError, Exchange: exchange, Err: err, Timestamp: time.Now().UTC()}
}
