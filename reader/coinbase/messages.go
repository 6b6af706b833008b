package coinbase

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"tradient/internal/book"
	"tradient/internal/symbols"
	"tradient/models"
)

// decodeMessage routes a raw feed frame to its typed form. Frames the
// reader does not consume (subscriptions, heartbeats) decode to nil.
func decodeMessage(msg []byte) (interface{}, error) {
	var base struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(msg, &base); err != nil {
		return nil, &models.DecodeError{Exchange: "coinbase", Payload: string(msg), Err: err}
	}

	switch base.Type {
	case "ticker":
		var m tickerMessage
		if err := json.Unmarshal(msg, &m); err != nil {
			return nil, &models.DecodeError{Exchange: "coinbase", Payload: string(msg), Err: err}
		}
		return &m, nil
	case "snapshot":
		var m snapshotMessage
		if err := json.Unmarshal(msg, &m); err != nil {
			return nil, &models.DecodeError{Exchange: "coinbase", Payload: string(msg), Err: err}
		}
		return &m, nil
	case "l2update":
		var m l2updateMessage
		if err := json.Unmarshal(msg, &m); err != nil {
			return nil, &models.DecodeError{Exchange: "coinbase", Payload: string(msg), Err: err}
		}
		return &m, nil
	case "error":
		var m struct {
			Message string `json:"message"`
		}
		json.Unmarshal(msg, &m)
		return nil, &models.DecodeError{Exchange: "coinbase", Payload: string(msg), Err: fmt.Errorf("feed error: %s", m.Message)}
	default:
		// subscriptions, heartbeat, status
		return nil, nil
	}
}

type tickerMessage struct {
	ProductID string `json:"product_id"`
	Price     string `json:"price"`
	BestBid   string `json:"best_bid"`
	BestAsk   string `json:"best_ask"`
	Volume24h string `json:"volume_24h"`
	Time      string `json:"time"`
}

func (m *tickerMessage) toTicker(mapper *symbols.Mapper) *models.Ticker {
	bid, err1 := strconv.ParseFloat(m.BestBid, 64)
	ask, err2 := strconv.ParseFloat(m.BestAsk, 64)
	if err1 != nil || err2 != nil {
		return nil
	}
	last, _ := strconv.ParseFloat(m.Price, 64)
	volume, _ := strconv.ParseFloat(m.Volume24h, 64)

	ts := time.Now().UTC()
	if parsed, err := time.Parse(time.RFC3339Nano, m.Time); err == nil {
		ts = parsed
	}
	return &models.Ticker{
		Exchange:  "coinbase",
		Symbol:    mapper.ToCanonical(m.ProductID),
		BidPrice:  bid,
		AskPrice:  ask,
		LastPrice: last,
		Volume24h: volume,
		Timestamp: ts,
	}
}

type snapshotMessage struct {
	ProductID string     `json:"product_id"`
	Bids      [][]string `json:"bids"`
	Asks      [][]string `json:"asks"`
}

func (m *snapshotMessage) toBook(mapper *symbols.Mapper) *models.OrderBook {
	b := &models.OrderBook{
		Exchange:  "coinbase",
		Symbol:    mapper.ToCanonical(m.ProductID),
		Bids:      parseLevels(m.Bids),
		Asks:      parseLevels(m.Asks),
		Timestamp: time.Now().UTC(),
	}
	book.Normalize(b)
	return b
}

type l2updateMessage struct {
	ProductID string     `json:"product_id"`
	Changes   [][]string `json:"changes"`
	Time      string     `json:"time"`
}

// apply mutates the maintained book with the update's side-tagged
// changes. Zero sizes remove levels.
func (m *l2updateMessage) apply(b *models.OrderBook) {
	for _, c := range m.Changes {
		if len(c) < 3 {
			continue
		}
		price, err1 := strconv.ParseFloat(c[1], 64)
		size, err2 := strconv.ParseFloat(c[2], 64)
		if err1 != nil || err2 != nil {
			continue
		}
		switch c[0] {
		case "buy":
			b.Bids = book.ApplyDelta(b.Bids, book.Bid, price, size)
		case "sell":
			b.Asks = book.ApplyDelta(b.Asks, book.Ask, price, size)
		}
	}
	if parsed, err := time.Parse(time.RFC3339Nano, m.Time); err == nil {
		b.Timestamp = parsed
	} else {
		b.Timestamp = time.Now().UTC()
	}
}

func parseLevels(raw [][]string) []models.BookLevel {
	levels := make([]models.BookLevel, 0, len(raw))
	for _, l := range raw {
		if len(l) < 2 {
			continue
		}
		price, err1 := strconv.ParseFloat(l[0], 64)
		size, err2 := strconv.ParseFloat(l[1], 64)
		if err1 != nil || err2 != nil {
			continue
		}
		levels = append(levels, models.BookLevel{Price: price, Size: size})
	}
	return levels
}
