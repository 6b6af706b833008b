package bybit

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"tradient/internal/book"
	"tradient/models"
)

type topicKind int

const (
	topicUnknown topicKind = iota
	topicTicker
	topicOrderbook
)

// pushFrame is a v5 public stream push:
// {"topic":"tickers.BTCUSDT","type":"snapshot","ts":...,"data":{...}}.
// Operation responses (subscribe acks, pongs) decode to nil.
type pushFrame struct {
	Topic string          `json:"topic"`
	Type  string          `json:"type"`
	Ts    int64           `json:"ts"`
	Data  json.RawMessage `json:"data"`
}

type tickerData struct {
	Symbol      string `json:"symbol"`
	LastPrice   string `json:"lastPrice"`
	Bid1Price   string `json:"bid1Price"`
	Ask1Price   string `json:"ask1Price"`
	Turnover24h string `json:"turnover24h"`
}

type bookData struct {
	Symbol string     `json:"s"`
	Bids   [][]string `json:"b"`
	Asks   [][]string `json:"a"`
}

func decodeFrame(msg []byte) (*pushFrame, error) {
	var f pushFrame
	if err := json.Unmarshal(msg, &f); err != nil {
		return nil, &models.DecodeError{Exchange: "bybit", Payload: string(msg), Err: err}
	}
	if f.Topic == "" || len(f.Data) == 0 {
		// op responses: subscribe acks, pong
		return nil, nil
	}
	return &f, nil
}

func (f *pushFrame) kind() topicKind {
	switch {
	case strings.HasPrefix(f.Topic, "tickers."):
		return topicTicker
	case strings.HasPrefix(f.Topic, "orderbook."):
		return topicOrderbook
	default:
		return topicUnknown
	}
}

// symbol extracts the native symbol from the topic suffix.
func (f *pushFrame) symbol() string {
	i := strings.LastIndexByte(f.Topic, '.')
	if i < 0 {
		return ""
	}
	return f.Topic[i+1:]
}

func (f *pushFrame) timestamp() time.Time {
	if f.Ts > 0 {
		return time.UnixMilli(f.Ts).UTC()
	}
	return time.Now().UTC()
}

func (f *pushFrame) toTicker(sym models.Symbol) *models.Ticker {
	var d tickerData
	if err := json.Unmarshal(f.Data, &d); err != nil {
		return nil
	}
	bid, err1 := strconv.ParseFloat(d.Bid1Price, 64)
	ask, err2 := strconv.ParseFloat(d.Ask1Price, 64)
	if err1 != nil || err2 != nil {
		return nil
	}
	last, _ := strconv.ParseFloat(d.LastPrice, 64)
	turnover, _ := strconv.ParseFloat(d.Turnover24h, 64)

	return &models.Ticker{
		Exchange:  "bybit",
		Symbol:    sym,
		BidPrice:  bid,
		AskPrice:  ask,
		LastPrice: last,
		Volume24h: turnover,
		Timestamp: f.timestamp(),
	}
}

// applyBook folds an orderbook push into the maintained book. Type
// snapshot replaces, delta applies changes; deltas before a snapshot
// are dropped. Caller holds the books lock.
func (r *Reader) applyBook(sym models.Symbol, f *pushFrame) *models.OrderBook {
	var d bookData
	if err := json.Unmarshal(f.Data, &d); err != nil {
		return nil
	}

	if f.Type == "snapshot" {
		b := &models.OrderBook{
			Exchange:  "bybit",
			Symbol:    sym,
			Bids:      parseLevels(d.Bids),
			Asks:      parseLevels(d.Asks),
			Timestamp: f.timestamp(),
		}
		book.Normalize(b)
		r.books[sym] = b
		return b
	}

	b, ok := r.books[sym]
	if !ok {
		return nil
	}
	b.Bids = book.ApplyDeltas(b.Bids, book.Bid, parseLevels(d.Bids))
	b.Asks = book.ApplyDeltas(b.Asks, book.Ask, parseLevels(d.Asks))
	b.Timestamp = f.timestamp()
	return b
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
