package okx

import (
	"encoding/json"
	"strconv"
	"time"

	"tradient/internal/book"
	"tradient/models"
)

// dataFrame is a v5 data push: {"arg":{...},"action":...,"data":[...]}.
// Event frames (subscribe acks, errors) decode to nil.
type dataFrame struct {
	Arg struct {
		Channel string `json:"channel"`
		InstID  string `json:"instId"`
	} `json:"arg"`
	Action string            `json:"action"`
	Data   []json.RawMessage `json:"data"`
}

type tickerData struct {
	Last      string `json:"last"`
	BidPx     string `json:"bidPx"`
	AskPx     string `json:"askPx"`
	VolCcy24h string `json:"volCcy24h"`
	Ts        string `json:"ts"`
}

type bookData struct {
	Bids [][]string `json:"bids"`
	Asks [][]string `json:"asks"`
	Ts   string     `json:"ts"`
}

func decodeFrame(msg []byte) (*dataFrame, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(msg, &probe); err != nil {
		return nil, &models.DecodeError{Exchange: "okx", Payload: string(msg), Err: err}
	}
	if _, ok := probe["event"]; ok {
		// subscribe/unsubscribe acks and error events
		return nil, nil
	}
	if _, ok := probe["data"]; !ok {
		return nil, nil
	}

	var f dataFrame
	if err := json.Unmarshal(msg, &f); err != nil {
		return nil, &models.DecodeError{Exchange: "okx", Payload: string(msg), Err: err}
	}
	if len(f.Data) == 0 {
		return nil, nil
	}
	return &f, nil
}

func (f *dataFrame) toTicker(sym models.Symbol) *models.Ticker {
	var d tickerData
	if err := json.Unmarshal(f.Data[0], &d); err != nil {
		return nil
	}
	bid, err1 := strconv.ParseFloat(d.BidPx, 64)
	ask, err2 := strconv.ParseFloat(d.AskPx, 64)
	if err1 != nil || err2 != nil {
		return nil
	}
	last, _ := strconv.ParseFloat(d.Last, 64)
	volume, _ := strconv.ParseFloat(d.VolCcy24h, 64)

	return &models.Ticker{
		Exchange:  "okx",
		Symbol:    sym,
		BidPrice:  bid,
		AskPrice:  ask,
		LastPrice: last,
		Volume24h: volume,
		Timestamp: parseMillis(d.Ts),
	}
}

// applyBook folds the frame's book data into the maintained book.
// action snapshot replaces, update applies deltas; an update before
// any snapshot is dropped.
func (r *Reader) applyBook(sym models.Symbol, f *dataFrame) *models.OrderBook {
	var d bookData
	if err := json.Unmarshal(f.Data[0], &d); err != nil {
		return nil
	}
	ts := parseMillis(d.Ts)

	if f.Action == "snapshot" {
		b := &models.OrderBook{
			Exchange:  "okx",
			Symbol:    sym,
			Bids:      parseLevels(d.Bids),
			Asks:      parseLevels(d.Asks),
			Timestamp: ts,
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
	b.Timestamp = ts
	return b
}

// parseMillis converts an epoch-milliseconds string, falling back to
// the current time.
func parseMillis(s string) time.Time {
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC()
	}
	return time.Now().UTC()
}

// OKX book levels are [price, size, liquidatedOrders, orderCount].
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
