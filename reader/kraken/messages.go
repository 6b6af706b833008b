package kraken

import (
	"encoding/json"
	"strconv"
	"time"

	"tradient/internal/book"
	"tradient/models"
)

// frame is a decoded v1 data message. Exactly one of Ticker or Book is
// set. Event frames (heartbeat, status) decode to a nil frame.
type frame struct {
	Channel string
	Pair    string
	Ticker  *tickerPayload
	Book    *bookPayload
}

// tickerPayload mirrors Kraken's ticker dictionary: "a"/"b" are
// [price, wholeLotVolume, lotVolume], "c" is [price, lot], "v" is
// [today, last24h].
type tickerPayload struct {
	Ask    []string `json:"a"`
	Bid    []string `json:"b"`
	Close  []string `json:"c"`
	Volume []string `json:"v"`
}

// bookPayload covers both snapshots ("as"/"bs") and updates
// ("a"/"b"). Level entries are [price, volume, timestamp].
type bookPayload struct {
	SnapshotAsks [][]string `json:"as"`
	SnapshotBids [][]string `json:"bs"`
	Asks         [][]string `json:"a"`
	Bids         [][]string `json:"b"`
}

func (p *bookPayload) isSnapshot() bool {
	return len(p.SnapshotAsks) > 0 || len(p.SnapshotBids) > 0
}

// merge folds another payload object from the same frame into this
// one. Kraken sends ask and bid updates as two separate dictionaries
// in a single array frame.
func (p *bookPayload) merge(other *bookPayload) {
	p.SnapshotAsks = append(p.SnapshotAsks, other.SnapshotAsks...)
	p.SnapshotBids = append(p.SnapshotBids, other.SnapshotBids...)
	p.Asks = append(p.Asks, other.Asks...)
	p.Bids = append(p.Bids, other.Bids...)
}

// decodeFrame parses one websocket message. Object frames carry
// lifecycle events and return (nil, nil); array frames carry data:
// [channelID, payload..., channelName, pair].
func decodeFrame(msg []byte) (*frame, error) {
	if len(msg) == 0 {
		return nil, &models.DecodeError{Exchange: "kraken", Payload: string(msg), Err: errEmptyFrame}
	}
	if msg[0] == '{' {
		var evt struct {
			Event string `json:"event"`
		}
		if err := json.Unmarshal(msg, &evt); err != nil {
			return nil, &models.DecodeError{Exchange: "kraken", Payload: string(msg), Err: err}
		}
		return nil, nil
	}

	var parts []json.RawMessage
	if err := json.Unmarshal(msg, &parts); err != nil {
		return nil, &models.DecodeError{Exchange: "kraken", Payload: string(msg), Err: err}
	}
	if len(parts) < 4 {
		return nil, &models.DecodeError{Exchange: "kraken", Payload: string(msg), Err: errShortFrame}
	}

	var channel, pair string
	if err := json.Unmarshal(parts[len(parts)-2], &channel); err != nil {
		return nil, &models.DecodeError{Exchange: "kraken", Payload: string(msg), Err: err}
	}
	if err := json.Unmarshal(parts[len(parts)-1], &pair); err != nil {
		return nil, &models.DecodeError{Exchange: "kraken", Payload: string(msg), Err: err}
	}

	f := &frame{Channel: channel, Pair: pair}
	payloads := parts[1 : len(parts)-2]

	switch {
	case channel == "ticker":
		var t tickerPayload
		if err := json.Unmarshal(payloads[0], &t); err != nil {
			return nil, &models.DecodeError{Exchange: "kraken", Payload: string(msg), Err: err}
		}
		f.Ticker = &t
	default:
		// book channel names carry the depth suffix, e.g. "book-25"
		b := &bookPayload{}
		for _, raw := range payloads {
			var part bookPayload
			if err := json.Unmarshal(raw, &part); err != nil {
				return nil, &models.DecodeError{Exchange: "kraken", Payload: string(msg), Err: err}
			}
			b.merge(&part)
		}
		f.Book = b
	}
	return f, nil
}

var (
	errEmptyFrame = jsonError("empty frame")
	errShortFrame = jsonError("array frame too short")
)

type jsonError string

func (e jsonError) Error() string { return string(e) }

func (p *tickerPayload) toTicker(sym models.Symbol) *models.Ticker {
	if len(p.Ask) == 0 || len(p.Bid) == 0 {
		return nil
	}
	ask, err1 := strconv.ParseFloat(p.Ask[0], 64)
	bid, err2 := strconv.ParseFloat(p.Bid[0], 64)
	if err1 != nil || err2 != nil {
		return nil
	}
	t := &models.Ticker{
		Exchange:  "kraken",
		Symbol:    sym,
		BidPrice:  bid,
		AskPrice:  ask,
		Timestamp: time.Now().UTC(),
	}
	if len(p.Close) > 0 {
		t.LastPrice, _ = strconv.ParseFloat(p.Close[0], 64)
	}
	if len(p.Volume) > 1 {
		baseVol, _ := strconv.ParseFloat(p.Volume[1], 64)
		// liquidity comparisons expect quote volume
		t.Volume24h = baseVol * t.MidPrice()
	}
	return t
}

// applyBook folds a payload into the maintained book for the symbol.
// Snapshots replace the book; updates before a snapshot are dropped.
func (r *Reader) applyBook(sym models.Symbol, p *bookPayload) *models.OrderBook {
	if p.isSnapshot() {
		b := &models.OrderBook{
			Exchange:  "kraken",
			Symbol:    sym,
			Bids:      parseLevels(p.SnapshotBids),
			Asks:      parseLevels(p.SnapshotAsks),
			Timestamp: time.Now().UTC(),
		}
		book.Normalize(b)
		r.books[sym] = b
		return b
	}

	b, ok := r.books[sym]
	if !ok {
		return nil
	}
	b.Bids = book.ApplyDeltas(b.Bids, book.Bid, parseLevels(p.Bids))
	b.Asks = book.ApplyDeltas(b.Asks, book.Ask, parseLevels(p.Asks))
	b.Timestamp = time.Now().UTC()
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
