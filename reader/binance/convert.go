package binance

import (
	"strconv"
	"time"

	binance "github.com/adshao/go-binance/v2"

	"tradient/internal/book"
	"tradient/internal/symbols"
	"tradient/models"
)

// statToTicker converts a 24h ticker stream event. Returns nil when
// the quote fields do not parse.
func statToTicker(ev *binance.WsMarketStatEvent, mapper *symbols.Mapper) *models.Ticker {
	bid, err1 := strconv.ParseFloat(ev.BidPrice, 64)
	ask, err2 := strconv.ParseFloat(ev.AskPrice, 64)
	if err1 != nil || err2 != nil {
		return nil
	}
	last, _ := strconv.ParseFloat(ev.LastPrice, 64)
	quoteVolume, _ := strconv.ParseFloat(ev.QuoteVolume, 64)

	return &models.Ticker{
		Exchange:  "binance",
		Symbol:    mapper.ToCanonical(ev.Symbol),
		BidPrice:  bid,
		AskPrice:  ask,
		LastPrice: last,
		Volume24h: quoteVolume,
		Timestamp: time.UnixMilli(ev.Time).UTC(),
	}
}

// bookTickerToBook synthesizes a single-level book from a best-quote
// event.
func bookTickerToBook(ev *binance.WsBookTickerEvent, mapper *symbols.Mapper) *models.OrderBook {
	bidPrice, err1 := strconv.ParseFloat(ev.BestBidPrice, 64)
	askPrice, err2 := strconv.ParseFloat(ev.BestAskPrice, 64)
	if err1 != nil || err2 != nil {
		return nil
	}
	bidQty, _ := strconv.ParseFloat(ev.BestBidQty, 64)
	askQty, _ := strconv.ParseFloat(ev.BestAskQty, 64)

	return book.FromTopOfBook("binance", mapper.ToCanonical(ev.Symbol), bidPrice, bidQty, askPrice, askQty, time.Now().UTC())
}

// snapshotToBook normalizes a REST depth response.
func snapshotToBook(symbol models.Symbol, resp *binance.DepthResponse) *models.OrderBook {
	b := &models.OrderBook{
		Exchange:  "binance",
		Symbol:    symbol,
		Timestamp: time.Now().UTC(),
	}
	for _, lvl := range resp.Bids {
		price, qty, err := lvl.Parse()
		if err != nil {
			continue
		}
		b.Bids = append(b.Bids, models.BookLevel{Price: price, Size: qty})
	}
	for _, lvl := range resp.Asks {
		price, qty, err := lvl.Parse()
		if err != nil {
			continue
		}
		b.Asks = append(b.Asks, models.BookLevel{Price: price, Size: qty})
	}
	book.Normalize(b)
	return b
}
