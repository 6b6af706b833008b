// Package coinbase streams ticker and level2 market data from the
// Coinbase Exchange websocket feed.
package coinbase

import (
	"context"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"

	appconfig "tradient/config"
	"tradient/internal/channel"
	"tradient/internal/symbols"
	"tradient/logger"
	"tradient/models"
)

const defaultWsURL = "wss://ws-feed.exchange.coinbase.com"

// Reader subscribes to the ticker and level2 channels for the
// configured symbols and forwards normalized events. It maintains the
// level2 books locally; l2update messages arriving before the
// snapshot are discarded.
type Reader struct {
	config   *appconfig.Config
	channels *channel.Channels
	ctx      context.Context
	wg       *sync.WaitGroup
	mu       sync.RWMutex
	running  bool
	log      *logger.Log
	mapper   *symbols.Mapper
	books    map[models.Symbol]*models.OrderBook
}

func NewReader(cfg *appconfig.Config, ch *channel.Channels) *Reader {
	return &Reader{
		config:   cfg,
		channels: ch,
		wg:       &sync.WaitGroup{},
		log:      logger.GetLogger(),
		mapper:   symbols.NewMapper("coinbase"),
		books:    make(map[models.Symbol]*models.OrderBook),
	}
}

// Start connects and subscribes. The stream goroutine runs until the
// context is cancelled or the connection fails; reconnecting is the
// caller's concern, signalled by a Disconnected event.
func (r *Reader) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return fmt.Errorf("coinbase reader already running")
	}
	r.running = true
	r.ctx = ctx
	r.mu.Unlock()

	cfg := r.config.Exchanges.Coinbase
	log := r.log.WithComponent("coinbase_reader").WithFields(logger.Fields{"operation": "Start"})
	if !cfg.Enabled {
		log.Warn("coinbase reader is disabled")
		return fmt.Errorf("coinbase reader is disabled")
	}

	log.WithFields(logger.Fields{"symbols": cfg.Symbols}).Info("starting coinbase reader")
	r.wg.Add(1)
	go r.stream(cfg.Symbols, wsURL(cfg.URL))
	log.Info("coinbase reader started successfully")
	return nil
}

// Stop waits for the stream goroutine to finish.
func (r *Reader) Stop() {
	r.mu.Lock()
	r.running = false
	r.mu.Unlock()
	r.log.WithComponent("coinbase_reader").Info("stopping coinbase reader")
	r.wg.Wait()
	r.log.WithComponent("coinbase_reader").Info("coinbase reader stopped")
}

func wsURL(configured string) string {
	if configured != "" {
		return configured
	}
	return defaultWsURL
}

func (r *Reader) stream(syms []string, url string) {
	defer r.wg.Done()
	log := r.log.WithComponent("coinbase_reader").WithFields(logger.Fields{"worker": "stream"})

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		log.WithError(err).Warn("failed to connect websocket")
		r.channels.SendEvent(r.ctx, models.ErrorEvent("coinbase", &models.ConnectionError{Exchange: "coinbase", Err: err}))
		return
	}
	defer conn.Close()

	productIDs := make([]string, len(syms))
	for i, s := range syms {
		productIDs[i] = r.mapper.ToNative(models.Symbol(s))
	}
	sub := map[string]interface{}{
		"type":        "subscribe",
		"product_ids": productIDs,
		"channels":    []string{"ticker", "level2"},
	}
	if err := conn.WriteJSON(sub); err != nil {
		log.WithError(err).Warn("failed to subscribe")
		r.channels.SendEvent(r.ctx, models.ErrorEvent("coinbase", &models.ConnectionError{Exchange: "coinbase", Err: err}))
		return
	}

	r.channels.SendEvent(r.ctx, models.ConnectedEvent("coinbase"))
	log.WithFields(logger.Fields{"products": productIDs}).Info("subscribed")

	go func() {
		<-r.ctx.Done()
		conn.Close()
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if r.ctx.Err() != nil {
				return
			}
			log.WithError(err).Warn("websocket read error")
			code, reason := closeInfo(err)
			r.channels.SendEvent(r.ctx, models.DisconnectedEvent("coinbase", code, reason))
			return
		}
		r.handleMessage(msg)
	}
}

func closeInfo(err error) (int, string) {
	if ce, ok := err.(*websocket.CloseError); ok {
		return ce.Code, ce.Text
	}
	return websocket.CloseAbnormalClosure, err.Error()
}

func (r *Reader) handleMessage(msg []byte) {
	ev, err := decodeMessage(msg)
	if err != nil {
		logger.IncrementDecodeFailure("coinbase")
		r.log.WithComponent("coinbase_reader").WithError(err).Warn("failed to decode message")
		return
	}

	switch m := ev.(type) {
	case *tickerMessage:
		t := m.toTicker(r.mapper)
		if t == nil {
			return
		}
		if r.channels.SendEvent(r.ctx, models.TickerEvent(t)) {
			logger.IncrementTickerUpdate("coinbase", len(msg))
		}
	case *snapshotMessage:
		b := m.toBook(r.mapper)
		if b == nil {
			return
		}
		r.books[b.Symbol] = b
		r.emitBook(b, len(msg))
	case *l2updateMessage:
		sym := r.mapper.ToCanonical(m.ProductID)
		current, ok := r.books[sym]
		if !ok {
			// deltas before the snapshot carry no base state
			return
		}
		m.apply(current)
		r.emitBook(current, len(msg))
	}
}

func (r *Reader) emitBook(b *models.OrderBook, size int) {
	if r.channels.SendEvent(r.ctx, models.BookEvent(b.Clone())) {
		logger.IncrementBookUpdate("coinbase", size)
	}
}
