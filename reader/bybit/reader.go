// Package bybit streams spot tickers and order books over the Bybit
// v5 public websocket, using the official SDK's connection handling.
package bybit

import (
	"context"
	"fmt"
	"sync"

	bybit "github.com/bybit-exchange/bybit.go.api"

	appconfig "tradient/config"
	"tradient/internal/channel"
	"tradient/internal/symbols"
	"tradient/logger"
	"tradient/models"
)

const defaultWsURL = "wss://stream.bybit.com/v5/public/spot"

// Reader subscribes to tickers.<symbol> and orderbook.50.<symbol>
// topics. The SDK owns the websocket lifecycle; the reader only
// decodes messages and maintains books.
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
	booksMu  sync.Mutex
}

func NewReader(cfg *appconfig.Config, ch *channel.Channels) *Reader {
	return &Reader{
		config:   cfg,
		channels: ch,
		wg:       &sync.WaitGroup{},
		log:      logger.GetLogger(),
		mapper:   symbols.NewMapper("bybit"),
		books:    make(map[models.Symbol]*models.OrderBook),
	}
}

func (r *Reader) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return fmt.Errorf("bybit reader already running")
	}
	r.running = true
	r.ctx = ctx
	r.mu.Unlock()

	cfg := r.config.Exchanges.Bybit
	log := r.log.WithComponent("bybit_reader").WithFields(logger.Fields{"operation": "Start"})
	if !cfg.Enabled {
		log.Warn("bybit reader is disabled")
		return fmt.Errorf("bybit reader is disabled")
	}

	log.WithFields(logger.Fields{"symbols": cfg.Symbols}).Info("starting bybit reader")
	r.wg.Add(1)
	go r.stream(cfg.Symbols, wsURL(cfg.URL))
	log.Info("bybit reader started successfully")
	return nil
}

func (r *Reader) Stop() {
	r.mu.Lock()
	r.running = false
	r.mu.Unlock()
	r.log.WithComponent("bybit_reader").Info("stopping bybit reader")
	r.wg.Wait()
	r.log.WithComponent("bybit_reader").Info("bybit reader stopped")
}

func wsURL(configured string) string {
	if configured != "" {
		return configured
	}
	return defaultWsURL
}

func (r *Reader) stream(syms []string, url string) {
	defer r.wg.Done()
	log := r.log.WithComponent("bybit_reader").WithFields(logger.Fields{"worker": "stream"})

	args := make([]string, 0, 2*len(syms))
	for _, s := range syms {
		native := r.mapper.ToNative(models.Symbol(s))
		args = append(args, "tickers."+native, "orderbook.50."+native)
	}

	handler := func(message string) error {
		if r.ctx.Err() != nil {
			return r.ctx.Err()
		}
		r.handleMessage([]byte(message))
		return nil
	}

	ws := bybit.NewBybitPublicWebSocket(url, handler)
	ws.Connect().SendSubscription(args)
	r.channels.SendEvent(r.ctx, models.ConnectedEvent("bybit"))
	log.WithFields(logger.Fields{"topics": len(args)}).Info("subscribed")

	<-r.ctx.Done()
	ws.Disconnect()
}

func (r *Reader) handleMessage(msg []byte) {
	frame, err := decodeFrame(msg)
	if err != nil {
		logger.IncrementDecodeFailure("bybit")
		r.log.WithComponent("bybit_reader").WithError(err).Warn("failed to decode message")
		return
	}
	if frame == nil {
		return
	}

	sym := r.mapper.ToCanonical(frame.symbol())
	switch frame.kind() {
	case topicTicker:
		t := frame.toTicker(sym)
		if t == nil {
			return
		}
		if r.channels.SendEvent(r.ctx, models.TickerEvent(t)) {
			logger.IncrementTickerUpdate("bybit", len(msg))
		}
	case topicOrderbook:
		r.booksMu.Lock()
		b := r.applyBook(sym, frame)
		if b != nil {
			b = b.Clone()
		}
		r.booksMu.Unlock()
		if b == nil {
			return
		}
		if r.channels.SendEvent(r.ctx, models.BookEvent(b)) {
			logger.IncrementBookUpdate("bybit", len(msg))
		}
	}
}
