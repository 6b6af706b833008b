// Package kraken streams ticker and book data from the Kraken v1
// websocket API. Kraken frames data messages as JSON arrays and spells
// BTC as XBT; both quirks stay inside this package.
package kraken

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

const (
	defaultWsURL = "wss://ws.kraken.com"
	bookDepth    = 25
)

// Reader subscribes to ticker and book channels and forwards
// normalized events, maintaining the books locally.
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
		mapper:   symbols.NewMapper("kraken"),
		books:    make(map[models.Symbol]*models.OrderBook),
	}
}

func (r *Reader) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return fmt.Errorf("kraken reader already running")
	}
	r.running = true
	r.ctx = ctx
	r.mu.Unlock()

	cfg := r.config.Exchanges.Kraken
	log := r.log.WithComponent("kraken_reader").WithFields(logger.Fields{"operation": "Start"})
	if !cfg.Enabled {
		log.Warn("kraken reader is disabled")
		return fmt.Errorf("kraken reader is disabled")
	}

	log.WithFields(logger.Fields{"symbols": cfg.Symbols}).Info("starting kraken reader")
	r.wg.Add(1)
	go r.stream(cfg.Symbols, wsURL(cfg.URL))
	log.Info("kraken reader started successfully")
	return nil
}

func (r *Reader) Stop() {
	r.mu.Lock()
	r.running = false
	r.mu.Unlock()
	r.log.WithComponent("kraken_reader").Info("stopping kraken reader")
	r.wg.Wait()
	r.log.WithComponent("kraken_reader").Info("kraken reader stopped")
}

func wsURL(configured string) string {
	if configured != "" {
		return configured
	}
	return defaultWsURL
}

func (r *Reader) stream(syms []string, url string) {
	defer r.wg.Done()
	log := r.log.WithComponent("kraken_reader").WithFields(logger.Fields{"worker": "stream"})

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		log.WithError(err).Warn("failed to connect websocket")
		r.channels.SendEvent(r.ctx, models.ErrorEvent("kraken", &models.ConnectionError{Exchange: "kraken", Err: err}))
		return
	}
	defer conn.Close()

	pairs := make([]string, len(syms))
	for i, s := range syms {
		pairs[i] = r.mapper.ToNative(models.Symbol(s))
	}
	subs := []map[string]interface{}{
		{"event": "subscribe", "pair": pairs, "subscription": map[string]interface{}{"name": "ticker"}},
		{"event": "subscribe", "pair": pairs, "subscription": map[string]interface{}{"name": "book", "depth": bookDepth}},
	}
	for _, sub := range subs {
		if err := conn.WriteJSON(sub); err != nil {
			log.WithError(err).Warn("failed to subscribe")
			r.channels.SendEvent(r.ctx, models.ErrorEvent("kraken", &models.ConnectionError{Exchange: "kraken", Err: err}))
			return
		}
	}

	r.channels.SendEvent(r.ctx, models.ConnectedEvent("kraken"))
	log.WithFields(logger.Fields{"pairs": pairs}).Info("subscribed")

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
			r.channels.SendEvent(r.ctx, models.DisconnectedEvent("kraken", code, reason))
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
	frame, err := decodeFrame(msg)
	if err != nil {
		logger.IncrementDecodeFailure("kraken")
		r.log.WithComponent("kraken_reader").WithError(err).Warn("failed to decode message")
		return
	}
	if frame == nil {
		// event frames: heartbeat, systemStatus, subscriptionStatus
		return
	}

	sym := r.mapper.ToCanonical(frame.Pair)
	switch {
	case frame.Ticker != nil:
		t := frame.Ticker.toTicker(sym)
		if t == nil {
			return
		}
		if r.channels.SendEvent(r.ctx, models.TickerEvent(t)) {
			logger.IncrementTickerUpdate("kraken", len(msg))
		}
	case frame.Book != nil:
		b := r.applyBook(sym, frame.Book)
		if b == nil {
			return
		}
		if r.channels.SendEvent(r.ctx, models.BookEvent(b.Clone())) {
			logger.IncrementBookUpdate("kraken", len(msg))
		}
	}
}
