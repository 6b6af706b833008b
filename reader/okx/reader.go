// Package okx streams tickers and order books from the OKX v5 public
// websocket.
package okx

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	appconfig "tradient/config"
	"tradient/internal/channel"
	"tradient/internal/symbols"
	"tradient/logger"
	"tradient/models"
)

const (
	defaultWsURL = "wss://ws.okx.com:8443/ws/v5/public"

	// OKX closes idle connections after 30 seconds of silence; the
	// client keeps them alive by writing "ping" and expects traffic
	// (data or "pong") within the read deadline.
	pingInterval = 20 * time.Second
	readDeadline = 40 * time.Second
)

// Reader subscribes to the tickers and books channels for the
// configured symbols and forwards normalized events.
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
		mapper:   symbols.NewMapper("okx"),
		books:    make(map[models.Symbol]*models.OrderBook),
	}
}

func (r *Reader) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return fmt.Errorf("okx reader already running")
	}
	r.running = true
	r.ctx = ctx
	r.mu.Unlock()

	cfg := r.config.Exchanges.Okx
	log := r.log.WithComponent("okx_reader").WithFields(logger.Fields{"operation": "Start"})
	if !cfg.Enabled {
		log.Warn("okx reader is disabled")
		return fmt.Errorf("okx reader is disabled")
	}

	log.WithFields(logger.Fields{"symbols": cfg.Symbols}).Info("starting okx reader")
	r.wg.Add(1)
	go r.stream(cfg.Symbols, wsURL(cfg.URL))
	log.Info("okx reader started successfully")
	return nil
}

func (r *Reader) Stop() {
	r.mu.Lock()
	r.running = false
	r.mu.Unlock()
	r.log.WithComponent("okx_reader").Info("stopping okx reader")
	r.wg.Wait()
	r.log.WithComponent("okx_reader").Info("okx reader stopped")
}

func wsURL(configured string) string {
	if configured != "" {
		return configured
	}
	return defaultWsURL
}

func (r *Reader) stream(syms []string, url string) {
	defer r.wg.Done()
	log := r.log.WithComponent("okx_reader").WithFields(logger.Fields{"worker": "stream"})

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		log.WithError(err).Warn("failed to connect websocket")
		r.channels.SendEvent(r.ctx, models.ErrorEvent("okx", &models.ConnectionError{Exchange: "okx", Err: err}))
		return
	}
	defer conn.Close()

	args := make([]map[string]string, 0, 2*len(syms))
	for _, s := range syms {
		instID := r.mapper.ToNative(models.Symbol(s))
		args = append(args,
			map[string]string{"channel": "tickers", "instId": instID},
			map[string]string{"channel": "books", "instId": instID},
		)
	}
	sub := map[string]interface{}{"op": "subscribe", "args": args}
	if err := conn.WriteJSON(sub); err != nil {
		log.WithError(err).Warn("failed to subscribe")
		r.channels.SendEvent(r.ctx, models.ErrorEvent("okx", &models.ConnectionError{Exchange: "okx", Err: err}))
		return
	}

	r.channels.SendEvent(r.ctx, models.ConnectedEvent("okx"))
	log.WithFields(logger.Fields{"subscriptions": len(args)}).Info("subscribed")

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-r.ctx.Done():
				conn.Close()
				return
			case <-ticker.C:
				conn.WriteMessage(websocket.TextMessage, []byte("ping"))
			}
		}
	}()

	for {
		conn.SetReadDeadline(time.Now().Add(readDeadline))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if r.ctx.Err() != nil {
				return
			}
			log.WithError(err).Warn("websocket read error")
			code, reason := closeInfo(err)
			r.channels.SendEvent(r.ctx, models.DisconnectedEvent("okx", code, reason))
			return
		}
		if string(msg) == "pong" {
			continue
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
		logger.IncrementDecodeFailure("okx")
		r.log.WithComponent("okx_reader").WithError(err).Warn("failed to decode message")
		return
	}
	if frame == nil {
		return
	}

	sym := r.mapper.ToCanonical(frame.Arg.InstID)
	switch frame.Arg.Channel {
	case "tickers":
		t := frame.toTicker(sym)
		if t == nil {
			return
		}
		if r.channels.SendEvent(r.ctx, models.TickerEvent(t)) {
			logger.IncrementTickerUpdate("okx", len(msg))
		}
	case "books":
		b := r.applyBook(sym, frame)
		if b == nil {
			return
		}
		if r.channels.SendEvent(r.ctx, models.BookEvent(b.Clone())) {
			logger.IncrementBookUpdate("okx", len(msg))
		}
	}
}
