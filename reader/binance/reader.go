// Package binance streams market data through the official spot
// websocket streams and seeds order books over REST. Unlike the raw
// websocket readers this one rides the go-binance SDK.
package binance

import (
	"context"
	"fmt"
	"sync"

	binance "github.com/adshao/go-binance/v2"
	"golang.org/x/time/rate"

	appconfig "tradient/config"
	"tradient/internal/channel"
	"tradient/internal/symbols"
	"tradient/logger"
	"tradient/models"
)

// Reader consumes the @ticker stream for quotes and the @bookTicker
// stream for best quotes, synthesizing single-level books from the
// latter. A REST depth snapshot seeds each book before the streams
// take over; REST calls are paced by a limiter.
type Reader struct {
	config   *appconfig.Config
	client   *binance.Client
	channels *channel.Channels
	ctx      context.Context
	wg       *sync.WaitGroup
	mu       sync.RWMutex
	running  bool
	log      *logger.Log
	mapper   *symbols.Mapper
	limiter  *rate.Limiter
}

func NewReader(cfg *appconfig.Config, ch *channel.Channels) *Reader {
	rps := cfg.Exchanges.Binance.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}
	return &Reader{
		config:   cfg,
		client:   binance.NewClient("", ""),
		channels: ch,
		wg:       &sync.WaitGroup{},
		log:      logger.GetLogger(),
		mapper:   symbols.NewMapper("binance"),
		limiter:  rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// FetchPairs loads the exchange catalog and registers every actively
// trading pair with the symbol mapper.
func (r *Reader) FetchPairs(ctx context.Context) ([]models.Symbol, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	info, err := r.client.NewExchangeInfoService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch exchange info: %w", err)
	}
	var pairs []models.Symbol
	for _, s := range info.Symbols {
		if s.Status != "TRADING" {
			continue
		}
		canonical := models.NewSymbol(s.BaseAsset, s.QuoteAsset)
		r.mapper.Register(canonical, s.Symbol)
		pairs = append(pairs, canonical)
	}
	return pairs, nil
}

// FetchSnapshot fetches a depth snapshot over REST and returns the
// normalized book.
func (r *Reader) FetchSnapshot(ctx context.Context, symbol models.Symbol) (*models.OrderBook, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	depth := r.config.Exchanges.Binance.SnapshotDepth
	if depth <= 0 {
		depth = 50
	}
	resp, err := r.client.NewDepthService().
		Symbol(r.mapper.ToNative(symbol)).
		Limit(depth).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch depth snapshot for %s: %w", symbol, err)
	}
	return snapshotToBook(symbol, resp), nil
}

func (r *Reader) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return fmt.Errorf("binance reader already running")
	}
	r.running = true
	r.ctx = ctx
	r.mu.Unlock()

	cfg := r.config.Exchanges.Binance
	log := r.log.WithComponent("binance_reader").WithFields(logger.Fields{"operation": "Start"})
	if !cfg.Enabled {
		log.Warn("binance reader is disabled")
		return fmt.Errorf("binance reader is disabled")
	}

	natives := make([]string, len(cfg.Symbols))
	for i, s := range cfg.Symbols {
		natives[i] = r.mapper.ToNative(models.Symbol(s))
	}

	log.WithFields(logger.Fields{"symbols": cfg.Symbols}).Info("starting binance reader")

	for _, s := range cfg.Symbols {
		sym := models.Symbol(s)
		if b, err := r.FetchSnapshot(ctx, sym); err == nil {
			if r.channels.SendEvent(ctx, models.BookEvent(b)) {
				logger.IncrementBookUpdate("binance", len(b.Bids)+len(b.Asks))
			}
		} else {
			log.WithError(err).WithFields(logger.Fields{"symbol": s}).Warn("failed to seed book snapshot")
		}
	}

	if err := r.serveTickers(natives); err != nil {
		return err
	}
	if err := r.serveBookTickers(natives); err != nil {
		return err
	}

	r.channels.SendEvent(ctx, models.ConnectedEvent("binance"))
	log.Info("binance reader started successfully")
	return nil
}

func (r *Reader) serveTickers(natives []string) error {
	log := r.log.WithComponent("binance_reader").WithFields(logger.Fields{"worker": "ticker_stream"})

	handler := func(event *binance.WsMarketStatEvent) {
		t := statToTicker(event, r.mapper)
		if t == nil {
			logger.IncrementDecodeFailure("binance")
			return
		}
		if r.channels.SendEvent(r.ctx, models.TickerEvent(t)) {
			logger.IncrementTickerUpdate("binance", 0)
		}
	}
	errHandler := func(err error) {
		log.WithError(err).Warn("ticker stream error")
		r.channels.SendEvent(r.ctx, models.ErrorEvent("binance", &models.ConnectionError{Exchange: "binance", Err: err}))
	}

	doneC, stopC, err := binance.WsCombinedMarketStatServe(natives, handler, errHandler)
	if err != nil {
		return fmt.Errorf("start ticker stream: %w", err)
	}
	r.watch(doneC, stopC, "ticker_stream")
	return nil
}

func (r *Reader) serveBookTickers(natives []string) error {
	log := r.log.WithComponent("binance_reader").WithFields(logger.Fields{"worker": "book_ticker_stream"})

	handler := func(event *binance.WsBookTickerEvent) {
		b := bookTickerToBook(event, r.mapper)
		if b == nil {
			logger.IncrementDecodeFailure("binance")
			return
		}
		if r.channels.SendEvent(r.ctx, models.BookEvent(b)) {
			logger.IncrementBookUpdate("binance", 0)
		}
	}
	errHandler := func(err error) {
		log.WithError(err).Warn("book ticker stream error")
		r.channels.SendEvent(r.ctx, models.ErrorEvent("binance", &models.ConnectionError{Exchange: "binance", Err: err}))
	}

	doneC, stopC, err := binance.WsCombinedBookTickerServe(natives, handler, errHandler)
	if err != nil {
		return fmt.Errorf("start book ticker stream: %w", err)
	}
	r.watch(doneC, stopC, "book_ticker_stream")
	return nil
}

// watch ties one SDK stream to the reader lifecycle: context
// cancellation closes the stream, stream termination surfaces a
// Disconnected event.
func (r *Reader) watch(doneC, stopC chan struct{}, name string) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		select {
		case <-r.ctx.Done():
			close(stopC)
			<-doneC
		case <-doneC:
			if r.ctx.Err() == nil {
				r.channels.SendEvent(r.ctx, models.DisconnectedEvent("binance", 0, name+" closed"))
			}
		}
	}()
}

func (r *Reader) Stop() {
	r.mu.Lock()
	r.running = false
	r.mu.Unlock()
	r.log.WithComponent("binance_reader").Info("stopping binance reader")
	r.wg.Wait()
	r.log.WithComponent("binance_reader").Info("binance reader stopped")
}
