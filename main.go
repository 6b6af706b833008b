package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"tradient/config"
	"tradient/internal/channel"
	"tradient/internal/fees"
	"tradient/internal/market"
	"tradient/internal/risk"
	"tradient/internal/scanner"
	"tradient/internal/slippage"
	"tradient/logger"
	"tradient/models"
	"tradient/reader/binance"
	"tradient/reader/bybit"
	"tradient/reader/coinbase"
	"tradient/reader/kraken"
	"tradient/reader/okx"
)

// exchangeReader is the lifecycle every connector exposes.
type exchangeReader interface {
	Start(ctx context.Context) error
	Stop()
}

func main() {
	log := logger.GetLogger()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", "config/config.yml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}

	log.WithFields(logger.Fields{
		"service": cfg.Tradient.Name,
		"version": cfg.Tradient.Version,
	}).Info("starting tradient")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Cloudwatch.Enabled {
		logger.InitCloudWatch(
			cfg.Cloudwatch.Region,
			cfg.Cloudwatch.Namespace,
			os.Getenv("AWS_ACCESS_KEY_ID"),
			os.Getenv("AWS_SECRET_ACCESS_KEY"),
		)
	}
	logger.StartReport(ctx, log, 30*time.Second)

	channels := channel.NewChannels(
		cfg.Channels.EventBuffer,
		cfg.Channels.OpportunityBuffer,
	)
	defer channels.Close()
	go channels.StartMetricsReporting(ctx)

	store := market.NewStore()

	feeModel := fees.NewModel()
	for _, d := range cfg.Fees.Discounts {
		feeModel.RegisterDiscount(d.Exchange, d.Maker, d.Rate)
	}
	for exchange, volume := range cfg.Fees.Volumes30d {
		feeModel.SetVolume(exchange, volume)
	}

	slip := slippage.NewVolatilityAdjusted(slippage.NewBookWalker())
	sizer := risk.NewSizer(cfg.Scanner.Capital, cfg.Scanner.MaxPositionPct)

	var readers []exchangeReader
	if cfg.Exchanges.Binance.Enabled {
		readers = append(readers, binance.NewReader(cfg, channels))
	}
	if cfg.Exchanges.Coinbase.Enabled {
		readers = append(readers, coinbase.NewReader(cfg, channels))
	}
	if cfg.Exchanges.Kraken.Enabled {
		readers = append(readers, kraken.NewReader(cfg, channels))
	}
	if cfg.Exchanges.Okx.Enabled {
		readers = append(readers, okx.NewReader(cfg, channels))
	}
	if cfg.Exchanges.Bybit.Enabled {
		readers = append(readers, bybit.NewReader(cfg, channels))
	}
	if len(readers) == 0 {
		log.Error("no exchanges enabled")
		os.Exit(1)
	}

	var wg sync.WaitGroup

	// event pump: the only writer into the market store
	wg.Add(1)
	go func() {
		defer wg.Done()
		pumpEvents(ctx, channels, store, slip, log)
	}()

	scan := scanner.New(scanner.Config{
		Interval:     cfg.Scanner.Interval(),
		MinProfitPct: cfg.Scanner.MinProfitPct,
		MaxDataAge:   cfg.Scanner.MaxDataAge(),
		TradeSize:    cfg.Scanner.TradeSize,
	}, store, feeModel, slip, sizer, channels)

	wg.Add(1)
	go func() {
		defer wg.Done()
		scan.Run(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		reportOpportunities(ctx, channels, log)
	}()

	for _, r := range readers {
		wg.Add(1)
		go func(reader exchangeReader) {
			defer wg.Done()
			if err := reader.Start(ctx); err != nil {
				log.WithError(err).Warn("reader failed to start")
			}
		}(r)
	}

	time.Sleep(2 * time.Second)
	log.Info("all components started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	log.WithFields(logger.Fields{"signal": sig.String()}).Info("shutdown signal received")

	log.Info("starting graceful shutdown")
	cancel()

	for _, r := range readers {
		r.Stop()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info("graceful shutdown completed")
	case <-time.After(30 * time.Second):
		log.Warn("graceful shutdown timeout exceeded")
	}

	log.Info("tradient stopped")
}

// pumpEvents drains the event channel into the market store and feeds
// mid prices to the volatility tracker. Connection-level events are
// logged; reconnection policy stays with the operator.
func pumpEvents(ctx context.Context, channels *channel.Channels, store *market.Store, slip *slippage.VolatilityAdjusted, log *logger.Log) {
	entry := log.WithComponent("event_pump")
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-channels.Events:
			if !ok {
				return
			}
			switch ev.Type {
			case models.EventTicker:
				store.UpsertTicker(ev.Ticker)
				slip.Observe(ev.Exchange, ev.Ticker.Symbol, ev.Ticker.MidPrice(), ev.Ticker.Timestamp)
			case models.EventOrderBook:
				store.UpsertOrderBook(ev.Book)
			case models.EventConnected:
				entry.WithFields(logger.Fields{"exchange": ev.Exchange}).Info("exchange stream connected")
			case models.EventDisconnected:
				entry.WithFields(logger.Fields{
					"exchange": ev.Exchange,
					"code":     ev.Code,
					"reason":   ev.Reason,
				}).Warn("exchange stream disconnected")
			case models.EventError:
				entry.WithError(ev.Err).WithFields(logger.Fields{"exchange": ev.Exchange}).Warn("exchange stream error")
			}
		}
	}
}

// reportOpportunities logs each ranked batch the scanner publishes.
func reportOpportunities(ctx context.Context, channels *channel.Channels, log *logger.Log) {
	entry := log.WithComponent("opportunities")
	for {
		select {
		case <-ctx.Done():
			return
		case batch, ok := <-channels.Opportunities:
			if !ok {
				return
			}
			for i, op := range batch {
				entry.WithFields(logger.Fields{
					"rank":          i + 1,
					"symbol":        string(op.Symbol),
					"buy_exchange":  op.BuyExchange,
					"sell_exchange": op.SellExchange,
					"buy_price":     op.BuyPrice,
					"sell_price":    op.SellPrice,
					"net_profit":    op.NetProfitPct,
					"slippage":      op.SlippagePct,
					"risk":          op.Risk.OverallRiskScore,
					"position":      op.RecommendedPositionSize,
				}).Info("arbitrage opportunity")
			}
		}
	}
}
