// Package scanner runs the interval-driven cross-exchange sweep: it
// pairs every exchange quoting a symbol against every other, prices
// the round trip with fees and slippage, scores the survivors and
// publishes each cycle's ranked batch.
package scanner

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"tradient/internal/channel"
	"tradient/internal/fees"
	"tradient/internal/market"
	"tradient/internal/risk"
	"tradient/internal/slippage"
	"tradient/logger"
	"tradient/models"
)

// Config controls one scanner instance.
type Config struct {
	Interval     time.Duration
	MinProfitPct float64       // net threshold in percent
	MaxDataAge   time.Duration // quotes older than this are skipped
	TradeSize    float64       // quote units used for slippage sizing
}

// Scanner owns a strictly sequential scan loop. Cycles never overlap:
// the next tick is not consumed until the previous sweep finishes, so
// a slow cycle delays rather than stacks.
type Scanner struct {
	cfg   Config
	store *market.Store
	fees  *fees.Model
	slip  *slippage.VolatilityAdjusted
	sizer *risk.Sizer
	ch    *channel.Channels
	log   *logger.Entry
}

func New(cfg Config, store *market.Store, feeModel *fees.Model, slip *slippage.VolatilityAdjusted, sizer *risk.Sizer, ch *channel.Channels) *Scanner {
	return &Scanner{
		cfg:   cfg,
		store: store,
		fees:  feeModel,
		slip:  slip,
		sizer: sizer,
		ch:    ch,
		log:   logger.GetLogger().WithComponent("scanner"),
	}
}

// Run blocks until the context is cancelled.
func (s *Scanner) Run(ctx context.Context) {
	s.log.WithFields(logger.Fields{
		"interval":       s.cfg.Interval.String(),
		"min_profit_pct": s.cfg.MinProfitPct,
		"max_data_age":   s.cfg.MaxDataAge.String(),
	}).Info("scanner started")

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("scanner stopped")
			return
		case <-ticker.C:
			start := time.Now()
			ops := s.ScanOnce(ctx)
			elapsed := time.Since(start)

			logger.IncrementScanCycle(len(ops))
			if elapsed > s.cfg.Interval {
				s.log.WithFields(logger.Fields{
					"elapsed":  elapsed.String(),
					"interval": s.cfg.Interval.String(),
				}).Warn("scan cycle took longer than interval")
			}
			if len(ops) > 0 {
				s.ch.SendOpportunities(ctx, ops)
			}
		}
	}
}

// ScanOnce performs a single sweep over every symbol quoted on at
// least two exchanges and returns the candidates that clear the
// profit threshold, ranked by net profit.
func (s *Scanner) ScanOnce(ctx context.Context) []models.ArbitrageOpportunity {
	cycleID := uuid.New().String()[:8]
	now := time.Now()

	venues := s.symbolVenues()
	var ops []models.ArbitrageOpportunity
	pairs := 0

	for symbol, exchanges := range venues {
		if len(exchanges) < 2 {
			continue
		}
		for _, buyEx := range exchanges {
			for _, sellEx := range exchanges {
				if buyEx == sellEx {
					continue
				}
				pairs++
				op, err := s.evaluate(symbol, buyEx, sellEx, now)
				if err != nil {
					continue
				}
				if op != nil {
					ops = append(ops, *op)
				}
			}
		}
	}

	sort.Slice(ops, func(i, j int) bool { return ops[i].NetProfitPct > ops[j].NetProfitPct })

	s.log.WithFields(logger.Fields{
		"cycle":         cycleID,
		"symbols":       len(venues),
		"pairs":         pairs,
		"opportunities": len(ops),
	}).Debug("scan cycle complete")

	return ops
}

// symbolVenues maps each known symbol to the exchanges quoting it.
func (s *Scanner) symbolVenues() map[models.Symbol][]string {
	venues := make(map[models.Symbol][]string)
	for _, ex := range s.store.Exchanges() {
		for _, sym := range s.store.Symbols(ex) {
			venues[sym] = append(venues[sym], ex)
		}
	}
	return venues
}

// evaluate prices one directed exchange pair for one symbol. A nil
// opportunity with nil error means the pair was examined and
// rejected. A panic in pricing is contained to the candidate.
func (s *Scanner) evaluate(symbol models.Symbol, buyEx, sellEx string, now time.Time) (op *models.ArbitrageOpportunity, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("evaluate %s %s->%s: %v", symbol, buyEx, sellEx, r)
			s.log.WithFields(logger.Fields{
				"symbol":        string(symbol),
				"buy_exchange":  buyEx,
				"sell_exchange": sellEx,
				"panic":         fmt.Sprint(r),
			}).Error("candidate evaluation panicked")
		}
	}()

	buyTicker, ok := s.store.Ticker(buyEx, symbol)
	if !ok {
		return nil, nil
	}
	sellTicker, ok := s.store.Ticker(sellEx, symbol)
	if !ok {
		return nil, nil
	}
	if market.IsStale(buyTicker.Timestamp, s.cfg.MaxDataAge) || market.IsStale(sellTicker.Timestamp, s.cfg.MaxDataAge) {
		return nil, nil
	}

	buyPrice := buyTicker.AskPrice
	sellPrice := sellTicker.BidPrice
	if buyPrice <= 0 || sellPrice <= buyPrice {
		return nil, nil
	}

	buyMaker := isMakerBuy(buyPrice, buyTicker)
	sellMaker := isMakerSell(sellPrice, sellTicker)
	buyFee := s.fees.Rate(buyEx, buyMaker)
	sellFee := s.fees.Rate(sellEx, sellMaker)

	baseSize := s.cfg.TradeSize / buyPrice
	buySlip := s.slip.EstimateBuyFor(buyEx, symbol, s.book(buyEx, symbol), baseSize)
	sellSlip := s.slip.EstimateSellFor(sellEx, symbol, s.book(sellEx, symbol), baseSize)
	roundTrip := slippage.CombineRoundTrip(buySlip, sellSlip)

	net := netProfitPct(buyPrice, sellPrice, buyFee, sellFee) - roundTrip.Percentage
	if net < s.cfg.MinProfitPct {
		return nil, nil
	}

	volFactor := maxf(s.slip.Factor(buyEx, symbol), s.slip.Factor(sellEx, symbol))
	assessment := risk.Assess(risk.Input{
		Volume24h:        minf(buyTicker.Volume24h, sellTicker.Volume24h),
		VolatilityFactor: volFactor,
		TotalFeePct:      (buyFee + sellFee) * 100,
		Slippage:         roundTrip,
	})

	size := s.sizer.Size(net, assessment)
	if size == 0 {
		return nil, nil
	}

	return &models.ArbitrageOpportunity{
		Symbol:                  symbol,
		BuyExchange:             buyEx,
		SellExchange:            sellEx,
		BuyPrice:                buyPrice,
		SellPrice:               sellPrice,
		BuyFeePct:               buyFee * 100,
		SellFeePct:              sellFee * 100,
		GrossSpreadPct:          (sellPrice - buyPrice) / buyPrice * 100,
		NetProfitPct:            net,
		SlippagePct:             roundTrip.Percentage,
		Risk:                    assessment,
		RecommendedPositionSize: size,
		Timestamp:               now,
	}, nil
}

func (s *Scanner) book(exchange string, symbol models.Symbol) *models.OrderBook {
	b, ok := s.store.OrderBook(exchange, symbol)
	if !ok {
		return nil
	}
	return b
}

// netProfitPct is the round-trip return after fees, relative to the
// fee-loaded cost basis. Fee rates are decimals.
func netProfitPct(buy, sell, buyFee, sellFee float64) float64 {
	cost := buy * (1 + buyFee)
	proceeds := sell * (1 - sellFee)
	return (proceeds - cost) / cost * 100
}

// A buy rests (maker) only when priced under the best ask, a sell
// only when priced over the best bid. Arbitrage legs cross the book
// at the touch, so both normally pay taker.
func isMakerBuy(price float64, t *models.Ticker) bool {
	return t.AskPrice > 0 && price < t.AskPrice
}

func isMakerSell(price float64, t *models.Ticker) bool {
	return t.BidPrice > 0 && price > t.BidPrice
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
