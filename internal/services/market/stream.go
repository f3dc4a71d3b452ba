package market

import (
	"context"
	"time"

	binance "github.com/adshao/go-binance/v2"
	"github.com/jpillora/backoff"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	// streamConfidence applies to prices from the off-chain reference feed.
	streamConfidence = 0.95

	defaultReconnectWait = 2 * time.Second
	maxReconnectWait     = 30 * time.Second
)

// Stream keeps a persistent ticker subscription to the off-chain reference
// exchange and writes every tick into the price table under the mapped
// commodity. The feed is best-effort: on any disruption it reconnects after a
// backoff instead of terminating.
type Stream struct {
	symbol    string // exchange stream symbol, e.g. BTCUSDT
	commodity string // commodity the stream prices, e.g. MON_USDC
	table     *PriceTable
	logger    *zap.Logger
}

// NewStream creates a streaming feed for one exchange symbol.
func NewStream(symbol, commodity string, table *PriceTable, logger *zap.Logger) *Stream {
	return &Stream{
		symbol:    symbol,
		commodity: commodity,
		table:     table,
		logger:    logger,
	}
}

// Run blocks, maintaining the subscription until ctx is cancelled.
func (s *Stream) Run(ctx context.Context) error {
	wait := &backoff.Backoff{
		Min:    defaultReconnectWait,
		Max:    maxReconnectWait,
		Factor: 2,
		Jitter: true,
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		doneC, stopC, err := binance.WsMarketStatServe(s.symbol, s.handleTick, s.handleStreamError)
		if err != nil {
			s.logger.Warn("stream connect failed, retrying",
				zap.String("symbol", s.symbol), zap.Error(err))
			if err := sleepCtx(ctx, wait.Duration()); err != nil {
				return err
			}
			continue
		}

		s.logger.Info("connected to reference price stream",
			zap.String("symbol", s.symbol), zap.String("commodity", s.commodity))
		wait.Reset()

		select {
		case <-ctx.Done():
			close(stopC)
			<-doneC
			return ctx.Err()
		case <-doneC:
			s.logger.Warn("stream disconnected, reconnecting",
				zap.String("symbol", s.symbol), zap.Duration("wait", defaultReconnectWait))
			if err := sleepCtx(ctx, wait.Duration()); err != nil {
				return err
			}
		}
	}
}

func (s *Stream) handleTick(event *binance.WsMarketStatEvent) {
	price, err := decimal.NewFromString(event.LastPrice)
	if err != nil || price.LessThanOrEqual(decimal.Zero) {
		return
	}
	s.table.Update(s.commodity, price, streamConfidence, SourceStream, time.Now())
}

func (s *Stream) handleStreamError(err error) {
	s.logger.Warn("stream read error", zap.String("symbol", s.symbol), zap.Error(err))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
