// Package chainwatch follows market contract events on-chain and republishes
// them to hub subscribers.
package chainwatch

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/jpillora/backoff"
	"go.uber.org/zap"

	"github.com/kkdrhn/GhostBroker/internal/clients"
	"github.com/kkdrhn/GhostBroker/internal/services/hub"
)

const logBuffer = 64

type broadcaster interface {
	Broadcast(channel string, payload any)
}

// Watcher maintains a log subscription on the market contract and forwards
// each event to the chain.block and market.trades channels. The subscription
// is re-established with backoff after any failure.
type Watcher struct {
	ledger   clients.Ledger
	contract common.Address
	hub      broadcaster
	logger   *zap.Logger
}

// NewWatcher creates a market contract log watcher.
func NewWatcher(ledger clients.Ledger, contract common.Address, broadcast broadcaster, logger *zap.Logger) *Watcher {
	return &Watcher{ledger: ledger, contract: contract, hub: broadcast, logger: logger}
}

// Run follows the log stream until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	bo := &backoff.Backoff{Min: 2 * time.Second, Max: 30 * time.Second, Factor: 2, Jitter: true}

	for {
		if err := w.watch(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			wait := bo.Duration()
			w.logger.Warn("log subscription lost, reconnecting",
				zap.Error(err), zap.Duration("wait", wait))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
			continue
		}
		bo.Reset()
	}
}

func (w *Watcher) watch(ctx context.Context) error {
	logs := make(chan types.Log, logBuffer)
	query := ethereum.FilterQuery{Addresses: []common.Address{w.contract}}

	sub, err := w.ledger.SubscribeFilterLogs(ctx, query, logs)
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	w.logger.Info("watching market contract logs", zap.String("contract", w.contract.Hex()))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-sub.Err():
			return err
		case entry := <-logs:
			w.publish(entry)
		}
	}
}

func (w *Watcher) publish(entry types.Log) {
	event := map[string]any{
		"block":    entry.BlockNumber,
		"tx":       entry.TxHash.Hex(),
		"contract": entry.Address.Hex(),
		"removed":  entry.Removed,
	}
	if len(entry.Topics) > 0 {
		event["topic"] = entry.Topics[0].Hex()
	}

	w.hub.Broadcast(hub.ChannelBlocks, map[string]any{"type": "block", "data": event})
	w.hub.Broadcast(hub.ChannelTrades, map[string]any{"type": "trade", "data": event})
}
