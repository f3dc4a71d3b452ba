// Package market aggregates the on-chain oracle and the off-chain streaming
// feed into point-in-time market snapshots.
package market

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PriceSource identifies which feed produced a price point.
type PriceSource string

const (
	SourceSeed   PriceSource = "seed"
	SourceOracle PriceSource = "oracle"
	SourceStream PriceSource = "stream"
)

// PricePoint is the latest known price for a commodity.
type PricePoint struct {
	Price      decimal.Decimal
	Confidence float64
	Source     PriceSource
	UpdatedAt  time.Time
}

// Listener receives price updates as they land in the table.
type Listener func(commodity string, price decimal.Decimal)

// PriceTable is the symbol-keyed price state shared by the oracle reader and
// the streaming feed. Precedence between sources is by freshness: an update
// older than the stored point is discarded.
type PriceTable struct {
	mu        sync.RWMutex
	prices    map[string]PricePoint
	listeners []Listener
	logger    *zap.Logger
}

// NewPriceTable creates a table pre-populated with seed prices. Seeds carry
// the fallback confidence so a table read before any live update is honest
// about its quality.
func NewPriceTable(seeds map[string]decimal.Decimal, logger *zap.Logger) *PriceTable {
	prices := make(map[string]PricePoint, len(seeds))
	now := time.Now()
	for commodity, price := range seeds {
		prices[commodity] = PricePoint{
			Price:      price,
			Confidence: FallbackConfidence,
			Source:     SourceSeed,
			UpdatedAt:  now,
		}
	}
	return &PriceTable{prices: prices, logger: logger}
}

// Update stores a price point unless a fresher one is already present.
// Listeners are notified outside a successful store only.
func (t *PriceTable) Update(commodity string, price decimal.Decimal, confidence float64, source PriceSource, ts time.Time) {
	t.mu.Lock()
	if existing, ok := t.prices[commodity]; ok && existing.UpdatedAt.After(ts) {
		t.mu.Unlock()
		return
	}
	t.prices[commodity] = PricePoint{
		Price:      price,
		Confidence: confidence,
		Source:     source,
		UpdatedAt:  ts,
	}
	listeners := make([]Listener, len(t.listeners))
	copy(listeners, t.listeners)
	t.mu.Unlock()

	for _, listener := range listeners {
		t.notify(listener, commodity, price)
	}
}

func (t *PriceTable) notify(listener Listener, commodity string, price decimal.Decimal) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Warn("price listener panicked", zap.String("commodity", commodity), zap.Any("panic", r))
		}
	}()
	listener(commodity, price)
}

// Lookup returns the latest price point for the commodity.
func (t *PriceTable) Lookup(commodity string) (PricePoint, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	point, ok := t.prices[commodity]
	return point, ok
}

// Subscribe registers a listener for subsequent price updates.
func (t *PriceTable) Subscribe(listener Listener) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.listeners = append(t.listeners, listener)
}

// Commodities returns all known commodity identifiers.
func (t *PriceTable) Commodities() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, 0, len(t.prices))
	for commodity := range t.prices {
		out = append(out, commodity)
	}
	return out
}
