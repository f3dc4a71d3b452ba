package market

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/kkdrhn/GhostBroker/internal/domain"
)

var (
	two     = decimal.NewFromInt(2)
	hundred = decimal.NewFromInt(100)

	// synthetic book parameters used when no real order book is available
	syntheticSpread = decimal.NewFromFloat(0.005)
	syntheticVolume = decimal.NewFromInt(10_000)
)

const (
	syntheticDepthBid = 8
	syntheticDepthAsk = 6
)

// Aggregator combines oracle reads, the shared price table and the volatility
// tracker into MarketSnapshots. Safe for concurrent use across commodities.
type Aggregator struct {
	oracle *Oracle
	vol    *VolatilityTracker
	logger *zap.Logger
}

// NewAggregator creates a snapshot builder.
func NewAggregator(oracle *Oracle, vol *VolatilityTracker, logger *zap.Logger) *Aggregator {
	return &Aggregator{oracle: oracle, vol: vol, logger: logger}
}

// BuildSnapshot assembles a point-in-time market view for one commodity.
// Mid price is (bid+ask)/2 when both sides are positive, otherwise the oracle
// price; spread is (ask-bid)/mid*100, zero when mid is non-positive.
func (a *Aggregator) BuildSnapshot(ctx context.Context, commodity string,
	bid, ask, volume, priceChange decimal.Decimal, depthBid, depthAsk int) domain.MarketSnapshot {

	oraclePrice, confidence := a.oracle.FetchPrice(ctx, commodity)

	mid := oraclePrice
	if bid.GreaterThan(decimal.Zero) && ask.GreaterThan(decimal.Zero) {
		mid = bid.Add(ask).Div(two)
	}

	spread := decimal.Zero
	if mid.GreaterThan(decimal.Zero) {
		spread = ask.Sub(bid).Div(mid).Mul(hundred)
		if spread.IsNegative() {
			spread = decimal.Zero
		}
	}

	a.vol.Observe(commodity, mid)

	return domain.MarketSnapshot{
		Commodity:        commodity,
		BestBid:          bid,
		BestAsk:          ask,
		MidPrice:         mid,
		Spread:           spread,
		Volume24h:        volume,
		PriceChange:      priceChange,
		DepthBid:         depthBid,
		DepthAsk:         depthAsk,
		OraclePrice:      oraclePrice,
		OracleConfidence: confidence,
	}
}

// SyntheticSnapshot builds a snapshot with a book derived from the oracle
// price (±0.5%), for callers that have no real order book to read.
func (a *Aggregator) SyntheticSnapshot(ctx context.Context, commodity string) domain.MarketSnapshot {
	oraclePrice, _ := a.oracle.FetchPrice(ctx, commodity)

	bid := oraclePrice.Mul(decimal.NewFromInt(1).Sub(syntheticSpread))
	ask := oraclePrice.Mul(decimal.NewFromInt(1).Add(syntheticSpread))
	volume := oraclePrice.Mul(syntheticVolume)
	change := a.vol.ChangePercent(commodity)

	return a.BuildSnapshot(ctx, commodity, bid, ask, volume, change, syntheticDepthBid, syntheticDepthAsk)
}
