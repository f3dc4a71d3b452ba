package market

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeLedger serves canned CallContract responses.
type fakeLedger struct {
	callResult []byte
	callErr    error
}

func (f *fakeLedger) CallContract(context.Context, ethereum.CallMsg, *big.Int) ([]byte, error) {
	return f.callResult, f.callErr
}

func (f *fakeLedger) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	return 0, nil
}

func (f *fakeLedger) SuggestGasPrice(context.Context) (*big.Int, error) {
	return big.NewInt(1), nil
}

func (f *fakeLedger) SendTransaction(context.Context, *types.Transaction) error {
	return nil
}

func (f *fakeLedger) TransactionReceipt(context.Context, common.Hash) (*types.Receipt, error) {
	return nil, ethereum.NotFound
}

func (f *fakeLedger) SubscribeFilterLogs(context.Context, ethereum.FilterQuery, chan<- types.Log) (ethereum.Subscription, error) {
	return nil, errors.New("not supported")
}

// fixedPoint encodes a decimal as an abi uint256 with 18 decimals.
func fixedPoint(value decimal.Decimal) []byte {
	return common.LeftPadBytes(value.Shift(18).BigInt().Bytes(), 32)
}

func TestOracleFetchPrice(t *testing.T) {
	logger := zap.NewNop()

	t.Run("successful read has oracle confidence", func(t *testing.T) {
		table := NewPriceTable(map[string]decimal.Decimal{"GHOST_ORE": decimal.NewFromInt(1)}, logger)
		ledger := &fakeLedger{callResult: fixedPoint(decimal.NewFromFloat(1.5))}
		oracle := NewOracle(ledger, common.Address{}, table, time.Second, logger)

		price, confidence := oracle.FetchPrice(context.Background(), "GHOST_ORE")
		assert.True(t, price.Equal(decimal.NewFromFloat(1.5)), price.String())
		assert.Equal(t, OracleConfidence, confidence)

		point, ok := table.Lookup("GHOST_ORE")
		require.True(t, ok)
		assert.Equal(t, SourceOracle, point.Source)
	})

	t.Run("failed read falls back to table with lower confidence", func(t *testing.T) {
		table := NewPriceTable(map[string]decimal.Decimal{"GHOST_ORE": decimal.NewFromFloat(2.5)}, logger)
		ledger := &fakeLedger{callErr: errors.New("connection refused")}
		oracle := NewOracle(ledger, common.Address{}, table, time.Second, logger)

		price, confidence := oracle.FetchPrice(context.Background(), "GHOST_ORE")
		assert.True(t, price.Equal(decimal.NewFromFloat(2.5)))
		assert.Equal(t, FallbackConfidence, confidence)
		assert.Less(t, FallbackConfidence, OracleConfidence)
	})

	t.Run("unknown commodity falls back to one", func(t *testing.T) {
		table := NewPriceTable(nil, logger)
		ledger := &fakeLedger{callErr: errors.New("connection refused")}
		oracle := NewOracle(ledger, common.Address{}, table, time.Second, logger)

		price, _ := oracle.FetchPrice(context.Background(), "UNSEEDED")
		assert.True(t, price.Equal(decimal.NewFromInt(1)))
	})
}

func TestPriceTableFreshestWins(t *testing.T) {
	logger := zap.NewNop()
	table := NewPriceTable(nil, logger)

	now := time.Now()
	table.Update("MON_USDC", decimal.NewFromInt(10), 0.95, SourceStream, now)
	table.Update("MON_USDC", decimal.NewFromInt(20), 0.98, SourceOracle, now.Add(-time.Minute))

	point, ok := table.Lookup("MON_USDC")
	require.True(t, ok)
	assert.True(t, point.Price.Equal(decimal.NewFromInt(10)), "stale update must not overwrite fresher price")
	assert.Equal(t, SourceStream, point.Source)

	table.Update("MON_USDC", decimal.NewFromInt(30), 0.98, SourceOracle, now.Add(time.Minute))
	point, _ = table.Lookup("MON_USDC")
	assert.True(t, point.Price.Equal(decimal.NewFromInt(30)))
}

func TestPriceTableListeners(t *testing.T) {
	logger := zap.NewNop()
	table := NewPriceTable(nil, logger)

	var got []string
	table.Subscribe(func(commodity string, _ decimal.Decimal) {
		got = append(got, commodity)
	})
	table.Subscribe(func(string, decimal.Decimal) {
		panic("listener bug")
	})

	table.Update("GHOST_ORE", decimal.NewFromInt(1), 0.9, SourceStream, time.Now())
	assert.Equal(t, []string{"GHOST_ORE"}, got, "panicking listener must not break notification")
}

func TestAggregatorBuildSnapshot(t *testing.T) {
	logger := zap.NewNop()
	table := NewPriceTable(nil, logger)
	ledger := &fakeLedger{callResult: fixedPoint(decimal.NewFromInt(1))}
	oracle := NewOracle(ledger, common.Address{}, table, time.Second, logger)
	aggregator := NewAggregator(oracle, NewVolatilityTracker(0), logger)

	t.Run("mid and spread from both sides", func(t *testing.T) {
		snapshot := aggregator.BuildSnapshot(context.Background(), "GHOST_ORE",
			decimal.NewFromFloat(0.995), decimal.NewFromFloat(1.005),
			decimal.NewFromInt(10_000), decimal.Zero, 8, 6)

		assert.True(t, snapshot.MidPrice.Equal(decimal.NewFromInt(1)), snapshot.MidPrice.String())
		assert.True(t, snapshot.Spread.Equal(decimal.NewFromInt(1)), snapshot.Spread.String())
		assert.Equal(t, 8, snapshot.DepthBid)
		assert.Equal(t, 6, snapshot.DepthAsk)
	})

	t.Run("one-sided book uses oracle mid and zero spread", func(t *testing.T) {
		snapshot := aggregator.BuildSnapshot(context.Background(), "GHOST_ORE",
			decimal.Zero, decimal.NewFromFloat(1.005),
			decimal.Zero, decimal.Zero, 0, 3)

		assert.True(t, snapshot.MidPrice.Equal(decimal.NewFromInt(1)))
		assert.True(t, snapshot.Spread.GreaterThanOrEqual(decimal.Zero))
	})

	t.Run("synthetic snapshot derives book from oracle", func(t *testing.T) {
		snapshot := aggregator.SyntheticSnapshot(context.Background(), "GHOST_ORE")

		assert.True(t, snapshot.BestBid.Equal(decimal.NewFromFloat(0.995)), snapshot.BestBid.String())
		assert.True(t, snapshot.BestAsk.Equal(decimal.NewFromFloat(1.005)), snapshot.BestAsk.String())
		assert.True(t, snapshot.MidPrice.Equal(decimal.NewFromInt(1)))
		assert.True(t, snapshot.Volume24h.Equal(decimal.NewFromInt(10_000)))
		assert.Equal(t, 8, snapshot.DepthBid)
		assert.Equal(t, 6, snapshot.DepthAsk)
	})
}

func TestVolatilityTracker(t *testing.T) {
	vol := NewVolatilityTracker(5)

	// flat series vs oscillating series
	for i := 0; i < 20; i++ {
		vol.Observe("FLAT", decimal.NewFromInt(100))
		price := 100.0
		if i%2 == 0 {
			price = 110.0
		}
		vol.Observe("CHOPPY", decimal.NewFromFloat(price))
	}

	assert.True(t, vol.Score("FLAT").IsZero(), vol.Score("FLAT").String())
	assert.True(t, vol.Score("CHOPPY").GreaterThan(decimal.Zero))
	assert.Equal(t, "CHOPPY", vol.Highest([]string{"FLAT", "CHOPPY"}))

	t.Run("insufficient samples score zero", func(t *testing.T) {
		vol.Observe("NEW", decimal.NewFromInt(1))
		assert.True(t, vol.Score("NEW").IsZero())
	})

	t.Run("change percent over window", func(t *testing.T) {
		v := NewVolatilityTracker(5)
		v.Observe("UP", decimal.NewFromInt(100))
		v.Observe("UP", decimal.NewFromInt(110))
		assert.True(t, v.ChangePercent("UP").Equal(decimal.NewFromInt(10)))
	})
}
