package brain

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kkdrhn/GhostBroker/internal/domain"
)

func snapshot() domain.MarketSnapshot {
	return domain.MarketSnapshot{
		Commodity:        "GHOST_ORE",
		BestBid:          decimal.NewFromFloat(0.995),
		BestAsk:          decimal.NewFromFloat(1.005),
		MidPrice:         decimal.NewFromInt(1),
		Spread:           decimal.NewFromInt(1),
		Volume24h:        decimal.NewFromInt(10_000),
		PriceChange:      decimal.Zero,
		DepthBid:         8,
		DepthAsk:         6,
		OraclePrice:      decimal.NewFromInt(1),
		OracleConfidence: 0.98,
	}
}

func profile(strategy domain.Strategy) domain.AgentProfile {
	return domain.AgentProfile{
		AgentID:        "agent-1",
		TokenID:        1,
		Strategy:       strategy,
		Capital:        decimal.NewFromInt(1000),
		InitialCapital: decimal.NewFromInt(1000),
	}
}

func TestRuleBrain(t *testing.T) {
	brains := NewRuleBrain()
	ctx := context.Background()

	t.Run("aggressive buys momentum under oracle", func(t *testing.T) {
		s := snapshot()
		s.PriceChange = decimal.NewFromInt(2)
		s.MidPrice = decimal.NewFromFloat(0.98)

		decision, err := brains.Decide(ctx, profile(domain.StrategyAggressive), s)
		require.NoError(t, err)
		assert.Equal(t, domain.ActionBid, decision.Action)
		assert.True(t, decision.Qty.GreaterThan(decimal.Zero))
	})

	t.Run("aggressive holds on thin book", func(t *testing.T) {
		s := snapshot()
		s.DepthBid = 1

		decision, err := brains.Decide(ctx, profile(domain.StrategyAggressive), s)
		require.NoError(t, err)
		assert.Equal(t, domain.ActionHold, decision.Action)
	})

	t.Run("balanced holds on low oracle confidence", func(t *testing.T) {
		s := snapshot()
		s.OracleConfidence = 0.3

		decision, err := brains.Decide(ctx, profile(domain.StrategyBalanced), s)
		require.NoError(t, err)
		assert.Equal(t, domain.ActionHold, decision.Action)
	})

	t.Run("balanced mean-reverts when mid diverges from oracle", func(t *testing.T) {
		s := snapshot()
		s.MidPrice = decimal.NewFromFloat(0.95)

		decision, err := brains.Decide(ctx, profile(domain.StrategyBalanced), s)
		require.NoError(t, err)
		assert.Equal(t, domain.ActionBid, decision.Action)

		s.MidPrice = decimal.NewFromFloat(1.05)
		decision, err = brains.Decide(ctx, profile(domain.StrategyBalanced), s)
		require.NoError(t, err)
		assert.Equal(t, domain.ActionAsk, decision.Action)
	})

	t.Run("conservative avoids volatile markets", func(t *testing.T) {
		s := snapshot()
		s.PriceChange = decimal.NewFromInt(5)

		decision, err := brains.Decide(ctx, profile(domain.StrategyConservative), s)
		require.NoError(t, err)
		assert.Equal(t, domain.ActionHold, decision.Action)
	})

	t.Run("conservative quotes a wide calm market", func(t *testing.T) {
		s := snapshot()

		decision, err := brains.Decide(ctx, profile(domain.StrategyConservative), s)
		require.NoError(t, err)
		assert.Equal(t, domain.ActionBid, decision.Action)
		assert.True(t, decision.Price.LessThan(s.OraclePrice))
	})

	t.Run("decisions always validate", func(t *testing.T) {
		for _, strategy := range []domain.Strategy{domain.StrategyAggressive, domain.StrategyBalanced, domain.StrategyConservative} {
			decision, err := brains.Decide(ctx, profile(strategy), snapshot())
			require.NoError(t, err, strategy)
			require.NoError(t, decision.Validate(), strategy)
		}
	})
}
