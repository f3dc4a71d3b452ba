package brain

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/kkdrhn/GhostBroker/internal/domain"
)

var (
	onePercent   = decimal.NewFromInt(1)
	threePercent = decimal.NewFromInt(3)
	fivePercent  = decimal.NewFromInt(5)

	halfPercent  = decimal.NewFromFloat(0.5)
	fifthPercent = decimal.NewFromFloat(0.2)
)

// RuleBrain is a deterministic reasoning implementation encoding each
// strategy's trading rules directly. It serves as the fallback when no LLM is
// configured and as a stable fixture in tests.
type RuleBrain struct{}

// NewRuleBrain creates the rule-based reasoning implementation.
func NewRuleBrain() *RuleBrain {
	return &RuleBrain{}
}

// Decide applies the strategy's rules to the snapshot.
func (b *RuleBrain) Decide(_ context.Context, profile domain.AgentProfile, snapshot domain.MarketSnapshot) (*domain.Decision, error) {
	var decision *domain.Decision
	switch profile.Strategy {
	case domain.StrategyAggressive:
		decision = b.decideAggressive(profile, snapshot)
	case domain.StrategyConservative:
		decision = b.decideConservative(profile, snapshot)
	default:
		decision = b.decideBalanced(profile, snapshot)
	}

	if err := decision.Validate(); err != nil {
		return nil, err
	}
	return decision, nil
}

func (b *RuleBrain) decideAggressive(profile domain.AgentProfile, snapshot domain.MarketSnapshot) *domain.Decision {
	switch {
	case snapshot.Spread.GreaterThan(fivePercent) || snapshot.DepthBid < 3:
		return hold(profile, snapshot, "spread too wide or book too thin for momentum entries", 0.6)
	case snapshot.PriceChange.GreaterThan(onePercent) && snapshot.MidPrice.LessThan(snapshot.OraclePrice):
		return order(profile, snapshot, domain.ActionBid, snapshot.MidPrice, 0.20,
			"momentum entry: price rising and mid still below oracle", 0.85)
	case snapshot.PriceChange.LessThan(onePercent.Neg()) ||
		snapshot.MidPrice.GreaterThan(snapshot.OraclePrice):
		return order(profile, snapshot, domain.ActionAsk, snapshot.MidPrice, 0.20,
			"profit taking: momentum fading or mid above oracle", 0.80)
	default:
		return hold(profile, snapshot, "no momentum signal", 0.55)
	}
}

func (b *RuleBrain) decideBalanced(profile domain.AgentProfile, snapshot domain.MarketSnapshot) *domain.Decision {
	oneOff := snapshot.OraclePrice.Mul(decimal.NewFromFloat(0.01))
	switch {
	case snapshot.OracleConfidence < 0.5 || snapshot.Spread.GreaterThan(threePercent):
		return hold(profile, snapshot, "oracle confidence low or spread too wide", 0.6)
	case snapshot.MidPrice.LessThan(snapshot.OraclePrice.Sub(oneOff)):
		return order(profile, snapshot, domain.ActionBid, snapshot.MidPrice, 0.12,
			"mean-reversion buy: mid more than 1% below oracle", 0.75)
	case snapshot.MidPrice.GreaterThan(snapshot.OraclePrice.Add(oneOff)):
		return order(profile, snapshot, domain.ActionAsk, snapshot.MidPrice, 0.12,
			"mean-reversion sell: mid more than 1% above oracle", 0.75)
	default:
		return hold(profile, snapshot, "price within fair-value band", 0.6)
	}
}

func (b *RuleBrain) decideConservative(profile domain.AgentProfile, snapshot domain.MarketSnapshot) *domain.Decision {
	switch {
	case snapshot.PriceChange.Abs().GreaterThan(threePercent):
		return hold(profile, snapshot, "volatility too high for market making", 0.7)
	case snapshot.Spread.LessThan(fifthPercent):
		return hold(profile, snapshot, "spread too thin to quote", 0.7)
	case snapshot.Spread.GreaterThan(halfPercent):
		price := snapshot.OraclePrice.Mul(decimal.NewFromFloat(0.995))
		return order(profile, snapshot, domain.ActionBid, price, 0.05,
			"market-making the bid half a percent under oracle", 0.7)
	default:
		return hold(profile, snapshot, "spread inside quoting band", 0.65)
	}
}

func order(profile domain.AgentProfile, snapshot domain.MarketSnapshot, action domain.Action,
	price decimal.Decimal, capitalFraction float64, rationale string, confidence float64) *domain.Decision {

	qty := decimal.Zero
	if price.GreaterThan(decimal.Zero) {
		qty = profile.Capital.Mul(decimal.NewFromFloat(capitalFraction)).Div(price).Round(6)
	}
	return &domain.Decision{
		AgentID:    profile.AgentID,
		Action:     action,
		Commodity:  snapshot.Commodity,
		Price:      price,
		Qty:        qty,
		Reasoning:  fmt.Sprintf("%s: %s", profile.DisplayName(), rationale),
		Confidence: confidence,
		TTLBlocks:  domain.DefaultTTLBlocks,
	}
}

func hold(profile domain.AgentProfile, snapshot domain.MarketSnapshot, rationale string, confidence float64) *domain.Decision {
	return &domain.Decision{
		AgentID:    profile.AgentID,
		Action:     domain.ActionHold,
		Commodity:  snapshot.Commodity,
		Price:      snapshot.MidPrice,
		Qty:        decimal.Zero,
		Reasoning:  fmt.Sprintf("%s: %s", profile.DisplayName(), rationale),
		Confidence: confidence,
		TTLBlocks:  domain.DefaultTTLBlocks,
	}
}
