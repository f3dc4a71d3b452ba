// Package promptbuilder renders agent identity and market state into prompts
// for the reasoning backend.
package promptbuilder

import (
	"fmt"
	"strings"

	"github.com/kkdrhn/GhostBroker/internal/domain"
)

// PromptBuilder formats per-strategy system prompts and per-tick user prompts.
type PromptBuilder struct{}

// NewPromptBuilder creates a prompt builder.
func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

// BuildSystemPrompt returns the persona prompt for the agent's strategy.
func (b *PromptBuilder) BuildSystemPrompt(profile domain.AgentProfile) string {
	switch profile.Strategy {
	case domain.StrategyAggressive:
		return fmt.Sprintf(aggressiveSystemPrompt, profile.DisplayName())
	case domain.StrategyConservative:
		return fmt.Sprintf(conservativeSystemPrompt, profile.DisplayName())
	default:
		return fmt.Sprintf(balancedSystemPrompt, profile.DisplayName())
	}
}

// BuildUserPrompt renders the agent's identity block and the live market view.
func (b *PromptBuilder) BuildUserPrompt(profile domain.AgentProfile, snapshot domain.MarketSnapshot) string {
	var sb strings.Builder

	sb.WriteString("=== YOUR IDENTITY ===\n")
	fmt.Fprintf(&sb, "Name:             %s\n", profile.DisplayName())
	fmt.Fprintf(&sb, "Strategy:         %s\n", strings.ToUpper(profile.Strategy.String()))
	fmt.Fprintf(&sb, "Risk Appetite:    %d/100\n", profile.RiskAppetite)
	fmt.Fprintf(&sb, "Current Capital:  %s USD\n", profile.Capital.StringFixed(4))
	fmt.Fprintf(&sb, "Initial Capital:  %s USD\n", profile.InitialCapital.StringFixed(4))
	fmt.Fprintf(&sb, "P&L:              %s%%\n", profile.PnLPercent().StringFixed(2))

	sb.WriteString("\n=== LIVE MARKET ===\n")
	fmt.Fprintf(&sb, "Commodity:    %s\n", snapshot.Commodity)
	fmt.Fprintf(&sb, "Bid / Ask:    %s / %s\n", snapshot.BestBid.StringFixed(4), snapshot.BestAsk.StringFixed(4))
	fmt.Fprintf(&sb, "Mid Price:    %s\n", snapshot.MidPrice.StringFixed(4))
	fmt.Fprintf(&sb, "Spread:       %s%%\n", snapshot.Spread.StringFixed(4))
	fmt.Fprintf(&sb, "Oracle Price: %s  (confidence: %.3f)\n", snapshot.OraclePrice.StringFixed(4), snapshot.OracleConfidence)
	fmt.Fprintf(&sb, "24h Volume:   %s\n", snapshot.Volume24h.StringFixed(2))
	fmt.Fprintf(&sb, "Price Change: %s%%\n", snapshot.PriceChange.StringFixed(2))
	fmt.Fprintf(&sb, "Book Depth:   bids=%d  asks=%d\n", snapshot.DepthBid, snapshot.DepthAsk)

	return sb.String()
}
