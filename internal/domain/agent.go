package domain

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// AgentProfile describes a deployed broker agent. Identity fields (AgentID,
// TokenID, OwnerAddress) are set at registration and never change; Capital is
// mutated only by the accounting step after each settled tick.
type AgentProfile struct {
	AgentID        string          `json:"agent_id"`
	TokenID        uint64          `json:"token_id"`
	Name           string          `json:"name,omitempty"`
	Strategy       Strategy        `json:"strategy"`
	RiskAppetite   int             `json:"risk_appetite"` // 0-100
	Capital        decimal.Decimal `json:"capital"`
	InitialCapital decimal.Decimal `json:"initial_capital"`
	OwnerAddress   string          `json:"owner_address"`
}

// DisplayName returns the agent name, falling back to the token id.
func (p AgentProfile) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return "Agent #" + strconv.FormatUint(p.TokenID, 10)
}

// PnLPercent returns profit/loss relative to initial capital in percent.
func (p AgentProfile) PnLPercent() decimal.Decimal {
	if p.InitialCapital.IsZero() {
		return decimal.Zero
	}
	return p.Capital.Sub(p.InitialCapital).
		Div(p.InitialCapital).
		Mul(decimal.NewFromInt(100))
}
