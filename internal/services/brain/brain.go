// Package brain implements the reasoning contract that maps an agent profile
// and a market snapshot to a trading decision.
package brain

import (
	"context"

	"github.com/kkdrhn/GhostBroker/internal/domain"
)

// Brain is the reasoning contract. Implementations must either return a
// well-formed Decision or an error; there are no partial results.
type Brain interface {
	Decide(ctx context.Context, profile domain.AgentProfile, snapshot domain.MarketSnapshot) (*domain.Decision, error)
}
