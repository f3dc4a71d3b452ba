package brain

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/kkdrhn/GhostBroker/internal/clients"
	"github.com/kkdrhn/GhostBroker/internal/domain"
	"github.com/kkdrhn/GhostBroker/internal/services/promptbuilder"
)

const defaultDecisionTimeout = 30 * time.Second

// LLMBrain asks an LLM for each decision, with a per-strategy persona prompt.
type LLMBrain struct {
	client  clients.LLMClient
	prompts *promptbuilder.PromptBuilder
	timeout time.Duration
	logger  *zap.Logger
}

// NewLLMBrain creates an LLM-backed reasoning implementation.
func NewLLMBrain(client clients.LLMClient, timeout time.Duration, logger *zap.Logger) *LLMBrain {
	if timeout <= 0 {
		timeout = defaultDecisionTimeout
	}
	return &LLMBrain{
		client:  client,
		prompts: promptbuilder.NewPromptBuilder(),
		timeout: timeout,
		logger:  logger,
	}
}

// Decide renders the prompts, queries the LLM and parses the response into a
// validated Decision.
func (b *LLMBrain) Decide(ctx context.Context, profile domain.AgentProfile, snapshot domain.MarketSnapshot) (*domain.Decision, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	systemPrompt := b.prompts.BuildSystemPrompt(profile)
	userPrompt := b.prompts.BuildUserPrompt(profile, snapshot)

	raw, err := b.client.Chat(ctx, systemPrompt, userPrompt)
	if err != nil {
		return nil, errors.Wrap(err, "reasoning backend request failed")
	}

	decision, err := domain.NewDecision(profile.AgentID, snapshot.Commodity, raw)
	if err != nil {
		b.logger.Debug("unparseable reasoning response",
			zap.String("agent", profile.AgentID), zap.String("raw", raw))
		return nil, errors.Wrap(err, "failed to parse reasoning response")
	}

	return decision, nil
}
