// Package scheduler drives the decision pipeline: on every tick each agent
// gets a market snapshot, a decision, an on-chain settlement and a durable
// event record.
package scheduler

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/kkdrhn/GhostBroker/internal/domain"
	"github.com/kkdrhn/GhostBroker/internal/services/brain"
	"github.com/kkdrhn/GhostBroker/internal/services/hub"
)

// Scheduler states.
const (
	StateStopped int32 = iota
	StateRunning
)

const (
	defaultTickBlocks = 2
	defaultBlockTime  = 400 * time.Millisecond
)

type agentRegistry interface {
	List() []domain.AgentProfile
	Update(profile domain.AgentProfile) error
}

type snapshotBuilder interface {
	SyntheticSnapshot(ctx context.Context, commodity string) domain.MarketSnapshot
}

type settlementWriter interface {
	WriteDecision(ctx context.Context, decision *domain.Decision, tokenID uint64) domain.SettlementResult
}

type eventStore interface {
	Save(event domain.DecisionEvent) error
}

type broadcaster interface {
	Broadcast(channel string, payload any)
}

type volatilityRanker interface {
	Highest(candidates []string) string
}

// Scheduler runs the tick loop. Agents are processed strictly one after
// another within a tick, which keeps settlement ordering deterministic.
type Scheduler struct {
	registry    agentRegistry
	aggregator  snapshotBuilder
	brains      brain.Brain
	writer      settlementWriter
	store       eventStore
	hub         broadcaster
	vol         volatilityRanker
	commodities []string
	interval    time.Duration
	logger      *zap.Logger

	state atomic.Int32
	tick  atomic.Uint64
}

// NewScheduler creates a stopped scheduler. The tick interval is
// tickBlocks * blockTime; non-positive inputs fall back to the defaults.
func NewScheduler(registry agentRegistry, aggregator snapshotBuilder, brains brain.Brain,
	writer settlementWriter, store eventStore, broadcast broadcaster, vol volatilityRanker,
	commodities []string, tickBlocks int, blockTime time.Duration, logger *zap.Logger) *Scheduler {

	if tickBlocks <= 0 {
		tickBlocks = defaultTickBlocks
	}
	if blockTime <= 0 {
		blockTime = defaultBlockTime
	}

	return &Scheduler{
		registry:    registry,
		aggregator:  aggregator,
		brains:      brains,
		writer:      writer,
		store:       store,
		hub:         broadcast,
		vol:         vol,
		commodities: commodities,
		interval:    time.Duration(tickBlocks) * blockTime,
		logger:      logger,
	}
}

// State returns StateStopped or StateRunning.
func (s *Scheduler) State() int32 {
	return s.state.Load()
}

// Tick returns the number of completed ticks.
func (s *Scheduler) Tick() uint64 {
	return s.tick.Load()
}

// Run executes the tick loop until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	s.state.Store(StateRunning)
	defer s.state.Store(StateStopped)

	s.logger.Info("scheduler started",
		zap.Duration("tick_interval", s.interval),
		zap.Strings("commodities", s.commodities))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped", zap.Uint64("ticks", s.tick.Load()))
			return ctx.Err()
		case <-ticker.C:
			s.runTick(ctx)
		}
	}
}

func (s *Scheduler) runTick(ctx context.Context) {
	tick := s.tick.Add(1)
	agents := s.registry.List()
	if len(agents) == 0 {
		return
	}

	for _, profile := range agents {
		if ctx.Err() != nil {
			return
		}
		s.runAgent(ctx, tick, profile)
	}
}

// runAgent handles a single agent's turn. A failure at any stage is contained
// to this agent; the remaining agents in the tick still run.
func (s *Scheduler) runAgent(ctx context.Context, tick uint64, profile domain.AgentProfile) {
	commodity := SelectCommodity(profile.Strategy, tick, s.commodities, s.vol)
	snapshot := s.aggregator.SyntheticSnapshot(ctx, commodity)

	decision, err := s.brains.Decide(ctx, profile, snapshot)
	if err != nil {
		s.logger.Error("decision failed, skipping agent",
			zap.Uint64("tick", tick), zap.String("agent", profile.AgentID), zap.Error(err))
		return
	}

	s.logger.Info("decision",
		zap.Uint64("tick", tick),
		zap.String("agent", profile.AgentID),
		zap.String("action", decision.Action.String()),
		zap.String("commodity", decision.Commodity),
		zap.Float64("confidence", decision.Confidence))

	result := s.writer.WriteDecision(ctx, decision, profile.TokenID)

	if decision.Action.Directional() && !result.Failed() {
		notional := decision.Price.Mul(decision.Qty)
		if decision.Action == domain.ActionBid {
			profile.Capital = profile.Capital.Sub(notional)
		} else {
			profile.Capital = profile.Capital.Add(notional)
		}
		if err := s.registry.Update(profile); err != nil {
			s.logger.Error("failed to update agent capital",
				zap.Uint64("tick", tick), zap.String("agent", profile.AgentID), zap.Error(err))
		}
	}

	event := domain.NewDecisionEvent(tick, profile, decision, result)
	if err := s.store.Save(event); err != nil {
		s.logger.Error("failed to persist decision event",
			zap.Uint64("tick", tick), zap.String("agent", profile.AgentID), zap.Error(err))
	}

	s.hub.Broadcast(hub.ChannelDecisions, map[string]any{"type": "decision", "data": event})
	s.hub.Broadcast(hub.PriceChannel(commodity), map[string]any{
		"type": "price",
		"data": map[string]any{
			"commodity": commodity,
			"mid":       snapshot.MidPrice.String(),
			"oracle":    snapshot.OraclePrice.String(),
			"tick":      tick,
		},
	})
	s.hub.Broadcast(hub.ChannelOraclePrices, map[string]any{
		"type": "oracle_price",
		"data": map[string]any{
			"commodity":  commodity,
			"price":      snapshot.OraclePrice.String(),
			"confidence": snapshot.OracleConfidence,
		},
	})
	if decision.Action == domain.ActionPartner {
		s.hub.Broadcast(hub.ChannelPartnerships, map[string]any{"type": "partnership", "data": event})
	}
}

// SelectCommodity picks the commodity an agent inspects this tick. Aggressive
// agents chase the highest-volatility market, conservative agents rotate over
// the first three, balanced agents rotate over the whole list.
func SelectCommodity(strategy domain.Strategy, tick uint64, commodities []string, vol volatilityRanker) string {
	if len(commodities) == 0 {
		return ""
	}

	switch strategy {
	case domain.StrategyAggressive:
		if pick := vol.Highest(commodities); pick != "" {
			return pick
		}
		return commodities[0]
	case domain.StrategyConservative:
		n := uint64(len(commodities))
		if n > 3 {
			n = 3
		}
		return commodities[tick%n]
	default:
		return commodities[tick%uint64(len(commodities))]
	}
}
