package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kkdrhn/GhostBroker/internal/domain"
)

type fakeRegistry struct {
	agents []domain.AgentProfile
}

func (f *fakeRegistry) List() []domain.AgentProfile { return f.agents }

func (f *fakeRegistry) Update(profile domain.AgentProfile) error {
	for i := range f.agents {
		if f.agents[i].AgentID == profile.AgentID {
			f.agents[i] = profile
			return nil
		}
	}
	return errors.New("unknown agent")
}

type fakeAggregator struct{}

func (f *fakeAggregator) SyntheticSnapshot(_ context.Context, commodity string) domain.MarketSnapshot {
	return domain.MarketSnapshot{
		Commodity:        commodity,
		MidPrice:         decimal.NewFromInt(1),
		OraclePrice:      decimal.NewFromInt(1),
		OracleConfidence: 0.98,
	}
}

// fakeBrain fails for the agents listed in failFor. It holds unless an
// explicit action is set.
type fakeBrain struct {
	mu      sync.Mutex
	failFor map[string]bool
	asked   []string
	action  string
	price   decimal.Decimal
	qty     decimal.Decimal
}

func (f *fakeBrain) Decide(_ context.Context, profile domain.AgentProfile, snapshot domain.MarketSnapshot) (*domain.Decision, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.asked = append(f.asked, profile.AgentID)
	if f.failFor[profile.AgentID] {
		return nil, errors.New("reasoning unavailable")
	}
	action := domain.ActionHold
	if f.action != "" {
		action, _ = domain.ParseAction(f.action)
	}
	price := snapshot.MidPrice
	if !f.price.IsZero() {
		price = f.price
	}
	return &domain.Decision{
		AgentID:    profile.AgentID,
		Action:     action,
		Commodity:  snapshot.Commodity,
		Price:      price,
		Qty:        f.qty,
		Reasoning:  "steady",
		Confidence: 0.6,
		TTLBlocks:  domain.DefaultTTLBlocks,
	}, nil
}

type fakeWriter struct {
	mu      sync.Mutex
	settled []string
}

func (f *fakeWriter) WriteDecision(_ context.Context, decision *domain.Decision, _ uint64) domain.SettlementResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settled = append(f.settled, decision.AgentID)
	return domain.SettlementResult{AgentID: decision.AgentID, TickTx: "0x1"}
}

type fakeStore struct {
	mu     sync.Mutex
	events []domain.DecisionEvent
}

func (f *fakeStore) Save(event domain.DecisionEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

type fakeHub struct {
	mu       sync.Mutex
	channels []string
}

func (f *fakeHub) Broadcast(channel string, _ any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.channels = append(f.channels, channel)
}

type fakeRanker struct {
	top string
}

func (f *fakeRanker) Highest([]string) string { return f.top }

func agentProfile(id string, strategy domain.Strategy) domain.AgentProfile {
	return domain.AgentProfile{
		AgentID:        id,
		Strategy:       strategy,
		Capital:        decimal.NewFromInt(1000),
		InitialCapital: decimal.NewFromInt(1000),
	}
}

func TestSchedulerTick(t *testing.T) {
	commodities := []string{"GHOST_ORE", "PHANTOM_GAS", "VOID_CHIP", "MON_USDC"}

	t.Run("failed agent does not block the rest", func(t *testing.T) {
		registry := &fakeRegistry{agents: []domain.AgentProfile{
			agentProfile("a1", domain.StrategyAggressive),
			agentProfile("a2", domain.StrategyBalanced),
			agentProfile("a3", domain.StrategyConservative),
		}}
		brains := &fakeBrain{failFor: map[string]bool{"a2": true}}
		writer := &fakeWriter{}
		store := &fakeStore{}
		fanout := &fakeHub{}

		s := NewScheduler(registry, &fakeAggregator{}, brains, writer, store, fanout, &fakeRanker{top: "GHOST_ORE"},
			commodities, 1, time.Millisecond, zap.NewNop())

		s.runTick(context.Background())

		assert.Equal(t, []string{"a1", "a2", "a3"}, brains.asked, "agents run in registration order")
		assert.Equal(t, []string{"a1", "a3"}, writer.settled, "failed agent is skipped, others settle")
		require.Len(t, store.events, 2)
		assert.Contains(t, fanout.channels, "agent.decisions")
	})

	t.Run("settled bid reduces capital", func(t *testing.T) {
		registry := &fakeRegistry{agents: []domain.AgentProfile{agentProfile("a1", domain.StrategyBalanced)}}
		brains := &fakeBrain{action: "BID", price: decimal.NewFromInt(2), qty: decimal.NewFromInt(50)}
		s := NewScheduler(registry, &fakeAggregator{}, brains, &fakeWriter{}, &fakeStore{}, &fakeHub{},
			&fakeRanker{}, commodities, 1, time.Millisecond, zap.NewNop())

		s.runTick(context.Background())

		assert.True(t, registry.agents[0].Capital.Equal(decimal.NewFromInt(900)),
			"1000 - 2*50, got %s", registry.agents[0].Capital)
		assert.True(t, registry.agents[0].InitialCapital.Equal(decimal.NewFromInt(1000)))
	})

	t.Run("hold leaves capital untouched", func(t *testing.T) {
		registry := &fakeRegistry{agents: []domain.AgentProfile{agentProfile("a1", domain.StrategyBalanced)}}
		s := NewScheduler(registry, &fakeAggregator{}, &fakeBrain{}, &fakeWriter{}, &fakeStore{}, &fakeHub{},
			&fakeRanker{}, commodities, 1, time.Millisecond, zap.NewNop())

		s.runTick(context.Background())

		assert.True(t, registry.agents[0].Capital.Equal(decimal.NewFromInt(1000)))
	})

	t.Run("run loop stops on cancel", func(t *testing.T) {
		registry := &fakeRegistry{agents: []domain.AgentProfile{agentProfile("a1", domain.StrategyBalanced)}}
		s := NewScheduler(registry, &fakeAggregator{}, &fakeBrain{}, &fakeWriter{}, &fakeStore{}, &fakeHub{},
			&fakeRanker{}, commodities, 1, time.Millisecond, zap.NewNop())

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- s.Run(ctx) }()

		require.Eventually(t, func() bool { return s.State() == StateRunning }, time.Second, time.Millisecond)
		require.Eventually(t, func() bool { return s.Tick() > 0 }, time.Second, time.Millisecond)

		cancel()
		select {
		case err := <-done:
			assert.ErrorIs(t, err, context.Canceled)
		case <-time.After(time.Second):
			t.Fatal("scheduler did not stop")
		}
		assert.Equal(t, StateStopped, s.State())
	})
}

func TestSelectCommodity(t *testing.T) {
	commodities := []string{"GHOST_ORE", "PHANTOM_GAS", "VOID_CHIP", "MON_USDC"}
	ranker := &fakeRanker{top: "VOID_CHIP"}

	t.Run("aggressive follows volatility", func(t *testing.T) {
		assert.Equal(t, "VOID_CHIP", SelectCommodity(domain.StrategyAggressive, 1, commodities, ranker))
		assert.Equal(t, "GHOST_ORE", SelectCommodity(domain.StrategyAggressive, 1, commodities, &fakeRanker{}))
	})

	t.Run("conservative rotates over the first three", func(t *testing.T) {
		got := make(map[string]bool)
		for tick := uint64(1); tick <= 9; tick++ {
			got[SelectCommodity(domain.StrategyConservative, tick, commodities, ranker)] = true
		}
		assert.Equal(t, map[string]bool{"GHOST_ORE": true, "PHANTOM_GAS": true, "VOID_CHIP": true}, got)
	})

	t.Run("balanced rotates over the full list", func(t *testing.T) {
		got := make(map[string]bool)
		for tick := uint64(1); tick <= 8; tick++ {
			got[SelectCommodity(domain.StrategyBalanced, tick, commodities, ranker)] = true
		}
		assert.Len(t, got, 4)
	})

	t.Run("deterministic per tick", func(t *testing.T) {
		for tick := uint64(1); tick <= 20; tick++ {
			first := SelectCommodity(domain.StrategyBalanced, tick, commodities, ranker)
			second := SelectCommodity(domain.StrategyBalanced, tick, commodities, ranker)
			assert.Equal(t, first, second)
		}
	})

	t.Run("empty list", func(t *testing.T) {
		assert.Empty(t, SelectCommodity(domain.StrategyBalanced, 1, nil, ranker))
	})
}
