package decisions

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kkdrhn/GhostBroker/internal/domain"
)

func testEvent(tick uint64, agentID string) domain.DecisionEvent {
	return domain.DecisionEvent{
		Tick:       tick,
		AgentID:    agentID,
		Strategy:   domain.StrategyBalanced,
		Action:     "HOLD",
		Commodity:  "GHOST_ORE",
		Price:      "1",
		Qty:        "0",
		Confidence: 0.6,
		Reasoning:  "steady",
		TickTx:     "0x1",
		Ts:         time.Now().UTC(),
	}
}

func TestWALStore(t *testing.T) {
	store, err := NewWALStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	t.Run("save and replay", func(t *testing.T) {
		require.NoError(t, store.Save(testEvent(1, "a1")))
		require.NoError(t, store.Save(testEvent(1, "a2")))
		require.NoError(t, store.Save(testEvent(2, "a1")))

		records, err := store.EventsAfter(0)
		require.NoError(t, err)
		require.Len(t, records, 3)
		assert.Equal(t, "a1", records[0].Event.AgentID)
		assert.Equal(t, uint64(2), records[2].Event.Tick)

		// indexes are strictly increasing
		for i := 1; i < len(records); i++ {
			assert.Greater(t, records[i].Index, records[i-1].Index)
		}
	})

	t.Run("replay from offset", func(t *testing.T) {
		current := store.CurrentIndex()
		records, err := store.EventsAfter(current)
		require.NoError(t, err)
		assert.Empty(t, records)

		require.NoError(t, store.Save(testEvent(3, "a2")))
		records, err = store.EventsAfter(current)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, uint64(3), records[0].Event.Tick)
	})

	t.Run("agent id required", func(t *testing.T) {
		err := store.Save(domain.DecisionEvent{Tick: 1})
		require.Error(t, err)
	})
}

func TestWALStoreUninitialized(t *testing.T) {
	var store *WALStore
	assert.Error(t, store.Save(testEvent(1, "a1")))
	_, err := store.EventsAfter(0)
	assert.Error(t, err)
	assert.Equal(t, uint64(0), store.CurrentIndex())
}
