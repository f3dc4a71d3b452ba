package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDecision(t *testing.T) {
	t.Run("plain JSON", func(t *testing.T) {
		raw := `{"action":"BID","price":1.05,"qty":100,"reasoning":"cheap","confidence":0.8}`
		decision, err := NewDecision("agent-1", "GHOST_ORE", raw)
		require.NoError(t, err)
		assert.Equal(t, ActionBid, decision.Action)
		assert.Equal(t, "GHOST_ORE", decision.Commodity)
		assert.True(t, decision.Price.Equal(decimal.NewFromFloat(1.05)))
		assert.True(t, decision.Qty.Equal(decimal.NewFromInt(100)))
		assert.Equal(t, uint64(DefaultTTLBlocks), decision.TTLBlocks)
	})

	t.Run("markdown fenced JSON", func(t *testing.T) {
		raw := "```json\n{\"action\":\"HOLD\",\"price\":0,\"qty\":0,\"reasoning\":\"waiting\",\"confidence\":0.6}\n```"
		decision, err := NewDecision("agent-1", "VOID_CHIP", raw)
		require.NoError(t, err)
		assert.Equal(t, ActionHold, decision.Action)
	})

	t.Run("explicit ttl preserved", func(t *testing.T) {
		raw := `{"action":"ASK","price":2,"qty":5,"reasoning":"sell","confidence":0.9,"ttl_blocks":12}`
		decision, err := NewDecision("agent-1", "PHANTOM_GAS", raw)
		require.NoError(t, err)
		assert.Equal(t, uint64(12), decision.TTLBlocks)
	})

	t.Run("invalid action rejected", func(t *testing.T) {
		raw := `{"action":"YOLO","price":1,"qty":1,"reasoning":"x","confidence":0.5}`
		_, err := NewDecision("agent-1", "GHOST_ORE", raw)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid action")
	})

	t.Run("not JSON", func(t *testing.T) {
		_, err := NewDecision("agent-1", "GHOST_ORE", "I would like to buy some ore please")
		require.Error(t, err)
	})

	t.Run("confidence out of bounds", func(t *testing.T) {
		raw := `{"action":"HOLD","price":0,"qty":0,"reasoning":"x","confidence":1.5}`
		_, err := NewDecision("agent-1", "GHOST_ORE", raw)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "confidence")
	})

	t.Run("directional order needs positive price and qty", func(t *testing.T) {
		raw := `{"action":"BID","price":0,"qty":10,"reasoning":"x","confidence":0.5}`
		_, err := NewDecision("agent-1", "GHOST_ORE", raw)
		require.Error(t, err)

		raw = `{"action":"BID","price":1,"qty":0,"reasoning":"x","confidence":0.5}`
		_, err = NewDecision("agent-1", "GHOST_ORE", raw)
		require.Error(t, err)
	})

	t.Run("hold allows zero price", func(t *testing.T) {
		raw := `{"action":"HOLD","price":0,"qty":0,"reasoning":"flat","confidence":0.5}`
		_, err := NewDecision("agent-1", "GHOST_ORE", raw)
		require.NoError(t, err)
	})

	t.Run("reasoning required", func(t *testing.T) {
		raw := `{"action":"HOLD","price":0,"qty":0,"confidence":0.5}`
		_, err := NewDecision("agent-1", "GHOST_ORE", raw)
		require.Error(t, err)
	})
}

func TestParseAction(t *testing.T) {
	for _, name := range []string{"BID", "ASK", "HOLD", "PARTNER"} {
		action, ok := ParseAction(name)
		require.True(t, ok, name)
		assert.Equal(t, name, action.String())
	}

	_, ok := ParseAction("bid")
	assert.False(t, ok)
}

func TestActionDirectional(t *testing.T) {
	assert.True(t, ActionBid.Directional())
	assert.True(t, ActionAsk.Directional())
	assert.False(t, ActionHold.Directional())
	assert.False(t, ActionPartner.Directional())
}

func TestDecisionMarshalJSON(t *testing.T) {
	decision := Decision{
		AgentID:    "agent-1",
		Action:     ActionAsk,
		Commodity:  "GHOST_ORE",
		Price:      decimal.NewFromInt(2),
		Qty:        decimal.NewFromInt(3),
		Reasoning:  "sell",
		Confidence: 0.7,
		TTLBlocks:  50,
	}
	payload, err := decision.MarshalJSON()
	require.NoError(t, err)
	assert.Contains(t, string(payload), `"action":"ASK"`)
}
