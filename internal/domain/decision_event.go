package domain

import "time"

// DecisionEvent is the durable record of one agent tick: the decision taken
// and how its settlement ended. Written to the decision WAL and broadcast on
// the agent.decisions channel.
type DecisionEvent struct {
	Tick       uint64    `json:"tick"`
	AgentID    string    `json:"agent_id"`
	Strategy   Strategy  `json:"strategy"`
	Action     string    `json:"action"`
	Commodity  string    `json:"commodity"`
	Price      string    `json:"price"`
	Qty        string    `json:"qty"`
	Confidence float64   `json:"confidence"`
	Reasoning  string    `json:"reasoning,omitempty"`
	TickTx     string    `json:"tick_tx,omitempty"`
	OrderTx    string    `json:"order_tx,omitempty"`
	Err        string    `json:"error,omitempty"`
	Ts         time.Time `json:"ts"`
}

// NewDecisionEvent builds the event for a settled (or failed) decision.
func NewDecisionEvent(tick uint64, profile AgentProfile, decision *Decision, result SettlementResult) DecisionEvent {
	event := DecisionEvent{
		Tick:     tick,
		AgentID:  profile.AgentID,
		Strategy: profile.Strategy,
		Ts:       time.Now().UTC(),
	}
	if decision != nil {
		event.Action = decision.Action.String()
		event.Commodity = decision.Commodity
		event.Price = decision.Price.String()
		event.Qty = decision.Qty.String()
		event.Confidence = decision.Confidence
		event.Reasoning = decision.Reasoning
	}
	event.TickTx = result.TickTx
	event.OrderTx = result.OrderTx
	event.Err = result.Err
	return event
}

// DecisionEventRecord pairs an event with its WAL index.
type DecisionEventRecord struct {
	Index uint64        `json:"index"`
	Event DecisionEvent `json:"event"`
}
