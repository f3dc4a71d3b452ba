package domain

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// DefaultTTLBlocks is the order lifetime applied when the reasoning
// backend does not set one.
const DefaultTTLBlocks = 50

// Decision is a single trading decision produced by the reasoning contract.
// Exactly one Decision exists per (agent, tick); it is immutable and consumed
// exactly once by the settlement writer.
type Decision struct {
	AgentID    string          `json:"agent_id"`
	Action     Action          `json:"-"`
	Commodity  string          `json:"commodity"`
	Price      decimal.Decimal `json:"price"`
	Qty        decimal.Decimal `json:"qty"`
	Reasoning  string          `json:"reasoning"`
	Confidence float64         `json:"confidence"` // 0.0 - 1.0
	TTLBlocks  uint64          `json:"ttl_blocks"`
}

// decisionPayload is the raw JSON shape the reasoning backend must produce.
type decisionPayload struct {
	Action     string  `json:"action"`
	Price      float64 `json:"price"`
	Qty        float64 `json:"qty"`
	Reasoning  string  `json:"reasoning"`
	Confidence float64 `json:"confidence"`
	TTLBlocks  uint64  `json:"ttl_blocks,omitempty"`
}

// NewDecision parses and validates a raw reasoning-backend response into a
// Decision for the given agent and commodity.
func NewDecision(agentID, commodity, raw string) (*Decision, error) {
	response := sanitizeDecisionPayload(raw)

	if !json.Valid([]byte(response)) {
		return nil, errors.New("invalid JSON structure")
	}

	var payload decisionPayload
	if err := json.Unmarshal([]byte(response), &payload); err != nil {
		return nil, errors.Wrap(err, "JSON unmarshal error")
	}

	action, ok := ParseAction(payload.Action)
	if !ok {
		return nil, fmt.Errorf("invalid action: %q", payload.Action)
	}

	decision := &Decision{
		AgentID:    agentID,
		Action:     action,
		Commodity:  commodity,
		Price:      decimal.NewFromFloat(payload.Price),
		Qty:        decimal.NewFromFloat(payload.Qty),
		Reasoning:  payload.Reasoning,
		Confidence: payload.Confidence,
		TTLBlocks:  payload.TTLBlocks,
	}
	if decision.TTLBlocks == 0 {
		decision.TTLBlocks = DefaultTTLBlocks
	}

	if err := decision.Validate(); err != nil {
		return nil, err
	}

	return decision, nil
}

func sanitizeDecisionPayload(raw string) string {
	response := strings.TrimSpace(raw)
	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")
	return strings.TrimSpace(response)
}

// Validate validates the decision.
func (d *Decision) Validate() error {
	if d.AgentID == "" {
		return errors.New("agent_id is required")
	}
	if d.Commodity == "" {
		return errors.New("commodity is required")
	}
	if d.Reasoning == "" {
		return errors.New("reasoning field is required")
	}
	if !isValidActionString(d.Action.String()) {
		return fmt.Errorf("invalid action: %s", d.Action)
	}
	if d.Confidence < 0 || d.Confidence > 1 {
		return fmt.Errorf("invalid confidence: %f (must be 0.0-1.0)", d.Confidence)
	}

	// price and quantity only matter for orders hitting the book
	if d.Action.Directional() {
		if d.Price.LessThanOrEqual(decimal.Zero) {
			return errors.New("price must be greater than 0 for BID/ASK")
		}
		if d.Qty.LessThanOrEqual(decimal.Zero) {
			return errors.New("qty must be greater than 0 for BID/ASK")
		}
	}

	return nil
}

// MarshalJSON emits the action as its string form alongside the other fields.
func (d Decision) MarshalJSON() ([]byte, error) {
	type alias Decision
	return json.Marshal(struct {
		alias
		Action string `json:"action"`
	}{alias: alias(d), Action: d.Action.String()})
}
