package domain

// Action represents the type of trading action an agent can take.
type Action int

const (
	ActionBid Action = iota
	ActionAsk
	ActionHold
	ActionPartner
)

// action string constants to avoid magic strings
const (
	actionStringBid     = "BID"
	actionStringAsk     = "ASK"
	actionStringHold    = "HOLD"
	actionStringPartner = "PARTNER"
)

// isValidActionString checks if the string is a valid action
func isValidActionString(s string) bool {
	switch s {
	case actionStringBid, actionStringAsk, actionStringHold, actionStringPartner:
		return true
	}
	return false
}

// ParseAction converts an action string to a typed Action.
func ParseAction(s string) (Action, bool) {
	switch s {
	case actionStringBid:
		return ActionBid, true
	case actionStringAsk:
		return ActionAsk, true
	case actionStringHold:
		return ActionHold, true
	case actionStringPartner:
		return ActionPartner, true
	default:
		return ActionHold, false
	}
}

// Directional reports whether the action posts an order on the book.
func (a Action) Directional() bool {
	return a == ActionBid || a == ActionAsk
}

// String returns the string representation of the action
func (a Action) String() string {
	switch a {
	case ActionBid:
		return actionStringBid
	case ActionAsk:
		return actionStringAsk
	case ActionHold:
		return actionStringHold
	case ActionPartner:
		return actionStringPartner
	default:
		return "unknown"
	}
}
