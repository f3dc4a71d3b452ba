package domain

import "fmt"

// Strategy identifies the behavioral profile of an agent.
type Strategy string

const (
	StrategyAggressive   Strategy = "aggressive"
	StrategyBalanced     Strategy = "balanced"
	StrategyConservative Strategy = "conservative"
)

// ParseStrategy validates and converts a strategy string.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyAggressive, StrategyBalanced, StrategyConservative:
		return Strategy(s), nil
	default:
		return "", fmt.Errorf("unknown strategy: %s", s)
	}
}

func (s Strategy) String() string {
	return string(s)
}
