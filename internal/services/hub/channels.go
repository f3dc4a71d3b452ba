package hub

import "strings"

// Static broadcast channels.
const (
	ChannelTrades       = "market.trades"
	ChannelLifecycle    = "agent.lifecycle"
	ChannelDecisions    = "agent.decisions"
	ChannelBatch        = "engine.batch"
	ChannelBurns        = "token.burns"
	ChannelRewards      = "stake.rewards"
	ChannelPartnerships = "partnerships"
	ChannelOraclePrices = "oracle.prices"
	ChannelBlocks       = "chain.block"
)

// Dynamic per-commodity channel prefixes.
const (
	PrefixOrderbook = "market.orderbook."
	PrefixPrice     = "market.price."
)

var staticChannels = map[string]struct{}{
	ChannelTrades:       {},
	ChannelLifecycle:    {},
	ChannelDecisions:    {},
	ChannelBatch:        {},
	ChannelBurns:        {},
	ChannelRewards:      {},
	ChannelPartnerships: {},
	ChannelOraclePrices: {},
	ChannelBlocks:       {},
}

// ValidChannel reports whether name is a known static channel or a dynamic
// per-commodity channel with a non-empty suffix.
func ValidChannel(name string) bool {
	if _, ok := staticChannels[name]; ok {
		return true
	}
	for _, prefix := range []string{PrefixOrderbook, PrefixPrice} {
		if strings.HasPrefix(name, prefix) && len(name) > len(prefix) {
			return true
		}
	}
	return false
}

// PriceChannel returns the dynamic price channel for a commodity.
func PriceChannel(commodity string) string {
	return PrefixPrice + commodity
}

// OrderbookChannel returns the dynamic order book channel for a commodity.
func OrderbookChannel(commodity string) string {
	return PrefixOrderbook + commodity
}
