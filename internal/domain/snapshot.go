package domain

import "github.com/shopspring/decimal"

// MarketSnapshot is the frozen view of market conditions used for a single
// agent decision. It is constructed once per tick per agent and never mutated.
type MarketSnapshot struct {
	Commodity        string          `json:"commodity"`
	BestBid          decimal.Decimal `json:"best_bid"`
	BestAsk          decimal.Decimal `json:"best_ask"`
	MidPrice         decimal.Decimal `json:"mid_price"`
	Spread           decimal.Decimal `json:"spread"` // percent
	Volume24h        decimal.Decimal `json:"volume_24h"`
	PriceChange      decimal.Decimal `json:"price_change"` // percent over recent window
	DepthBid         int             `json:"orderbook_depth_bid"`
	DepthAsk         int             `json:"orderbook_depth_ask"`
	OraclePrice      decimal.Decimal `json:"oracle_price"`
	OracleConfidence float64         `json:"oracle_confidence"` // 0-1
}
