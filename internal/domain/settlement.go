package domain

// SettlementResult is the outcome of writing one Decision on-chain. It is
// always paired 1:1 with a Decision: either transaction hashes on success or
// an explicit error on failure.
type SettlementResult struct {
	AgentID string `json:"agent_id"`
	Tick    uint64 `json:"tick"`
	// TickTx is the hash of the audit-trail recordTick transaction.
	TickTx string `json:"tick_tx,omitempty"`
	// OrderTx is the hash of the postOrder transaction, set for BID/ASK only.
	OrderTx string `json:"order_tx,omitempty"`
	Err     string `json:"error,omitempty"`
}

// Failed reports whether the settlement did not land on-chain.
func (r SettlementResult) Failed() bool {
	return r.Err != ""
}

// TxHash returns the most specific transaction hash of the settlement:
// the order tx when one was posted, otherwise the tick record tx.
func (r SettlementResult) TxHash() string {
	if r.OrderTx != "" {
		return r.OrderTx
	}
	return r.TickTx
}
