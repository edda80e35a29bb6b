package events

import (
	"time"

	"github.com/hxuan190/chain-gateway/internal/domain"
)

// SwapOutcomeEvent is published once per executed quote.
type SwapOutcomeEvent struct {
	Chain         string           `json:"chain"`
	Network       string           `json:"network"`
	Provider      string           `json:"provider"`
	QuoteID       string           `json:"quoteId,omitempty"`
	WalletAddress string           `json:"walletAddress"`
	Side          domain.Side      `json:"side"`
	Signature     string           `json:"signature"`
	Status        domain.TxStatus  `json:"status"`
	Data          *domain.SwapData `json:"data,omitempty"`
	Timestamp     time.Time        `json:"timestamp"`
}

// NewSwapOutcomeEvent builds the event for an outcome of cached.
func NewSwapOutcomeEvent(cached *domain.CachedQuote, outcome domain.TransactionOutcome) *SwapOutcomeEvent {
	return &SwapOutcomeEvent{
		Chain:         cached.Quote.Chain,
		Network:       cached.Quote.Network,
		Provider:      cached.Quote.Provider,
		QuoteID:       cached.Quote.QuoteID,
		WalletAddress: cached.Request.WalletAddress,
		Side:          cached.Request.Side,
		Signature:     outcome.Signature,
		Status:        outcome.Status,
		Data:          outcome.Data,
		Timestamp:     time.Now().UTC(),
	}
}
