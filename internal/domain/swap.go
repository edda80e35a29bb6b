package domain

import (
	"fmt"
	"strings"
)

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

func ParseSide(s string) (Side, error) {
	switch Side(strings.ToUpper(strings.TrimSpace(s))) {
	case SideBuy:
		return SideBuy, nil
	case SideSell:
		return SideSell, nil
	default:
		return "", fmt.Errorf("side must be BUY or SELL, got %q", s)
	}
}

// TxStatus is the canonical transaction status. The numeric values are part
// of the wire contract.
type TxStatus int

const (
	TxStatusFailed    TxStatus = -1
	TxStatusPending   TxStatus = 0
	TxStatusConfirmed TxStatus = 1
)

func (s TxStatus) String() string {
	switch s {
	case TxStatusFailed:
		return "FAILED"
	case TxStatusPending:
		return "PENDING"
	case TxStatusConfirmed:
		return "CONFIRMED"
	default:
		return "UNKNOWN"
	}
}

// SwapData holds the settled amounts of a confirmed swap in human units.
type SwapData struct {
	TokenIn                 string  `json:"tokenIn"`
	TokenOut                string  `json:"tokenOut"`
	AmountIn                float64 `json:"amountIn"`
	AmountOut               float64 `json:"amountOut"`
	Fee                     float64 `json:"fee"`
	BaseTokenBalanceChange  float64 `json:"baseTokenBalanceChange"`
	QuoteTokenBalanceChange float64 `json:"quoteTokenBalanceChange"`
}

// TransactionOutcome is the chain-agnostic result of a submitted swap.
// Data is set if and only if Status is TxStatusConfirmed.
type TransactionOutcome struct {
	Signature string    `json:"signature"`
	Status    TxStatus  `json:"status"`
	Data      *SwapData `json:"data,omitempty"`
}

// ExecuteSwapResponse is returned by every execute endpoint.
type ExecuteSwapResponse = TransactionOutcome

// PollResponse reports the status of an arbitrary signature. Transaction
// level anomalies (bad format, unknown signature) are carried in Error
// rather than failing the request.
type PollResponse struct {
	Signature string   `json:"signature"`
	Status    TxStatus `json:"status"`
	Slot      uint64   `json:"slot,omitempty"`
	Fee       *float64 `json:"fee,omitempty"`
	Error     string   `json:"error,omitempty"`
}
