// Package reconcile turns chain receipts into the canonical transaction
// outcome returned by every execute endpoint.
package reconcile

import (
	"github.com/shopspring/decimal"

	"github.com/hxuan190/chain-gateway/internal/amount"
	"github.com/hxuan190/chain-gateway/internal/domain"
)

type State int

const (
	StatePending State = iota
	StateConfirmed
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateConfirmed:
		return "confirmed"
	case StateFailed:
		return "failed"
	default:
		return "pending"
	}
}

// Receipt is the chain-neutral view of a submitted transaction. Fee is in
// native units. Actual amounts are set when the chain reports them.
type Receipt struct {
	Signature       string
	State           State
	Slot            uint64
	Fee             decimal.Decimal
	ActualAmountIn  *decimal.Decimal
	ActualAmountOut *decimal.Decimal
	FailureReason   string
}

// Expectation is what the quote promised.
type Expectation struct {
	Side      domain.Side
	TokenIn   domain.Token
	TokenOut  domain.Token
	AmountIn  decimal.Decimal
	AmountOut decimal.Decimal
}

func ExpectationFromQuote(side domain.Side, q *domain.SwapQuote) Expectation {
	return Expectation{
		Side:      side,
		TokenIn:   q.TokenIn,
		TokenOut:  q.TokenOut,
		AmountIn:  q.AmountIn,
		AmountOut: q.AmountOut,
	}
}

// Reconcile maps a receipt onto a TransactionOutcome. Only a confirmed
// receipt carries swap data.
func Reconcile(r Receipt, e Expectation) domain.TransactionOutcome {
	switch r.State {
	case StateConfirmed:
	case StateFailed:
		return domain.TransactionOutcome{Signature: r.Signature, Status: domain.TxStatusFailed}
	default:
		return domain.TransactionOutcome{Signature: r.Signature, Status: domain.TxStatusPending}
	}

	in, out := e.AmountIn, e.AmountOut
	if r.ActualAmountIn != nil {
		in = *r.ActualAmountIn
	}
	if r.ActualAmountOut != nil {
		out = *r.ActualAmountOut
	}
	delta := amount.ComputeBalanceDelta(e.Side, in, out)

	return domain.TransactionOutcome{
		Signature: r.Signature,
		Status:    domain.TxStatusConfirmed,
		Data: &domain.SwapData{
			TokenIn:                 e.TokenIn.Address,
			TokenOut:                e.TokenOut.Address,
			AmountIn:                amount.ToFloat(in),
			AmountOut:               amount.ToFloat(out),
			Fee:                     amount.ToFloat(r.Fee),
			BaseTokenBalanceChange:  amount.ToFloat(delta.Base),
			QuoteTokenBalanceChange: amount.ToFloat(delta.Quote),
		},
	}
}
