package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SwapQuote is a priced offer produced by a connector. RawTrade carries the
// connector-specific payload needed to replay execution without re-quoting.
type SwapQuote struct {
	QuoteID     string
	Chain       string
	Network     string
	Provider    string
	PoolAddress string

	TokenIn  Token
	TokenOut Token

	AmountIn     decimal.Decimal
	AmountOut    decimal.Decimal
	MinAmountOut decimal.Decimal
	MaxAmountIn  decimal.Decimal
	Price        decimal.Decimal

	PriceImpactPct float64
	SlippagePct    float64
	RoutePath      string

	RawTrade any
}

// QuoteRequestContext is the resolved request a quote was priced for.
type QuoteRequestContext struct {
	Network       string
	WalletAddress string
	Base          Token
	Quote         Token
	Side          Side
	Amount        decimal.Decimal
	SlippagePct   float64
}

// CachedQuote is the value stored under a quote id between quote and execute.
type CachedQuote struct {
	Quote     *SwapQuote
	Request   QuoteRequestContext
	CreatedAt time.Time
}

// QuoteSwapResponse is the canonical quote shape for every chain.
type QuoteSwapResponse struct {
	QuoteID        string  `json:"quoteId,omitempty"`
	TokenIn        string  `json:"tokenIn"`
	TokenOut       string  `json:"tokenOut"`
	AmountIn       float64 `json:"amountIn"`
	AmountOut      float64 `json:"amountOut"`
	Price          float64 `json:"price"`
	PriceImpactPct float64 `json:"priceImpactPct"`
	MinAmountOut   float64 `json:"minAmountOut"`
	MaxAmountIn    float64 `json:"maxAmountIn"`
	PoolAddress    string  `json:"poolAddress,omitempty"`
	RoutePath      string  `json:"routePath,omitempty"`
	SlippagePct    float64 `json:"slippagePct,omitempty"`
}

// ToResponse converts the quote to its wire shape; decimals become floats
// only here.
func (q *SwapQuote) ToResponse() QuoteSwapResponse {
	return QuoteSwapResponse{
		QuoteID:        q.QuoteID,
		TokenIn:        q.TokenIn.Address,
		TokenOut:       q.TokenOut.Address,
		AmountIn:       q.AmountIn.InexactFloat64(),
		AmountOut:      q.AmountOut.InexactFloat64(),
		Price:          q.Price.InexactFloat64(),
		PriceImpactPct: q.PriceImpactPct,
		MinAmountOut:   q.MinAmountOut.InexactFloat64(),
		MaxAmountIn:    q.MaxAmountIn.InexactFloat64(),
		PoolAddress:    q.PoolAddress,
		RoutePath:      q.RoutePath,
		SlippagePct:    q.SlippagePct,
	}
}
