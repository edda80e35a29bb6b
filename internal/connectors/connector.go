// Package connectors defines the closed set of swap connectors and the
// resolver that binds a configured swap provider to one of them.
package connectors

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/hxuan190/chain-gateway/internal/amount"
	"github.com/hxuan190/chain-gateway/internal/common"
	"github.com/hxuan190/chain-gateway/internal/domain"
	"github.com/hxuan190/chain-gateway/internal/reconcile"
)

type Type string

const (
	TypeRouter Type = "router"
	TypeAMM    Type = "amm"
	TypeCLMM   Type = "clmm"
)

func (t Type) Valid() bool {
	return t == TypeRouter || t == TypeAMM || t == TypeCLMM
}

// RequiresPool reports whether the connector is pinned to a registered pool.
func (t Type) RequiresPool() bool {
	return t == TypeAMM || t == TypeCLMM
}

func (t Type) PoolType() domain.PoolType {
	switch t {
	case TypeAMM:
		return domain.PoolTypeAMM
	case TypeCLMM:
		return domain.PoolTypeCLMM
	default:
		return ""
	}
}

// Provider is a parsed "<name>/<type>" swap provider.
type Provider struct {
	Name string
	Type Type
}

func (p Provider) String() string {
	return p.Name + "/" + string(p.Type)
}

// ParseProvider splits a swap provider string. A missing separator is a
// validation error; an unknown type is an unsupported provider.
func ParseProvider(s string) (Provider, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	name, typ, ok := strings.Cut(s, "/")
	if !ok || name == "" || typ == "" {
		return Provider{}, common.HTTPErrorValidation("swapProvider", fmt.Sprintf("expected <connector>/<type>, got %q", s))
	}
	p := Provider{Name: name, Type: Type(typ)}
	if !p.Type.Valid() {
		return Provider{}, common.HTTPErrorBadRequest(fmt.Sprintf("unsupported swap provider: %s", s))
	}
	return p, nil
}

func MustParseProvider(s string) Provider {
	p, err := ParseProvider(s)
	if err != nil {
		panic(err)
	}
	return p
}

// QuoteParams is a resolved quote request. Pool is set for amm and clmm
// connectors and nil for routers.
type QuoteParams struct {
	Network       string
	WalletAddress string
	Base          domain.Token
	Quote         domain.Token
	Side          domain.Side
	Amount        decimal.Decimal
	SlippagePct   float64
	Pool          *domain.Pool
}

// Tokens returns the tokens spent and received. SELL spends base, BUY
// spends quote.
func (p QuoteParams) Tokens() (in, out domain.Token) {
	if p.Side == domain.SideBuy {
		return p.Quote, p.Base
	}
	return p.Base, p.Quote
}

// ExactIn reports whether Amount fixes the input side of the trade.
func (p QuoteParams) ExactIn() bool {
	return p.Side != domain.SideBuy
}

func (p QuoteParams) Context() domain.QuoteRequestContext {
	return domain.QuoteRequestContext{
		Network:       p.Network,
		WalletAddress: p.WalletAddress,
		Base:          p.Base,
		Quote:         p.Quote,
		Side:          p.Side,
		Amount:        p.Amount,
		SlippagePct:   p.SlippagePct,
	}
}

// Connector quotes and executes swaps on one DEX or aggregator for one
// network.
type Connector interface {
	Provider() Provider
	Chain() string
	QuoteSwap(ctx context.Context, params QuoteParams) (*domain.SwapQuote, error)
	// ExecuteQuote submits the cached quote and waits for a bounded time.
	// A receipt that is still pending is a normal return.
	ExecuteQuote(ctx context.Context, cached *domain.CachedQuote) (*reconcile.Receipt, error)
}

// Priced is what a connector learned from its upstream before slippage
// bounds are applied.
type Priced struct {
	AmountIn       decimal.Decimal
	AmountOut      decimal.Decimal
	PriceImpactPct float64
	PoolAddress    string
	RoutePath      string
	RawTrade       any
}

// NewSwapQuote fills in tokens, price and slippage bounds. Price is quoted
// as quote token per base token for both sides.
func NewSwapQuote(chain string, provider Provider, params QuoteParams, priced Priced) (*domain.SwapQuote, error) {
	if !priced.AmountIn.IsPositive() || !priced.AmountOut.IsPositive() {
		return nil, common.HTTPErrorNotFound(fmt.Sprintf("%s returned an empty quote for %s-%s", provider, params.Base.Symbol, params.Quote.Symbol))
	}
	bounds, err := amount.SlippageBounds(params.Side, priced.AmountIn, priced.AmountOut, params.SlippagePct)
	if err != nil {
		return nil, common.HTTPErrorValidation("slippagePct", err.Error())
	}

	in, out := params.Tokens()
	price := priced.AmountOut.Div(priced.AmountIn)
	if params.Side == domain.SideBuy {
		price = priced.AmountIn.Div(priced.AmountOut)
	}

	poolAddress := priced.PoolAddress
	if poolAddress == "" && params.Pool != nil {
		poolAddress = params.Pool.Address
	}

	return &domain.SwapQuote{
		Chain:          chain,
		Network:        params.Network,
		Provider:       provider.String(),
		PoolAddress:    poolAddress,
		TokenIn:        in,
		TokenOut:       out,
		AmountIn:       priced.AmountIn,
		AmountOut:      priced.AmountOut,
		MinAmountOut:   bounds.MinAmountOut,
		MaxAmountIn:    bounds.MaxAmountIn,
		Price:          price,
		PriceImpactPct: priced.PriceImpactPct,
		SlippagePct:    params.SlippagePct,
		RoutePath:      priced.RoutePath,
		RawTrade:       priced.RawTrade,
	}, nil
}
