// Package gateway is the chain-agnostic front door: it parses chain-network
// selectors and dispatches quote, execute and poll requests to the swapper
// registered for each chain.
package gateway

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/hxuan190/chain-gateway/internal/common"
	"github.com/hxuan190/chain-gateway/internal/connectors"
	"github.com/hxuan190/chain-gateway/internal/domain"
	"github.com/hxuan190/chain-gateway/internal/quotecache"
	"github.com/hxuan190/chain-gateway/internal/telemetry"
)

// Router holds one swapper per chain. It is built once at startup and
// shared by every handler.
type Router struct {
	swappers map[string]*ChainSwapper
	cache    quotecache.Store
}

func NewRouter(cache quotecache.Store) *Router {
	return &Router{
		swappers: make(map[string]*ChainSwapper),
		cache:    cache,
	}
}

func (r *Router) Register(s *ChainSwapper) error {
	if _, dup := r.swappers[s.Chain()]; dup {
		return fmt.Errorf("chain %s already registered", s.Chain())
	}
	r.swappers[s.Chain()] = s
	return nil
}

func (r *Router) Chains() []string {
	out := make([]string, 0, len(r.swappers))
	for chain := range r.swappers {
		out = append(out, chain)
	}
	sort.Strings(out)
	return out
}

// Swapper returns the swapper for chain, matched case-insensitively.
func (r *Router) Swapper(chain string) (*ChainSwapper, error) {
	s, ok := r.swappers[strings.ToLower(strings.TrimSpace(chain))]
	if !ok {
		return nil, common.HTTPErrorBadRequest(fmt.Sprintf("unsupported chain: %s", chain))
	}
	return s, nil
}

// Quote routes a unified quote to the swapper of the selector's chain.
func (r *Router) Quote(ctx context.Context, chainNetwork string, req SwapRequest) (q *domain.SwapQuote, err error) {
	cn, err := ParseChainNetwork(chainNetwork)
	if err != nil {
		return nil, err
	}
	s, err := r.Swapper(cn.Chain)
	if err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartSpan(ctx, "gateway.Quote", cn.Chain, cn.Network)
	defer func() { telemetry.End(span, err) }()

	req.Network = cn.Network
	return s.QuoteSwap(ctx, req)
}

// Execute quotes and executes in one call.
func (r *Router) Execute(ctx context.Context, chainNetwork string, req SwapRequest) (out domain.TransactionOutcome, err error) {
	cn, err := ParseChainNetwork(chainNetwork)
	if err != nil {
		return domain.TransactionOutcome{}, err
	}
	s, err := r.Swapper(cn.Chain)
	if err != nil {
		return domain.TransactionOutcome{}, err
	}

	ctx, span := telemetry.StartSpan(ctx, "gateway.Execute", cn.Chain, cn.Network)
	defer func() { telemetry.End(span, err) }()

	req.Network = cn.Network
	return s.ExecuteSwap(ctx, req)
}

// swapperFor finds the chain that serves provider. Connector names are
// unique across chains.
func (r *Router) swapperFor(provider string) (*ChainSwapper, connectors.Provider, error) {
	p, err := connectors.ParseProvider(provider)
	if err != nil {
		return nil, connectors.Provider{}, err
	}
	for _, chain := range r.Chains() {
		if s := r.swappers[chain]; s.Supports(p) {
			return s, p, nil
		}
	}
	return nil, p, common.HTTPErrorBadRequest(fmt.Sprintf("unsupported swap provider: %s", p))
}

// QuoteForConnector is the first step of the connector flow.
func (r *Router) QuoteForConnector(ctx context.Context, provider string, req SwapRequest) (q *domain.SwapQuote, err error) {
	s, p, err := r.swapperFor(provider)
	if err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartSpan(ctx, "gateway.QuoteForConnector", s.Chain(), req.Network)
	defer func() { telemetry.End(span, err) }()

	return s.QuoteForConnector(ctx, p.String(), req)
}

// ExecuteQuote is the second step of the connector flow. The quote must
// have been issued by the same provider.
func (r *Router) ExecuteQuote(ctx context.Context, provider, network, walletAddress, quoteID string) (out domain.TransactionOutcome, err error) {
	s, p, err := r.swapperFor(provider)
	if err != nil {
		return domain.TransactionOutcome{}, err
	}
	if strings.TrimSpace(quoteID) == "" {
		return domain.TransactionOutcome{}, common.HTTPErrorValidation("quoteId", "is required")
	}
	cached, ok := r.cache.Get(quoteID)
	if !ok {
		return domain.TransactionOutcome{}, common.HTTPErrorNotFound("Quote not found or expired")
	}
	if cached.Quote.Provider != p.String() {
		return domain.TransactionOutcome{}, common.HTTPErrorBadRequest(fmt.Sprintf("quote %s was issued by %s, not %s", quoteID, cached.Quote.Provider, p))
	}

	ctx, span := telemetry.StartSpan(ctx, "gateway.ExecuteQuote", s.Chain(), cached.Quote.Network)
	defer func() { telemetry.End(span, err) }()

	return s.ExecuteQuote(ctx, network, walletAddress, quoteID)
}

// Poll looks a signature up on chain. Network may be empty for the chain's
// default network.
func (r *Router) Poll(ctx context.Context, chain, network, signature string) (domain.PollResponse, error) {
	s, err := r.Swapper(chain)
	if err != nil {
		return domain.PollResponse{}, err
	}
	return s.Poll(ctx, network, signature)
}
