package gateway

import (
	"context"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hxuan190/chain-gateway/internal/amount"
	"github.com/hxuan190/chain-gateway/internal/common"
	"github.com/hxuan190/chain-gateway/internal/connectors"
	"github.com/hxuan190/chain-gateway/internal/domain"
	"github.com/hxuan190/chain-gateway/internal/events"
	"github.com/hxuan190/chain-gateway/internal/pools"
	"github.com/hxuan190/chain-gateway/internal/quotecache"
	"github.com/hxuan190/chain-gateway/internal/reconcile"
	"github.com/hxuan190/chain-gateway/internal/tokens"
)

var (
	usdt = domain.Token{Symbol: "USDT", Address: "0x55d398326f99059fF775485246999027B3197955", Decimals: 18}
	wbnb = domain.Token{Symbol: "WBNB", Address: "0xbb4CdB9CBd36B01bD1cBaEBF2De08d9173bc095c", Decimals: 18}
	sol  = domain.Token{Symbol: "SOL", Address: "So11111111111111111111111111111111111111112", Decimals: 9}
	usdc = domain.Token{Symbol: "USDC", Address: "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", Decimals: 6}
)

// fakeConnector prices every swap at a fixed rate of quote per base and
// settles with the configured receipt state.
type fakeConnector struct {
	provider connectors.Provider
	chain    string
	rate     decimal.Decimal
	state    reconcile.State

	quoted   []connectors.QuoteParams
	executed []*domain.CachedQuote
}

func (f *fakeConnector) Provider() connectors.Provider { return f.provider }
func (f *fakeConnector) Chain() string                 { return f.chain }

func (f *fakeConnector) QuoteSwap(_ context.Context, p connectors.QuoteParams) (*domain.SwapQuote, error) {
	f.quoted = append(f.quoted, p)
	in, out := p.Amount, p.Amount.Mul(f.rate)
	if p.Side == domain.SideBuy {
		in, out = p.Amount.Mul(f.rate), p.Amount
	}
	return connectors.NewSwapQuote(f.chain, f.provider, p, connectors.Priced{AmountIn: in, AmountOut: out, RawTrade: "trade"})
}

func (f *fakeConnector) ExecuteQuote(_ context.Context, cached *domain.CachedQuote) (*reconcile.Receipt, error) {
	f.executed = append(f.executed, cached)
	r := &reconcile.Receipt{Signature: "0xfeed", State: f.state, Fee: decimal.RequireFromString("0.0004")}
	if f.state == reconcile.StateFailed {
		r.FailureReason = "execution reverted"
	}
	return r, nil
}

type fakePoller struct{}

func (fakePoller) Poll(_ context.Context, signature string) (domain.PollResponse, error) {
	if signature == "bad" {
		return domain.PollResponse{Signature: signature, Status: domain.TxStatusPending, Error: "invalid transaction hash format"}, nil
	}
	return domain.PollResponse{Signature: signature, Status: domain.TxStatusConfirmed}, nil
}

type harness struct {
	router   *Router
	cache    *quotecache.MemoryStore
	events   *events.MockPublisher
	pancake  *fakeConnector
	uniAMM   *fakeConnector
	jupiter  *fakeConnector
	ethereum *ChainSwapper
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		cache:   quotecache.NewMemoryStore(quotecache.DefaultTTL, 100, 0),
		events:  events.NewMockPublisher(),
		pancake: &fakeConnector{provider: connectors.MustParseProvider("pancakeswap/router"), chain: "ethereum", rate: decimal.RequireFromString("0.00165"), state: reconcile.StateConfirmed},
		uniAMM:  &fakeConnector{provider: connectors.MustParseProvider("uniswap/amm"), chain: "ethereum", rate: decimal.RequireFromString("0.00165"), state: reconcile.StateConfirmed},
		jupiter: &fakeConnector{provider: connectors.MustParseProvider("jupiter/router"), chain: "solana", rate: decimal.RequireFromString("150"), state: reconcile.StateConfirmed},
	}
	t.Cleanup(h.cache.Close)
	h.router = NewRouter(h.cache)

	ethResolver := connectors.NewResolver("ethereum", pools.NewRegistry(nil))
	require.NoError(t, ethResolver.Register("bsc", h.pancake))
	require.NoError(t, ethResolver.Register("bsc", h.uniAMM))
	h.ethereum = NewChainSwapper(ethResolver, h.cache, h.events)
	require.NoError(t, h.ethereum.AddNetwork(Network{
		Name:            "bsc",
		Tokens:          tokens.NewList([]domain.Token{usdt, wbnb}, tokens.CaseInsensitive),
		DefaultProvider: "pancakeswap/router",
		SlippagePct:     1,
		Poller:          fakePoller{},
	}))
	require.NoError(t, h.router.Register(h.ethereum))

	solResolver := connectors.NewResolver("solana", pools.NewRegistry(nil))
	require.NoError(t, solResolver.Register("mainnet-beta", h.jupiter))
	solana := NewChainSwapper(solResolver, h.cache, h.events)
	require.NoError(t, solana.AddNetwork(Network{
		Name:            "mainnet-beta",
		Tokens:          tokens.NewList([]domain.Token{sol, usdc}, tokens.CaseSensitive),
		DefaultProvider: "jupiter/router",
	}))
	require.NoError(t, h.router.Register(solana))
	return h
}

func sellUSDT(amount string) SwapRequest {
	return SwapRequest{
		WalletAddress: "0x9f8F72aA9304c8B593d555F12eF6589cC3A579A2",
		BaseToken:     "USDT",
		QuoteToken:    "WBNB",
		Amount:        decimal.RequireFromString(amount),
		Side:          domain.SideSell,
	}
}

func TestParseChainNetwork(t *testing.T) {
	tests := []struct {
		in      string
		chain   string
		network string
		wantErr bool
	}{
		{in: "solana-mainnet-beta", chain: "solana", network: "mainnet-beta"},
		{in: "ethereum-mainnet", chain: "ethereum", network: "mainnet"},
		{in: "Ethereum-bsc", chain: "ethereum", network: "bsc"},
		{in: "bogus", wantErr: true},
		{in: "solana-", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			cn, err := ParseChainNetwork(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, http.StatusBadRequest, common.StatusOf(err))
				assert.Contains(t, err.Error(), "chainNetwork")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.chain, cn.Chain)
			assert.Equal(t, tt.network, cn.Network)
		})
	}
}

func TestQuoteUnsupportedChain(t *testing.T) {
	h := newHarness(t)
	_, err := h.router.Quote(context.Background(), "bitcoin-mainnet", sellUSDT("10"))
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, common.StatusOf(err))
	assert.Contains(t, err.Error(), "bitcoin")

	_, err = h.router.Execute(context.Background(), "bitcoin-mainnet", sellUSDT("10"))
	assert.Contains(t, err.Error(), "bitcoin")
}

func TestQuoteCachesRequestForExecution(t *testing.T) {
	h := newHarness(t)

	q, err := h.router.Quote(context.Background(), "ethereum-bsc", sellUSDT("10"))
	require.NoError(t, err)
	require.NotEmpty(t, q.QuoteID)

	resp := q.ToResponse()
	assert.Equal(t, 10.0, resp.AmountIn)
	assert.Equal(t, usdt.Address, resp.TokenIn)

	cached, ok := h.cache.Get(q.QuoteID)
	require.True(t, ok)
	assert.True(t, cached.Request.Amount.Equal(decimal.RequireFromString("10")))

	bounds, err := amount.SlippageBounds(cached.Request.Side, cached.Quote.AmountIn, cached.Quote.AmountOut, cached.Request.SlippagePct)
	require.NoError(t, err)
	assert.Equal(t, resp.MinAmountOut, bounds.MinAmountOut.InexactFloat64())
}

func TestQuoteValidation(t *testing.T) {
	h := newHarness(t)

	tests := []struct {
		name   string
		mutate func(*SwapRequest)
		status int
		field  string
	}{
		{"unknown token", func(r *SwapRequest) { r.BaseToken = "DOGE" }, http.StatusNotFound, "DOGE"},
		{"missing base", func(r *SwapRequest) { r.BaseToken = "" }, http.StatusBadRequest, "baseToken"},
		{"same token", func(r *SwapRequest) { r.QuoteToken = "usdt" }, http.StatusBadRequest, "quoteToken"},
		{"zero amount", func(r *SwapRequest) { r.Amount = decimal.Zero }, http.StatusBadRequest, "amount"},
		{"bad side", func(r *SwapRequest) { r.Side = "HOLD" }, http.StatusBadRequest, "side"},
		{"bad slippage", func(r *SwapRequest) { s := 100.0; r.SlippagePct = &s }, http.StatusBadRequest, "slippagePct"},
		{"unknown provider", func(r *SwapRequest) { r.Provider = "sushiswap/router" }, http.StatusBadRequest, "sushiswap/router"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := sellUSDT("10")
			tt.mutate(&req)
			_, err := h.router.Quote(context.Background(), "ethereum-bsc", req)
			require.Error(t, err)
			assert.Equal(t, tt.status, common.StatusOf(err))
			assert.Contains(t, err.Error(), tt.field)
		})
	}

	_, err := h.router.Quote(context.Background(), "ethereum-sepolia", sellUSDT("10"))
	assert.Equal(t, http.StatusBadRequest, common.StatusOf(err))
}

func TestPinnedProviderWithoutPoolIsNotFound(t *testing.T) {
	h := newHarness(t)

	req := sellUSDT("10")
	req.Provider = "uniswap/amm"
	_, err := h.router.Quote(context.Background(), "ethereum-bsc", req)
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, common.StatusOf(err))
	assert.Empty(t, h.uniAMM.quoted)
	assert.Empty(t, h.pancake.quoted, "no fallback to another connector")
}

func TestExecuteConfirmedConsumesQuote(t *testing.T) {
	h := newHarness(t)

	q, err := h.router.QuoteForConnector(context.Background(), "pancakeswap/router", func() SwapRequest {
		r := sellUSDT("10")
		r.Network = "bsc"
		return r
	}())
	require.NoError(t, err)

	out, err := h.router.ExecuteQuote(context.Background(), "pancakeswap/router", "bsc", "", q.QuoteID)
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusConfirmed, out.Status)
	require.NotNil(t, out.Data)
	assert.InDelta(t, 10, out.Data.AmountIn, 1e-9)
	assert.InDelta(t, -10, out.Data.BaseTokenBalanceChange, 1e-9)
	assert.Greater(t, out.Data.QuoteTokenBalanceChange, 0.0)
	assert.InDelta(t, 0.0004, out.Data.Fee, 1e-12)

	_, ok := h.cache.Get(q.QuoteID)
	assert.False(t, ok)

	_, err = h.router.ExecuteQuote(context.Background(), "pancakeswap/router", "bsc", "", q.QuoteID)
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, common.StatusOf(err))

	published := h.events.Published()
	require.Len(t, published, 1)
	assert.Equal(t, "0xfeed", published[0].Signature)
	assert.Equal(t, q.QuoteID, published[0].QuoteID)
}

func TestExecuteBuySignConvention(t *testing.T) {
	h := newHarness(t)

	req := sellUSDT("2")
	req.BaseToken, req.QuoteToken = "WBNB", "USDT"
	req.Side = domain.SideBuy
	h.pancake.rate = decimal.RequireFromString("606")

	out, err := h.router.Execute(context.Background(), "ethereum-bsc", req)
	require.NoError(t, err)
	require.NotNil(t, out.Data)
	assert.Greater(t, out.Data.BaseTokenBalanceChange, 0.0)
	assert.Less(t, out.Data.QuoteTokenBalanceChange, 0.0)
	assert.InDelta(t, 2, out.Data.BaseTokenBalanceChange, 1e-9)
	assert.InDelta(t, -1212, out.Data.QuoteTokenBalanceChange, 1e-9)
}

func TestExecutePendingKeepsQuote(t *testing.T) {
	h := newHarness(t)
	h.pancake.state = reconcile.StatePending

	q, err := h.router.Quote(context.Background(), "ethereum-bsc", sellUSDT("10"))
	require.NoError(t, err)

	out, err := h.ethereum.ExecuteQuote(context.Background(), "bsc", "", q.QuoteID)
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusPending, out.Status)
	assert.Nil(t, out.Data)

	_, ok := h.cache.Get(q.QuoteID)
	assert.True(t, ok, "pending quotes stay cached for retry")
}

func TestExecuteSwapDropsUnconfirmedQuote(t *testing.T) {
	for _, state := range []reconcile.State{reconcile.StatePending, reconcile.StateFailed} {
		t.Run(state.String(), func(t *testing.T) {
			h := newHarness(t)
			h.pancake.state = state

			out, _ := h.router.Execute(context.Background(), "ethereum-bsc", sellUSDT("10"))
			assert.NotEqual(t, domain.TxStatusConfirmed, out.Status)
			assert.Equal(t, 0, h.cache.Len())
		})
	}
}

func TestExecuteFailedIsTransactionFailure(t *testing.T) {
	h := newHarness(t)
	h.pancake.state = reconcile.StateFailed

	q, err := h.router.Quote(context.Background(), "ethereum-bsc", sellUSDT("10"))
	require.NoError(t, err)

	out, err := h.ethereum.ExecuteQuote(context.Background(), "", "", q.QuoteID)
	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, common.StatusOf(err))
	assert.Contains(t, err.Error(), "execution reverted")
	assert.Equal(t, domain.TxStatusFailed, out.Status)
	assert.Nil(t, out.Data)

	_, ok := h.cache.Get(q.QuoteID)
	assert.True(t, ok)
}

func TestExecuteQuoteChecks(t *testing.T) {
	h := newHarness(t)

	q, err := h.router.Quote(context.Background(), "ethereum-bsc", sellUSDT("10"))
	require.NoError(t, err)

	_, err = h.router.ExecuteQuote(context.Background(), "jupiter/router", "mainnet-beta", "", q.QuoteID)
	assert.Equal(t, http.StatusBadRequest, common.StatusOf(err))

	_, err = h.ethereum.ExecuteQuote(context.Background(), "mainnet", "", q.QuoteID)
	assert.Equal(t, http.StatusBadRequest, common.StatusOf(err))

	_, err = h.router.ExecuteQuote(context.Background(), "pancakeswap/router", "bsc", "", "")
	assert.Contains(t, err.Error(), "quoteId")

	_, err = h.router.ExecuteQuote(context.Background(), "pancakeswap/router", "bsc", "", "4a1d0c0e-5d6a-4b8f-9e3c-000000000000")
	assert.Equal(t, http.StatusNotFound, common.StatusOf(err))

	_, err = h.router.ExecuteQuote(context.Background(), "orca/router", "bsc", "", q.QuoteID)
	assert.Equal(t, http.StatusBadRequest, common.StatusOf(err))
}

func TestExecuteOverridesWallet(t *testing.T) {
	h := newHarness(t)

	req := sellUSDT("10")
	req.WalletAddress = ""
	q, err := h.router.Quote(context.Background(), "ethereum-bsc", req)
	require.NoError(t, err)

	_, err = h.ethereum.ExecuteQuote(context.Background(), "bsc", "", q.QuoteID)
	assert.Contains(t, err.Error(), "walletAddress")

	_, err = h.ethereum.ExecuteQuote(context.Background(), "bsc", "0x000000000000000000000000000000000000dEaD", q.QuoteID)
	require.NoError(t, err)
	require.Len(t, h.pancake.executed, 1)
	assert.Equal(t, "0x000000000000000000000000000000000000dEaD", h.pancake.executed[0].Request.WalletAddress)

	_, err = h.router.Execute(context.Background(), "ethereum-bsc", req)
	assert.Contains(t, err.Error(), "walletAddress")
}

func TestSolanaDefaultSlippage(t *testing.T) {
	h := newHarness(t)

	q, err := h.router.Quote(context.Background(), "solana-mainnet-beta", SwapRequest{
		BaseToken:  "SOL",
		QuoteToken: usdc.Address,
		Amount:     decimal.RequireFromString("2"),
		Side:       domain.SideSell,
	})
	require.NoError(t, err)
	assert.Equal(t, common.DefaultSlippagePct, q.SlippagePct)
	assert.True(t, q.AmountOut.Equal(decimal.RequireFromString("300")))
	assert.Equal(t, []string{"ethereum", "solana"}, h.router.Chains())
}

func TestPoll(t *testing.T) {
	h := newHarness(t)

	resp, err := h.router.Poll(context.Background(), "ethereum", "bsc", "bad")
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusPending, resp.Status)
	assert.NotEmpty(t, resp.Error)

	resp, err = h.router.Poll(context.Background(), "ETHEREUM", "", "0xabc")
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusConfirmed, resp.Status)

	_, err = h.router.Poll(context.Background(), "solana", "mainnet-beta", "sig")
	assert.Equal(t, http.StatusBadRequest, common.StatusOf(err))

	_, err = h.router.Poll(context.Background(), "bitcoin", "", "sig")
	assert.Contains(t, err.Error(), "bitcoin")
}

func TestCatalog(t *testing.T) {
	h := newHarness(t)

	catalog := h.router.Catalog()
	require.Len(t, catalog, 2)
	assert.Equal(t, "ethereum", catalog[0].Chain)
	assert.Equal(t, "solana", catalog[1].Chain)

	bsc := catalog[0].Networks[0]
	assert.Equal(t, "bsc", bsc.Name)
	assert.True(t, bsc.Default)
	assert.Equal(t, "pancakeswap/router", bsc.SwapProvider)
	assert.Equal(t, []string{"pancakeswap/router", "uniswap/amm"}, bsc.Providers)
	assert.Equal(t, []string{"USDT", "WBNB"}, bsc.Tokens)
}
