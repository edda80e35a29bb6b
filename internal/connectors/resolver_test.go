package connectors

import (
	"context"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hxuan190/chain-gateway/internal/common"
	"github.com/hxuan190/chain-gateway/internal/domain"
	"github.com/hxuan190/chain-gateway/internal/pools"
	"github.com/hxuan190/chain-gateway/internal/reconcile"
)

type stubConnector struct {
	provider Provider
	chain    string
}

func (s *stubConnector) Provider() Provider { return s.provider }
func (s *stubConnector) Chain() string      { return s.chain }

func (s *stubConnector) QuoteSwap(context.Context, QuoteParams) (*domain.SwapQuote, error) {
	return nil, nil
}

func (s *stubConnector) ExecuteQuote(context.Context, *domain.CachedQuote) (*reconcile.Receipt, error) {
	return nil, nil
}

var (
	sol  = domain.Token{Symbol: "SOL", Address: "So11111111111111111111111111111111111111112", Decimals: 9}
	usdc = domain.Token{Symbol: "USDC", Address: "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", Decimals: 6}
	bonk = domain.Token{Symbol: "BONK", Address: "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263", Decimals: 5}
)

func newSolanaResolver(t *testing.T) *Resolver {
	t.Helper()
	reg := pools.NewRegistry(nil)
	require.NoError(t, reg.Add(&domain.Pool{
		Address:     "58oQChx4yWmvKdwLLZzBi4ChoCc2fqCUWBkwMihLYQo2",
		Connector:   "raydium",
		Chain:       "solana",
		Network:     "mainnet-beta",
		Type:        domain.PoolTypeAMM,
		BaseSymbol:  "SOL",
		QuoteSymbol: "USDC",
	}))

	r := NewResolver("solana", reg)
	for _, p := range []string{"jupiter/router", "raydium/amm", "raydium/clmm", "meteora/clmm"} {
		require.NoError(t, r.Register("mainnet-beta", &stubConnector{provider: MustParseProvider(p), chain: "solana"}))
	}
	return r
}

func TestParseProvider(t *testing.T) {
	p, err := ParseProvider("Raydium/CLMM")
	require.NoError(t, err)
	assert.Equal(t, Provider{Name: "raydium", Type: TypeCLMM}, p)
	assert.Equal(t, "raydium/clmm", p.String())
	assert.True(t, p.Type.RequiresPool())
	assert.Equal(t, domain.PoolTypeCLMM, p.Type.PoolType())

	_, err = ParseProvider("jupiter")
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, common.StatusOf(err))
	assert.Contains(t, err.Error(), "swapProvider")

	_, err = ParseProvider("jupiter/limit")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jupiter/limit")
}

func TestResolveRouterIgnoresPools(t *testing.T) {
	r := newSolanaResolver(t)

	res, err := r.Resolve(context.Background(), "mainnet-beta", "jupiter/router", sol, bonk)
	require.NoError(t, err)
	assert.Nil(t, res.Pool)
	assert.Equal(t, "jupiter/router", res.Connector.Provider().String())
}

func TestResolvePinnedConnectorUsesPool(t *testing.T) {
	r := newSolanaResolver(t)

	res, err := r.Resolve(context.Background(), "mainnet-beta", "raydium/amm", usdc, sol)
	require.NoError(t, err)
	require.NotNil(t, res.Pool)
	assert.Equal(t, "58oQChx4yWmvKdwLLZzBi4ChoCc2fqCUWBkwMihLYQo2", res.Pool.Address)
}

func TestResolveMissingPoolIsNotFound(t *testing.T) {
	r := newSolanaResolver(t)

	for _, provider := range []string{"raydium/clmm", "meteora/clmm"} {
		_, err := r.Resolve(context.Background(), "mainnet-beta", provider, sol, usdc)
		require.Error(t, err, provider)
		assert.Equal(t, http.StatusNotFound, common.StatusOf(err))
		assert.Contains(t, err.Error(), provider)
		assert.Contains(t, err.Error(), "SOL-USDC")
	}

	_, err := r.Resolve(context.Background(), "mainnet-beta", "raydium/amm", sol, bonk)
	assert.Equal(t, http.StatusNotFound, common.StatusOf(err))
}

func TestResolveUnknownProviderIsBadRequest(t *testing.T) {
	r := newSolanaResolver(t)

	_, err := r.Resolve(context.Background(), "mainnet-beta", "orca/clmm", sol, usdc)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, common.StatusOf(err))
	assert.Contains(t, err.Error(), "orca/clmm")

	_, err = r.Resolve(context.Background(), "devnet", "jupiter/router", sol, usdc)
	assert.Equal(t, http.StatusBadRequest, common.StatusOf(err))
}

func TestRegisterRejectsDuplicatesAndForeignChains(t *testing.T) {
	r := newSolanaResolver(t)

	err := r.Register("mainnet-beta", &stubConnector{provider: MustParseProvider("jupiter/router"), chain: "solana"})
	assert.Error(t, err)

	err = r.Register("mainnet", &stubConnector{provider: MustParseProvider("uniswap/router"), chain: "ethereum"})
	assert.Error(t, err)

	assert.True(t, r.Supports(MustParseProvider("meteora/clmm")))
	assert.False(t, r.Supports(MustParseProvider("uniswap/router")))
	assert.Equal(t, []string{"jupiter/router", "meteora/clmm", "raydium/amm", "raydium/clmm"}, r.Providers("mainnet-beta"))
}

func TestNewSwapQuote(t *testing.T) {
	params := QuoteParams{
		Network:     "mainnet-beta",
		Base:        sol,
		Quote:       usdc,
		Side:        domain.SideSell,
		Amount:      decimal.RequireFromString("2"),
		SlippagePct: 1,
	}
	q, err := NewSwapQuote("solana", MustParseProvider("jupiter/router"), params, Priced{
		AmountIn:  decimal.RequireFromString("2"),
		AmountOut: decimal.RequireFromString("300"),
	})
	require.NoError(t, err)
	assert.Equal(t, sol, q.TokenIn)
	assert.Equal(t, usdc, q.TokenOut)
	assert.True(t, q.Price.Equal(decimal.RequireFromString("150")))
	assert.True(t, q.MinAmountOut.Equal(decimal.RequireFromString("297")))
	assert.True(t, q.MaxAmountIn.Equal(decimal.RequireFromString("2")))

	params.Side = domain.SideBuy
	q, err = NewSwapQuote("solana", MustParseProvider("jupiter/router"), params, Priced{
		AmountIn:  decimal.RequireFromString("303"),
		AmountOut: decimal.RequireFromString("2"),
	})
	require.NoError(t, err)
	assert.Equal(t, usdc, q.TokenIn)
	assert.Equal(t, sol, q.TokenOut)
	assert.True(t, q.Price.Equal(decimal.RequireFromString("151.5")), q.Price.String())

	_, err = NewSwapQuote("solana", MustParseProvider("jupiter/router"), params, Priced{AmountIn: decimal.Zero, AmountOut: decimal.Zero})
	assert.Equal(t, http.StatusNotFound, common.StatusOf(err))
}
