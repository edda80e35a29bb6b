package jupiter

import (
	"context"
	"fmt"
	"math"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog/log"

	"github.com/hxuan190/chain-gateway/internal/amount"
	solanachain "github.com/hxuan190/chain-gateway/internal/chains/solana"
	"github.com/hxuan190/chain-gateway/internal/common"
	"github.com/hxuan190/chain-gateway/internal/connectors"
	"github.com/hxuan190/chain-gateway/internal/domain"
	"github.com/hxuan190/chain-gateway/internal/reconcile"
)

// Jupiter's dex labels for the pool-pinned connectors.
var dexLabels = map[connectors.Provider]string{
	{Name: "raydium", Type: connectors.TypeAMM}:  "Raydium",
	{Name: "raydium", Type: connectors.TypeCLMM}: "Raydium CLMM",
	{Name: "meteora", Type: connectors.TypeCLMM}: "Meteora DLMM",
}

var RouterProvider = connectors.Provider{Name: "jupiter", Type: connectors.TypeRouter}

// PinnedProviders lists the pool-pinned providers served through Jupiter.
func PinnedProviders() []connectors.Provider {
	return []connectors.Provider{
		{Name: "raydium", Type: connectors.TypeAMM},
		{Name: "raydium", Type: connectors.TypeCLMM},
		{Name: "meteora", Type: connectors.TypeCLMM},
	}
}

// Executor signs, sends and reads back Solana transactions.
type Executor interface {
	SignAndSend(ctx context.Context, txBase64 string, signer solana.PrivateKey) (solana.Signature, error)
	Receipt(ctx context.Context, sig solana.Signature, p solanachain.ReceiptParams) (reconcile.Receipt, error)
}

// Signer returns the base58 private key for a wallet address.
type Signer interface {
	PrivateKey(address string) (string, error)
}

type Connector struct {
	provider connectors.Provider
	dexLabel string
	api      *Client
	sol      Executor
	keys     Signer
}

func NewRouter(api *Client, sol Executor, keys Signer) *Connector {
	return &Connector{provider: RouterProvider, api: api, sol: sol, keys: keys}
}

// NewPinned returns a connector that only trades through the resolved pool.
func NewPinned(provider connectors.Provider, api *Client, sol Executor, keys Signer) (*Connector, error) {
	label, ok := dexLabels[provider]
	if !ok {
		return nil, fmt.Errorf("no jupiter dex label for %s", provider)
	}
	return &Connector{provider: provider, dexLabel: label, api: api, sol: sol, keys: keys}, nil
}

func (c *Connector) Provider() connectors.Provider {
	return c.provider
}

func (c *Connector) Chain() string {
	return common.ChainSolana
}

func (c *Connector) QuoteSwap(ctx context.Context, params connectors.QuoteParams) (*domain.SwapQuote, error) {
	in, out := params.Tokens()

	// BUY fixes the base amount received, SELL the base amount spent.
	raw, err := amount.ParseAmount(params.Amount, params.Base.Decimals)
	if err != nil {
		return nil, common.HTTPErrorValidation("amount", err.Error())
	}

	req := QuoteRequest{
		InputMint:   in.Address,
		OutputMint:  out.Address,
		Amount:      raw,
		SlippageBps: int(math.Round(params.SlippagePct * 100)),
		SwapMode:    SwapModeExactIn,
	}
	if !params.ExactIn() {
		req.SwapMode = SwapModeExactOut
	}
	if c.provider.Type.RequiresPool() {
		if params.Pool == nil {
			return nil, common.HTTPErrorNotFound(fmt.Sprintf("no %s pool for %s-%s", c.provider, params.Base.Symbol, params.Quote.Symbol))
		}
		req.Dexes = []string{c.dexLabel}
		req.OnlyDirectRoutes = true
	}

	resp, err := c.api.Quote(ctx, req)
	if err != nil {
		return nil, err
	}
	if params.Pool != nil && !routesThrough(resp, params.Pool.Address) {
		return nil, common.HTTPErrorNotFound(fmt.Sprintf("%s has no route through pool %s", c.provider, params.Pool.Address))
	}

	return connectors.NewSwapQuote(common.ChainSolana, c.provider, params, connectors.Priced{
		AmountIn:       amount.FormatAmount(resp.InAmount, in.Decimals),
		AmountOut:      amount.FormatAmount(resp.OutAmount, out.Decimals),
		PriceImpactPct: resp.PriceImpactPercent(),
		RoutePath:      resp.RoutePath(),
		RawTrade:       resp,
	})
}

func routesThrough(resp *QuoteResponse, pool string) bool {
	if len(resp.RoutePlan) == 0 {
		return false
	}
	for _, step := range resp.RoutePlan {
		if step.SwapInfo.AmmKey != pool {
			return false
		}
	}
	return true
}

func (c *Connector) ExecuteQuote(ctx context.Context, cached *domain.CachedQuote) (*reconcile.Receipt, error) {
	quote, ok := cached.Quote.RawTrade.(*QuoteResponse)
	if !ok {
		return nil, common.HTTPErrorInternalError("cached quote was not produced by jupiter")
	}

	wallet, err := solana.PublicKeyFromBase58(cached.Request.WalletAddress)
	if err != nil {
		return nil, common.HTTPErrorValidation("walletAddress", "not a valid solana address")
	}
	secret, err := c.keys.PrivateKey(wallet.String())
	if err != nil {
		return nil, common.HTTPErrorNotFound(fmt.Sprintf("wallet %s not found", wallet))
	}
	signer, err := solana.PrivateKeyFromBase58(secret)
	if err != nil {
		return nil, common.HTTPErrorInternalError(fmt.Sprintf("stored key for %s is not a valid solana key", wallet))
	}

	swap, err := c.api.SwapTransaction(ctx, quote, wallet.String())
	if err != nil {
		return nil, err
	}

	sig, err := c.sol.SignAndSend(ctx, swap.SwapTransaction, signer)
	if err != nil {
		return nil, err
	}

	receipt, err := c.sol.Receipt(ctx, sig, solanachain.ReceiptParams{
		Wallet:   wallet,
		TokenIn:  cached.Quote.TokenIn,
		TokenOut: cached.Quote.TokenOut,
	})
	if err != nil {
		// Already broadcast. A terminal status seen before the lookup failed
		// still stands; otherwise report pending so the caller polls.
		state := reconcile.StatePending
		if receipt.State == reconcile.StateConfirmed || receipt.State == reconcile.StateFailed {
			state = receipt.State
		}
		log.Warn().Err(err).
			Str("provider", c.provider.String()).
			Str("signature", sig.String()).
			Str("state", state.String()).
			Msg("[jupiter] confirmation lookup failed after broadcast")
		return &reconcile.Receipt{Signature: sig.String(), State: state}, nil
	}
	return &receipt, nil
}
