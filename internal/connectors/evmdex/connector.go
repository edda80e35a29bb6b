// Package evmdex implements the Uniswap and PancakeSwap connectors for EVM
// networks: V3 routers and pools through QuoterV2 and SwapRouter02, V2 pairs
// through the V2 router.
package evmdex

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/rs/zerolog/log"

	"github.com/hxuan190/chain-gateway/internal/amount"
	ethchain "github.com/hxuan190/chain-gateway/internal/chains/ethereum"
	gwcommon "github.com/hxuan190/chain-gateway/internal/common"
	"github.com/hxuan190/chain-gateway/internal/config"
	"github.com/hxuan190/chain-gateway/internal/connectors"
	"github.com/hxuan190/chain-gateway/internal/domain"
	"github.com/hxuan190/chain-gateway/internal/reconcile"
)

const v2Deadline = 20 * time.Minute

var defaultFeeTiers = map[string][]uint32{
	"uniswap":     {100, 500, 3000, 10000},
	"pancakeswap": {100, 500, 2500, 10000},
}

// Chain is the EVM client surface used by the connectors.
type Chain interface {
	Call(ctx context.Context, to common.Address, data []byte) ([]byte, error)
	EnsureAllowance(ctx context.Context, token domain.Token, owner, spender common.Address, need *big.Int) error
	SendTx(ctx context.Context, key *ecdsa.PrivateKey, to common.Address, data []byte, value *big.Int) (common.Hash, error)
	Receipt(ctx context.Context, hash common.Hash, p ethchain.ReceiptParams) (reconcile.Receipt, error)
}

// Signer returns the hex private key for a wallet address.
type Signer interface {
	PrivateKey(address string) (string, error)
}

type Connector struct {
	provider  connectors.Provider
	contracts config.DexContracts
	feeTiers  []uint32
	chain     Chain
	keys      Signer
	now       func() time.Time
}

// Providers lists what a deployment can serve given its configured contracts.
func Providers(name string, contracts config.DexContracts) []connectors.Provider {
	var out []connectors.Provider
	if contracts.QuoterV2 != "" && contracts.SwapRouter02 != "" {
		out = append(out,
			connectors.Provider{Name: name, Type: connectors.TypeRouter},
			connectors.Provider{Name: name, Type: connectors.TypeCLMM},
		)
	}
	if contracts.V2Router != "" {
		out = append(out, connectors.Provider{Name: name, Type: connectors.TypeAMM})
	}
	return out
}

func New(provider connectors.Provider, contracts config.DexContracts, chain Chain, keys Signer) (*Connector, error) {
	if _, ok := defaultFeeTiers[provider.Name]; !ok {
		return nil, fmt.Errorf("unknown evm dex %q", provider.Name)
	}
	switch provider.Type {
	case connectors.TypeRouter, connectors.TypeCLMM:
		if !ethchain.IsAddress(contracts.QuoterV2) || !ethchain.IsAddress(contracts.SwapRouter02) {
			return nil, fmt.Errorf("%s needs quoterV2 and swapRouter02 addresses", provider)
		}
	case connectors.TypeAMM:
		if !ethchain.IsAddress(contracts.V2Router) {
			return nil, fmt.Errorf("%s needs a v2Router address", provider)
		}
	}

	tiers := contracts.FeeTiers
	if len(tiers) == 0 {
		tiers = defaultFeeTiers[provider.Name]
	}
	return &Connector{
		provider:  provider,
		contracts: contracts,
		feeTiers:  tiers,
		chain:     chain,
		keys:      keys,
		now:       time.Now,
	}, nil
}

func (c *Connector) Provider() connectors.Provider {
	return c.provider
}

func (c *Connector) Chain() string {
	return gwcommon.ChainEthereum
}

func (c *Connector) QuoteSwap(ctx context.Context, params connectors.QuoteParams) (*domain.SwapQuote, error) {
	in, out := params.Tokens()
	if !ethchain.IsAddress(params.Base.Address) {
		return nil, gwcommon.HTTPErrorValidation("baseToken", "not a valid address")
	}
	if !ethchain.IsAddress(params.Quote.Address) {
		return nil, gwcommon.HTTPErrorValidation("quoteToken", "not a valid address")
	}

	raw, err := amount.ParseAmount(params.Amount, params.Base.Decimals)
	if err != nil {
		return nil, gwcommon.HTTPErrorValidation("amount", err.Error())
	}

	trade := &Trade{
		TokenIn:  common.HexToAddress(in.Address),
		TokenOut: common.HexToAddress(out.Address),
		ExactIn:  params.ExactIn(),
	}

	route := in.Symbol + " -> " + out.Symbol
	switch c.provider.Type {
	case connectors.TypeAMM:
		if params.Pool == nil {
			return nil, gwcommon.HTTPErrorNotFound(fmt.Sprintf("no %s pool for %s-%s", c.provider, params.Base.Symbol, params.Quote.Symbol))
		}
		trade.Kind = KindV2
		err = c.quoteV2(ctx, trade, raw)
	case connectors.TypeCLMM:
		if params.Pool == nil {
			return nil, gwcommon.HTTPErrorNotFound(fmt.Sprintf("no %s pool for %s-%s", c.provider, params.Base.Symbol, params.Quote.Symbol))
		}
		var fee uint32
		fee, err = c.poolFee(ctx, params.Pool.Address)
		if err == nil {
			trade.Kind = KindV3
			err = c.quoteV3(ctx, trade, raw, []uint32{fee})
		}
	default:
		trade.Kind = KindV3
		err = c.quoteV3(ctx, trade, raw, c.feeTiers)
	}
	if err != nil {
		return nil, err
	}
	if trade.Kind == KindV3 {
		route = fmt.Sprintf("%s (%s%%)", route, feePercent(trade.Fee))
	}

	q, err := connectors.NewSwapQuote(gwcommon.ChainEthereum, c.provider, params, connectors.Priced{
		AmountIn:  amount.FormatAmountBig(trade.AmountIn, in.Decimals),
		AmountOut: amount.FormatAmountBig(trade.AmountOut, out.Decimals),
		RoutePath: route,
		RawTrade:  trade,
	})
	if err != nil {
		return nil, err
	}

	// On-chain limits never loosen the bounds shown to the client.
	trade.MinAmountOut = q.MinAmountOut.Shift(int32(out.Decimals)).RoundCeil(0).BigInt()
	trade.MaxAmountIn = q.MaxAmountIn.Shift(int32(in.Decimals)).RoundFloor(0).BigInt()
	return q, nil
}

// quoteV3 asks QuoterV2 for every fee tier and keeps the best one. Tiers
// without a pool revert and are skipped.
func (c *Connector) quoteV3(ctx context.Context, trade *Trade, raw *big.Int, tiers []uint32) error {
	quoter := common.HexToAddress(c.contracts.QuoterV2)
	zero := new(big.Int)

	for _, tier := range tiers {
		fee := new(big.Int).SetUint64(uint64(tier))
		var (
			data   []byte
			method string
			err    error
		)
		if trade.ExactIn {
			method = "quoteExactInputSingle"
			data, err = QuoterV2ABI.Pack(method, quoteExactInputSingleParams{
				TokenIn: trade.TokenIn, TokenOut: trade.TokenOut, AmountIn: raw, Fee: fee, SqrtPriceLimitX96: zero,
			})
		} else {
			method = "quoteExactOutputSingle"
			data, err = QuoterV2ABI.Pack(method, quoteExactOutputSingleParams{
				TokenIn: trade.TokenIn, TokenOut: trade.TokenOut, Amount: raw, Fee: fee, SqrtPriceLimitX96: zero,
			})
		}
		if err != nil {
			return fmt.Errorf("pack %s: %w", method, err)
		}

		res, err := c.chain.Call(ctx, quoter, data)
		if err != nil {
			var httpErr *gwcommon.HttpError
			if errors.As(err, &httpErr) {
				return err
			}
			log.Debug().Err(err).Str("provider", c.provider.String()).Uint32("fee", tier).Msg("[evmdex] fee tier has no quote")
			continue
		}
		quoted, err := unpackFirstBig(QuoterV2ABI.Unpack(method, res))
		if err != nil {
			return fmt.Errorf("decode %s: %w", method, err)
		}
		if quoted.Sign() <= 0 {
			continue
		}

		if trade.ExactIn {
			if trade.AmountOut == nil || quoted.Cmp(trade.AmountOut) > 0 {
				trade.AmountIn, trade.AmountOut, trade.Fee = raw, quoted, tier
			}
		} else {
			if trade.AmountIn == nil || quoted.Cmp(trade.AmountIn) < 0 {
				trade.AmountIn, trade.AmountOut, trade.Fee = quoted, raw, tier
			}
		}
	}

	if trade.AmountIn == nil {
		return gwcommon.HTTPErrorNotFound(fmt.Sprintf("no %s route for %s -> %s", c.provider, trade.TokenIn.Hex(), trade.TokenOut.Hex()))
	}
	return nil
}

func (c *Connector) quoteV2(ctx context.Context, trade *Trade, raw *big.Int) error {
	router := common.HexToAddress(c.contracts.V2Router)
	path := []common.Address{trade.TokenIn, trade.TokenOut}

	method := "getAmountsOut"
	if !trade.ExactIn {
		method = "getAmountsIn"
	}
	data, err := V2RouterABI.Pack(method, raw, path)
	if err != nil {
		return fmt.Errorf("pack %s: %w", method, err)
	}
	res, err := c.chain.Call(ctx, router, data)
	if err != nil {
		var httpErr *gwcommon.HttpError
		if errors.As(err, &httpErr) {
			return err
		}
		return gwcommon.HTTPErrorNotFound(fmt.Sprintf("no %s liquidity for %s -> %s", c.provider, trade.TokenIn.Hex(), trade.TokenOut.Hex()))
	}
	out, err := V2RouterABI.Unpack(method, res)
	if err != nil || len(out) == 0 {
		return fmt.Errorf("decode %s: %v", method, err)
	}
	amounts, ok := out[0].([]*big.Int)
	if !ok || len(amounts) != len(path) {
		return fmt.Errorf("decode %s: unexpected result", method)
	}

	trade.AmountIn, trade.AmountOut = amounts[0], amounts[len(amounts)-1]
	return nil
}

func (c *Connector) poolFee(ctx context.Context, pool string) (uint32, error) {
	if !ethchain.IsAddress(pool) {
		return 0, fmt.Errorf("registered pool %q is not an address", pool)
	}
	data, err := V3PoolABI.Pack("fee")
	if err != nil {
		return 0, err
	}
	res, err := c.chain.Call(ctx, common.HexToAddress(pool), data)
	if err != nil {
		return 0, err
	}
	fee, err := unpackFirstBig(V3PoolABI.Unpack("fee", res))
	if err != nil {
		return 0, fmt.Errorf("decode pool fee: %w", err)
	}
	return uint32(fee.Uint64()), nil
}

func (c *Connector) ExecuteQuote(ctx context.Context, cached *domain.CachedQuote) (*reconcile.Receipt, error) {
	trade, ok := cached.Quote.RawTrade.(*Trade)
	if !ok {
		return nil, gwcommon.HTTPErrorInternalError(fmt.Sprintf("cached quote was not produced by %s", c.provider))
	}

	walletAddress := cached.Request.WalletAddress
	if !ethchain.IsAddress(walletAddress) {
		return nil, gwcommon.HTTPErrorValidation("walletAddress", "not a valid address")
	}
	owner := common.HexToAddress(walletAddress)

	secret, err := c.keys.PrivateKey(walletAddress)
	if err != nil {
		return nil, gwcommon.HTTPErrorNotFound(fmt.Sprintf("wallet %s not found", owner.Hex()))
	}
	key, err := ethchain.ParsePrivateKey(secret)
	if err != nil || crypto.PubkeyToAddress(key.PublicKey) != owner {
		return nil, gwcommon.HTTPErrorInternalError(fmt.Sprintf("stored key for %s does not match the wallet", owner.Hex()))
	}

	spender, data, err := c.swapCall(trade, owner)
	if err != nil {
		return nil, err
	}
	need := trade.AmountIn
	if !trade.ExactIn {
		need = trade.MaxAmountIn
	}
	if err := c.chain.EnsureAllowance(ctx, cached.Quote.TokenIn, owner, spender, need); err != nil {
		return nil, err
	}

	hash, err := c.chain.SendTx(ctx, key, spender, data, nil)
	if err != nil {
		return nil, err
	}

	receipt, err := c.chain.Receipt(ctx, hash, ethchain.ReceiptParams{
		Wallet:   owner,
		TokenIn:  cached.Quote.TokenIn,
		TokenOut: cached.Quote.TokenOut,
	})
	if err != nil {
		log.Warn().Err(err).
			Str("provider", c.provider.String()).
			Str("hash", hash.Hex()).
			Msg("[evmdex] receipt lookup failed after broadcast")
		return &reconcile.Receipt{Signature: hash.Hex(), State: reconcile.StatePending}, nil
	}
	return &receipt, nil
}

// swapCall builds the router call for trade and returns the router address,
// which is also the spender that needs the allowance.
func (c *Connector) swapCall(trade *Trade, recipient common.Address) (common.Address, []byte, error) {
	zero := new(big.Int)
	switch trade.Kind {
	case KindV3:
		router := common.HexToAddress(c.contracts.SwapRouter02)
		fee := new(big.Int).SetUint64(uint64(trade.Fee))
		var (
			data []byte
			err  error
		)
		if trade.ExactIn {
			data, err = SwapRouter02ABI.Pack("exactInputSingle", exactInputSingleParams{
				TokenIn: trade.TokenIn, TokenOut: trade.TokenOut, Fee: fee, Recipient: recipient,
				AmountIn: trade.AmountIn, AmountOutMinimum: trade.MinAmountOut, SqrtPriceLimitX96: zero,
			})
		} else {
			data, err = SwapRouter02ABI.Pack("exactOutputSingle", exactOutputSingleParams{
				TokenIn: trade.TokenIn, TokenOut: trade.TokenOut, Fee: fee, Recipient: recipient,
				AmountOut: trade.AmountOut, AmountInMaximum: trade.MaxAmountIn, SqrtPriceLimitX96: zero,
			})
		}
		return router, data, err

	case KindV2:
		router := common.HexToAddress(c.contracts.V2Router)
		path := []common.Address{trade.TokenIn, trade.TokenOut}
		deadline := big.NewInt(c.now().Add(v2Deadline).Unix())
		var (
			data []byte
			err  error
		)
		if trade.ExactIn {
			data, err = V2RouterABI.Pack("swapExactTokensForTokens", trade.AmountIn, trade.MinAmountOut, path, recipient, deadline)
		} else {
			data, err = V2RouterABI.Pack("swapTokensForExactTokens", trade.AmountOut, trade.MaxAmountIn, path, recipient, deadline)
		}
		return router, data, err
	}
	return common.Address{}, nil, fmt.Errorf("unknown trade kind %q", trade.Kind)
}

func unpackFirstBig(out []interface{}, err error) (*big.Int, error) {
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, errors.New("empty result")
	}
	v, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected type %T", out[0])
	}
	return v, nil
}

// feePercent renders a fee in hundredths of a bip, 500 -> "0.05".
func feePercent(fee uint32) string {
	s := fmt.Sprintf("%.4f", float64(fee)/10000)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
