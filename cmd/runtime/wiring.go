package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"

	ethchain "github.com/hxuan190/chain-gateway/internal/chains/ethereum"
	solanachain "github.com/hxuan190/chain-gateway/internal/chains/solana"
	"github.com/hxuan190/chain-gateway/internal/common"
	"github.com/hxuan190/chain-gateway/internal/config"
	"github.com/hxuan190/chain-gateway/internal/connectors"
	"github.com/hxuan190/chain-gateway/internal/connectors/evmdex"
	"github.com/hxuan190/chain-gateway/internal/connectors/jupiter"
	"github.com/hxuan190/chain-gateway/internal/events"
	"github.com/hxuan190/chain-gateway/internal/gateway"
	"github.com/hxuan190/chain-gateway/internal/quotecache"
	"github.com/hxuan190/chain-gateway/internal/tokens"
	"github.com/hxuan190/chain-gateway/internal/wallet"
)

type deps struct {
	pools     connectors.PoolLookup
	cache     quotecache.Store
	publisher events.Publisher
	keys      *wallet.Keystore
}

// buildSwapper creates the chain clients and connectors of every network of
// chain and registers them on a new swapper.
func buildSwapper(ctx context.Context, chain string, cc config.ChainConfig, d deps) (*gateway.ChainSwapper, error) {
	resolver := connectors.NewResolver(chain, d.pools)
	swapper := gateway.NewChainSwapper(resolver, d.cache, d.publisher)

	names := make([]string, 0, len(cc.Networks))
	for name := range cc.Networks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		nc := cc.Networks[name]
		network := gateway.Network{
			Name:            name,
			DefaultProvider: nc.SwapProvider,
			SlippagePct:     nc.SlippagePct,
		}

		switch chain {
		case common.ChainSolana:
			client := solanachain.NewClient(nc.RPCURL, name, solanachain.Options{
				ConfirmTimeout: nc.ConfirmTimeout,
				PollInterval:   nc.PollInterval,
			})
			if err := registerSolana(resolver, name, nc, client, d.keys); err != nil {
				return nil, err
			}
			network.Poller = client
			network.Tokens = tokens.NewList(nc.Tokens, tokens.CaseSensitive)
		case common.ChainEthereum:
			client, err := ethchain.Dial(ctx, nc.RPCURL, name, nc.ChainID, ethchain.Options{
				ConfirmTimeout: nc.ConfirmTimeout,
				PollInterval:   nc.PollInterval,
				NativeDecimals: nc.NativeDecimals,
			})
			if err != nil {
				return nil, err
			}
			if err := registerEVM(resolver, name, nc, client, d.keys); err != nil {
				return nil, err
			}
			network.Poller = client
			network.Tokens = tokens.NewList(nc.Tokens, tokens.CaseInsensitive)
		default:
			return nil, fmt.Errorf("unsupported chain %q", chain)
		}

		p, err := connectors.ParseProvider(nc.SwapProvider)
		if err != nil {
			return nil, fmt.Errorf("%s-%s: %w", chain, name, err)
		}
		if _, ok := resolver.Connector(name, p); !ok {
			return nil, fmt.Errorf("%s-%s: swapProvider %s is not available, have %v", chain, name, p, resolver.Providers(name))
		}
		if err := swapper.AddNetwork(network); err != nil {
			return nil, err
		}
		log.Info().
			Str("chain", chain).
			Str("network", name).
			Str("swapProvider", nc.SwapProvider).
			Strs("providers", resolver.Providers(name)).
			Int("tokens", len(nc.Tokens)).
			Msg("[runtime] network ready")
	}

	if cc.DefaultNetwork != "" {
		if err := swapper.SetDefaultNetwork(cc.DefaultNetwork); err != nil {
			return nil, err
		}
	}
	return swapper, nil
}

func registerSolana(resolver *connectors.Resolver, network string, nc config.NetworkConfig, client *solanachain.Client, keys *wallet.Keystore) error {
	api := jupiter.NewClient(nc.JupiterAPIURL, nc.JupiterAPIKey)
	if err := resolver.Register(network, jupiter.NewRouter(api, client, keys)); err != nil {
		return err
	}
	for _, p := range jupiter.PinnedProviders() {
		c, err := jupiter.NewPinned(p, api, client, keys)
		if err != nil {
			return err
		}
		if err := resolver.Register(network, c); err != nil {
			return err
		}
	}
	return nil
}

func registerEVM(resolver *connectors.Resolver, network string, nc config.NetworkConfig, client *ethchain.Client, keys *wallet.Keystore) error {
	dexes := []struct {
		name      string
		contracts config.DexContracts
	}{
		{"uniswap", nc.Uniswap},
		{"pancakeswap", nc.Pancakeswap},
	}
	for _, dex := range dexes {
		if !dex.contracts.Configured() {
			continue
		}
		for _, p := range evmdex.Providers(dex.name, dex.contracts) {
			c, err := evmdex.New(p, dex.contracts, client, keys)
			if err != nil {
				return err
			}
			if err := resolver.Register(network, c); err != nil {
				return err
			}
		}
	}
	return nil
}
