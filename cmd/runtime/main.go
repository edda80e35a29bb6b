package main

import (
	"context"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/hxuan190/chain-gateway/internal/adapters/persistence"
	"github.com/hxuan190/chain-gateway/internal/common"
	"github.com/hxuan190/chain-gateway/internal/config"
	"github.com/hxuan190/chain-gateway/internal/events"
	"github.com/hxuan190/chain-gateway/internal/gateway"
	"github.com/hxuan190/chain-gateway/internal/http"
	"github.com/hxuan190/chain-gateway/internal/pools"
	"github.com/hxuan190/chain-gateway/internal/quotecache"
	"github.com/hxuan190/chain-gateway/internal/telemetry"
	"github.com/hxuan190/chain-gateway/internal/wallet"
)

// @title Chain Gateway API
// @version 1.0
// @description Multi-chain swap gateway. Quotes and executes swaps on Solana and EVM
// @description networks through one API, with canonical quote and transaction shapes
// @description regardless of the chain.
// @description
// @description ## - Connectors
// @description | Chain | Provider | Pool pinned |
// @description |-------|----------|-------------|
// @description | solana | jupiter/router | no |
// @description | solana | raydium/amm, raydium/clmm, meteora/clmm | yes |
// @description | ethereum | uniswap/router, pancakeswap/router | no |
// @description | ethereum | uniswap/amm, uniswap/clmm, pancakeswap/amm, pancakeswap/clmm | yes (clmm) |
// @description
// @description ## - Usage Tips
// @description - Select the chain and network with chainNetwork, e.g. `solana-mainnet-beta` or `ethereum-bsc`
// @description - Amounts are in human units: 10 USDT is `10`
// @description - Default slippage is 1%
// @description - Execute responses carry status 1 (confirmed), 0 (pending) or -1 (failed)
// @BasePath /
// @schemes https http
// @tag.name swap
// @tag.description Chain-agnostic quote and execute
// @tag.name connectors
// @tag.description Two-step quote and execute pinned to one connector
// @tag.name chains
// @tag.description Configured chains and transaction polling
// @tag.name pools
// @tag.description Pool registry for pool-pinned connectors

func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("no .env file loaded, using process environment")
	}

	generalConf := &config.GeneralConfig{}
	chainsConf := &config.ChainsConfig{}
	cacheConf := &config.QuoteCacheConfig{}
	poolConf := &config.PoolStoreConfig{}
	eventsConf := &config.EventsConfig{}
	telemetryConf := &config.TelemetryConfig{}
	walletConf := &config.WalletConfig{}
	if err := config.LoadAll(generalConf, chainsConf, cacheConf, poolConf, eventsConf, telemetryConf, walletConf); err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	common.InitLogger(generalConf.Env, generalConf.LogLevel)
	common.InitRuntime()

	shutdownTracer := telemetry.InitTracer(telemetryConf)
	defer shutdownTracer()

	cache := quotecache.NewMemoryStore(cacheConf.TTL, cacheConf.MaxEntries, cacheConf.CleanupInterval)
	defer cache.Close()

	storage, err := persistence.NewStorage(poolConf.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", poolConf.DBPath).Msg("failed to open pool store")
	}
	defer storage.Close()

	registry := pools.NewRegistry(storage)
	if err := registry.Load(); err != nil {
		log.Fatal().Err(err).Msg("failed to load pools")
	}
	if poolConf.SeedFile != "" {
		if _, err := registry.ImportSeed(poolConf.SeedFile); err != nil {
			log.Fatal().Err(err).Msg("failed to import pool seed")
		}
	}

	keys, err := wallet.LoadKeystore(walletConf.KeysFile)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load wallet keys")
	}
	log.Info().Int("pools", registry.Len()).Int("wallets", keys.Len()).Msg("registries ready")

	var publisher events.Publisher = events.NoopPublisher{}
	if eventsConf.Enabled() {
		js, err := events.NewPublisher(eventsConf.NatsURL, eventsConf.Stream, eventsConf.SubjectPrefix)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to nats")
		}
		publisher = js
	}
	defer publisher.Close()

	router := gateway.NewRouter(cache)
	ctx := context.Background()
	chainNames := make([]string, 0, len(chainsConf.Chains))
	for name := range chainsConf.Chains {
		chainNames = append(chainNames, name)
	}
	sort.Strings(chainNames)
	for _, name := range chainNames {
		swapper, err := buildSwapper(ctx, name, chainsConf.Chains[name], deps{
			pools:     registry,
			cache:     cache,
			publisher: publisher,
			keys:      keys,
		})
		if err != nil {
			log.Fatal().Err(err).Str("chain", name).Msg("failed to set up chain")
		}
		if err := router.Register(swapper); err != nil {
			log.Fatal().Err(err).Msg("failed to register chain")
		}
	}

	httpSvc := http.NewHTTPService(generalConf, router, registry)
	go func() {
		if err := httpSvc.Start(); err != nil {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info().Str("signal", sig.String()).Msg("shutting down")

	if err := httpSvc.Stop(); err != nil {
		log.Error().Err(err).Msg("http shutdown incomplete")
	}
}
