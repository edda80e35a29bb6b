package config

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/hxuan190/chain-gateway/internal/common"
	"github.com/hxuan190/chain-gateway/internal/domain"
	"github.com/spf13/viper"
)

const (
	defaultConfirmTimeout = 30 * time.Second
	defaultPollInterval   = 1 * time.Second
	defaultJupiterAPIURL  = "https://lite-api.jup.ag/swap/v1"
)

// DexContracts are the on-chain addresses of one EVM DEX deployment.
type DexContracts struct {
	QuoterV2     string   `mapstructure:"quoterV2"`
	SwapRouter02 string   `mapstructure:"swapRouter02"`
	V2Router     string   `mapstructure:"v2Router"`
	FeeTiers     []uint32 `mapstructure:"feeTiers"`
}

// Configured reports whether any contract is set for the deployment.
func (d DexContracts) Configured() bool {
	return d.QuoterV2 != "" || d.SwapRouter02 != "" || d.V2Router != ""
}

type NetworkConfig struct {
	RPCURL         string         `mapstructure:"rpcUrl"`
	ChainID        int64          `mapstructure:"chainId"`
	NativeCurrency string         `mapstructure:"nativeCurrency"`
	NativeDecimals uint8          `mapstructure:"nativeDecimals"`
	SwapProvider   string         `mapstructure:"swapProvider"`
	ConfirmTimeout time.Duration  `mapstructure:"confirmTimeout"`
	PollInterval   time.Duration  `mapstructure:"pollInterval"`
	SlippagePct    float64        `mapstructure:"slippagePct"`
	JupiterAPIURL  string         `mapstructure:"jupiterApiUrl"`
	JupiterAPIKey  string         `mapstructure:"jupiterApiKey"`
	Uniswap        DexContracts   `mapstructure:"uniswap"`
	Pancakeswap    DexContracts   `mapstructure:"pancakeswap"`
	Tokens         []domain.Token `mapstructure:"tokens"`
}

type ChainConfig struct {
	DefaultNetwork string                   `mapstructure:"defaultNetwork"`
	Networks       map[string]NetworkConfig `mapstructure:"networks"`
}

// ChainsConfig is the per chain and network configuration read from a YAML
// file.
type ChainsConfig struct {
	Path   string
	Chains map[string]ChainConfig `mapstructure:"chains"`
}

func (c *ChainsConfig) Key() string {
	return CHAINS_CONFIG_KEY
}

func (c *ChainsConfig) Load() error {
	env := newEnv()
	env.SetDefault("CHAINS_CONFIG", "conf/chains.yaml")
	c.Path = env.GetString("CHAINS_CONFIG")

	v := viper.New()
	v.SetConfigFile(c.Path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read %s: %w", c.Path, err)
	}
	return c.decode(v)
}

// LoadFrom reads the chains configuration from YAML content.
func (c *ChainsConfig) LoadFrom(r io.Reader) error {
	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(r); err != nil {
		return err
	}
	return c.decode(v)
}

func (c *ChainsConfig) decode(v *viper.Viper) error {
	if err := v.Unmarshal(c); err != nil {
		return err
	}
	c.applyDefaults()
	return c.Validate()
}

func (c *ChainsConfig) applyDefaults() {
	for chainName, chain := range c.Chains {
		for name, n := range chain.Networks {
			if n.ConfirmTimeout <= 0 {
				n.ConfirmTimeout = defaultConfirmTimeout
			}
			if n.PollInterval <= 0 {
				n.PollInterval = defaultPollInterval
			}
			if n.SlippagePct <= 0 {
				n.SlippagePct = common.DefaultSlippagePct
			}
			switch chainName {
			case common.ChainSolana:
				if n.NativeCurrency == "" {
					n.NativeCurrency = "SOL"
				}
				if n.NativeDecimals == 0 {
					n.NativeDecimals = common.SolanaDecimals
				}
				if n.JupiterAPIURL == "" {
					n.JupiterAPIURL = defaultJupiterAPIURL
				}
			case common.ChainEthereum:
				if n.NativeCurrency == "" {
					n.NativeCurrency = "ETH"
				}
				if n.NativeDecimals == 0 {
					n.NativeDecimals = common.EthereumDecimals
				}
			}
			chain.Networks[name] = n
		}
		c.Chains[chainName] = chain
	}
}

func (c *ChainsConfig) Validate() error {
	if len(c.Chains) == 0 {
		return errors.New("no chains configured")
	}
	for chainName, chain := range c.Chains {
		if chainName != common.ChainSolana && chainName != common.ChainEthereum {
			return fmt.Errorf("unsupported chain %q", chainName)
		}
		if len(chain.Networks) == 0 {
			return fmt.Errorf("%s: no networks configured", chainName)
		}
		if chain.DefaultNetwork != "" {
			if _, ok := chain.Networks[chain.DefaultNetwork]; !ok {
				return fmt.Errorf("%s: default network %q is not configured", chainName, chain.DefaultNetwork)
			}
		}
		for name, n := range chain.Networks {
			if n.RPCURL == "" {
				return fmt.Errorf("%s-%s: rpcUrl is required", chainName, name)
			}
			if !strings.Contains(n.SwapProvider, "/") {
				return fmt.Errorf("%s-%s: swapProvider must look like <connector>/<type>", chainName, name)
			}
			if chainName == common.ChainEthereum && n.ChainID <= 0 {
				return fmt.Errorf("%s-%s: chainId is required", chainName, name)
			}
			if n.SlippagePct >= 100 {
				return fmt.Errorf("%s-%s: slippagePct must be below 100", chainName, name)
			}
			seen := make(map[string]struct{}, len(n.Tokens))
			for _, t := range n.Tokens {
				if t.Symbol == "" || t.Address == "" {
					return fmt.Errorf("%s-%s: token entries need symbol and address", chainName, name)
				}
				sym := strings.ToUpper(t.Symbol)
				if _, dup := seen[sym]; dup {
					return fmt.Errorf("%s-%s: duplicate token %s", chainName, name, t.Symbol)
				}
				seen[sym] = struct{}{}
			}
		}
	}
	return nil
}

// Network returns the configuration of chain-network.
func (c *ChainsConfig) Network(chain, network string) (NetworkConfig, bool) {
	ch, ok := c.Chains[chain]
	if !ok {
		return NetworkConfig{}, false
	}
	n, ok := ch.Networks[network]
	return n, ok
}
