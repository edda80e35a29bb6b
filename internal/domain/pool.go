package domain

import (
	"fmt"
	"strings"
	"time"
)

type PoolType string

const (
	PoolTypeAMM  PoolType = "amm"
	PoolTypeCLMM PoolType = "clmm"
)

func (p PoolType) Valid() bool {
	return p == PoolTypeAMM || p == PoolTypeCLMM
}

// Pool is a registered liquidity pool for one (connector, network, type,
// base, quote) combination.
type Pool struct {
	Address     string    `json:"address"`
	Connector   string    `json:"connector"`
	Chain       string    `json:"chain"`
	Network     string    `json:"network"`
	Type        PoolType  `json:"type"`
	BaseSymbol  string    `json:"baseSymbol"`
	QuoteSymbol string    `json:"quoteSymbol"`
	FeePct      float64   `json:"feePct,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// PoolKey identifies a pool in the registry. Symbols are upper-cased and
// ordered so that base/quote and quote/base resolve to the same pool.
type PoolKey struct {
	Chain     string
	Network   string
	Connector string
	Type      PoolType
	TokenA    string
	TokenB    string
}

func NewPoolKey(chain, network, connector string, poolType PoolType, base, quote string) PoolKey {
	a, b := strings.ToUpper(base), strings.ToUpper(quote)
	if b < a {
		a, b = b, a
	}
	return PoolKey{
		Chain:     strings.ToLower(chain),
		Network:   strings.ToLower(network),
		Connector: strings.ToLower(connector),
		Type:      poolType,
		TokenA:    a,
		TokenB:    b,
	}
}

func (p *Pool) Key() PoolKey {
	return NewPoolKey(p.Chain, p.Network, p.Connector, p.Type, p.BaseSymbol, p.QuoteSymbol)
}

func (k PoolKey) String() string {
	return fmt.Sprintf("%s/%s/%s/%s/%s-%s", k.Chain, k.Network, k.Connector, k.Type, k.TokenA, k.TokenB)
}

func (p *Pool) Validate() error {
	switch {
	case p.Address == "":
		return fmt.Errorf("address is required")
	case p.Connector == "":
		return fmt.Errorf("connector is required")
	case p.Chain == "" || p.Network == "":
		return fmt.Errorf("chain and network are required")
	case !p.Type.Valid():
		return fmt.Errorf("type must be amm or clmm, got %q", p.Type)
	case p.BaseSymbol == "" || p.QuoteSymbol == "":
		return fmt.Errorf("baseSymbol and quoteSymbol are required")
	case strings.EqualFold(p.BaseSymbol, p.QuoteSymbol):
		return fmt.Errorf("baseSymbol and quoteSymbol must differ")
	}
	return nil
}
