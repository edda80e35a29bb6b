package connectors

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/hxuan190/chain-gateway/internal/common"
	"github.com/hxuan190/chain-gateway/internal/domain"
	"github.com/hxuan190/chain-gateway/internal/pools"
)

// PoolLookup is the pool registry as seen by the resolver.
type PoolLookup interface {
	Lookup(chain, network, connector string, poolType domain.PoolType, base, quote string) (*domain.Pool, error)
}

// Resolution is a connector bound to the pool it must trade through, if any.
type Resolution struct {
	Connector Connector
	Pool      *domain.Pool
}

// Resolver is the dispatch table of one chain. Connectors are registered per
// network at startup and never change afterwards.
type Resolver struct {
	chain string
	pools PoolLookup
	table map[string]map[Provider]Connector
}

func NewResolver(chain string, pools PoolLookup) *Resolver {
	return &Resolver{
		chain: strings.ToLower(chain),
		pools: pools,
		table: make(map[string]map[Provider]Connector),
	}
}

func (r *Resolver) Chain() string {
	return r.chain
}

// Register adds a connector for network. Registering the same provider twice
// on a network is a wiring error.
func (r *Resolver) Register(network string, c Connector) error {
	network = strings.ToLower(network)
	if c.Chain() != r.chain {
		return fmt.Errorf("connector %s belongs to %s, not %s", c.Provider(), c.Chain(), r.chain)
	}
	byProvider, ok := r.table[network]
	if !ok {
		byProvider = make(map[Provider]Connector)
		r.table[network] = byProvider
	}
	if _, dup := byProvider[c.Provider()]; dup {
		return fmt.Errorf("connector %s already registered on %s-%s", c.Provider(), r.chain, network)
	}
	byProvider[c.Provider()] = c
	return nil
}

// Supports reports whether provider is registered on any network.
func (r *Resolver) Supports(p Provider) bool {
	for _, byProvider := range r.table {
		if _, ok := byProvider[p]; ok {
			return true
		}
	}
	return false
}

// Connector returns the connector registered for provider on network.
func (r *Resolver) Connector(network string, p Provider) (Connector, bool) {
	c, ok := r.table[strings.ToLower(network)][p]
	return c, ok
}

// Providers lists the providers registered on network, sorted.
func (r *Resolver) Providers(network string) []string {
	byProvider := r.table[strings.ToLower(network)]
	out := make([]string, 0, len(byProvider))
	for p := range byProvider {
		out = append(out, p.String())
	}
	sort.Strings(out)
	return out
}

// Resolve binds provider to a connector on network. Pinned connector types
// need a registered pool for the pair; a missing pool fails the request
// instead of falling back to another connector.
func (r *Resolver) Resolve(ctx context.Context, network, provider string, base, quote domain.Token) (*Resolution, error) {
	p, err := ParseProvider(provider)
	if err != nil {
		return nil, err
	}
	network = strings.ToLower(network)

	c, ok := r.table[network][p]
	if !ok {
		return nil, common.HTTPErrorBadRequest(fmt.Sprintf("unsupported swap provider %s on %s-%s", p, r.chain, network))
	}

	res := &Resolution{Connector: c}
	if !p.Type.RequiresPool() {
		return res, nil
	}

	pool, err := r.pools.Lookup(r.chain, network, p.Name, p.Type.PoolType(), base.Symbol, quote.Symbol)
	if err != nil {
		if errors.Is(err, pools.ErrPoolNotFound) {
			return nil, common.HTTPErrorNotFound(fmt.Sprintf("no %s pool found for %s-%s on %s-%s", p, base.Symbol, quote.Symbol, r.chain, network))
		}
		return nil, err
	}
	res.Pool = pool
	return res, nil
}
