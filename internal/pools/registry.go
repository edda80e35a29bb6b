// Package pools is the registry of liquidity pools that amm and clmm
// connectors are pinned to.
package pools

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/hxuan190/chain-gateway/internal/domain"
	"github.com/hxuan190/chain-gateway/internal/metrics"
)

var ErrPoolNotFound = errors.New("pool not found")

// Storage persists registry contents. A nil Storage keeps the registry in
// memory only.
type Storage interface {
	SavePool(pool *domain.Pool) error
	SavePoolBatch(pools []*domain.Pool) error
	DeletePool(key domain.PoolKey) error
	LoadAllPools() ([]*domain.Pool, error)
}

type Registry struct {
	mu      sync.RWMutex
	pools   map[domain.PoolKey]*domain.Pool
	storage Storage
}

func NewRegistry(storage Storage) *Registry {
	return &Registry{
		pools:   make(map[domain.PoolKey]*domain.Pool),
		storage: storage,
	}
}

// Load fills the registry from storage.
func (r *Registry) Load() error {
	if r.storage == nil {
		return nil
	}
	stored, err := r.storage.LoadAllPools()
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range stored {
		if err := p.Validate(); err != nil {
			log.Warn().Str("address", p.Address).Err(err).Msg("[poolRegistry] skipping invalid stored pool")
			continue
		}
		r.pools[p.Key()] = p
	}
	metrics.PoolCount.Set(float64(len(r.pools)))
	return nil
}

// Lookup returns the pool for the connector and pair, in either order.
func (r *Registry) Lookup(chain, network, connector string, poolType domain.PoolType, base, quote string) (*domain.Pool, error) {
	key := domain.NewPoolKey(chain, network, connector, poolType, base, quote)

	r.mu.RLock()
	p, ok := r.pools[key]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: no %s %s pool for %s-%s on %s-%s", ErrPoolNotFound, connector, poolType, base, quote, chain, network)
	}
	return p, nil
}

// Add validates and stores pool, replacing any pool with the same key.
func (r *Registry) Add(pool *domain.Pool) error {
	if err := pool.Validate(); err != nil {
		return err
	}
	normalize(pool)
	if pool.UpdatedAt.IsZero() {
		pool.UpdatedAt = time.Now().UTC()
	}
	if r.storage != nil {
		if err := r.storage.SavePool(pool); err != nil {
			return err
		}
	}

	r.mu.Lock()
	r.pools[pool.Key()] = pool
	metrics.PoolCount.Set(float64(len(r.pools)))
	r.mu.Unlock()
	return nil
}

func (r *Registry) Remove(key domain.PoolKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.pools[key]; !ok {
		return fmt.Errorf("%w: %s", ErrPoolNotFound, key)
	}
	if r.storage != nil {
		if err := r.storage.DeletePool(key); err != nil {
			return err
		}
	}
	delete(r.pools, key)
	metrics.PoolCount.Set(float64(len(r.pools)))
	return nil
}

// Filter narrows List. Empty fields match everything.
type Filter struct {
	Chain     string
	Network   string
	Connector string
	Type      domain.PoolType
}

func (f Filter) match(p *domain.Pool) bool {
	return (f.Chain == "" || strings.EqualFold(f.Chain, p.Chain)) &&
		(f.Network == "" || strings.EqualFold(f.Network, p.Network)) &&
		(f.Connector == "" || strings.EqualFold(f.Connector, p.Connector)) &&
		(f.Type == "" || f.Type == p.Type)
}

func (r *Registry) List(f Filter) []*domain.Pool {
	r.mu.RLock()
	out := make([]*domain.Pool, 0, len(r.pools))
	for _, p := range r.pools {
		if f.match(p) {
			out = append(out, p)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].Key().String() < out[j].Key().String()
	})
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.pools)
}

type seedFile struct {
	Pools []*domain.Pool `mapstructure:"pools"`
}

// ImportSeed adds the pools listed under "pools" in a JSON or YAML file.
// Existing entries with the same key are replaced.
func (r *Registry) ImportSeed(path string) (int, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return 0, fmt.Errorf("read seed %s: %w", path, err)
	}
	var seed seedFile
	if err := v.Unmarshal(&seed); err != nil {
		return 0, fmt.Errorf("decode seed %s: %w", path, err)
	}

	valid := make([]*domain.Pool, 0, len(seed.Pools))
	now := time.Now().UTC()
	for _, p := range seed.Pools {
		if err := p.Validate(); err != nil {
			return 0, fmt.Errorf("seed pool %q: %w", p.Address, err)
		}
		normalize(p)
		p.UpdatedAt = now
		valid = append(valid, p)
	}
	if r.storage != nil {
		if err := r.storage.SavePoolBatch(valid); err != nil {
			return 0, err
		}
	}

	r.mu.Lock()
	for _, p := range valid {
		r.pools[p.Key()] = p
	}
	metrics.PoolCount.Set(float64(len(r.pools)))
	r.mu.Unlock()

	log.Info().Str("path", path).Int("count", len(valid)).Msg("[poolRegistry] imported seed pools")
	return len(valid), nil
}

func normalize(p *domain.Pool) {
	p.Chain = strings.ToLower(p.Chain)
	p.Network = strings.ToLower(p.Network)
	p.Connector = strings.ToLower(p.Connector)
	p.BaseSymbol = strings.ToUpper(p.BaseSymbol)
	p.QuoteSymbol = strings.ToUpper(p.QuoteSymbol)
}
