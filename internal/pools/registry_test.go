package pools

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hxuan190/chain-gateway/internal/adapters/persistence"
	"github.com/hxuan190/chain-gateway/internal/domain"
)

func solPool() *domain.Pool {
	return &domain.Pool{
		Address:     "58oQChx4yWmvKdwLLZzBi4ChoCc2fqCUWBkwMihLYQo2",
		Connector:   "Raydium",
		Chain:       "solana",
		Network:     "mainnet-beta",
		Type:        domain.PoolTypeAMM,
		BaseSymbol:  "sol",
		QuoteSymbol: "usdc",
	}
}

func TestRegistryLookup(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Add(solPool()))

	p, err := r.Lookup("solana", "mainnet-beta", "raydium", domain.PoolTypeAMM, "SOL", "USDC")
	require.NoError(t, err)
	assert.Equal(t, "58oQChx4yWmvKdwLLZzBi4ChoCc2fqCUWBkwMihLYQo2", p.Address)

	p, err = r.Lookup("solana", "mainnet-beta", "raydium", domain.PoolTypeAMM, "usdc", "sol")
	require.NoError(t, err, "pair order does not matter")
	assert.Equal(t, "SOL", p.BaseSymbol)

	_, err = r.Lookup("solana", "mainnet-beta", "raydium", domain.PoolTypeCLMM, "SOL", "USDC")
	assert.ErrorIs(t, err, ErrPoolNotFound)
	assert.Contains(t, err.Error(), "raydium clmm")
	assert.Contains(t, err.Error(), "SOL-USDC")
}

func TestRegistryAddRejectsInvalid(t *testing.T) {
	r := NewRegistry(nil)
	p := solPool()
	p.Type = "router"
	assert.Error(t, r.Add(p))
	assert.Equal(t, 0, r.Len())
}

func TestRegistryRemoveAndList(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Add(solPool()))
	clmm := solPool()
	clmm.Address = "3ucNos4NbumPLZNWztqGHNFFgkHeRMBQAVemeeomsUxv"
	clmm.Type = domain.PoolTypeCLMM
	require.NoError(t, r.Add(clmm))

	assert.Len(t, r.List(Filter{}), 2)
	assert.Len(t, r.List(Filter{Type: domain.PoolTypeCLMM}), 1)
	assert.Len(t, r.List(Filter{Connector: "meteora"}), 0)

	require.NoError(t, r.Remove(clmm.Key()))
	assert.ErrorIs(t, r.Remove(clmm.Key()), ErrPoolNotFound)
	assert.Equal(t, 1, r.Len())
}

func TestRegistryPersistsThroughStorage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pools.db")
	storage, err := persistence.NewStorage(path)
	require.NoError(t, err)

	r := NewRegistry(storage)
	require.NoError(t, r.Add(solPool()))
	require.NoError(t, storage.Close())

	storage, err = persistence.NewStorage(path)
	require.NoError(t, err)
	defer storage.Close()

	reloaded := NewRegistry(storage)
	require.NoError(t, reloaded.Load())
	_, err = reloaded.Lookup("solana", "mainnet-beta", "raydium", domain.PoolTypeAMM, "SOL", "USDC")
	assert.NoError(t, err)
}

func TestImportSeed(t *testing.T) {
	dir := t.TempDir()
	seed := filepath.Join(dir, "pools.yaml")
	require.NoError(t, os.WriteFile(seed, []byte(`
pools:
  - address: "0x36696169C63e42cd08ce11f5deeBbCeBae652050"
    connector: pancakeswap
    chain: ethereum
    network: bsc
    type: clmm
    baseSymbol: USDT
    quoteSymbol: WBNB
    feePct: 0.05
  - address: "0x16b9a82891338f9bA80E2D6970FddA79D1eb0daE"
    connector: pancakeswap
    chain: ethereum
    network: bsc
    type: amm
    baseSymbol: USDT
    quoteSymbol: WBNB
`), 0644))

	r := NewRegistry(nil)
	n, err := r.ImportSeed(seed)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	p, err := r.Lookup("ethereum", "bsc", "pancakeswap", domain.PoolTypeCLMM, "WBNB", "USDT")
	require.NoError(t, err)
	assert.Equal(t, 0.05, p.FeePct)
	assert.False(t, p.UpdatedAt.IsZero())
}

func TestImportSeedRejectsInvalidEntry(t *testing.T) {
	seed := filepath.Join(t.TempDir(), "pools.json")
	require.NoError(t, os.WriteFile(seed, []byte(`{"pools":[{"address":"x","connector":"raydium","chain":"solana","network":"devnet","type":"amm","baseSymbol":"SOL","quoteSymbol":"SOL"}]}`), 0644))

	r := NewRegistry(nil)
	_, err := r.ImportSeed(seed)
	assert.Error(t, err)
	assert.Equal(t, 0, r.Len())
}
