package gateway

import "sort"

// NetworkInfo describes one configured network of a chain.
type NetworkInfo struct {
	Name         string   `json:"name" example:"bsc"`
	Default      bool     `json:"default"`
	SwapProvider string   `json:"swapProvider" example:"pancakeswap/router"`
	Providers    []string `json:"providers"`
	Tokens       []string `json:"tokens"`
}

type ChainInfo struct {
	Chain    string        `json:"chain" example:"ethereum"`
	Networks []NetworkInfo `json:"networks"`
}

// Info reports the networks, providers and token symbols served by s.
func (s *ChainSwapper) Info() ChainInfo {
	info := ChainInfo{Chain: s.chain}
	for _, name := range s.Networks() {
		n := s.networks[name]
		symbols := make([]string, 0)
		for _, t := range n.Tokens.All() {
			symbols = append(symbols, t.Symbol)
		}
		sort.Strings(symbols)
		info.Networks = append(info.Networks, NetworkInfo{
			Name:         name,
			Default:      name == s.defaultNetwork,
			SwapProvider: n.DefaultProvider,
			Providers:    s.Providers(name),
			Tokens:       symbols,
		})
	}
	return info
}

// Catalog lists every registered chain, sorted by name.
func (r *Router) Catalog() []ChainInfo {
	out := make([]ChainInfo, 0, len(r.swappers))
	for _, chain := range r.Chains() {
		out = append(out, r.swappers[chain].Info())
	}
	return out
}
