package gateway

import (
	"fmt"
	"strings"

	"github.com/hxuan190/chain-gateway/internal/common"
)

// ChainNetwork is a parsed "<chain>-<network>" selector.
type ChainNetwork struct {
	Chain   string
	Network string
}

func (cn ChainNetwork) String() string {
	return cn.Chain + "-" + cn.Network
}

// ParseChainNetwork splits on the first hyphen only, so networks may contain
// hyphens themselves ("solana-mainnet-beta").
func ParseChainNetwork(s string) (ChainNetwork, error) {
	chain, network, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok || chain == "" || network == "" {
		return ChainNetwork{}, common.HTTPErrorValidation("chainNetwork", fmt.Sprintf("expected <chain>-<network>, got %q", s))
	}
	return ChainNetwork{Chain: strings.ToLower(chain), Network: network}, nil
}
