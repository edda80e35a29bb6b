package evmdex

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

type Kind string

const (
	KindV2 Kind = "v2"
	KindV3 Kind = "v3"
)

// Trade is the cached execution plan of an EVM quote, in raw token units.
type Trade struct {
	Kind     Kind
	TokenIn  common.Address
	TokenOut common.Address
	// Fee is the V3 pool fee in hundredths of a bip.
	Fee     uint32
	ExactIn bool

	AmountIn     *big.Int
	AmountOut    *big.Int
	MinAmountOut *big.Int
	MaxAmountIn  *big.Int
}
