package evmdex

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Uniswap V3 QuoterV2. PancakeSwap V3 deploys the same interface.
const quoterV2ABIJSON = `[
  {"inputs":[{"components":[
      {"name":"tokenIn","type":"address"},
      {"name":"tokenOut","type":"address"},
      {"name":"amountIn","type":"uint256"},
      {"name":"fee","type":"uint24"},
      {"name":"sqrtPriceLimitX96","type":"uint160"}],
    "name":"params","type":"tuple"}],
   "name":"quoteExactInputSingle",
   "outputs":[
      {"name":"amountOut","type":"uint256"},
      {"name":"sqrtPriceX96After","type":"uint160"},
      {"name":"initializedTicksCrossed","type":"uint32"},
      {"name":"gasEstimate","type":"uint256"}],
   "stateMutability":"nonpayable","type":"function"},
  {"inputs":[{"components":[
      {"name":"tokenIn","type":"address"},
      {"name":"tokenOut","type":"address"},
      {"name":"amount","type":"uint256"},
      {"name":"fee","type":"uint24"},
      {"name":"sqrtPriceLimitX96","type":"uint160"}],
    "name":"params","type":"tuple"}],
   "name":"quoteExactOutputSingle",
   "outputs":[
      {"name":"amountIn","type":"uint256"},
      {"name":"sqrtPriceX96After","type":"uint160"},
      {"name":"initializedTicksCrossed","type":"uint32"},
      {"name":"gasEstimate","type":"uint256"}],
   "stateMutability":"nonpayable","type":"function"}
]`

// SwapRouter02 single-hop entry points (no deadline field).
const swapRouter02ABIJSON = `[
  {"inputs":[{"components":[
      {"name":"tokenIn","type":"address"},
      {"name":"tokenOut","type":"address"},
      {"name":"fee","type":"uint24"},
      {"name":"recipient","type":"address"},
      {"name":"amountIn","type":"uint256"},
      {"name":"amountOutMinimum","type":"uint256"},
      {"name":"sqrtPriceLimitX96","type":"uint160"}],
    "name":"params","type":"tuple"}],
   "name":"exactInputSingle",
   "outputs":[{"name":"amountOut","type":"uint256"}],
   "stateMutability":"payable","type":"function"},
  {"inputs":[{"components":[
      {"name":"tokenIn","type":"address"},
      {"name":"tokenOut","type":"address"},
      {"name":"fee","type":"uint24"},
      {"name":"recipient","type":"address"},
      {"name":"amountOut","type":"uint256"},
      {"name":"amountInMaximum","type":"uint256"},
      {"name":"sqrtPriceLimitX96","type":"uint160"}],
    "name":"params","type":"tuple"}],
   "name":"exactOutputSingle",
   "outputs":[{"name":"amountIn","type":"uint256"}],
   "stateMutability":"payable","type":"function"}
]`

const v2RouterABIJSON = `[
  {"inputs":[{"name":"amountIn","type":"uint256"},{"name":"path","type":"address[]"}],
   "name":"getAmountsOut","outputs":[{"name":"amounts","type":"uint256[]"}],
   "stateMutability":"view","type":"function"},
  {"inputs":[{"name":"amountOut","type":"uint256"},{"name":"path","type":"address[]"}],
   "name":"getAmountsIn","outputs":[{"name":"amounts","type":"uint256[]"}],
   "stateMutability":"view","type":"function"},
  {"inputs":[
      {"name":"amountIn","type":"uint256"},
      {"name":"amountOutMin","type":"uint256"},
      {"name":"path","type":"address[]"},
      {"name":"to","type":"address"},
      {"name":"deadline","type":"uint256"}],
   "name":"swapExactTokensForTokens","outputs":[{"name":"amounts","type":"uint256[]"}],
   "stateMutability":"nonpayable","type":"function"},
  {"inputs":[
      {"name":"amountOut","type":"uint256"},
      {"name":"amountInMax","type":"uint256"},
      {"name":"path","type":"address[]"},
      {"name":"to","type":"address"},
      {"name":"deadline","type":"uint256"}],
   "name":"swapTokensForExactTokens","outputs":[{"name":"amounts","type":"uint256[]"}],
   "stateMutability":"nonpayable","type":"function"}
]`

const v3PoolABIJSON = `[
  {"inputs":[],"name":"fee","outputs":[{"name":"","type":"uint24"}],"stateMutability":"view","type":"function"}
]`

var (
	QuoterV2ABI     = mustParseABI(quoterV2ABIJSON)
	SwapRouter02ABI = mustParseABI(swapRouter02ABIJSON)
	V2RouterABI     = mustParseABI(v2RouterABIJSON)
	V3PoolABI       = mustParseABI(v3PoolABIJSON)
)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(err)
	}
	return parsed
}

type quoteExactInputSingleParams struct {
	TokenIn           common.Address
	TokenOut          common.Address
	AmountIn          *big.Int
	Fee               *big.Int
	SqrtPriceLimitX96 *big.Int
}

type quoteExactOutputSingleParams struct {
	TokenIn           common.Address
	TokenOut          common.Address
	Amount            *big.Int
	Fee               *big.Int
	SqrtPriceLimitX96 *big.Int
}

type exactInputSingleParams struct {
	TokenIn           common.Address
	TokenOut          common.Address
	Fee               *big.Int
	Recipient         common.Address
	AmountIn          *big.Int
	AmountOutMinimum  *big.Int
	SqrtPriceLimitX96 *big.Int
}

type exactOutputSingleParams struct {
	TokenIn           common.Address
	TokenOut          common.Address
	Fee               *big.Int
	Recipient         common.Address
	AmountOut         *big.Int
	AmountInMaximum   *big.Int
	SqrtPriceLimitX96 *big.Int
}
