// Package amount converts between raw on-chain integers and human decimal
// amounts and derives balance deltas, fees and slippage bounds from them.
package amount

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/hxuan190/chain-gateway/internal/domain"
)

var (
	ErrNegativeAmount  = errors.New("amount must not be negative")
	ErrTooManyDecimals = errors.New("amount has more fractional digits than the token supports")
	ErrFeeOverflow     = errors.New("fee overflows 256 bits")
	ErrInvalidSlippage = errors.New("slippage must be within [0, 100)")

	hundred = decimal.NewFromInt(100)
)

// FormatAmount divides a raw integer string by 10^decimals. Malformed input
// yields zero.
func FormatAmount(raw string, decimals uint8) decimal.Decimal {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero
	}
	v, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		log.Warn().Str("raw", raw).Msg("[amount] malformed raw amount, using zero")
		return decimal.Zero
	}
	return FormatAmountBig(v, decimals)
}

func FormatAmountBig(raw *big.Int, decimals uint8) decimal.Decimal {
	if raw == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(raw, -int32(decimals))
}

// ParseAmount converts human units to a raw integer, truncating toward zero
// at the token's precision. Digits beyond that precision are rejected.
func ParseAmount(human decimal.Decimal, decimals uint8) (*big.Int, error) {
	if human.IsNegative() {
		return nil, ErrNegativeAmount
	}
	shifted := human.Shift(int32(decimals))
	if !shifted.Equal(shifted.Truncate(0)) {
		return nil, fmt.Errorf("%w: max %d", ErrTooManyDecimals, decimals)
	}
	return shifted.BigInt(), nil
}

// BalanceDelta is the signed change of the wallet's base and quote balances.
type BalanceDelta struct {
	Base  decimal.Decimal
	Quote decimal.Decimal
}

// ComputeBalanceDelta maps a swap to base/quote balance changes. A BUY spends
// quote for base, a SELL spends base for quote.
func ComputeBalanceDelta(side domain.Side, amountIn, amountOut decimal.Decimal) BalanceDelta {
	if side == domain.SideBuy {
		return BalanceDelta{Base: amountOut, Quote: amountIn.Neg()}
	}
	return BalanceDelta{Base: amountIn.Neg(), Quote: amountOut}
}

// ComputeFee multiplies consumed units by their unit price and scales the
// product to native units. Solana callers pass the lamport fee with a unit
// price of one.
func ComputeFee(units, unitPrice *uint256.Int, nativeDecimals uint8) (decimal.Decimal, error) {
	if units == nil || unitPrice == nil {
		return decimal.Zero, nil
	}
	total, overflow := new(uint256.Int).MulOverflow(units, unitPrice)
	if overflow {
		return decimal.Zero, ErrFeeOverflow
	}
	return FormatAmountBig(total.ToBig(), nativeDecimals), nil
}

// Bounds are the slippage-protected limits of a quote.
type Bounds struct {
	MinAmountOut decimal.Decimal
	MaxAmountIn  decimal.Decimal
}

// SlippageBounds derives the limits for a quote. A SELL is exact-in, so only
// the output is protected; a BUY is exact-out, so only the input is.
func SlippageBounds(side domain.Side, amountIn, amountOut decimal.Decimal, slippagePct float64) (Bounds, error) {
	if slippagePct < 0 || slippagePct >= 100 {
		return Bounds{}, ErrInvalidSlippage
	}
	s := decimal.NewFromFloat(slippagePct)
	if side == domain.SideBuy {
		// Truncated, so flooring to token units never raises the cap.
		maxIn, _ := amountIn.Mul(hundred).QuoRem(hundred.Sub(s), boundPrecision)
		return Bounds{
			MinAmountOut: amountOut,
			MaxAmountIn:  maxIn,
		}, nil
	}
	num := amountOut.Mul(hundred.Sub(s))
	// Dividing by 100 terminates two digits past the numerator's scale.
	return Bounds{
		MinAmountOut: num.DivRound(hundred, scaleOf(num)+2),
		MaxAmountIn:  amountIn,
	}, nil
}

// boundPrecision is well past the 18 fractional digits of any supported token.
const boundPrecision = 36

func scaleOf(d decimal.Decimal) int32 {
	if exp := d.Exponent(); exp < 0 {
		return -exp
	}
	return 0
}

// ToFloat is the single conversion from exact amounts to response floats.
func ToFloat(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}
