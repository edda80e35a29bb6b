package ethereum

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"

	"github.com/hxuan190/chain-gateway/internal/amount"
	"github.com/hxuan190/chain-gateway/internal/domain"
	"github.com/hxuan190/chain-gateway/internal/reconcile"
)

type ReceiptParams struct {
	Signature      string
	Wallet         common.Address
	TokenIn        domain.Token
	TokenOut       domain.Token
	NativeDecimals uint8
}

// ReceiptFromEVM reads a mined receipt. A nil receipt is still pending. Actual
// amounts are summed from ERC-20 Transfer logs leaving or reaching the wallet.
func ReceiptFromEVM(rcpt *types.Receipt, p ReceiptParams) reconcile.Receipt {
	r := reconcile.Receipt{Signature: p.Signature, State: reconcile.StatePending}
	if rcpt == nil {
		return r
	}
	if rcpt.BlockNumber != nil {
		r.Slot = rcpt.BlockNumber.Uint64()
	}

	if rcpt.EffectiveGasPrice != nil {
		price, overflow := uint256.FromBig(rcpt.EffectiveGasPrice)
		if !overflow {
			r.Fee, _ = amount.ComputeFee(uint256.NewInt(rcpt.GasUsed), price, p.NativeDecimals)
		}
	}

	if rcpt.Status != types.ReceiptStatusSuccessful {
		r.State = reconcile.StateFailed
		r.FailureReason = "execution reverted"
		return r
	}
	r.State = reconcile.StateConfirmed

	tokenIn := common.HexToAddress(p.TokenIn.Address)
	tokenOut := common.HexToAddress(p.TokenOut.Address)
	sent, received := new(big.Int), new(big.Int)
	for _, l := range rcpt.Logs {
		from, to, value, ok := decodeTransfer(l)
		if !ok {
			continue
		}
		if l.Address == tokenIn && from == p.Wallet {
			sent.Add(sent, value)
		}
		if l.Address == tokenOut && to == p.Wallet {
			received.Add(received, value)
		}
	}

	if sent.Sign() > 0 {
		v := amount.FormatAmountBig(sent, p.TokenIn.Decimals)
		r.ActualAmountIn = &v
	}
	if received.Sign() > 0 {
		v := amount.FormatAmountBig(received, p.TokenOut.Decimals)
		r.ActualAmountOut = &v
	}
	return r
}

func decodeTransfer(l *types.Log) (from, to common.Address, value *big.Int, ok bool) {
	if l == nil || len(l.Topics) != 3 || l.Topics[0] != TransferTopic {
		return common.Address{}, common.Address{}, nil, false
	}
	from = common.BytesToAddress(l.Topics[1].Bytes())
	to = common.BytesToAddress(l.Topics[2].Bytes())
	return from, to, new(big.Int).SetBytes(l.Data), true
}
