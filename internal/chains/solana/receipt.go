package solana

import (
	"math/big"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	"github.com/hxuan190/chain-gateway/internal/amount"
	"github.com/hxuan190/chain-gateway/internal/common"
	"github.com/hxuan190/chain-gateway/internal/domain"
	"github.com/hxuan190/chain-gateway/internal/reconcile"
)

// ReceiptParams identifies whose balances a receipt is read for.
type ReceiptParams struct {
	Signature string
	Wallet    solana.PublicKey
	TokenIn   domain.Token
	TokenOut  domain.Token
}

// ReceiptFromTransaction reads a fetched transaction. Actual amounts come
// from the wallet's pre/post token balances; native SOL legs use the wallet's
// lamport delta with the fee added back.
func ReceiptFromTransaction(res *rpc.GetTransactionResult, p ReceiptParams) reconcile.Receipt {
	r := reconcile.Receipt{Signature: p.Signature, State: reconcile.StatePending}
	if res == nil || res.Meta == nil {
		return r
	}
	r.Slot = res.Slot

	meta := res.Meta
	r.Fee, _ = amount.ComputeFee(uint256.NewInt(meta.Fee), uint256.NewInt(1), common.SolanaDecimals)
	if meta.Err != nil {
		r.State = reconcile.StateFailed
		r.FailureReason = describeErr(meta.Err)
		return r
	}
	r.State = reconcile.StateConfirmed

	idx := walletIndex(res, p.Wallet)
	if in, ok := walletDelta(meta, idx, p.Wallet, p.TokenIn.Address); ok && in.Sign() < 0 {
		v := amount.FormatAmountBig(new(big.Int).Neg(in), p.TokenIn.Decimals)
		r.ActualAmountIn = &v
	}
	if out, ok := walletDelta(meta, idx, p.Wallet, p.TokenOut.Address); ok && out.Sign() > 0 {
		v := amount.FormatAmountBig(out, p.TokenOut.Decimals)
		r.ActualAmountOut = &v
	}
	return r
}

// walletIndex finds the wallet among the transaction's static keys. The fee
// payer (index 0) is assumed when the message cannot be decoded.
func walletIndex(res *rpc.GetTransactionResult, wallet solana.PublicKey) int {
	if res.Transaction == nil {
		return 0
	}
	tx, err := res.Transaction.GetTransaction()
	if err != nil || tx == nil {
		return 0
	}
	for i, k := range tx.Message.AccountKeys {
		if k.Equals(wallet) {
			return i
		}
	}
	return 0
}

// walletDelta returns the raw balance change of mint for wallet.
func walletDelta(meta *rpc.TransactionMeta, idx int, wallet solana.PublicKey, mint string) (*big.Int, bool) {
	delta := new(big.Int)
	found := false

	for _, b := range meta.PreTokenBalances {
		if v, ok := ownedAmount(b, wallet, mint); ok {
			delta.Sub(delta, v)
			found = true
		}
	}
	for _, b := range meta.PostTokenBalances {
		if v, ok := ownedAmount(b, wallet, mint); ok {
			delta.Add(delta, v)
			found = true
		}
	}

	if mint == common.WrappedSolMint.String() && idx < len(meta.PreBalances) && idx < len(meta.PostBalances) {
		lamports := new(big.Int).SetUint64(meta.PostBalances[idx])
		lamports.Sub(lamports, new(big.Int).SetUint64(meta.PreBalances[idx]))
		if idx == 0 {
			lamports.Add(lamports, new(big.Int).SetUint64(meta.Fee))
		}
		delta.Add(delta, lamports)
		found = true
	}
	return delta, found
}

func ownedAmount(b rpc.TokenBalance, wallet solana.PublicKey, mint string) (*big.Int, bool) {
	if b.Owner == nil || !b.Owner.Equals(wallet) || b.Mint.String() != mint || b.UiTokenAmount == nil {
		return nil, false
	}
	v, ok := new(big.Int).SetString(b.UiTokenAmount.Amount, 10)
	return v, ok
}

func describeErr(e interface{}) string {
	switch v := e.(type) {
	case string:
		return v
	case map[string]interface{}:
		for k := range v {
			return k
		}
	}
	return "transaction failed"
}

// FeeOf returns the transaction fee in SOL, or zero when meta is absent.
func FeeOf(res *rpc.GetTransactionResult) decimal.Decimal {
	if res == nil || res.Meta == nil {
		return decimal.Zero
	}
	return amount.FormatAmountBig(new(big.Int).SetUint64(res.Meta.Fee), common.SolanaDecimals)
}
