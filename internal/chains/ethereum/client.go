// Package ethereum wraps go-ethereum's client with the call, submit and
// receipt operations used by the EVM swap connectors.
package ethereum

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"

	geth "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
	"github.com/rs/zerolog/log"

	"github.com/hxuan190/chain-gateway/internal/amount"
	"github.com/hxuan190/chain-gateway/internal/chains"
	gwcommon "github.com/hxuan190/chain-gateway/internal/common"
	"github.com/hxuan190/chain-gateway/internal/domain"
	"github.com/hxuan190/chain-gateway/internal/reconcile"
)

const upstreamName = "ethereum-rpc"

var txHashPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)

// EthClient is the subset of *ethclient.Client used here.
type EthClient interface {
	CallContract(ctx context.Context, msg geth.CallMsg, blockNumber *big.Int) ([]byte, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg geth.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

type Options struct {
	ConfirmTimeout time.Duration
	PollInterval   time.Duration
	NativeDecimals uint8
	// GasBufferPct is added on top of the node's gas estimate.
	GasBufferPct uint64
}

type Client struct {
	eth     EthClient
	network string
	chainID *big.Int
	opts    Options
}

func Dial(ctx context.Context, rpcURL, network string, chainID int64, opts Options) (*Client, error) {
	ec, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", network, err)
	}
	return NewClientWithEth(ec, network, chainID, opts), nil
}

func NewClientWithEth(eth EthClient, network string, chainID int64, opts Options) *Client {
	if opts.ConfirmTimeout <= 0 {
		opts.ConfirmTimeout = 30 * time.Second
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	if opts.NativeDecimals == 0 {
		opts.NativeDecimals = gwcommon.EthereumDecimals
	}
	if opts.GasBufferPct == 0 {
		opts.GasBufferPct = 20
	}
	return &Client{eth: eth, network: network, chainID: big.NewInt(chainID), opts: opts}
}

func (c *Client) Network() string {
	return c.network
}

func (c *Client) NativeDecimals() uint8 {
	return c.opts.NativeDecimals
}

// Call runs a read-only contract call against the latest block.
func (c *Client) Call(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	out, err := c.eth.CallContract(ctx, geth.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, chains.Classify(upstreamName, err)
	}
	return out, nil
}

func (c *Client) Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	data, err := ERC20ABI.Pack("allowance", owner, spender)
	if err != nil {
		return nil, err
	}
	out, err := c.Call(ctx, token, data)
	if err != nil {
		return nil, err
	}
	res, err := ERC20ABI.Unpack("allowance", out)
	if err != nil {
		return nil, fmt.Errorf("decode allowance: %w", err)
	}
	v, ok := res[0].(*big.Int)
	if !ok {
		return nil, errors.New("decode allowance: unexpected type")
	}
	return v, nil
}

// EnsureAllowance fails with an Insufficient error naming the spender when
// owner has not approved at least need of token.
func (c *Client) EnsureAllowance(ctx context.Context, token domain.Token, owner, spender common.Address, need *big.Int) error {
	have, err := c.Allowance(ctx, common.HexToAddress(token.Address), owner, spender)
	if err != nil {
		return err
	}
	if have.Cmp(need) >= 0 {
		return nil
	}
	return gwcommon.HTTPErrorInsufficient(fmt.Sprintf(
		"insufficient %s allowance: approve %s to spender %s (current allowance %s)",
		token.Symbol,
		amount.FormatAmountBig(need, token.Decimals).String(),
		spender.Hex(),
		amount.FormatAmountBig(have, token.Decimals).String(),
	))
}

// SendTx signs and broadcasts a legacy transaction calling to with data.
func (c *Client) SendTx(ctx context.Context, key *ecdsa.PrivateKey, to common.Address, data []byte, value *big.Int) (common.Hash, error) {
	from := crypto.PubkeyToAddress(key.PublicKey)
	if value == nil {
		value = new(big.Int)
	}

	nonce, err := c.eth.PendingNonceAt(ctx, from)
	if err != nil {
		return common.Hash{}, chains.Classify(upstreamName, err)
	}
	gasPrice, err := c.eth.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, chains.Classify(upstreamName, err)
	}
	gas, err := c.eth.EstimateGas(ctx, geth.CallMsg{From: from, To: &to, GasPrice: gasPrice, Value: value, Data: data})
	if err != nil {
		if isInsufficientFunds(err) {
			return common.Hash{}, gwcommon.HTTPErrorInsufficient(fmt.Sprintf("wallet %s cannot cover gas for this swap", from.Hex()))
		}
		if isRevert(err) {
			return common.Hash{}, gwcommon.HTTPErrorBadRequest(fmt.Sprintf("swap would revert: %s", revertReason(err)))
		}
		return common.Hash{}, chains.Classify(upstreamName, err)
	}
	gas += gas * c.opts.GasBufferPct / 100

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gas,
		To:       &to,
		Value:    value,
		Data:     data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("sign transaction: %w", err)
	}
	if err := c.eth.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, chains.Classify(upstreamName, err)
	}

	log.Info().Str("network", c.network).Str("hash", signed.Hash().Hex()).Msg("[ethereumClient] transaction sent")
	return signed.Hash(), nil
}

// JSON-RPC code nodes use for a reverted eth_call or eth_estimateGas.
const rpcExecutionReverted = 3

// isRevert reports whether err is the node rejecting the call because the
// EVM reverted, as opposed to a transport or node failure.
func isRevert(err error) bool {
	if errors.Is(err, vm.ErrExecutionReverted) {
		return true
	}
	var rpcErr gethrpc.Error
	if !errors.As(err, &rpcErr) {
		return false
	}
	return rpcErr.ErrorCode() == rpcExecutionReverted ||
		strings.HasPrefix(rpcErr.Error(), vm.ErrExecutionReverted.Error())
}

// revertReason is the node's revert message, falling back to the bare
// sentinel text when the error carries something else.
func revertReason(err error) string {
	var rpcErr gethrpc.Error
	if errors.As(err, &rpcErr) && strings.HasPrefix(rpcErr.Error(), vm.ErrExecutionReverted.Error()) {
		return rpcErr.Error()
	}
	return vm.ErrExecutionReverted.Error()
}

// Nodes return the core sentinels as plain JSON-RPC messages, so the text
// is compared against the geth constants rather than matched with errors.Is.
func isInsufficientFunds(err error) bool {
	if errors.Is(err, core.ErrInsufficientFunds) || errors.Is(err, core.ErrInsufficientFundsForTransfer) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, core.ErrInsufficientFunds.Error()) ||
		strings.Contains(msg, core.ErrInsufficientFundsForTransfer.Error())
}

// WaitForReceipt polls for the receipt until it is mined or the confirm
// timeout elapses. A nil receipt with a nil error means still pending.
func (c *Client) WaitForReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.ConfirmTimeout)
	defer cancel()

	ticker := time.NewTicker(c.opts.PollInterval)
	defer ticker.Stop()

	for {
		rcpt, err := c.eth.TransactionReceipt(ctx, hash)
		if err == nil && rcpt != nil {
			return rcpt, nil
		}
		if err != nil && !errors.Is(err, geth.NotFound) && ctx.Err() == nil && chains.KindOf(err) != chains.KindRateLimited {
			return nil, chains.Classify(upstreamName, err)
		}

		select {
		case <-ctx.Done():
			log.Warn().
				Str("hash", hash.Hex()).
				Dur("timeout", c.opts.ConfirmTimeout).
				Msg("[ethereumClient] receipt wait timed out, reporting pending")
			return nil, nil
		case <-ticker.C:
		}
	}
}

func (c *Client) Receipt(ctx context.Context, hash common.Hash, p ReceiptParams) (reconcile.Receipt, error) {
	p.Signature = hash.Hex()
	p.NativeDecimals = c.opts.NativeDecimals

	rcpt, err := c.WaitForReceipt(ctx, hash)
	if err != nil {
		return reconcile.Receipt{Signature: p.Signature, State: reconcile.StatePending}, err
	}
	return ReceiptFromEVM(rcpt, p), nil
}

// Poll reports the status of an arbitrary transaction hash.
func (c *Client) Poll(ctx context.Context, signature string) (domain.PollResponse, error) {
	resp := domain.PollResponse{Signature: signature, Status: domain.TxStatusPending}
	if !txHashPattern.MatchString(signature) {
		resp.Error = "invalid transaction hash format"
		return resp, nil
	}

	rcpt, err := c.eth.TransactionReceipt(ctx, common.HexToHash(signature))
	if errors.Is(err, geth.NotFound) || (err == nil && rcpt == nil) {
		resp.Error = "transaction not found"
		return resp, nil
	}
	if err != nil {
		return resp, chains.Classify(upstreamName, err)
	}

	r := ReceiptFromEVM(rcpt, ReceiptParams{Signature: signature, NativeDecimals: c.opts.NativeDecimals})
	resp.Slot = r.Slot
	fee := r.Fee.InexactFloat64()
	resp.Fee = &fee
	if r.State == reconcile.StateFailed {
		resp.Status = domain.TxStatusFailed
		resp.Error = r.FailureReason
	} else {
		resp.Status = domain.TxStatusConfirmed
	}
	return resp, nil
}

// ParsePrivateKey accepts a hex key with or without the 0x prefix.
func ParsePrivateKey(hexKey string) (*ecdsa.PrivateKey, error) {
	return crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
}
