package ethereum

import (
	"context"
	"errors"
	"math/big"
	"net"
	"net/http"
	"testing"
	"time"

	geth "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gwcommon "github.com/hxuan190/chain-gateway/internal/common"
	"github.com/hxuan190/chain-gateway/internal/domain"
	"github.com/hxuan190/chain-gateway/internal/reconcile"
)

type fakeEth struct {
	callOut    []byte
	callErr    error
	lastCall   geth.CallMsg
	estimate   uint64
	estErr     error
	sent       *types.Transaction
	receipt    *types.Receipt
	receiptErr error
}

func (f *fakeEth) CallContract(_ context.Context, msg geth.CallMsg, _ *big.Int) ([]byte, error) {
	f.lastCall = msg
	return f.callOut, f.callErr
}

func (f *fakeEth) PendingNonceAt(context.Context, common.Address) (uint64, error) { return 7, nil }

func (f *fakeEth) SuggestGasPrice(context.Context) (*big.Int, error) { return big.NewInt(3_000_000_000), nil }

func (f *fakeEth) EstimateGas(context.Context, geth.CallMsg) (uint64, error) { return f.estimate, f.estErr }

func (f *fakeEth) SendTransaction(_ context.Context, tx *types.Transaction) error {
	f.sent = tx
	return nil
}

func (f *fakeEth) TransactionReceipt(context.Context, common.Hash) (*types.Receipt, error) {
	if f.receiptErr != nil {
		return nil, f.receiptErr
	}
	if f.receipt == nil {
		return nil, geth.NotFound
	}
	return f.receipt, nil
}

var (
	wallet = common.HexToAddress("0x1111111111111111111111111111111111111111")
	router = common.HexToAddress("0x13f4EA83D0bd40E75C8222255bc855a974568Dd4")
	usdt   = domain.Token{Symbol: "USDT", Address: "0x55d398326f99059fF775485246999027B3197955", Decimals: 18}
	wbnb   = domain.Token{Symbol: "WBNB", Address: "0xbb4CdB9CBd36B01bD1cBaEBF2De08d9173bc095c", Decimals: 18}
)

func fastOpts() Options {
	return Options{ConfirmTimeout: 40 * time.Millisecond, PollInterval: 5 * time.Millisecond}
}

func transferLog(token string, from, to common.Address, value *big.Int) *types.Log {
	return &types.Log{
		Address: common.HexToAddress(token),
		Topics: []common.Hash{
			TransferTopic,
			common.BytesToHash(from.Bytes()),
			common.BytesToHash(to.Bytes()),
		},
		Data: common.LeftPadBytes(value.Bytes(), 32),
	}
}

func ether(s string) *big.Int {
	v, _ := new(big.Int).SetString(s, 10)
	return v
}

func sellReceipt() *types.Receipt {
	return &types.Receipt{
		Status:            types.ReceiptStatusSuccessful,
		GasUsed:           150_000,
		EffectiveGasPrice: big.NewInt(1_000_000_000),
		BlockNumber:       big.NewInt(123),
		Logs: []*types.Log{
			transferLog(usdt.Address, wallet, router, ether("10000000000000000000")),
			transferLog(wbnb.Address, router, wallet, ether("16200000000000000")),
			transferLog(wbnb.Address, router, common.HexToAddress("0x2222222222222222222222222222222222222222"), ether("5")),
		},
	}
}

func TestReceiptFromEVMConfirmed(t *testing.T) {
	r := ReceiptFromEVM(sellReceipt(), ReceiptParams{
		Signature:      "0xabc",
		Wallet:         wallet,
		TokenIn:        usdt,
		TokenOut:       wbnb,
		NativeDecimals: 18,
	})

	assert.Equal(t, reconcile.StateConfirmed, r.State)
	assert.Equal(t, uint64(123), r.Slot)
	assert.Equal(t, "0.00015", r.Fee.String())
	require.NotNil(t, r.ActualAmountIn)
	require.NotNil(t, r.ActualAmountOut)
	assert.Equal(t, "10", r.ActualAmountIn.String())
	assert.Equal(t, "0.0162", r.ActualAmountOut.String())
}

func TestReceiptFromEVMFailedAndPending(t *testing.T) {
	rcpt := sellReceipt()
	rcpt.Status = types.ReceiptStatusFailed
	r := ReceiptFromEVM(rcpt, ReceiptParams{Wallet: wallet, TokenIn: usdt, TokenOut: wbnb, NativeDecimals: 18})
	assert.Equal(t, reconcile.StateFailed, r.State)
	assert.Nil(t, r.ActualAmountOut)
	assert.Equal(t, "0.00015", r.Fee.String())

	assert.Equal(t, reconcile.StatePending, ReceiptFromEVM(nil, ReceiptParams{}).State)
}

func TestEnsureAllowance(t *testing.T) {
	out, err := ERC20ABI.Methods["allowance"].Outputs.Pack(ether("5000000000000000000"))
	require.NoError(t, err)
	fake := &fakeEth{callOut: out}
	c := NewClientWithEth(fake, "bsc", 56, fastOpts())

	require.NoError(t, c.EnsureAllowance(context.Background(), usdt, wallet, router, ether("1000000000000000000")))
	require.NotNil(t, fake.lastCall.To)
	assert.Equal(t, common.HexToAddress(usdt.Address), *fake.lastCall.To)

	err = c.EnsureAllowance(context.Background(), usdt, wallet, router, ether("10000000000000000000"))
	require.Error(t, err)
	assert.Equal(t, 400, gwcommon.StatusOf(err))
	assert.Contains(t, err.Error(), router.Hex())
	assert.Contains(t, err.Error(), "approve 10")
}

func TestSendTx(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	fake := &fakeEth{estimate: 100_000}
	c := NewClientWithEth(fake, "bsc", 56, fastOpts())

	hash, err := c.SendTx(context.Background(), key, router, []byte{0x01, 0x02}, nil)
	require.NoError(t, err)
	require.NotNil(t, fake.sent)
	assert.Equal(t, fake.sent.Hash(), hash)
	assert.Equal(t, uint64(7), fake.sent.Nonce())
	assert.Equal(t, uint64(120_000), fake.sent.Gas())
	assert.Equal(t, router, *fake.sent.To())

	sender, err := types.Sender(types.LatestSignerForChainID(big.NewInt(56)), fake.sent)
	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey), sender)
}

// jsonRPCError mirrors the error ethclient returns for a JSON-RPC error
// response.
type jsonRPCError struct {
	code int
	msg  string
}

func (e jsonRPCError) Error() string  { return e.msg }
func (e jsonRPCError) ErrorCode() int { return e.code }

func TestSendTxMapsEstimateErrors(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	tests := []struct {
		name       string
		estErr     error
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{
			name:       "insufficient funds",
			estErr:     jsonRPCError{code: -32000, msg: core.ErrInsufficientFunds.Error() + ": address 0x11 have 0 want 1"},
			wantStatus: http.StatusBadRequest,
			wantCode:   "INSUFFICIENT",
		},
		{
			name:       "revert with reason",
			estErr:     jsonRPCError{code: 3, msg: "execution reverted: STF"},
			wantStatus: http.StatusBadRequest,
			wantCode:   "BAD_REQUEST",
			wantMsg:    "swap would revert: execution reverted: STF",
		},
		{
			name:       "revert without code",
			estErr:     jsonRPCError{code: -32000, msg: "execution reverted"},
			wantStatus: http.StatusBadRequest,
			wantCode:   "BAD_REQUEST",
		},
		{
			name:       "connection refused",
			estErr:     &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connect: connection refused")},
			wantStatus: http.StatusInternalServerError,
			wantCode:   "INTERNAL_SERVER_ERROR",
		},
		{
			name:       "node error",
			estErr:     jsonRPCError{code: -32603, msg: "internal error"},
			wantStatus: http.StatusInternalServerError,
			wantCode:   "INTERNAL_SERVER_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClientWithEth(&fakeEth{estErr: tt.estErr}, "bsc", 56, fastOpts())
			_, err := c.SendTx(context.Background(), key, router, nil, nil)
			require.Error(t, err)

			httpErr := gwcommon.AsHttpError(err)
			assert.Equal(t, tt.wantStatus, httpErr.StatusCode)
			assert.Equal(t, tt.wantCode, httpErr.Code)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, httpErr.Message)
			}
			if tt.wantStatus >= http.StatusInternalServerError {
				assert.NotContains(t, httpErr.Message, tt.estErr.Error())
			}
		})
	}
}

func TestWaitForReceipt(t *testing.T) {
	c := NewClientWithEth(&fakeEth{}, "bsc", 56, fastOpts())
	rcpt, err := c.WaitForReceipt(context.Background(), common.Hash{})
	require.NoError(t, err)
	assert.Nil(t, rcpt, "pending after timeout")

	c = NewClientWithEth(&fakeEth{receipt: sellReceipt()}, "bsc", 56, fastOpts())
	r, err := c.Receipt(context.Background(), common.HexToHash("0x01"), ReceiptParams{Wallet: wallet, TokenIn: usdt, TokenOut: wbnb})
	require.NoError(t, err)
	assert.Equal(t, reconcile.StateConfirmed, r.State)
	assert.Equal(t, common.HexToHash("0x01").Hex(), r.Signature)
}

func TestPoll(t *testing.T) {
	c := NewClientWithEth(&fakeEth{}, "bsc", 56, fastOpts())

	resp, err := c.Poll(context.Background(), "0x1234")
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusPending, resp.Status)
	assert.Equal(t, "invalid transaction hash format", resp.Error)

	hash := common.HexToHash("0xdeadbeef").Hex()
	resp, err = c.Poll(context.Background(), hash)
	require.NoError(t, err)
	assert.Equal(t, "transaction not found", resp.Error)

	c = NewClientWithEth(&fakeEth{receipt: sellReceipt()}, "bsc", 56, fastOpts())
	resp, err = c.Poll(context.Background(), hash)
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusConfirmed, resp.Status)
	assert.Equal(t, uint64(123), resp.Slot)
	require.NotNil(t, resp.Fee)
	assert.Equal(t, 0.00015, *resp.Fee)
}

func TestParsePrivateKey(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	hexKey := "0x" + common.Bytes2Hex(crypto.FromECDSA(key))

	parsed, err := ParsePrivateKey(hexKey)
	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey), crypto.PubkeyToAddress(parsed.PublicKey))
}
