// Package solana wraps the Solana JSON-RPC client with the submit, confirm
// and receipt operations the swap connectors need.
package solana

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog/log"

	"github.com/hxuan190/chain-gateway/internal/chains"
	"github.com/hxuan190/chain-gateway/internal/common"
	"github.com/hxuan190/chain-gateway/internal/domain"
	"github.com/hxuan190/chain-gateway/internal/reconcile"
)

const upstreamName = "solana-rpc"

// RPCClient is the subset of *rpc.Client used here, so tests can fake it.
type RPCClient interface {
	GetSignatureStatuses(
		ctx context.Context,
		searchTransactionHistory bool,
		transactionSignatures ...solana.Signature,
	) (*rpc.GetSignatureStatusesResult, error)

	GetTransaction(
		ctx context.Context,
		signature solana.Signature,
		opts *rpc.GetTransactionOpts,
	) (*rpc.GetTransactionResult, error)

	SendTransactionWithOpts(
		ctx context.Context,
		transaction *solana.Transaction,
		opts rpc.TransactionOpts,
	) (solana.Signature, error)
}

type Options struct {
	ConfirmTimeout time.Duration
	PollInterval   time.Duration
	MaxRetries     uint
}

type Client struct {
	rpc     RPCClient
	network string
	opts    Options
}

func NewClient(rpcURL, network string, opts Options) *Client {
	return NewClientWithRPC(rpc.New(rpcURL), network, opts)
}

func NewClientWithRPC(rpcClient RPCClient, network string, opts Options) *Client {
	if opts.ConfirmTimeout <= 0 {
		opts.ConfirmTimeout = 30 * time.Second
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	return &Client{rpc: rpcClient, network: network, opts: opts}
}

func (c *Client) Network() string {
	return c.network
}

// SignAndSend signs a base64 transaction built by a swap API with signer and
// broadcasts it. Broadcast is not retried by the caller once it succeeds.
func (c *Client) SignAndSend(ctx context.Context, txBase64 string, signer solana.PrivateKey) (solana.Signature, error) {
	tx, err := solana.TransactionFromBase64(txBase64)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("decode swap transaction: %w", err)
	}

	owner := signer.PublicKey()
	if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(owner) {
			return &signer
		}
		return nil
	}); err != nil {
		return solana.Signature{}, common.HTTPErrorBadRequest(fmt.Sprintf("wallet %s cannot sign this transaction", owner))
	}

	retries := c.opts.MaxRetries
	sig, err := c.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		PreflightCommitment: rpc.CommitmentConfirmed,
		MaxRetries:          &retries,
	})
	if err != nil {
		return solana.Signature{}, chains.Classify(upstreamName, err)
	}

	log.Info().Str("network", c.network).Str("signature", sig.String()).Msg("[solanaClient] transaction sent")
	return sig, nil
}

// WaitForConfirmation polls the signature status until it is confirmed,
// failed or the confirm timeout elapses, in which case it reports pending.
func (c *Client) WaitForConfirmation(ctx context.Context, sig solana.Signature) (reconcile.State, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.ConfirmTimeout)
	defer cancel()

	ticker := time.NewTicker(c.opts.PollInterval)
	defer ticker.Stop()

	for {
		state, err := c.signatureState(ctx, sig)
		if err != nil && ctx.Err() == nil {
			if chains.KindOf(err) != chains.KindRateLimited {
				return reconcile.StatePending, chains.Classify(upstreamName, err)
			}
			log.Warn().Str("signature", sig.String()).Msg("[solanaClient] rate limited while confirming, backing off")
		}
		if state != reconcile.StatePending {
			return state, nil
		}

		select {
		case <-ctx.Done():
			log.Warn().
				Str("signature", sig.String()).
				Dur("timeout", c.opts.ConfirmTimeout).
				Msg("[solanaClient] confirmation timed out, reporting pending")
			return reconcile.StatePending, nil
		case <-ticker.C:
		}
	}
}

func (c *Client) signatureState(ctx context.Context, sig solana.Signature) (reconcile.State, error) {
	res, err := c.rpc.GetSignatureStatuses(ctx, false, sig)
	if err != nil {
		if err == rpc.ErrNotFound {
			return reconcile.StatePending, nil
		}
		return reconcile.StatePending, err
	}
	if len(res.Value) == 0 || res.Value[0] == nil {
		return reconcile.StatePending, nil
	}

	st := res.Value[0]
	if st.Err != nil {
		return reconcile.StateFailed, nil
	}
	switch st.ConfirmationStatus {
	case rpc.ConfirmationStatusConfirmed, rpc.ConfirmationStatusFinalized:
		return reconcile.StateConfirmed, nil
	}
	return reconcile.StatePending, nil
}

func (c *Client) fetchTransaction(ctx context.Context, sig solana.Signature) (*rpc.GetTransactionResult, error) {
	maxVersion := uint64(0)
	res, err := c.rpc.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
		Encoding:                       solana.EncodingBase64,
		Commitment:                     rpc.CommitmentConfirmed,
		MaxSupportedTransactionVersion: &maxVersion,
	})
	if err == rpc.ErrNotFound {
		return nil, nil
	}
	return res, err
}

// Receipt waits for sig and reads its balances into a receipt.
func (c *Client) Receipt(ctx context.Context, sig solana.Signature, p ReceiptParams) (reconcile.Receipt, error) {
	p.Signature = sig.String()

	state, err := c.WaitForConfirmation(ctx, sig)
	if err != nil {
		return reconcile.Receipt{Signature: p.Signature, State: reconcile.StatePending}, err
	}
	if state == reconcile.StatePending {
		return reconcile.Receipt{Signature: p.Signature, State: reconcile.StatePending}, nil
	}

	res, err := c.fetchTransaction(ctx, sig)
	if err != nil {
		return reconcile.Receipt{Signature: p.Signature, State: state}, chains.Classify(upstreamName, err)
	}
	if res == nil {
		// Confirmed by status but not yet served by getTransaction.
		return reconcile.Receipt{Signature: p.Signature, State: reconcile.StatePending}, nil
	}
	return ReceiptFromTransaction(res, p), nil
}

// Poll reports the status of an arbitrary signature. Malformed and unknown
// signatures are described in the response rather than returned as errors.
func (c *Client) Poll(ctx context.Context, signature string) (domain.PollResponse, error) {
	resp := domain.PollResponse{Signature: signature, Status: domain.TxStatusPending}

	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		resp.Error = "invalid transaction signature format"
		return resp, nil
	}

	res, err := c.fetchTransaction(ctx, sig)
	if err != nil {
		return resp, chains.Classify(upstreamName, err)
	}
	if res == nil || res.Meta == nil {
		resp.Error = "transaction not found"
		return resp, nil
	}

	resp.Slot = res.Slot
	fee := FeeOf(res).InexactFloat64()
	resp.Fee = &fee
	if res.Meta.Err != nil {
		resp.Status = domain.TxStatusFailed
		resp.Error = describeErr(res.Meta.Err)
	} else {
		resp.Status = domain.TxStatusConfirmed
	}
	return resp, nil
}
