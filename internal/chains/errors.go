// Package chains holds what the Solana and EVM clients share: upstream
// error classification and the status error used by HTTP upstreams.
package chains

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	gethrpc "github.com/ethereum/go-ethereum/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"

	"github.com/hxuan190/chain-gateway/internal/common"
	"github.com/hxuan190/chain-gateway/internal/metrics"
)

type Kind string

const (
	KindNone        Kind = ""
	KindRateLimited Kind = "rate_limited"
	KindTimeout     Kind = "timeout"
)

// JSON-RPC "limit exceeded" (EIP-1474).
const rpcLimitExceeded = -32005

// StatusError is returned by HTTP upstreams on a non-2xx response.
type StatusError struct {
	Upstream   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned HTTP %d: %s", e.Upstream, e.StatusCode, e.Body)
}

func kindOfStatus(code int) Kind {
	switch code {
	case http.StatusTooManyRequests:
		return KindRateLimited
	case http.StatusGatewayTimeout, http.StatusRequestTimeout:
		return KindTimeout
	}
	return KindNone
}

// KindOf inspects err for rate limiting and timeouts using the typed errors
// of each client library.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return kindOfStatus(statusErr.StatusCode)
	}

	var solHTTP *jsonrpc.HTTPError
	if errors.As(err, &solHTTP) {
		return kindOfStatus(solHTTP.Code)
	}
	var solRPC *jsonrpc.RPCError
	if errors.As(err, &solRPC) {
		if solRPC.Code == http.StatusTooManyRequests || solRPC.Code == rpcLimitExceeded {
			return KindRateLimited
		}
		return KindNone
	}

	var gethHTTP gethrpc.HTTPError
	if errors.As(err, &gethHTTP) {
		return kindOfStatus(gethHTTP.StatusCode)
	}
	var gethRPC gethrpc.Error
	if errors.As(err, &gethRPC) && gethRPC.ErrorCode() == rpcLimitExceeded {
		return KindRateLimited
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	return KindNone
}

// Classify converts rate limiting and timeouts from upstream into their
// HttpError kinds. Anything else is returned wrapped with the upstream name.
func Classify(upstream string, err error) error {
	if err == nil {
		return nil
	}
	var httpErr *common.HttpError
	if errors.As(err, &httpErr) {
		return err
	}

	switch KindOf(err) {
	case KindRateLimited:
		metrics.UpstreamErrors.WithLabelValues(upstream, string(KindRateLimited)).Inc()
		return common.HTTPErrorTooManyRequests(fmt.Sprintf("%s rate limit exceeded, retry later", upstream))
	case KindTimeout:
		metrics.UpstreamErrors.WithLabelValues(upstream, string(KindTimeout)).Inc()
		return common.HTTPErrorGatewayTimeout(fmt.Sprintf("%s did not respond in time", upstream))
	}
	metrics.UpstreamErrors.WithLabelValues(upstream, "other").Inc()
	return fmt.Errorf("%s: %w", upstream, err)
}
