// Package jupiter implements the Solana connectors on top of the Jupiter
// swap API: the full router and the pool-pinned Raydium and Meteora
// connectors.
package jupiter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/hxuan190/chain-gateway/internal/chains"
	"github.com/hxuan190/chain-gateway/internal/common"
)

const upstreamName = "jupiter"

const (
	SwapModeExactIn  = "ExactIn"
	SwapModeExactOut = "ExactOut"
)

// Error codes Jupiter uses when a pair has no route.
var noRouteCodes = []string{"COULD_NOT_FIND_ANY_ROUTE", "NO_ROUTES_FOUND", "TOKEN_NOT_TRADABLE"}

type QuoteRequest struct {
	InputMint        string
	OutputMint       string
	Amount           *big.Int
	SlippageBps      int
	SwapMode         string
	Dexes            []string
	OnlyDirectRoutes bool
}

type SwapInfo struct {
	AmmKey     string `json:"ammKey"`
	Label      string `json:"label"`
	InputMint  string `json:"inputMint"`
	OutputMint string `json:"outputMint"`
	InAmount   string `json:"inAmount"`
	OutAmount  string `json:"outAmount"`
	FeeAmount  string `json:"feeAmount"`
	FeeMint    string `json:"feeMint"`
}

type RoutePlanStep struct {
	SwapInfo SwapInfo `json:"swapInfo"`
	Percent  int      `json:"percent"`
}

// QuoteResponse is the subset of Jupiter's quote read by the connectors.
// Raw keeps the response verbatim because /swap expects it back unchanged.
type QuoteResponse struct {
	InputMint            string          `json:"inputMint"`
	InAmount             string          `json:"inAmount"`
	OutputMint           string          `json:"outputMint"`
	OutAmount            string          `json:"outAmount"`
	OtherAmountThreshold string          `json:"otherAmountThreshold"`
	SwapMode             string          `json:"swapMode"`
	SlippageBps          int             `json:"slippageBps"`
	PriceImpactPct       string          `json:"priceImpactPct"`
	RoutePlan            []RoutePlanStep `json:"routePlan"`
	ContextSlot          uint64          `json:"contextSlot"`

	Raw []byte `json:"-"`
}

// PriceImpactPercent converts Jupiter's fractional impact to percent.
func (q *QuoteResponse) PriceImpactPercent() float64 {
	v, err := strconv.ParseFloat(q.PriceImpactPct, 64)
	if err != nil {
		return 0
	}
	return v * 100
}

func (q *QuoteResponse) RoutePath() string {
	labels := make([]string, 0, len(q.RoutePlan))
	for _, step := range q.RoutePlan {
		labels = append(labels, step.SwapInfo.Label)
	}
	return strings.Join(labels, " -> ")
}

type swapRequest struct {
	QuoteResponse             json.RawMessage `json:"quoteResponse"`
	UserPublicKey             string          `json:"userPublicKey"`
	WrapAndUnwrapSol          bool            `json:"wrapAndUnwrapSol"`
	DynamicComputeUnitLimit   bool            `json:"dynamicComputeUnitLimit"`
	PrioritizationFeeLamports string          `json:"prioritizationFeeLamports"`
}

type SwapResponse struct {
	SwapTransaction      string `json:"swapTransaction"`
	LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
}

type apiError struct {
	Error     string `json:"error"`
	ErrorCode string `json:"errorCode"`
}

// Client talks to the Jupiter swap API.
type Client struct {
	http    *retryablehttp.Client
	baseURL string
	apiKey  string
}

func NewClient(baseURL, apiKey string) *Client {
	c := retryablehttp.NewClient()
	c.RetryMax = 3
	c.RetryWaitMin = 500 * time.Millisecond
	c.RetryWaitMax = 3 * time.Second
	c.HTTPClient.Timeout = 15 * time.Second
	c.Logger = nil
	// Hand the last response back so 429s stay distinguishable.
	c.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &Client{
		http:    c,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
	}
}

func (c *Client) Quote(ctx context.Context, req QuoteRequest) (*QuoteResponse, error) {
	if req.Amount == nil || req.Amount.Sign() <= 0 {
		return nil, common.HTTPErrorValidation("amount", "must be positive")
	}
	q := url.Values{}
	q.Set("inputMint", req.InputMint)
	q.Set("outputMint", req.OutputMint)
	q.Set("amount", req.Amount.String())
	q.Set("slippageBps", strconv.Itoa(req.SlippageBps))
	if req.SwapMode != "" {
		q.Set("swapMode", req.SwapMode)
	}
	if len(req.Dexes) > 0 {
		q.Set("dexes", strings.Join(req.Dexes, ","))
	}
	if req.OnlyDirectRoutes {
		q.Set("onlyDirectRoutes", "true")
	}

	body, err := c.do(ctx, http.MethodGet, c.baseURL+"/quote?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var out QuoteResponse
	if err := sonic.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode jupiter quote: %w", err)
	}
	out.Raw = body
	return &out, nil
}

// SwapTransaction asks Jupiter to build the unsigned swap transaction for
// quote, returned base64 encoded.
func (c *Client) SwapTransaction(ctx context.Context, quote *QuoteResponse, userPublicKey string) (*SwapResponse, error) {
	raw := quote.Raw
	if len(raw) == 0 {
		encoded, err := sonic.Marshal(quote)
		if err != nil {
			return nil, fmt.Errorf("encode jupiter quote: %w", err)
		}
		raw = encoded
	}
	payload, err := sonic.Marshal(swapRequest{
		QuoteResponse:             raw,
		UserPublicKey:             userPublicKey,
		WrapAndUnwrapSol:          true,
		DynamicComputeUnitLimit:   true,
		PrioritizationFeeLamports: "auto",
	})
	if err != nil {
		return nil, fmt.Errorf("encode jupiter swap request: %w", err)
	}

	body, err := c.do(ctx, http.MethodPost, c.baseURL+"/swap", payload)
	if err != nil {
		return nil, err
	}

	var out SwapResponse
	if err := sonic.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode jupiter swap: %w", err)
	}
	if out.SwapTransaction == "" {
		return nil, fmt.Errorf("jupiter returned an empty swap transaction")
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, payload []byte) ([]byte, error) {
	var rawBody interface{}
	if payload != nil {
		rawBody = bytes.NewReader(payload)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, endpoint, rawBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, chains.Classify(upstreamName, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, chains.Classify(upstreamName, err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return body, nil
	}

	if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusNotFound {
		var apiErr apiError
		_ = sonic.Unmarshal(body, &apiErr)
		for _, code := range noRouteCodes {
			if apiErr.ErrorCode == code || strings.Contains(apiErr.Error, code) {
				return nil, common.HTTPErrorNotFound("no route found by jupiter for this pair")
			}
		}
		if apiErr.Error != "" {
			return nil, common.HTTPErrorBadRequest("jupiter rejected the request: " + apiErr.Error)
		}
	}
	return nil, chains.Classify(upstreamName, &chains.StatusError{
		Upstream:   upstreamName,
		StatusCode: resp.StatusCode,
		Body:       string(body),
	})
}
