package http

import (
	"github.com/gin-gonic/gin"

	"github.com/hxuan190/chain-gateway/internal/http/httputil"
)

// ConnectorHandler serves the two-step flow pinned to one connector:
// quote-swap caches a quote, execute-quote consumes it.
type ConnectorHandler struct {
	swaps SwapService
}

func NewConnectorHandler(swaps SwapService) *ConnectorHandler {
	return &ConnectorHandler{swaps: swaps}
}

func (h *ConnectorHandler) Root() string {
	return "/connectors"
}

func (h *ConnectorHandler) SetRoutes(pub *gin.RouterGroup, private *gin.RouterGroup, admin *gin.RouterGroup) {
	pub.POST("/:name/:type/quote-swap", h.quoteSwap)
	pub.POST("/:name/:type/execute-quote", h.executeQuote)
}

func providerParam(c *gin.Context) string {
	return c.Param("name") + "/" + c.Param("type")
}

type ConnectorQuoteRequest struct {
	Network string `json:"network" example:"bsc"`
	swapParams
}

// @Summary Quote with one connector
// @Description Price a swap with the connector named in the path, e.g. /connectors/raydium/amm/quote-swap.
// @Description amm and clmm connectors trade through the pool registered for the pair.
// @Tags connectors
// @Accept json
// @Produce json
// @Param name path string true "Connector name" example(pancakeswap)
// @Param type path string true "Connector type" Enums(router, amm, clmm)
// @Param request body ConnectorQuoteRequest true "Swap parameters"
// @Success 200 {object} domain.QuoteSwapResponse
// @Failure 400 {object} httputil.ErrorResponse
// @Failure 404 {object} httputil.ErrorResponse "Unknown token or no pool for the pair"
// @Router /api/v1/connectors/{name}/{type}/quote-swap [post]
func (h *ConnectorHandler) quoteSwap(c *gin.Context) {
	var body ConnectorQuoteRequest
	if err := bindJSON(c, &body); err != nil {
		httputil.Error(c, err)
		return
	}
	req, err := body.toRequest(body.Network)
	if err != nil {
		httputil.Error(c, err)
		return
	}

	q, err := h.swaps.QuoteForConnector(c.Request.Context(), providerParam(c), req)
	if err != nil {
		httputil.Error(c, err)
		return
	}
	httputil.Success(c, q.ToResponse())
}

type ExecuteQuoteRequest struct {
	WalletAddress string `json:"walletAddress" example:"0x9f8F72aA9304c8B593d555F12eF6589cC3A579A2"`
	Network       string `json:"network" example:"bsc"`
	QuoteID       string `json:"quoteId" example:"6f1c2a8e-4a57-4f11-9a53-3c1f0a7f9b21"`
}

// @Summary Execute a cached quote
// @Description Execute a quote returned by quote-swap. The quote is consumed once the
// @Description transaction confirms; pending and failed quotes stay cached for retry.
// @Tags connectors
// @Accept json
// @Produce json
// @Param name path string true "Connector name" example(pancakeswap)
// @Param type path string true "Connector type" Enums(router, amm, clmm)
// @Param request body ExecuteQuoteRequest true "Quote to execute"
// @Success 200 {object} domain.ExecuteSwapResponse
// @Failure 400 {object} httputil.ErrorResponse
// @Failure 404 {object} httputil.ErrorResponse "Quote not found or expired"
// @Failure 500 {object} httputil.ErrorResponse "Transaction failed on-chain"
// @Router /api/v1/connectors/{name}/{type}/execute-quote [post]
func (h *ConnectorHandler) executeQuote(c *gin.Context) {
	var body ExecuteQuoteRequest
	if err := bindJSON(c, &body); err != nil {
		httputil.Error(c, err)
		return
	}
	if err := required("quoteId", body.QuoteID); err != nil {
		httputil.Error(c, err)
		return
	}

	outcome, err := h.swaps.ExecuteQuote(c.Request.Context(), providerParam(c), body.Network, body.WalletAddress, body.QuoteID)
	if err != nil {
		httputil.Error(c, err)
		return
	}
	httputil.Success(c, outcome)
}
