package http

import (
	"github.com/gin-gonic/gin"

	"github.com/hxuan190/chain-gateway/internal/domain"
	"github.com/hxuan190/chain-gateway/internal/http/httputil"
)

// SwapHandler serves the chain-agnostic quote and execute endpoints.
type SwapHandler struct {
	swaps SwapService
}

func NewSwapHandler(swaps SwapService) *SwapHandler {
	return &SwapHandler{swaps: swaps}
}

func (h *SwapHandler) Root() string {
	return "/swap"
}

func (h *SwapHandler) SetRoutes(pub *gin.RouterGroup, private *gin.RouterGroup, admin *gin.RouterGroup) {
	pub.GET("/quote", h.getQuote)
	pub.POST("/execute", h.execute)
}

// @Summary Get swap quote
// @Description Price a swap on any configured chain. The quote is cached and can be
// @Description executed later through the connector flow with the returned quoteId.
// @Description
// @Description SELL spends exactly `amount` of baseToken. BUY receives exactly `amount` of baseToken.
// @Description Amounts are in human units (10 USDT is "10").
// @Tags swap
// @Produce json
// @Param chainNetwork query string true "Chain and network selector" example("ethereum-bsc")
// @Param baseToken query string true "Base token symbol or address" example("USDT")
// @Param quoteToken query string true "Quote token symbol or address" example("WBNB")
// @Param amount query string true "Amount of base token in human units" example("10")
// @Param side query string true "Trade side" Enums(BUY, SELL)
// @Param slippagePct query number false "Slippage tolerance in percent, defaults to the network setting" example(1)
// @Param walletAddress query string false "Wallet that will execute the swap"
// @Success 200 {object} domain.QuoteSwapResponse
// @Failure 400 {object} httputil.ErrorResponse "Invalid request parameters"
// @Failure 404 {object} httputil.ErrorResponse "Unknown token, pool or no route"
// @Failure 429 {object} httputil.ErrorResponse "Upstream rate limited"
// @Router /api/v1/swap/quote [get]
func (h *SwapHandler) getQuote(c *gin.Context) {
	chainNetwork := c.Query("chainNetwork")
	if err := required("chainNetwork", chainNetwork); err != nil {
		httputil.Error(c, err)
		return
	}
	amount, err := parseAmount(c.Query("amount"))
	if err != nil {
		httputil.Error(c, err)
		return
	}
	slippage, err := parseSlippage(c.Query("slippagePct"))
	if err != nil {
		httputil.Error(c, err)
		return
	}
	params := swapParams{
		WalletAddress: c.Query("walletAddress"),
		BaseToken:     c.Query("baseToken"),
		QuoteToken:    c.Query("quoteToken"),
		Amount:        amount,
		Side:          c.Query("side"),
		SlippagePct:   slippage,
	}
	req, err := params.toRequest("")
	if err != nil {
		httputil.Error(c, err)
		return
	}

	q, err := h.swaps.Quote(c.Request.Context(), chainNetwork, req)
	if err != nil {
		httputil.Error(c, err)
		return
	}
	httputil.Success(c, q.ToResponse())
}

// ExecuteSwapRequest quotes and executes in a single call.
type ExecuteSwapRequest struct {
	ChainNetwork string `json:"chainNetwork" example:"ethereum-bsc"`
	swapParams
}

// @Summary Execute swap
// @Description Quote and execute a swap in one call. The response status is 1 when the
// @Description transaction confirmed, 0 when it is still pending and -1 when it failed.
// @Tags swap
// @Accept json
// @Produce json
// @Param request body ExecuteSwapRequest true "Swap parameters"
// @Success 200 {object} domain.ExecuteSwapResponse
// @Failure 400 {object} httputil.ErrorResponse "Invalid request parameters"
// @Failure 404 {object} httputil.ErrorResponse "Unknown token, wallet or pool"
// @Failure 500 {object} httputil.ErrorResponse "Transaction failed on-chain"
// @Failure 504 {object} httputil.ErrorResponse "Upstream timeout"
// @Router /api/v1/swap/execute [post]
func (h *SwapHandler) execute(c *gin.Context) {
	var body ExecuteSwapRequest
	if err := bindJSON(c, &body); err != nil {
		httputil.Error(c, err)
		return
	}
	if err := required("chainNetwork", body.ChainNetwork); err != nil {
		httputil.Error(c, err)
		return
	}
	if err := required("walletAddress", body.WalletAddress); err != nil {
		httputil.Error(c, err)
		return
	}
	req, err := body.toRequest("")
	if err != nil {
		httputil.Error(c, err)
		return
	}

	outcome, err := h.swaps.Execute(c.Request.Context(), body.ChainNetwork, req)
	if err != nil {
		httputil.Error(c, err)
		return
	}
	httputil.Success(c, domain.ExecuteSwapResponse(outcome))
}
