package http

import (
	"github.com/gin-gonic/gin"

	"github.com/hxuan190/chain-gateway/internal/http/httputil"
)

type ChainHandler struct {
	swaps SwapService
}

func NewChainHandler(swaps SwapService) *ChainHandler {
	return &ChainHandler{swaps: swaps}
}

func (h *ChainHandler) Root() string {
	return "/chains"
}

func (h *ChainHandler) SetRoutes(pub *gin.RouterGroup, private *gin.RouterGroup, admin *gin.RouterGroup) {
	pub.GET("", h.listChains)
	pub.POST("/:chain/poll", h.poll)
}

// @Summary List chains
// @Description Configured chains with their networks, connectors and tokens.
// @Tags chains
// @Produce json
// @Success 200 {array} gateway.ChainInfo
// @Router /api/v1/chains [get]
func (h *ChainHandler) listChains(c *gin.Context) {
	httputil.Success(c, h.swaps.Catalog())
}

type PollRequest struct {
	Network   string `json:"network" example:"mainnet-beta"`
	Signature string `json:"signature" example:"5VERv8NMvzbJMEkV8xnrLkEaWRtSz9CosKDYjCJjBRnbJLgp8uirBgmQpjKhoR4tjF3ZpRzrFmBV6UjKdiSZkQUW"`
}

// @Summary Poll a transaction
// @Description Look a transaction up by signature or hash. Malformed and unknown
// @Description signatures are reported in the error field with status 0.
// @Tags chains
// @Accept json
// @Produce json
// @Param chain path string true "Chain" Enums(solana, ethereum)
// @Param request body PollRequest true "Signature to poll"
// @Success 200 {object} domain.PollResponse
// @Failure 400 {object} httputil.ErrorResponse
// @Router /api/v1/chains/{chain}/poll [post]
func (h *ChainHandler) poll(c *gin.Context) {
	var body PollRequest
	if err := bindJSON(c, &body); err != nil {
		httputil.Error(c, err)
		return
	}
	if err := required("signature", body.Signature); err != nil {
		httputil.Error(c, err)
		return
	}

	res, err := h.swaps.Poll(c.Request.Context(), c.Param("chain"), body.Network, body.Signature)
	if err != nil {
		httputil.Error(c, err)
		return
	}
	httputil.Success(c, res)
}
