package http

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/hxuan190/chain-gateway/internal/common"
	"github.com/hxuan190/chain-gateway/internal/domain"
	"github.com/hxuan190/chain-gateway/internal/http/httputil"
	"github.com/hxuan190/chain-gateway/internal/pools"
)

// PoolHandler exposes the pool registry. Reads are public, writes go
// through the admin group.
type PoolHandler struct {
	pools PoolStore
}

func NewPoolHandler(pools PoolStore) *PoolHandler {
	return &PoolHandler{pools: pools}
}

func (h *PoolHandler) Root() string {
	return "/pools"
}

func (h *PoolHandler) SetRoutes(pub *gin.RouterGroup, private *gin.RouterGroup, admin *gin.RouterGroup) {
	pub.GET("", h.listPools)
	admin.POST("", h.addPool)
	admin.DELETE("", h.removePool)
}

type PoolListResponse struct {
	Pools []*domain.Pool `json:"pools"`
	Total int            `json:"total" example:"3"`
}

// @Summary List pools
// @Description Registered pools, optionally filtered.
// @Tags pools
// @Produce json
// @Param chain query string false "Chain" example(solana)
// @Param network query string false "Network" example(mainnet-beta)
// @Param connector query string false "Connector name" example(raydium)
// @Param type query string false "Pool type" Enums(amm, clmm)
// @Success 200 {object} PoolListResponse
// @Router /api/v1/pools [get]
func (h *PoolHandler) listPools(c *gin.Context) {
	f := pools.Filter{
		Chain:     c.Query("chain"),
		Network:   c.Query("network"),
		Connector: c.Query("connector"),
		Type:      domain.PoolType(c.Query("type")),
	}
	if f.Type != "" && !f.Type.Valid() {
		httputil.Error(c, common.HTTPErrorValidation("type", "must be amm or clmm"))
		return
	}
	list := h.pools.List(f)
	httputil.Success(c, PoolListResponse{Pools: list, Total: len(list)})
}

// @Summary Register pool
// @Description Add a pool or replace the one registered for the same connector, type and pair.
// @Tags pools
// @Accept json
// @Produce json
// @Param X-Admin-Key header string false "Admin key"
// @Param request body domain.Pool true "Pool"
// @Success 200 {object} domain.Pool
// @Failure 400 {object} httputil.ErrorResponse
// @Failure 401 {object} httputil.ErrorResponse
// @Router /api/v1/admin/pools [post]
func (h *PoolHandler) addPool(c *gin.Context) {
	var pool domain.Pool
	if err := bindJSON(c, &pool); err != nil {
		httputil.Error(c, err)
		return
	}
	if err := pool.Validate(); err != nil {
		httputil.Error(c, common.HTTPErrorValidation("pool", err.Error()))
		return
	}
	if err := h.pools.Add(&pool); err != nil {
		httputil.Error(c, err)
		return
	}
	httputil.Success(c, pool)
}

type RemovePoolRequest struct {
	Chain       string          `json:"chain" example:"solana"`
	Network     string          `json:"network" example:"mainnet-beta"`
	Connector   string          `json:"connector" example:"raydium"`
	Type        domain.PoolType `json:"type" example:"amm"`
	BaseSymbol  string          `json:"baseSymbol" example:"SOL"`
	QuoteSymbol string          `json:"quoteSymbol" example:"USDC"`
}

// @Summary Remove pool
// @Tags pools
// @Accept json
// @Produce json
// @Param X-Admin-Key header string false "Admin key"
// @Param request body RemovePoolRequest true "Pool key"
// @Success 200 {object} map[string]string
// @Failure 404 {object} httputil.ErrorResponse
// @Router /api/v1/admin/pools [delete]
func (h *PoolHandler) removePool(c *gin.Context) {
	var body RemovePoolRequest
	if err := bindJSON(c, &body); err != nil {
		httputil.Error(c, err)
		return
	}
	if !body.Type.Valid() {
		httputil.Error(c, common.HTTPErrorValidation("type", "must be amm or clmm"))
		return
	}
	key := domain.NewPoolKey(body.Chain, body.Network, body.Connector, body.Type, body.BaseSymbol, body.QuoteSymbol)
	if err := h.pools.Remove(key); err != nil {
		if errors.Is(err, pools.ErrPoolNotFound) {
			httputil.NotFound(c, "pool "+key.String()+" not found")
			return
		}
		httputil.Error(c, err)
		return
	}
	httputil.Success(c, gin.H{"removed": key.String()})
}
