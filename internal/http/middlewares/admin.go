package middlewares

import (
	"crypto/subtle"

	"github.com/gin-gonic/gin"

	"github.com/hxuan190/chain-gateway/internal/common"
	"github.com/hxuan190/chain-gateway/internal/http/httputil"
)

const AdminKeyHeader = "X-Admin-Key"

// AdminAuth rejects requests whose X-Admin-Key does not match key. An empty
// key lets every request through.
func AdminAuth(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key == "" {
			c.Next()
			return
		}
		got := c.GetHeader(AdminKeyHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
			httputil.Error(c, common.HTTPErrorUnauthorized("invalid admin key"))
			return
		}
		c.Next()
	}
}
