package httputil

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/hxuan190/chain-gateway/internal/common"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	StatusCode int    `json:"statusCode" example:"400"`
	Error      string `json:"error" example:"Bad Request"`
	Code       string `json:"code,omitempty" example:"VALIDATION_ERROR"`
	Message    string `json:"message" example:"chainNetwork: expected <chain>-<network>"`
}

// Success writes data as the bare response body.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// Error writes err as an ErrorResponse. Errors without a status are logged
// and reported as internal errors.
func Error(c *gin.Context, err error) {
	httpErr := common.AsHttpError(err)
	if httpErr.StatusCode >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.FullPath()).Msg("[http] request failed")
	}
	c.AbortWithStatusJSON(httpErr.StatusCode, ErrorResponse{
		StatusCode: httpErr.StatusCode,
		Error:      http.StatusText(httpErr.StatusCode),
		Code:       httpErr.Code,
		Message:    httpErr.Message,
	})
}

func NotFound(c *gin.Context, msg string) {
	Error(c, common.HTTPErrorNotFound(msg))
}
