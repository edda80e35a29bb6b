package http

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/hxuan190/chain-gateway/internal/common"
	"github.com/hxuan190/chain-gateway/internal/domain"
	"github.com/hxuan190/chain-gateway/internal/gateway"
)

// swapParams are the trade fields shared by every quote and execute body.
type swapParams struct {
	WalletAddress string          `json:"walletAddress" example:"0x9f8F72aA9304c8B593d555F12eF6589cC3A579A2"`
	BaseToken     string          `json:"baseToken" example:"USDT"`
	QuoteToken    string          `json:"quoteToken" example:"WBNB"`
	Amount        decimal.Decimal `json:"amount" swaggertype:"string" example:"10"`
	Side          string          `json:"side" enums:"BUY,SELL" example:"SELL"`
	SlippagePct   *float64        `json:"slippagePct,omitempty" example:"1"`
}

func (p swapParams) toRequest(network string) (gateway.SwapRequest, error) {
	side, err := parseSide(p.Side)
	if err != nil {
		return gateway.SwapRequest{}, err
	}
	return gateway.SwapRequest{
		Network:       network,
		WalletAddress: strings.TrimSpace(p.WalletAddress),
		BaseToken:     p.BaseToken,
		QuoteToken:    p.QuoteToken,
		Amount:        p.Amount,
		Side:          side,
		SlippagePct:   p.SlippagePct,
	}, nil
}

func parseSide(s string) (domain.Side, error) {
	if strings.TrimSpace(s) == "" {
		return "", common.HTTPErrorValidation("side", "is required")
	}
	side, err := domain.ParseSide(s)
	if err != nil {
		return "", common.HTTPErrorValidation("side", "must be BUY or SELL")
	}
	return side, nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return decimal.Decimal{}, common.HTTPErrorValidation("amount", "is required")
	}
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Decimal{}, common.HTTPErrorValidation("amount", "must be a decimal number")
	}
	return d, nil
}

func parseSlippage(s string) (*float64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return nil, common.HTTPErrorValidation("slippagePct", "must be a number")
	}
	return &v, nil
}

// bindJSON decodes the request body and turns decoding failures into
// validation errors.
func bindJSON(c *gin.Context, obj interface{}) error {
	if err := c.ShouldBindJSON(obj); err != nil {
		var httpErr *common.HttpError
		if errors.As(err, &httpErr) {
			return httpErr
		}
		return common.HTTPErrorValidation("body", err.Error())
	}
	return nil
}

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return common.HTTPErrorValidation(field, "is required")
	}
	return nil
}
