package domain

// Token is a token known to a network's token list.
type Token struct {
	Symbol   string `json:"symbol" mapstructure:"symbol"`
	Name     string `json:"name,omitempty" mapstructure:"name"`
	Address  string `json:"address" mapstructure:"address"`
	Decimals uint8  `json:"decimals" mapstructure:"decimals"`
}
