// Package tokens resolves symbols and addresses against each network's
// configured token list.
package tokens

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hxuan190/chain-gateway/internal/domain"
)

var ErrTokenNotFound = errors.New("token not found")

// AddressNormalizer canonicalizes addresses for lookups. EVM addresses are
// case-insensitive, Solana addresses are not.
type AddressNormalizer func(string) string

func CaseSensitive(s string) string { return s }

func CaseInsensitive(s string) string { return strings.ToLower(s) }

// List is the token list of one network.
type List struct {
	bySymbol  map[string]domain.Token
	byAddress map[string]domain.Token
	normalize AddressNormalizer
}

func NewList(tokens []domain.Token, normalize AddressNormalizer) *List {
	if normalize == nil {
		normalize = CaseSensitive
	}
	l := &List{
		bySymbol:  make(map[string]domain.Token, len(tokens)),
		byAddress: make(map[string]domain.Token, len(tokens)),
		normalize: normalize,
	}
	for _, t := range tokens {
		l.bySymbol[strings.ToUpper(t.Symbol)] = t
		l.byAddress[normalize(t.Address)] = t
	}
	return l
}

// Resolve accepts a symbol or an address.
func (l *List) Resolve(symbolOrAddress string) (domain.Token, error) {
	s := strings.TrimSpace(symbolOrAddress)
	if t, ok := l.bySymbol[strings.ToUpper(s)]; ok {
		return t, nil
	}
	if t, ok := l.byAddress[l.normalize(s)]; ok {
		return t, nil
	}
	return domain.Token{}, fmt.Errorf("%w: %s", ErrTokenNotFound, symbolOrAddress)
}

// ByAddress looks a token up by address only.
func (l *List) ByAddress(address string) (domain.Token, bool) {
	t, ok := l.byAddress[l.normalize(address)]
	return t, ok
}

func (l *List) All() []domain.Token {
	out := make([]domain.Token, 0, len(l.bySymbol))
	for _, t := range l.bySymbol {
		out = append(out, t)
	}
	return out
}
