// Package quotecache keeps priced quotes between the quote and execute steps
// of the two-step swap flow.
package quotecache

import (
	"github.com/google/uuid"

	"github.com/hxuan190/chain-gateway/internal/domain"
)

// Store is the quote cache contract. A missing or expired id is a normal
// (nil, false) result.
type Store interface {
	Set(id string, q *domain.CachedQuote)
	Get(id string) (*domain.CachedQuote, bool)
	Delete(id string)
	Len() int
}

// NewID returns a fresh quote id.
func NewID() string {
	return uuid.NewString()
}
