package quotecache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hxuan190/chain-gateway/internal/domain"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestStore(ttl time.Duration, size int) (*MemoryStore, *fakeClock) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	return NewMemoryStore(ttl, size, 0, WithClock(clock.Now)), clock
}

func quote(network string) *domain.CachedQuote {
	return &domain.CachedQuote{
		Quote:   &domain.SwapQuote{Network: network},
		Request: domain.QuoteRequestContext{Network: network},
	}
}

func TestMemoryStoreSetGetDelete(t *testing.T) {
	s, _ := newTestStore(time.Minute, 10)

	_, ok := s.Get("missing")
	assert.False(t, ok)

	q := quote("mainnet")
	s.Set("a", q)
	got, ok := s.Get("a")
	require.True(t, ok)
	assert.Same(t, q, got)
	assert.Equal(t, 1, s.Len())

	s.Delete("a")
	s.Delete("a")
	_, ok = s.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())
}

func TestMemoryStoreOverwrite(t *testing.T) {
	s, _ := newTestStore(time.Minute, 10)

	s.Set("a", quote("first"))
	s.Set("a", quote("second"))

	got, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, "second", got.Request.Network)
	assert.Equal(t, 1, s.Len())
}

func TestMemoryStoreTTL(t *testing.T) {
	s, clock := newTestStore(5*time.Minute, 10)

	s.Set("a", quote("mainnet"))
	clock.Advance(4 * time.Minute)
	_, ok := s.Get("a")
	require.True(t, ok, "reads do not extend lifetime but entry is still fresh")

	clock.Advance(time.Minute)
	_, ok = s.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())
}

func TestMemoryStorePruneExpired(t *testing.T) {
	s, clock := newTestStore(time.Minute, 10)

	s.Set("old", quote("a"))
	clock.Advance(30 * time.Second)
	s.Set("new", quote("b"))
	clock.Advance(45 * time.Second)

	assert.Equal(t, 1, s.pruneExpired())
	assert.Equal(t, 1, s.Len())
	_, ok := s.Get("new")
	assert.True(t, ok)
}

func TestMemoryStoreEvictsLeastRecentlyUsed(t *testing.T) {
	s, _ := newTestStore(time.Minute, 3)

	s.Set("a", quote("a"))
	s.Set("b", quote("b"))
	s.Set("c", quote("c"))
	_, _ = s.Get("a")
	s.Set("d", quote("d"))

	assert.Equal(t, 3, s.Len())
	_, ok := s.Get("b")
	assert.False(t, ok)
	for _, id := range []string{"a", "c", "d"} {
		_, ok := s.Get(id)
		assert.True(t, ok, id)
	}
}

func TestMemoryStoreConcurrentAccess(t *testing.T) {
	s := NewMemoryStore(time.Minute, 100, 10*time.Millisecond)
	defer s.Close()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				id := fmt.Sprintf("%d-%d", w, i%20)
				s.Set(id, quote(id))
				s.Get(id)
				if i%3 == 0 {
					s.Delete(id)
				}
			}
		}(w)
	}
	wg.Wait()
	assert.LessOrEqual(t, s.Len(), 100)
}

func TestCloseIsIdempotent(t *testing.T) {
	s := NewMemoryStore(time.Minute, 10, time.Millisecond)
	s.Close()
	s.Close()
}

func TestNewID(t *testing.T) {
	a, b := NewID(), NewID()
	assert.NotEqual(t, a, b)
	parsed, err := uuid.Parse(a)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(4), parsed.Version())
}

var _ Store = (*MemoryStore)(nil)
