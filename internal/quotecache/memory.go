package quotecache

import (
	"container/list"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hxuan190/chain-gateway/internal/domain"
	"github.com/hxuan190/chain-gateway/internal/metrics"
)

const (
	DefaultTTL             = 5 * time.Minute
	DefaultMaxEntries      = 10000
	defaultCleanupInterval = 30 * time.Second
)

type entry struct {
	id      string
	quote   *domain.CachedQuote
	expires time.Time
}

// MemoryStore is a thread-safe bounded LRU with a per-entry TTL. Entries
// expire on their own clock regardless of reads.
type MemoryStore struct {
	mu      sync.Mutex
	items   map[string]*list.Element
	lru     *list.List
	ttl     time.Duration
	maxSize int
	now     func() time.Time

	stopChan chan struct{}
	stopOnce sync.Once
}

type Option func(*MemoryStore)

func WithClock(now func() time.Time) Option {
	return func(s *MemoryStore) { s.now = now }
}

// NewMemoryStore creates the store and starts its janitor. A non-positive
// cleanup interval disables the janitor.
func NewMemoryStore(ttl time.Duration, maxSize int, cleanupInterval time.Duration, opts ...Option) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxEntries
	}
	s := &MemoryStore{
		items:    make(map[string]*list.Element),
		lru:      list.New(),
		ttl:      ttl,
		maxSize:  maxSize,
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if cleanupInterval > 0 {
		go s.cleanupLoop(cleanupInterval)
	}
	return s
}

// Set stores q under id, replacing any previous value and restarting its TTL.
func (s *MemoryStore) Set(id string, q *domain.CachedQuote) {
	s.mu.Lock()
	defer s.mu.Unlock()

	expires := s.now().Add(s.ttl)
	if elem, ok := s.items[id]; ok {
		e := elem.Value.(*entry)
		e.quote = q
		e.expires = expires
		s.lru.MoveToFront(elem)
		return
	}

	for len(s.items) >= s.maxSize {
		s.evictLRU()
	}

	s.items[id] = s.lru.PushFront(&entry{id: id, quote: q, expires: expires})
	metrics.QuoteCacheSize.Set(float64(len(s.items)))
}

func (s *MemoryStore) Get(id string) (*domain.CachedQuote, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	elem, ok := s.items[id]
	if !ok {
		metrics.QuoteCacheMisses.Inc()
		return nil, false
	}
	e := elem.Value.(*entry)
	if !s.now().Before(e.expires) {
		s.remove(elem)
		metrics.QuoteCacheEvictions.WithLabelValues("expired").Inc()
		metrics.QuoteCacheMisses.Inc()
		return nil, false
	}
	s.lru.MoveToFront(elem)
	metrics.QuoteCacheHits.Inc()
	return e.quote, true
}

// Delete is idempotent.
func (s *MemoryStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if elem, ok := s.items[id]; ok {
		s.remove(elem)
	}
}

func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Close stops the janitor.
func (s *MemoryStore) Close() {
	s.stopOnce.Do(func() { close(s.stopChan) })
}

// remove must be called with mu held
func (s *MemoryStore) remove(elem *list.Element) {
	e := elem.Value.(*entry)
	s.lru.Remove(elem)
	delete(s.items, e.id)
	metrics.QuoteCacheSize.Set(float64(len(s.items)))
}

// evictLRU must be called with mu held
func (s *MemoryStore) evictLRU() {
	back := s.lru.Back()
	if back == nil {
		return
	}
	s.remove(back)
	metrics.QuoteCacheEvictions.WithLabelValues("capacity").Inc()
}

func (s *MemoryStore) pruneExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	pruned := 0
	for elem := s.lru.Back(); elem != nil; {
		prev := elem.Prev()
		if !now.Before(elem.Value.(*entry).expires) {
			s.remove(elem)
			pruned++
		}
		elem = prev
	}
	if pruned > 0 {
		metrics.QuoteCacheEvictions.WithLabelValues("expired").Add(float64(pruned))
	}
	return pruned
}

func (s *MemoryStore) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			if n := s.pruneExpired(); n > 0 {
				log.Debug().Int("pruned", n).Int("size", s.Len()).Msg("[quoteCache] pruned expired quotes")
			}
		}
	}
}
