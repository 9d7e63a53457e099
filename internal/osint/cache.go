package osint

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type cacheEntry[V any] struct {
	value   V
	expires time.Time
}

// TTLCache is a size-bounded LRU whose entries expire after a fixed TTL.
// Expired entries stay readable through Stale until evicted.
type TTLCache[V any] struct {
	cache *lru.Cache[string, cacheEntry[V]]
	ttl   time.Duration
	clock Clock
}

func NewTTLCache[V any](size int, ttl time.Duration, clock Clock) (*TTLCache[V], error) {
	if size <= 0 {
		size = 1024
	}
	if clock == nil {
		clock = SystemClock
	}
	c, err := lru.New[string, cacheEntry[V]](size)
	if err != nil {
		return nil, err
	}
	return &TTLCache[V]{cache: c, ttl: ttl, clock: clock}, nil
}

// Get returns the value only while it is fresh.
func (c *TTLCache[V]) Get(key string) (V, bool) {
	e, ok := c.cache.Get(key)
	if !ok || !c.clock.Now().Before(e.expires) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Stale returns the value regardless of age, without touching recency.
func (c *TTLCache[V]) Stale(key string) (V, bool) {
	e, ok := c.cache.Peek(key)
	return e.value, ok
}

func (c *TTLCache[V]) Add(key string, v V) {
	c.cache.Add(key, cacheEntry[V]{value: v, expires: c.clock.Now().Add(c.ttl)})
}

func (c *TTLCache[V]) Len() int { return c.cache.Len() }

// EvidenceCache holds the per-identifier results of each provider.
type EvidenceCache struct {
	leaks  *TTLCache[LeakResult]
	certs  *TTLCache[CertResult]
	policy *TTLCache[PolicyResult]
}

func NewEvidenceCache(size int, ttl time.Duration, clock Clock) (*EvidenceCache, error) {
	leaks, err := NewTTLCache[LeakResult](size, ttl, clock)
	if err != nil {
		return nil, err
	}
	certs, err := NewTTLCache[CertResult](size, ttl, clock)
	if err != nil {
		return nil, err
	}
	policy, err := NewTTLCache[PolicyResult](size, ttl, clock)
	if err != nil {
		return nil, err
	}
	return &EvidenceCache{leaks: leaks, certs: certs, policy: policy}, nil
}
