package node

import (
	"fmt"
	"strings"
)

const (
	// DefaultCacheSize is the fragment cache capacity a drone starts with.
	DefaultCacheSize = 16
	// MaxCacheSize caps the capacity a cache can be resized to.
	MaxCacheSize = 1024
)

// CacheKey addresses one cached value: the fragment of a session that last
// passed through this node.
type CacheKey struct {
	SessionID     uint64
	FragmentIndex uint64
}

// FIFOCache is a bounded key-value store with insertion-order eviction.
// When a new key would push the cache past capacity, the single
// oldest-inserted key is evicted first. Lookups never refresh an entry's
// position; this is FIFO, not LRU, and there is no time-based expiry.
//
// The cache is not safe for concurrent use; a drone's reactor is its only
// caller.
type FIFOCache[V any] struct {
	entries  map[CacheKey]V
	order    []CacheKey
	capacity int
}

// NewFIFOCache returns a cache with the default capacity.
func NewFIFOCache[V any]() *FIFOCache[V] {
	return NewFIFOCacheSize[V](DefaultCacheSize)
}

// NewFIFOCacheSize returns a cache holding at most size entries, clamped to
// MaxCacheSize.
func NewFIFOCacheSize[V any](size int) *FIFOCache[V] {
	c := &FIFOCache[V]{entries: make(map[CacheKey]V)}
	c.SetCapacity(size)
	return c
}

// Put inserts or overwrites the value for (sessionID, fragmentIndex).
// Overwriting keeps the key's original insertion position. Inserting a new
// key at capacity evicts the oldest-inserted key first; the return reports
// whether that happened.
func (c *FIFOCache[V]) Put(sessionID, fragmentIndex uint64, v V) (evicted bool) {
	key := CacheKey{SessionID: sessionID, FragmentIndex: fragmentIndex}
	if _, ok := c.entries[key]; ok {
		c.entries[key] = v
		return false
	}
	if len(c.entries) >= c.capacity {
		c.evictOldest()
		evicted = true
	}
	c.entries[key] = v
	c.order = append(c.order, key)
	return evicted
}

// Take removes and returns the value for (sessionID, fragmentIndex). A found
// value is consumed: a second Take of the same key reports not found unless
// a Put intervened.
func (c *FIFOCache[V]) Take(sessionID, fragmentIndex uint64) (V, bool) {
	key := CacheKey{SessionID: sessionID, FragmentIndex: fragmentIndex}
	v, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	delete(c.entries, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return v, true
}

// Len returns the number of cached entries.
func (c *FIFOCache[V]) Len() int {
	return len(c.entries)
}

// Capacity returns the current capacity.
func (c *FIFOCache[V]) Capacity() int {
	return c.capacity
}

// SetCapacity resizes the cache, clamping to MaxCacheSize. Shrinking below
// the current size evicts oldest-inserted entries until the cache fits.
func (c *FIFOCache[V]) SetCapacity(size int) {
	if size > MaxCacheSize {
		size = MaxCacheSize
	}
	if size < 1 {
		size = 1
	}
	c.capacity = size
	for len(c.entries) > c.capacity {
		c.evictOldest()
	}
}

func (c *FIFOCache[V]) evictOldest() {
	if len(c.order) == 0 {
		return
	}
	oldest := c.order[0]
	c.order = c.order[1:]
	delete(c.entries, oldest)
}

func (c *FIFOCache[V]) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "FIFOCache(capacity=%d size=%d):", c.capacity, len(c.entries))
	for _, k := range c.order {
		fmt.Fprintf(&b, "\n  session=%d fragment=%d", k.SessionID, k.FragmentIndex)
	}
	return b.String()
}
