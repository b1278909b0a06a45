// Package cache memoizes deterministic fit results.
package cache

import (
	"encoding/binary"
	"math"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	gocache "github.com/patrickmn/go-cache"
)

// Cache is a typed, expiring, goroutine-safe cache.
type Cache[V any] struct {
	items *gocache.Cache
}

// New creates a cache whose entries expire after ttl. A non-positive ttl
// keeps entries until they are deleted.
func New[V any](ttl time.Duration) *Cache[V] {
	if ttl <= 0 {
		return &Cache[V]{items: gocache.New(gocache.NoExpiration, 0)}
	}
	return &Cache[V]{items: gocache.New(ttl, 2*ttl)}
}

// Get returns the cached value for key.
func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V
	if c == nil {
		return zero, false
	}
	v, ok := c.items.Get(key)
	if !ok {
		return zero, false
	}
	typed, ok := v.(V)
	return typed, ok
}

// Set stores v under key with the default expiration.
func (c *Cache[V]) Set(key string, v V) {
	if c == nil {
		return
	}
	c.items.SetDefault(key, v)
}

// Len returns the number of cached items, including expired ones that have
// not been cleaned up yet.
func (c *Cache[V]) Len() int {
	if c == nil {
		return 0
	}
	return c.items.ItemCount()
}

// Flush removes every item.
func (c *Cache[V]) Flush() {
	if c == nil {
		return
	}
	c.items.Flush()
}

// Key hashes a fit request. Samples are hashed by their IEEE-754 bits, so
// 0 and -0 produce different keys.
func Key(method string, degree int, x, y []float64, extra ...uint64) string {
	d := xxhash.New()
	buf := make([]byte, 0, 8*(len(x)+len(y)+len(extra)+3))

	buf = binary.LittleEndian.AppendUint64(buf, uint64(degree))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(len(x)))
	for _, v := range x {
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(v))
	}
	buf = binary.LittleEndian.AppendUint64(buf, uint64(len(y)))
	for _, v := range y {
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(v))
	}
	for _, v := range extra {
		buf = binary.LittleEndian.AppendUint64(buf, v)
	}

	_, _ = d.WriteString(method)
	_, _ = d.Write(buf)
	return method + ":" + strconv.FormatUint(d.Sum64(), 16)
}
