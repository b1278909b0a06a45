package cache

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKey(t *testing.T) {
	x := []float64{0, 1, 2}
	y := []float64{1, 3, 5}

	base := Key("least_squares", 1, x, y)
	assert.True(t, strings.HasPrefix(base, "least_squares:"))
	assert.Equal(t, base, Key("least_squares", 1, []float64{0, 1, 2}, []float64{1, 3, 5}))

	tests := []struct {
		name string
		key  string
	}{
		{"method", Key("swarm", 1, x, y)},
		{"degree", Key("least_squares", 2, x, y)},
		{"x value", Key("least_squares", 1, []float64{0, 1, 2.5}, y)},
		{"y value", Key("least_squares", 1, x, []float64{1, 3, 6})},
		{"split point", Key("least_squares", 1, []float64{0, 1}, []float64{2, 1, 3, 5})},
		{"extra", Key("least_squares", 1, x, y, 42)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotEqual(t, base, tt.key)
		})
	}
}

func TestCacheGetSet(t *testing.T) {
	c := New[[]float64](time.Minute)

	_, ok := c.Get("missing")
	assert.False(t, ok)

	c.Set("a", []float64{1, 2})
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, []float64{1, 2}, v)
	assert.Equal(t, 1, c.Len())

	c.Flush()
	assert.Equal(t, 0, c.Len())
}

func TestCacheExpiry(t *testing.T) {
	c := New[int](10 * time.Millisecond)
	c.Set("k", 7)
	time.Sleep(30 * time.Millisecond)

	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestNilCache(t *testing.T) {
	var c *Cache[int]
	c.Set("k", 1)
	_, ok := c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
	c.Flush()
}

func TestNoExpiration(t *testing.T) {
	c := New[string](0)
	c.Set("k", "v")
	v, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "v", v)
}
