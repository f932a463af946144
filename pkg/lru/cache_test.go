package lru

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutGet(t *testing.T) {
	c := New[string, int](3)

	c.Put("a", 1)
	c.Put("b", 2)

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = c.Get("missing")
	assert.False(t, ok)
	assert.Equal(t, 2, c.Len())
}

func TestPut_UpdatesExisting(t *testing.T) {
	c := New[string, int](2)

	c.Put("a", 1)
	c.Put("a", 10)

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 10, v)
	assert.Equal(t, 1, c.Len())
}

func TestEviction_LeastRecentlyUsed(t *testing.T) {
	c := New[string, int](2)

	c.Put("a", 1)
	c.Put("b", 2)
	c.Get("a") // a is now most recently used
	c.Put("c", 3)

	_, ok := c.Get("b")
	assert.False(t, ok, "b was least recently used")
	_, ok = c.Get("a")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
}

func TestOnEvict(t *testing.T) {
	c := New[string, int](1)

	var evictedKey string
	var evictedVal int
	c.OnEvict(func(k string, v int) {
		evictedKey = k
		evictedVal = v
	})

	c.Put("a", 1)
	c.Put("b", 2)

	assert.Equal(t, "a", evictedKey)
	assert.Equal(t, 1, evictedVal)
}

func TestDelete(t *testing.T) {
	c := New[string, int](2)

	c.Put("a", 1)
	assert.True(t, c.Delete("a"))
	assert.False(t, c.Delete("a"))
	assert.Equal(t, 0, c.Len())
}

func TestPeek_DoesNotTouchOrder(t *testing.T) {
	c := New[string, int](2)

	c.Put("a", 1)
	c.Put("b", 2)

	v, ok := c.Peek("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	// a was peeked, not used; it is still the eviction victim
	c.Put("c", 3)
	_, ok = c.Peek("a")
	assert.False(t, ok)
}

func TestNew_PanicsOnZeroCapacity(t *testing.T) {
	assert.Panics(t, func() { New[string, int](0) })
}
