package cache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_InsertAndRetrieve(t *testing.T) {
	c := New[string, int](10)

	require.NoError(t, c.Insert("a", 1, 2))
	require.NoError(t, c.Insert("b", 2, 3))
	assert.Equal(t, 5, c.Weight())
	assert.Equal(t, 10, c.Budget())

	v, ok := c.Retrieve("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = c.Retrieve("missing")
	assert.False(t, ok)

	assert.Equal(t, ErrKeyExists, c.Insert("a", 3, 1))
	v, _ = c.Retrieve("a")
	assert.Equal(t, 1, v)
}

func TestCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := New[string, string](3)

	require.NoError(t, c.Insert("a", "a", 1))
	require.NoError(t, c.Insert("b", "b", 1))
	require.NoError(t, c.Insert("c", "c", 1))

	// Touching a leaves b as the oldest entry
	_, ok := c.Retrieve("a")
	require.True(t, ok)

	require.NoError(t, c.Insert("d", "d", 1))
	assert.Equal(t, 3, c.Weight())

	_, ok = c.Retrieve("b")
	assert.False(t, ok)
	for _, key := range []string{"a", "c", "d"} {
		_, ok = c.Retrieve(key)
		assert.True(t, ok, key)
	}

	// A heavy entry pushes out as many entries as it needs
	require.NoError(t, c.Insert("e", "e", 3))
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, 3, c.Weight())

	require.NoError(t, c.Insert("f", "f", 4))
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, 0, c.Weight())
}

func TestCache_Clear(t *testing.T) {
	c := New[int, int](4)
	for i := 0; i < 4; i++ {
		require.NoError(t, c.Insert(i, i, 1))
	}

	c.Clear()
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, 0, c.Weight())

	require.NoError(t, c.Insert(0, 0, 1))
}

func TestCache_Concurrent(t *testing.T) {
	c := New[string, int](64)

	var wg sync.WaitGroup
	for worker := 0; worker < 8; worker++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				key := fmt.Sprintf("%d-%d", worker, i)
				assert.NoError(t, c.Insert(key, i, 1))
				c.Retrieve(key)
			}
		}(worker)
	}
	wg.Wait()

	assert.Equal(t, 64, c.Weight())
	assert.Equal(t, 64, c.Len())
}
