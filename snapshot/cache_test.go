package snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mako/domain/orderbook"
)

func TestViewCacheMemoizes(t *testing.T) {
	c := NewBookViewCache()
	loads := 0
	load := func() (orderbook.Aggregated, error) {
		loads++
		return orderbook.Aggregated{
			Bids: []orderbook.LevelView{{Price: 100, Amount: 5}},
		}, nil
	}

	first, err := c.Get("A/B", load)
	require.NoError(t, err)
	second, err := c.Get("A/B", load)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, loads, "second read must come from the cache")
}

func TestViewCacheInvalidate(t *testing.T) {
	c := NewBookViewCache()
	loads := 0
	load := func() (orderbook.Aggregated, error) {
		loads++
		return orderbook.Aggregated{}, nil
	}

	_, err := c.Get("A/B", load)
	require.NoError(t, err)
	c.Invalidate("A/B")
	_, err = c.Get("A/B", load)
	require.NoError(t, err)
	assert.Equal(t, 2, loads)
}

func TestViewCacheInvalidateDuringLoad(t *testing.T) {
	c := NewBookViewCache()

	// The load observes the book before a mutation, and the mutation's
	// invalidation lands while the load is still in flight. The stale view
	// must not be cached over the invalidation.
	stale := orderbook.Aggregated{Bids: []orderbook.LevelView{{Price: 100, Amount: 5}}}
	fresh := orderbook.Aggregated{Bids: []orderbook.LevelView{{Price: 100, Amount: 2}}}

	got, err := c.Get("A/B", func() (orderbook.Aggregated, error) {
		c.Invalidate("A/B")
		return stale, nil
	})
	require.NoError(t, err)
	assert.Equal(t, stale, got, "the in-flight caller still gets its own load")

	got, err = c.Get("A/B", func() (orderbook.Aggregated, error) {
		return fresh, nil
	})
	require.NoError(t, err)
	assert.Equal(t, fresh, got, "a read after the mutation must reload, not serve the stale view")
}

func TestViewCachePerPair(t *testing.T) {
	c := NewBookViewCache()
	loadsA, loadsB := 0, 0

	_, _ = c.Get("A/B", func() (orderbook.Aggregated, error) { loadsA++; return orderbook.Aggregated{}, nil })
	_, _ = c.Get("C/D", func() (orderbook.Aggregated, error) { loadsB++; return orderbook.Aggregated{}, nil })
	c.Invalidate("A/B")
	_, _ = c.Get("A/B", func() (orderbook.Aggregated, error) { loadsA++; return orderbook.Aggregated{}, nil })
	_, _ = c.Get("C/D", func() (orderbook.Aggregated, error) { loadsB++; return orderbook.Aggregated{}, nil })

	assert.Equal(t, 2, loadsA)
	assert.Equal(t, 1, loadsB, "invalidation must not leak across pairs")
}
