package orderbook

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func treePrices(tr *rbTree) []uint64 {
	var out []uint64
	tr.ForEachAscending(func(lvl *PriceLevel) bool {
		out = append(out, lvl.Price)
		return true
	})
	return out
}

func TestTreeOrderedIteration(t *testing.T) {
	tr := newRBTree()
	prices := []uint64{50, 10, 90, 30, 70, 20, 80}
	for _, p := range prices {
		tr.UpsertLevel(p)
	}

	want := append([]uint64{}, prices...)
	sort.Slice(want, func(i, j int) bool { return want[i] < want[j] })
	assert.Equal(t, want, treePrices(tr))

	var desc []uint64
	tr.ForEachDescending(func(lvl *PriceLevel) bool {
		desc = append(desc, lvl.Price)
		return true
	})
	for i, j := 0, len(want)-1; i < j; i, j = i+1, j-1 {
		want[i], want[j] = want[j], want[i]
	}
	assert.Equal(t, want, desc)
}

func TestTreeMinMax(t *testing.T) {
	tr := newRBTree()
	assert.Nil(t, tr.MinLevel())
	assert.Nil(t, tr.MaxLevel())

	for _, p := range []uint64{40, 10, 99} {
		tr.UpsertLevel(p)
	}
	require.NotNil(t, tr.MinLevel())
	require.NotNil(t, tr.MaxLevel())
	assert.Equal(t, uint64(10), tr.MinLevel().Price)
	assert.Equal(t, uint64(99), tr.MaxLevel().Price)
}

func TestTreeUpsertIsIdempotent(t *testing.T) {
	tr := newRBTree()
	first := tr.UpsertLevel(42)
	second := tr.UpsertLevel(42)
	assert.Same(t, first, second)
	assert.Equal(t, 1, tr.Size())
}

func TestTreeDelete(t *testing.T) {
	tr := newRBTree()
	for _, p := range []uint64{10, 20, 30} {
		tr.UpsertLevel(p)
	}
	tr.DeleteLevel(20)
	assert.Nil(t, tr.FindLevel(20))
	assert.Equal(t, []uint64{10, 30}, treePrices(tr))

	// Deleting a missing key must not disturb the tree.
	tr.DeleteLevel(20)
	assert.Equal(t, 2, tr.Size())
}

func TestTreeRandomizedAgainstSortedSet(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	tr := newRBTree()
	ref := make(map[uint64]bool)

	for i := 0; i < 2000; i++ {
		p := uint64(rng.Intn(500))
		if rng.Intn(3) == 0 {
			tr.DeleteLevel(p)
			delete(ref, p)
		} else {
			tr.UpsertLevel(p)
			ref[p] = true
		}
	}

	want := make([]uint64, 0, len(ref))
	for p := range ref {
		want = append(want, p)
	}
	sort.Slice(want, func(i, j int) bool { return want[i] < want[j] })
	assert.Equal(t, want, treePrices(tr))
	assert.Equal(t, len(ref), tr.Size())
}
