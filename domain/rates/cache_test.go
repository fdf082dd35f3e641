package rates

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mako/domain/dex"
)

func issued(b byte) dex.Asset {
	var id dex.AssetID
	for i := range id {
		id[i] = b
	}
	return dex.IssuedAsset(id)
}

func TestNativePinnedAtOne(t *testing.T) {
	c := New()
	rate, ok := c.Get(dex.NativeAsset())
	require.True(t, ok)
	assert.True(t, rate.Equal(decimal.NewFromInt(1)))

	_, _, err := c.Upsert(dex.NativeAsset(), decimal.NewFromInt(2))
	assert.ErrorIs(t, err, dex.ErrRateImmutable)

	_, err = c.Delete(dex.NativeAsset())
	assert.ErrorIs(t, err, dex.ErrRateImmutable)
}

func TestUpsert(t *testing.T) {
	c := New()
	asset := issued(0x01)

	prev, existed, err := c.Upsert(asset, decimal.RequireFromString("1.5"))
	require.NoError(t, err)
	assert.False(t, existed)
	assert.True(t, prev.IsZero())

	prev, existed, err = c.Upsert(asset, decimal.RequireFromString("2.5"))
	require.NoError(t, err)
	assert.True(t, existed)
	assert.True(t, prev.Equal(decimal.RequireFromString("1.5")))

	rate, ok := c.Get(asset)
	require.True(t, ok)
	assert.True(t, rate.Equal(decimal.RequireFromString("2.5")))
}

func TestUpsertRejectsNonPositive(t *testing.T) {
	c := New()
	_, _, err := c.Upsert(issued(0x01), decimal.Zero)
	assert.ErrorIs(t, err, dex.ErrRateInvalid)

	_, _, err = c.Upsert(issued(0x01), decimal.RequireFromString("-1"))
	assert.ErrorIs(t, err, dex.ErrRateInvalid)
}

func TestDelete(t *testing.T) {
	c := New()
	asset := issued(0x02)

	_, err := c.Delete(asset)
	assert.ErrorIs(t, err, dex.ErrAssetNotFound)

	_, _, err = c.Upsert(asset, decimal.NewFromInt(3))
	require.NoError(t, err)

	prev, err := c.Delete(asset)
	require.NoError(t, err)
	assert.True(t, prev.Equal(decimal.NewFromInt(3)))

	_, ok := c.Get(asset)
	assert.False(t, ok)
}

func TestAllCopies(t *testing.T) {
	c := New()
	_, _, err := c.Upsert(issued(0x03), decimal.NewFromInt(4))
	require.NoError(t, err)

	all := c.All()
	assert.Len(t, all, 2) // native plus the issued asset

	// Mutating the copy must not touch the cache.
	all[issued(0x03)] = decimal.NewFromInt(99)
	rate, _ := c.Get(issued(0x03))
	assert.True(t, rate.Equal(decimal.NewFromInt(4)))
}
