package dex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func issuedID(b byte) AssetID {
	var id AssetID
	for i := range id {
		id[i] = b
	}
	return id
}

func TestParseAssetRoundTrip(t *testing.T) {
	native, err := ParseAsset(NativeAssetName)
	require.NoError(t, err)
	assert.True(t, native.IsNative())

	issued := IssuedAsset(issuedID(0x7f))
	parsed, err := ParseAsset(issued.String())
	require.NoError(t, err)
	assert.Equal(t, issued, parsed)

	_, err = ParseAsset("not-base64!!")
	assert.ErrorIs(t, err, ErrAssetNotFound)
}

func TestAssetPairCanonical(t *testing.T) {
	a := IssuedAsset(issuedID(0x01))
	b := IssuedAsset(issuedID(0x02))

	canonical := AssetPair{AmountAsset: b, PriceAsset: a}
	reversed := AssetPair{AmountAsset: a, PriceAsset: b}

	assert.True(t, canonical.Canonical())
	assert.False(t, reversed.Canonical())

	// Both orientations resolve to the same book.
	assert.Equal(t, canonical.Key(), reversed.Key())

	same := AssetPair{AmountAsset: a, PriceAsset: a}
	assert.False(t, same.Valid())
}

func TestNativeSortsFirst(t *testing.T) {
	pair := AssetPair{
		AmountAsset: IssuedAsset(issuedID(0x01)),
		PriceAsset:  NativeAsset(),
	}
	assert.True(t, pair.Canonical())
}
