package dex

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPriceAssetAmount(t *testing.T) {
	// 2.0 price asset per amount unit.
	assert.Equal(t, uint64(1000), PriceAssetAmount(2*PriceScale, 500))

	// A product far beyond 64 bits must not overflow.
	big := PriceAssetAmount(1_000_000*PriceScale, 1_000_000_000)
	assert.Equal(t, uint64(1_000_000*1_000_000_000), big)

	assert.Equal(t, uint64(0), PriceAssetAmount(0, 500))
}

func TestAmountAssetAmount(t *testing.T) {
	assert.Equal(t, uint64(500), AmountAssetAmount(2*PriceScale, 1000))
	assert.Equal(t, uint64(0), AmountAssetAmount(0, 1000))
}
