// Package rates holds the fee-conversion rate cache: how much of each asset
// equals one unit of the native currency for fee pricing purposes.
package rates

import (
	"sync"

	"github.com/shopspring/decimal"

	"mako/domain/dex"
)

// Cache maps assets to positive conversion rates. The native currency's
// rate is pinned at 1 and cannot be changed or deleted. Reads take a shared
// lock; mutations are single-writer.
type Cache struct {
	mu    sync.RWMutex
	rates map[dex.Asset]decimal.Decimal
}

// New creates a cache seeded with the native rate.
func New() *Cache {
	return &Cache{
		rates: map[dex.Asset]decimal.Decimal{
			dex.NativeAsset(): decimal.NewFromInt(1),
		},
	}
}

// Get returns the rate for asset, reporting whether it is known.
func (c *Cache) Get(asset dex.Asset) (decimal.Decimal, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.rates[asset]
	return r, ok
}

// All returns a copy of every known rate.
func (c *Cache) All() map[dex.Asset]decimal.Decimal {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[dex.Asset]decimal.Decimal, len(c.rates))
	for a, r := range c.rates {
		out[a] = r
	}
	return out
}

// Upsert sets the rate for asset. It fails with ErrRateInvalid for
// non-positive rates and ErrRateImmutable for the native asset; in both
// cases the cache is left unchanged.
func (c *Cache) Upsert(asset dex.Asset, rate decimal.Decimal) (prev decimal.Decimal, existed bool, err error) {
	if asset.IsNative() {
		return decimal.Decimal{}, false, dex.ErrRateImmutable
	}
	if !rate.IsPositive() {
		return decimal.Decimal{}, false, dex.ErrRateInvalid
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	prev, existed = c.rates[asset]
	c.rates[asset] = rate
	return prev, existed, nil
}

// Delete removes asset's rate and returns the old value. Deleting the
// native rate fails with ErrRateImmutable; an unknown asset reports
// ErrAssetNotFound.
func (c *Cache) Delete(asset dex.Asset) (decimal.Decimal, error) {
	if asset.IsNative() {
		return decimal.Decimal{}, dex.ErrRateImmutable
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	old, ok := c.rates[asset]
	if !ok {
		return decimal.Decimal{}, dex.ErrAssetNotFound
	}
	delete(c.rates, asset)
	return old, nil
}
