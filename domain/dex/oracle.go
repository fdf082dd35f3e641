package dex

import "context"

// BalanceOracle answers real on-chain balances for an address. Calls may be
// slow and may fail transiently; callers retry with backoff.
type BalanceOracle interface {
	Balances(ctx context.Context, address PublicKey, assets []Asset) (map[Asset]uint64, error)
}

// AssetInfo is the metadata needed to interpret amounts of an asset.
type AssetInfo struct {
	Decimals  uint8
	HasScript bool
}

// AssetResolver looks up asset metadata. Unknown assets surface as
// ErrAssetNotFound to the caller, never as a fatal condition.
type AssetResolver interface {
	Describe(ctx context.Context, asset Asset) (AssetInfo, error)
}

// OrderValidator authorizes an order's proofs. The signature scheme itself
// is defined upstream; the core only consumes the capability.
type OrderValidator interface {
	Verify(o *Order) error
}
