package dex

import (
	"bytes"
	"encoding/base64"
	"fmt"
)

// AssetIDSize is the length of an issued asset identifier in bytes.
const AssetIDSize = 32

// NativeAssetName is the reserved string form of the chain's native
// currency. It never corresponds to an issued asset id.
const NativeAssetName = "MAKO"

// AssetID identifies an issued asset. Once assigned it never changes and is
// used as an equality and map key everywhere.
type AssetID [AssetIDSize]byte

func (id AssetID) String() string {
	return base64.RawURLEncoding.EncodeToString(id[:])
}

// Asset is either the native currency or an issued asset. The zero value is
// the native currency.
type Asset struct {
	ID     AssetID
	Issued bool
}

// NativeAsset returns the native currency asset.
func NativeAsset() Asset {
	return Asset{}
}

// IssuedAsset wraps an asset id.
func IssuedAsset(id AssetID) Asset {
	return Asset{ID: id, Issued: true}
}

// IsNative reports whether a is the native currency.
func (a Asset) IsNative() bool {
	return !a.Issued
}

func (a Asset) String() string {
	if a.IsNative() {
		return NativeAssetName
	}
	return a.ID.String()
}

// ParseAsset decodes the string form produced by String.
func ParseAsset(s string) (Asset, error) {
	if s == NativeAssetName {
		return NativeAsset(), nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil || len(raw) != AssetIDSize {
		return Asset{}, fmt.Errorf("%w: bad asset id %q", ErrAssetNotFound, s)
	}
	var id AssetID
	copy(id[:], raw)
	return IssuedAsset(id), nil
}

// less orders assets deterministically: native first, then by id bytes.
func (a Asset) less(b Asset) bool {
	if a.IsNative() != b.IsNative() {
		return a.IsNative()
	}
	return bytes.Compare(a.ID[:], b.ID[:]) < 0
}

// AssetPair names the two assets an order book trades: amounts are
// denominated in AmountAsset, prices in PriceAsset.
type AssetPair struct {
	AmountAsset Asset `json:"amountAsset"`
	PriceAsset  Asset `json:"priceAsset"`
}

// Valid reports whether the pair refers to two distinct assets.
func (p AssetPair) Valid() bool {
	return p.AmountAsset != p.PriceAsset
}

// Canonical reports whether the pair is in canonical orientation. Exactly
// one orientation of any two distinct assets is canonical, so both
// orientations resolve to the same order book key. Orders submitted against
// the reversed orientation are rejected rather than silently re-priced.
func (p AssetPair) Canonical() bool {
	return p.PriceAsset.less(p.AmountAsset)
}

// Normalized returns the pair in canonical orientation.
func (p AssetPair) Normalized() AssetPair {
	if p.Canonical() {
		return p
	}
	return AssetPair{AmountAsset: p.PriceAsset, PriceAsset: p.AmountAsset}
}

// Key returns the canonical book lookup key for the pair. Both orientations
// of the same two assets produce the same key.
func (p AssetPair) Key() string {
	a, b := p.AmountAsset, p.PriceAsset
	if b.less(a) {
		return a.String() + "/" + b.String()
	}
	return b.String() + "/" + a.String()
}

func (p AssetPair) String() string {
	return p.AmountAsset.String() + "/" + p.PriceAsset.String()
}
