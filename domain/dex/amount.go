package dex

import "math/big"

var bigPriceScale = big.NewInt(PriceScale)

// PriceAssetAmount converts an amount-asset quantity into the price asset
// at the given fixed-point price:
//
//	quote = price * amount / PriceScale
//
// The intermediate product can exceed 64 bits, so the computation goes
// through big.Int and never touches floating point.
func PriceAssetAmount(price, amount uint64) uint64 {
	p := new(big.Int).SetUint64(price)
	a := new(big.Int).SetUint64(amount)
	p.Mul(p, a)
	p.Div(p, bigPriceScale)
	return p.Uint64()
}

// AmountAssetAmount is the inverse conversion:
//
//	base = quote * PriceScale / price
func AmountAssetAmount(price, quote uint64) uint64 {
	if price == 0 {
		return 0
	}
	q := new(big.Int).SetUint64(quote)
	q.Mul(q, bigPriceScale)
	q.Div(q, new(big.Int).SetUint64(price))
	return q.Uint64()
}
