package dex

import (
	"encoding/base64"
	"encoding/binary"

	"github.com/decred/dcrd/crypto/blake256"
)

// PriceScale is the fixed-point denominator for prices: a price of
// 1*PriceScale means one price-asset unit per amount-asset unit.
const PriceScale = 100_000_000

// PublicKeySize is the length of an order sender's public key.
const PublicKeySize = 32

// PublicKey identifies the account an order trades for.
type PublicKey [PublicKeySize]byte

func (pk PublicKey) String() string {
	return base64.RawURLEncoding.EncodeToString(pk[:])
}

// OrderID is the blake256 hash of an order's signable content.
type OrderID [blake256.Size]byte

func (id OrderID) String() string {
	return base64.RawURLEncoding.EncodeToString(id[:])
}

// ParseOrderID decodes the string form produced by OrderID.String.
func ParseOrderID(s string) (OrderID, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil || len(raw) != blake256.Size {
		return OrderID{}, Validationf("bad order id %q", s)
	}
	var id OrderID
	copy(id[:], raw)
	return id, nil
}

// Side is the order direction.
type Side uint8

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	default:
		return "unknown"
	}
}

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// OrderType distinguishes resting limit orders from immediate market orders.
type OrderType uint8

const (
	Limit OrderType = iota
	// Market orders never rest: any remainder left after matching is
	// dropped and reported, not queued.
	Market
)

func (t OrderType) String() string {
	if t == Market {
		return "market"
	}
	return "limit"
}

// Order is an admitted, immutable order. It carries everything needed to
// re-validate it independently.
type Order struct {
	Sender     PublicKey `json:"sender"`
	Pair       AssetPair `json:"pair"`
	Side       Side      `json:"side"`
	Type       OrderType `json:"type"`
	Price      uint64    `json:"price"` // price asset per PriceScale amount units; 0 for market
	Amount     uint64    `json:"amount"` // amount asset units
	Fee        uint64    `json:"fee"`
	FeeAsset   Asset     `json:"feeAsset"`
	Timestamp  int64     `json:"timestamp"`  // unix millis
	Expiration int64     `json:"expiration"` // unix millis
	Proof      []byte    `json:"proof,omitempty"`
	Version    uint8     `json:"version"`
}

// ID derives the order's content hash. The layout is fixed so the id is
// stable across restarts and processes.
func (o *Order) ID() OrderID {
	buf := make([]byte, 0, 2+PublicKeySize+2*(1+AssetIDSize)+1+1+8*4+1+AssetIDSize)
	buf = append(buf, o.Version)
	buf = append(buf, o.Sender[:]...)
	buf = appendAsset(buf, o.Pair.AmountAsset)
	buf = appendAsset(buf, o.Pair.PriceAsset)
	buf = append(buf, byte(o.Side), byte(o.Type))
	buf = binary.BigEndian.AppendUint64(buf, o.Price)
	buf = binary.BigEndian.AppendUint64(buf, o.Amount)
	buf = binary.BigEndian.AppendUint64(buf, o.Fee)
	buf = appendAsset(buf, o.FeeAsset)
	buf = binary.BigEndian.AppendUint64(buf, uint64(o.Timestamp))
	buf = binary.BigEndian.AppendUint64(buf, uint64(o.Expiration))
	return OrderID(blake256.Sum256(buf))
}

func appendAsset(buf []byte, a Asset) []byte {
	if a.IsNative() {
		return append(buf, 0)
	}
	buf = append(buf, 1)
	return append(buf, a.ID[:]...)
}

// Expired reports whether the order has passed its expiration at now
// (unix millis).
func (o *Order) Expired(now int64) bool {
	return o.Expiration <= now
}

// SpendAsset is the asset the sender pays out of: the price asset for buys,
// the amount asset for sells.
func (o *Order) SpendAsset() Asset {
	if o.Side == Buy {
		return o.Pair.PriceAsset
	}
	return o.Pair.AmountAsset
}

// SpendAmount is the collateral the order requires in SpendAsset, excluding
// the fee.
func (o *Order) SpendAmount() uint64 {
	if o.Side == Buy {
		return PriceAssetAmount(o.Price, o.Amount)
	}
	return o.Amount
}

// OrderStatus is the lifecycle state of an admitted order.
type OrderStatus uint8

const (
	StatusAccepted OrderStatus = iota
	StatusPartiallyFilled
	StatusFilled
	StatusCancelled
	// StatusNotFound is the query answer for unknown ids; an order never
	// transitions into it.
	StatusNotFound
)

func (s OrderStatus) String() string {
	switch s {
	case StatusAccepted:
		return "Accepted"
	case StatusPartiallyFilled:
		return "PartiallyFilled"
	case StatusFilled:
		return "Filled"
	case StatusCancelled:
		return "Cancelled"
	default:
		return "NotFound"
	}
}

// Terminal reports whether no further transition is possible.
func (s OrderStatus) Terminal() bool {
	return s == StatusFilled || s == StatusCancelled
}

// LimitOrder is an order plus its live execution state. It is owned
// exclusively by one order book while resting; once terminal it is no
// longer mutated.
type LimitOrder struct {
	Order
	OrderID      OrderID     `json:"id"`
	Seq          uint64      `json:"seq"` // arrival sequence, assigned at admission
	FilledAmount uint64      `json:"filledAmount"`
	FilledFee    uint64      `json:"filledFee"`
	Status       OrderStatus `json:"status"`
}

// NewLimitOrder admits an order with the given arrival sequence.
func NewLimitOrder(o Order, seq uint64) *LimitOrder {
	return &LimitOrder{
		Order:   o,
		OrderID: o.ID(),
		Seq:     seq,
		Status:  StatusAccepted,
	}
}

// Remaining is the unfilled amount.
func (lo *LimitOrder) Remaining() uint64 {
	return lo.Amount - lo.FilledAmount
}

// OrderRestrictions bounds admissible order amounts and prices for a pair.
// Zero-valued fields impose no constraint.
type OrderRestrictions struct {
	StepAmount uint64
	MinAmount  uint64
	MaxAmount  uint64
	StepPrice  uint64
	MinPrice   uint64
	MaxPrice   uint64
}

// CheckOrder validates an order's amount and price against the
// restrictions. Market orders carry no price and skip the price checks.
func (r OrderRestrictions) CheckOrder(o *Order) error {
	if o.Amount == 0 {
		return Validationf("zero amount")
	}
	if r.StepAmount > 1 && o.Amount%r.StepAmount != 0 {
		return Validationf("amount %d is not a multiple of step %d", o.Amount, r.StepAmount)
	}
	if r.MinAmount > 0 && o.Amount < r.MinAmount {
		return Validationf("amount %d below minimum %d", o.Amount, r.MinAmount)
	}
	if r.MaxAmount > 0 && o.Amount > r.MaxAmount {
		return Validationf("amount %d above maximum %d", o.Amount, r.MaxAmount)
	}
	if o.Type == Market {
		return nil
	}
	if o.Price == 0 {
		return Validationf("zero price")
	}
	if r.StepPrice > 1 && o.Price%r.StepPrice != 0 {
		return Validationf("price %d is not a multiple of step %d", o.Price, r.StepPrice)
	}
	if r.MinPrice > 0 && o.Price < r.MinPrice {
		return Validationf("price %d below minimum %d", o.Price, r.MinPrice)
	}
	if r.MaxPrice > 0 && o.Price > r.MaxPrice {
		return Validationf("price %d above maximum %d", o.Price, r.MaxPrice)
	}
	return nil
}
