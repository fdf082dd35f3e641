package dex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOrder() Order {
	var sender PublicKey
	sender[0] = 0x11
	return Order{
		Sender: sender,
		Pair: AssetPair{
			AmountAsset: IssuedAsset(issuedID(0xaa)),
			PriceAsset:  NativeAsset(),
		},
		Side:       Buy,
		Type:       Limit,
		Price:      2 * PriceScale,
		Amount:     500,
		Fee:        300,
		FeeAsset:   NativeAsset(),
		Timestamp:  1_700_000_000_000,
		Expiration: 1_700_100_000_000,
		Version:    3,
	}
}

func TestOrderIDDeterministic(t *testing.T) {
	a, b := testOrder(), testOrder()
	assert.Equal(t, a.ID(), b.ID())

	b.Amount++
	assert.NotEqual(t, a.ID(), b.ID(), "content change must change the id")

	parsed, err := ParseOrderID(a.ID().String())
	require.NoError(t, err)
	assert.Equal(t, a.ID(), parsed)
}

func TestSpendSide(t *testing.T) {
	o := testOrder()

	// Buys pay in the price asset, at the limit price.
	assert.Equal(t, o.Pair.PriceAsset, o.SpendAsset())
	assert.Equal(t, uint64(1000), o.SpendAmount())

	o.Side = Sell
	assert.Equal(t, o.Pair.AmountAsset, o.SpendAsset())
	assert.Equal(t, o.Amount, o.SpendAmount())
}

func TestExpired(t *testing.T) {
	o := testOrder()
	assert.False(t, o.Expired(o.Expiration-1))
	assert.True(t, o.Expired(o.Expiration))
}

func TestOrderStatusTerminal(t *testing.T) {
	assert.False(t, StatusAccepted.Terminal())
	assert.False(t, StatusPartiallyFilled.Terminal())
	assert.True(t, StatusFilled.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.False(t, StatusNotFound.Terminal())
}

func TestCheckOrderRestrictions(t *testing.T) {
	r := OrderRestrictions{
		StepAmount: 10, MinAmount: 100, MaxAmount: 1000,
		StepPrice: 5, MinPrice: 50, MaxPrice: 5000,
	}

	o := testOrder()
	o.Amount, o.Price = 500, 500
	require.NoError(t, r.CheckOrder(&o))

	cases := []struct {
		name          string
		amount, price uint64
	}{
		{"zero amount", 0, 500},
		{"amount off step", 505, 500},
		{"amount below min", 50, 500},
		{"amount above max", 2000, 500},
		{"zero price", 500, 0},
		{"price off step", 500, 503},
		{"price below min", 500, 45},
		{"price above max", 500, 10000},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			o := testOrder()
			o.Amount, o.Price = tc.amount, tc.price
			assert.ErrorIs(t, r.CheckOrder(&o), ErrValidation)
		})
	}

	// Market orders carry no price, so only amount checks apply.
	o = testOrder()
	o.Type, o.Amount, o.Price = Market, 500, 0
	assert.NoError(t, r.CheckOrder(&o))
}

func TestRemaining(t *testing.T) {
	lo := NewLimitOrder(testOrder(), 7)
	assert.Equal(t, uint64(500), lo.Remaining())
	assert.Equal(t, StatusAccepted, lo.Status)

	lo.FilledAmount = 200
	assert.Equal(t, uint64(300), lo.Remaining())
}
