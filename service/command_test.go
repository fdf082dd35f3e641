package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mako/domain/dex"
)

func TestCommandRoundTrip(t *testing.T) {
	order := placeableOrder(1, dex.Buy, 2*dex.PriceScale, 5)
	cmd := &Command{
		Kind:      KindPlace,
		Timestamp: 1_700_000_000_000,
		Order:     &order,
	}
	data, err := EncodeCommand(cmd)
	require.NoError(t, err)

	decoded, err := DecodeCommand(data)
	require.NoError(t, err)
	assert.Equal(t, KindPlace, decoded.Kind)
	assert.Equal(t, cmd.Timestamp, decoded.Timestamp)
	require.NotNil(t, decoded.Order)
	assert.Equal(t, order.ID(), decoded.Order.ID(),
		"the order id must survive the wire")
}

func TestCommandValidate(t *testing.T) {
	id := dex.OrderID{}
	pair := enginePair()
	sender := engineSender(1)

	cases := []struct {
		name string
		cmd  Command
		ok   bool
	}{
		{"place without order", Command{Kind: KindPlace}, false},
		{"cancel without pair", Command{Kind: KindCancel, OrderID: &id}, false},
		{"cancel complete", Command{Kind: KindCancel, OrderID: &id, Pair: &pair}, true},
		{"cancelAll without sender", Command{Kind: KindCancelAll}, false},
		{"cancelAll complete", Command{Kind: KindCancelAll, Sender: &sender}, true},
		{"unknown kind", Command{Kind: "reprice"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cmd.Validate()
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, dex.ErrValidation)
			}
		})
	}
}

func TestDecodeCommandRejectsGarbage(t *testing.T) {
	_, err := DecodeCommand([]byte("{not json"))
	assert.ErrorIs(t, err, dex.ErrValidation)

	_, err = DecodeCommand([]byte(`{"kind":"place"}`))
	assert.ErrorIs(t, err, dex.ErrValidation)
}
