package snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mako/domain/dex"
)

func snapAsset(b byte) dex.Asset {
	var id dex.AssetID
	for i := range id {
		id[i] = b
	}
	return dex.IssuedAsset(id)
}

func snapPair() dex.AssetPair {
	return dex.AssetPair{AmountAsset: snapAsset(0xaa), PriceAsset: dex.NativeAsset()}
}

func snapOrder(nonce int64, side dex.Side, filled uint64) *dex.LimitOrder {
	var sender dex.PublicKey
	sender[0] = byte(nonce)
	lo := dex.NewLimitOrder(dex.Order{
		Sender:     sender,
		Pair:       snapPair(),
		Side:       side,
		Type:       dex.Limit,
		Price:      100,
		Amount:     50,
		Fee:        300,
		FeeAsset:   snapAsset(0xcc),
		Timestamp:  1_700_000_000_000 + nonce,
		Expiration: 1_800_000_000_000,
		Proof:      []byte{0xde, 0xad, 0xbe, 0xef},
		Version:    3,
	}, uint64(nonce))
	lo.FilledAmount = filled
	lo.FilledFee = filled
	if filled > 0 {
		lo.Status = dex.StatusPartiallyFilled
	}
	return lo
}

func testSnapshot() *Snapshot {
	trade := dex.NewTrade(snapOrder(9, dex.Buy, 0).OrderID, snapOrder(8, dex.Sell, 0).OrderID, 100, 7, 1_700_000_001_000)
	return &Snapshot{
		Pair:   snapPair(),
		Offset: 42,
		Orders: []*dex.LimitOrder{
			snapOrder(1, dex.Buy, 0),
			snapOrder(2, dex.Buy, 10),
			snapOrder(3, dex.Sell, 0),
		},
		LastTrade: &trade,
	}
}

func TestCodecRoundTrip(t *testing.T) {
	s := testSnapshot()
	decoded, err := Decode(Encode(s))
	require.NoError(t, err)

	assert.Equal(t, s.Pair, decoded.Pair)
	assert.Equal(t, s.Offset, decoded.Offset)
	assert.Equal(t, s.LastTrade, decoded.LastTrade)
	require.Len(t, decoded.Orders, len(s.Orders))
	for i := range s.Orders {
		assert.Equal(t, s.Orders[i], decoded.Orders[i], "order %d", i)
	}
}

func TestCodecEmptyBook(t *testing.T) {
	s := &Snapshot{Pair: snapPair(), Offset: 7}
	decoded, err := Decode(Encode(s))
	require.NoError(t, err)
	assert.Equal(t, s.Pair, decoded.Pair)
	assert.Equal(t, int64(7), decoded.Offset)
	assert.Empty(t, decoded.Orders)
	assert.Nil(t, decoded.LastTrade)
}

func TestCodecMaxSizeProof(t *testing.T) {
	// The largest proof admission allows must survive the uint16 length
	// prefix intact.
	lo := snapOrder(1, dex.Buy, 0)
	lo.Proof = make([]byte, dex.MaxProofSize)
	for i := range lo.Proof {
		lo.Proof[i] = byte(i)
	}

	s := &Snapshot{Pair: snapPair(), Offset: 3, Orders: []*dex.LimitOrder{lo}}
	decoded, err := Decode(Encode(s))
	require.NoError(t, err)
	require.Len(t, decoded.Orders, 1)
	assert.Equal(t, lo.Proof, decoded.Orders[0].Proof)
	assert.Equal(t, lo.OrderID, decoded.Orders[0].OrderID)
}

func TestDecodeRejectsCorruption(t *testing.T) {
	data := Encode(testSnapshot())

	t.Run("truncated", func(t *testing.T) {
		for _, n := range []int{0, 1, 5, len(data) / 2, len(data) - 1} {
			_, err := Decode(data[:n])
			assert.ErrorIs(t, err, dex.ErrRecovery, "truncated to %d bytes", n)
		}
	})

	t.Run("trailing garbage", func(t *testing.T) {
		_, err := Decode(append(append([]byte{}, data...), 0x00))
		assert.ErrorIs(t, err, dex.ErrRecovery)
	})

	t.Run("bad version", func(t *testing.T) {
		bad := append([]byte{}, data...)
		bad[0] = codecVersion + 1
		_, err := Decode(bad)
		assert.ErrorIs(t, err, dex.ErrRecovery)
	})
}

func TestDecodeRecomputesOrderIDs(t *testing.T) {
	s := testSnapshot()
	decoded, err := Decode(Encode(s))
	require.NoError(t, err)
	for i, lo := range decoded.Orders {
		assert.Equal(t, lo.Order.ID(), lo.OrderID, "order %d", i)
	}
}
