package snapshot

import (
	"encoding/binary"
	"fmt"

	"mako/domain/dex"
)

// codecVersion guards the byte layout. Decoding any other version fails
// with ErrRecovery rather than guessing.
const codecVersion = 1

// Snapshot is one pair's recovery point: every resting order in canonical
// book order, the last trade, and the highest log offset applied to the
// book when the state was captured. The pair is part of the value so an
// empty book still restores with its identity.
type Snapshot struct {
	Pair      dex.AssetPair
	Offset    int64
	Orders    []*dex.LimitOrder
	LastTrade *dex.Trade
}

// Encode serializes the snapshot into a single value.
//
// Layout (all integers big-endian):
//
//	[1 version][pair][8 offset][1 hasTrade][trade?][4 count][orders...]
func Encode(s *Snapshot) []byte {
	buf := make([]byte, 0, 64+len(s.Orders)*192)
	buf = append(buf, codecVersion)
	buf = appendAsset(buf, s.Pair.AmountAsset)
	buf = appendAsset(buf, s.Pair.PriceAsset)
	buf = binary.BigEndian.AppendUint64(buf, uint64(s.Offset))
	if s.LastTrade != nil {
		buf = append(buf, 1)
		buf = appendTrade(buf, s.LastTrade)
	} else {
		buf = append(buf, 0)
	}
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(s.Orders)))
	for _, lo := range s.Orders {
		buf = appendOrder(buf, lo)
	}
	return buf
}

// Decode parses a snapshot value. Any structural damage surfaces as
// ErrRecovery: a corrupt snapshot must never be mistaken for an empty one.
func Decode(data []byte) (*Snapshot, error) {
	d := &decoder{buf: data}
	version := d.byte()
	if d.err == nil && version != codecVersion {
		return nil, fmt.Errorf("%w: unsupported snapshot version %d", dex.ErrRecovery, version)
	}
	s := &Snapshot{}
	s.Pair.AmountAsset = d.asset()
	s.Pair.PriceAsset = d.asset()
	s.Offset = int64(d.uint64())
	if d.byte() == 1 {
		s.LastTrade = d.trade()
	}
	count := d.uint32()
	if d.err != nil {
		return nil, fmt.Errorf("%w: snapshot header: %v", dex.ErrRecovery, d.err)
	}
	s.Orders = make([]*dex.LimitOrder, 0, count)
	for i := uint32(0); i < count; i++ {
		lo := d.order()
		if d.err != nil {
			return nil, fmt.Errorf("%w: snapshot order %d: %v", dex.ErrRecovery, i, d.err)
		}
		s.Orders = append(s.Orders, lo)
	}
	if len(d.buf) != d.off {
		return nil, fmt.Errorf("%w: %d trailing snapshot bytes", dex.ErrRecovery, len(d.buf)-d.off)
	}
	return s, nil
}

// -------------------- Encoding helpers --------------------

func appendTrade(buf []byte, t *dex.Trade) []byte {
	buf = appendBytes(buf, []byte(t.ID))
	buf = append(buf, t.TakerID[:]...)
	buf = append(buf, t.MakerID[:]...)
	buf = binary.BigEndian.AppendUint64(buf, t.Price)
	buf = binary.BigEndian.AppendUint64(buf, t.Amount)
	buf = binary.BigEndian.AppendUint64(buf, uint64(t.Timestamp))
	return buf
}

func appendOrder(buf []byte, lo *dex.LimitOrder) []byte {
	buf = append(buf, lo.Version)
	buf = append(buf, lo.Sender[:]...)
	buf = appendAsset(buf, lo.Pair.AmountAsset)
	buf = appendAsset(buf, lo.Pair.PriceAsset)
	buf = append(buf, byte(lo.Side), byte(lo.Type))
	buf = binary.BigEndian.AppendUint64(buf, lo.Price)
	buf = binary.BigEndian.AppendUint64(buf, lo.Amount)
	buf = binary.BigEndian.AppendUint64(buf, lo.Fee)
	buf = appendAsset(buf, lo.FeeAsset)
	buf = binary.BigEndian.AppendUint64(buf, uint64(lo.Timestamp))
	buf = binary.BigEndian.AppendUint64(buf, uint64(lo.Expiration))
	buf = appendBytes(buf, lo.Proof)
	buf = binary.BigEndian.AppendUint64(buf, lo.Seq)
	buf = binary.BigEndian.AppendUint64(buf, lo.FilledAmount)
	buf = binary.BigEndian.AppendUint64(buf, lo.FilledFee)
	buf = append(buf, byte(lo.Status))
	return buf
}

func appendAsset(buf []byte, a dex.Asset) []byte {
	if a.IsNative() {
		return append(buf, 0)
	}
	buf = append(buf, 1)
	return append(buf, a.ID[:]...)
}

// appendBytes writes a length-prefixed byte string. The uint16 prefix is
// safe for everything the layout stores through it: proofs are bounded by
// dex.MaxProofSize at admission and trade ids are short uuids.
func appendBytes(buf, b []byte) []byte {
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(b)))
	return append(buf, b...)
}

// -------------------- Decoding --------------------

// decoder reads the fixed layout, latching the first error.
type decoder struct {
	buf []byte
	off int
	err error
}

func (d *decoder) take(n int) []byte {
	if d.err != nil {
		return nil
	}
	if d.off+n > len(d.buf) {
		d.err = fmt.Errorf("truncated at byte %d", d.off)
		return nil
	}
	b := d.buf[d.off : d.off+n]
	d.off += n
	return b
}

func (d *decoder) byte() byte {
	b := d.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (d *decoder) uint32() uint32 {
	b := d.take(4)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

func (d *decoder) uint64() uint64 {
	b := d.take(8)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}

func (d *decoder) bytes() []byte {
	n := d.take(2)
	if n == nil {
		return nil
	}
	b := d.take(int(binary.BigEndian.Uint16(n)))
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func (d *decoder) asset() dex.Asset {
	if d.byte() == 0 {
		return dex.NativeAsset()
	}
	var id dex.AssetID
	copy(id[:], d.take(dex.AssetIDSize))
	return dex.IssuedAsset(id)
}

func (d *decoder) trade() *dex.Trade {
	t := &dex.Trade{ID: string(d.bytes())}
	copy(t.TakerID[:], d.take(len(t.TakerID)))
	copy(t.MakerID[:], d.take(len(t.MakerID)))
	t.Price = d.uint64()
	t.Amount = d.uint64()
	t.Timestamp = int64(d.uint64())
	return t
}

func (d *decoder) order() *dex.LimitOrder {
	lo := &dex.LimitOrder{}
	lo.Version = d.byte()
	copy(lo.Sender[:], d.take(dex.PublicKeySize))
	lo.Pair.AmountAsset = d.asset()
	lo.Pair.PriceAsset = d.asset()
	lo.Side = dex.Side(d.byte())
	lo.Type = dex.OrderType(d.byte())
	lo.Price = d.uint64()
	lo.Amount = d.uint64()
	lo.Fee = d.uint64()
	lo.FeeAsset = d.asset()
	lo.Timestamp = int64(d.uint64())
	lo.Expiration = int64(d.uint64())
	lo.Proof = d.bytes()
	lo.Seq = d.uint64()
	lo.FilledAmount = d.uint64()
	lo.FilledFee = d.uint64()
	lo.Status = dex.OrderStatus(d.byte())
	if d.err == nil {
		lo.OrderID = lo.Order.ID()
	}
	return lo
}
