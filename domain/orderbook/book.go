package orderbook

import (
	"math/big"

	"mako/domain/dex"
	"mako/infra/sequence"
)

// OrderBook is the matching state machine for one asset pair. It is owned
// by exactly one engine worker and is not safe for concurrent use; all
// access is serialized through that worker's mailbox.
type OrderBook struct {
	pair         dex.AssetPair
	restrictions dex.OrderRestrictions
	bids         *rbTree
	asks         *rbTree
	byID         map[dex.OrderID]*bookOrder
	seq          *sequence.Sequencer
	lastTrade    *dex.Trade
}

// New creates an empty book for pair.
func New(pair dex.AssetPair, r dex.OrderRestrictions) *OrderBook {
	return &OrderBook{
		pair:         pair,
		restrictions: r,
		bids:         newRBTree(),
		asks:         newRBTree(),
		byID:         make(map[dex.OrderID]*bookOrder),
		seq:          sequence.New(0),
	}
}

// Pair returns the pair this book trades.
func (b *OrderBook) Pair() dex.AssetPair {
	return b.pair
}

// Len returns the number of resting orders on both sides.
func (b *OrderBook) Len() int {
	return len(b.byID)
}

// Fill is one match produced by a submit: the trade record, the maker it
// executed against, and the fee portions each side consumed in this fill.
type Fill struct {
	Trade    dex.Trade
	Maker    *dex.LimitOrder
	TakerFee uint64
	MakerFee uint64
}

// SubmitResult reports the outcome of an accepted order: the admitted
// taker with its final state and the fills generated. Unfilled is the
// taker amount dropped without matching; it is nonzero only for market
// orders that exhausted the opposite side, and lets callers tell a full
// fill from a truncated one.
type SubmitResult struct {
	Taker    *dex.LimitOrder
	Fills    []Fill
	Unfilled uint64
}

// Trades extracts just the trade records from the fills.
func (r *SubmitResult) Trades() []dex.Trade {
	trades := make([]dex.Trade, len(r.Fills))
	for i := range r.Fills {
		trades[i] = r.Fills[i].Trade
	}
	return trades
}

// Validate runs every admission check Submit performs, without touching
// the book. Callers reserve balances between Validate and Submit.
func (b *OrderBook) Validate(o *dex.Order, now int64) error {
	if !o.Pair.Valid() {
		return dex.Validationf("amount and price asset are the same")
	}
	if !o.Pair.Canonical() {
		return dex.Validationf("asset pair %s should be reversed", o.Pair)
	}
	if o.Pair.Key() != b.pair.Key() {
		return dex.Validationf("order pair %s does not match book %s", o.Pair, b.pair)
	}
	if o.Expired(now) {
		return dex.Validationf("order expired at %d", o.Expiration)
	}
	if len(o.Proof) > dex.MaxProofSize {
		return dex.Validationf("proof is %d bytes, limit %d", len(o.Proof), dex.MaxProofSize)
	}
	if err := b.restrictions.CheckOrder(o); err != nil {
		return err
	}
	if _, ok := b.byID[o.ID()]; ok {
		return dex.Validationf("duplicate order %s", o.ID())
	}
	return nil
}

// Submit validates an incoming order, matches it against the opposite side
// and rests any limit remainder. A returned error means the order was
// rejected with no effect on the book.
func (b *OrderBook) Submit(o dex.Order, now int64) (*SubmitResult, error) {
	if err := b.Validate(&o, now); err != nil {
		return nil, err
	}

	taker := dex.NewLimitOrder(o, b.seq.Next())
	res := &SubmitResult{Taker: taker}
	b.match(taker, now, res)

	if taker.Remaining() > 0 {
		switch taker.Type {
		case dex.Limit:
			b.rest(taker)
		case dex.Market:
			// Market remainders never rest; the drop is reported, not
			// silent.
			res.Unfilled = taker.Remaining()
			if taker.FilledAmount > 0 {
				taker.Status = dex.StatusFilled
			} else {
				taker.Status = dex.StatusCancelled
			}
		}
	} else {
		taker.Status = dex.StatusFilled
	}

	if n := len(res.Fills); n > 0 {
		last := res.Fills[n-1].Trade
		b.lastTrade = &last
		log.Debugf("book %s: order %s generated %d trade(s)", b.pair, taker.OrderID, n)
	}
	return res, nil
}

// match consumes crossable liquidity from the opposite side. Trades are
// priced at the resting (maker) order's price. Partially filled makers keep
// their queue position.
func (b *OrderBook) match(taker *dex.LimitOrder, now int64, res *SubmitResult) {
	var best func() *PriceLevel
	var crossable func(levelPrice uint64) bool
	if taker.Side == dex.Buy {
		best = b.asks.MinLevel
		crossable = func(levelPrice uint64) bool {
			return taker.Type == dex.Market || levelPrice <= taker.Price
		}
	} else {
		best = b.bids.MaxLevel
		crossable = func(levelPrice uint64) bool {
			return taker.Type == dex.Market || levelPrice >= taker.Price
		}
	}

	for taker.Remaining() > 0 {
		lvl := best()
		if lvl == nil || !crossable(lvl.Price) {
			break
		}
		maker := lvl.head
		qty := min(taker.Remaining(), maker.lo.Remaining())

		takerFee := scaleFee(taker.Fee, qty, taker.Amount)
		makerFee := scaleFee(maker.lo.Fee, qty, maker.lo.Amount)
		taker.FilledAmount += qty
		taker.FilledFee += takerFee
		maker.lo.FilledAmount += qty
		maker.lo.FilledFee += makerFee

		res.Fills = append(res.Fills, Fill{
			Trade:    dex.NewTrade(taker.OrderID, maker.lo.OrderID, lvl.Price, qty, now),
			Maker:    maker.lo,
			TakerFee: takerFee,
			MakerFee: makerFee,
		})

		// The maker's fill is gone from the level's aggregate either way;
		// unlink only subtracts what still remains.
		lvl.reduce(qty)
		if maker.lo.Remaining() == 0 {
			maker.lo.Status = dex.StatusFilled
			lvl.unlink(maker)
			delete(b.byID, maker.lo.OrderID)
			if lvl.Count == 0 {
				b.deleteLevel(maker.lo.Side, lvl.Price)
			}
		} else {
			maker.lo.Status = dex.StatusPartiallyFilled
		}
	}

	if taker.FilledAmount > 0 && taker.Remaining() > 0 {
		taker.Status = dex.StatusPartiallyFilled
	}
}

// rest queues a limit remainder at its own price and time.
func (b *OrderBook) rest(lo *dex.LimitOrder) {
	bo := &bookOrder{lo: lo}
	lvl := b.side(lo.Side).UpsertLevel(lo.Price)
	lvl.enqueue(bo)
	b.byID[lo.OrderID] = bo
}

// Cancel removes a resting order. Terminal or unknown ids report
// ErrOrderNotFound; the rejection is idempotent.
func (b *OrderBook) Cancel(id dex.OrderID) (*dex.LimitOrder, error) {
	bo, ok := b.byID[id]
	if !ok {
		return nil, dex.ErrOrderNotFound
	}
	lo := bo.lo
	lvl := b.side(lo.Side).FindLevel(lo.Price)
	lvl.unlink(bo)
	if lvl.Count == 0 {
		b.deleteLevel(lo.Side, lvl.Price)
	}
	delete(b.byID, id)
	lo.Status = dex.StatusCancelled
	return lo, nil
}

// CancelOutcome is one entry of a batch cancel result.
type CancelOutcome struct {
	OrderID dex.OrderID
	Order   *dex.LimitOrder // nil when Err is set
	Err     error
}

// BatchCancel cancels every resting order matched by keep. One failure
// never aborts the rest; the caller gets a per-order outcome list.
func (b *OrderBook) BatchCancel(match func(*dex.LimitOrder) bool) []CancelOutcome {
	var ids []dex.OrderID
	for id, bo := range b.byID {
		if match == nil || match(bo.lo) {
			ids = append(ids, id)
		}
	}
	out := make([]CancelOutcome, 0, len(ids))
	for _, id := range ids {
		lo, err := b.Cancel(id)
		out = append(out, CancelOutcome{OrderID: id, Order: lo, Err: err})
	}
	return out
}

// LevelView is one aggregated price level of a book side.
type LevelView struct {
	Price  uint64 `json:"price"`
	Amount uint64 `json:"amount"`
}

// Aggregated is the side-aggregated read view of a book: bids best-first
// (descending), asks best-first (ascending).
type Aggregated struct {
	Bids []LevelView `json:"bids"`
	Asks []LevelView `json:"asks"`
}

// AggregatedSnapshot builds the aggregated view. The caller's worker
// serializes it against mutations, so the view is a consistent
// point-in-time state.
func (b *OrderBook) AggregatedSnapshot() Aggregated {
	agg := Aggregated{
		Bids: make([]LevelView, 0, b.bids.Size()),
		Asks: make([]LevelView, 0, b.asks.Size()),
	}
	b.bids.ForEachDescending(func(lvl *PriceLevel) bool {
		agg.Bids = append(agg.Bids, LevelView{Price: lvl.Price, Amount: lvl.TotalAmount})
		return true
	})
	b.asks.ForEachAscending(func(lvl *PriceLevel) bool {
		agg.Asks = append(agg.Asks, LevelView{Price: lvl.Price, Amount: lvl.TotalAmount})
		return true
	})
	return agg
}

// MarketStatus is the best-of-book summary. Pointer fields are nil when the
// corresponding side is empty or no trade has happened yet.
type MarketStatus struct {
	LastTrade *dex.Trade `json:"lastTrade,omitempty"`
	BestBid   *LevelView `json:"bestBid,omitempty"`
	BestAsk   *LevelView `json:"bestAsk,omitempty"`
}

// Status returns the book's market status.
func (b *OrderBook) Status() MarketStatus {
	st := MarketStatus{LastTrade: b.lastTrade}
	if lvl := b.bids.MaxLevel(); lvl != nil {
		st.BestBid = &LevelView{Price: lvl.Price, Amount: lvl.TotalAmount}
	}
	if lvl := b.asks.MinLevel(); lvl != nil {
		st.BestAsk = &LevelView{Price: lvl.Price, Amount: lvl.TotalAmount}
	}
	return st
}

// Orders walks all resting orders: bids best-first then asks best-first,
// FIFO within a level. The slice order is the book's canonical snapshot
// order, so restoring it reproduces identical queue positions.
func (b *OrderBook) Orders() []*dex.LimitOrder {
	orders := make([]*dex.LimitOrder, 0, len(b.byID))
	walk := func(lvl *PriceLevel) bool {
		for bo := lvl.head; bo != nil; bo = bo.next {
			orders = append(orders, bo.lo)
		}
		return true
	}
	b.bids.ForEachDescending(walk)
	b.asks.ForEachAscending(walk)
	return orders
}

// Restore rebuilds the book from snapshot state. Orders must be resting
// (non-terminal) and are enqueued in the given sequence order; the arrival
// sequencer resumes past the highest restored sequence.
func (b *OrderBook) Restore(orders []*dex.LimitOrder, lastTrade *dex.Trade) {
	b.bids.Clear()
	b.asks.Clear()
	b.byID = make(map[dex.OrderID]*bookOrder, len(orders))
	var maxSeq uint64
	for _, lo := range orders {
		b.rest(lo)
		if lo.Seq > maxSeq {
			maxSeq = lo.Seq
		}
	}
	b.seq.Reset(maxSeq)
	b.lastTrade = lastTrade
}

// LastTrade returns the most recent trade, or nil.
func (b *OrderBook) LastTrade() *dex.Trade {
	return b.lastTrade
}

func (b *OrderBook) side(s dex.Side) *rbTree {
	if s == dex.Buy {
		return b.bids
	}
	return b.asks
}

func (b *OrderBook) deleteLevel(s dex.Side, price uint64) {
	b.side(s).DeleteLevel(price)
}

// scaleFee apportions an order's fee to a partial fill:
//
//	fee * qty / amount
//
// computed through big.Int so the product cannot overflow.
func scaleFee(fee, qty, amount uint64) uint64 {
	if amount == 0 {
		return 0
	}
	f := new(big.Int).SetUint64(fee)
	f.Mul(f, new(big.Int).SetUint64(qty))
	f.Div(f, new(big.Int).SetUint64(amount))
	return f.Uint64()
}
