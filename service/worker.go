package service

import (
	"context"
	"encoding/json"

	"mako/domain/address"
	"mako/domain/dex"
	"mako/domain/orderbook"
	"mako/snapshot"
)

const workerMailboxDepth = 128

// pairWorker owns one pair's order book. It is the only goroutine that
// touches the book; commands and queries alike go through its mailbox.
type pairWorker struct {
	o    *Orchestrator
	pair dex.AssetPair
	book *orderbook.OrderBook

	// applied is the highest log offset whose effects are in the book.
	// Commands at or below it are duplicates of replayed history.
	applied int64
	// checkpointed is the offset of the last persisted recovery point, or
	// -1 when none has been written. It trails applied: a crash replays
	// the gap between the two.
	checkpointed int64
	// pending counts commands applied since the last persisted recovery
	// point.
	pending int

	mailbox chan func()
	quit    chan struct{}
	done    chan struct{}
}

func newPairWorker(o *Orchestrator, pair dex.AssetPair, applied int64) *pairWorker {
	w := &pairWorker{
		o:            o,
		pair:         pair,
		book:         orderbook.New(pair, o.cfg.Restrictions(pair)),
		applied:      applied,
		checkpointed: applied,
		mailbox:      make(chan func(), workerMailboxDepth),
		quit:         make(chan struct{}),
		done:         make(chan struct{}),
	}
	go w.run()
	return w
}

func (w *pairWorker) run() {
	defer close(w.done)
	for {
		// Admitted mailbox entries run even once quit is closed; quit only
		// wins against an empty mailbox. Without the priority, stop could
		// drop commands the dispatcher already handed over.
		select {
		case fn := <-w.mailbox:
			fn()
			continue
		default:
		}
		select {
		case fn := <-w.mailbox:
			fn()
		case <-w.quit:
			return
		}
	}
}

// stop halts the worker after it drains everything already in its mailbox.
// The dispatcher is already stopped by the time workers are, so the mailbox
// only shrinks.
func (w *pairWorker) stop() {
	close(w.quit)
	<-w.done
}

// post enqueues fn, blocking if the mailbox is full. A full mailbox applies
// backpressure all the way to the log consumer.
func (w *pairWorker) post(fn func()) bool {
	select {
	case w.mailbox <- fn:
		return true
	case <-w.quit:
		return false
	}
}

// query runs fn on the worker goroutine and waits for it.
func (w *pairWorker) query(ctx context.Context, fn func()) error {
	ran := make(chan struct{})
	wrapped := func() {
		defer close(ran)
		fn()
	}
	select {
	case w.mailbox <- wrapped:
	case <-ctx.Done():
		return ctx.Err()
	case <-w.quit:
		return context.Canceled
	}
	select {
	case <-ran:
		return nil
	case <-w.done:
		return context.Canceled
	}
}

// process applies one log command to the book. Offsets at or below the
// applied watermark were already absorbed into a recovery point and are
// skipped, which makes crash replay at-most-once per pair.
func (w *pairWorker) process(offset int64, cmd *Command) {
	if offset <= w.applied {
		commandsSkipped.Inc()
		log.Debugf("book %s: skipping replayed offset %d (applied %d)",
			w.pair, offset, w.applied)
		return
	}

	switch cmd.Kind {
	case KindPlace:
		w.place(offset, cmd.Timestamp, cmd.Order)
	case KindCancel:
		w.cancel(offset, *cmd.OrderID)
	case KindCancelAll:
		w.cancelAll(offset, cmd.Sender)
	}

	w.applied = offset
	w.pending++
	commandsApplied.WithLabelValues(string(cmd.Kind)).Inc()
	if w.o.cfg.Views != nil {
		w.o.cfg.Views.Invalidate(w.pair.Key())
	}
	if w.pending >= w.o.cfg.SnapshotEvery {
		w.checkpoint()
	}
}

// place runs the admission pipeline: book validation, proof verification,
// collateral reservation on the sender's actor, then matching. The
// reservation sits between validation and matching so a matched order is
// always covered.
func (w *pairWorker) place(offset, ts int64, o *dex.Order) {
	id := o.ID()
	if err := w.book.Validate(o, ts); err != nil {
		w.reject(offset, id, err)
		return
	}
	if v := w.o.cfg.Validator; v != nil {
		if err := v.Verify(o); err != nil {
			w.reject(offset, id, err)
			return
		}
	}
	actor := w.o.cfg.Registry.Actor(o.Sender)
	if err := actor.PlaceOrder(w.o.ctx, o); err != nil {
		w.reject(offset, id, err)
		return
	}
	res, err := w.book.Submit(*o, ts)
	if err != nil {
		// Validate passed, so this is unreachable in practice; release
		// the reservation rather than leak it.
		_ = actor.ApplyExecution(w.o.ctx, address.Execution{
			OrderID: id, Status: dex.StatusCancelled,
		})
		w.reject(offset, id, err)
		return
	}
	w.settle(offset, res)
}

// settle pushes a submit result out: execution events to the affected
// actors, order states to the store and trades to the event stream.
func (w *pairWorker) settle(offset int64, res *orderbook.SubmitResult) {
	taker := res.Taker
	var takerSpent, takerFee uint64
	for i := range res.Fills {
		f := &res.Fills[i]
		takerSpent += spendDelta(taker.Side, f.Trade.Price, f.Trade.Amount)
		takerFee += f.TakerFee

		w.applyExecution(address.Execution{
			OrderID:     f.Maker.OrderID,
			Status:      f.Maker.Status,
			SpentAmount: spendDelta(f.Maker.Side, f.Trade.Price, f.Trade.Amount),
			SpentFee:    f.MakerFee,
		}, f.Maker.Sender)
		w.persist(f.Maker)
		w.publish(Event{Type: "trade", Pair: w.pair.Key(), Offset: offset, Trade: &f.Trade})
		tradesMatched.Inc()
	}

	w.applyExecution(address.Execution{
		OrderID:     taker.OrderID,
		Status:      taker.Status,
		SpentAmount: takerSpent,
		SpentFee:    takerFee,
	}, taker.Sender)
	w.persist(taker)
	w.publishOrder(offset, taker.OrderID, taker.Status)
}

func (w *pairWorker) cancel(offset int64, id dex.OrderID) {
	lo, err := w.book.Cancel(id)
	if err != nil {
		// Cancelling a filled, cancelled or unknown order is a no-op.
		log.Debugf("book %s: cancel %s: %v", w.pair, id, err)
		return
	}
	w.applyExecution(address.Execution{
		OrderID: lo.OrderID, Status: dex.StatusCancelled,
	}, lo.Sender)
	w.persist(lo)
	w.publishOrder(offset, lo.OrderID, dex.StatusCancelled)
}

func (w *pairWorker) cancelAll(offset int64, sender *dex.PublicKey) {
	outcomes := w.book.BatchCancel(func(lo *dex.LimitOrder) bool {
		return sender == nil || lo.Sender == *sender
	})
	for _, out := range outcomes {
		if out.Err != nil || out.Order == nil {
			continue
		}
		w.applyExecution(address.Execution{
			OrderID: out.Order.OrderID, Status: dex.StatusCancelled,
		}, out.Order.Sender)
		w.persist(out.Order)
		w.publishOrder(offset, out.Order.OrderID, dex.StatusCancelled)
	}
}

// checkpoint persists the pair's recovery point: book state and applied
// offset in one value, so a crash can never separate them.
func (w *pairWorker) checkpoint() {
	if w.applied < 0 || w.pending == 0 {
		return
	}
	snap := &snapshot.Snapshot{
		Pair:      w.pair,
		Offset:    w.applied,
		Orders:    w.book.Orders(),
		LastTrade: w.book.LastTrade(),
	}
	if err := w.o.cfg.Store.PutSnapshot(w.pair.Key(), snapshot.Encode(snap)); err != nil {
		log.Errorf("book %s: persisting recovery point at offset %d: %v",
			w.pair, w.applied, err)
		return
	}
	w.checkpointed = w.applied
	w.pending = 0
	snapshotsWritten.Inc()
	log.Debugf("book %s: recovery point at offset %d (%d resting)",
		w.pair, w.applied, w.book.Len())
}

func (w *pairWorker) applyExecution(ev address.Execution, sender dex.PublicKey) {
	err := w.o.cfg.Registry.Actor(sender).ApplyExecution(w.o.ctx, ev)
	if err != nil {
		log.Errorf("book %s: delivering execution for order %s: %v",
			w.pair, ev.OrderID, err)
	}
}

func (w *pairWorker) persist(lo *dex.LimitOrder) {
	data, err := json.Marshal(lo)
	if err != nil {
		log.Errorf("book %s: encoding order %s: %v", w.pair, lo.OrderID, err)
		return
	}
	if err := w.o.cfg.Store.PutOrder(lo.OrderID, data); err != nil {
		log.Errorf("book %s: storing order %s: %v", w.pair, lo.OrderID, err)
	}
}

func (w *pairWorker) reject(offset int64, id dex.OrderID, err error) {
	commandsRejected.Inc()
	log.Infof("book %s: order %s rejected: %v", w.pair, id, err)
	w.publish(Event{
		Type: "rejected", Pair: w.pair.Key(), Offset: offset,
		OrderID: &id, Reason: err.Error(),
	})
}

func (w *pairWorker) publishOrder(offset int64, id dex.OrderID, st dex.OrderStatus) {
	w.publish(Event{
		Type: "order", Pair: w.pair.Key(), Offset: offset,
		OrderID: &id, Status: &st,
	})
}

func (w *pairWorker) publish(ev Event) {
	if w.o.cfg.Publisher == nil {
		return
	}
	data, err := json.Marshal(&ev)
	if err != nil {
		log.Errorf("book %s: encoding %s event: %v", w.pair, ev.Type, err)
		return
	}
	w.o.cfg.Publisher.Enqueue(ev.Pair, data)
}

// spendDelta values a fill in the given side's spend asset: sellers part
// with the traded amount, buyers with its cost at the trade price.
func spendDelta(side dex.Side, price, qty uint64) uint64 {
	if side == dex.Sell {
		return qty
	}
	return dex.PriceAssetAmount(price, qty)
}
