// Package address tracks per-account order lifecycle and balance
// reservations, decoupled from matching. Each account is served by one
// Actor processing its mailbox sequentially: a command runs to completion,
// including any wait on the balance oracle, before the next one starts.
package address

import (
	"context"
	"fmt"

	"mako/domain/dex"
	"mako/infra/retry"
)

// oracleAttempts bounds balance oracle retries before a command is
// rejected with ErrOracleUnavailable.
const oracleAttempts = 5

const mailboxDepth = 64

// Execution is a lifecycle event delivered from the matching side. Spent
// fields are deltas in the order's spend and fee assets; terminal statuses
// release whatever remains reserved for the order.
type Execution struct {
	OrderID     dex.OrderID
	Status      dex.OrderStatus
	SpentAmount uint64
	SpentFee    uint64
}

// reservation is the collateral still held for one open order.
type reservation struct {
	spendAsset dex.Asset
	spendLeft  uint64
	feeAsset   dex.Asset
	feeLeft    uint64
}

// OrderInfo is one entry of a statuses listing.
type OrderInfo struct {
	OrderID dex.OrderID     `json:"orderId"`
	Status  dex.OrderStatus `json:"status"`
	Pair    dex.AssetPair   `json:"pair"`
	Active  bool            `json:"active"`
}

// Actor owns one address's state. All mutation happens on the actor
// goroutine; other goroutines communicate through the mailbox only.
type Actor struct {
	addr   dex.PublicKey
	oracle dex.BalanceOracle

	reserved map[dex.Asset]uint64
	open     map[dex.OrderID]*reservation
	statuses map[dex.OrderID]dex.OrderStatus
	pairs    map[dex.OrderID]dex.AssetPair

	mailbox chan func(ctx context.Context)
	done    chan struct{}
}

// NewActor creates and starts an actor for addr.
func NewActor(ctx context.Context, addr dex.PublicKey, oracle dex.BalanceOracle) *Actor {
	a := &Actor{
		addr:     addr,
		oracle:   oracle,
		reserved: make(map[dex.Asset]uint64),
		open:     make(map[dex.OrderID]*reservation),
		statuses: make(map[dex.OrderID]dex.OrderStatus),
		pairs:    make(map[dex.OrderID]dex.AssetPair),
		mailbox:  make(chan func(ctx context.Context), mailboxDepth),
		done:     make(chan struct{}),
	}
	go a.run(ctx)
	return a
}

// run drains the mailbox until ctx ends. Commands already admitted run to
// completion; the mailbox is not drained after cancellation.
func (a *Actor) run(ctx context.Context) {
	defer close(a.done)
	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-a.mailbox:
			cmd(ctx)
		}
	}
}

// Wait blocks until the actor goroutine has stopped.
func (a *Actor) Wait() {
	<-a.done
}

// call posts fn to the mailbox and waits for it to run.
func (a *Actor) call(ctx context.Context, fn func(ctx context.Context)) error {
	doneCh := make(chan struct{})
	wrapped := func(ctx context.Context) {
		defer close(doneCh)
		fn(ctx)
	}
	select {
	case a.mailbox <- wrapped:
	case <-ctx.Done():
		return ctx.Err()
	case <-a.done:
		return context.Canceled
	}
	select {
	case <-doneCh:
		return nil
	case <-a.done:
		return context.Canceled
	}
}

// PlaceOrder reserves the order's required collateral against the
// last-known tradable balance and records it Accepted. A reservation that
// would exceed the available balance rejects with ErrInsufficientBalance
// and reserves nothing.
func (a *Actor) PlaceOrder(ctx context.Context, o *dex.Order) error {
	var result error
	err := a.call(ctx, func(ctx context.Context) {
		result = a.placeOrder(ctx, o)
	})
	if err != nil {
		return err
	}
	return result
}

func (a *Actor) placeOrder(ctx context.Context, o *dex.Order) error {
	id := o.ID()
	if _, ok := a.statuses[id]; ok {
		return dex.Validationf("order %s already placed", id)
	}

	// Required collateral per asset: spend plus fee, merged when the fee
	// is paid in the spend asset.
	required := map[dex.Asset]uint64{o.SpendAsset(): o.SpendAmount()}
	required[o.FeeAsset] += o.Fee

	assets := make([]dex.Asset, 0, len(required))
	for asset := range required {
		assets = append(assets, asset)
	}
	balances, err := a.queryOracle(ctx, assets)
	if err != nil {
		return err
	}
	for asset, need := range required {
		avail := balances[asset]
		if held := a.reserved[asset]; held > avail {
			avail = 0
		} else {
			avail -= a.reserved[asset]
		}
		if need > avail {
			return fmt.Errorf("%w: need %d %s, tradable %d",
				dex.ErrInsufficientBalance, need, asset, avail)
		}
	}

	res := &reservation{
		spendAsset: o.SpendAsset(),
		spendLeft:  o.SpendAmount(),
		feeAsset:   o.FeeAsset,
		feeLeft:    o.Fee,
	}
	a.reserved[res.spendAsset] += res.spendLeft
	a.reserved[res.feeAsset] += res.feeLeft
	a.open[id] = res
	a.statuses[id] = dex.StatusAccepted
	a.pairs[id] = o.Pair
	log.Debugf("address %s: reserved %d %s (+%d %s fee) for order %s",
		a.addr, res.spendLeft, res.spendAsset, res.feeLeft, res.feeAsset, id)
	return nil
}

// RestoreOrder re-registers a recovered resting order, reserving its
// remaining collateral at the order's own limit price. The oracle is not
// consulted: the order was already admitted once, and recovery must not
// depend on external availability.
func (a *Actor) RestoreOrder(ctx context.Context, lo *dex.LimitOrder) error {
	return a.call(ctx, func(context.Context) {
		if _, ok := a.open[lo.OrderID]; ok {
			return
		}
		res := &reservation{
			spendAsset: lo.SpendAsset(),
			spendLeft:  remainingSpend(lo),
			feeAsset:   lo.FeeAsset,
			feeLeft:    lo.Fee - min(lo.FilledFee, lo.Fee),
		}
		a.reserved[res.spendAsset] += res.spendLeft
		a.reserved[res.feeAsset] += res.feeLeft
		a.open[lo.OrderID] = res
		a.statuses[lo.OrderID] = lo.Status
		a.pairs[lo.OrderID] = lo.Pair
		log.Debugf("address %s: restored reservation for order %s", a.addr, lo.OrderID)
	})
}

// remainingSpend values the unfilled part of a resting order in its spend
// asset, at the order's limit price.
func remainingSpend(lo *dex.LimitOrder) uint64 {
	if lo.Side == dex.Sell {
		return lo.Remaining()
	}
	return dex.PriceAssetAmount(lo.Price, lo.Remaining())
}

// ApplyExecution applies a lifecycle event. Duplicate terminal events for
// one order id are no-ops: the reservation is released exactly once.
func (a *Actor) ApplyExecution(ctx context.Context, ev Execution) error {
	return a.call(ctx, func(context.Context) {
		a.applyExecution(ev)
	})
}

func (a *Actor) applyExecution(ev Execution) {
	res, openNow := a.open[ev.OrderID]
	if !openNow {
		// Unknown or already terminal; nothing left to release.
		return
	}

	if ev.SpentAmount > 0 || ev.SpentFee > 0 {
		a.release(res.spendAsset, min(ev.SpentAmount, res.spendLeft))
		res.spendLeft -= min(ev.SpentAmount, res.spendLeft)
		a.release(res.feeAsset, min(ev.SpentFee, res.feeLeft))
		res.feeLeft -= min(ev.SpentFee, res.feeLeft)
	}

	a.statuses[ev.OrderID] = ev.Status
	if ev.Status.Terminal() {
		a.release(res.spendAsset, res.spendLeft)
		a.release(res.feeAsset, res.feeLeft)
		delete(a.open, ev.OrderID)
		log.Debugf("address %s: order %s %s, reservation released",
			a.addr, ev.OrderID, ev.Status)
	}
}

func (a *Actor) release(asset dex.Asset, amount uint64) {
	if amount == 0 {
		return
	}
	if held := a.reserved[asset]; held <= amount {
		delete(a.reserved, asset)
	} else {
		a.reserved[asset] = held - amount
	}
}

// TradableBalance returns real balance minus current reservations for the
// given assets, recomputed on demand.
func (a *Actor) TradableBalance(ctx context.Context, assets []dex.Asset) (map[dex.Asset]uint64, error) {
	var out map[dex.Asset]uint64
	var result error
	err := a.call(ctx, func(ctx context.Context) {
		balances, qerr := a.queryOracle(ctx, assets)
		if qerr != nil {
			result = qerr
			return
		}
		out = make(map[dex.Asset]uint64, len(assets))
		for _, asset := range assets {
			avail := balances[asset]
			if held := a.reserved[asset]; held >= avail {
				avail = 0
			} else {
				avail -= held
			}
			out[asset] = avail
		}
	})
	if err != nil {
		return nil, err
	}
	return out, result
}

// Reserved returns the reservation currently held in asset.
func (a *Actor) Reserved(ctx context.Context, asset dex.Asset) (uint64, error) {
	var out uint64
	err := a.call(ctx, func(context.Context) {
		out = a.reserved[asset]
	})
	return out, err
}

// OrderStatus returns the recorded status for id, StatusNotFound for
// unknown ids.
func (a *Actor) OrderStatus(ctx context.Context, id dex.OrderID) (dex.OrderStatus, error) {
	st := dex.StatusNotFound
	err := a.call(ctx, func(context.Context) {
		if s, ok := a.statuses[id]; ok {
			st = s
		}
	})
	return st, err
}

// Orders lists the address's known orders, optionally filtered by pair
// and/or restricted to active (non-terminal) ones.
func (a *Actor) Orders(ctx context.Context, pair *dex.AssetPair, activeOnly bool) ([]OrderInfo, error) {
	var out []OrderInfo
	err := a.call(ctx, func(context.Context) {
		for id, st := range a.statuses {
			p := a.pairs[id]
			if pair != nil && p.Key() != pair.Key() {
				continue
			}
			_, active := a.open[id]
			if activeOnly && !active {
				continue
			}
			out = append(out, OrderInfo{OrderID: id, Status: st, Pair: p, Active: active})
		}
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ActiveOrders returns the ids of open orders matching pair (all pairs when
// nil), grouped by pair key. Used by batch cancellation.
func (a *Actor) ActiveOrders(ctx context.Context, pair *dex.AssetPair) (map[string][]dex.OrderID, error) {
	out := make(map[string][]dex.OrderID)
	err := a.call(ctx, func(context.Context) {
		for id := range a.open {
			p := a.pairs[id]
			if pair != nil && p.Key() != pair.Key() {
				continue
			}
			out[p.Key()] = append(out[p.Key()], id)
		}
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// queryOracle fetches balances with bounded retries. Exhausting the budget
// surfaces ErrOracleUnavailable; the command is rejected, never crashed.
func (a *Actor) queryOracle(ctx context.Context, assets []dex.Asset) (map[dex.Asset]uint64, error) {
	var balances map[dex.Asset]uint64
	err := retry.Do(ctx, oracleAttempts, func() error {
		var qerr error
		balances, qerr = a.oracle.Balances(ctx, a.addr, assets)
		if qerr != nil {
			log.Warnf("address %s: balance query failed: %v", a.addr, qerr)
		}
		return qerr
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", dex.ErrOracleUnavailable, err)
	}
	return balances, nil
}
