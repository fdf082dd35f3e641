package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"mako/domain/address"
	"mako/domain/dex"
	"mako/domain/orderbook"
	"mako/infra/storage"
	"mako/snapshot"
)

// Config wires an Orchestrator's collaborators.
type Config struct {
	Store    *storage.Store
	Registry *address.Registry
	// Views caches aggregated book reads; optional.
	Views *snapshot.BookViewCache
	// Publisher receives trade and order lifecycle events; optional.
	Publisher EventPublisher
	// Restrictions resolves per-pair order constraints; optional.
	Restrictions func(pair dex.AssetPair) dex.OrderRestrictions
	// Validator authorizes order proofs before any collateral is reserved;
	// optional, nil accepts every proof.
	Validator dex.OrderValidator
	// Resolver answers asset metadata for the read path; optional. When
	// set, book views are refused for assets the resolver does not know.
	Resolver dex.AssetResolver

	// SnapshotEvery persists a pair's recovery point after that many
	// applied commands. SnapshotInterval additionally sweeps all pairs on
	// a timer so quiet books still converge.
	SnapshotEvery    int
	SnapshotInterval time.Duration
}

const (
	defaultSnapshotEvery    = 512
	defaultSnapshotInterval = 30 * time.Second
)

// Orchestrator consumes the ordered command log and fans commands out to
// per-pair workers. Each worker serializes all access to its book; the
// orchestrator itself holds no matching state.
type Orchestrator struct {
	cfg Config

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.RWMutex
	workers map[string]*pairWorker

	resumeFrom int64
	haveResume bool
}

// New builds an orchestrator and restores every persisted pair from its
// recovery point. A corrupt recovery point fails the whole startup: serving
// from silently wrong book state is worse than not serving.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Store == nil || cfg.Registry == nil {
		return nil, errors.New("service: store and registry are required")
	}
	if cfg.Restrictions == nil {
		cfg.Restrictions = func(dex.AssetPair) dex.OrderRestrictions {
			return dex.OrderRestrictions{}
		}
	}
	if cfg.SnapshotEvery <= 0 {
		cfg.SnapshotEvery = defaultSnapshotEvery
	}
	if cfg.SnapshotInterval <= 0 {
		cfg.SnapshotInterval = defaultSnapshotInterval
	}

	ctx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		cfg:     cfg,
		ctx:     ctx,
		cancel:  cancel,
		workers: make(map[string]*pairWorker),
	}
	if err := o.recover(); err != nil {
		cancel()
		o.stopWorkers()
		return nil, err
	}
	return o, nil
}

// ResumeOffset returns the log offset to resume consumption from: one past
// the lowest offset any recovered pair has applied. ok is false when
// nothing was recovered and the log must be read from its beginning.
func (o *Orchestrator) ResumeOffset() (offset int64, ok bool) {
	return o.resumeFrom, o.haveResume
}

// Run consumes src until ctx ends or the source fails. Malformed records
// are logged and skipped; the log position still advances past them.
func (o *Orchestrator) Run(ctx context.Context, src CommandSource) error {
	go o.snapshotLoop(ctx)
	for {
		rec, err := src.Next(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}
		cmd, err := DecodeCommand(rec.Data)
		if err != nil {
			commandsRejected.Inc()
			log.Warnf("discarding log record at offset %d: %v", rec.Offset, err)
			continue
		}
		o.dispatch(rec.Offset, cmd)
	}
}

// dispatch routes a command to the worker(s) owning its pair. A cancelAll
// without a pair fans out to every live book.
func (o *Orchestrator) dispatch(offset int64, cmd *Command) {
	switch cmd.Kind {
	case KindPlace:
		w := o.worker(cmd.Order.Pair)
		w.post(func() { w.process(offset, cmd) })
	case KindCancel:
		w := o.worker(*cmd.Pair)
		w.post(func() { w.process(offset, cmd) })
	case KindCancelAll:
		if cmd.Pair != nil {
			w := o.worker(*cmd.Pair)
			w.post(func() { w.process(offset, cmd) })
			return
		}
		for _, w := range o.snapshotWorkers() {
			w := w
			w.post(func() { w.process(offset, cmd) })
		}
	}
}

// worker returns the pair's worker, starting one on first reference. The
// worker's identity is always the canonical orientation, whatever the
// command carried.
func (o *Orchestrator) worker(pair dex.AssetPair) *pairWorker {
	pair = pair.Normalized()
	key := pair.Key()
	o.mu.RLock()
	w, ok := o.workers[key]
	o.mu.RUnlock()
	if ok {
		return w
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if w, ok = o.workers[key]; ok {
		return w
	}
	w = newPairWorker(o, pair, -1)
	o.workers[key] = w
	log.Infof("opened order book %s", pair)
	return w
}

func (o *Orchestrator) lookup(pairKey string) (*pairWorker, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	w, ok := o.workers[pairKey]
	return w, ok
}

func (o *Orchestrator) snapshotWorkers() []*pairWorker {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]*pairWorker, 0, len(o.workers))
	for _, w := range o.workers {
		out = append(out, w)
	}
	return out
}

// snapshotLoop periodically checkpoints every pair so books with little
// traffic still bound their replay tail.
func (o *Orchestrator) snapshotLoop(ctx context.Context) {
	ticker := time.NewTicker(o.cfg.SnapshotInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-o.ctx.Done():
			return
		case <-ticker.C:
			for _, w := range o.snapshotWorkers() {
				w := w
				w.post(func() { w.checkpoint() })
			}
		}
	}
}

// Close stops every worker and persists a final recovery point per pair.
// The command source must already be stopped; each worker drains the
// commands left in its mailbox before halting, so the final recovery point
// covers everything the dispatcher handed over.
func (o *Orchestrator) Close() {
	// Drained commands still reach address actors, so the orchestrator
	// context stays live until every worker has stopped.
	o.stopWorkers()
	o.cancel()
	for _, w := range o.snapshotWorkers() {
		// The worker goroutine is gone, so touching its book is safe.
		w.checkpoint()
	}
}

func (o *Orchestrator) stopWorkers() {
	for _, w := range o.snapshotWorkers() {
		w.stop()
	}
}

// -------------------- Queries --------------------

// MarketInfo summarizes one live order book.
type MarketInfo struct {
	Pair          dex.AssetPair          `json:"pair"`
	RestingOrders int                    `json:"restingOrders"`
	Status        orderbook.MarketStatus `json:"status"`
}

// Markets lists every live book, sorted by pair key.
func (o *Orchestrator) Markets(ctx context.Context) ([]MarketInfo, error) {
	workers := o.snapshotWorkers()
	out := make([]MarketInfo, 0, len(workers))
	for _, w := range workers {
		var info MarketInfo
		err := w.query(ctx, func() {
			info = MarketInfo{
				Pair:          w.pair,
				RestingOrders: w.book.Len(),
				Status:        w.book.Status(),
			}
		})
		if err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Pair.Key() < out[j].Pair.Key()
	})
	return out, nil
}

// OrderBook returns the aggregated view of a pair's book, served from the
// view cache when fresh. A pair naming an unknown asset is an error; a
// known pair with no live book is an empty book.
func (o *Orchestrator) OrderBook(ctx context.Context, pair dex.AssetPair) (orderbook.Aggregated, error) {
	if o.cfg.Resolver != nil {
		for _, a := range []dex.Asset{pair.AmountAsset, pair.PriceAsset} {
			if _, err := o.cfg.Resolver.Describe(ctx, a); err != nil {
				return orderbook.Aggregated{}, err
			}
		}
	}
	w, ok := o.lookup(pair.Key())
	if !ok {
		return orderbook.Aggregated{}, nil
	}
	load := func() (orderbook.Aggregated, error) {
		var agg orderbook.Aggregated
		err := w.query(ctx, func() { agg = w.book.AggregatedSnapshot() })
		return agg, err
	}
	if o.cfg.Views != nil {
		return o.cfg.Views.Get(pair.Key(), load)
	}
	return load()
}

// MarketStatus returns the best-of-book summary for a pair.
func (o *Orchestrator) MarketStatus(ctx context.Context, pair dex.AssetPair) (orderbook.MarketStatus, error) {
	w, ok := o.lookup(pair.Key())
	if !ok {
		return orderbook.MarketStatus{}, nil
	}
	var st orderbook.MarketStatus
	err := w.query(ctx, func() { st = w.book.Status() })
	return st, err
}

// AppliedOffsets reports each pair's applied log offset. Used by tests and
// operational introspection.
func (o *Orchestrator) AppliedOffsets(ctx context.Context) (map[string]int64, error) {
	out := make(map[string]int64)
	for _, w := range o.snapshotWorkers() {
		var applied int64
		if err := w.query(ctx, func() { applied = w.applied }); err != nil {
			return nil, err
		}
		out[w.pair.Key()] = applied
	}
	return out, nil
}

// SnapshotOffsets reports, per pair, the offset of the last persisted
// recovery point. Unlike AppliedOffsets this is the durable position: a
// restart replays the log from just past the lowest of these. Pairs with
// no recovery point yet are omitted.
func (o *Orchestrator) SnapshotOffsets(ctx context.Context) (map[string]int64, error) {
	out := make(map[string]int64)
	for _, w := range o.snapshotWorkers() {
		var checkpointed int64
		if err := w.query(ctx, func() { checkpointed = w.checkpointed }); err != nil {
			return nil, err
		}
		if checkpointed >= 0 {
			out[w.pair.Key()] = checkpointed
		}
	}
	return out, nil
}
