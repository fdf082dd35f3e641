package service

import (
	"fmt"

	"mako/snapshot"
)

// recover rebuilds every persisted pair from its recovery point and
// re-registers the resting orders' reservations with their senders'
// actors. Any decode failure aborts startup with ErrRecovery wrapped in.
func (o *Orchestrator) recover() error {
	first := true
	return o.cfg.Store.EachSnapshot(func(pairKey string, data []byte) error {
		snap, err := snapshot.Decode(data)
		if err != nil {
			return fmt.Errorf("recovery point for %s: %w", pairKey, err)
		}

		w := newPairWorker(o, snap.Pair, snap.Offset)
		w.book.Restore(snap.Orders, snap.LastTrade)
		o.workers[snap.Pair.Key()] = w

		for _, lo := range snap.Orders {
			actor := o.cfg.Registry.Actor(lo.Sender)
			if err := actor.RestoreOrder(o.ctx, lo); err != nil {
				return fmt.Errorf("restoring reservation for order %s: %w", lo.OrderID, err)
			}
		}

		// Resume from the lowest applied offset across pairs; workers
		// ahead of it skip the overlap themselves.
		if first || snap.Offset+1 < o.resumeFrom {
			o.resumeFrom = snap.Offset + 1
		}
		first = false
		o.haveResume = true

		log.Infof("recovered book %s at offset %d (%d resting orders)",
			snap.Pair, snap.Offset, len(snap.Orders))
		return nil
	})
}
