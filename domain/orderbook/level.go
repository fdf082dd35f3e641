package orderbook

import "mako/domain/dex"

// bookOrder links a resting order into its price level's FIFO queue.
type bookOrder struct {
	lo   *dex.LimitOrder
	next *bookOrder
	prev *bookOrder
}

// PriceLevel aggregates the resting orders at one price. Orders queue in
// arrival order; TotalAmount is the sum of their remaining amounts.
type PriceLevel struct {
	Price       uint64
	TotalAmount uint64
	Count       int

	head *bookOrder
	tail *bookOrder
}

func (p *PriceLevel) enqueue(bo *bookOrder) {
	if p.head == nil {
		p.head = bo
		p.tail = bo
	} else {
		p.tail.next = bo
		bo.prev = p.tail
		p.tail = bo
	}
	p.TotalAmount += bo.lo.Remaining()
	p.Count++
}

// unlink removes bo from the queue. bo's remaining amount must already be
// reflected in TotalAmount.
func (p *PriceLevel) unlink(bo *bookOrder) {
	if bo.prev != nil {
		bo.prev.next = bo.next
	} else {
		p.head = bo.next
	}
	if bo.next != nil {
		bo.next.prev = bo.prev
	} else {
		p.tail = bo.prev
	}
	bo.next = nil
	bo.prev = nil
	p.TotalAmount -= bo.lo.Remaining()
	p.Count--
}

// reduce subtracts a partial fill from the level's aggregate without moving
// the order: a partial fill keeps its queue position.
func (p *PriceLevel) reduce(amount uint64) {
	p.TotalAmount -= amount
}
