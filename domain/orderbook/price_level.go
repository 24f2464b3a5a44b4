package orderbook

// PriceLevel is a FIFO queue of resting orders at a single price.
// TotalQty always equals the sum of Qty over the queued orders.
type PriceLevel struct {
	Price      int64
	TotalQty   uint64
	OrderCount int

	// clamps, when set, counts subtractions that would have gone below zero.
	clamps *uint64

	head *Order
	tail *Order
}

// Enqueue appends o to the tail of the queue.
func (p *PriceLevel) Enqueue(o *Order) {
	o.next = nil
	o.prev = p.tail
	if p.head == nil {
		p.head = o
	} else {
		p.tail.next = o
	}
	p.tail = o
	p.TotalQty += o.Qty
	p.OrderCount++
}

// PopHead removes and returns the head order, or nil when empty.
func (p *PriceLevel) PopHead() *Order {
	o := p.head
	if o == nil {
		return nil
	}
	p.unlink(o)
	return o
}

// Remove unlinks the order with the given id. The scan is linear in the
// number of orders resting at this price.
func (p *PriceLevel) Remove(id uint64) *Order {
	for o := p.head; o != nil; o = o.next {
		if o.ID == id {
			p.unlink(o)
			return o
		}
	}
	return nil
}

// Fill reduces the head order and the level total by qty and reports
// whether the head is now exhausted.
func (p *PriceLevel) Fill(qty uint64) (*Order, bool) {
	o := p.head
	o.Qty = p.sub(o.Qty, qty)
	p.TotalQty = p.sub(p.TotalQty, qty)
	return o, o.Qty == 0
}

func (p *PriceLevel) Head() *Order { return p.head }

func (p *PriceLevel) Empty() bool { return p.head == nil }

func (p *PriceLevel) unlink(o *Order) {
	if o.prev != nil {
		o.prev.next = o.next
	} else {
		p.head = o.next
	}
	if o.next != nil {
		o.next.prev = o.prev
	} else {
		p.tail = o.prev
	}
	o.next = nil
	o.prev = nil
	p.TotalQty = p.sub(p.TotalQty, o.Qty)
	p.OrderCount--
}

func (p *PriceLevel) sub(v, d uint64) uint64 {
	if d > v {
		if p.clamps != nil {
			*p.clamps++
		}
		assertf(false, "level %d: quantity underflow %d - %d", p.Price, v, d)
		return 0
	}
	return v - d
}

// Depth is a detached copy of a price level.
type Depth struct {
	Price    int64
	TotalQty uint64
	Orders   []Order
}

func (p *PriceLevel) depth() Depth {
	d := Depth{Price: p.Price, TotalQty: p.TotalQty, Orders: make([]Order, 0, p.OrderCount)}
	for o := p.head; o != nil; o = o.next {
		c := *o
		c.next, c.prev = nil, nil
		d.Orders = append(d.Orders, c)
	}
	return d
}
