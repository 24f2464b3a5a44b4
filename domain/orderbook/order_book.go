package orderbook

import (
	"matchcore/infra/memory"
	"matchcore/infra/sequence"
)

// OrderBook is single-writer. It holds both sides of one instrument and
// the id index; every resting order is reachable from exactly one level
// queue and one index entry.
type OrderBook struct {
	symbol string

	bids *levelTree
	asks *levelTree

	orders map[uint64]*Order
	prices map[uint64]int64

	clock   *sequence.Sequencer
	pool    *memory.Pool[Order]
	onTrade func(Trade)

	clamps     uint64
	duplicates uint64
}

type Option func(*OrderBook)

// WithClock shares a time-priority clock with the caller.
func WithClock(s *sequence.Sequencer) Option {
	return func(b *OrderBook) { b.clock = s }
}

// WithTradeHandler registers fn to be called synchronously for every fill.
func WithTradeHandler(fn func(Trade)) Option {
	return func(b *OrderBook) { b.onTrade = fn }
}

func WithSymbol(symbol string) Option {
	return func(b *OrderBook) { b.symbol = symbol }
}

// NewOrderBook creates an empty book.
func NewOrderBook(opts ...Option) *OrderBook {
	b := &OrderBook{
		orders: make(map[uint64]*Order),
		prices: make(map[uint64]int64),
		pool:   memory.NewPool(func() *Order { return &Order{} }),
	}
	b.bids = newLevelTree(true, &b.clamps)
	b.asks = newLevelTree(false, &b.clamps)
	for _, opt := range opts {
		opt(b)
	}
	if b.clock == nil {
		b.clock = sequence.New(0)
	}
	return b
}

func (b *OrderBook) Symbol() string { return b.symbol }

// AddOrder rests a limit order or sweeps the opposite side with a market
// order, then runs the match pass. A zero timestamp is stamped from the
// book's clock. Market remainders are discarded, never rested.
func (b *OrderBook) AddOrder(o Order) {
	if o.Timestamp == 0 {
		o.Timestamp = b.clock.Next()
	} else {
		b.clock.Observe(o.Timestamp)
	}
	if o.Symbol == "" {
		o.Symbol = b.symbol
	}

	switch o.Type {
	case Market:
		b.sweep(&o)
	default:
		b.rest(o)
	}
	b.MatchOrders()
}

// ModifyOrder replaces the quantity of a resting order. The replacement
// gets a fresh timestamp and joins the tail of its level. A zero quantity
// cancels. Reports whether id was resting.
func (b *OrderBook) ModifyOrder(id, qty uint64) bool {
	if qty == 0 {
		return b.CancelOrder(id)
	}
	old, ok := b.orders[id]
	if !ok {
		return false
	}
	next := Order{
		ID:     old.ID,
		Side:   old.Side,
		Type:   old.Type,
		Price:  old.Price,
		Symbol: old.Symbol,
		Qty:    qty,
	}
	b.CancelOrder(id)
	next.Timestamp = b.clock.Next()
	b.AddOrder(next)
	return true
}

// CancelOrder removes a resting order. Unknown ids are ignored; the result
// reports whether anything was removed.
func (b *OrderBook) CancelOrder(id uint64) bool {
	o, ok := b.orders[id]
	if !ok {
		return false
	}
	price, ok := b.prices[id]
	if !ok {
		assertf(false, "order %d indexed without a price", id)
		delete(b.orders, id)
		return false
	}

	tree := b.side(o.Side)
	if lvl := tree.find(price); lvl != nil {
		if removed := lvl.Remove(id); removed != o {
			assertf(false, "order %d missing from level %d", id, price)
		}
		if lvl.Empty() {
			tree.remove(price)
		}
	}
	b.retire(o)
	return true
}

// MatchOrders trades the head bid against the head ask while the book is
// crossed. Every fill prints at the ask level's price.
func (b *OrderBook) MatchOrders() {
	for {
		bid, ask := b.bids.best(), b.asks.best()
		if bid == nil || ask == nil || bid.Price < ask.Price {
			return
		}

		buy, sell := bid.Head(), ask.Head()
		qty := min(buy.Qty, sell.Qty)
		aggressor := Buy
		if sell.Timestamp > buy.Timestamp {
			aggressor = Sell
		}
		b.emit(Trade{BuyID: buy.ID, SellID: sell.ID, Price: ask.Price, Qty: qty, Aggressor: aggressor})

		if _, done := bid.Fill(qty); done {
			b.retire(bid.PopHead())
		}
		if _, done := ask.Fill(qty); done {
			b.retire(ask.PopHead())
		}
		if bid.Empty() {
			b.bids.remove(bid.Price)
		}
		if ask.Empty() {
			b.asks.remove(ask.Price)
		}
	}
}

// BestBid returns the highest bid price, or 0 when there are no bids.
func (b *OrderBook) BestBid() int64 {
	if lvl := b.bids.best(); lvl != nil {
		return lvl.Price
	}
	return 0
}

// BestAsk returns the lowest ask price, or 0 when there are no asks.
func (b *OrderBook) BestAsk() int64 {
	if lvl := b.asks.best(); lvl != nil {
		return lvl.Price
	}
	return 0
}

// Depth returns a copy of the level at price from whichever side holds
// it, or an empty Depth.
func (b *OrderBook) Depth(price int64) Depth {
	if lvl := b.bids.find(price); lvl != nil {
		return lvl.depth()
	}
	if lvl := b.asks.find(price); lvl != nil {
		return lvl.depth()
	}
	return Depth{Price: price}
}

// Level summarises one price level.
type Level struct {
	Price    int64
	TotalQty uint64
	Orders   int
}

func summary(l *PriceLevel) Level {
	return Level{Price: l.Price, TotalQty: l.TotalQty, Orders: l.OrderCount}
}

// Top returns the best level on each side; a zero Level means empty.
func (b *OrderBook) Top() (bid, ask Level) {
	if lvl := b.bids.best(); lvl != nil {
		bid = summary(lvl)
	}
	if lvl := b.asks.best(); lvl != nil {
		ask = summary(lvl)
	}
	return bid, ask
}

// Levels returns up to n levels of one side, best price first. n <= 0
// returns every level.
func (b *OrderBook) Levels(s Side, n int) []Level {
	tree := b.side(s)
	out := make([]Level, 0, tree.Len())
	tree.walk(func(lvl *PriceLevel) bool {
		out = append(out, summary(lvl))
		return n <= 0 || len(out) < n
	})
	return out
}

// Order returns a copy of a resting order.
func (b *OrderBook) Order(id uint64) (Order, bool) {
	o, ok := b.orders[id]
	if !ok {
		return Order{}, false
	}
	c := *o
	c.next, c.prev = nil, nil
	return c, true
}

// Len is the number of resting orders.
func (b *OrderBook) Len() int { return len(b.orders) }

// Anomalies counts clamped quantity underflows and rejected duplicate ids.
// Both are zero in a correctly driven book.
func (b *OrderBook) Anomalies() (clamps, duplicates uint64) {
	return b.clamps, b.duplicates
}

func (b *OrderBook) side(s Side) *levelTree {
	if s == Buy {
		return b.bids
	}
	return b.asks
}

// levelFor returns the level for price on side s, creating it if needed.
func (b *OrderBook) levelFor(s Side, price int64) *PriceLevel {
	return b.side(s).upsert(price)
}

func (b *OrderBook) rest(o Order) {
	if o.Qty == 0 || o.Price <= 0 {
		return
	}
	if _, live := b.orders[o.ID]; live {
		b.duplicates++
		assertf(false, "order %d is already resting", o.ID)
		return
	}

	n := b.pool.Get()
	*n = o
	n.next, n.prev = nil, nil
	b.levelFor(n.Side, n.Price).Enqueue(n)
	b.orders[n.ID] = n
	b.prices[n.ID] = n.Price
}

// sweep fills a market order against the opposite side, best price out,
// FIFO inside each level, until it is exhausted or the side is empty.
func (b *OrderBook) sweep(o *Order) {
	opp := b.side(o.Side.Opposite())
	for o.Qty > 0 {
		lvl := opp.best()
		if lvl == nil {
			return
		}
		for o.Qty > 0 && !lvl.Empty() {
			head := lvl.Head()
			qty := min(o.Qty, head.Qty)
			t := Trade{Price: lvl.Price, Qty: qty, Aggressor: o.Side}
			if o.Side == Buy {
				t.BuyID, t.SellID = o.ID, head.ID
			} else {
				t.BuyID, t.SellID = head.ID, o.ID
			}
			o.Qty -= qty
			if qty > 0 {
				b.emit(t)
			}
			if _, done := lvl.Fill(qty); done {
				b.retire(lvl.PopHead())
			}
		}
		if lvl.Empty() {
			opp.remove(lvl.Price)
		}
	}
}

func (b *OrderBook) emit(t Trade) {
	if b.onTrade != nil {
		b.onTrade(t)
	}
}

// retire drops o from the index and recycles it. o must already be
// unlinked from its level.
func (b *OrderBook) retire(o *Order) {
	if o == nil {
		return
	}
	delete(b.orders, o.ID)
	delete(b.prices, o.ID)
	b.pool.Put(o)
}
