package orderbook

type Side uint8
type OrderType uint8

const (
	Buy Side = iota
	Sell
)

const (
	Limit OrderType = iota
	Market
)

func (s Side) String() string {
	if s == Sell {
		return "sell"
	}
	return "buy"
}

// Opposite returns the side an order of s trades against.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

func (t OrderType) String() string {
	if t == Market {
		return "market"
	}
	return "limit"
}

// Order is a resting or incoming order. Price is in fixed-point ticks and
// is ignored for Market orders. Qty is the remaining quantity.
type Order struct {
	ID        uint64
	Price     int64
	Qty       uint64
	Timestamp uint64
	Side      Side
	Type      OrderType
	Symbol    string

	next *Order
	prev *Order
}

// Reset clears the order so it can go back to the pool.
func (o *Order) Reset() { *o = Order{} }

// Next walks the level queue; read-only.
func (o *Order) Next() *Order { return o.next }

// Trade is a single fill between a buy and a sell order.
type Trade struct {
	BuyID     uint64
	SellID    uint64
	Price     int64
	Qty       uint64
	Aggressor Side
}
