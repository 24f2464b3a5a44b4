// Package event defines the messages the matching engine consumes.
//
// Event is sealed: only the types in this package satisfy it, so a type
// switch over the cases below is exhaustive.
package event

import "matchcore/domain/orderbook"

type Event interface {
	isEvent()
}

// NewOrder places a limit order. Price is in instrument units and is
// scaled to ticks by the engine.
type NewOrder struct {
	ID    uint64
	Side  orderbook.Side
	Price float64
	Qty   uint64
}

// MarketOrder sweeps the opposite side; any unfilled remainder is dropped.
type MarketOrder struct {
	ID   uint64
	Side orderbook.Side
	Qty  uint64
}

type CancelOrder struct {
	ID uint64
}

// ModifyOrder replaces the quantity of a resting order. The order loses
// its queue position. Qty 0 cancels.
type ModifyOrder struct {
	ID  uint64
	Qty uint64
}

// Shutdown stops the engine once every event queued before it has been
// processed.
type Shutdown struct{}

func (NewOrder) isEvent()    {}
func (MarketOrder) isEvent() {}
func (CancelOrder) isEvent() {}
func (ModifyOrder) isEvent() {}
func (Shutdown) isEvent()    {}

// Name is a short label for logs.
func Name(ev Event) string {
	switch ev.(type) {
	case NewOrder:
		return "new"
	case MarketOrder:
		return "market"
	case CancelOrder:
		return "cancel"
	case ModifyOrder:
		return "modify"
	case Shutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}
