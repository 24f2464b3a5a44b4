package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"matchcore/domain/event"
	"matchcore/domain/orderbook"
	"matchcore/domain/price"
	"matchcore/engine"
)

// ErrInvalidOrder wraps every validation failure.
var ErrInvalidOrder = errors.New("service: invalid order")

// Queue is where accepted commands go.
type Queue interface {
	Push(ctx context.Context, ev event.Event) error
}

// Book is the read side of a running engine.
type Book interface {
	TopOfBook() engine.TopSnapshot
	Processed() uint64
	State() engine.State
}

/*
OrderService is the ONLY write entry point into the system.

Commands are checked and turned into events; the engine applies them in
the order they are enqueued.
*/
type OrderService struct {
	queue Queue
	book  Book
	scale price.Scale
	log   *zap.Logger
}

// NewOrderService wires all dependencies.
// No globals. No magic.
func NewOrderService(q Queue, book Book, scale price.Scale, log *zap.Logger) *OrderService {
	if log == nil {
		log = zap.NewNop()
	}
	return &OrderService{queue: q, book: book, scale: scale, log: log}
}

//
// ──────────────────────────────────────────────────────────
// Commands
// ──────────────────────────────────────────────────────────
//

// PlaceOrder enqueues a limit order.
func (s *OrderService) PlaceOrder(ctx context.Context, id uint64, side orderbook.Side, px float64, qty uint64) error {
	return s.Push(ctx, event.NewOrder{ID: id, Side: side, Price: px, Qty: qty})
}

// PlaceMarket enqueues a market order. Whatever it cannot fill is dropped.
func (s *OrderService) PlaceMarket(ctx context.Context, id uint64, side orderbook.Side, qty uint64) error {
	return s.Push(ctx, event.MarketOrder{ID: id, Side: side, Qty: qty})
}

func (s *OrderService) CancelOrder(ctx context.Context, id uint64) error {
	return s.Push(ctx, event.CancelOrder{ID: id})
}

// ModifyOrder changes the quantity of a resting order; qty 0 cancels it.
func (s *OrderService) ModifyOrder(ctx context.Context, id, qty uint64) error {
	return s.Push(ctx, event.ModifyOrder{ID: id, Qty: qty})
}

// Push validates ev and enqueues it. Shutdown is reserved for the engine.
func (s *OrderService) Push(ctx context.Context, ev event.Event) error {
	if err := s.Validate(ev); err != nil {
		s.log.Debug("order rejected", zap.String("type", event.Name(ev)), zap.Error(err))
		return err
	}
	if err := s.queue.Push(ctx, ev); err != nil {
		return fmt.Errorf("service: enqueue %s: %w", event.Name(ev), err)
	}
	return nil
}

func (s *OrderService) Validate(ev event.Event) error {
	switch ev := ev.(type) {
	case event.NewOrder:
		if err := checkIDSide(ev.ID, ev.Side); err != nil {
			return err
		}
		if math.IsNaN(ev.Price) || math.IsInf(ev.Price, 0) || ev.Price <= 0 {
			return fmt.Errorf("%w: price %v", ErrInvalidOrder, ev.Price)
		}
		if _, err := s.scale.ToTicks(ev.Price); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidOrder, err)
		}
		if ev.Qty == 0 {
			return fmt.Errorf("%w: zero quantity", ErrInvalidOrder)
		}
	case event.MarketOrder:
		if err := checkIDSide(ev.ID, ev.Side); err != nil {
			return err
		}
		if ev.Qty == 0 {
			return fmt.Errorf("%w: zero quantity", ErrInvalidOrder)
		}
	case event.CancelOrder:
		if ev.ID == 0 {
			return fmt.Errorf("%w: missing id", ErrInvalidOrder)
		}
	case event.ModifyOrder:
		if ev.ID == 0 {
			return fmt.Errorf("%w: missing id", ErrInvalidOrder)
		}
	default:
		return fmt.Errorf("%w: %s events are not accepted", ErrInvalidOrder, event.Name(ev))
	}
	return nil
}

func checkIDSide(id uint64, side orderbook.Side) error {
	if id == 0 {
		return fmt.Errorf("%w: missing id", ErrInvalidOrder)
	}
	if side != orderbook.Buy && side != orderbook.Sell {
		return fmt.Errorf("%w: side %d", ErrInvalidOrder, side)
	}
	return nil
}

//
// ──────────────────────────────────────────────────────────
// Queries
// ──────────────────────────────────────────────────────────
//

func (s *OrderService) TopOfBook() engine.TopSnapshot { return s.book.TopOfBook() }

func (s *OrderService) Processed() uint64 { return s.book.Processed() }

// Ready reports whether the engine is consuming commands.
func (s *OrderService) Ready() bool { return s.book.State() == engine.Running }

func (s *OrderService) Scale() price.Scale { return s.scale }
