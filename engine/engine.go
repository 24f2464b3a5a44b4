package engine

import (
	"context"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"matchcore/domain/event"
	"matchcore/domain/orderbook"
	"matchcore/domain/price"
	"matchcore/infra/sequence"
)

// Queue is the blocking multi-producer single-consumer channel the engine
// drains. Elements must come out in the order they went in.
type Queue interface {
	Push(ctx context.Context, ev event.Event) error
	Pop(ctx context.Context) (event.Event, error)
}

type State int32

const (
	Idle State = iota
	Running
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// MatchingEngine is the only writer of its order book.
type MatchingEngine struct {
	queue Queue

	log       *zap.Logger
	scale     price.Scale
	symbol    string
	sink      TradeSink
	observers []func(TopSnapshot)
	depth     int

	book  *orderbook.OrderBook
	clock *sequence.Sequencer

	// engine goroutine only
	fills      []orderbook.Trade
	tradeSeq   uint64
	clamps     uint64
	duplicates uint64

	state     atomic.Int32
	processed atomic.Uint64
	top       atomic.Pointer[TopSnapshot]
	done      chan struct{}
}

func New(q Queue, opts ...Option) *MatchingEngine {
	e := &MatchingEngine{
		queue: q,
		log:   zap.NewNop(),
		scale: price.Default(),
		clock: sequence.New(0),
		done:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.book = orderbook.NewOrderBook(
		orderbook.WithClock(e.clock),
		orderbook.WithSymbol(e.symbol),
		orderbook.WithTradeHandler(func(t orderbook.Trade) { e.fills = append(e.fills, t) }),
	)
	e.top.Store(&TopSnapshot{Symbol: e.symbol})
	e.log = e.log.With(zap.String("symbol", e.symbol))
	return e
}

// Start launches the drain loop. Only the first call from Idle has any
// effect.
func (e *MatchingEngine) Start() {
	if !e.state.CompareAndSwap(int32(Idle), int32(Running)) {
		e.log.Debug("start ignored", zap.Stringer("state", e.State()))
		return
	}
	e.log.Info("engine started")
	go e.run()
}

// Stop enqueues a Shutdown behind everything already queued and waits for
// the loop to drain up to it. Stop before Start does nothing.
func (e *MatchingEngine) Stop() {
	if !e.state.CompareAndSwap(int32(Running), int32(Stopped)) {
		if e.State() == Stopped {
			<-e.done
		}
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-e.done:
			cancel()
		case <-ctx.Done():
		}
	}()
	if err := e.queue.Push(ctx, event.Shutdown{}); err != nil {
		e.log.Warn("shutdown not enqueued", zap.Error(err))
	}
	<-e.done
	e.log.Info("engine stopped", zap.Uint64("processed", e.Processed()))
}

// Done is closed once the drain loop has exited.
func (e *MatchingEngine) Done() <-chan struct{} { return e.done }

func (e *MatchingEngine) State() State { return State(e.state.Load()) }

// TopOfBook returns the latest snapshot. Safe from any goroutine.
func (e *MatchingEngine) TopOfBook() TopSnapshot { return *e.top.Load() }

// Processed is the number of events dispatched so far.
func (e *MatchingEngine) Processed() uint64 { return e.processed.Load() }

func (e *MatchingEngine) Symbol() string { return e.symbol }

func (e *MatchingEngine) Scale() price.Scale { return e.scale }

func (e *MatchingEngine) run() {
	defer close(e.done)
	ctx := context.Background()
	for {
		ev, err := e.queue.Pop(ctx)
		if err != nil {
			e.log.Warn("queue closed under the engine", zap.Error(err))
			e.state.Store(int32(Stopped))
			return
		}

		stop := e.dispatch(ev)
		e.flushTrades()
		e.checkAnomalies()
		e.publish(e.processed.Add(1))
		if stop {
			return
		}
	}
}

// dispatch applies one event and reports whether the loop should exit.
func (e *MatchingEngine) dispatch(ev event.Event) bool {
	switch ev := ev.(type) {
	case event.NewOrder:
		ticks, err := e.scale.ToTicks(ev.Price)
		if err != nil {
			e.log.Warn("limit order dropped: price has no tick",
				zap.Uint64("id", ev.ID), zap.Float64("price", ev.Price), zap.Error(err))
			return false
		}
		e.book.AddOrder(orderbook.Order{
			ID:        ev.ID,
			Side:      ev.Side,
			Type:      orderbook.Limit,
			Price:     ticks,
			Qty:       ev.Qty,
			Timestamp: e.clock.Next(),
		})
		e.book.MatchOrders()
	case event.MarketOrder:
		e.book.AddOrder(orderbook.Order{
			ID:        ev.ID,
			Side:      ev.Side,
			Type:      orderbook.Market,
			Qty:       ev.Qty,
			Timestamp: e.clock.Next(),
		})
	case event.CancelOrder:
		if !e.book.CancelOrder(ev.ID) {
			e.log.Debug("cancel for unknown order", zap.Uint64("id", ev.ID))
		}
	case event.ModifyOrder:
		if !e.book.ModifyOrder(ev.ID, ev.Qty) {
			e.log.Debug("modify for unknown order", zap.Uint64("id", ev.ID))
		}
	case event.Shutdown:
		return true
	default:
		e.log.Error("unhandled event", zap.String("type", event.Name(ev)))
	}
	return false
}

func (e *MatchingEngine) flushTrades() {
	if len(e.fills) == 0 {
		return
	}
	trades := make([]Trade, len(e.fills))
	for i, f := range e.fills {
		e.tradeSeq++
		trades[i] = Trade{
			ID:        uuid.New(),
			Seq:       e.tradeSeq,
			Symbol:    e.symbol,
			BuyID:     f.BuyID,
			SellID:    f.SellID,
			Price:     e.scale.ToFloat(f.Price),
			Ticks:     f.Price,
			Qty:       f.Qty,
			Aggressor: f.Aggressor,
		}
	}
	e.fills = e.fills[:0]

	if e.sink == nil {
		return
	}
	if err := e.sink.Record(trades); err != nil {
		e.log.Error("trade sink failed", zap.Int("trades", len(trades)), zap.Error(err))
	}
}

func (e *MatchingEngine) checkAnomalies() {
	clamps, dups := e.book.Anomalies()
	if clamps != e.clamps {
		e.log.Warn("level quantity underflow clamped", zap.Uint64("total", clamps))
		e.clamps = clamps
	}
	if dups != e.duplicates {
		e.log.Warn("duplicate order id rejected", zap.Uint64("total", dups))
		e.duplicates = dups
	}
}

func (e *MatchingEngine) publish(seq uint64) {
	bid, ask := e.book.Top()
	snap := &TopSnapshot{
		Symbol:  e.symbol,
		BestBid: e.scale.ToFloat(bid.Price),
		BestAsk: e.scale.ToFloat(ask.Price),
		BidQty:  bid.TotalQty,
		AskQty:  ask.TotalQty,
		Seq:     seq,
	}
	if e.depth > 0 {
		snap.Bids = e.levels(orderbook.Buy)
		snap.Asks = e.levels(orderbook.Sell)
	}
	e.top.Store(snap)
	for _, fn := range e.observers {
		fn(*snap)
	}
}

func (e *MatchingEngine) levels(s orderbook.Side) []LevelView {
	lvls := e.book.Levels(s, e.depth)
	out := make([]LevelView, len(lvls))
	for i, l := range lvls {
		out[i] = LevelView{Price: e.scale.ToFloat(l.Price), Qty: l.TotalQty, Orders: l.Orders}
	}
	return out
}
