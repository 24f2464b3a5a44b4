package engine

import (
	"errors"

	"github.com/google/uuid"

	"matchcore/domain/orderbook"
)

// Trade is a fill as reported outside the engine.
type Trade struct {
	ID        uuid.UUID      `json:"trade_id"`
	Seq       uint64         `json:"seq"`
	Symbol    string         `json:"symbol"`
	BuyID     uint64         `json:"buy_id"`
	SellID    uint64         `json:"sell_id"`
	Price     float64        `json:"price"`
	Ticks     int64          `json:"ticks"`
	Qty       uint64         `json:"qty"`
	Aggressor orderbook.Side `json:"-"`
}

// TradeSink receives the trades produced by one event, in fill order. It is
// called on the engine goroutine and should not block for long.
type TradeSink interface {
	Record(trades []Trade) error
}

// TradeSinkFunc adapts a function to TradeSink.
type TradeSinkFunc func([]Trade) error

func (f TradeSinkFunc) Record(trades []Trade) error { return f(trades) }

// MultiSink records to every sink and joins their errors.
type MultiSink []TradeSink

func (m MultiSink) Record(trades []Trade) error {
	var errs []error
	for _, s := range m {
		if err := s.Record(trades); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
