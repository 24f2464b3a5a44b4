package outbox

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"matchcore/engine"
)

const payloadVersion = 1

// TradeMessage is the JSON payload stored for each trade.
type TradeMessage struct {
	V       int       `json:"v"`
	Seq     uint64    `json:"seq"`
	TradeID uuid.UUID `json:"trade_id"`
	BuyID   uint64    `json:"buy_id"`
	SellID  uint64    `json:"sell_id"`
	Price   float64   `json:"price"`
	Qty     uint64    `json:"qty"`
	Symbol  string    `json:"symbol"`
}

func EncodeTrade(t engine.Trade) ([]byte, error) {
	return json.Marshal(TradeMessage{
		V:       payloadVersion,
		Seq:     t.Seq,
		TradeID: t.ID,
		BuyID:   t.BuyID,
		SellID:  t.SellID,
		Price:   t.Price,
		Qty:     t.Qty,
		Symbol:  t.Symbol,
	})
}

func DecodeTrade(b []byte) (TradeMessage, error) {
	var m TradeMessage
	if err := json.Unmarshal(b, &m); err != nil {
		return TradeMessage{}, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	if m.V != payloadVersion {
		return TradeMessage{}, fmt.Errorf("%w: payload version %d", ErrInvalidRecord, m.V)
	}
	return m, nil
}

// Record stores the trades of one engine event in a single batch, so the
// outbox can serve as the engine's TradeSink.
func (o *Outbox) Record(trades []engine.Trade) error {
	payloads := make([][]byte, 0, len(trades))
	for _, t := range trades {
		p, err := EncodeTrade(t)
		if err != nil {
			return fmt.Errorf("outbox: encode trade %s: %w", t.ID, err)
		}
		payloads = append(payloads, p)
	}
	_, err := o.Append(payloads...)
	return err
}

var _ engine.TradeSink = (*Outbox)(nil)
