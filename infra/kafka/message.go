package kafka

import (
	"encoding/json"
	"errors"
	"fmt"

	"matchcore/domain/event"
	"matchcore/domain/orderbook"
)

// ErrBadMessage marks a feed message that cannot become an event.
var ErrBadMessage = errors.New("kafka: bad feed message")

// Message is the JSON wire form of a feed event.
type Message struct {
	Type  string  `json:"type"`
	ID    uint64  `json:"id"`
	Side  string  `json:"side,omitempty"`
	Price float64 `json:"price,omitempty"`
	Qty   uint64  `json:"qty,omitempty"`
}

func parseSide(s string) (orderbook.Side, error) {
	switch s {
	case "buy", "bid":
		return orderbook.Buy, nil
	case "sell", "ask":
		return orderbook.Sell, nil
	default:
		return 0, fmt.Errorf("%w: side %q", ErrBadMessage, s)
	}
}

func sideName(s orderbook.Side) string {
	if s == orderbook.Sell {
		return "sell"
	}
	return "buy"
}

// Decode parses one feed message.
func Decode(b []byte) (event.Event, error) {
	var m Message
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadMessage, err)
	}
	return m.Event()
}

// Event converts m, rejecting anything the book could not hold.
func (m Message) Event() (event.Event, error) {
	switch m.Type {
	case "new", "limit":
		side, err := parseSide(m.Side)
		if err != nil {
			return nil, err
		}
		if m.Price <= 0 {
			return nil, fmt.Errorf("%w: price %v", ErrBadMessage, m.Price)
		}
		if m.Qty == 0 {
			return nil, fmt.Errorf("%w: zero qty", ErrBadMessage)
		}
		return event.NewOrder{ID: m.ID, Side: side, Price: m.Price, Qty: m.Qty}, nil
	case "market":
		side, err := parseSide(m.Side)
		if err != nil {
			return nil, err
		}
		if m.Qty == 0 {
			return nil, fmt.Errorf("%w: zero qty", ErrBadMessage)
		}
		return event.MarketOrder{ID: m.ID, Side: side, Qty: m.Qty}, nil
	case "cancel":
		return event.CancelOrder{ID: m.ID}, nil
	case "modify":
		return event.ModifyOrder{ID: m.ID, Qty: m.Qty}, nil
	default:
		return nil, fmt.Errorf("%w: type %q", ErrBadMessage, m.Type)
	}
}

// Encode is the inverse of Decode. Shutdown has no wire form.
func Encode(ev event.Event) ([]byte, error) {
	var m Message
	switch ev := ev.(type) {
	case event.NewOrder:
		m = Message{Type: "new", ID: ev.ID, Side: sideName(ev.Side), Price: ev.Price, Qty: ev.Qty}
	case event.MarketOrder:
		m = Message{Type: "market", ID: ev.ID, Side: sideName(ev.Side), Qty: ev.Qty}
	case event.CancelOrder:
		m = Message{Type: "cancel", ID: ev.ID}
	case event.ModifyOrder:
		m = Message{Type: "modify", ID: ev.ID, Qty: ev.Qty}
	default:
		return nil, fmt.Errorf("%w: cannot encode %s", ErrBadMessage, event.Name(ev))
	}
	return json.Marshal(m)
}
