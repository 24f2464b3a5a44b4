package kafka

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"

	"matchcore/domain/event"
)

// MessageWriter is the subset of *kafka.Writer the producer uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer writes events to the feed topic. It backs the load generator
// and any external publisher written in Go.
type Producer struct {
	writer MessageWriter
	key    []byte
}

// NewProducer writes to topic, keyed by symbol so one instrument stays on
// one partition and keeps its order.
func NewProducer(brokers []string, topic, symbol string) *Producer {
	return NewProducerWithWriter(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		BatchTimeout: 10 * time.Millisecond,
	}, symbol)
}

func NewProducerWithWriter(w MessageWriter, symbol string) *Producer {
	return &Producer{writer: w, key: []byte(symbol)}
}

// Send encodes and writes events as one batch.
func (p *Producer) Send(ctx context.Context, evs ...event.Event) error {
	msgs := make([]kafka.Message, 0, len(evs))
	for _, ev := range evs {
		b, err := Encode(ev)
		if err != nil {
			return err
		}
		msgs = append(msgs, kafka.Message{
			Key:     p.key,
			Value:   b,
			Headers: []kafka.Header{{Key: "type", Value: []byte(event.Name(ev))}},
		})
	}
	return p.writer.WriteMessages(ctx, msgs...)
}

// Push sends a single event, so a Producer can stand in for a queue.
func (p *Producer) Push(ctx context.Context, ev event.Event) error {
	return p.Send(ctx, ev)
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
