// Package kafka connects the engine to the market-data feed topic using
// segmentio/kafka-go.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"matchcore/domain/event"
)

// MessageReader is the subset of *kafka.Reader the consumer uses.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Pusher accepts decoded events, blocking for backpressure.
type Pusher interface {
	Push(ctx context.Context, ev event.Event) error
}

func NewReader(brokers []string, topic, group string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        group,
		MinBytes:       1,
		MaxBytes:       10e6,
		MaxWait:        50 * time.Millisecond,
		CommitInterval: 0, // synchronous commits
	})
}

// Consumer moves feed messages into the engine queue in partition order.
type Consumer struct {
	reader MessageReader
	out    Pusher
	log    *zap.Logger

	rejected uint64
}

func NewConsumer(r MessageReader, out Pusher, log *zap.Logger) *Consumer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Consumer{reader: r, out: out, log: log}
}

// Run consumes until ctx is done or the reader fails. Undecodable
// messages are logged, committed and skipped. A message is committed only
// after it has been pushed.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("kafka: fetch: %w", err)
		}

		ev, err := Decode(msg.Value)
		if err != nil {
			c.rejected++
			c.log.Warn("feed message rejected",
				zap.Int("partition", msg.Partition), zap.Int64("offset", msg.Offset), zap.Error(err))
		} else if err := c.out.Push(ctx, ev); err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("kafka: push offset %d: %w", msg.Offset, err)
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("kafka: commit offset %d: %w", msg.Offset, err)
		}
	}
}

// Rejected counts skipped messages. Not safe while Run is active.
func (c *Consumer) Rejected() uint64 { return c.rejected }

func (c *Consumer) Close() error { return c.reader.Close() }
