// Package broadcaster drains the trade outbox into Kafka.
package broadcaster

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"matchcore/infra/outbox"
)

// Store is the part of the outbox the broadcaster drives.
type Store interface {
	ScanPending(fn func(outbox.Record) error) error
	MarkSent(seq uint64) error
	MarkAcked(seq uint64) error
}

type Broadcaster struct {
	store    Store
	producer sarama.SyncProducer
	topic    string
	key      sarama.Encoder
	interval time.Duration
	log      *zap.Logger
}

type Option func(*Broadcaster)

func WithLogger(l *zap.Logger) Option {
	return func(b *Broadcaster) { b.log = l }
}

func WithInterval(d time.Duration) Option {
	return func(b *Broadcaster) { b.interval = d }
}

// WithKey sets the message key, keeping one instrument on one partition.
func WithKey(key string) Option {
	return func(b *Broadcaster) { b.key = sarama.StringEncoder(key) }
}

// ProducerConfig is the sarama configuration used by NewProducer.
func ProducerConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5
	return cfg
}

func NewProducer(brokers []string) (sarama.SyncProducer, error) {
	p, err := sarama.NewSyncProducer(brokers, ProducerConfig())
	if err != nil {
		return nil, fmt.Errorf("broadcaster: producer: %w", err)
	}
	return p, nil
}

func New(store Store, producer sarama.SyncProducer, topic string, opts ...Option) *Broadcaster {
	b := &Broadcaster{
		store:    store,
		producer: producer,
		topic:    topic,
		interval: 250 * time.Millisecond,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Run flushes on every tick until ctx is done, then makes one last pass.
func (b *Broadcaster) Run(ctx context.Context) {
	b.log.Info("broadcaster started", zap.String("topic", b.topic), zap.Duration("interval", b.interval))
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if _, err := b.Flush(); err != nil {
				b.log.Warn("final flush incomplete", zap.Error(err))
			}
			b.log.Info("broadcaster stopped")
			return
		case <-ticker.C:
			if _, err := b.Flush(); err != nil {
				b.log.Debug("flush incomplete, will retry", zap.Error(err))
			}
		}
	}
}

var errStop = errors.New("stop")

// Flush publishes pending records in sequence order and returns how many
// were acked. It stops at the first failed send so later records never
// overtake an earlier one.
func (b *Broadcaster) Flush() (int, error) {
	sent := 0
	var sendErr error
	err := b.store.ScanPending(func(rec outbox.Record) error {
		if err := b.store.MarkSent(rec.Seq); err != nil {
			return fmt.Errorf("broadcaster: mark sent %d: %w", rec.Seq, err)
		}

		msg := &sarama.ProducerMessage{
			Topic: b.topic,
			Key:   b.key,
			Value: sarama.ByteEncoder(rec.Payload),
		}
		partition, offset, err := b.producer.SendMessage(msg)
		if err != nil {
			sendErr = fmt.Errorf("broadcaster: send %d: %w", rec.Seq, err)
			return errStop
		}

		if err := b.store.MarkAcked(rec.Seq); err != nil {
			return fmt.Errorf("broadcaster: ack %d: %w", rec.Seq, err)
		}
		b.log.Debug("trade published",
			zap.Uint64("seq", rec.Seq), zap.Int32("partition", partition), zap.Int64("offset", offset))
		sent++
		return nil
	})
	if errors.Is(err, errStop) {
		return sent, sendErr
	}
	return sent, err
}

func (b *Broadcaster) Close() error {
	return b.producer.Close()
}
