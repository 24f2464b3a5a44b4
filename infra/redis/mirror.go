// Package redis mirrors the engine's top of book into Redis so readers
// outside the process can poll a key or subscribe to a channel.
package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"matchcore/engine"
)

func NewClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr})
}

type Mirror struct {
	client  redis.Cmdable
	key     string
	channel string
	log     *zap.Logger
}

func NewMirror(client redis.Cmdable, key, channel string, log *zap.Logger) *Mirror {
	if log == nil {
		log = zap.NewNop()
	}
	return &Mirror{client: client, key: key, channel: channel, log: log}
}

// Write stores snap under the key and publishes it on the channel when
// one is configured.
func (m *Mirror) Write(ctx context.Context, snap engine.TopSnapshot) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("redis: encode snapshot: %w", err)
	}
	if err := m.client.Set(ctx, m.key, b, 0).Err(); err != nil {
		return fmt.Errorf("redis: set %s: %w", m.key, err)
	}
	if m.channel == "" {
		return nil
	}
	if err := m.client.Publish(ctx, m.channel, b).Err(); err != nil {
		return fmt.Errorf("redis: publish %s: %w", m.channel, err)
	}
	return nil
}

// Latest reads back the stored snapshot.
func (m *Mirror) Latest(ctx context.Context) (engine.TopSnapshot, error) {
	var snap engine.TopSnapshot
	b, err := m.client.Get(ctx, m.key).Bytes()
	if err != nil {
		return snap, fmt.Errorf("redis: get %s: %w", m.key, err)
	}
	if err := json.Unmarshal(b, &snap); err != nil {
		return snap, fmt.Errorf("redis: decode snapshot: %w", err)
	}
	return snap, nil
}

// Run writes snapshots from updates until ctx is done or updates closes.
// When it falls behind only the newest pending snapshot is written.
func (m *Mirror) Run(ctx context.Context, updates <-chan engine.TopSnapshot) {
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-updates:
			if !ok {
				return
			}
			snap = latest(snap, updates)
			if err := m.Write(ctx, snap); err != nil && ctx.Err() == nil {
				m.log.Warn("top of book mirror failed", zap.Uint64("seq", snap.Seq), zap.Error(err))
			}
		}
	}
}

func latest(snap engine.TopSnapshot, updates <-chan engine.TopSnapshot) engine.TopSnapshot {
	for {
		select {
		case next, ok := <-updates:
			if !ok {
				return snap
			}
			snap = next
		default:
			return snap
		}
	}
}
