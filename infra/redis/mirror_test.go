package redis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"matchcore/engine"
)

// fakeRedis implements the handful of commands the mirror issues. Any other
// call panics on the nil embedded interface.
type fakeRedis struct {
	redis.Cmdable

	mu        sync.Mutex
	values    map[string][]byte
	published map[string]int
	setErr    error
}

func newFake() *fakeRedis {
	return &fakeRedis{values: map[string][]byte{}, published: map[string]int{}}
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, _ time.Duration) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx, "set", key, value)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		cmd.SetErr(f.setErr)
		return cmd
	}
	f.values[key] = value.([]byte)
	cmd.SetVal("OK")
	return cmd
}

func (f *fakeRedis) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx, "publish", channel, message)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published[channel]++
	cmd.SetVal(1)
	return cmd
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx, "get", key)
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.values[key]
	if !ok {
		cmd.SetErr(redis.Nil)
		return cmd
	}
	cmd.SetVal(string(v))
	return cmd
}

func (f *fakeRedis) publishCount(ch string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.published[ch]
}

func TestWriteAndLatest(t *testing.T) {
	f := newFake()
	m := NewMirror(f, "top", "top-ch", zaptest.NewLogger(t))
	ctx := context.Background()

	_, err := m.Latest(ctx)
	assert.ErrorIs(t, err, redis.Nil)

	snap := engine.TopSnapshot{Symbol: "DEMO", BestBid: 99.5, BestAsk: 100, BidQty: 3, AskQty: 4, Seq: 7}
	require.NoError(t, m.Write(ctx, snap))
	got, err := m.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, snap, got)
	assert.Equal(t, 1, f.publishCount("top-ch"))
}

func TestWriteWithoutChannel(t *testing.T) {
	f := newFake()
	m := NewMirror(f, "top", "", nil)
	require.NoError(t, m.Write(context.Background(), engine.TopSnapshot{Seq: 1}))
	assert.Zero(t, f.publishCount(""))
}

func TestWriteError(t *testing.T) {
	f := newFake()
	f.setErr = errors.New("READONLY")
	m := NewMirror(f, "top", "ch", nil)
	err := m.Write(context.Background(), engine.TopSnapshot{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "READONLY")
}

func TestRunKeepsNewest(t *testing.T) {
	f := newFake()
	m := NewMirror(f, "top", "ch", zaptest.NewLogger(t))
	updates := make(chan engine.TopSnapshot, 8)
	for i := uint64(1); i <= 5; i++ {
		updates <- engine.TopSnapshot{Seq: i}
	}
	close(updates)

	m.Run(context.Background(), updates)

	got, err := m.Latest(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 5, got.Seq)
	assert.Equal(t, 1, f.publishCount("ch"), "pending snapshots coalesce into one write")
}
