package broadcaster

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"matchcore/infra/outbox"
)

func newOutbox(t *testing.T) *outbox.Outbox {
	t.Helper()
	o, err := outbox.Open("outbox", outbox.WithFS(vfs.NewMem()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = o.Close() })
	return o
}

func pending(t *testing.T, o *outbox.Outbox) int {
	t.Helper()
	n, err := o.Pending()
	require.NoError(t, err)
	return n
}

func TestFlushPublishesInOrder(t *testing.T) {
	ob := newOutbox(t)
	_, err := ob.Append([]byte("one"), []byte("two"))
	require.NoError(t, err)

	p := mocks.NewSyncProducer(t, ProducerConfig())
	var seen []string
	check := func(v []byte) error { seen = append(seen, string(v)); return nil }
	p.ExpectSendMessageWithCheckerFunctionAndSucceed(check)
	p.ExpectSendMessageWithCheckerFunctionAndSucceed(check)

	b := New(ob, p, "trades", WithKey("DEMO"), WithLogger(zaptest.NewLogger(t)))
	n, err := b.Flush()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"one", "two"}, seen)
	assert.Zero(t, pending(t, ob))
	require.NoError(t, b.Close())
}

func TestFlushStopsAtFailure(t *testing.T) {
	ob := newOutbox(t)
	_, err := ob.Append([]byte("one"), []byte("two"), []byte("three"))
	require.NoError(t, err)

	p := mocks.NewSyncProducer(t, ProducerConfig())
	p.ExpectSendMessageAndSucceed()
	p.ExpectSendMessageAndFail(sarama.ErrNotLeaderForPartition)

	b := New(ob, p, "trades")
	n, err := b.Flush()
	require.Error(t, err)
	assert.True(t, errors.Is(err, sarama.ErrNotLeaderForPartition))
	assert.Equal(t, 1, n)
	assert.Equal(t, 2, pending(t, ob))

	rec, err := ob.Get(2)
	require.NoError(t, err)
	assert.Equal(t, outbox.StateSent, rec.State)

	p.ExpectSendMessageAndSucceed()
	p.ExpectSendMessageAndSucceed()
	n, err = b.Flush()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	rec2, err := ob.Get(2)
	assert.True(t, outbox.IsNotFound(err), "got %+v", rec2)
	require.NoError(t, b.Close())
}

func TestRunFlushesUntilCancelled(t *testing.T) {
	ob := newOutbox(t)
	p := mocks.NewSyncProducer(t, ProducerConfig())
	p.ExpectSendMessageAndSucceed()

	b := New(ob, p, "trades", WithInterval(5*time.Millisecond), WithLogger(zaptest.NewLogger(t)))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		b.Run(ctx)
		close(done)
	}()

	_, err := ob.Append([]byte("late"))
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		n, err := ob.Pending()
		return err == nil && n == 0
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
	require.NoError(t, b.Close())
}
