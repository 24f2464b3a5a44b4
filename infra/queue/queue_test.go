package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFIFO(t *testing.T) {
	q := NewChan[int](8)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, q.Push(ctx, i))
	}
	assert.Equal(t, 5, q.Len())
	for i := 0; i < 5; i++ {
		v, err := q.Pop(ctx)
		require.NoError(t, err)
		assert.Equal(t, i, v)
	}
}

func TestDefaultCapacity(t *testing.T) {
	assert.Equal(t, DefaultCapacity, NewChan[int](0).Cap())
}

func TestPushBlocksWhenFull(t *testing.T) {
	q := NewChan[int](1)
	require.NoError(t, q.Push(context.Background(), 1))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := q.Push(ctx, 2)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPopBlocksUntilPush(t *testing.T) {
	q := NewChan[string](1)
	got := make(chan string, 1)
	go func() {
		v, _ := q.Pop(context.Background())
		got <- v
	}()

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, q.Push(context.Background(), "x"))
	select {
	case v := <-got:
		assert.Equal(t, "x", v)
	case <-time.After(time.Second):
		t.Fatal("consumer never woke")
	}
}

func TestCloseDrainsThenFails(t *testing.T) {
	q := NewChan[int](4)
	ctx := context.Background()
	require.NoError(t, q.Push(ctx, 1))
	require.NoError(t, q.Push(ctx, 2))
	q.Close()
	q.Close()

	assert.ErrorIs(t, q.Push(ctx, 3), ErrClosed)

	v, err := q.Pop(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	v, err = q.Pop(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	_, err = q.Pop(ctx)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestCloseWakesConsumer(t *testing.T) {
	q := NewChan[int](1)
	errs := make(chan error, 1)
	go func() {
		_, err := q.Pop(context.Background())
		errs <- err
	}()
	time.Sleep(10 * time.Millisecond)
	q.Close()
	select {
	case err := <-errs:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("Close did not wake Pop")
	}
}

func TestProducerOrderPreserved(t *testing.T) {
	q := NewChan[[2]int](16)
	ctx := context.Background()
	const producers, per = 4, 500

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < per; i++ {
				_ = q.Push(ctx, [2]int{p, i})
			}
		}(p)
	}

	last := make([]int, producers)
	for i := range last {
		last[i] = -1
	}
	for n := 0; n < producers*per; n++ {
		v, err := q.Pop(ctx)
		require.NoError(t, err)
		require.Equal(t, last[v[0]]+1, v[1], "producer %d out of order", v[0])
		last[v[0]] = v[1]
	}
	wg.Wait()
}
