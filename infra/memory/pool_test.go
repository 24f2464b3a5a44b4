package memory

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type item struct {
	n int
}

func (i *item) Reset() { i.n = 0 }

func TestPoolResetsOnPut(t *testing.T) {
	p := NewPool(func() *item { return &item{} })

	v := p.Get()
	require.NotNil(t, v)
	v.n = 42
	p.Put(v)

	// sync.Pool may or may not hand the same value back; either way it is clean.
	require.Zero(t, p.Get().n)
}

func TestPoolPutNil(t *testing.T) {
	p := NewPool(func() *item { return &item{} })
	require.NotPanics(t, func() { p.Put(nil) })
}
