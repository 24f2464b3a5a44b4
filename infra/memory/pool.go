package memory

import "sync"

// Resetter is implemented by pooled objects that must be zeroed before reuse.
type Resetter interface {
	Reset()
}

// Pool is a typed wrapper over sync.Pool.
type Pool[T any] struct {
	p *sync.Pool
}

func NewPool[T any](ctor func() *T) *Pool[T] {
	return &Pool[T]{
		p: &sync.Pool{
			New: func() any { return ctor() },
		},
	}
}

func (p *Pool[T]) Get() *T {
	return p.p.Get().(*T)
}

// Put returns v to the pool, resetting it first when it knows how.
func (p *Pool[T]) Put(v *T) {
	if v == nil {
		return
	}
	if r, ok := any(v).(Resetter); ok {
		r.Reset()
	}
	p.p.Put(v)
}
