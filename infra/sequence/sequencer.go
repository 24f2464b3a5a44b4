package sequence

import "sync/atomic"

// Sequencer hands out strictly increasing values. The order book uses it
// as its time-priority clock.
type Sequencer struct {
	last atomic.Uint64
}

// New creates a sequencer whose first Next returns start+1.
func New(start uint64) *Sequencer {
	s := &Sequencer{}
	s.last.Store(start)
	return s
}

// Next returns a value greater than every value returned or observed so far.
func (s *Sequencer) Next() uint64 {
	return s.last.Add(1)
}

// Current returns the last issued or observed value.
func (s *Sequencer) Current() uint64 {
	return s.last.Load()
}

// Observe moves the sequencer forward to v if v is ahead of it, so that
// externally stamped values keep later Next results strictly greater.
func (s *Sequencer) Observe(v uint64) {
	for {
		cur := s.last.Load()
		if v <= cur || s.last.CompareAndSwap(cur, v) {
			return
		}
	}
}
