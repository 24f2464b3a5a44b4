// Package orderbook implements the single-instrument limit order book:
// two red-black trees of price levels (bids read from the maximum, asks
// from the minimum), a FIFO queue of resting orders per level, and an
// id index for cancel and modify.
//
// The book is single-writer by construction. It holds no locks; the
// goroutine that owns it is the only one allowed to call into it.
// Lookups by unknown id are silent no-ops and quantity underflow is
// clamped to zero, so nothing on the matching path returns an error.
package orderbook
