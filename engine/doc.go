// Package engine runs one order book on a dedicated goroutine.
//
// Events arrive through a Queue and are applied strictly in order. The
// book itself never leaves the engine goroutine; other goroutines observe
// it only through the immutable TopSnapshot published after every event
// and through the trades handed to a TradeSink.
package engine
