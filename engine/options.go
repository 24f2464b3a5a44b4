package engine

import (
	"go.uber.org/zap"

	"matchcore/domain/price"
)

type Option func(*MatchingEngine)

func WithLogger(l *zap.Logger) Option {
	return func(e *MatchingEngine) { e.log = l }
}

// WithScale sets the tick size used to convert event prices.
func WithScale(s price.Scale) Option {
	return func(e *MatchingEngine) { e.scale = s }
}

func WithSymbol(symbol string) Option {
	return func(e *MatchingEngine) { e.symbol = symbol }
}

func WithTradeSink(s TradeSink) Option {
	return func(e *MatchingEngine) { e.sink = s }
}

// WithSnapshotObserver registers fn to be called on the engine goroutine
// with every published snapshot.
func WithSnapshotObserver(fn func(TopSnapshot)) Option {
	return func(e *MatchingEngine) { e.observers = append(e.observers, fn) }
}

// WithDepth makes every snapshot carry the top n levels of each side.
func WithDepth(n int) Option {
	return func(e *MatchingEngine) { e.depth = n }
}
