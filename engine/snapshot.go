package engine

// LevelView is one aggregated price level in a snapshot.
type LevelView struct {
	Price  float64 `json:"price"`
	Qty    uint64  `json:"qty"`
	Orders int     `json:"orders"`
}

// TopSnapshot is the published view of the book. A zero price means the
// side is empty. Snapshots are replaced, never mutated.
type TopSnapshot struct {
	Symbol  string  `json:"symbol"`
	BestBid float64 `json:"best_bid"`
	BestAsk float64 `json:"best_ask"`
	BidQty  uint64  `json:"bid_qty"`
	AskQty  uint64  `json:"ask_qty"`

	// Seq is the processed-event count at publish time.
	Seq uint64 `json:"seq"`

	// Bids and Asks hold the top levels, best first, when the engine is
	// built WithDepth.
	Bids []LevelView `json:"bids,omitempty"`
	Asks []LevelView `json:"asks,omitempty"`
}

// Spread is BestAsk-BestBid, or 0 when either side is empty.
func (s TopSnapshot) Spread() float64 {
	if s.BestBid == 0 || s.BestAsk == 0 {
		return 0
	}
	return s.BestAsk - s.BestBid
}
