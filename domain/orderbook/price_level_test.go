package orderbook

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPriceLevelFIFOAndTotals(t *testing.T) {
	var lvl PriceLevel
	lvl.Enqueue(&Order{ID: 1, Qty: 3})
	lvl.Enqueue(&Order{ID: 2, Qty: 4})
	lvl.Enqueue(&Order{ID: 3, Qty: 5})
	require.EqualValues(t, 12, lvl.TotalQty)
	require.Equal(t, 3, lvl.OrderCount)

	removed := lvl.Remove(2)
	require.NotNil(t, removed)
	require.EqualValues(t, 8, lvl.TotalQty)

	require.EqualValues(t, 1, lvl.PopHead().ID)
	require.EqualValues(t, 3, lvl.PopHead().ID)
	require.True(t, lvl.Empty())
	require.Zero(t, lvl.TotalQty)
	require.Nil(t, lvl.PopHead())
}

func TestPriceLevelRemoveMissing(t *testing.T) {
	var lvl PriceLevel
	lvl.Enqueue(&Order{ID: 1, Qty: 3})
	require.Nil(t, lvl.Remove(9))
	require.EqualValues(t, 3, lvl.TotalQty)
}

func TestPriceLevelFillHead(t *testing.T) {
	var lvl PriceLevel
	lvl.Enqueue(&Order{ID: 1, Qty: 5})

	o, done := lvl.Fill(2)
	require.False(t, done)
	require.EqualValues(t, 3, o.Qty)
	require.EqualValues(t, 3, lvl.TotalQty)

	_, done = lvl.Fill(3)
	require.True(t, done)
	require.Zero(t, lvl.TotalQty)
}
