package orderbook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActiveOrdersAddAndLookup(t *testing.T) {
	active := NewActiveOrders(fifoComparator)

	require.NoError(t, active.Add(newOrder("b1", Bid, "100.50", 10)))
	require.NoError(t, active.Add(newOrder("b2", Bid, "100.40", 5)))
	require.NoError(t, active.Add(newOrder("a1", Ask, "100.60", 7)))

	assert.Equal(t, int64(3), active.NumOrders())
	assert.Equal(t, int64(2), active.NumBidOrders())
	assert.Equal(t, int64(1), active.NumAskOrders())
	assert.Equal(t, 3, active.NumLevels())
	assert.True(t, active.HasBothSides())

	best, ok := active.BestBid()
	require.True(t, ok)
	assert.Equal(t, "b1", best.OrderID)
	requireDecimalEqual(t, "100.50", active.BestBidPrice())
	requireDecimalEqual(t, "100.60", active.BestAskPrice())

	got, found := active.Get("b2")
	require.True(t, found)
	assert.Equal(t, "b2", got.OrderID)
}

func TestActiveOrdersRejectsDuplicateID(t *testing.T) {
	active := NewActiveOrders(fifoComparator)
	require.NoError(t, active.Add(newOrder("b1", Bid, "100.50", 10)))

	err := active.Add(newOrder("b1", Bid, "100.60", 5))
	assert.ErrorIs(t, err, ErrDuplicateOrder)

	// the rejected copy left no trace at its price
	assert.Equal(t, int64(1), active.NumOrders())
	assert.Equal(t, 1, active.NumBidLevels())
	requireDecimalEqual(t, "10", active.TotalBidVolume())
}

func TestActiveOrdersRejectsInvalidSide(t *testing.T) {
	active := NewActiveOrders(fifoComparator)
	err := active.Add(newOrder("x", SideUnknown, "1", 1))
	assert.ErrorIs(t, err, ErrInvalidSide)
}

func TestActiveOrdersRemove(t *testing.T) {
	active := NewActiveOrders(fifoComparator)
	require.NoError(t, active.Add(newOrder("b1", Bid, "100.50", 10)))
	require.NoError(t, active.Add(newOrder("b2", Bid, "100.50", 4, at(1))))

	require.NoError(t, active.Remove("b1"))
	assert.Equal(t, int64(1), active.NumOrders())
	requireDecimalEqual(t, "4", active.TotalBidVolume())

	// removing the last order drops the level
	require.NoError(t, active.Remove("b2"))
	assert.Equal(t, 0, active.NumBidLevels())

	assert.ErrorIs(t, active.Remove("b1"), ErrUnknownOrder)
}

func TestActiveOrdersUpdateRebuckets(t *testing.T) {
	active := NewActiveOrders(fifoComparator)
	require.NoError(t, active.Add(newOrder("b1", Bid, "100.50", 10)))

	moved := newOrder("b1", Bid, "101.00", 10)
	require.NoError(t, active.Update(moved))

	requireDecimalEqual(t, "101.00", active.BestBidPrice())
	assert.Equal(t, 1, active.NumBidLevels())
}

func TestActiveOrdersDepthAccessors(t *testing.T) {
	active := NewActiveOrders(fifoComparator)
	require.NoError(t, active.Add(newOrder("b1", Bid, "100.50", 10)))
	require.NoError(t, active.Add(newOrder("b2", Bid, "100.40", 5, at(1))))
	require.NoError(t, active.Add(newOrder("a1", Ask, "100.60", 7)))

	requireDecimalEqual(t, "100.50", active.BidPriceAtDepth(1))
	requireDecimalEqual(t, "100.40", active.BidPriceAtDepth(2))
	requireDecimalEqual(t, "5", active.BidVolumeAtDepth(2))
	requireDecimalEqual(t, "7", active.AskVolumeAtDepth(1))

	// past the end everything is zero
	requireDecimalEqual(t, "0", active.BidPriceAtDepth(3))
	requireDecimalEqual(t, "0", active.AskVolumeAtDepth(2))
	requireDecimalEqual(t, "0", active.BidVolumeAtDepth(0))
}

func TestIsTotalFillPossible(t *testing.T) {
	active := NewActiveOrders(fifoComparator)
	require.NoError(t, active.Add(newOrder("a1", Ask, "100.60", 4, by("m1"))))
	require.NoError(t, active.Add(newOrder("a2", Ask, "100.70", 4, by("m2"))))
	require.NoError(t, active.Add(newOrder("a3", Ask, "100.80", 4, by("m3"))))

	// covered across two levels
	assert.True(t, active.IsTotalFillPossible(newOrder("b", Bid, "100.70", 8, by("t1"))))
	// limit stops before the third level
	assert.False(t, active.IsTotalFillPossible(newOrder("b", Bid, "100.70", 9, by("t1"))))
	// market ignores price bounds
	assert.True(t, active.IsTotalFillPossible(newOrder("b", Bid, "0", 12, by("t1"), asMarket())))
	assert.False(t, active.IsTotalFillPossible(newOrder("b", Bid, "0", 13, by("t1"), asMarket())))
	// own volume does not count
	assert.False(t, active.IsTotalFillPossible(newOrder("b", Bid, "100.60", 4, by("m1"))))
}

func TestLevelsInCrossedRegion(t *testing.T) {
	active := NewActiveOrders(fifoComparator)
	require.NoError(t, active.Add(newOrder("b1", Bid, "100.50", 1)))
	require.NoError(t, active.Add(newOrder("b2", Bid, "100.40", 1)))
	require.NoError(t, active.Add(newOrder("b3", Bid, "100.30", 1)))
	require.NoError(t, active.Add(newOrder("a1", Ask, "100.40", 1)))
	require.NoError(t, active.Add(newOrder("a2", Ask, "100.60", 1)))

	bids := active.BidLevelsAtOrAbove(dec("100.40"))
	require.Len(t, bids, 2)
	requireDecimalEqual(t, "100.50", bids[0].Price)

	asks := active.AskLevelsAtOrBelow(dec("100.50"))
	require.Len(t, asks, 1)
	requireDecimalEqual(t, "100.40", asks[0].Price)
}
