package orderbook

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFIFORestsWhenBookEmpty(t *testing.T) {
	book := newOpenBook(t, NewFIFOMatching())

	events := mustSubmit(t, book, newOrder("b1", Bid, "100.50", 10))

	require.Len(t, events, 1)
	require.NotNil(t, events[0].Order)
	assert.Equal(t, Insert, events[0].Order.Operation)
	assert.Equal(t, int64(1), book.NumOrders())
}

func TestFIFOCrossExecutesAtRestingPrice(t *testing.T) {
	book := newOpenBook(t, NewFIFOMatching())
	mustSubmit(t, book, newOrder("a1", Ask, "100.40", 5, by("firm-a")))

	events := mustSubmit(t, book, newOrder("b1", Bid, "100.50", 5, by("firm-b"), at(time.Second)))

	trades := tradesOf(events)
	require.Len(t, trades, 1)
	requireDecimalEqual(t, "100.40", trades[0].Price)
	requireDecimalEqual(t, "5", trades[0].Volume)
	assert.Equal(t, Bid, trades[0].AggressorSide)
	assert.Equal(t, "b1", trades[0].BidOrderID)
	assert.Equal(t, "a1", trades[0].AskOrderID)
	assert.Equal(t, int64(0), book.NumOrders())

	cancels := cancelsOf(events)
	require.Len(t, cancels, 2)
	for _, c := range cancels {
		assert.Equal(t, CauseFilled, c.Cause)
	}
}

func TestFIFOSweepsLevelsInPriceTimeOrder(t *testing.T) {
	book := newOpenBook(t, NewFIFOMatching())
	mustSubmit(t, book, newOrder("a2", Ask, "100.40", 3, by("firm-a"), at(2*time.Second)))
	mustSubmit(t, book, newOrder("a1", Ask, "100.40", 4, by("firm-b"), at(time.Second)))
	mustSubmit(t, book, newOrder("a3", Ask, "100.50", 6, by("firm-c"), at(3*time.Second)))

	events := mustSubmit(t, book, newOrder("b1", Bid, "100.50", 10, by("firm-d"), at(4*time.Second)))

	trades := tradesOf(events)
	require.Len(t, trades, 3)
	// same price, earlier arrival first
	assert.Equal(t, "a1", trades[0].AskOrderID)
	assert.Equal(t, "a2", trades[1].AskOrderID)
	assert.Equal(t, "a3", trades[2].AskOrderID)
	requireDecimalEqual(t, "100.40", trades[0].Price)
	requireDecimalEqual(t, "100.50", trades[2].Price)
	requireDecimalEqual(t, "3", trades[2].Volume)

	// remainder of a3 stays resting
	left, found := book.GetOrder("a3")
	require.True(t, found)
	requireDecimalEqual(t, "3", left.CurrentVolume)
	assert.Equal(t, int64(1), book.NumOrders())
}

func TestFIFOPartialFillRestsRemainder(t *testing.T) {
	book := newOpenBook(t, NewFIFOMatching())
	mustSubmit(t, book, newOrder("a1", Ask, "100.40", 4, by("firm-a")))

	events := mustSubmit(t, book, newOrder("b1", Bid, "100.40", 10, by("firm-b"), at(time.Second)))

	trades := tradesOf(events)
	require.Len(t, trades, 1)
	requireDecimalEqual(t, "4", trades[0].Volume)

	rested, found := book.GetOrder("b1")
	require.True(t, found)
	requireDecimalEqual(t, "6", rested.CurrentVolume)
	requireDecimalEqual(t, "100.40", book.BestBidPrice())
}

func TestFIFONoCrossBothRest(t *testing.T) {
	book := newOpenBook(t, NewFIFOMatching())
	mustSubmit(t, book, newOrder("a1", Ask, "100.60", 5, by("firm-a")))
	events := mustSubmit(t, book, newOrder("b1", Bid, "100.50", 5, by("firm-b")))

	assert.Empty(t, tradesOf(events))
	assert.Equal(t, int64(2), book.NumOrders())
}

func TestFIFOFillOrKillKilledWhenUncovered(t *testing.T) {
	book := newOpenBook(t, NewFIFOMatching())
	mustSubmit(t, book, newOrder("a1", Ask, "100.40", 4, by("firm-a")))

	events := mustSubmit(t, book, newOrder("b1", Bid, "100.40", 5, by("firm-b"), withTIF(FOK), at(time.Second)))

	assert.Empty(t, tradesOf(events))
	cancels := cancelsOf(events)
	require.Len(t, cancels, 1)
	assert.Equal(t, "b1", cancels[0].OrderID)
	assert.Equal(t, CauseKilled, cancels[0].Cause)
	// resting side untouched
	requireDecimalEqual(t, "4", book.TotalVolume())
}

func TestFIFOFillOrKillFillsAcrossLevels(t *testing.T) {
	book := newOpenBook(t, NewFIFOMatching())
	mustSubmit(t, book, newOrder("a1", Ask, "100.40", 4, by("firm-a")))
	mustSubmit(t, book, newOrder("a2", Ask, "100.50", 4, by("firm-b"), at(time.Second)))

	events := mustSubmit(t, book, newOrder("b1", Bid, "100.50", 7, by("firm-c"), withTIF(FOK), at(2*time.Second)))

	trades := tradesOf(events)
	require.Len(t, trades, 2)
	requireDecimalEqual(t, "4", trades[0].Volume)
	requireDecimalEqual(t, "3", trades[1].Volume)
	_, found := book.GetOrder("b1")
	assert.False(t, found)
}

func TestFIFOFillAndKillTakesAvailableThenDies(t *testing.T) {
	book := newOpenBook(t, NewFIFOMatching())
	mustSubmit(t, book, newOrder("a1", Ask, "100.40", 4, by("firm-a")))
	mustSubmit(t, book, newOrder("a2", Ask, "100.60", 10, by("firm-b")))

	events := mustSubmit(t, book, newOrder("b1", Bid, "100.50", 10, by("firm-c"), withTIF(FAK), at(time.Second)))

	trades := tradesOf(events)
	require.Len(t, trades, 1)
	requireDecimalEqual(t, "4", trades[0].Volume)

	// remainder killed, never rests
	_, found := book.GetOrder("b1")
	assert.False(t, found)
	cancels := cancelsOf(events)
	var killed bool
	for _, c := range cancels {
		if c.OrderID == "b1" && c.Cause == CauseKilled {
			killed = true
		}
	}
	assert.True(t, killed)
}

func TestFIFOMarketSweepsRegardlessOfPrice(t *testing.T) {
	book := newOpenBook(t, NewFIFOMatching())
	mustSubmit(t, book, newOrder("a1", Ask, "100.40", 4, by("firm-a")))
	mustSubmit(t, book, newOrder("a2", Ask, "105.00", 4, by("firm-b")))

	events := mustSubmit(t, book, newOrder("b1", Bid, "0", 6, by("firm-c"), asMarket(), at(time.Second)))

	trades := tradesOf(events)
	require.Len(t, trades, 2)
	requireDecimalEqual(t, "100.40", trades[0].Price)
	requireDecimalEqual(t, "105.00", trades[1].Price)
	assert.Equal(t, Bid, trades[0].AggressorSide)
}

func TestFIFOMarketKilledOnEmptyBook(t *testing.T) {
	book := newOpenBook(t, NewFIFOMatching())

	events := mustSubmit(t, book, newOrder("b1", Bid, "0", 6, asMarket()))

	assert.Empty(t, tradesOf(events))
	cancels := cancelsOf(events)
	require.Len(t, cancels, 1)
	assert.Equal(t, CauseKilled, cancels[0].Cause)
}

func TestFIFOSelfTradeSuppressed(t *testing.T) {
	book := newOpenBook(t, NewFIFOMatching())
	mustSubmit(t, book, newOrder("a1", Ask, "100.40", 5, by("firm-a")))

	events := mustSubmit(t, book, newOrder("b1", Bid, "100.50", 5, by("firm-a"), at(time.Second)))

	assert.Empty(t, tradesOf(events))
	// both orders rest, crossed
	assert.Equal(t, int64(2), book.NumOrders())
	requireDecimalEqual(t, "100.50", book.BestBidPrice())
	requireDecimalEqual(t, "100.40", book.BestAskPrice())
}

func TestFIFOSelfTradeSkipsToNextParticipant(t *testing.T) {
	book := newOpenBook(t, NewFIFOMatching())
	mustSubmit(t, book, newOrder("a1", Ask, "100.40", 5, by("firm-a")))
	mustSubmit(t, book, newOrder("a2", Ask, "100.40", 5, by("firm-b"), at(time.Second)))

	events := mustSubmit(t, book, newOrder("b1", Bid, "100.40", 5, by("firm-a"), at(2*time.Second)))

	trades := tradesOf(events)
	require.Len(t, trades, 1)
	// a1 is skipped even though it has time priority
	assert.Equal(t, "a2", trades[0].AskOrderID)
	left, found := book.GetOrder("a1")
	require.True(t, found)
	requireDecimalEqual(t, "5", left.CurrentVolume)
}
