package orderbook

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var testBase = time.Date(2024, 5, 20, 9, 0, 0, 0, time.UTC)

type orderOpt func(*Order)

func by(participant string) orderOpt {
	return func(o *Order) { o.Participant = participant }
}

func asMarket() orderOpt {
	return func(o *Order) {
		o.Type = Market
		o.Price = decimal.Zero
	}
}

func withTIF(tif TimeInForce) orderOpt {
	return func(o *Order) { o.TimeInForce = tif }
}

func at(offset time.Duration) orderOpt {
	return func(o *Order) { o.SubmittedAt = testBase.Add(offset) }
}

func withSeq(seq uint64) orderOpt {
	return func(o *Order) { o.Sequence = seq }
}

func newOrder(id string, side Side, price string, volume int64, opts ...orderOpt) Order {
	vol := decimal.NewFromInt(volume)
	o := Order{
		Operation:     Insert,
		Side:          side,
		Type:          Limit,
		TimeInForce:   Session,
		InitialVolume: vol,
		CurrentVolume: vol,
		Price:         decimal.RequireFromString(price),
		SubmittedAt:   testBase,
		Participant:   "firm-a",
		InstrumentID:  "inst-1",
		OrderbookID:   "book-1",
		OrderID:       id,
		Cause:         CauseNew,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// newOpenBook returns a book in continuous trading.
func newOpenBook(t *testing.T, matcher MatchingAlgorithm) *Orderbook {
	t.Helper()
	book := NewOrderbook("book-1", "inst-1", matcher, NewDutchAuction(), zerolog.Nop())
	_, _, err := book.UpdateState(PreTrade)
	require.NoError(t, err)
	_, _, err = book.UpdateState(ContinuousTrading)
	require.NoError(t, err)
	return book
}

// newCallBook returns a book collecting orders for the opening auction.
func newCallBook(t *testing.T, matcher MatchingAlgorithm) *Orderbook {
	t.Helper()
	book := NewOrderbook("book-1", "inst-1", matcher, NewDutchAuction(), zerolog.Nop())
	_, _, err := book.UpdateState(PreTrade)
	require.NoError(t, err)
	_, _, err = book.UpdateState(OpenAuctionTrading)
	require.NoError(t, err)
	return book
}

func mustSubmit(t *testing.T, book *Orderbook, o Order) []Event {
	t.Helper()
	events, err := book.Submit(o)
	require.NoError(t, err)
	return events
}

func tradesOf(events []Event) []Trade {
	var out []Trade
	for _, ev := range events {
		if ev.Trade != nil {
			out = append(out, *ev.Trade)
		}
	}
	return out
}

func cancelsOf(events []Event) []Order {
	var out []Order
	for _, ev := range events {
		if ev.Order != nil && ev.Order.Operation == Cancel {
			out = append(out, *ev.Order)
		}
	}
	return out
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func requireDecimalEqual(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.True(t, dec(want).Equal(got), "want %s, got %s", want, got)
}
