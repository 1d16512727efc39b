package orderbook

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Trade is one execution between a bid and an ask. Price comes from the
// resting side; the aggressor crosses the spread.
type Trade struct {
	TradeID        string          `json:"tradeId"`
	OrderbookID    string          `json:"orderbookId"`
	InstrumentID   string          `json:"instrumentId"`
	Price          decimal.Decimal `json:"price"`
	Volume         decimal.Decimal `json:"volume"`
	BidOrderID     string          `json:"bidOrderId"`
	AskOrderID     string          `json:"askOrderId"`
	BidParticipant string          `json:"bidParticipant"`
	AskParticipant string          `json:"askParticipant"`
	AggressorSide  Side            `json:"aggressorSide"`
	ExecutedAt     time.Time       `json:"executedAt"`
}

// Event is one element of a matching result: either an order mutation to apply
// to the book or a trade to publish. Exactly one field is set.
type Event struct {
	Order *Order `json:"order,omitempty"`
	Trade *Trade `json:"trade,omitempty"`
}

func orderEvent(o Order) Event { return Event{Order: &o} }
func tradeEvent(t Trade) Event { return Event{Trade: &t} }

// TradeExecution is the outbound record of one fill, one per trade side pair.
type TradeExecution struct {
	Trade Trade `json:"trade"`
	State State `json:"sessionState"`
}

// TopOfBook is the published best-bid/best-ask snapshot for one book. Zero
// prices mean the side is empty.
type TopOfBook struct {
	OrderbookID  string          `json:"orderbookId"`
	InstrumentID string          `json:"instrumentId"`
	BidPrice     decimal.Decimal `json:"bidPrice"`
	BidVolume    decimal.Decimal `json:"bidVolume"`
	AskPrice     decimal.Decimal `json:"askPrice"`
	AskVolume    decimal.Decimal `json:"askVolume"`
	Timestamp    time.Time       `json:"timestamp"`
}

func (t TopOfBook) Equal(other TopOfBook) bool {
	return t.OrderbookID == other.OrderbookID &&
		t.BidPrice.Equal(other.BidPrice) &&
		t.BidVolume.Equal(other.BidVolume) &&
		t.AskPrice.Equal(other.AskPrice) &&
		t.AskVolume.Equal(other.AskVolume)
}

// buildTrade pairs a bid and an ask at the resting order's price. A market
// order is always the aggressor; between two limit orders the later arrival
// is, with the order sequence breaking equal timestamps.
func buildTrade(tradeID string, bid, ask Order, volume decimal.Decimal, now time.Time) Trade {
	aggressor := Bid
	switch {
	case bid.Type == Market:
		aggressor = Bid
	case ask.Type == Market:
		aggressor = Ask
	case bid.SubmittedAt.After(ask.SubmittedAt):
		aggressor = Bid
	case ask.SubmittedAt.After(bid.SubmittedAt):
		aggressor = Ask
	case bid.Sequence >= ask.Sequence:
		aggressor = Bid
	default:
		aggressor = Ask
	}
	price := bid.Price
	if aggressor == Bid {
		price = ask.Price
	}
	return Trade{
		TradeID:        tradeID,
		OrderbookID:    bid.OrderbookID,
		InstrumentID:   bid.InstrumentID,
		Price:          price,
		Volume:         volume,
		BidOrderID:     bid.OrderID,
		AskOrderID:     ask.OrderID,
		BidParticipant: bid.Participant,
		AskParticipant: ask.Participant,
		AggressorSide:  aggressor,
		ExecutedAt:     now,
	}
}

// matchEvents emits the mutations for one fill followed by the trade itself:
// fully filled orders cancel out of the book, partial fills shrink in place.
// Cancels come first so the book never shows a filled order alongside its
// trade.
func matchEvents(trade Trade, bid, ask Order, volume decimal.Decimal) []Event {
	var cancels, updates []Event
	for _, o := range []Order{bid, ask} {
		remaining := o.CurrentVolume.Sub(volume)
		if remaining.IsPositive() {
			updates = append(updates, orderEvent(o.withUpdate(volume, CausePartialFill)))
		} else {
			cancels = append(cancels, orderEvent(o.asCancel(CauseFilled)))
		}
	}
	out := make([]Event, 0, 3)
	out = append(out, cancels...)
	out = append(out, updates...)
	out = append(out, tradeEvent(trade))
	return out
}

// killEvent cancels an order that cannot rest or trade.
func killEvent(o Order) Event {
	return orderEvent(o.asCancel(CauseKilled))
}

func (t Trade) String() string {
	return fmt.Sprintf("trade %s %s@%s bid=%s ask=%s", t.TradeID, t.Volume, t.Price, t.BidOrderID, t.AskOrderID)
}
