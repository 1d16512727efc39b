package orderbook

import (
	"time"

	"github.com/emirpasic/gods/utils"
	"github.com/shopspring/decimal"
)

// MatchContext carries per-run inputs into an algorithm: the engine clock and
// the trade id source. Algorithms themselves hold no mutable state.
type MatchContext struct {
	Now     time.Time
	TradeID func() string
}

// MatchingAlgorithm produces the events for one matching step. MatchOrder is
// single-shot: it pairs the incoming order against the book once and returns
// the resulting mutations and trades, or nothing when the order should rest.
// The Orderbook applies the events and calls again until the order is done.
type MatchingAlgorithm interface {
	Name() string
	OrderComparator() utils.Comparator
	MatchOrder(active *ActiveOrders, incoming Order, ctx MatchContext) []Event
	MatchAtPrice(active *ActiveOrders, price decimal.Decimal, ctx MatchContext) []Event
}

// FIFOMatching fills strictly in price/time priority: the best-priced
// opposing order trades first, ties broken by arrival.
type FIFOMatching struct{}

func NewFIFOMatching() FIFOMatching { return FIFOMatching{} }

func (FIFOMatching) Name() string { return "FIFO" }

func (FIFOMatching) OrderComparator() utils.Comparator { return fifoComparator }

func (f FIFOMatching) MatchOrder(active *ActiveOrders, incoming Order, ctx MatchContext) []Event {
	switch {
	case incoming.TimeInForce == FOK:
		return f.matchFOK(active, incoming, ctx)
	case incoming.TimeInForce == FAK:
		return f.matchFAK(active, incoming, ctx)
	case incoming.Type == Market:
		return f.matchMarket(active, incoming, ctx)
	default:
		return f.matchResting(active, incoming, ctx)
	}
}

// matchResting handles orders that may stay in the book. No events means no
// fill was possible at this price and the order rests.
func (FIFOMatching) matchResting(active *ActiveOrders, incoming Order, ctx MatchContext) []Event {
	opposing, ok := active.bestOpposing(incoming)
	if !ok || !priceCompatible(incoming, opposing.Price) {
		return nil
	}
	return fillBest(incoming, opposing, ctx)
}

// matchFOK fills only when the whole remaining volume is coverable at
// acceptable prices, otherwise kills the order outright.
func (FIFOMatching) matchFOK(active *ActiveOrders, incoming Order, ctx MatchContext) []Event {
	opposing, ok := active.bestOpposing(incoming)
	if !ok || !active.IsTotalFillPossible(incoming) || !priceCompatible(incoming, opposing.Price) {
		return []Event{killEvent(incoming)}
	}
	return fillBest(incoming, opposing, ctx)
}

// matchFAK takes whatever is available at acceptable prices; once no
// compatible volume remains the rest of the order is killed.
func (FIFOMatching) matchFAK(active *ActiveOrders, incoming Order, ctx MatchContext) []Event {
	opposing, ok := active.bestOpposing(incoming)
	if !ok || !priceCompatible(incoming, opposing.Price) {
		return []Event{killEvent(incoming)}
	}
	return fillBest(incoming, opposing, ctx)
}

// matchMarket trades at any price until the opposing side is exhausted.
func (FIFOMatching) matchMarket(active *ActiveOrders, incoming Order, ctx MatchContext) []Event {
	opposing, ok := active.bestOpposing(incoming)
	if !ok {
		return []Event{killEvent(incoming)}
	}
	return fillBest(incoming, opposing, ctx)
}

func (FIFOMatching) MatchAtPrice(active *ActiveOrders, price decimal.Decimal, ctx MatchContext) []Event {
	return matchAtPrice(active, price, ctx)
}

// fillBest executes one fill between the incoming order and a resting order
// for the maximum volume both can carry.
func fillBest(incoming, resting Order, ctx MatchContext) []Event {
	bid, ask := incoming, resting
	if incoming.Side == Ask {
		bid, ask = resting, incoming
	}
	volume := decimal.Min(bid.CurrentVolume, ask.CurrentVolume)
	trade := buildTrade(ctx.TradeID(), bid, ask, volume, ctx.Now)
	return matchEvents(trade, bid, ask, volume)
}

// matchAtPrice is the uncrossing step shared by the algorithms: pair the best
// bid and ask willing to trade at the given price and execute at that price.
// A same-participant pairing produces no trade; the smaller order is removed
// so the uncrossing can progress.
func matchAtPrice(active *ActiveOrders, price decimal.Decimal, ctx MatchContext) []Event {
	bid, ok := active.BestBid()
	if !ok || bid.Price.LessThan(price) {
		return nil
	}
	ask, ok := active.BestAsk()
	if !ok || ask.Price.GreaterThan(price) {
		return nil
	}
	if bid.Participant == ask.Participant {
		victim := bid
		if ask.CurrentVolume.LessThan(bid.CurrentVolume) {
			victim = ask
		}
		return []Event{orderEvent(victim.asCancel(CauseSelfMatch))}
	}
	volume := decimal.Min(bid.CurrentVolume, ask.CurrentVolume)
	trade := buildTrade(ctx.TradeID(), bid, ask, volume, ctx.Now)
	trade.Price = price
	return matchEvents(trade, bid, ask, volume)
}
