package orderbook

import (
	"github.com/emirpasic/gods/utils"
	"github.com/shopspring/decimal"
)

// ProRataMatching fills an entire price level at once, splitting the traded
// volume across its resting orders in proportion to their size. Shares are
// rounded down to whole multiples of the book's minimum trade volume; any
// remainder goes to the largest orders first.
type ProRataMatching struct {
	minTradeVolume decimal.Decimal
}

func NewProRataMatching(minTradeVolume decimal.Decimal) ProRataMatching {
	if !minTradeVolume.IsPositive() {
		minTradeVolume = decimal.NewFromInt(1)
	}
	return ProRataMatching{minTradeVolume: minTradeVolume}
}

func (ProRataMatching) Name() string { return "PRO_RATA" }

func (ProRataMatching) OrderComparator() utils.Comparator { return proRataComparator }

func (p ProRataMatching) MatchOrder(active *ActiveOrders, incoming Order, ctx MatchContext) []Event {
	switch {
	case incoming.TimeInForce == FOK:
		if !active.IsTotalFillPossible(incoming) {
			return []Event{killEvent(incoming)}
		}
		return p.matchLevel(active, incoming, ctx, true)
	case incoming.TimeInForce == FAK:
		return p.matchLevel(active, incoming, ctx, true)
	case incoming.Type == Market:
		return p.matchLevel(active, incoming, ctx, true)
	default:
		return p.matchLevel(active, incoming, ctx, false)
	}
}

func (p ProRataMatching) MatchAtPrice(active *ActiveOrders, price decimal.Decimal, ctx MatchContext) []Event {
	return matchAtPrice(active, price, ctx)
}

// matchLevel distributes the incoming volume over the best opposing level.
// When kill is set, an order that cannot trade is removed instead of resting.
func (p ProRataMatching) matchLevel(active *ActiveOrders, incoming Order, ctx MatchContext, kill bool) []Event {
	level, ok := active.bestOpposingLevel(incoming)
	if !ok || !priceCompatible(incoming, level.Price) {
		if kill {
			return []Event{killEvent(incoming)}
		}
		return nil
	}

	eligible := level.VolumeExcluding(incoming.Participant)
	tradeTotal := decimal.Min(incoming.CurrentVolume, eligible)
	if tradeTotal.LessThan(p.minTradeVolume) {
		if kill {
			return []Event{killEvent(incoming)}
		}
		return nil
	}

	allocs := p.allocate(level, incoming.Participant, tradeTotal, eligible)

	var out []Event
	aggressor := incoming
	for _, al := range allocs {
		if !al.volume.IsPositive() {
			continue
		}
		bid, ask := aggressor, al.order
		if aggressor.Side == Ask {
			bid, ask = al.order, aggressor
		}
		trade := buildTrade(ctx.TradeID(), bid, ask, al.volume, ctx.Now)
		out = append(out, matchEvents(trade, bid, ask, al.volume)...)
		if al.volume.GreaterThanOrEqual(aggressor.CurrentVolume) {
			break
		}
		aggressor = aggressor.withUpdate(al.volume, CausePartialFill)
	}
	return out
}

type allocation struct {
	order  Order
	volume decimal.Decimal
}

// allocate computes each resting order's share of the traded volume. Largest
// orders come first by level ordering, so the sub-increment remainder left by
// rounding is folded into the front of the queue.
func (p ProRataMatching) allocate(level *PriceLevel, participant string, tradeTotal, eligible decimal.Decimal) []allocation {
	var allocs []allocation
	allocated := decimal.Zero
	level.Each(func(o Order) bool {
		if o.Participant == participant {
			return true
		}
		share := tradeTotal.Mul(o.CurrentVolume).Div(eligible)
		share = share.Div(p.minTradeVolume).Floor().Mul(p.minTradeVolume)
		if share.GreaterThan(o.CurrentVolume) {
			share = o.CurrentVolume
		}
		allocs = append(allocs, allocation{order: o, volume: share})
		allocated = allocated.Add(share)
		return true
	})

	remaining := tradeTotal.Sub(allocated)
	for i := range allocs {
		if !remaining.IsPositive() {
			break
		}
		headroom := allocs[i].order.CurrentVolume.Sub(allocs[i].volume)
		if headroom.IsPositive() {
			extra := decimal.Min(headroom, remaining)
			allocs[i].volume = allocs[i].volume.Add(extra)
			remaining = remaining.Sub(extra)
		}
	}
	return allocs
}
